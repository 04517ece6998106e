package indexer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightlink-network/ll-bridge-collector/blockscout"
	"github.com/lightlink-network/ll-bridge-collector/metrics"
	"github.com/lightlink-network/ll-bridge-collector/types"
)

func txHash(n int64) common.Hash {
	return common.BigToHash(big.NewInt(n))
}

type harness struct {
	source  *fakeSource
	l1      fakeReceipts
	l2      fakeReceipts
	tokens  *fakeTokens
	oracle  *fakeOracle
	store   *fakeStore
	metrics *metrics.Metrics
	indexer *Indexer
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		source:  &fakeSource{},
		l1:      fakeReceipts{},
		l2:      fakeReceipts{},
		tokens:  newFakeTokens(),
		oracle:  &fakeOracle{status: map[common.Hash]types.MessageStatus{}},
		store:   newFakeStore(),
		metrics: metrics.New(prometheus.NewRegistry()),
	}

	idx, err := NewIndexer(IndexerOpts{
		Source:      h.source,
		Ethereum:    h.l1,
		Lightlink:   h.l2,
		Tokens:      h.tokens,
		Oracle:      h.oracle,
		Store:       h.store,
		Metrics:     h.metrics,
		Concurrency: 3,
	})
	require.NoError(t, err)
	h.indexer = idx
	return h
}

func receipt(logs ...*gethtypes.Log) *gethtypes.Receipt {
	return &gethtypes.Receipt{Status: gethtypes.ReceiptStatusSuccessful, Logs: logs}
}

func TestNewIndexerRequiresDependencies(t *testing.T) {
	_, err := NewIndexer(IndexerOpts{Source: &fakeSource{}})
	assert.Error(t, err)
}

func TestReconcileDeposits(t *testing.T) {
	h := newHarness(t)
	h.source.deposits = []blockscout.Summary{{Hash: txHash(1)}, {Hash: txHash(2)}}
	h.l1[txHash(1)] = receipt(ethDepositLog(t, alice, bob, big.NewInt(1e18)))
	h.l1[txHash(2)] = receipt(erc20DepositLog(t, usdc, l2USD, alice, alice, big.NewInt(2_500_000)))

	res, err := h.indexer.ReconcileDeposits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Fetched: 2, Upserted: 2}, res)

	native := h.store.deposits[txHash(1).Hex()]
	assert.Equal(t, "1000000000000000000", native.Amount)
	assert.Equal(t, common.Address{}.Hex(), native.TokenAddress)
	assert.Equal(t, "ETH", native.TokenSymbol)
	assert.Equal(t, uint8(18), native.TokenDecimals)
	assert.Equal(t, bob.Hex(), native.Address)
	assert.Equal(t, "Relayed", native.Status)

	erc20 := h.store.deposits[txHash(2).Hex()]
	assert.Equal(t, "2500000", erc20.Amount)
	assert.Equal(t, usdc.Hex(), erc20.TokenAddress)
	assert.Equal(t, "USDC", erc20.TokenSymbol)
	assert.Equal(t, uint8(6), erc20.TokenDecimals)

	assert.Equal(t, 1, h.tokens.calls[usdc])
	assert.Zero(t, h.tokens.calls[common.Address{}], "native assets are never resolved")
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.RecordsUpserted.WithLabelValues("deposit")))
}

func TestReconcileWithdrawals(t *testing.T) {
	h := newHarness(t)
	l1 := txHash(100)
	h.source.withdrawals = []blockscout.Summary{
		{Hash: txHash(1), CounterpartHash: &l1, Status: "Relayed"},
		{Hash: txHash(2), Status: "Ready to prove"},
	}
	h.l2[txHash(1)] = receipt(withdrawalLog(t, usdc, l2USD, alice, bob, big.NewInt(10)))
	h.l2[txHash(2)] = receipt(withdrawalLog(t, common.Address{}, l2USD, alice, bob, big.NewInt(20)))

	res, err := h.indexer.ReconcileWithdrawals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Upserted)

	relayed := h.store.withdrawals[txHash(1).Hex()]
	assert.Equal(t, "Relayed", relayed.Status)
	require.NotNil(t, relayed.L1Hash)
	assert.Equal(t, l1.Hex(), *relayed.L1Hash)
	assert.Equal(t, "USDC.e", relayed.TokenSymbol)
	assert.Nil(t, relayed.RecentStatus)

	native := h.store.withdrawals[txHash(2).Hex()]
	assert.Equal(t, "Ready to prove", native.Status)
	assert.Nil(t, native.L1Hash)
	assert.Equal(t, "ETH", native.TokenSymbol)
	assert.Equal(t, l2USD.Hex(), native.TokenAddress)
}

func TestReconcilePartialFailure(t *testing.T) {
	h := newHarness(t)
	for n := int64(1); n <= 5; n++ {
		h.source.withdrawals = append(h.source.withdrawals, blockscout.Summary{Hash: txHash(n), Status: "Ready to prove"})
		if n != 3 {
			h.l2[txHash(n)] = receipt(withdrawalLog(t, usdc, l2USD, alice, bob, big.NewInt(n)))
		}
	}

	res, err := h.indexer.ReconcileWithdrawals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Fetched: 5, Upserted: 4, Skipped: 1}, res)
	assert.Len(t, h.store.withdrawals, 4)
	assert.NotContains(t, h.store.withdrawals, txHash(3).Hex())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ItemsSkipped.WithLabelValues("withdrawal", "receipt_unavailable")))
}

func TestReconcileSkipReasons(t *testing.T) {
	h := newHarness(t)
	unknown := common.HexToAddress("0x9999999999999999999999999999999999999999")
	h.source.deposits = []blockscout.Summary{{Hash: txHash(1)}, {Hash: txHash(2)}, {Hash: txHash(3)}}
	h.l1[txHash(1)] = receipt()
	h.l1[txHash(2)] = receipt(erc20DepositLog(t, unknown, l2USD, alice, bob, big.NewInt(1)))
	h.l1[txHash(3)] = receipt(ethDepositLog(t, alice, bob, big.NewInt(1)))
	h.store.failHashes[txHash(3).Hex()] = true

	res, err := h.indexer.ReconcileDeposits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{Fetched: 3, Skipped: 2, Failed: 1}, res)
	assert.Empty(t, h.store.deposits)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ItemsSkipped.WithLabelValues("deposit", "no_bridge_event")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ItemsSkipped.WithLabelValues("deposit", "metadata_unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.UpsertFailures.WithLabelValues("deposit")))
}

func TestReconcileIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.source.withdrawals = []blockscout.Summary{{Hash: txHash(1), Status: "Ready to prove"}}
	h.l2[txHash(1)] = receipt(withdrawalLog(t, usdc, l2USD, alice, bob, big.NewInt(10)))

	_, err := h.indexer.ReconcileWithdrawals(context.Background())
	require.NoError(t, err)
	first := h.store.withdrawals[txHash(1).Hex()]

	require.NoError(t, h.store.UpdateWithdrawalRecentStatus(context.Background(), txHash(1).Hex(), "In challenge period"))

	_, err = h.indexer.ReconcileWithdrawals(context.Background())
	require.NoError(t, err)
	second := h.store.withdrawals[txHash(1).Hex()]

	assert.Len(t, h.store.withdrawals, 1)
	assert.Equal(t, first.Amount, second.Amount)
	assert.Equal(t, first.Status, second.Status)
	require.NotNil(t, second.RecentStatus)
	assert.Equal(t, "In challenge period", *second.RecentStatus)
}

func TestReconcileFetchFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.source.err = errors.New("503 Service Unavailable")

	_, err := h.indexer.ReconcileDeposits(context.Background())
	assert.ErrorIs(t, err, ErrCycleFatal)

	_, err = h.indexer.ReconcileWithdrawals(context.Background())
	assert.ErrorIs(t, err, ErrCycleFatal)
	assert.Empty(t, h.store.deposits)
	assert.Empty(t, h.store.withdrawals)
}

func TestReconcileEmptySnapshot(t *testing.T) {
	h := newHarness(t)

	res, err := h.indexer.ReconcileDeposits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CycleResult{}, res)
}
