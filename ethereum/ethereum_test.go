package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightlink-network/ll-bridge-collector/contracts"
	"github.com/lightlink-network/ll-bridge-collector/internal/chaintest"
	bridgetypes "github.com/lightlink-network/ll-bridge-collector/types"
	"github.com/lightlink-network/ll-bridge-collector/utils"
)

var (
	portalAddr = common.HexToAddress("0x1000000000000000000000000000000000000001")
	oracleAddr = common.HexToAddress("0x1000000000000000000000000000000000000002")
)

func testClient(backend *chaintest.Backend) *Client {
	return newClient(backend, ClientOpts{
		OptimismPortalAddress: portalAddr,
		L2OutputOracleAddress: oracleAddr,
		Retry:                 utils.RetryOpts{Attempts: 2, Delay: time.Millisecond},
	})
}

func TestPortalCalls(t *testing.T) {
	backend := chaintest.NewBackend()
	proven := common.HexToHash("0xaa")

	backend.Handle(portalAddr, contracts.OptimismPortal, "finalizedWithdrawals", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{false}, nil
	})
	backend.Handle(portalAddr, contracts.OptimismPortal, "provenWithdrawals", func(args []interface{}) ([]interface{}, error) {
		if common.Hash(args[0].([32]byte)) == proven {
			return []interface{}{[32]byte{1}, big.NewInt(1700000000), big.NewInt(42)}, nil
		}
		return []interface{}{[32]byte{}, big.NewInt(0), big.NewInt(0)}, nil
	})

	c := testClient(backend)
	ctx := context.Background()

	finalized, err := c.FinalizedWithdrawals(ctx, proven)
	require.NoError(t, err)
	assert.False(t, finalized)

	p, err := c.ProvenWithdrawals(ctx, proven)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), p.Timestamp.Int64())
	assert.Equal(t, int64(42), p.L2OutputIndex.Int64())

	p, err = c.ProvenWithdrawals(ctx, common.HexToHash("0xbb"))
	require.NoError(t, err)
	assert.Zero(t, p.Timestamp.Sign())
}

func TestOracleCalls(t *testing.T) {
	backend := chaintest.NewBackend()
	backend.Handle(oracleAddr, contracts.L2OutputOracle, "latestBlockNumber", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{big.NewInt(1234)}, nil
	})
	backend.Handle(oracleAddr, contracts.L2OutputOracle, "FINALIZATION_PERIOD_SECONDS", func(args []interface{}) ([]interface{}, error) {
		return []interface{}{big.NewInt(604800)}, nil
	})
	backend.SetHeader(&types.Header{Number: big.NewInt(10), Time: 1700000500})

	c := testClient(backend)
	ctx := context.Background()

	n, err := c.LatestOutputBlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), n.Int64())

	period, err := c.FinalizationPeriodSeconds(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(604800), period.Int64())

	ts, err := c.LatestBlockTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000500), ts)
}

func TestCallRetriesThenFails(t *testing.T) {
	backend := chaintest.NewBackend()
	backend.Handle(oracleAddr, contracts.L2OutputOracle, "latestBlockNumber", func(args []interface{}) ([]interface{}, error) {
		return nil, errors.New("execution reverted")
	})

	c := testClient(backend)
	_, err := c.LatestOutputBlockNumber(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, backend.Calls(oracleAddr, "latestBlockNumber"))
}

func TestTransactionReceiptUnavailable(t *testing.T) {
	c := testClient(chaintest.NewBackend())
	_, err := c.TransactionReceipt(context.Background(), common.HexToHash("0x01"))
	assert.ErrorIs(t, err, bridgetypes.ErrReceiptUnavailable)
}
