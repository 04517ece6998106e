package indexer

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/lightlink-network/ll-bridge-collector/blockscout"
	"github.com/lightlink-network/ll-bridge-collector/database/models"
	"github.com/lightlink-network/ll-bridge-collector/tokens"
	"github.com/lightlink-network/ll-bridge-collector/types"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000A11CE")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000B0B")
	usdc  = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	l2USD = common.HexToAddress("0x0000000000000000000000000000000000005D2C")
)

func addrTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func bridgeLog(t *testing.T, ev abi.Event, topics []common.Hash, data ...interface{}) *gethtypes.Log {
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	require.NoError(t, err)
	return &gethtypes.Log{
		Topics: append([]common.Hash{ev.ID}, topics...),
		Data:   packed,
	}
}

func ethDepositLog(t *testing.T, from, to common.Address, amount *big.Int) *gethtypes.Log {
	return bridgeLog(t, ETHDepositInitiatedEvent, []common.Hash{addrTopic(from), addrTopic(to)}, amount, []byte{})
}

func erc20DepositLog(t *testing.T, l1, l2, from, to common.Address, amount *big.Int) *gethtypes.Log {
	return bridgeLog(t, ERC20DepositInitiatedEvent, []common.Hash{addrTopic(l1), addrTopic(l2), addrTopic(from)}, to, amount, []byte{})
}

func withdrawalLog(t *testing.T, l1, l2, from, to common.Address, amount *big.Int) *gethtypes.Log {
	return bridgeLog(t, WithdrawalInitiatedEvent, []common.Hash{addrTopic(l1), addrTopic(l2), addrTopic(from)}, to, amount, []byte{})
}

type fakeSource struct {
	deposits    []blockscout.Summary
	withdrawals []blockscout.Summary
	err         error
}

func (f *fakeSource) Deposits(ctx context.Context) ([]blockscout.Summary, error) {
	return f.deposits, f.err
}

func (f *fakeSource) Withdrawals(ctx context.Context) ([]blockscout.Summary, error) {
	return f.withdrawals, f.err
}

type fakeReceipts map[common.Hash]*gethtypes.Receipt

func (f fakeReceipts) TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	r, ok := f[txHash]
	if !ok {
		return nil, types.ErrReceiptUnavailable
	}
	return r, nil
}

type fakeTokens struct {
	mu    sync.Mutex
	md    map[common.Address]tokens.Metadata
	calls map[common.Address]int
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{
		md: map[common.Address]tokens.Metadata{
			usdc:  {Decimals: 6, Symbol: "USDC"},
			l2USD: {Decimals: 6, Symbol: "USDC.e"},
		},
		calls: map[common.Address]int{},
	}
}

func (f *fakeTokens) Resolve(ctx context.Context, chain types.Chain, token common.Address) (tokens.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[token]++
	md, ok := f.md[token]
	if !ok {
		return tokens.Metadata{}, types.ErrMetadataUnavailable
	}
	return md, nil
}

func (f *fakeTokens) Native() tokens.Metadata {
	return tokens.Metadata{Decimals: 18, Symbol: "ETH"}
}

type fakeStore struct {
	mu          sync.Mutex
	deposits    map[string]models.Deposit
	withdrawals map[string]models.Withdrawal
	failHashes  map[string]bool
	pendingErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		deposits:    map[string]models.Deposit{},
		withdrawals: map[string]models.Withdrawal{},
		failHashes:  map[string]bool{},
	}
}

func (s *fakeStore) UpsertDeposit(ctx context.Context, d models.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failHashes[d.Hash] {
		return errors.New("write conflict")
	}
	s.deposits[d.Hash] = d
	return nil
}

func (s *fakeStore) UpsertWithdrawal(ctx context.Context, w models.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failHashes[w.Hash] {
		return errors.New("write conflict")
	}
	if prev, ok := s.withdrawals[w.Hash]; ok {
		w.RecentStatus = prev.RecentStatus
	} else {
		w.RecentStatus = nil
	}
	s.withdrawals[w.Hash] = w
	return nil
}

func (s *fakeStore) GetPendingWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingErr != nil {
		return nil, s.pendingErr
	}
	var out []models.Withdrawal
	for _, w := range s.withdrawals {
		if (w.RecentStatus == nil && w.Status != types.RelayedStatus) || (w.RecentStatus != nil && *w.RecentStatus != types.RelayedStatus) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateWithdrawalRecentStatus(ctx context.Context, hash string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failHashes[hash] {
		return errors.New("write conflict")
	}
	w, ok := s.withdrawals[hash]
	if !ok {
		return errors.New("not found")
	}
	w.RecentStatus = &status
	s.withdrawals[hash] = w
	return nil
}

type fakeOracle struct {
	mu     sync.Mutex
	status map[common.Hash]types.MessageStatus
	calls  map[common.Hash]int
}

func (f *fakeOracle) GetMessageStatus(ctx context.Context, txHash common.Hash) (types.MessageStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[common.Hash]int{}
	}
	f.calls[txHash]++
	s, ok := f.status[txHash]
	if !ok {
		return 0, errors.New("unknown withdrawal")
	}
	return s, nil
}
