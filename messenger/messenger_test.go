package messenger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightlink-network/ll-bridge-collector/ethereum"
	"github.com/lightlink-network/ll-bridge-collector/lightlink"
	"github.com/lightlink-network/ll-bridge-collector/types"
)

type fakeL1 struct {
	finalized    bool
	latestOutput int64
	provenAt     int64
	period       int64
	now          uint64
	periodCalls  int
	finalizedErr error
}

func (f *fakeL1) FinalizedWithdrawals(ctx context.Context, h common.Hash) (bool, error) {
	return f.finalized, f.finalizedErr
}

func (f *fakeL1) ProvenWithdrawals(ctx context.Context, h common.Hash) (ethereum.ProvenWithdrawal, error) {
	return ethereum.ProvenWithdrawal{Timestamp: big.NewInt(f.provenAt), L2OutputIndex: big.NewInt(0)}, nil
}

func (f *fakeL1) LatestBlockTime(ctx context.Context) (uint64, error) {
	return f.now, nil
}

func (f *fakeL1) LatestOutputBlockNumber(ctx context.Context) (*big.Int, error) {
	return big.NewInt(f.latestOutput), nil
}

func (f *fakeL1) FinalizationPeriodSeconds(ctx context.Context) (*big.Int, error) {
	f.periodCalls++
	return big.NewInt(f.period), nil
}

type fakeL2 struct {
	block uint64
	err   error
}

func (f fakeL2) WithdrawalHash(ctx context.Context, txHash common.Hash) (lightlink.Withdrawal, error) {
	return lightlink.Withdrawal{Hash: common.HexToHash("0xfeed"), BlockNumber: f.block}, f.err
}

func TestGetMessageStatus(t *testing.T) {
	tests := []struct {
		name string
		l1   fakeL1
		want types.MessageStatus
	}{
		{"finalized", fakeL1{finalized: true}, types.Relayed},
		{"no state root", fakeL1{latestOutput: 99}, types.StateRootNotPublished},
		{"not proven", fakeL1{latestOutput: 100}, types.ReadyToProve},
		{"challenge", fakeL1{latestOutput: 200, provenAt: 1000, period: 600, now: 1599}, types.InChallengePeriod},
		{"ready", fakeL1{latestOutput: 200, provenAt: 1000, period: 600, now: 1600}, types.ReadyForRelay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l1 := tt.l1
			m := NewMessenger(MessengerOpts{L1: &l1, L2: fakeL2{block: 100}})

			got, err := m.GetMessageStatus(context.Background(), common.HexToHash("0x01"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFinalizationPeriodCached(t *testing.T) {
	l1 := &fakeL1{latestOutput: 200, provenAt: 1000, period: 600, now: 1000}
	m := NewMessenger(MessengerOpts{L1: l1, L2: fakeL2{block: 100}})

	for i := 0; i < 3; i++ {
		_, err := m.GetMessageStatus(context.Background(), common.HexToHash("0x01"))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, l1.periodCalls)
}

func TestGetMessageStatusErrors(t *testing.T) {
	m := NewMessenger(MessengerOpts{L1: &fakeL1{}, L2: fakeL2{err: types.ErrReceiptUnavailable}})
	_, err := m.GetMessageStatus(context.Background(), common.HexToHash("0x01"))
	assert.ErrorIs(t, err, types.ErrReceiptUnavailable)

	m = NewMessenger(MessengerOpts{L1: &fakeL1{finalizedErr: errors.New("rpc down")}, L2: fakeL2{}})
	_, err = m.GetMessageStatus(context.Background(), common.HexToHash("0x01"))
	assert.Error(t, err)
}
