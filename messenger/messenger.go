// Package messenger resolves the lifecycle stage of an L2 to L1 withdrawal from
// the portal and output oracle contracts on L1.
package messenger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/ll-bridge-collector/ethereum"
	"github.com/lightlink-network/ll-bridge-collector/lightlink"
	"github.com/lightlink-network/ll-bridge-collector/types"
)

// L1 is the portal and output oracle surface on the base chain.
type L1 interface {
	ethereum.OptimismPortal
	ethereum.L2OutputOracle
}

type MessengerOpts struct {
	L1     L1
	L2     lightlink.MessagePasser
	Logger *slog.Logger
}

type Messenger struct {
	l1     L1
	l2     lightlink.MessagePasser
	logger *slog.Logger

	// the finalization period is immutable on the oracle, cached once read
	mu     sync.Mutex
	period *big.Int
}

func NewMessenger(opts MessengerOpts) *Messenger {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Messenger{
		l1:     opts.L1,
		l2:     opts.L2,
		logger: opts.Logger,
	}
}

// GetMessageStatus returns the current stage of the withdrawal initiated by the
// L2 transaction txHash. A withdrawal finalized on the portal is Relayed even
// if the messenger relay then failed, where the OP SDK reports Ready for relay.
func (m *Messenger) GetMessageStatus(ctx context.Context, txHash common.Hash) (types.MessageStatus, error) {
	withdrawal, err := m.l2.WithdrawalHash(ctx, txHash)
	if err != nil {
		return 0, fmt.Errorf("failed to get withdrawal hash: %w", err)
	}

	finalized, err := m.l1.FinalizedWithdrawals(ctx, withdrawal.Hash)
	if err != nil {
		return 0, fmt.Errorf("failed to check finalized withdrawals: %w", err)
	}
	if finalized {
		return types.Relayed, nil
	}

	latest, err := m.l1.LatestOutputBlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest output block: %w", err)
	}
	if latest.Cmp(new(big.Int).SetUint64(withdrawal.BlockNumber)) < 0 {
		return types.StateRootNotPublished, nil
	}

	proven, err := m.l1.ProvenWithdrawals(ctx, withdrawal.Hash)
	if err != nil {
		return 0, fmt.Errorf("failed to check proven withdrawals: %w", err)
	}
	if proven.Timestamp == nil || proven.Timestamp.Sign() == 0 {
		return types.ReadyToProve, nil
	}

	period, err := m.finalizationPeriod(ctx)
	if err != nil {
		return 0, err
	}
	now, err := m.l1.LatestBlockTime(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block time: %w", err)
	}

	deadline := new(big.Int).Add(proven.Timestamp, period)
	if deadline.Cmp(new(big.Int).SetUint64(now)) > 0 {
		return types.InChallengePeriod, nil
	}
	return types.ReadyForRelay, nil
}

func (m *Messenger) finalizationPeriod(ctx context.Context) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.period != nil {
		return m.period, nil
	}
	period, err := m.l1.FinalizationPeriodSeconds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get finalization period: %w", err)
	}
	m.period = period
	return period, nil
}
