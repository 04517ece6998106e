package indexer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/lightlink-network/ll-bridge-collector/database/models"
	"github.com/lightlink-network/ll-bridge-collector/types"
)

type WatchResult struct {
	Selected    int
	Updated     int
	Skipped     int
	Failed      int
	Regressions int
}

// WatchWithdrawals asks the status oracle for the current stage of every
// pending withdrawal and records it as the withdrawal's recent status.
func (i *Indexer) WatchWithdrawals(ctx context.Context) (WatchResult, error) {
	if i.oracle == nil {
		return WatchResult{}, fmt.Errorf("%w: no status oracle configured", ErrCycleFatal)
	}

	pending, err := i.store.GetPendingWithdrawals(ctx)
	if err != nil {
		return WatchResult{}, fmt.Errorf("%w: failed to get pending withdrawals: %w", ErrCycleFatal, err)
	}

	var updated, skipped, failed, regressions atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(i.concurrency)

	for _, w := range pending {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			switch i.watchWithdrawal(ctx, w) {
			case watchUpdated:
				updated.Add(1)
			case watchRegressed:
				updated.Add(1)
				regressions.Add(1)
			case watchSkipped:
				skipped.Add(1)
			case watchFailed:
				failed.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	result := WatchResult{
		Selected:    len(pending),
		Updated:     int(updated.Load()),
		Skipped:     int(skipped.Load()),
		Failed:      int(failed.Load()),
		Regressions: int(regressions.Load()),
	}
	i.logger.Info("watched withdrawals",
		"selected", result.Selected,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"regressions", result.Regressions)
	return result, nil
}

type watchOutcome int

const (
	watchUpdated watchOutcome = iota
	watchRegressed
	watchSkipped
	watchFailed
)

func (i *Indexer) watchWithdrawal(ctx context.Context, w models.Withdrawal) watchOutcome {
	log := i.logger.With("hash", w.Hash)

	status, err := i.oracle.GetMessageStatus(ctx, common.HexToHash(w.Hash))
	if err != nil {
		log.Warn("failed to get message status", "error", err)
		return watchSkipped
	}

	text, err := types.MessageStatusText(int(status))
	if err != nil {
		log.Warn("skipping withdrawal", "error", err)
		return watchSkipped
	}

	outcome := watchUpdated
	if w.RecentStatus != nil {
		if prev, ok := types.ParseMessageStatus(*w.RecentStatus); ok && status < prev {
			// still stored below
			log.Warn("withdrawal stage moved backwards", "from", prev.String(), "to", text)
			i.metrics.StageRegressions.Inc()
			outcome = watchRegressed
		}
	}

	if err := i.store.UpdateWithdrawalRecentStatus(ctx, w.Hash, text); err != nil {
		log.Error("failed to update withdrawal recent status", "error", err)
		return watchFailed
	}

	i.metrics.StageObserved.WithLabelValues(text).Inc()
	log.Debug("updated withdrawal recent status", "recent_status", text)
	return outcome
}
