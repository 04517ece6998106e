package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"github.com/lightlink-network/ll-bridge-collector/blockscout"
	"github.com/lightlink-network/ll-bridge-collector/database/models"
	"github.com/lightlink-network/ll-bridge-collector/metrics"
	"github.com/lightlink-network/ll-bridge-collector/tokens"
	"github.com/lightlink-network/ll-bridge-collector/types"
)

// ErrCycleFatal marks a failure that aborted a whole cycle before any item was
// processed.
var ErrCycleFatal = errors.New("cycle aborted")

type Source interface {
	Deposits(ctx context.Context) ([]blockscout.Summary, error)
	Withdrawals(ctx context.Context) ([]blockscout.Summary, error)
}

type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

type TokenResolver interface {
	Resolve(ctx context.Context, chain types.Chain, token common.Address) (tokens.Metadata, error)
	Native() tokens.Metadata
}

type StatusOracle interface {
	GetMessageStatus(ctx context.Context, txHash common.Hash) (types.MessageStatus, error)
}

type Store interface {
	UpsertDeposit(ctx context.Context, deposit models.Deposit) error
	UpsertWithdrawal(ctx context.Context, withdrawal models.Withdrawal) error
	GetPendingWithdrawals(ctx context.Context) ([]models.Withdrawal, error)
	UpdateWithdrawalRecentStatus(ctx context.Context, hash string, status string) error
}

type IndexerOpts struct {
	Source      Source
	Ethereum    ReceiptFetcher
	Lightlink   ReceiptFetcher
	Tokens      TokenResolver
	Oracle      StatusOracle
	Store       Store
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Concurrency int
	// Optional emitter filters for the bridge events.
	L1StandardBridgeAddress common.Address
	L2StandardBridgeAddress common.Address
}

type Indexer struct {
	source      Source
	receipts    map[types.Chain]ReceiptFetcher
	bridges     map[types.Direction]common.Address
	tokens      TokenResolver
	oracle      StatusOracle
	store       Store
	metrics     *metrics.Metrics
	logger      *slog.Logger
	concurrency int
}

func NewIndexer(opts IndexerOpts) (*Indexer, error) {
	if opts.Source == nil || opts.Ethereum == nil || opts.Lightlink == nil || opts.Tokens == nil || opts.Store == nil {
		return nil, fmt.Errorf("indexer requires a source, both chain clients, a token resolver and a store")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	return &Indexer{
		source: opts.Source,
		receipts: map[types.Chain]ReceiptFetcher{
			types.Ethereum:  opts.Ethereum,
			types.LightLink: opts.Lightlink,
		},
		bridges: map[types.Direction]common.Address{
			types.Deposit:    opts.L1StandardBridgeAddress,
			types.Withdrawal: opts.L2StandardBridgeAddress,
		},
		tokens:      opts.Tokens,
		oracle:      opts.Oracle,
		store:       opts.Store,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		concurrency: opts.Concurrency,
	}, nil
}

// CycleResult counts what happened to the items of one reconciliation pass.
type CycleResult struct {
	Fetched  int
	Upserted int
	Skipped  int
	Failed   int
}

type cycleCounters struct {
	upserted, skipped, failed atomic.Int64
}

func (c *cycleCounters) result(fetched int) CycleResult {
	return CycleResult{
		Fetched:  fetched,
		Upserted: int(c.upserted.Load()),
		Skipped:  int(c.skipped.Load()),
		Failed:   int(c.failed.Load()),
	}
}

// ReconcileDeposits fetches the indexer's deposits and upserts a canonical
// record for each one whose receipt carries a deposit event.
func (i *Indexer) ReconcileDeposits(ctx context.Context) (CycleResult, error) {
	summaries, err := i.source.Deposits(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("%w: failed to fetch deposits: %w", ErrCycleFatal, err)
	}
	return i.reconcile(ctx, types.Deposit, summaries), nil
}

// ReconcileWithdrawals fetches the indexer's withdrawals and upserts a
// canonical record for each one whose receipt carries a withdrawal event.
func (i *Indexer) ReconcileWithdrawals(ctx context.Context) (CycleResult, error) {
	summaries, err := i.source.Withdrawals(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("%w: failed to fetch withdrawals: %w", ErrCycleFatal, err)
	}
	return i.reconcile(ctx, types.Withdrawal, summaries), nil
}

func (i *Indexer) reconcile(ctx context.Context, dir types.Direction, summaries []blockscout.Summary) CycleResult {
	var counters cycleCounters

	g := new(errgroup.Group)
	g.SetLimit(i.concurrency)

	for _, summary := range summaries {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			i.reconcileItem(ctx, dir, summary, &counters)
			return nil
		})
	}
	g.Wait()

	result := counters.result(len(summaries))
	i.logger.Info("reconciled "+string(dir)+"s",
		"fetched", result.Fetched,
		"upserted", result.Upserted,
		"skipped", result.Skipped,
		"failed", result.Failed)
	return result
}

func (i *Indexer) reconcileItem(ctx context.Context, dir types.Direction, summary blockscout.Summary, counters *cycleCounters) {
	log := i.logger.With("direction", dir, "hash", summary.Hash.Hex())

	skip := func(reason string, err error) {
		counters.skipped.Add(1)
		i.metrics.ItemsSkipped.WithLabelValues(string(dir), reason).Inc()
		log.Warn("skipping item", "reason", reason, "error", err)
	}

	chain := dir.Origin()
	receipt, err := i.receipts[chain].TransactionReceipt(ctx, summary.Hash)
	if err != nil {
		if errors.Is(err, types.ErrReceiptUnavailable) {
			skip("receipt_unavailable", err)
		} else {
			skip("receipt_error", err)
		}
		return
	}

	event, ok := DecodeBridgeEvent(receipt.Logs, dir, DecodeOpts{Bridge: i.bridges[dir]})
	if !ok {
		skip("no_bridge_event", nil)
		return
	}

	md := i.tokens.Native()
	if event.Kind == Token {
		md, err = i.tokens.Resolve(ctx, chain, event.Token)
		if err != nil {
			skip("metadata_unavailable", err)
			return
		}
	}

	switch dir {
	case types.Deposit:
		err = i.store.UpsertDeposit(ctx, newDeposit(summary, event, md))
	case types.Withdrawal:
		err = i.store.UpsertWithdrawal(ctx, newWithdrawal(summary, event, md))
	}
	if err != nil {
		counters.failed.Add(1)
		i.metrics.UpsertFailures.WithLabelValues(string(dir)).Inc()
		log.Error("failed to upsert record", "error", err)
		return
	}

	counters.upserted.Add(1)
	i.metrics.RecordsUpserted.WithLabelValues(string(dir)).Inc()
	log.Debug("upserted record", "kind", event.Kind, "token", event.Token.Hex(), "amount", event.Amount.String())
}

func newDeposit(summary blockscout.Summary, event *BridgeEvent, md tokens.Metadata) models.Deposit {
	return models.Deposit{
		Hash:          summary.Hash.Hex(),
		Amount:        event.Amount.String(),
		TokenAddress:  event.Token.Hex(),
		TokenDecimals: md.Decimals,
		TokenSymbol:   md.Symbol,
		Address:       event.Recipient.Hex(),
		// a deposit the indexer reports has been executed on L2
		Status: types.RelayedStatus,
	}
}

func newWithdrawal(summary blockscout.Summary, event *BridgeEvent, md tokens.Metadata) models.Withdrawal {
	w := models.Withdrawal{
		Hash:          summary.Hash.Hex(),
		Amount:        event.Amount.String(),
		TokenAddress:  event.Token.Hex(),
		TokenDecimals: md.Decimals,
		TokenSymbol:   md.Symbol,
		Address:       event.Recipient.Hex(),
		Status:        summary.Status,
	}
	if summary.CounterpartHash != nil {
		l1 := summary.CounterpartHash.Hex()
		w.L1Hash = &l1
	}
	return w
}
