package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/lightlink-network/ll-bridge-collector/api"
	"github.com/lightlink-network/ll-bridge-collector/blockscout"
	"github.com/lightlink-network/ll-bridge-collector/config"
	"github.com/lightlink-network/ll-bridge-collector/database"
	"github.com/lightlink-network/ll-bridge-collector/ethereum"
	"github.com/lightlink-network/ll-bridge-collector/indexer"
	"github.com/lightlink-network/ll-bridge-collector/lightlink"
	"github.com/lightlink-network/ll-bridge-collector/lock"
	"github.com/lightlink-network/ll-bridge-collector/messenger"
	"github.com/lightlink-network/ll-bridge-collector/metrics"
	"github.com/lightlink-network/ll-bridge-collector/tokens"
	"github.com/lightlink-network/ll-bridge-collector/types"
	"github.com/lightlink-network/ll-bridge-collector/utils"
)

// Version will be set at build time
var Version = "development"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// create a new logger
	Logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.LogLevel,
		TimeFormat: time.DateTime,
	}))
	slog.SetDefault(Logger)

	Logger.Info("Starting ll-bridge-collector ("+Version+")",
		"Go Version", runtime.Version(),
		"Operating System", runtime.GOOS,
		"Architecture", runtime.GOARCH)

	// Create context that will be canceled on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, Logger); err != nil {
		Logger.Error("collector stopped", "error", err)
		os.Exit(1)
	}
	Logger.Info("Shut down gracefully")
}

func run(ctx context.Context, cfg *config.Config, Logger *slog.Logger) error {
	retry := utils.RetryOpts{
		Attempts: cfg.RPCMaxRetries,
		Delay:    cfg.RPCRetryDelay,
		Timeout:  cfg.RPCTimeout,
	}

	eth, err := ethereum.NewClient(ethereum.ClientOpts{
		Endpoint:                cfg.L1RPCURL,
		L1StandardBridgeAddress: cfg.L1StandardBridgeAddress,
		OptimismPortalAddress:   cfg.OptimismPortalAddress,
		L2OutputOracleAddress:   cfg.L2OutputOracleAddress,
		Logger:                  Logger.With("component", "ethereum"),
		Retry:                   retry,
	})
	if err != nil {
		return fmt.Errorf("failed to create ethereum client: %w", err)
	}

	ll, err := lightlink.NewClient(lightlink.ClientOpts{
		Endpoint:                   cfg.L2RPCURL,
		L2StandardBridgeAddress:    cfg.L2StandardBridgeAddress,
		L2ToL1MessagePasserAddress: cfg.L2ToL1MessagePasserAddress,
		Logger:                     Logger.With("component", "lightlink"),
		Retry:                      retry,
	})
	if err != nil {
		return fmt.Errorf("failed to create lightlink client: %w", err)
	}

	source, err := blockscout.NewClient(blockscout.ClientOpts{
		BaseURL:  cfg.IndexerAPIURL,
		Timeout:  cfg.RPCTimeout,
		MaxPages: cfg.IndexerMaxPages,
		Logger:   Logger.With("component", "blockscout"),
	})
	if err != nil {
		return fmt.Errorf("failed to create indexer api client: %w", err)
	}

	store, err := database.Open(ctx, database.DatabaseOpts{
		Driver:       cfg.DatabaseDriver,
		URI:          cfg.DatabaseURI,
		DatabaseName: cfg.DatabaseName,
		Logger:       Logger.With("component", "database"),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			Logger.Warn("failed to close database", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	resolver := tokens.NewResolver(tokens.ResolverOpts{
		Callers: map[types.Chain]bind.ContractCaller{
			types.Ethereum:  eth.Caller(),
			types.LightLink: ll.Caller(),
		},
		NativeSymbol: cfg.NativeSymbol,
		Logger:       Logger.With("component", "tokens"),
	})

	var oracle indexer.StatusOracle
	if cfg.EnableWatcher {
		oracle = messenger.NewMessenger(messenger.MessengerOpts{
			L1:     eth,
			L2:     ll,
			Logger: Logger.With("component", "messenger"),
		})
	}

	idx, err := indexer.NewIndexer(indexer.IndexerOpts{
		Source:                  source,
		Ethereum:                eth,
		Lightlink:               ll,
		Tokens:                  resolver,
		Oracle:                  oracle,
		Store:                   store,
		Metrics:                 m,
		Logger:                  Logger.With("component", "indexer"),
		Concurrency:             cfg.Concurrency,
		L1StandardBridgeAddress: cfg.L1StandardBridgeAddress,
		L2StandardBridgeAddress: cfg.L2StandardBridgeAddress,
	})
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}

	var locker lock.Locker
	if cfg.RedisURL != "" {
		rl, err := lock.NewRedisLockFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rl.Close()
		locker = rl
	}

	scheduler, err := indexer.NewScheduler(indexer.SchedulerOpts{
		Tasks: []indexer.Task{
			{Name: "deposits", Enabled: cfg.EnableDeposits, Run: func(ctx context.Context) error {
				_, err := idx.ReconcileDeposits(ctx)
				return err
			}},
			{Name: "withdrawals", Enabled: cfg.EnableWithdrawals, Run: func(ctx context.Context) error {
				_, err := idx.ReconcileWithdrawals(ctx)
				return err
			}},
			{Name: "watcher", Enabled: cfg.EnableWatcher, Run: func(ctx context.Context) error {
				_, err := idx.WatchWithdrawals(ctx)
				return err
			}},
		},
		Interval:     cfg.Interval,
		InitialDelay: cfg.Interval,
		Cooldown:     cfg.Cooldown,
		CycleTimeout: cfg.CycleTimeout,
		Locker:       locker,
		Metrics:      m,
		Logger:       Logger.With("component", "scheduler"),
	})
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(ctx)
	})

	if cfg.APIEnabled {
		server, err := api.NewServer(api.ServerOpts{
			Logger:   Logger.With("component", "api-server"),
			Store:    store,
			Port:     cfg.APIPort,
			Gatherer: registry,
		})
		if err != nil {
			return fmt.Errorf("failed to create api server: %w", err)
		}
		g.Go(func() error {
			return server.StartServer(ctx)
		})
	}

	return g.Wait()
}
