// Package config reads the collector settings from the environment, after
// loading a .env file when one is present.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

type Config struct {
	L1RPCURL string
	L2RPCURL string

	IndexerAPIURL   string
	IndexerMaxPages int

	L1StandardBridgeAddress    common.Address
	L2StandardBridgeAddress    common.Address
	OptimismPortalAddress      common.Address
	L2OutputOracleAddress      common.Address
	L2ToL1MessagePasserAddress common.Address
	NativeSymbol               string

	DatabaseDriver string
	DatabaseURI    string
	DatabaseName   string
	RedisURL       string

	EnableDeposits    bool
	EnableWithdrawals bool
	EnableWatcher     bool
	Interval          time.Duration
	Cooldown          time.Duration
	Concurrency       int
	CycleTimeout      time.Duration

	RPCTimeout    time.Duration
	RPCMaxRetries int
	RPCRetryDelay time.Duration

	APIEnabled bool
	APIPort    string

	LogLevel slog.Level
}

// Load reads .env (if present) and then the environment. All invalid or
// missing values are reported together.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		L1RPCURL:        p.required("L1_RPC_URL"),
		L2RPCURL:        p.required("L2_RPC_URL"),
		IndexerAPIURL:   p.required("INDEXER_API_URL"),
		IndexerMaxPages: p.int("INDEXER_MAX_PAGES", 1),

		L1StandardBridgeAddress:    p.address("L1_STANDARD_BRIDGE_ADDRESS"),
		L2StandardBridgeAddress:    p.address("L2_STANDARD_BRIDGE_ADDRESS"),
		OptimismPortalAddress:      p.address("OPTIMISM_PORTAL_ADDRESS"),
		L2OutputOracleAddress:      p.address("L2_OUTPUT_ORACLE_ADDRESS"),
		L2ToL1MessagePasserAddress: p.address("L2_TO_L1_MESSAGE_PASSER_ADDRESS"),
		NativeSymbol:               p.string("NATIVE_SYMBOL", "ETH"),

		DatabaseDriver: p.string("DATABASE_DRIVER", "mongo"),
		DatabaseURI:    p.required("DATABASE_URI"),
		DatabaseName:   p.string("DATABASE_NAME", "ll-bridge"),
		RedisURL:       p.string("REDIS_URL", ""),

		EnableDeposits:    p.bool("DATA_COLLECTOR_ENABLE_DEPOSITS", true),
		EnableWithdrawals: p.bool("DATA_COLLECTOR_ENABLE_WITHDRAWALS", true),
		EnableWatcher:     p.bool("DATA_COLLECTOR_ENABLE_WATCHER", true),
		Interval:          p.duration("DATA_COLLECTOR_INTERVAL", time.Minute),
		Cooldown:          p.duration("DATA_COLLECTOR_COOLDOWN", time.Minute),
		Concurrency:       p.int("DATA_COLLECTOR_CONCURRENCY", 8),
		CycleTimeout:      p.duration("DATA_COLLECTOR_CYCLE_TIMEOUT", 10*time.Minute),

		RPCTimeout:    p.duration("RPC_TIMEOUT", 10*time.Second),
		RPCMaxRetries: p.int("RPC_MAX_RETRIES", 5),
		RPCRetryDelay: p.duration("RPC_RETRY_DELAY", 2*time.Second),

		APIEnabled: p.bool("API_ENABLED", true),
		APIPort:    p.string("API_PORT", "8080"),

		LogLevel: p.level("LOG_LEVEL", slog.LevelInfo),
	}

	if cfg.EnableWatcher {
		if cfg.OptimismPortalAddress == (common.Address{}) {
			p.fail("OPTIMISM_PORTAL_ADDRESS is required when the watcher is enabled")
		}
		if cfg.L2OutputOracleAddress == (common.Address{}) {
			p.fail("L2_OUTPUT_ORACLE_ADDRESS is required when the watcher is enabled")
		}
	}
	if cfg.IndexerMaxPages < 1 {
		p.fail("INDEXER_MAX_PAGES must be at least 1")
	}
	if cfg.Concurrency < 1 {
		p.fail("DATA_COLLECTOR_CONCURRENCY must be at least 1")
	}
	if cfg.Interval <= 0 {
		p.fail("DATA_COLLECTOR_INTERVAL must be positive")
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

type parser struct {
	errs []error
}

func (p *parser) fail(format string, args ...interface{}) {
	p.errs = append(p.errs, fmt.Errorf(format, args...))
}

func (p *parser) string(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) required(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		p.fail("%s is required", key)
	}
	return v
}

func (p *parser) int(key string, def int) int {
	v := p.string(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail("failed to parse %s: %w", key, err)
		return def
	}
	return n
}

func (p *parser) bool(key string, def bool) bool {
	v := p.string(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail("failed to parse %s: %w", key, err)
		return def
	}
	return b
}

// duration accepts Go durations ("90s") or plain milliseconds ("90000").
func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.string(key, "")
	if v == "" {
		return def
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail("failed to parse %s: %w", key, err)
		return def
	}
	return d
}

func (p *parser) address(key string) common.Address {
	v := p.string(key, "")
	if v == "" {
		return common.Address{}
	}
	if !common.IsHexAddress(v) {
		p.fail("%s is not a valid address: %q", key, v)
		return common.Address{}
	}
	return common.HexToAddress(v)
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v := p.string(key, "")
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		p.fail("failed to parse %s: %w", key, err)
		return def
	}
	return l
}
