package tokens

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"

	"github.com/lightlink-network/ll-bridge-collector/contracts"
	"github.com/lightlink-network/ll-bridge-collector/types"
	"github.com/lightlink-network/ll-bridge-collector/utils"
)

const NativeDecimals = 18

type Metadata struct {
	Decimals uint8
	Symbol   string
}

type ResolverOpts struct {
	// Callers maps each chain to a node used for the ERC20 view calls.
	Callers      map[types.Chain]bind.ContractCaller
	NativeSymbol string
	Retry        utils.RetryOpts
	Logger       *slog.Logger
}

// Resolver reads and caches ERC20 decimals and symbol per (chain, token).
// Metadata is immutable on chain so entries never expire.
type Resolver struct {
	callers map[types.Chain]bind.ContractCaller
	native  Metadata
	retry   utils.RetryOpts
	logger  *slog.Logger

	mu    sync.RWMutex
	cache map[string]Metadata
	group singleflight.Group
}

func NewResolver(opts ResolverOpts) *Resolver {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NativeSymbol == "" {
		opts.NativeSymbol = "ETH"
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = utils.RetryOpts{Attempts: 3, Delay: time.Second, Timeout: 10 * time.Second}
	}

	return &Resolver{
		callers: opts.Callers,
		native:  Metadata{Decimals: NativeDecimals, Symbol: opts.NativeSymbol},
		retry:   opts.Retry,
		logger:  opts.Logger,
		cache:   map[string]Metadata{},
	}
}

// Native returns the metadata of the chain's native asset.
func (r *Resolver) Native() Metadata {
	return r.native
}

// Resolve returns the metadata of token on chain. The zero address resolves to
// the native asset without any call.
func (r *Resolver) Resolve(ctx context.Context, chain types.Chain, token common.Address) (Metadata, error) {
	if token == (common.Address{}) {
		return r.native, nil
	}

	key := string(chain) + ":" + token.Hex()

	r.mu.RLock()
	md, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return md, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		// a concurrent flight may have filled the cache since the check above
		r.mu.RLock()
		md, ok := r.cache[key]
		r.mu.RUnlock()
		if ok {
			return md, nil
		}

		md, err := r.fetch(ctx, chain, token)
		if err != nil {
			return Metadata{}, err
		}

		r.mu.Lock()
		r.cache[key] = md
		r.mu.Unlock()
		return md, nil
	})
	if err != nil {
		return Metadata{}, err
	}
	return v.(Metadata), nil
}

func (r *Resolver) fetch(ctx context.Context, chain types.Chain, token common.Address) (Metadata, error) {
	caller, ok := r.callers[chain]
	if !ok {
		return Metadata{}, fmt.Errorf("%w: no caller for chain %s", types.ErrMetadataUnavailable, chain)
	}

	erc20 := bind.NewBoundContract(token, contracts.ERC20, caller, nil, nil)

	var md Metadata
	err := utils.Retry(ctx, r.retry, func(ctx context.Context) error {
		opts := &bind.CallOpts{Context: ctx}

		var out []interface{}
		if err := erc20.Call(opts, &out, "decimals"); err != nil {
			return fmt.Errorf("failed to get decimals: %w", err)
		}
		decimals, ok := out[0].(uint8)
		if !ok {
			return utils.Permanent(fmt.Errorf("unexpected decimals output %T", out[0]))
		}

		symbol, err := r.symbol(opts, token, caller, erc20)
		if err != nil {
			return err
		}

		md = Metadata{Decimals: decimals, Symbol: symbol}
		return nil
	})
	if err != nil {
		r.logger.Warn("failed to resolve token metadata", "chain", chain, "token", token.Hex(), "error", err)
		return Metadata{}, fmt.Errorf("%w: %s on %s: %v", types.ErrMetadataUnavailable, token.Hex(), chain, err)
	}

	return md, nil
}

func (r *Resolver) symbol(opts *bind.CallOpts, token common.Address, caller bind.ContractCaller, erc20 *bind.BoundContract) (string, error) {
	var out []interface{}
	err := erc20.Call(opts, &out, "symbol")
	if err == nil {
		if s, ok := out[0].(string); ok {
			return s, nil
		}
	}

	// legacy tokens return bytes32
	legacy := bind.NewBoundContract(token, contracts.ERC20Bytes32, caller, nil, nil)
	out = nil
	if lerr := legacy.Call(opts, &out, "symbol"); lerr != nil {
		if err == nil {
			err = lerr
		}
		return "", fmt.Errorf("failed to get symbol: %w", err)
	}
	raw, ok := out[0].([32]byte)
	if !ok {
		return "", fmt.Errorf("unexpected symbol output %T", out[0])
	}
	return string(bytes.TrimRight(raw[:], "\x00")), nil
}
