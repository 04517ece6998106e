package ethereum

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/lightlink-network/ll-bridge-collector/contracts"
	"github.com/lightlink-network/ll-bridge-collector/utils"
)

// Backend is the subset of an L1 node the client needs. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractCaller
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

type Client struct {
	backend        Backend
	chainId        *big.Int
	optimismPortal *bind.BoundContract
	l2OutputOracle *bind.BoundContract
	logger         *slog.Logger
	Opts           *ClientOpts
}

type ClientOpts struct {
	Endpoint                string
	L1StandardBridgeAddress common.Address
	OptimismPortalAddress   common.Address
	L2OutputOracleAddress   common.Address
	Logger                  *slog.Logger
	Retry                   utils.RetryOpts
}

// NewClient returns a new Ethereum (L1) client over HTTP.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client, err := ethclient.Dial(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum: %w", err)
	}

	chainId, err := client.ChainID(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to get chainId: %w", err)
	}

	opts.Logger.Info("Connected to Ethereum", "chainId", chainId)

	// Warn user if the contracts are not found at the given addresses.
	if ok, _ := utils.IsContract(client, opts.L1StandardBridgeAddress); !ok {
		opts.Logger.Warn("contract not found for L1StandardBridge at given Address", "address", opts.L1StandardBridgeAddress.Hex(), "endpoint", opts.Endpoint)
	}
	if ok, _ := utils.IsContract(client, opts.OptimismPortalAddress); !ok {
		opts.Logger.Warn("contract not found for OptimismPortal at given Address", "address", opts.OptimismPortalAddress.Hex(), "endpoint", opts.Endpoint)
	}
	if ok, _ := utils.IsContract(client, opts.L2OutputOracleAddress); !ok {
		opts.Logger.Warn("contract not found for L2OutputOracle at given Address", "address", opts.L2OutputOracleAddress.Hex(), "endpoint", opts.Endpoint)
	}

	c := newClient(client, opts)
	c.chainId = chainId
	return c, nil
}

func newClient(backend Backend, opts ClientOpts) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = utils.DefaultRetryOpts
	}

	return &Client{
		backend:        backend,
		optimismPortal: bind.NewBoundContract(opts.OptimismPortalAddress, contracts.OptimismPortal, backend, nil, nil),
		l2OutputOracle: bind.NewBoundContract(opts.L2OutputOracleAddress, contracts.L2OutputOracle, backend, nil, nil),
		logger:         opts.Logger,
		Opts:           &opts,
	}
}

// Caller exposes the node for read-only contract calls (token metadata).
func (c *Client) Caller() bind.ContractCaller {
	return c.backend
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return utils.FetchReceipt(ctx, c.backend, txHash, c.Opts.Retry)
}

// LatestBlockTime returns the timestamp of the current L1 head.
func (c *Client) LatestBlockTime(ctx context.Context) (uint64, error) {
	var header *types.Header
	err := utils.Retry(ctx, c.Opts.Retry, func(ctx context.Context) error {
		h, err := c.backend.HeaderByNumber(ctx, nil)
		if err != nil {
			return err
		}
		header = h
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get latest header: %w", err)
	}
	return header.Time, nil
}

// call performs a read-only contract call with the client's retry policy.
func (c *Client) call(ctx context.Context, contract *bind.BoundContract, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	err := utils.Retry(ctx, c.Opts.Retry, func(ctx context.Context) error {
		out = nil
		return contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	return out, nil
}
