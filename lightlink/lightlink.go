package lightlink

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

// Backend is the subset of an L2 node the client needs.
type Backend interface {
	bind.ContractCaller
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type Client struct {
	backend Backend
	chainId *big.Int
	logger  *slog.Logger
	Opts    *ClientOpts
}

type ClientOpts struct {
	Endpoint                   string
	L2StandardBridgeAddress    common.Address
	L2ToL1MessagePasserAddress common.Address
	Logger                     *slog.Logger
	Retry                      utils.RetryOpts
}

// NewClient returns a new LightLink (L2) client over HTTP.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client, err := ethclient.Dial(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LightLink: %w", err)
	}

	chainId, err := client.ChainID(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to get chainId: %w", err)
	}

	opts.Logger.Info("Connected to LightLink", "chainId", chainId)

	c := newClient(client, opts)
	c.chainId = chainId

	// Warn user if the contracts are not found at the given addresses.
	if ok, _ := utils.IsContract(client, c.Opts.L2StandardBridgeAddress); !ok {
		opts.Logger.Warn("contract not found for L2StandardBridge at given Address", "address", c.Opts.L2StandardBridgeAddress.Hex(), "endpoint", opts.Endpoint)
	}
	if ok, _ := utils.IsContract(client, c.Opts.L2ToL1MessagePasserAddress); !ok {
		opts.Logger.Warn("contract not found for L2ToL1MessagePasser at given Address", "address", c.Opts.L2ToL1MessagePasserAddress.Hex(), "endpoint", opts.Endpoint)
	}

	return c, nil
}

func newClient(backend Backend, opts ClientOpts) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = utils.DefaultRetryOpts
	}
	if opts.L2ToL1MessagePasserAddress == (common.Address{}) {
		opts.L2ToL1MessagePasserAddress = contracts.L2ToL1MessagePasserAddress
	}

	return &Client{
		backend: backend,
		logger:  opts.Logger,
		Opts:    &opts,
	}
}

// Caller exposes the node for read-only contract calls (token metadata).
func (c *Client) Caller() bind.ContractCaller {
	return c.backend
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return utils.FetchReceipt(ctx, c.backend, txHash, c.Opts.Retry)
}
