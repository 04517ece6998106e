package ethereum

import (
	"context"
	"fmt"
	"math/big"
)

type L2OutputOracle interface {
	LatestOutputBlockNumber(ctx context.Context) (*big.Int, error)
	FinalizationPeriodSeconds(ctx context.Context) (*big.Int, error)
}

var _ L2OutputOracle = &Client{}

// LatestOutputBlockNumber is the highest L2 block covered by a published state root.
func (c *Client) LatestOutputBlockNumber(ctx context.Context) (*big.Int, error) {
	return c.callUint(ctx, "latestBlockNumber")
}

func (c *Client) FinalizationPeriodSeconds(ctx context.Context) (*big.Int, error) {
	return c.callUint(ctx, "FINALIZATION_PERIOD_SECONDS")
}

func (c *Client) callUint(ctx context.Context, method string) (*big.Int, error) {
	out, err := c.call(ctx, c.l2OutputOracle, method)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s output %T", method, out[0])
	}
	return v, nil
}
