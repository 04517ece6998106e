package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type ProvenWithdrawal struct {
	OutputRoot    [32]byte
	Timestamp     *big.Int
	L2OutputIndex *big.Int
}

type OptimismPortal interface {
	FinalizedWithdrawals(ctx context.Context, withdrawalHash common.Hash) (bool, error)
	ProvenWithdrawals(ctx context.Context, withdrawalHash common.Hash) (ProvenWithdrawal, error)
	LatestBlockTime(ctx context.Context) (uint64, error)
}

var _ OptimismPortal = &Client{}

func (c *Client) FinalizedWithdrawals(ctx context.Context, withdrawalHash common.Hash) (bool, error) {
	out, err := c.call(ctx, c.optimismPortal, "finalizedWithdrawals", withdrawalHash)
	if err != nil {
		return false, err
	}
	finalized, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected finalizedWithdrawals output %T", out[0])
	}
	return finalized, nil
}

func (c *Client) ProvenWithdrawals(ctx context.Context, withdrawalHash common.Hash) (ProvenWithdrawal, error) {
	out, err := c.call(ctx, c.optimismPortal, "provenWithdrawals", withdrawalHash)
	if err != nil {
		return ProvenWithdrawal{}, err
	}
	if len(out) != 3 {
		return ProvenWithdrawal{}, fmt.Errorf("unexpected provenWithdrawals output length %d", len(out))
	}

	root, ok1 := out[0].([32]byte)
	ts, ok2 := out[1].(*big.Int)
	idx, ok3 := out[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return ProvenWithdrawal{}, fmt.Errorf("unexpected provenWithdrawals output types")
	}

	return ProvenWithdrawal{OutputRoot: root, Timestamp: ts, L2OutputIndex: idx}, nil
}
