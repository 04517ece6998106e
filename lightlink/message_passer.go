package lightlink

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/ll-bridge-collector/contracts"
	"github.com/lightlink-network/ll-bridge-collector/types"
)

var messagePassedEvent = contracts.L2ToL1MessagePasser.Events["MessagePassed"]

// Withdrawal identifies an L2 to L1 message by its hash and the L2 block it was
// passed in.
type Withdrawal struct {
	Hash        common.Hash
	BlockNumber uint64
}

type MessagePasser interface {
	WithdrawalHash(ctx context.Context, txHash common.Hash) (Withdrawal, error)
}

var _ MessagePasser = &Client{}

// WithdrawalHash reads the withdrawal hash from the MessagePassed event in the
// receipt of the withdrawal initiating transaction.
func (c *Client) WithdrawalHash(ctx context.Context, txHash common.Hash) (Withdrawal, error) {
	receipt, err := c.TransactionReceipt(ctx, txHash)
	if err != nil {
		return Withdrawal{}, err
	}

	// filter logs for log.address === message passer address
	for _, log := range receipt.Logs {
		if log.Address != c.Opts.L2ToL1MessagePasserAddress || len(log.Topics) == 0 || log.Topics[0] != messagePassedEvent.ID {
			continue
		}

		values, err := messagePassedEvent.Inputs.Unpack(log.Data)
		if err != nil {
			return Withdrawal{}, fmt.Errorf("failed to unpack MessagePassed: %w", err)
		}
		// non-indexed: value, gasLimit, data, withdrawalHash
		hash, ok := values[len(values)-1].([32]byte)
		if !ok {
			return Withdrawal{}, fmt.Errorf("unexpected withdrawalHash type %T", values[len(values)-1])
		}

		var block uint64
		if receipt.BlockNumber != nil {
			block = receipt.BlockNumber.Uint64()
		}
		return Withdrawal{Hash: common.Hash(hash), BlockNumber: block}, nil
	}

	return Withdrawal{}, fmt.Errorf("%w: %s", types.ErrNoWithdrawal, txHash.Hex())
}
