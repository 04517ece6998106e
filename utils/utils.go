package utils

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/lightlink-network/ll-bridge-collector/types"
)

type CodeReader interface {
	CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error)
}

// IsContract reports whether code is deployed at addr.
func IsContract(client CodeReader, addr common.Address) (bool, error) {
	code, err := client.CodeAt(context.Background(), addr, nil)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

type RetryOpts struct {
	Attempts int
	Delay    time.Duration
	// Timeout bounds each attempt. Zero means no per-attempt deadline.
	Timeout time.Duration
}

var DefaultRetryOpts = RetryOpts{
	Attempts: 5,
	Delay:    2 * time.Second,
	Timeout:  10 * time.Second,
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error, the attempts are
// exhausted or ctx is done.
func Retry(ctx context.Context, opts RetryOpts, fn func(ctx context.Context) error) error {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < opts.Attempts; attempt++ {
		err := callWithTimeout(ctx, opts.Timeout, fn)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if attempt < opts.Attempts-1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			case <-time.After(opts.Delay):
			}
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", opts.Attempts, lastErr)
}

func callWithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// FetchReceipt gets the receipt of txHash, retrying transport errors. A hash the
// node does not know returns types.ErrReceiptUnavailable without retrying.
func FetchReceipt(ctx context.Context, client ReceiptReader, txHash common.Hash, opts RetryOpts) (*gethtypes.Receipt, error) {
	var receipt *gethtypes.Receipt
	err := Retry(ctx, opts, func(ctx context.Context) error {
		r, err := client.TransactionReceipt(ctx, txHash)
		if errors.Is(err, ethereum.NotFound) || (err == nil && r == nil) {
			return Permanent(types.ErrReceiptUnavailable)
		}
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrReceiptUnavailable) {
			return nil, fmt.Errorf("%w: %s", types.ErrReceiptUnavailable, txHash.Hex())
		}
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	return receipt, nil
}
