package types

import "errors"

var (
	// ErrReceiptUnavailable is returned when a transaction receipt is not known to the node.
	ErrReceiptUnavailable = errors.New("transaction receipt unavailable")

	// ErrMetadataUnavailable is returned when token decimals or symbol cannot be read.
	ErrMetadataUnavailable = errors.New("token metadata unavailable")

	// ErrUnknownStatus is returned for oracle status codes outside the stage table.
	ErrUnknownStatus = errors.New("unknown message status")

	// ErrNoWithdrawal is returned when an L2 transaction did not pass a message to L1.
	ErrNoWithdrawal = errors.New("no withdrawal message in transaction")
)
