package types

import "fmt"

// MessageStatus represents the different states a cross-chain message can be in.
// The numeric value is the code returned by the message status oracle and the
// order of the constants is the order of the withdrawal lifecycle.
type MessageStatus int

const (
	// UnconfirmedL1ToL2Message - Message is an L1 to L2 message and has not been processed by the L2
	UnconfirmedL1ToL2Message MessageStatus = iota

	// FailedL1ToL2Message - Message is an L1 to L2 message and the transaction to execute the message failed
	FailedL1ToL2Message

	// StateRootNotPublished - Message is an L2 to L1 message and no state root has been published yet
	StateRootNotPublished

	// ReadyToProve - Message is ready to be proved on L1 to initiate the challenge period
	ReadyToProve

	// InChallengePeriod - Message is a proved L2 to L1 message and is undergoing the challenge period
	InChallengePeriod

	// ReadyForRelay - Message is ready to be relayed
	ReadyForRelay

	// Relayed - Message has been relayed
	Relayed
)

var messageStatusText = [...]string{
	UnconfirmedL1ToL2Message: "Unconfirmed L1 to L2 message",
	FailedL1ToL2Message:      "Failed L1 to L2 message",
	StateRootNotPublished:    "Waiting for state root",
	ReadyToProve:             "Ready to prove",
	InChallengePeriod:        "In challenge period",
	ReadyForRelay:            "Ready for relay",
	Relayed:                  "Relayed",
}

// RelayedStatus is the persisted text of the terminal stage.
var RelayedStatus = Relayed.String()

func (s MessageStatus) Valid() bool {
	return s >= 0 && int(s) < len(messageStatusText)
}

func (s MessageStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("MessageStatus(%d)", int(s))
	}
	return messageStatusText[s]
}

// MessageStatusText maps an oracle status code to its persisted text.
func MessageStatusText(code int) (string, error) {
	s := MessageStatus(code)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %d", ErrUnknownStatus, code)
	}
	return s.String(), nil
}

// ParseMessageStatus is the inverse of MessageStatusText.
func ParseMessageStatus(text string) (MessageStatus, bool) {
	for i, t := range messageStatusText {
		if t == text {
			return MessageStatus(i), true
		}
	}
	return 0, false
}

// Direction of a bridge transfer.
type Direction string

const (
	Deposit    Direction = "deposit"
	Withdrawal Direction = "withdrawal"
)

// Chain identifies which side of the bridge an address or transaction lives on.
type Chain string

const (
	Ethereum  Chain = "ethereum"
	LightLink Chain = "lightlink"
)

// Origin returns the chain a transfer in direction d is initiated on.
func (d Direction) Origin() Chain {
	if d == Withdrawal {
		return LightLink
	}
	return Ethereum
}
