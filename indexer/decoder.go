package indexer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/lightlink-network/ll-bridge-collector/contracts"
	"github.com/lightlink-network/ll-bridge-collector/types"
)

var (
	ETHDepositInitiatedEvent   = contracts.StandardBridge.Events["ETHDepositInitiated"]
	ERC20DepositInitiatedEvent = contracts.StandardBridge.Events["ERC20DepositInitiated"]
	WithdrawalInitiatedEvent   = contracts.StandardBridge.Events["WithdrawalInitiated"]
)

var bridgeEvents = map[types.Direction][]abi.Event{
	types.Deposit:    {ETHDepositInitiatedEvent, ERC20DepositInitiatedEvent},
	types.Withdrawal: {WithdrawalInitiatedEvent},
}

type AssetKind string

const (
	Native AssetKind = "native"
	Token  AssetKind = "token"
)

// BridgeEvent is the transfer described by a bridge initiation log.
type BridgeEvent struct {
	Kind      AssetKind
	Direction types.Direction
	// Token is the token on the origin chain: l1Token for deposits, l2Token
	// for withdrawals. Zero for native deposits.
	Token     common.Address
	L1Token   common.Address
	L2Token   common.Address
	Sender    common.Address
	Recipient common.Address
	Amount    *big.Int
	LogIndex  uint
}

type DecodeOpts struct {
	// Bridge, when set, ignores logs emitted by any other contract.
	Bridge common.Address
}

// DecodeBridgeEvent returns the first log in logs that decodes as a bridge
// initiation event of direction dir. Logs with a known topic that fail to
// decode are skipped.
func DecodeBridgeEvent(logs []*gethtypes.Log, dir types.Direction, opts DecodeOpts) (*BridgeEvent, bool) {
	events := bridgeEvents[dir]

	for _, log := range logs {
		if log == nil || len(log.Topics) == 0 {
			continue
		}
		if opts.Bridge != (common.Address{}) && log.Address != opts.Bridge {
			continue
		}

		for _, event := range events {
			if log.Topics[0] != event.ID {
				continue
			}
			if ev, ok := decodeLog(log, event, dir); ok {
				return ev, true
			}
		}
	}

	return nil, false
}

func decodeLog(log *gethtypes.Log, event abi.Event, dir types.Direction) (*BridgeEvent, bool) {
	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(log.Topics)-1 != len(indexed) {
		return nil, false
	}

	values := map[string]interface{}{}
	if err := event.Inputs.UnpackIntoMap(values, log.Data); err != nil {
		return nil, false
	}
	if err := abi.ParseTopicsIntoMap(values, indexed, log.Topics[1:]); err != nil {
		return nil, false
	}

	amount, ok := values["amount"].(*big.Int)
	if !ok {
		return nil, false
	}
	from, ok1 := values["from"].(common.Address)
	to, ok2 := values["to"].(common.Address)
	if !ok1 || !ok2 {
		return nil, false
	}

	ev := &BridgeEvent{
		Direction: dir,
		Sender:    from,
		Recipient: to,
		Amount:    amount,
		LogIndex:  log.Index,
	}

	if event.ID == ETHDepositInitiatedEvent.ID {
		ev.Kind = Native
		return ev, true
	}

	l1Token, ok1 := values["l1Token"].(common.Address)
	l2Token, ok2 := values["l2Token"].(common.Address)
	if !ok1 || !ok2 {
		return nil, false
	}
	ev.L1Token = l1Token
	ev.L2Token = l2Token

	switch dir {
	case types.Deposit:
		ev.Token = l1Token
		ev.Kind = Token
		if l1Token == (common.Address{}) {
			ev.Kind = Native
		}
	case types.Withdrawal:
		ev.Token = l2Token
		ev.Kind = Token
		if l1Token == (common.Address{}) || l2Token == contracts.LegacyERC20ETHAddress {
			ev.Kind = Native
		}
	}

	return ev, true
}
