// Package contracts holds the ABI fragments of the bridge contracts the
// collector reads from. Only the events and views that are used are included.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Predeploy and sentinel addresses on L2.
var (
	L2ToL1MessagePasserAddress = common.HexToAddress("0x4200000000000000000000000000000000000016")
	LegacyERC20ETHAddress      = common.HexToAddress("0xDeadDeAddeAddEAddeadDEaDDEAdDeaDDeAD0000")
)

const StandardBridgeABI = `[
	{"anonymous":false,"type":"event","name":"ETHDepositInitiated","inputs":[
		{"indexed":true,"name":"from","type":"address"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"amount","type":"uint256"},
		{"indexed":false,"name":"extraData","type":"bytes"}]},
	{"anonymous":false,"type":"event","name":"ERC20DepositInitiated","inputs":[
		{"indexed":true,"name":"l1Token","type":"address"},
		{"indexed":true,"name":"l2Token","type":"address"},
		{"indexed":true,"name":"from","type":"address"},
		{"indexed":false,"name":"to","type":"address"},
		{"indexed":false,"name":"amount","type":"uint256"},
		{"indexed":false,"name":"extraData","type":"bytes"}]},
	{"anonymous":false,"type":"event","name":"WithdrawalInitiated","inputs":[
		{"indexed":true,"name":"l1Token","type":"address"},
		{"indexed":true,"name":"l2Token","type":"address"},
		{"indexed":true,"name":"from","type":"address"},
		{"indexed":false,"name":"to","type":"address"},
		{"indexed":false,"name":"amount","type":"uint256"},
		{"indexed":false,"name":"extraData","type":"bytes"}]}
]`

const ERC20ABI = `[
	{"constant":true,"type":"function","stateMutability":"view","name":"decimals","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"constant":true,"type":"function","stateMutability":"view","name":"symbol","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

// ERC20Bytes32ABI covers legacy tokens (MKR style) that return symbol as bytes32.
const ERC20Bytes32ABI = `[
	{"constant":true,"type":"function","stateMutability":"view","name":"symbol","inputs":[],"outputs":[{"name":"","type":"bytes32"}]}
]`

const OptimismPortalABI = `[
	{"type":"function","stateMutability":"view","name":"finalizedWithdrawals","inputs":[{"name":"","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","stateMutability":"view","name":"provenWithdrawals","inputs":[{"name":"","type":"bytes32"}],"outputs":[
		{"name":"outputRoot","type":"bytes32"},
		{"name":"timestamp","type":"uint128"},
		{"name":"l2OutputIndex","type":"uint128"}]}
]`

const L2OutputOracleABI = `[
	{"type":"function","stateMutability":"view","name":"latestBlockNumber","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","stateMutability":"view","name":"FINALIZATION_PERIOD_SECONDS","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const L2ToL1MessagePasserABI = `[
	{"anonymous":false,"type":"event","name":"MessagePassed","inputs":[
		{"indexed":true,"name":"nonce","type":"uint256"},
		{"indexed":true,"name":"sender","type":"address"},
		{"indexed":true,"name":"target","type":"address"},
		{"indexed":false,"name":"value","type":"uint256"},
		{"indexed":false,"name":"gasLimit","type":"uint256"},
		{"indexed":false,"name":"data","type":"bytes"},
		{"indexed":false,"name":"withdrawalHash","type":"bytes32"}]}
]`

var (
	StandardBridge      = mustParse(StandardBridgeABI)
	ERC20               = mustParse(ERC20ABI)
	ERC20Bytes32        = mustParse(ERC20Bytes32ABI)
	OptimismPortal      = mustParse(OptimismPortalABI)
	L2OutputOracle      = mustParse(L2OutputOracleABI)
	L2ToL1MessagePasser = mustParse(L2ToL1MessagePasserABI)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
