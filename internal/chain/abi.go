package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Read-only fragments of the market and position token contracts. Only the
// view functions the reader calls are declared.
const (
	marketABIJSON = `[
		{"type":"function","name":"optionCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"getOption","stateMutability":"view","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"name","type":"string"},{"name":"totalStaked","type":"uint256"}]},
		{"type":"function","name":"totalStaked","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"isResolved","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
		{"type":"function","name":"winningOptionIndex","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"positionContract","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
	]`

	positionsABIJSON = `[
		{"type":"function","name":"positionOption","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
	]`
)

var (
	marketABI    = mustParseABI(marketABIJSON)
	positionsABI = mustParseABI(positionsABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("chain: invalid embedded abi: " + err.Error())
	}
	return parsed
}
