package domain

import "math/big"

// OptionState holds the on-chain state of a single market option.
type OptionState struct {
	Index  uint64
	Name   string
	Staked *big.Int
}

// MarketSnapshot is a point-in-time read of a prediction market contract.
// Stake amounts are arbitrary-precision integers in the token's smallest
// unit; they are never converted to floating point.
type MarketSnapshot struct {
	Address          string
	Options          []OptionState
	TotalStaked      *big.Int
	Resolved         bool
	WinningOption    *big.Int // nil while unresolved
	PositionContract string
}

// OptionByIndex returns the option state for the given index, or false when
// the index is outside the market's option set.
func (m MarketSnapshot) OptionByIndex(idx *big.Int) (OptionState, bool) {
	if idx == nil || !idx.IsUint64() {
		return OptionState{}, false
	}
	i := idx.Uint64()
	if i >= uint64(len(m.Options)) {
		return OptionState{}, false
	}
	return m.Options[i], true
}

// PositionView combines a market snapshot with the option a position token
// backs. It is derived from live chain state on every request and never
// stored.
type PositionView struct {
	Market      MarketSnapshot
	TokenID     *big.Int
	OptionIndex *big.Int
}
