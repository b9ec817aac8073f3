// Package odds derives display odds and outcome state for a prediction
// market position from on-chain stake values.
//
// Stake amounts are arbitrary-precision integers in the staking token's
// smallest unit and stay that way through the ratio computation; conversion
// to a two-decimal display percentage happens only at the formatting
// boundary. Raw stakes are never passed through float64.
package odds

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// State is the outcome state of a position.
type State string

const (
	StatePending State = "Pending"
	StateWon     State = "Won"
	StateLost    State = "Lost"
)

// Tier names the display band an unresolved position's percentage falls in.
// Tiers select the artwork variant for rendered metadata.
type Tier string

const (
	TierHugeAdvantage      Tier = "huge_advantage"
	TierSlightAdvantage    Tier = "slight_advantage"
	TierSlightDisadvantage Tier = "slight_disadvantage"
	TierHugeDisadvantage   Tier = "huge_disadvantage"
	TierInitial            Tier = "initial"
)

var (
	// ErrNilStake is returned when a required stake argument is nil.
	ErrNilStake = errors.New("odds: nil stake value")

	// ErrNegativeStake is returned when a stake is negative. Pooled stakes
	// on chain are unsigned; a negative value means a corrupted read.
	ErrNegativeStake = errors.New("odds: negative stake value")

	// ErrStakeExceedsTotal is returned when a single option's stake is
	// larger than the market's aggregate stake.
	ErrStakeExceedsTotal = errors.New("odds: option stake exceeds total stake")

	// ErrMissingWinner is returned when a market reports resolved but no
	// winning index is available.
	ErrMissingWinner = errors.New("odds: resolved market without winning index")

	// ErrNilIndex is returned when the position's option index is nil on a
	// resolved market, where it is needed for the won/lost comparison.
	ErrNilIndex = errors.New("odds: nil position option index")
)

// neutralPercentage is shown when the market holds no stake at all, so a
// fresh market displays even odds instead of dividing by zero.
var neutralPercentage = decimal.NewFromInt(50).Round(2)

var (
	tierHugeAbove   = decimal.NewFromInt(75)
	tierSlightAbove = decimal.NewFromInt(55)
	tierSlightBelow = decimal.NewFromInt(45)
	tierHugeBelow   = decimal.NewFromInt(25)
)

// Result holds the derived display values for one position.
type Result struct {
	Percentage decimal.Decimal
	State      State
}

// Display renders the percentage with exactly two fractional digits,
// e.g. "70.00".
func (r Result) Display() string {
	return r.Percentage.StringFixed(2)
}

// Derive computes a position's display odds and outcome state. The
// percentage is the position option's share of the total pooled stake,
// scaled to 100 and rounded to two fractional digits. While resolved is
// false the state is StatePending regardless of odds; once resolved the
// state is StateWon exactly when winningIndex equals positionIndex under
// big-integer comparison, StateLost otherwise.
//
// A market with zero total stake yields a neutral 50.00 percentage.
func Derive(totalStake, optionStake *big.Int, resolved bool, winningIndex, positionIndex *big.Int) (Result, error) {
	if totalStake == nil || optionStake == nil {
		return Result{}, ErrNilStake
	}
	if totalStake.Sign() < 0 || optionStake.Sign() < 0 {
		return Result{}, ErrNegativeStake
	}

	var pct decimal.Decimal
	switch {
	case totalStake.Sign() == 0:
		pct = neutralPercentage
	case optionStake.Cmp(totalStake) > 0:
		return Result{}, ErrStakeExceedsTotal
	default:
		// NewFromBigInt(v, 2) is v*100 exactly, so the ratio is computed
		// on scaled integers and only rounded at display precision.
		pct = decimal.NewFromBigInt(optionStake, 2).
			Div(decimal.NewFromBigInt(totalStake, 0)).
			Round(2)
	}

	state := StatePending
	if resolved {
		if winningIndex == nil {
			return Result{}, ErrMissingWinner
		}
		if positionIndex == nil {
			return Result{}, ErrNilIndex
		}
		if winningIndex.Cmp(positionIndex) == 0 {
			state = StateWon
		} else {
			state = StateLost
		}
	}

	return Result{Percentage: pct, State: state}, nil
}

// TierFor selects the display tier for a percentage. The advantage bands are
// open intervals: above 75 is huge_advantage, strictly between 55 and 75 is
// slight_advantage, below 25 is huge_disadvantage, strictly between 25 and
// 45 is slight_disadvantage. Values exactly on the 25, 75, and inclusive 45
// to 55 boundaries match no band and fall back to TierInitial. Downstream
// asset selection depends on these exact boundaries.
func TierFor(percentage decimal.Decimal) Tier {
	switch {
	case percentage.GreaterThan(tierHugeAbove):
		return TierHugeAdvantage
	case percentage.GreaterThan(tierSlightAbove) && percentage.LessThan(tierHugeAbove):
		return TierSlightAdvantage
	case percentage.LessThan(tierHugeBelow):
		return TierHugeDisadvantage
	case percentage.LessThan(tierSlightBelow) && percentage.GreaterThan(tierHugeBelow):
		return TierSlightDisadvantage
	default:
		return TierInitial
	}
}
