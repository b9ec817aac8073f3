package odds

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

// bi is a test helper for creating big integers from int64.
func bi(v int64) *big.Int {
	return big.NewInt(v)
}

// --- Derive: percentage ---

func TestDerive_ZeroTotalStakeIsNeutral(t *testing.T) {
	res, err := Derive(bi(0), bi(0), false, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Display(); got != "50.00" {
		t.Errorf("expected 50.00 for empty market, got %s", got)
	}
}

func TestDerive_ZeroTotalIgnoresOtherInputs(t *testing.T) {
	// Inconsistent inputs still yield the neutral prior when total is zero.
	res, err := Derive(bi(0), bi(500), false, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Display(); got != "50.00" {
		t.Errorf("expected 50.00, got %s", got)
	}
}

func TestDerive_SimpleRatio(t *testing.T) {
	res, err := Derive(bi(100), bi(70), false, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Display(); got != "70.00" {
		t.Errorf("expected 70.00, got %s", got)
	}
}

func TestDerive_RoundsToTwoDigits(t *testing.T) {
	res, err := Derive(bi(3), bi(1), false, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Display(); got != "33.33" {
		t.Errorf("expected 33.33 for 1/3, got %s", got)
	}
}

func TestDerive_ChainScaleStakes(t *testing.T) {
	// 7e20 of 1e21 wei-scale units, far beyond float64's exact range.
	total, _ := new(big.Int).SetString("1000000000000000000000", 10)
	option, _ := new(big.Int).SetString("700000000000000000000", 10)

	res, err := Derive(total, option, false, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Display(); got != "70.00" {
		t.Errorf("expected 70.00 at chain scale, got %s", got)
	}
}

func TestDerive_FullStakeIsHundred(t *testing.T) {
	res, err := Derive(bi(250), bi(250), false, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Display(); got != "100.00" {
		t.Errorf("expected 100.00, got %s", got)
	}
}

// --- Derive: input validation ---

func TestDerive_NilStakes(t *testing.T) {
	if _, err := Derive(nil, bi(1), false, nil, nil); !errors.Is(err, ErrNilStake) {
		t.Errorf("expected ErrNilStake for nil total, got %v", err)
	}
	if _, err := Derive(bi(1), nil, false, nil, nil); !errors.Is(err, ErrNilStake) {
		t.Errorf("expected ErrNilStake for nil option stake, got %v", err)
	}
}

func TestDerive_NegativeStake(t *testing.T) {
	if _, err := Derive(bi(-1), bi(0), false, nil, nil); !errors.Is(err, ErrNegativeStake) {
		t.Errorf("expected ErrNegativeStake, got %v", err)
	}
}

func TestDerive_OptionStakeExceedsTotal(t *testing.T) {
	if _, err := Derive(bi(10), bi(11), false, nil, nil); !errors.Is(err, ErrStakeExceedsTotal) {
		t.Errorf("expected ErrStakeExceedsTotal, got %v", err)
	}
}

func TestDerive_ResolvedWithoutWinner(t *testing.T) {
	if _, err := Derive(bi(100), bi(70), true, nil, bi(1)); !errors.Is(err, ErrMissingWinner) {
		t.Errorf("expected ErrMissingWinner, got %v", err)
	}
}

// --- Derive: outcome state ---

func TestDerive_UnresolvedIsPending(t *testing.T) {
	res, err := Derive(bi(100), bi(99), false, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StatePending {
		t.Errorf("expected Pending while unresolved, got %s", res.State)
	}
}

func TestDerive_ResolvedMatchIsWon(t *testing.T) {
	res, err := Derive(bi(100), bi(70), true, bi(1), bi(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateWon {
		t.Errorf("expected Won, got %s", res.State)
	}
}

func TestDerive_ResolvedMismatchIsLost(t *testing.T) {
	res, err := Derive(bi(100), bi(70), true, bi(0), bi(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateLost {
		t.Errorf("expected Lost, got %s", res.State)
	}
}

func TestDerive_WinComparisonIsExactOnBigInts(t *testing.T) {
	// Distinct allocations holding the same value must compare equal.
	winning, _ := new(big.Int).SetString("2", 10)
	position := big.NewInt(2)

	res, err := Derive(bi(100), bi(50), true, winning, position)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateWon {
		t.Errorf("expected Won for equal-valued indices, got %s", res.State)
	}
}

func TestDerive_IndexZeroWins(t *testing.T) {
	res, err := Derive(bi(100), bi(30), true, bi(0), bi(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateWon {
		t.Errorf("expected Won for index 0, got %s", res.State)
	}
}

// --- Tier selection ---

func TestTierFor_Boundaries(t *testing.T) {
	cases := []struct {
		pct  string
		want Tier
	}{
		{"76.00", TierHugeAdvantage},
		{"75.01", TierHugeAdvantage},
		{"75.00", TierInitial}, // boundary is exclusive
		{"74.99", TierSlightAdvantage},
		{"55.01", TierSlightAdvantage},
		{"55.00", TierInitial},
		{"50.00", TierInitial},
		{"45.00", TierInitial},
		{"44.99", TierSlightDisadvantage},
		{"25.01", TierSlightDisadvantage},
		{"25.00", TierInitial}, // boundary is exclusive on both sides
		{"24.99", TierHugeDisadvantage},
		{"0.00", TierHugeDisadvantage},
		{"100.00", TierHugeAdvantage},
	}

	for _, tc := range cases {
		pct, err := decimal.NewFromString(tc.pct)
		if err != nil {
			t.Fatalf("bad test percentage %q: %v", tc.pct, err)
		}
		if got := TierFor(pct); got != tc.want {
			t.Errorf("TierFor(%s) = %s, want %s", tc.pct, got, tc.want)
		}
	}
}

func TestDerive_SeventyPercentIsSlightAdvantage(t *testing.T) {
	// Market: option0=30, option1=70, total=100, position backs option1.
	res, err := Derive(bi(100), bi(70), false, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Display(); got != "70.00" {
		t.Errorf("expected 70.00, got %s", got)
	}
	if tier := TierFor(res.Percentage); tier != TierSlightAdvantage {
		t.Errorf("expected slight_advantage for 70.00, got %s", tier)
	}
}
