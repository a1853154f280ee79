package lending

import (
	"math/big"
	"testing"
)

func wadFromPercent(pct int64) *big.Int {
	v := new(big.Int).Mul(big.NewInt(pct), wad)
	return v.Quo(v, big.NewInt(100))
}

func TestInterestModelValidate(t *testing.T) {
	model := NewInterestModel(wadFromPercent(2), wad, wadFromPercent(15), wad, wad)
	if err := model.Validate(); err != errOptimalUtilisation {
		t.Fatalf("expected optimal utilisation error, got %v", err)
	}

	model = NewInterestModel(wadFromPercent(2), wadFromPercent(80), wadFromPercent(15), wadFromPercent(50), wad)
	if err := model.Validate(); err != errMaxUtilisation {
		t.Fatalf("expected max utilisation error, got %v", err)
	}

	if err := DefaultInterestModel.Validate(); err != nil {
		t.Fatalf("default model should validate: %v", err)
	}
}

func TestUtilisation(t *testing.T) {
	model := DefaultInterestModel
	if u := model.Utilisation(big.NewInt(500), nil); u.Sign() != 0 {
		t.Fatalf("expected zero utilisation with no supply, got %s", u)
	}
	u := model.Utilisation(big.NewInt(1), big.NewInt(4))
	if u.Cmp(wadFromPercent(25)) != 0 {
		t.Fatalf("unexpected utilisation: got %s want %s", u, wadFromPercent(25))
	}
}

func TestBorrowRateKink(t *testing.T) {
	model := NewInterestModel(wadFromPercent(2), wadFromPercent(80), wadFromPercent(10), wadFromPercent(95), wad)

	// Zero utilisation sits at the base rate.
	if rate := model.BorrowRate(big.NewInt(0), big.NewInt(1000)); rate.Cmp(wadFromPercent(2)) != 0 {
		t.Fatalf("unexpected base rate: %s", rate)
	}

	// Halfway to the kink: base + (rateAtOptimal-base) * 0.4/0.8 = 6%.
	rate := model.BorrowRate(big.NewInt(400), big.NewInt(1000))
	if rate.Cmp(wadFromPercent(6)) != 0 {
		t.Fatalf("unexpected pre-kink rate: got %s want %s", rate, wadFromPercent(6))
	}

	// Exactly at the kink.
	rate = model.BorrowRate(big.NewInt(800), big.NewInt(1000))
	if rate.Cmp(wadFromPercent(10)) != 0 {
		t.Fatalf("unexpected kink rate: got %s want %s", rate, wadFromPercent(10))
	}

	// At full utilisation the excess segment adds the scaled percentage:
	// 10% + 100% * (1-0.8)/(1-0.8) = 110%.
	rate = model.BorrowRate(big.NewInt(1000), big.NewInt(1000))
	if rate.Cmp(wadFromPercent(110)) != 0 {
		t.Fatalf("unexpected post-kink rate: got %s want %s", rate, wadFromPercent(110))
	}
}

func TestCalculateInterestClosedForm(t *testing.T) {
	model := DefaultInterestModel

	// 5% on 1,000,000 over a full year.
	interest := model.CalculateInterest(wadFromPercent(5), secondsPerYear, big.NewInt(1_000_000))
	if interest.Cmp(big.NewInt(50_000)) != 0 {
		t.Fatalf("unexpected interest: got %s want 50000", interest)
	}

	// Half a year halves it.
	interest = model.CalculateInterest(wadFromPercent(5), secondsPerYear/2, big.NewInt(1_000_000))
	if interest.Cmp(big.NewInt(25_000)) != 0 {
		t.Fatalf("unexpected half-year interest: got %s", interest)
	}

	if interest := model.CalculateInterest(big.NewInt(0), secondsPerYear, big.NewInt(1_000_000)); interest.Sign() != 0 {
		t.Fatalf("zero rate must accrue nothing, got %s", interest)
	}
	if interest := model.CalculateInterest(wadFromPercent(5), 0, big.NewInt(1_000_000)); interest.Sign() != 0 {
		t.Fatalf("zero elapsed must accrue nothing, got %s", interest)
	}
}
