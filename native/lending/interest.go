package lending

import (
	"errors"
	"math/big"
)

var (
	errOptimalUtilisation = errors.New("interest model: optimal utilisation must be below 100%")
	errMaxUtilisation     = errors.New("interest model: max utilisation below optimal")
)

// InterestModel encapsulates the kinked rate curve that shapes how borrow
// rates react to pool utilisation. All parameters are 18-decimal fixed
// point.
type InterestModel struct {
	// BaseRateWad is the annual borrow rate applied at zero utilisation.
	BaseRateWad *big.Int
	// OptimalUtilisationWad is the kink where the slope steepens.
	OptimalUtilisationWad *big.Int
	// RateAtOptimalWad is the annual borrow rate reached exactly at the
	// kink.
	RateAtOptimalWad *big.Int
	// MaxUtilisationWad is the hard utilisation ceiling. The ledger
	// enforces it at borrow time; the curve only uses it to scale the
	// post-kink segment.
	MaxUtilisationWad *big.Int
	// ScaledPercentageWad normalises the post-kink slope.
	ScaledPercentageWad *big.Int
}

// NewInterestModel constructs an interest model from wad-scaled inputs.
func NewInterestModel(baseRate, optimal, rateAtOptimal, maxUtilisation, scaledPercentage *big.Int) *InterestModel {
	return &InterestModel{
		BaseRateWad:           new(big.Int).Set(nonNil(baseRate)),
		OptimalUtilisationWad: new(big.Int).Set(nonNil(optimal)),
		RateAtOptimalWad:      new(big.Int).Set(nonNil(rateAtOptimal)),
		MaxUtilisationWad:     new(big.Int).Set(nonNil(maxUtilisation)),
		ScaledPercentageWad:   new(big.Int).Set(nonNil(scaledPercentage)),
	}
}

// Clone returns a deep copy of the interest model.
func (m *InterestModel) Clone() *InterestModel {
	if m == nil {
		return nil
	}
	return NewInterestModel(m.BaseRateWad, m.OptimalUtilisationWad, m.RateAtOptimalWad, m.MaxUtilisationWad, m.ScaledPercentageWad)
}

// Validate rejects misconfigured curves. These are the only failure modes
// the model has; every other input produces a rate.
func (m *InterestModel) Validate() error {
	if m == nil {
		return nil
	}
	if nonNil(m.OptimalUtilisationWad).Cmp(wad) >= 0 {
		return errOptimalUtilisation
	}
	if nonNil(m.MaxUtilisationWad).Cmp(nonNil(m.OptimalUtilisationWad)) < 0 {
		return errMaxUtilisation
	}
	return nil
}

// Utilisation computes U = totalBorrowed / totalSupplied in wad. Zero when
// no liquidity exists.
func (m *InterestModel) Utilisation(totalBorrowed, totalSupplied *big.Int) *big.Int {
	if totalSupplied == nil || totalSupplied.Sign() == 0 {
		return big.NewInt(0)
	}
	return wadDiv(nonNil(totalBorrowed), totalSupplied)
}

// BorrowRate derives the annual borrow rate for the current utilisation.
// Below the kink the rate rises linearly from the base rate to the rate at
// optimal; above it a steeper segment scaled by ScaledPercentageWad takes
// over.
func (m *InterestModel) BorrowRate(totalBorrowed, totalSupplied *big.Int) *big.Int {
	if m == nil {
		return big.NewInt(0)
	}
	utilisation := m.Utilisation(totalBorrowed, totalSupplied)
	base := new(big.Int).Set(nonNil(m.BaseRateWad))
	if utilisation.Sign() == 0 {
		return base
	}

	optimal := nonNil(m.OptimalUtilisationWad)
	rateAtOptimal := nonNil(m.RateAtOptimalWad)
	if optimal.Sign() == 0 || utilisation.Cmp(optimal) <= 0 {
		// Linear region before the kink.
		span := new(big.Int).Sub(rateAtOptimal, base)
		if span.Sign() <= 0 || optimal.Sign() == 0 {
			return base
		}
		return base.Add(base, mulDiv(span, utilisation, optimal))
	}

	// Past the kink the rate climbs from rateAtOptimal toward the scaled
	// maximum proportionally to the excess utilisation.
	excess := new(big.Int).Sub(utilisation, optimal)
	headroom := new(big.Int).Sub(wad, optimal)
	if headroom.Sign() <= 0 {
		return rateAtOptimal
	}
	slope := wadMul(excess, nonNil(m.ScaledPercentageWad))
	rate := new(big.Int).Set(rateAtOptimal)
	return rate.Add(rate, wadDiv(slope, headroom))
}

// CalculateInterest returns the interest accrued on principal over the
// elapsed period at the given annual rate: principal * rate * elapsed /
// secondsPerYear, floor, rate in wad.
func (m *InterestModel) CalculateInterest(rateWad *big.Int, elapsedSeconds uint64, principal *big.Int) *big.Int {
	if rateWad == nil || rateWad.Sign() == 0 || elapsedSeconds == 0 || principal == nil || principal.Sign() == 0 {
		return big.NewInt(0)
	}
	interest := new(big.Int).Mul(principal, rateWad)
	interest.Mul(interest, new(big.Int).SetUint64(elapsedSeconds))
	interest.Quo(interest, big.NewInt(secondsPerYear))
	return interest.Quo(interest, wad)
}

// DefaultInterestModel provides a reasonable starting configuration: 2%
// base, kink at 80% utilisation reaching 15%, 95% utilisation ceiling.
var DefaultInterestModel = NewInterestModel(
	mustBigInt("20000000000000000"),  // 0.02
	mustBigInt("800000000000000000"), // 0.80
	mustBigInt("150000000000000000"), // 0.15
	mustBigInt("950000000000000000"), // 0.95
	wad,
)
