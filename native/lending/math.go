package lending

import "math/big"

var (
	wad     = mustBigInt("1000000000000000000") // 1e18 fixed-point scale for ratios and prices
	bigZero = big.NewInt(0)
)

const secondsPerYear = 31_536_000

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// mulDiv computes a * b / denom with truncation toward zero. The intermediate
// product is arbitrary precision so amount * wad never overflows.
func mulDiv(a, b, denom *big.Int) *big.Int {
	if a == nil || b == nil || denom == nil || denom.Sign() == 0 {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, denom)
}

// wadMul multiplies two wad-scaled values, floor.
func wadMul(a, b *big.Int) *big.Int {
	return mulDiv(a, b, wad)
}

// wadDiv divides two wad-scaled values, floor.
func wadDiv(a, b *big.Int) *big.Int {
	if b == nil || b.Sign() == 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(nonNil(a), wad)
	return numerator.Quo(numerator, b)
}

// sharesForAmount converts an asset amount into shares against the current
// totals. Floor division deliberately favors the pool over the depositor.
func sharesForAmount(amount, totalShares, totalAssets *big.Int) *big.Int {
	if totalShares == nil || totalShares.Sign() == 0 || totalAssets == nil || totalAssets.Sign() == 0 {
		return new(big.Int).Set(nonNil(amount))
	}
	return mulDiv(amount, totalShares, totalAssets)
}

// amountForShares converts shares back into an asset amount, floor.
func amountForShares(shares, totalAssets, totalShares *big.Int) *big.Int {
	if totalShares == nil || totalShares.Sign() == 0 {
		return big.NewInt(0)
	}
	return mulDiv(shares, totalAssets, totalShares)
}

// normalizeValue rescales an amount quoted with the given decimals onto the
// common 18-decimal value unit.
func normalizeValue(value *big.Int, decimals uint8) *big.Int {
	v := new(big.Int).Set(nonNil(value))
	switch {
	case decimals == 18:
		return v
	case decimals < 18:
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(18-decimals)), nil)
		return v.Mul(v, scale)
	default:
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-18)), nil)
		return v.Quo(v, scale)
	}
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return bigZero
	}
	return v
}

func minBig(a, b *big.Int) *big.Int {
	if nonNil(a).Cmp(nonNil(b)) <= 0 {
		return new(big.Int).Set(nonNil(a))
	}
	return new(big.Int).Set(nonNil(b))
}
