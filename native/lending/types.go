package lending

import "math/big"

// Pool captures the global accounting state for a single collateral/debt
// asset pair. Amount values are denominated in the debt asset's native
// units and expressed as big integers to avoid overflow in intermediate
// products.
type Pool struct {
	// CollateralAsset identifies the non-fungible collateral type accepted
	// by the pool. Immutable after creation.
	CollateralAsset string
	// DebtAsset identifies the fungible asset supplied and borrowed.
	// Immutable after creation.
	DebtAsset string
	// DebtDecimals is the debt asset's native decimal precision, resolved
	// once at pool configuration instead of probed per call. Collateral is
	// a non-fungible unit count and carries no decimals.
	DebtDecimals uint8
	// TotalSupplyAssets is the aggregate fungible liquidity deposited by
	// suppliers, including interest accrued on their behalf.
	TotalSupplyAssets *big.Int
	// TotalSupplyShares tracks the shares representing proportional
	// ownership of TotalSupplyAssets.
	TotalSupplyShares *big.Int
	// TotalBorrowAssets is the outstanding debt across all borrowers,
	// principal plus accrued interest.
	TotalBorrowAssets *big.Int
	// TotalBorrowShares tracks the shares representing proportional claims
	// on TotalBorrowAssets.
	TotalBorrowShares *big.Int
	// TotalCollateral counts the collateral items held in custody across
	// all positions.
	TotalCollateral uint64
	// LastAccruedAt records the unix timestamp when interest was last
	// applied. Monotonically non-decreasing.
	LastAccruedAt uint64
	// LoanToValueWad is the maximum origination ratio expressed in
	// 18-decimal fixed point. Strictly less than the liquidation threshold.
	LoanToValueWad *big.Int
	// MinSupplyAmount floors the first liquidity deposit to keep the share
	// price out of manipulation range.
	MinSupplyAmount *big.Int
}

// Position maintains the lending state for an individual participant within
// a pool. Positions are zeroed rather than deleted so the share price stays
// continuous for remaining users.
type Position struct {
	// Address is the participant identifier.
	Address string
	// SupplyShares is the user's claim on the pool's supplied liquidity.
	SupplyShares *big.Int
	// BorrowShares is the user's proportional claim on the pool's
	// outstanding debt.
	BorrowShares *big.Int
	// CollateralIDs holds the non-fungible item identifiers the pool
	// custodies for this user. Order is not meaningful; removal uses
	// swap-and-pop.
	CollateralIDs []uint64
}

// RiskParameters groups the safety limits governing liquidation. All ratios
// are 18-decimal fixed point. Every field must be configured non-zero before
// health checks will pass judgement on a position.
type RiskParameters struct {
	// LiquidationThresholdWad is the collateral-value fraction above which
	// debt makes a position liquidatable.
	LiquidationThresholdWad *big.Int
	// LiquidationBonusWad is the collateral-value fraction conceptually
	// returned to the borrower instead of seized.
	LiquidationBonusWad *big.Int
	// MaxLiquidationPercentWad caps the portion of a position processed in
	// one liquidation call.
	MaxLiquidationPercentWad *big.Int
}

// Clone returns a deep copy of the risk parameters.
func (p RiskParameters) Clone() RiskParameters {
	clone := RiskParameters{}
	if p.LiquidationThresholdWad != nil {
		clone.LiquidationThresholdWad = new(big.Int).Set(p.LiquidationThresholdWad)
	}
	if p.LiquidationBonusWad != nil {
		clone.LiquidationBonusWad = new(big.Int).Set(p.LiquidationBonusWad)
	}
	if p.MaxLiquidationPercentWad != nil {
		clone.MaxLiquidationPercentWad = new(big.Int).Set(p.MaxLiquidationPercentWad)
	}
	return clone
}

// Configured reports whether every liquidation parameter carries a non-zero
// value. Unset parameters must fail health checks loudly instead of letting
// them pass as healthy.
func (p RiskParameters) Configured() bool {
	return p.LiquidationThresholdWad != nil && p.LiquidationThresholdWad.Sign() > 0 &&
		p.LiquidationBonusWad != nil && p.LiquidationBonusWad.Sign() > 0 &&
		p.MaxLiquidationPercentWad != nil && p.MaxLiquidationPercentWad.Sign() > 0
}

// Clone returns a deep copy of the pool record.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := &Pool{
		CollateralAsset: p.CollateralAsset,
		DebtAsset:       p.DebtAsset,
		DebtDecimals:    p.DebtDecimals,
		TotalCollateral: p.TotalCollateral,
		LastAccruedAt:   p.LastAccruedAt,
	}
	if p.TotalSupplyAssets != nil {
		clone.TotalSupplyAssets = new(big.Int).Set(p.TotalSupplyAssets)
	}
	if p.TotalSupplyShares != nil {
		clone.TotalSupplyShares = new(big.Int).Set(p.TotalSupplyShares)
	}
	if p.TotalBorrowAssets != nil {
		clone.TotalBorrowAssets = new(big.Int).Set(p.TotalBorrowAssets)
	}
	if p.TotalBorrowShares != nil {
		clone.TotalBorrowShares = new(big.Int).Set(p.TotalBorrowShares)
	}
	if p.LoanToValueWad != nil {
		clone.LoanToValueWad = new(big.Int).Set(p.LoanToValueWad)
	}
	if p.MinSupplyAmount != nil {
		clone.MinSupplyAmount = new(big.Int).Set(p.MinSupplyAmount)
	}
	return clone
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := &Position{Address: p.Address}
	if p.SupplyShares != nil {
		clone.SupplyShares = new(big.Int).Set(p.SupplyShares)
	}
	if p.BorrowShares != nil {
		clone.BorrowShares = new(big.Int).Set(p.BorrowShares)
	}
	if p.CollateralIDs != nil {
		clone.CollateralIDs = append([]uint64(nil), p.CollateralIDs...)
	}
	return clone
}
