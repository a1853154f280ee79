package lending

import (
	"fmt"
	"math/big"
)

// RiskEngine evaluates position health and liquidation eligibility. It is a
// pure read over pool state and oracle prices; it never mutates anything.
type RiskEngine struct {
	oracle PriceOracle
	params RiskParameters
}

// LiquidationAssessment is the full output of a liquidation check. Values
// are on the common 18-decimal scale.
type LiquidationAssessment struct {
	Liquidatable bool
	// DebtValue is the borrower's debt converted to value units.
	DebtValue *big.Int
	// MaxSafeDebtValue is the highest debt value the collateral supports at
	// the liquidation threshold.
	MaxSafeDebtValue *big.Int
	// CollateralValue is the total value of the custodied items.
	CollateralValue *big.Int
	// AllocationValue is the slice of collateral value that belongs back to
	// the borrower rather than the liquidator.
	AllocationValue *big.Int
}

// NewRiskEngine constructs a risk engine bound to the given oracle.
func NewRiskEngine(oracle PriceOracle, params RiskParameters) *RiskEngine {
	return &RiskEngine{oracle: oracle, params: params.Clone()}
}

// SetParameters replaces the liquidation parameters.
func (r *RiskEngine) SetParameters(params RiskParameters) {
	if r == nil {
		return
	}
	r.params = params.Clone()
}

// Parameters returns a copy of the configured liquidation parameters.
func (r *RiskEngine) Parameters() RiskParameters {
	if r == nil {
		return RiskParameters{}
	}
	return r.params.Clone()
}

// IsHealthy fails with ErrPositionUnhealthy when the position's debt value
// exceeds what its collateral safely supports. Zero debt is trivially
// healthy. Unset liquidation parameters fail loudly instead of letting the
// check pass.
func (r *RiskEngine) IsHealthy(position *Position, pool *Pool) error {
	if r == nil || !r.params.Configured() {
		return ErrRiskParamsUnset
	}
	debtValue, err := r.debtValue(position, pool)
	if err != nil {
		return err
	}
	if debtValue.Sign() == 0 {
		return nil
	}
	collateralValue, err := r.collateralValue(position, pool)
	if err != nil {
		return err
	}
	maxSafe := wadMul(collateralValue, r.params.LiquidationThresholdWad)
	if debtValue.Cmp(maxSafe) > 0 {
		return ErrPositionUnhealthy
	}
	return nil
}

// CheckLiquidatable reports eligibility without failing on an unhealthy
// position. Zero debt is never liquidatable.
func (r *RiskEngine) CheckLiquidatable(position *Position, pool *Pool) (LiquidationAssessment, error) {
	if r == nil || !r.params.Configured() {
		return LiquidationAssessment{}, ErrRiskParamsUnset
	}
	debtValue, err := r.debtValue(position, pool)
	if err != nil {
		return LiquidationAssessment{}, err
	}
	collateralValue, err := r.collateralValue(position, pool)
	if err != nil {
		return LiquidationAssessment{}, err
	}
	assessment := LiquidationAssessment{
		DebtValue:        debtValue,
		MaxSafeDebtValue: wadMul(collateralValue, r.params.LiquidationThresholdWad),
		CollateralValue:  collateralValue,
		AllocationValue:  wadMul(collateralValue, r.params.LiquidationBonusWad),
	}
	if debtValue.Sign() == 0 {
		return assessment, nil
	}
	assessment.Liquidatable = debtValue.Cmp(assessment.MaxSafeDebtValue) > 0
	return assessment, nil
}

// debtValue converts the position's borrow shares into the common value
// unit via the oracle.
func (r *RiskEngine) debtValue(position *Position, pool *Pool) (*big.Int, error) {
	if position == nil || position.BorrowShares == nil || position.BorrowShares.Sign() == 0 {
		return big.NewInt(0), nil
	}
	amount := amountForShares(position.BorrowShares, pool.TotalBorrowAssets, pool.TotalBorrowShares)
	price, err := r.normalizedPrice(pool.DebtAsset)
	if err != nil {
		return nil, err
	}
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(pool.DebtDecimals)), nil)
	return mulDiv(amount, price, unit), nil
}

// collateralValue prices the item count. Collateral is a non-fungible unit,
// one oracle price per item.
func (r *RiskEngine) collateralValue(position *Position, pool *Pool) (*big.Int, error) {
	if position == nil || len(position.CollateralIDs) == 0 {
		return big.NewInt(0), nil
	}
	price, err := r.normalizedPrice(pool.CollateralAsset)
	if err != nil {
		return nil, err
	}
	count := new(big.Int).SetUint64(uint64(len(position.CollateralIDs)))
	return count.Mul(count, price), nil
}

func (r *RiskEngine) normalizedPrice(asset string) (*big.Int, error) {
	quote, err := r.oracle.Price(asset)
	if err != nil {
		return nil, fmt.Errorf("oracle price for %s: %w", asset, err)
	}
	decimals, err := r.oracle.Decimals(asset)
	if err != nil {
		return nil, fmt.Errorf("oracle decimals for %s: %w", asset, err)
	}
	return normalizeValue(quote.Value, decimals), nil
}
