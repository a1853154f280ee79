package lending

import (
	"math/big"
	"testing"
)

func riskFixture(params RiskParameters) (*RiskEngine, *Pool) {
	oracle := defaultOracle()
	pool := &Pool{
		CollateralAsset:   "keys",
		DebtAsset:         "nusd",
		DebtDecimals:      6,
		TotalBorrowAssets: big.NewInt(1_000_000),
		TotalBorrowShares: big.NewInt(1_000_000),
	}
	ensurePoolDefaults(pool)
	return NewRiskEngine(oracle, params), pool
}

func TestIsHealthyRequiresConfiguredParams(t *testing.T) {
	risk, pool := riskFixture(RiskParameters{})
	position := &Position{Address: "bob"}
	ensurePositionDefaults(position)

	// Unset parameters must fail instead of reporting healthy.
	if err := risk.IsHealthy(position, pool); err != ErrRiskParamsUnset {
		t.Fatalf("expected risk params error, got %v", err)
	}

	partial := RiskParameters{LiquidationThresholdWad: wadFromPercent(85)}
	risk.SetParameters(partial)
	if err := risk.IsHealthy(position, pool); err != ErrRiskParamsUnset {
		t.Fatalf("partially configured params must fail, got %v", err)
	}
}

func TestIsHealthyZeroDebt(t *testing.T) {
	risk, pool := riskFixture(defaultRiskParams())
	position := &Position{Address: "bob"}
	ensurePositionDefaults(position)

	if err := risk.IsHealthy(position, pool); err != nil {
		t.Fatalf("zero debt is trivially healthy: %v", err)
	}
}

func TestIsHealthyThreshold(t *testing.T) {
	risk, pool := riskFixture(defaultRiskParams())

	// One item at 2.0 against the 85% threshold supports 1.7 of debt
	// value, which is 1,700,000 native units at 6 decimals.
	position := &Position{
		Address:       "bob",
		BorrowShares:  big.NewInt(1_000_000),
		CollateralIDs: []uint64{1},
	}
	ensurePositionDefaults(position)
	pool.TotalBorrowAssets = big.NewInt(1_700_000)
	pool.TotalBorrowShares = big.NewInt(1_000_000)

	if err := risk.IsHealthy(position, pool); err != nil {
		t.Fatalf("position at the threshold is still healthy: %v", err)
	}

	pool.TotalBorrowAssets = big.NewInt(1_700_001)
	if err := risk.IsHealthy(position, pool); err != ErrPositionUnhealthy {
		t.Fatalf("expected unhealthy, got %v", err)
	}
}

func TestCheckLiquidatableValues(t *testing.T) {
	risk, pool := riskFixture(defaultRiskParams())

	position := &Position{
		Address:       "bob",
		BorrowShares:  big.NewInt(1_000_000),
		CollateralIDs: []uint64{1, 2},
	}
	ensurePositionDefaults(position)
	pool.TotalBorrowAssets = big.NewInt(4_000_000)
	pool.TotalBorrowShares = big.NewInt(1_000_000)

	assessment, err := risk.CheckLiquidatable(position, pool)
	if err != nil {
		t.Fatalf("check liquidatable: %v", err)
	}
	if !assessment.Liquidatable {
		t.Fatalf("debt 4.0 against max safe %s must be liquidatable", assessment.MaxSafeDebtValue)
	}
	wantDebt := new(big.Int).Mul(big.NewInt(4), wad)
	if assessment.DebtValue.Cmp(wantDebt) != 0 {
		t.Fatalf("unexpected debt value: got %s want %s", assessment.DebtValue, wantDebt)
	}
	wantCollateral := new(big.Int).Mul(big.NewInt(4), wad)
	if assessment.CollateralValue.Cmp(wantCollateral) != 0 {
		t.Fatalf("unexpected collateral value: got %s want %s", assessment.CollateralValue, wantCollateral)
	}
	if assessment.MaxSafeDebtValue.Cmp(wadMul(wantCollateral, wadFromPercent(85))) != 0 {
		t.Fatalf("unexpected max safe value: %s", assessment.MaxSafeDebtValue)
	}
	if assessment.AllocationValue.Cmp(wadMul(wantCollateral, wadFromPercent(10))) != 0 {
		t.Fatalf("unexpected allocation value: %s", assessment.AllocationValue)
	}
}

func TestCheckLiquidatableZeroDebt(t *testing.T) {
	risk, pool := riskFixture(defaultRiskParams())

	position := &Position{Address: "bob", CollateralIDs: []uint64{1}}
	ensurePositionDefaults(position)

	assessment, err := risk.CheckLiquidatable(position, pool)
	if err != nil {
		t.Fatalf("check liquidatable: %v", err)
	}
	if assessment.Liquidatable {
		t.Fatalf("zero debt must never be liquidatable")
	}
	if assessment.DebtValue.Sign() != 0 {
		t.Fatalf("unexpected debt value: %s", assessment.DebtValue)
	}
}

func TestValueNormalization(t *testing.T) {
	// Six-decimal amounts scale up, twenty-decimal amounts scale down.
	if v := normalizeValue(big.NewInt(1_000_000), 6); v.Cmp(wad) != 0 {
		t.Fatalf("unexpected scaled-up value: %s", v)
	}
	scaled := new(big.Int).Mul(wad, big.NewInt(100))
	if v := normalizeValue(scaled, 20); v.Cmp(wad) != 0 {
		t.Fatalf("unexpected scaled-down value: %s", v)
	}
	if v := normalizeValue(wad, 18); v.Cmp(wad) != 0 {
		t.Fatalf("18-decimal values pass through, got %s", v)
	}
}
