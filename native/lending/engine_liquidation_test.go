package lending

import (
	"math/big"
	"testing"
)

func TestLiquidateSplitsCollateral(t *testing.T) {
	params := RiskParameters{
		LiquidationThresholdWad:  wadFromPercent(50),
		LiquidationBonusWad:      wadFromPercent(10),
		MaxLiquidationPercentWad: wad,
	}
	f := newEngineFixture(t, params)
	// Items worth 1.0 each so ten of them value the position at 10.0.
	f.oracle.prices["keys"] = big.NewInt(100_000_000)

	if _, err := f.engine.SupplyLiquidity("alice", big.NewInt(10_000_000)); err != nil {
		t.Fatalf("supply: %v", err)
	}
	for i := uint64(1); i <= 10; i++ {
		if err := f.engine.SupplyCollateral("bob", i); err != nil {
			t.Fatalf("supply collateral: %v", err)
		}
	}
	// Debt value 4.0 originates safely under the 8.0 LTV cap, then the
	// collateral price halves and pushes it past the 50% threshold.
	if _, err := f.engine.Borrow("bob", big.NewInt(4_000_000)); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	f.oracle.prices["keys"] = big.NewInt(50_000_000)

	result, err := f.engine.Liquidate("carol", "bob")
	if err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if result.RepaidAmount.Cmp(big.NewInt(4_000_000)) != 0 {
		t.Fatalf("unexpected repaid amount: %s", result.RepaidAmount)
	}
	// Bonus fraction 10% of ten items returns one to the borrower.
	if len(result.ReturnedIDs) != 1 || len(result.SeizedIDs) != 9 {
		t.Fatalf("unexpected split: seized=%d returned=%d", len(result.SeizedIDs), len(result.ReturnedIDs))
	}
	if len(result.SeizedIDs)+len(result.ReturnedIDs) != 10 {
		t.Fatalf("collateral items lost in split")
	}

	pos := f.position(t, "bob")
	if pos.BorrowShares.Sign() != 0 || len(pos.CollateralIDs) != 0 {
		t.Fatalf("borrower not fully zeroed: shares=%s items=%v", pos.BorrowShares, pos.CollateralIDs)
	}

	pool := f.pool(t)
	if pool.TotalBorrowAssets.Sign() != 0 || pool.TotalBorrowShares.Sign() != 0 {
		t.Fatalf("pool borrow totals not cleared: assets=%s shares=%s", pool.TotalBorrowAssets, pool.TotalBorrowShares)
	}
	if pool.TotalCollateral != 0 {
		t.Fatalf("pool collateral count not cleared: %d", pool.TotalCollateral)
	}

	// The liquidator covered the debt and received the seized items.
	last := f.fungible.transfers[len(f.fungible.transfers)-1]
	if last.direction != "in" || last.party != "carol" || last.amount.Cmp(big.NewInt(4_000_000)) != 0 {
		t.Fatalf("unexpected liquidator transfer: %+v", last)
	}
	seizedToCarol := 0
	returnedToBob := 0
	for _, transfer := range f.collateral.transfers {
		if transfer.from != "custodian" {
			continue
		}
		switch transfer.to {
		case "carol":
			seizedToCarol++
		case "bob":
			returnedToBob++
		}
	}
	if seizedToCarol != 9 || returnedToBob != 1 {
		t.Fatalf("unexpected item routing: carol=%d bob=%d", seizedToCarol, returnedToBob)
	}
}

func TestLiquidateHealthyPositionRejected(t *testing.T) {
	f := newEngineFixture(t, defaultRiskParams())

	if _, err := f.engine.SupplyLiquidity("alice", big.NewInt(10_000_000)); err != nil {
		t.Fatalf("supply: %v", err)
	}
	if err := f.engine.SupplyCollateral("bob", 1); err != nil {
		t.Fatalf("supply collateral: %v", err)
	}
	if _, err := f.engine.Borrow("bob", big.NewInt(1_000_000)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	if _, err := f.engine.Liquidate("carol", "bob"); err != ErrNotLiquidatable {
		t.Fatalf("expected not liquidatable, got %v", err)
	}
}

func TestLiquidateZeroDebtRejected(t *testing.T) {
	f := newEngineFixture(t, defaultRiskParams())

	if err := f.engine.SupplyCollateral("bob", 1); err != nil {
		t.Fatalf("supply collateral: %v", err)
	}
	// Zero debt is never liquidatable, whatever the collateral is worth.
	if _, err := f.engine.Liquidate("carol", "bob"); err != ErrNotLiquidatable {
		t.Fatalf("expected not liquidatable, got %v", err)
	}
}

func TestLiquidateRequiresRiskParams(t *testing.T) {
	f := newEngineFixture(t, RiskParameters{})

	if err := f.engine.SupplyCollateral("bob", 1); err != nil {
		t.Fatalf("supply collateral: %v", err)
	}
	if _, err := f.engine.Liquidate("carol", "bob"); err != ErrRiskParamsUnset {
		t.Fatalf("expected risk params error, got %v", err)
	}
}
