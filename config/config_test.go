package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[service]
Name = "lendingd"
Environment = "test"
ListenAddress = ":8440"

[storage]
Path = ""

[pool]
ID = "keys-nusd"
CollateralAsset = "keys"
DebtAsset = "nusd"
DebtDecimals = 6
CustodianAddress = "pool-custodian"
LoanToValueWad = "800000000000000000"
MinSupplyAmount = "1000000"

[risk]
LiquidationThresholdWad = "850000000000000000"
LiquidationBonusWad = "100000000000000000"
MaxLiquidationPercentWad = "1000000000000000000"

[interest]
BaseRateWad = "20000000000000000"
OptimalUtilisationWad = "800000000000000000"
RateAtOptimalWad = "150000000000000000"
MaxUtilisationWad = "950000000000000000"
ScaledPercentageWad = "1000000000000000000"

[[oracle.assets]]
Asset = "keys"
Price = "200000000"
Decimals = 8

[[oracle.assets]]
Asset = "nusd"
Price = "100000000"
Decimals = 8
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lendingd.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSampleConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	require.Equal(t, "keys-nusd", cfg.Pool.ID)
	require.Equal(t, uint8(6), cfg.Pool.DebtDecimals)
	require.Equal(t, "800000000000000000", cfg.Pool.LoanToValueWad.String())

	params := cfg.RiskParameters()
	require.True(t, params.Configured())

	require.NoError(t, cfg.InterestModel().Validate())

	pool := cfg.PoolRecord()
	require.Equal(t, "keys", pool.CollateralAsset)
	require.Equal(t, "nusd", pool.DebtAsset)
}

func TestValidateRejectsLooseLTV(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	// LTV at the threshold is too loose.
	cfg.Pool.LoanToValueWad = cfg.Risk.LiquidationThresholdWad
	require.ErrorIs(t, cfg.Validate(), errLTVVsThreshold)
}

func TestValidateRejectsMissingOracleQuote(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	cfg.Oracle.Assets = cfg.Oracle.Assets[:1]
	require.ErrorIs(t, cfg.Validate(), errOracleAssets)
}

func TestValidateRejectsIncompleteRisk(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	cfg.Risk.LiquidationBonusWad = nil
	require.ErrorIs(t, cfg.Validate(), errRiskIncomplete)
}
