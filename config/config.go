package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/BurntSushi/toml"

	"nftlend/native/lending"
)

var (
	errPoolID          = errors.New("config: pool id must be set")
	errPoolAssets      = errors.New("config: pool asset identifiers must be set")
	errCustodian       = errors.New("config: custodian address must be set")
	errListenAddress   = errors.New("config: listen address must be set")
	errOracleAssets    = errors.New("config: oracle must quote both pool assets")
	errLTVVsThreshold  = errors.New("config: loan-to-value must be below the liquidation threshold")
	errRiskIncomplete  = errors.New("config: liquidation parameters must all be set")
	errOracleZeroPrice = errors.New("config: oracle prices must be positive")
)

// Config captures the runtime configuration for the lending daemon.
type Config struct {
	Service  ServiceConfig  `toml:"service"`
	Storage  StorageConfig  `toml:"storage"`
	Pool     PoolConfig     `toml:"pool"`
	Risk     RiskConfig     `toml:"risk"`
	Interest InterestConfig `toml:"interest"`
	Oracle   OracleConfig   `toml:"oracle"`
}

// ServiceConfig describes the process identity and HTTP listener.
type ServiceConfig struct {
	Name          string `toml:"Name"`
	Environment   string `toml:"Environment"`
	ListenAddress string `toml:"ListenAddress"`
}

// StorageConfig locates the persistent key-value store. An empty path runs
// on the in-memory backend.
type StorageConfig struct {
	Path string `toml:"Path"`
}

// PoolConfig seeds the pool record at startup.
type PoolConfig struct {
	ID               string   `toml:"ID"`
	CollateralAsset  string   `toml:"CollateralAsset"`
	DebtAsset        string   `toml:"DebtAsset"`
	DebtDecimals     uint8    `toml:"DebtDecimals"`
	CustodianAddress string   `toml:"CustodianAddress"`
	LoanToValueWad   *big.Int `toml:"LoanToValueWad"`
	MinSupplyAmount  *big.Int `toml:"MinSupplyAmount"`
}

// RiskConfig carries the wad-scaled liquidation parameters.
type RiskConfig struct {
	LiquidationThresholdWad  *big.Int `toml:"LiquidationThresholdWad"`
	LiquidationBonusWad      *big.Int `toml:"LiquidationBonusWad"`
	MaxLiquidationPercentWad *big.Int `toml:"MaxLiquidationPercentWad"`
}

// InterestConfig carries the wad-scaled kinked curve parameters.
type InterestConfig struct {
	BaseRateWad           *big.Int `toml:"BaseRateWad"`
	OptimalUtilisationWad *big.Int `toml:"OptimalUtilisationWad"`
	RateAtOptimalWad      *big.Int `toml:"RateAtOptimalWad"`
	MaxUtilisationWad     *big.Int `toml:"MaxUtilisationWad"`
	ScaledPercentageWad   *big.Int `toml:"ScaledPercentageWad"`
}

// OracleConfig lists the static asset quotes served by the in-process
// price feed until an external gateway is attached.
type OracleConfig struct {
	Assets []OracleAsset `toml:"assets"`
}

// OracleAsset is one quoted asset.
type OracleAsset struct {
	Asset    string   `toml:"Asset"`
	Price    *big.Int `toml:"Price"`
	Decimals uint8    `toml:"Decimals"`
}

// Load reads and validates the TOML configuration at path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine would refuse at runtime.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Service.ListenAddress) == "" {
		return errListenAddress
	}
	if strings.TrimSpace(c.Pool.ID) == "" {
		return errPoolID
	}
	if strings.TrimSpace(c.Pool.CollateralAsset) == "" || strings.TrimSpace(c.Pool.DebtAsset) == "" {
		return errPoolAssets
	}
	if strings.TrimSpace(c.Pool.CustodianAddress) == "" {
		return errCustodian
	}
	if !c.RiskParameters().Configured() {
		return errRiskIncomplete
	}
	if c.Pool.LoanToValueWad != nil && c.Pool.LoanToValueWad.Cmp(c.Risk.LiquidationThresholdWad) >= 0 {
		return errLTVVsThreshold
	}
	if err := c.InterestModel().Validate(); err != nil {
		return err
	}
	quoted := make(map[string]bool, len(c.Oracle.Assets))
	for _, asset := range c.Oracle.Assets {
		if asset.Price == nil || asset.Price.Sign() <= 0 {
			return errOracleZeroPrice
		}
		quoted[asset.Asset] = true
	}
	if !quoted[c.Pool.CollateralAsset] || !quoted[c.Pool.DebtAsset] {
		return errOracleAssets
	}
	return nil
}

// RiskParameters converts the risk section into engine parameters.
func (c *Config) RiskParameters() lending.RiskParameters {
	return lending.RiskParameters{
		LiquidationThresholdWad:  c.Risk.LiquidationThresholdWad,
		LiquidationBonusWad:      c.Risk.LiquidationBonusWad,
		MaxLiquidationPercentWad: c.Risk.MaxLiquidationPercentWad,
	}.Clone()
}

// InterestModel converts the interest section into a rate model.
func (c *Config) InterestModel() *lending.InterestModel {
	return lending.NewInterestModel(
		c.Interest.BaseRateWad,
		c.Interest.OptimalUtilisationWad,
		c.Interest.RateAtOptimalWad,
		c.Interest.MaxUtilisationWad,
		c.Interest.ScaledPercentageWad,
	)
}

// PoolRecord builds the pool seed written on first boot.
func (c *Config) PoolRecord() *lending.Pool {
	return &lending.Pool{
		CollateralAsset: c.Pool.CollateralAsset,
		DebtAsset:       c.Pool.DebtAsset,
		DebtDecimals:    c.Pool.DebtDecimals,
		LoanToValueWad:  c.Pool.LoanToValueWad,
		MinSupplyAmount: c.Pool.MinSupplyAmount,
	}
}
