package lending

import "math/big"

// PriceQuote carries an oracle observation for a single asset.
type PriceQuote struct {
	// Value is the price scaled by the oracle's decimal precision for the
	// asset.
	Value *big.Int
	// UpdatedAt is the unix timestamp of the observation. The risk engine
	// does not judge staleness; callers that need a freshness bound layer
	// it on top.
	UpdatedAt uint64
}

// PriceOracle is the external price feed boundary. Implementations must not
// silently return a zero or stale price.
type PriceOracle interface {
	Price(asset string) (PriceQuote, error)
	Decimals(asset string) (uint8, error)
}

// FungibleVault moves the pool's debt asset between users and the pool's
// custody account. Transfers are atomic and fail loudly on insufficient
// balance.
type FungibleVault interface {
	TransferIn(from string, amount *big.Int) error
	TransferOut(to string, amount *big.Int) error
}

// CollateralVault moves individual non-fungible items. Ownership checks are
// the vault's responsibility.
type CollateralVault interface {
	TransferItem(from, to string, itemID uint64) error
}
