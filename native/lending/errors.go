package lending

import "errors"

var (
	// ErrNilState signals the engine was used before wiring a state store.
	ErrNilState = errors.New("lending engine: state not configured")
	// ErrPoolNotConfigured signals no pool identifier has been assigned.
	ErrPoolNotConfigured = errors.New("lending engine: pool identifier not configured")
	// ErrNilPool signals the pool record has not been initialised.
	ErrNilPool = errors.New("lending engine: pool not initialised")
	// ErrZeroAmount rejects zero or negative amounts and share counts.
	ErrZeroAmount = errors.New("lending engine: amount must be positive")
	// ErrBelowMinimum rejects a bootstrap deposit under the configured floor.
	ErrBelowMinimum = errors.New("lending engine: initial deposit below minimum supply amount")
	// ErrInsufficientShares rejects a withdrawal or repayment exceeding the
	// caller's share balance.
	ErrInsufficientShares = errors.New("lending engine: insufficient shares")
	// ErrInsufficientLiquidity rejects operations that would push borrows
	// above supplied liquidity.
	ErrInsufficientLiquidity = errors.New("lending engine: insufficient liquidity")
	// ErrMaxUtilisationExceeded rejects borrows that would meet or exceed
	// the configured utilisation ceiling.
	ErrMaxUtilisationExceeded = errors.New("lending engine: max utilisation exceeded")
	// ErrCollateralNotFound signals the item is not part of the caller's
	// collateral set.
	ErrCollateralNotFound = errors.New("lending engine: collateral item not found")
	// ErrExceedsLoanToValue rejects borrows beyond the origination ratio.
	ErrExceedsLoanToValue = errors.New("lending engine: borrow exceeds loan-to-value limit")
	// ErrNotLiquidatable signals the borrower's position is still healthy.
	ErrNotLiquidatable = errors.New("lending engine: borrower not eligible for liquidation")
	// ErrPositionUnhealthy signals debt value above the safe maximum.
	ErrPositionUnhealthy = errors.New("lending engine: position unhealthy")
	// ErrRiskParamsUnset signals liquidation parameters are not configured
	// for the pool. Checks must not silently pass as healthy.
	ErrRiskParamsUnset = errors.New("lending engine: risk parameters not configured")
)
