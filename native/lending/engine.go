package lending

import (
	"math/big"
	"strings"
	"sync"
	"time"

	nativecommon "nftlend/native/common"
)

const moduleName = "lending"

// LiquidationResult reports the outcome of a full liquidation.
type LiquidationResult struct {
	// RepaidAmount is the debt the liquidator covered.
	RepaidAmount *big.Int
	// SeizedIDs are the collateral items transferred to the liquidator.
	SeizedIDs []uint64
	// ReturnedIDs are the collateral items handed back to the borrower.
	ReturnedIDs []uint64
}

// Engine orchestrates the state transitions for a single lending pool. It
// is a strictly serialized state machine: mutating operations hold an
// exclusive lock for their full duration and either commit entirely or
// leave no trace. External transfers run after all validation so a failing
// collaborator aborts the operation before anything is persisted.
type Engine struct {
	mu sync.RWMutex

	state      ledgerState
	risk       *RiskEngine
	model      *InterestModel
	fungible   FungibleVault
	collateral CollateralVault
	pauses     nativecommon.PauseView

	poolID        string
	custodianAddr string
	nowFn         func() uint64
}

// NewEngine constructs a lending engine. The custodian address names the
// party holding collateral items while they are locked in the pool. The
// risk engine, state store, interest model and vaults are wired through
// setters before first use.
func NewEngine(custodianAddr string, risk *RiskEngine) *Engine {
	return &Engine{
		risk:          risk,
		custodianAddr: custodianAddr,
		nowFn:         func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state ledgerState) { e.state = state }

// SetPauses wires the pause view gating mutating entry points.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetInterestModel configures the rate model used during accrual. A
// misconfigured curve is rejected.
func (e *Engine) SetInterestModel(model *InterestModel) error {
	if e == nil {
		return nil
	}
	if err := model.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model = model.Clone()
	return nil
}

// SetVaults wires the asset transfer collaborators.
func (e *Engine) SetVaults(fungible FungibleVault, collateral CollateralVault) {
	if e == nil {
		return
	}
	e.fungible = fungible
	e.collateral = collateral
}

// SetPoolID assigns the pool identifier subsequent operations act on.
func (e *Engine) SetPoolID(poolID string) {
	if e == nil {
		return
	}
	e.poolID = strings.TrimSpace(poolID)
}

// SetClock overrides the timestamp source used for interest accrual.
func (e *Engine) SetClock(now func() uint64) {
	if e == nil || now == nil {
		return
	}
	e.nowFn = now
}

// SetRiskParameters replaces the liquidation parameters after validating
// them against the pool's loan-to-value configuration.
func (e *Engine) SetRiskParameters(params RiskParameters) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if !params.Configured() {
		return ErrRiskParamsUnset
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if pool.LoanToValueWad.Sign() > 0 && pool.LoanToValueWad.Cmp(params.LiquidationThresholdWad) >= 0 {
		return ErrExceedsLoanToValue
	}
	e.risk.SetParameters(params)
	return nil
}

// SetLoanToValue updates the origination ratio. It must stay strictly below
// the liquidation threshold.
func (e *Engine) SetLoanToValue(ltvWad *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if ltvWad == nil || ltvWad.Sign() <= 0 {
		return ErrZeroAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	threshold := e.risk.Parameters().LiquidationThresholdWad
	if threshold != nil && threshold.Sign() > 0 && ltvWad.Cmp(threshold) >= 0 {
		return ErrExceedsLoanToValue
	}
	pool.LoanToValueWad = new(big.Int).Set(ltvWad)
	return e.state.PutPool(e.poolID, pool)
}

// SetMinSupplyAmount updates the bootstrap deposit floor.
func (e *Engine) SetMinSupplyAmount(amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	pool.MinSupplyAmount = new(big.Int).Set(amount)
	return e.state.PutPool(e.poolID, pool)
}

// InitPool creates the pool record if it does not exist yet. Asset
// identifiers are immutable afterwards.
func (e *Engine) InitPool(pool *Pool) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if pool == nil || strings.TrimSpace(pool.CollateralAsset) == "" || strings.TrimSpace(pool.DebtAsset) == "" {
		return ErrNilPool
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if strings.TrimSpace(e.poolID) == "" {
		return ErrPoolNotConfigured
	}
	existing, err := e.state.GetPool(e.poolID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	created := pool.Clone()
	if created.LastAccruedAt == 0 {
		created.LastAccruedAt = e.nowFn()
	}
	return e.state.PutPool(e.poolID, created)
}

// Pool returns a snapshot of the pool record.
func (e *Engine) Pool() (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// Position returns a snapshot of a user's position. Users without history
// get a zeroed position.
func (e *Engine) Position(addr string) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	position, err := e.loadPosition(addr)
	if err != nil {
		return nil, err
	}
	return position.Clone(), nil
}

// SupplyCollateral takes custody of a specific item and records it against
// the user's position. Depositing collateral strictly reduces risk, so no
// health check runs.
func (e *Engine) SupplyCollateral(user string, itemID uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	e.accrue(pool)

	position, err := e.loadPosition(user)
	if err != nil {
		return err
	}
	position.CollateralIDs = append(position.CollateralIDs, itemID)
	pool.TotalCollateral++

	if err := e.collateral.TransferItem(user, e.custodianAddr, itemID); err != nil {
		return err
	}
	return e.persist(pool, position)
}

// WithdrawCollateral releases an item back to the user. The health check
// runs on the post-withdrawal state; validating before removing the item
// would let an unhealthy withdrawal through.
func (e *Engine) WithdrawCollateral(user string, itemID uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	e.accrue(pool)

	position, err := e.loadPosition(user)
	if err != nil {
		return err
	}
	idx := -1
	for i, id := range position.CollateralIDs {
		if id == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrCollateralNotFound
	}
	last := len(position.CollateralIDs) - 1
	position.CollateralIDs[idx] = position.CollateralIDs[last]
	position.CollateralIDs = position.CollateralIDs[:last]
	pool.TotalCollateral--

	if err := e.risk.IsHealthy(position, pool); err != nil {
		return err
	}
	if err := e.collateral.TransferItem(e.custodianAddr, user, itemID); err != nil {
		return err
	}
	return e.persist(pool, position)
}

// SupplyLiquidity deposits the fungible asset and mints supply shares. The
// first deposit is floored at MinSupplyAmount and mints 1:1 to pin the
// initial share price.
func (e *Engine) SupplyLiquidity(user string, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	e.accrue(pool)

	minted := new(big.Int)
	if pool.TotalSupplyAssets.Sign() == 0 {
		if pool.MinSupplyAmount.Sign() > 0 && amount.Cmp(pool.MinSupplyAmount) < 0 {
			return nil, ErrBelowMinimum
		}
		minted.Set(amount)
	} else {
		minted = mulDiv(amount, pool.TotalSupplyShares, pool.TotalSupplyAssets)
	}

	position, err := e.loadPosition(user)
	if err != nil {
		return nil, err
	}
	position.SupplyShares = new(big.Int).Add(position.SupplyShares, minted)
	pool.TotalSupplyAssets = new(big.Int).Add(pool.TotalSupplyAssets, amount)
	pool.TotalSupplyShares = new(big.Int).Add(pool.TotalSupplyShares, minted)

	if err := e.fungible.TransferIn(user, amount); err != nil {
		return nil, err
	}
	if err := e.persist(pool, position); err != nil {
		return nil, err
	}
	return minted, nil
}

// WithdrawLiquidity burns supply shares and releases the underlying
// amount. The pool must retain enough liquidity to cover outstanding debt.
func (e *Engine) WithdrawLiquidity(user string, shares *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	e.accrue(pool)

	position, err := e.loadPosition(user)
	if err != nil {
		return nil, err
	}
	if position.SupplyShares.Cmp(shares) < 0 {
		return nil, ErrInsufficientShares
	}

	amount := amountForShares(shares, pool.TotalSupplyAssets, pool.TotalSupplyShares)
	remaining := new(big.Int).Sub(pool.TotalSupplyAssets, amount)
	if remaining.Cmp(pool.TotalBorrowAssets) < 0 {
		return nil, ErrInsufficientLiquidity
	}

	position.SupplyShares = new(big.Int).Sub(position.SupplyShares, shares)
	pool.TotalSupplyShares = new(big.Int).Sub(pool.TotalSupplyShares, shares)
	pool.TotalSupplyAssets = remaining

	if err := e.fungible.TransferOut(user, amount); err != nil {
		return nil, err
	}
	if err := e.persist(pool, position); err != nil {
		return nil, err
	}
	return amount, nil
}

// Borrow draws the fungible asset against the caller's collateral. The
// solvency, utilisation, origination and health checks all run on the
// post-borrow state; the transfer out happens last.
func (e *Engine) Borrow(user string, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	e.accrue(pool)

	minted := sharesForAmount(amount, pool.TotalBorrowShares, pool.TotalBorrowAssets)

	position, err := e.loadPosition(user)
	if err != nil {
		return nil, err
	}
	position.BorrowShares = new(big.Int).Add(position.BorrowShares, minted)
	pool.TotalBorrowAssets = new(big.Int).Add(pool.TotalBorrowAssets, amount)
	pool.TotalBorrowShares = new(big.Int).Add(pool.TotalBorrowShares, minted)

	if pool.TotalBorrowAssets.Cmp(pool.TotalSupplyAssets) > 0 {
		return nil, ErrInsufficientLiquidity
	}
	if e.model != nil && e.model.MaxUtilisationWad != nil && e.model.MaxUtilisationWad.Sign() > 0 {
		utilisation := e.model.Utilisation(pool.TotalBorrowAssets, pool.TotalSupplyAssets)
		if utilisation.Cmp(e.model.MaxUtilisationWad) >= 0 {
			return nil, ErrMaxUtilisationExceeded
		}
	}
	if err := e.checkOrigination(position, pool); err != nil {
		return nil, err
	}
	if err := e.risk.IsHealthy(position, pool); err != nil {
		return nil, err
	}

	if err := e.fungible.TransferOut(user, amount); err != nil {
		return nil, err
	}
	if err := e.persist(pool, position); err != nil {
		return nil, err
	}
	return minted, nil
}

// Repay burns borrow shares and pulls the corresponding amount from the
// payer. Floor conversion favors the pool.
func (e *Engine) Repay(user string, shares *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	e.accrue(pool)

	position, err := e.loadPosition(user)
	if err != nil {
		return nil, err
	}
	if position.BorrowShares.Cmp(shares) < 0 {
		return nil, ErrInsufficientShares
	}

	amount := amountForShares(shares, pool.TotalBorrowAssets, pool.TotalBorrowShares)
	position.BorrowShares = new(big.Int).Sub(position.BorrowShares, shares)
	pool.TotalBorrowShares = new(big.Int).Sub(pool.TotalBorrowShares, shares)
	pool.TotalBorrowAssets = new(big.Int).Sub(pool.TotalBorrowAssets, amount)

	if err := e.fungible.TransferIn(user, amount); err != nil {
		return nil, err
	}
	if err := e.persist(pool, position); err != nil {
		return nil, err
	}
	return amount, nil
}

// Liquidate settles the borrower's entire debt. The liquidator covers the
// full debt amount and receives the seized share of the collateral set; the
// remainder, sized by the liquidation bonus, goes back to the borrower.
func (e *Engine) Liquidate(liquidator, borrower string) (*LiquidationResult, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	e.accrue(pool)

	position, err := e.loadPosition(borrower)
	if err != nil {
		return nil, err
	}
	assessment, err := e.risk.CheckLiquidatable(position, pool)
	if err != nil {
		return nil, err
	}
	if !assessment.Liquidatable {
		return nil, ErrNotLiquidatable
	}

	debtAmount := amountForShares(position.BorrowShares, pool.TotalBorrowAssets, pool.TotalBorrowShares)
	ids := append([]uint64(nil), position.CollateralIDs...)
	totalItems := uint64(len(ids))

	var toReturn uint64
	if assessment.CollateralValue.Sign() > 0 {
		share := mulDiv(assessment.AllocationValue, new(big.Int).SetUint64(totalItems), assessment.CollateralValue)
		toReturn = share.Uint64()
		if toReturn > totalItems {
			toReturn = totalItems
		}
	}
	toLiquidator := totalItems - toReturn

	pool.TotalBorrowShares = new(big.Int).Sub(pool.TotalBorrowShares, position.BorrowShares)
	pool.TotalBorrowAssets = new(big.Int).Sub(pool.TotalBorrowAssets, debtAmount)
	if pool.TotalBorrowAssets.Sign() < 0 {
		pool.TotalBorrowAssets = big.NewInt(0)
	}
	pool.TotalCollateral -= totalItems
	position.BorrowShares = big.NewInt(0)
	position.CollateralIDs = nil

	if err := e.fungible.TransferIn(liquidator, debtAmount); err != nil {
		return nil, err
	}
	result := &LiquidationResult{RepaidAmount: debtAmount}
	for i, id := range ids {
		recipient := liquidator
		if uint64(i) >= toLiquidator {
			recipient = borrower
		}
		if err := e.collateral.TransferItem(e.custodianAddr, recipient, id); err != nil {
			return nil, err
		}
		if recipient == liquidator {
			result.SeizedIDs = append(result.SeizedIDs, id)
		} else {
			result.ReturnedIDs = append(result.ReturnedIDs, id)
		}
	}
	if err := e.persist(pool, position); err != nil {
		return nil, err
	}
	return result, nil
}

// AccrueInterest applies pending interest to the pool totals. Calling it
// twice at the same timestamp is a no-op the second time.
func (e *Engine) AccrueInterest() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if !e.accrue(pool) {
		return nil
	}
	return e.state.PutPool(e.poolID, pool)
}

// accrue applies interest for the elapsed period to the in-memory pool and
// reports whether anything changed. Interest moves value from borrowers to
// suppliers, so it lands on both totals.
func (e *Engine) accrue(pool *Pool) bool {
	now := e.nowFn()
	if now <= pool.LastAccruedAt {
		return false
	}
	elapsed := now - pool.LastAccruedAt
	// The timestamp advances even while no debt is outstanding. Leaving it
	// stale would charge the first borrower interest for the debtless
	// window once accrual resumes.
	pool.LastAccruedAt = now
	if e.model == nil || pool.TotalBorrowAssets.Sign() == 0 {
		return true
	}
	rate := e.model.BorrowRate(pool.TotalBorrowAssets, pool.TotalSupplyAssets)
	interest := e.model.CalculateInterest(rate, elapsed, pool.TotalBorrowAssets)
	if interest.Sign() <= 0 {
		return true
	}
	pool.TotalBorrowAssets = new(big.Int).Add(pool.TotalBorrowAssets, interest)
	pool.TotalSupplyAssets = new(big.Int).Add(pool.TotalSupplyAssets, interest)
	return true
}

// checkOrigination rejects debt above the pool's loan-to-value ratio. The
// LTV is strictly tighter than the liquidation threshold, so fresh borrows
// start with a healthy margin.
func (e *Engine) checkOrigination(position *Position, pool *Pool) error {
	if pool.LoanToValueWad == nil || pool.LoanToValueWad.Sign() == 0 {
		return nil
	}
	debtValue, err := e.risk.debtValue(position, pool)
	if err != nil {
		return err
	}
	if debtValue.Sign() == 0 {
		return nil
	}
	collateralValue, err := e.risk.collateralValue(position, pool)
	if err != nil {
		return err
	}
	if debtValue.Cmp(wadMul(collateralValue, pool.LoanToValueWad)) > 0 {
		return ErrExceedsLoanToValue
	}
	return nil
}

func (e *Engine) loadPool() (*Pool, error) {
	if strings.TrimSpace(e.poolID) == "" {
		return nil, ErrPoolNotConfigured
	}
	pool, err := e.state.GetPool(e.poolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrNilPool
	}
	ensurePoolDefaults(pool)
	return pool, nil
}

func (e *Engine) loadPosition(addr string) (*Position, error) {
	if strings.TrimSpace(e.poolID) == "" {
		return nil, ErrPoolNotConfigured
	}
	position, err := e.state.GetPosition(e.poolID, addr)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = &Position{Address: addr}
	}
	ensurePositionDefaults(position)
	return position, nil
}

func (e *Engine) persist(pool *Pool, position *Position) error {
	if err := e.state.PutPosition(e.poolID, position); err != nil {
		return err
	}
	return e.state.PutPool(e.poolID, pool)
}
