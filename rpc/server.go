// Package rpc exposes the lending ledger over HTTP. Handlers decode JSON
// requests, call into the engine, and map the engine's sentinel errors to
// status codes. Big integers travel as decimal strings.
package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nftlend/bank"
	"nftlend/native/common"
	"nftlend/native/lending"
	"nftlend/observability/metrics"
)

// Server wires the lending engine to its HTTP surface.
type Server struct {
	engine  *lending.Engine
	logger  *slog.Logger
	metrics *metrics.LendingMetrics
}

// NewServer constructs the HTTP surface over an engine.
func NewServer(engine *lending.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:  engine,
		logger:  logger,
		metrics: metrics.Lending(),
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/lending", func(r chi.Router) {
		r.Get("/pool", s.handlePool)
		r.Get("/positions/{address}", s.handlePosition)
		r.Post("/supply", s.handleSupply)
		r.Post("/withdraw", s.handleWithdraw)
		r.Post("/borrow", s.handleBorrow)
		r.Post("/repay", s.handleRepay)
		r.Post("/collateral/supply", s.handleSupplyCollateral)
		r.Post("/collateral/withdraw", s.handleWithdrawCollateral)
		r.Post("/liquidate", s.handleLiquidate)
		r.Post("/accrue", s.handleAccrue)
	})
	return r
}

type amountRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type sharesRequest struct {
	Address string `json:"address"`
	Shares  string `json:"shares"`
}

type collateralRequest struct {
	Address string `json:"address"`
	ItemID  uint64 `json:"item_id"`
}

type liquidateRequest struct {
	Liquidator string `json:"liquidator"`
	Borrower   string `json:"borrower"`
}

type sharesResponse struct {
	MintedShares string `json:"minted_shares"`
}

type amountResponse struct {
	Amount string `json:"amount"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type liquidateResponse struct {
	RepaidAmount string   `json:"repaid_amount"`
	SeizedIDs    []uint64 `json:"seized_ids"`
	ReturnedIDs  []uint64 `json:"returned_ids"`
}

type poolResponse struct {
	CollateralAsset   string `json:"collateral_asset"`
	DebtAsset         string `json:"debt_asset"`
	TotalSupplyAssets string `json:"total_supply_assets"`
	TotalSupplyShares string `json:"total_supply_shares"`
	TotalBorrowAssets string `json:"total_borrow_assets"`
	TotalBorrowShares string `json:"total_borrow_shares"`
	TotalCollateral   uint64 `json:"total_collateral"`
	LastAccruedAt     uint64 `json:"last_accrued_at"`
}

type positionResponse struct {
	Address       string   `json:"address"`
	SupplyShares  string   `json:"supply_shares"`
	BorrowShares  string   `json:"borrow_shares"`
	CollateralIDs []uint64 `json:"collateral_ids"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handlePool(w http.ResponseWriter, _ *http.Request) {
	pool, err := s.engine.Pool()
	if err != nil {
		s.writeError(w, "pool", err)
		return
	}
	writeJSON(w, http.StatusOK, poolResponse{
		CollateralAsset:   pool.CollateralAsset,
		DebtAsset:         pool.DebtAsset,
		TotalSupplyAssets: pool.TotalSupplyAssets.String(),
		TotalSupplyShares: pool.TotalSupplyShares.String(),
		TotalBorrowAssets: pool.TotalBorrowAssets.String(),
		TotalBorrowShares: pool.TotalBorrowShares.String(),
		TotalCollateral:   pool.TotalCollateral,
		LastAccruedAt:     pool.LastAccruedAt,
	})
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	addr := strings.TrimSpace(chi.URLParam(r, "address"))
	if addr == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "address required"})
		return
	}
	position, err := s.engine.Position(addr)
	if err != nil {
		s.writeError(w, "position", err)
		return
	}
	writeJSON(w, http.StatusOK, positionResponse{
		Address:       position.Address,
		SupplyShares:  position.SupplyShares.String(),
		BorrowShares:  position.BorrowShares.String(),
		CollateralIDs: position.CollateralIDs,
	})
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	amount, ok := s.decodeAmount(w, r, &req)
	if !ok {
		return
	}
	minted, err := s.engine.SupplyLiquidity(req.Address, amount)
	s.finishOp(w, "supply", err, func() any {
		s.logger.Info("liquidity supplied", "address", req.Address, "amount", amount.String(), "shares", minted.String())
		return sharesResponse{MintedShares: minted.String()}
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req sharesRequest
	shares, ok := s.decodeShares(w, r, &req)
	if !ok {
		return
	}
	amount, err := s.engine.WithdrawLiquidity(req.Address, shares)
	s.finishOp(w, "withdraw", err, func() any {
		s.logger.Info("liquidity withdrawn", "address", req.Address, "shares", shares.String(), "amount", amount.String())
		return amountResponse{Amount: amount.String()}
	})
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	amount, ok := s.decodeAmount(w, r, &req)
	if !ok {
		return
	}
	minted, err := s.engine.Borrow(req.Address, amount)
	s.finishOp(w, "borrow", err, func() any {
		s.logger.Info("debt drawn", "address", req.Address, "amount", amount.String(), "shares", minted.String())
		return sharesResponse{MintedShares: minted.String()}
	})
}

func (s *Server) handleRepay(w http.ResponseWriter, r *http.Request) {
	var req sharesRequest
	shares, ok := s.decodeShares(w, r, &req)
	if !ok {
		return
	}
	amount, err := s.engine.Repay(req.Address, shares)
	s.finishOp(w, "repay", err, func() any {
		s.logger.Info("debt repaid", "address", req.Address, "shares", shares.String(), "amount", amount.String())
		return amountResponse{Amount: amount.String()}
	})
}

func (s *Server) handleSupplyCollateral(w http.ResponseWriter, r *http.Request) {
	var req collateralRequest
	if !s.decodeCollateral(w, r, &req) {
		return
	}
	err := s.engine.SupplyCollateral(req.Address, req.ItemID)
	s.finishOp(w, "supply_collateral", err, func() any {
		s.logger.Info("collateral supplied", "address", req.Address, "item", req.ItemID)
		return statusResponse{Status: "ok"}
	})
}

func (s *Server) handleWithdrawCollateral(w http.ResponseWriter, r *http.Request) {
	var req collateralRequest
	if !s.decodeCollateral(w, r, &req) {
		return
	}
	err := s.engine.WithdrawCollateral(req.Address, req.ItemID)
	s.finishOp(w, "withdraw_collateral", err, func() any {
		s.logger.Info("collateral withdrawn", "address", req.Address, "item", req.ItemID)
		return statusResponse{Status: "ok"}
	})
}

func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	var req liquidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Liquidator) == "" || strings.TrimSpace(req.Borrower) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "liquidator and borrower required"})
		return
	}
	result, err := s.engine.Liquidate(req.Liquidator, req.Borrower)
	s.metrics.ObserveOperation("liquidate", err)
	if err != nil {
		s.writeError(w, "liquidate", err)
		return
	}
	s.metrics.ObserveLiquidation()
	s.publishPoolTotals()
	s.logger.Info("position liquidated",
		"liquidator", req.Liquidator,
		"borrower", req.Borrower,
		"repaid", result.RepaidAmount.String(),
		"seized", len(result.SeizedIDs),
		"returned", len(result.ReturnedIDs),
	)
	writeJSON(w, http.StatusOK, liquidateResponse{
		RepaidAmount: result.RepaidAmount.String(),
		SeizedIDs:    result.SeizedIDs,
		ReturnedIDs:  result.ReturnedIDs,
	})
}

func (s *Server) handleAccrue(w http.ResponseWriter, _ *http.Request) {
	before, err := s.engine.Pool()
	if err != nil {
		s.writeError(w, "accrue", err)
		return
	}
	if err := s.engine.AccrueInterest(); err != nil {
		s.metrics.ObserveOperation("accrue", err)
		s.writeError(w, "accrue", err)
		return
	}
	after, err := s.engine.Pool()
	if err != nil {
		s.writeError(w, "accrue", err)
		return
	}
	s.metrics.ObserveOperation("accrue", nil)
	interest := new(big.Int).Sub(after.TotalBorrowAssets, before.TotalBorrowAssets)
	if interest.Sign() > 0 {
		s.metrics.AddInterest(bigFloat(interest))
		s.logger.Info("interest accrued", "interest", interest.String())
	}
	s.publishPoolTotals()
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// finishOp records metrics, refreshes the pool gauges and writes either the
// success body or the mapped error.
func (s *Server) finishOp(w http.ResponseWriter, op string, err error, respond func() any) {
	s.metrics.ObserveOperation(op, err)
	if err != nil {
		s.writeError(w, op, err)
		return
	}
	s.publishPoolTotals()
	writeJSON(w, http.StatusOK, respond())
}

func (s *Server) publishPoolTotals() {
	pool, err := s.engine.Pool()
	if err != nil {
		return
	}
	s.metrics.SetPoolTotals(bigFloat(pool.TotalSupplyAssets), bigFloat(pool.TotalBorrowAssets), pool.TotalCollateral)
}

func (s *Server) decodeAmount(w http.ResponseWriter, r *http.Request, req *amountRequest) (*big.Int, bool) {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return nil, false
	}
	if strings.TrimSpace(req.Address) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "address required"})
		return nil, false
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(req.Amount), 10)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount must be a decimal integer"})
		return nil, false
	}
	return amount, true
}

func (s *Server) decodeShares(w http.ResponseWriter, r *http.Request, req *sharesRequest) (*big.Int, bool) {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return nil, false
	}
	if strings.TrimSpace(req.Address) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "address required"})
		return nil, false
	}
	shares, ok := new(big.Int).SetString(strings.TrimSpace(req.Shares), 10)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "shares must be a decimal integer"})
		return nil, false
	}
	return shares, true
}

func (s *Server) decodeCollateral(w http.ResponseWriter, r *http.Request, req *collateralRequest) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	if strings.TrimSpace(req.Address) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "address required"})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("operation failed", "op", op, "error", err)
	} else {
		s.logger.Info("operation rejected", "op", op, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps engine and custody sentinels onto status codes. Validation
// failures are 400s, state conflicts 409s, pauses 503s, everything else a
// 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lending.ErrZeroAmount),
		errors.Is(err, lending.ErrBelowMinimum),
		errors.Is(err, bank.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, lending.ErrCollateralNotFound),
		errors.Is(err, bank.ErrUnknownItem):
		return http.StatusNotFound
	case errors.Is(err, lending.ErrInsufficientShares),
		errors.Is(err, lending.ErrInsufficientLiquidity),
		errors.Is(err, lending.ErrMaxUtilisationExceeded),
		errors.Is(err, lending.ErrExceedsLoanToValue),
		errors.Is(err, lending.ErrPositionUnhealthy),
		errors.Is(err, lending.ErrNotLiquidatable),
		errors.Is(err, bank.ErrInsufficientFunds),
		errors.Is(err, bank.ErrNotItemOwner):
		return http.StatusConflict
	case errors.Is(err, common.ErrModulePaused):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func bigFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
