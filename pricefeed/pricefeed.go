// Package pricefeed provides the price oracle backing the risk engine.
// The static feed serves operator-configured quotes and is the default
// until an external oracle gateway is attached.
package pricefeed

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"nftlend/native/lending"
)

// ErrUnknownAsset is returned for assets the feed has no quote for.
var ErrUnknownAsset = errors.New("pricefeed: unknown asset")

type quote struct {
	price     *big.Int
	decimals  uint8
	updatedAt uint64
}

// Static serves fixed quotes set by the operator. Safe for concurrent use.
type Static struct {
	mu     sync.RWMutex
	quotes map[string]quote
	nowFn  func() uint64
}

// NewStatic returns an empty feed.
func NewStatic() *Static {
	return &Static{
		quotes: make(map[string]quote),
		nowFn:  func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetClock overrides the timestamp recorded on quote updates.
func (s *Static) SetClock(now func() uint64) {
	if s == nil || now == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = now
}

// SetQuote installs or replaces the quote for an asset. Non-positive
// prices are ignored.
func (s *Static) SetQuote(asset string, price *big.Int, decimals uint8) {
	if s == nil || price == nil || price.Sign() <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[asset] = quote{
		price:     new(big.Int).Set(price),
		decimals:  decimals,
		updatedAt: s.nowFn(),
	}
}

// Price returns the latest quote for an asset.
func (s *Static) Price(asset string) (lending.PriceQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[asset]
	if !ok {
		return lending.PriceQuote{}, ErrUnknownAsset
	}
	return lending.PriceQuote{
		Value:     new(big.Int).Set(q.price),
		UpdatedAt: q.updatedAt,
	}, nil
}

// Decimals returns the precision the asset's quotes are scaled by.
func (s *Static) Decimals(asset string) (uint8, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[asset]
	if !ok {
		return 0, ErrUnknownAsset
	}
	return q.decimals, nil
}
