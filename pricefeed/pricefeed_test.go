package pricefeed

import (
	"errors"
	"math/big"
	"testing"
)

func TestQuoteRoundTrip(t *testing.T) {
	feed := NewStatic()
	feed.SetClock(func() uint64 { return 42 })
	feed.SetQuote("keys", big.NewInt(200_000_000), 8)

	quote, err := feed.Price("keys")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if quote.Value.Cmp(big.NewInt(200_000_000)) != 0 {
		t.Fatalf("price = %s, want 200000000", quote.Value)
	}
	if quote.UpdatedAt != 42 {
		t.Fatalf("updated at = %d, want 42", quote.UpdatedAt)
	}
	decimals, err := feed.Decimals("keys")
	if err != nil {
		t.Fatalf("decimals: %v", err)
	}
	if decimals != 8 {
		t.Fatalf("decimals = %d, want 8", decimals)
	}
}

func TestUnknownAsset(t *testing.T) {
	feed := NewStatic()
	if _, err := feed.Price("keys"); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("price error = %v, want ErrUnknownAsset", err)
	}
	if _, err := feed.Decimals("keys"); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("decimals error = %v, want ErrUnknownAsset", err)
	}
}

func TestNonPositivePriceIgnored(t *testing.T) {
	feed := NewStatic()
	feed.SetQuote("keys", big.NewInt(0), 8)
	feed.SetQuote("keys", nil, 8)
	if _, err := feed.Price("keys"); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("zero-price quote stored: %v", err)
	}
}

func TestQuoteReplacement(t *testing.T) {
	feed := NewStatic()
	feed.SetQuote("keys", big.NewInt(100), 8)
	feed.SetQuote("keys", big.NewInt(50), 8)

	quote, err := feed.Price("keys")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if quote.Value.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("price = %s, want 50", quote.Value)
	}
}
