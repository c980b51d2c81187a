package marketdata

import (
	"context"
	"math"
	"testing"
	"time"

	"SigFlow/internal/domain/models"
	"SigFlow/pkg/cache"
	"SigFlow/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func f(v float64) *float64 { return &v }

func TestNormalizeSymbol(t *testing.T) {
	if got := NormalizeSymbol("  btcUsdt "); got != "BTCUSDT" {
		t.Fatalf("got %q", got)
	}
}

func TestResolvePricePrecedence(t *testing.T) {
	nan := math.NaN()
	cases := []struct {
		name string
		tk   *models.CachedTicker
		want float64
		ok   bool
	}{
		{"last wins", &models.CachedTicker{Last: f(9), Bid: f(10), Ask: f(12)}, 9, true},
		{"nan last falls to mid", &models.CachedTicker{Last: &nan, Bid: f(10), Ask: f(12)}, 11, true},
		{"bid only", &models.CachedTicker{Bid: f(10)}, 10, true},
		{"ask only", &models.CachedTicker{Ask: f(12)}, 12, true},
		{"empty", &models.CachedTicker{}, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tc := range cases {
		got, ok := ResolvePrice(tc.tk)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s: got (%f, %v), want (%f, %v)", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAggregateBestPrices(t *testing.T) {
	tickers := map[string]map[string]models.CachedTicker{
		"binance": {
			"BTCUSDT": {Provider: "binance", Symbol: "BTCUSDT", Last: f(100)},
			"ETHUSDT": {Provider: "binance", Symbol: "ETHUSDT", Last: f(50)},
		},
		"kraken": {
			"BTCUSDT": {Provider: "kraken", Symbol: "BTCUSDT", Last: f(102)},
		},
	}

	out := AggregateBestPrices([]string{"btcusdt", "ETHUSDT", "SOLUSDT"}, tickers)

	btc, ok := out["BTCUSDT"]
	if !ok {
		t.Fatalf("BTCUSDT missing from aggregation")
	}
	if btc.Best != 102 || btc.BestProvider != "kraken" {
		t.Fatalf("best = %f from %q, want 102 from kraken", btc.Best, btc.BestProvider)
	}
	if btc.SpreadPct == nil {
		t.Fatalf("two providers should produce a spread")
	}
	if math.Abs(*btc.SpreadPct-2.0) > 1e-9 {
		t.Fatalf("spread = %f, want 2.0", *btc.SpreadPct)
	}

	eth, ok := out["ETHUSDT"]
	if !ok {
		t.Fatalf("ETHUSDT missing from aggregation")
	}
	if eth.SpreadPct != nil {
		t.Fatalf("single provider must not produce a spread")
	}
	if eth.Best != 50 || eth.BestProvider != "binance" {
		t.Fatalf("eth best = %f from %q", eth.Best, eth.BestProvider)
	}

	if _, ok := out["SOLUSDT"]; ok {
		t.Fatalf("symbol with no prices should be dropped")
	}
}

func TestTickerCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	tc := NewTickerCache(cache.NewMemoryCache(), time.Minute, testLogger(t))

	in := models.CachedTicker{Provider: "binance", Symbol: "btcusdt", Bid: f(99.5), Ask: f(100.5)}
	if err := tc.SetTicker(ctx, in); err != nil {
		t.Fatalf("set: %v", err)
	}

	got := tc.GetTicker(ctx, "binance", "BTCUSDT")
	if got == nil {
		t.Fatalf("expected a cached snapshot")
	}
	if got.Symbol != "BTCUSDT" {
		t.Fatalf("symbol should be normalized on write, got %q", got.Symbol)
	}
	if got.Ts == 0 {
		t.Fatalf("timestamp should default on write")
	}
	if price, ok := ResolvePrice(got); !ok || price != 100 {
		t.Fatalf("mid price = %f, want 100", price)
	}

	if miss := tc.GetTicker(ctx, "binance", "ETHUSDT"); miss != nil {
		t.Fatalf("unknown symbol should miss, got %+v", miss)
	}
}

func TestLastPriceRoundTrip(t *testing.T) {
	ctx := context.Background()
	tc := NewTickerCache(cache.NewMemoryCache(), time.Minute, testLogger(t))

	if _, ok := tc.LastPrice(ctx, "BTCUSDT"); ok {
		t.Fatalf("empty cache should miss")
	}
	if err := tc.SetLastPrice(ctx, "btcusdt", 64000); err != nil {
		t.Fatalf("set: %v", err)
	}
	price, ok := tc.LastPrice(ctx, "BTCUSDT")
	if !ok || price != 64000 {
		t.Fatalf("got (%f, %v), want (64000, true)", price, ok)
	}
}

func TestBestAcrossProviders(t *testing.T) {
	ctx := context.Background()
	tc := NewTickerCache(cache.NewMemoryCache(), time.Minute, testLogger(t))

	if err := tc.SetTicker(ctx, models.CachedTicker{Provider: "binance", Symbol: "BTCUSDT", Last: f(100)}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := tc.SetTicker(ctx, models.CachedTicker{Provider: "kraken", Symbol: "BTCUSDT", Last: f(101)}); err != nil {
		t.Fatalf("set: %v", err)
	}
	// No last price, only quotes: not eligible for "best last".
	if err := tc.SetTicker(ctx, models.CachedTicker{Provider: "bybit", Symbol: "BTCUSDT", Bid: f(200)}); err != nil {
		t.Fatalf("set: %v", err)
	}

	best := tc.BestAcrossProviders(ctx, "BTCUSDT", []string{"binance", "kraken", "bybit"})
	if best == nil {
		t.Fatalf("expected a winner")
	}
	if best.Provider != "kraken" || *best.Last != 101 {
		t.Fatalf("winner = %q last %v, want kraken 101", best.Provider, best.Last)
	}

	if none := tc.BestAcrossProviders(ctx, "ETHUSDT", []string{"binance"}); none != nil {
		t.Fatalf("no cached values should yield nil, got %+v", none)
	}
}
