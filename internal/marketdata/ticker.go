package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"SigFlow/internal/domain/models"
	"SigFlow/pkg/cache"
	"SigFlow/pkg/logger"
)

// TickerCache is the short-TTL per-(provider, symbol) ticker store.
// Cache read or parse failures are treated as misses, never surfaced
// as errors.
type TickerCache struct {
	cache cache.Service
	ttl   time.Duration
	log   *logger.Logger
}

func NewTickerCache(c cache.Service, ttl time.Duration, log *logger.Logger) *TickerCache {
	if ttl <= 0 {
		ttl = 120 * time.Second
	}
	return &TickerCache{cache: c, ttl: ttl, log: log}
}

// NormalizeSymbol trims and uppercases a symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func tickerKey(provider, symbol string) string {
	return fmt.Sprintf("md:ticker:%s:%s",
		strings.ToLower(strings.TrimSpace(provider)), NormalizeSymbol(symbol))
}

func lastPriceKey(symbol string) string {
	return "price:last:" + NormalizeSymbol(symbol)
}

// SetTicker replaces the cached snapshot for (provider, symbol).
func (t *TickerCache) SetTicker(ctx context.Context, tk models.CachedTicker) error {
	tk.Symbol = NormalizeSymbol(tk.Symbol)
	if tk.Ts == 0 {
		tk.Ts = time.Now().UnixMilli()
	}
	return t.cache.Set(ctx, tickerKey(tk.Provider, tk.Symbol), tk, t.ttl)
}

// GetTicker returns the cached snapshot or nil on miss/parse failure.
func (t *TickerCache) GetTicker(ctx context.Context, provider, symbol string) *models.CachedTicker {
	var tk models.CachedTicker
	err := t.cache.Get(ctx, tickerKey(provider, symbol), &tk)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			t.log.Debug("ticker cache read failed, treating as miss",
				logger.String("provider", provider),
				logger.String("symbol", symbol),
				logger.Error(err))
		}
		return nil
	}
	return &tk
}

// GetTickers batch-reads snapshots for one provider. Missing or
// unparseable entries are silently dropped.
func (t *TickerCache) GetTickers(ctx context.Context, provider string, symbols []string) (map[string]models.CachedTicker, error) {
	keys := make([]string, len(symbols))
	bySymbol := make(map[string]string, len(symbols))
	for i, s := range symbols {
		n := NormalizeSymbol(s)
		keys[i] = tickerKey(provider, n)
		bySymbol[keys[i]] = n
	}

	typed, err := cache.MGetTyped[models.CachedTicker](ctx, t.cache, keys...)
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.CachedTicker, len(typed))
	for key, tk := range typed {
		out[bySymbol[key]] = tk
	}
	return out, nil
}

// SetLastPrice records the single-provider last-price entry used by the
// alert/digest paths.
func (t *TickerCache) SetLastPrice(ctx context.Context, symbol string, price float64) error {
	return t.cache.Set(ctx, lastPriceKey(symbol), price, t.ttl)
}

// LastPrice reads the last-price entry; a miss returns (0, false).
func (t *TickerCache) LastPrice(ctx context.Context, symbol string) (float64, bool) {
	var p float64
	if err := t.cache.Get(ctx, lastPriceKey(symbol), &p); err != nil {
		return 0, false
	}
	return p, true
}

func finite(p *float64) bool {
	return p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0)
}

// ResolvePrice picks a usable price from a snapshot: last if finite,
// else the bid/ask mid, else bid, else ask.
func ResolvePrice(tk *models.CachedTicker) (float64, bool) {
	if tk == nil {
		return 0, false
	}
	switch {
	case finite(tk.Last):
		return *tk.Last, true
	case finite(tk.Bid) && finite(tk.Ask):
		return (*tk.Bid + *tk.Ask) / 2, true
	case finite(tk.Bid):
		return *tk.Bid, true
	case finite(tk.Ask):
		return *tk.Ask, true
	default:
		return 0, false
	}
}

// BestPrice is the cross-provider aggregation result for one symbol.
type BestPrice struct {
	Symbol       string
	Prices       map[string]float64 // provider → resolved price
	Best         float64
	BestProvider string
	SpreadPct    *float64 // nil unless ≥2 providers had a price
}

// AggregateBestPrices merges per-provider snapshots per symbol. Symbols
// with no resolvable price on any provider are dropped. Spread is
// (max-min)/min*100 across providers.
func AggregateBestPrices(symbols []string, providerTickers map[string]map[string]models.CachedTicker) map[string]BestPrice {
	out := make(map[string]BestPrice)

	for _, raw := range symbols {
		symbol := NormalizeSymbol(raw)
		prices := make(map[string]float64)
		best := math.Inf(-1)
		bestProvider := ""
		min := math.Inf(1)

		for provider, tickers := range providerTickers {
			tk, ok := tickers[symbol]
			if !ok {
				continue
			}
			price, ok := ResolvePrice(&tk)
			if !ok {
				continue
			}
			prices[provider] = price
			if price > best {
				best = price
				bestProvider = provider
			}
			if price < min {
				min = price
			}
		}

		if len(prices) == 0 {
			continue
		}

		bp := BestPrice{
			Symbol:       symbol,
			Prices:       prices,
			Best:         best,
			BestProvider: bestProvider,
		}
		if len(prices) >= 2 && min > 0 {
			spread := (best - min) / min * 100
			bp.SpreadPct = &spread
		}
		out[symbol] = bp
	}
	return out
}

// AggregateFromCache fetches per-provider snapshots and aggregates them.
// A provider whose batch read fails is skipped.
func (t *TickerCache) AggregateFromCache(ctx context.Context, symbols, providers []string) map[string]BestPrice {
	providerTickers := make(map[string]map[string]models.CachedTicker, len(providers))
	for _, p := range providers {
		m, err := t.GetTickers(ctx, p, symbols)
		if err != nil {
			t.log.Warn("ticker batch read failed",
				logger.String("provider", p), logger.Error(err))
			continue
		}
		providerTickers[p] = m
	}
	return AggregateBestPrices(symbols, providerTickers)
}

// BestAcrossProviders queries all providers concurrently and returns the
// snapshot with the highest finite last price, or nil when no provider
// has a cached value.
func (t *TickerCache) BestAcrossProviders(ctx context.Context, symbol string, providers []string) *models.CachedTicker {
	var (
		mu   sync.Mutex
		best *models.CachedTicker
		wg   sync.WaitGroup
	)

	for _, p := range providers {
		wg.Add(1)
		go func(provider string) {
			defer wg.Done()
			tk := t.GetTicker(ctx, provider, symbol)
			if tk == nil || !finite(tk.Last) {
				return
			}
			mu.Lock()
			if best == nil || *tk.Last > *best.Last {
				best = tk
			}
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	return best
}
