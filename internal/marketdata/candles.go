package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"SigFlow/internal/domain/models"
	xhttp "SigFlow/pkg/http"
	"SigFlow/pkg/logger"
)

// CandleProvider serves OHLCV history and spot prices for one venue.
type CandleProvider interface {
	Name() string
	Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

// FeedRegistry maps asset types to their candle provider.
type FeedRegistry struct {
	providers map[models.AssetType]CandleProvider
}

func NewFeedRegistry() *FeedRegistry {
	return &FeedRegistry{providers: make(map[models.AssetType]CandleProvider)}
}

func (r *FeedRegistry) Register(at models.AssetType, p CandleProvider) {
	r.providers[at] = p
}

func (r *FeedRegistry) Provider(at models.AssetType) (CandleProvider, bool) {
	p, ok := r.providers[at]
	return p, ok
}

// BinanceClient pulls klines and spot prices from a Binance-compatible
// REST endpoint. The gold feed reuses this client with a different base
// URL since the metals venue mirrors the same API shape.
type BinanceClient struct {
	name    string
	baseURL string
	hc      *xhttp.Client
	tickers *TickerCache
	log     *logger.Logger
}

func NewBinanceClient(name, baseURL string, timeout time.Duration, tickers *TickerCache, log *logger.Logger) *BinanceClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BinanceClient{
		name:    name,
		baseURL: baseURL,
		hc:      xhttp.NewClient(xhttp.WithTimeout(timeout)),
		tickers: tickers,
		log:     log,
	}
}

func (c *BinanceClient) Name() string { return c.name }

// Candles fetches up to limit klines, oldest first. The latest close is
// written through to the last-price cache as a side effect.
func (c *BinanceClient) Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	symbol = NormalizeSymbol(symbol)

	var rows [][]any
	err := c.hc.SendAndParse(ctx, &xhttp.RequestOptions{
		URL: c.baseURL + "/api/v3/klines",
		QueryParams: url.Values{
			"symbol":   {symbol},
			"interval": {interval},
			"limit":    {strconv.Itoa(limit)},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("%s klines for %s: %w", c.name, symbol, err)
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("parse kline for %s: %w", symbol, err)
		}
		candles = append(candles, candle)
	}

	if len(candles) > 0 && c.tickers != nil {
		last := candles[len(candles)-1].Close
		if err := c.tickers.SetLastPrice(ctx, symbol, last); err != nil {
			c.log.Debug("last price write failed",
				logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return candles, nil
}

// Kline rows arrive as a mixed array: numeric open/close times and
// string-encoded prices.
func parseKline(row []any) (models.Candle, error) {
	if len(row) < 7 {
		return models.Candle{}, fmt.Errorf("kline row has %d fields, want at least 7", len(row))
	}

	openTime, ok := row[0].(float64)
	if !ok {
		return models.Candle{}, fmt.Errorf("open time is %T, want number", row[0])
	}
	closeTime, ok := row[6].(float64)
	if !ok {
		return models.Candle{}, fmt.Errorf("close time is %T, want number", row[6])
	}

	vals := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		s, ok := row[i].(string)
		if !ok {
			return models.Candle{}, fmt.Errorf("field %d is %T, want string", i, row[i])
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i, err)
		}
		vals[i-1] = f
	}

	return models.Candle{
		OpenTime:  int64(openTime),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
		CloseTime: int64(closeTime),
	}, nil
}

// LastPrice serves from the price cache when possible, falling back to a
// ticker request.
func (c *BinanceClient) LastPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = NormalizeSymbol(symbol)
	if c.tickers != nil {
		if p, ok := c.tickers.LastPrice(ctx, symbol); ok {
			return p, nil
		}
	}

	var out struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	err := c.hc.SendAndParse(ctx, &xhttp.RequestOptions{
		URL:         c.baseURL + "/api/v3/ticker/price",
		QueryParams: url.Values{"symbol": {symbol}},
	}, &out)
	if err != nil {
		return 0, fmt.Errorf("%s ticker for %s: %w", c.name, symbol, err)
	}

	price, err := strconv.ParseFloat(out.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s price %q: %w", symbol, out.Price, err)
	}

	if c.tickers != nil {
		if err := c.tickers.SetLastPrice(ctx, symbol, price); err != nil {
			c.log.Debug("last price write failed",
				logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return price, nil
}
