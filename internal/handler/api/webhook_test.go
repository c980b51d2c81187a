package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"SigFlow/internal/domain/models"
	"SigFlow/internal/marketdata"
	"SigFlow/pkg/cache"
	"SigFlow/pkg/logger"
)

type fakePublisher struct {
	msgTypes []string
	payloads []interface{}
	err      error
}

func (p *fakePublisher) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.msgTypes = append(p.msgTypes, msgType)
	p.payloads = append(p.payloads, payload)
	return nil
}

type nopMetrics struct{}

func (nopMetrics) RecordSignalEmitted(strategy, instrument string) {}
func (nopMetrics) RecordSignalSuppressed(reason string)            {}
func (nopMetrics) RecordJobEnqueued(jobType string)                {}
func (nopMetrics) RecordAlertTriggered(alertType string)           {}
func (nopMetrics) RecordDigestSent()                               {}
func (nopMetrics) RecordFetchError(provider string)                {}
func (nopMetrics) RecordLastPrice(symbol string, price float64)    {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func f(v float64) *float64 { return &v }

func newTestHandler(t *testing.T, pub *fakePublisher, providers []string) (*Handler, *marketdata.TickerCache) {
	t.Helper()
	tickers := marketdata.NewTickerCache(cache.NewMemoryCache(), time.Minute, testLogger(t))
	h := NewHandler(pub, tickers, providers, nil, nopMetrics{}, testLogger(t))
	return h, tickers
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestWebhookEnqueuesEnvelope(t *testing.T) {
	pub := &fakePublisher{}
	h, _ := newTestHandler(t, pub, nil)

	body := `{"signal":"buy","symbol":"BTCUSDT"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/tradingview", strings.NewReader(body))
	rec := serve(h, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(pub.payloads) != 1 {
		t.Fatalf("expected one enqueued envelope, got %d", len(pub.payloads))
	}

	env, ok := pub.payloads[0].(models.WebhookEnvelope)
	if !ok {
		t.Fatalf("payload type = %T", pub.payloads[0])
	}
	if string(env.PayloadRaw) != body {
		t.Fatalf("raw body lost: %q", env.PayloadRaw)
	}
	if _, err := time.Parse(time.RFC3339, env.ReceivedAt); err != nil {
		t.Fatalf("receivedAt should be RFC3339, got %q: %v", env.ReceivedAt, err)
	}
}

func TestWebhookRejectsEmptyBody(t *testing.T) {
	pub := &fakePublisher{}
	h, _ := newTestHandler(t, pub, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook/tradingview", nil)
	rec := serve(h, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(pub.payloads) != 0 {
		t.Fatalf("empty body must not be enqueued")
	}
}

func TestPriceAggregatesConfiguredProviders(t *testing.T) {
	h, tickers := newTestHandler(t, &fakePublisher{}, []string{"binance", "kraken"})

	ctx := context.Background()
	if err := tickers.SetTicker(ctx, models.CachedTicker{
		Provider: "binance", Symbol: "BTCUSDT", Last: f(100),
	}); err != nil {
		t.Fatalf("seed binance: %v", err)
	}
	if err := tickers.SetTicker(ctx, models.CachedTicker{
		Provider: "kraken", Symbol: "BTCUSDT", Last: f(102),
	}); err != nil {
		t.Fatalf("seed kraken: %v", err)
	}

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/price/btcusdt", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data priceResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Symbol != "BTCUSDT" {
		t.Fatalf("symbol = %q", resp.Data.Symbol)
	}
	if resp.Data.Best != 102 || resp.Data.Provider != "kraken" {
		t.Fatalf("best = %f from %q, want 102 from kraken", resp.Data.Best, resp.Data.Provider)
	}
	if len(resp.Data.Prices) != 2 {
		t.Fatalf("prices = %v, want both providers", resp.Data.Prices)
	}
	if resp.Data.SpreadPct == nil || *resp.Data.SpreadPct < 1.9 || *resp.Data.SpreadPct > 2.1 {
		t.Fatalf("spreadPct = %v, want ~2.0", resp.Data.SpreadPct)
	}
}

func TestPriceColdCacheIs404(t *testing.T) {
	h, _ := newTestHandler(t, &fakePublisher{}, []string{"binance"})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/price/ethusdt", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
