package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"SigFlow/internal/domain/models"
	"SigFlow/internal/domain/repository"
	"SigFlow/internal/marketdata"
	"SigFlow/internal/usecase"
	xhttp "SigFlow/pkg/http"
	"SigFlow/pkg/logger"
	"SigFlow/pkg/queue"
)

const maxWebhookBody = 64 << 10

// Headers worth keeping for audit; everything else is dropped before
// the envelope is enqueued.
var keptHeaders = []string{"Content-Type", "User-Agent", "X-Forwarded-For"}

// HealthChecker is anything with a liveness probe.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler exposes the webhook intake, the cached price lookup and the
// health endpoint.
type Handler struct {
	queue     queue.Publisher
	tickers   *marketdata.TickerCache
	providers []string
	checks    map[string]HealthChecker
	metrics   repository.Metrics
	log       *logger.Logger
}

func NewHandler(
	q queue.Publisher,
	tickers *marketdata.TickerCache,
	providers []string,
	checks map[string]HealthChecker,
	metrics repository.Metrics,
	log *logger.Logger,
) *Handler {
	return &Handler{
		queue:     q,
		tickers:   tickers,
		providers: providers,
		checks:    checks,
		metrics:   metrics,
		log:       log,
	}
}

// RegisterRoutes implements the server's Handler contract.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhook/tradingview", h.handleTradingView)
	e.GET("/price/:symbol", h.handlePrice)
	e.GET("/healthz", h.handleHealth)
}

// handleTradingView accepts any body, wraps it in an envelope and
// enqueues it. Mapping and validation happen in the worker, so the
// response is always fast.
func (h *Handler) handleTradingView(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return xhttp.BadRequestResponse(c, "unreadable body")
	}
	if len(body) == 0 {
		return xhttp.BadRequestResponse(c, "empty body")
	}

	headers := make(map[string]string, len(keptHeaders))
	for _, name := range keptHeaders {
		if v := c.Request().Header.Get(name); v != "" {
			headers[name] = v
		}
	}

	env := models.WebhookEnvelope{
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
		IP:         c.RealIP(),
		Headers:    headers,
		PayloadRaw: body,
	}

	if err := h.queue.PublishMessage(c.Request().Context(), usecase.JobIngestTradingView, env); err != nil {
		h.log.Error("webhook enqueue failed", logger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	h.metrics.RecordJobEnqueued(usecase.JobIngestTradingView)

	return xhttp.AcceptedResponse(c, map[string]string{"state": "queued"})
}

type priceResponse struct {
	Symbol    string             `json:"symbol"`
	Best      float64            `json:"best"`
	Provider  string             `json:"provider"`
	Prices    map[string]float64 `json:"prices"`
	SpreadPct *float64           `json:"spreadPct,omitempty"`
	Bid       *float64           `json:"bid,omitempty"`
	Ask       *float64           `json:"ask,omitempty"`
	Ts        int64              `json:"ts,omitempty"`
}

// handlePrice reads the cached ticker view across the configured
// providers. No upstream call is made; a cold cache is a 404.
func (h *Handler) handlePrice(c echo.Context) error {
	symbol := marketdata.NormalizeSymbol(c.Param("symbol"))
	if symbol == "" {
		return xhttp.BadRequestResponse(c, "symbol required")
	}

	ctx := c.Request().Context()
	agg := h.tickers.AggregateFromCache(ctx, []string{symbol}, h.providers)
	entry, ok := agg[symbol]
	if !ok {
		return xhttp.DataResponse(c, http.StatusNotFound, "no cached price for "+symbol)
	}

	resp := priceResponse{
		Symbol:    symbol,
		Best:      entry.Best,
		Provider:  entry.BestProvider,
		Prices:    entry.Prices,
		SpreadPct: entry.SpreadPct,
	}
	if tk := h.tickers.BestAcrossProviders(ctx, symbol, h.providers); tk != nil {
		resp.Bid = tk.Bid
		resp.Ask = tk.Ask
		resp.Ts = tk.Ts
	}
	return xhttp.SuccessResponse(c, resp)
}

func (h *Handler) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.Health(ctx); err != nil {
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	return xhttp.DataResponse(c, status, components)
}
