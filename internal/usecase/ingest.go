package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SigFlow/internal/domain/models"
	"SigFlow/internal/domain/repository"
	"SigFlow/internal/marketdata"
	"SigFlow/pkg/logger"
	"SigFlow/pkg/util"
)

// Ingestor turns inbound webhook alerts into signals and pushes them
// through the same dedupe/routing pipeline as scanner signals.
type Ingestor struct {
	defaults  MapDefaults
	tickers   *marketdata.TickerCache
	guard     *DedupeGuard
	emitter   *Emitter
	archive   repository.SignalArchive
	publisher repository.SignalPublisher
	log       *logger.Logger
}

func NewIngestor(
	defaults MapDefaults,
	tickers *marketdata.TickerCache,
	guard *DedupeGuard,
	emitter *Emitter,
	archive repository.SignalArchive,
	publisher repository.SignalPublisher,
	log *logger.Logger,
) *Ingestor {
	return &Ingestor{
		defaults:  defaults,
		tickers:   tickers,
		guard:     guard,
		emitter:   emitter,
		archive:   archive,
		publisher: publisher,
		log:       log,
	}
}

// Ingest maps one webhook envelope to a signal and emits it. Suppression
// by the dedupe guard is a normal outcome, not an error.
func (in *Ingestor) Ingest(ctx context.Context, env models.WebhookEnvelope) error {
	payload := ParsePayload(env.PayloadRaw)

	instrument := in.instrumentOf(payload)
	var fallback *float64
	if price, ok := in.tickers.LastPrice(ctx, instrument); ok {
		fallback = &price
	}

	sig := MapToSignal(payload, in.defaults, fallback, receiptTime(env), env.PayloadRaw)

	if !in.guard.IsAllowed(ctx, sig) {
		in.log.Debug("webhook signal suppressed",
			logger.String("instrument", sig.Instrument),
			logger.String("strategy", sig.Strategy))
		return nil
	}

	if _, err := in.emitter.EmitSignal(ctx, sig); err != nil {
		return fmt.Errorf("emit webhook signal: %w", err)
	}

	if err := in.archive.Insert(ctx, sig); err != nil {
		in.log.Warn("signal archive write failed", logger.Error(err))
	}
	if err := in.publisher.Publish(ctx, sig); err != nil {
		in.log.Warn("signal publish failed", logger.Error(err))
	}

	in.log.Info("webhook alert ingested",
		logger.String("instrument", sig.Instrument),
		logger.String("side", string(sig.Side)),
		logger.String("ip", env.IP))
	return nil
}

// receiptTime reads the envelope's ISO receive timestamp, falling back
// to the current time when it is missing or malformed.
func receiptTime(env models.WebhookEnvelope) time.Time {
	return util.ParseTimeDefault(env.ReceivedAt, time.Now())
}

func (in *Ingestor) instrumentOf(p Payload) string {
	if p.Parsed != nil {
		if s := strings.TrimSpace(p.Parsed.Symbol); s != "" {
			return marketdata.NormalizeSymbol(s)
		}
		if s := strings.TrimSpace(p.Parsed.Ticker); s != "" {
			return marketdata.NormalizeSymbol(s)
		}
	}
	return in.defaults.Instrument
}
