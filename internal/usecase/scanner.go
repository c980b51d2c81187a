package usecase

import (
	"context"
	"time"

	"SigFlow/internal/domain/models"
	"SigFlow/internal/domain/repository"
	"SigFlow/internal/marketdata"
	"SigFlow/internal/strategy"
	"SigFlow/pkg/logger"
)

// ScanTarget is one (instrument, interval) pair the scanner watches.
type ScanTarget struct {
	Symbol    string
	AssetType models.AssetType
	Interval  string
}

// Scanner drives the periodic market sweep: fetch candles, run every
// evaluator, and push surviving signals through dedupe, routing and
// archival.
type Scanner struct {
	targets     []ScanTarget
	candleLimit int
	feeds       *marketdata.FeedRegistry
	strategies  *strategy.Registry
	guard       *DedupeGuard
	emitter     *Emitter
	archive     repository.SignalArchive
	publisher   repository.SignalPublisher
	metrics     repository.Metrics
	log         *logger.Logger
}

func NewScanner(
	targets []ScanTarget,
	candleLimit int,
	feeds *marketdata.FeedRegistry,
	strategies *strategy.Registry,
	guard *DedupeGuard,
	emitter *Emitter,
	archive repository.SignalArchive,
	publisher repository.SignalPublisher,
	metrics repository.Metrics,
	log *logger.Logger,
) *Scanner {
	if candleLimit <= 0 {
		candleLimit = 200
	}
	return &Scanner{
		targets:     targets,
		candleLimit: candleLimit,
		feeds:       feeds,
		strategies:  strategies,
		guard:       guard,
		emitter:     emitter,
		archive:     archive,
		publisher:   publisher,
		metrics:     metrics,
		log:         log,
	}
}

// Tick sweeps every configured target once. A failing target is logged
// and skipped so the rest of the sweep proceeds.
func (s *Scanner) Tick(ctx context.Context) {
	start := time.Now()
	emitted := 0

	for _, target := range s.targets {
		n, err := s.scanTarget(ctx, target)
		if err != nil {
			s.log.Error("scan failed",
				logger.String("symbol", target.Symbol),
				logger.String("interval", target.Interval),
				logger.Error(err))
			continue
		}
		emitted += n
	}

	s.log.Debug("scan sweep finished",
		logger.Int("targets", len(s.targets)),
		logger.Int("signals", emitted),
		logger.Duration("took", time.Since(start)))
}

func (s *Scanner) scanTarget(ctx context.Context, target ScanTarget) (int, error) {
	provider, ok := s.feeds.Provider(target.AssetType)
	if !ok {
		s.log.Warn("no candle provider for asset type",
			logger.String("assetType", string(target.AssetType)))
		return 0, nil
	}

	symbol := marketdata.NormalizeSymbol(target.Symbol)
	candles, err := provider.Candles(ctx, symbol, target.Interval, s.candleLimit)
	if err != nil {
		s.metrics.RecordFetchError(provider.Name())
		return 0, err
	}
	if len(candles) == 0 {
		return 0, nil
	}

	window := strategy.Window{
		Instrument: symbol,
		AssetType:  target.AssetType,
		Interval:   target.Interval,
		Candles:    candles,
	}

	emitted := 0
	for _, ev := range s.strategies.Evaluators() {
		sig := ev.Evaluate(window)
		if sig == nil {
			continue
		}
		if !s.guard.IsAllowed(ctx, sig) {
			continue
		}

		if _, err := s.emitter.EmitSignal(ctx, sig); err != nil {
			s.log.Error("signal emit failed",
				logger.String("strategy", sig.Strategy),
				logger.String("instrument", sig.Instrument),
				logger.Error(err))
			continue
		}
		emitted++
		s.recordSignal(ctx, sig)
	}
	return emitted, nil
}

// Archival and publishing are best-effort; a broken sink never blocks
// delivery.
func (s *Scanner) recordSignal(ctx context.Context, sig *models.Signal) {
	if err := s.archive.Insert(ctx, sig); err != nil {
		s.log.Warn("signal archive write failed", logger.Error(err))
	}
	if err := s.publisher.Publish(ctx, sig); err != nil {
		s.log.Warn("signal publish failed", logger.Error(err))
	}
}
