package di

import (
	"context"
	"fmt"
	"time"

	"SigFlow/internal/domain/models"
	domainrepo "SigFlow/internal/domain/repository"
	"SigFlow/internal/handler/api"
	"SigFlow/internal/jobs"
	"SigFlow/internal/marketdata"
	"SigFlow/internal/repository"
	"SigFlow/internal/strategy"
	"SigFlow/internal/telegram"
	"SigFlow/internal/usecase"
	"SigFlow/pkg/cache"
	"SigFlow/pkg/clickhouse"
	"SigFlow/pkg/config"
	xhttp "SigFlow/pkg/http"
	"SigFlow/pkg/kafka"
	"SigFlow/pkg/logger"
	"SigFlow/pkg/metrics"
	"SigFlow/pkg/queue"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideCache connects the Redis cache.
func ProvideCache(cfg *config.Config) (*cache.RedisCache, error) {
	return cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
}

// ProvideCacheService exposes the Redis cache behind the Service
// contract.
func ProvideCacheService(rc *cache.RedisCache) cache.Service {
	return rc
}

// ProvideQueue builds the Redis-backed delivery queue sharing the cache
// connection.
func ProvideQueue(cfg *config.Config, log *logger.Logger, rc *cache.RedisCache) *queue.RedisQueue {
	return queue.NewRedisQueue(log, &queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc.Client(), queue.ModeProducerConsumer,
		queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
}

// ProvidePublisher narrows the queue to its producer side.
func ProvidePublisher(q *queue.RedisQueue) queue.Publisher {
	return q
}

// ProvideMetrics builds the Prometheus recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideMetricsRecorder exposes the recorder behind the domain
// contract.
func ProvideMetricsRecorder(r *metrics.Recorder) domainrepo.Metrics {
	return r
}

// ProvideStore connects Postgres and runs migrations.
func ProvideStore(cfg *config.Config, log *logger.Logger) (*repository.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return repository.NewStore(ctx, cfg.Postgres.DSN, log)
}

// ProvideArchive connects ClickHouse when enabled, otherwise a noop
// sink. The returned client is nil in noop mode.
func ProvideArchive(cfg *config.Config, log *logger.Logger) (domainrepo.SignalArchive, *clickhouse.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return repository.NoopArchive{}, nil, nil
	}

	client, err := clickhouse.NewClient(
		clickhouse.WithHost(cfg.ClickHouse.Host),
		clickhouse.WithPort(cfg.ClickHouse.Port),
		clickhouse.WithDatabase(cfg.ClickHouse.Database),
		clickhouse.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	archive, err := repository.NewClickHouseArchive(ctx, client, log)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return archive, client, nil
}

// ProvideSignalPublisher connects the Kafka producer when enabled,
// otherwise a noop publisher. The returned closer is nil in noop mode.
func ProvideSignalPublisher(cfg *config.Config) (domainrepo.SignalPublisher, *repository.KafkaPublisher, error) {
	if !cfg.Kafka.Enabled {
		return repository.NoopPublisher{}, nil, nil
	}

	producer, err := kafka.NewProducer(
		kafka.WithBrokers(cfg.Kafka.Brokers),
		kafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka connect: %w", err)
	}

	pub := repository.NewKafkaPublisher(producer, cfg.Kafka.Topic)
	return pub, pub, nil
}

// ProvideNotifier builds the Telegram transport, degrading to a logging
// notifier when no token is configured.
func ProvideNotifier(cfg *config.Config, log *logger.Logger) (domainrepo.Notifier, error) {
	if cfg.Telegram.Token == "" {
		log.Warn("telegram token not set, outbound messages will only be logged")
		return telegram.NewLogNotifier(log), nil
	}
	return telegram.NewClient(cfg.Telegram.Token, log)
}

// ProvideTickerCache builds the short-TTL ticker store.
func ProvideTickerCache(cfg *config.Config, svc cache.Service, log *logger.Logger) *marketdata.TickerCache {
	return marketdata.NewTickerCache(svc, cfg.MarketData.TickerTTL, log)
}

// ProvideFeeds registers one candle provider per asset type. The gold
// feed falls back to the main venue when no dedicated endpoint is set;
// XAU pairs trade there too.
func ProvideFeeds(cfg *config.Config, tickers *marketdata.TickerCache, log *logger.Logger) *marketdata.FeedRegistry {
	feeds := marketdata.NewFeedRegistry()
	feeds.Register(models.AssetCrypto, marketdata.NewBinanceClient(
		"binance", cfg.MarketData.BinanceBaseURL, cfg.MarketData.RequestTimeout, tickers, log))

	goldBase := cfg.MarketData.GoldBaseURL
	if goldBase == "" {
		goldBase = cfg.MarketData.BinanceBaseURL
	}
	feeds.Register(models.AssetGold, marketdata.NewBinanceClient(
		"gold", goldBase, cfg.MarketData.RequestTimeout, tickers, log))
	return feeds
}

// ProvideStreamer builds the websocket ticker streamer.
func ProvideStreamer(cfg *config.Config, tickers *marketdata.TickerCache, log *logger.Logger) *marketdata.Streamer {
	return marketdata.NewStreamer(
		cfg.MarketData.StreamURL,
		"binance",
		cfg.MarketData.StreamSymbols,
		cfg.MarketData.ReconnectDelay,
		tickers,
		log,
	)
}

// ProvideStrategies builds the evaluator registry from tuning config.
func ProvideStrategies(cfg *config.Config) *strategy.Registry {
	return strategy.NewRegistry(strategy.Params{
		RSIPeriod:        cfg.Strategies.RSIPeriod,
		RSIBuyThreshold:  cfg.Strategies.RSIBuyThreshold,
		RSISellThreshold: cfg.Strategies.RSISellThreshold,
		EMAFast:          cfg.Strategies.EMAFast,
		EMASlow:          cfg.Strategies.EMASlow,
		BreakoutLookback: cfg.Strategies.BreakoutLookback,
		MACDFast:         cfg.Strategies.MACDFast,
		MACDSlow:         cfg.Strategies.MACDSlow,
		MACDSignal:       cfg.Strategies.MACDSignal,
	})
}

// ProvideGuard builds the dedupe/cooldown guard.
func ProvideGuard(cfg *config.Config, svc cache.Service, m domainrepo.Metrics, log *logger.Logger) *usecase.DedupeGuard {
	return usecase.NewDedupeGuard(svc, cfg.Dedupe.TTL, cfg.Dedupe.Cooldown, m, log)
}

// ProvideDefaultDestinations derives the fallback destinations from the
// configured group and channel.
func ProvideDefaultDestinations(cfg *config.Config) []models.Destination {
	var defs []models.Destination
	if cfg.Telegram.GroupID != 0 {
		defs = append(defs, models.Destination{
			Type: models.DestGroup, ChatID: cfg.Telegram.GroupID, Title: "default group",
		})
	}
	if cfg.Telegram.ChannelID != 0 {
		defs = append(defs, models.Destination{
			Type: models.DestChannel, ChatID: cfg.Telegram.ChannelID, Title: "default channel",
		})
	}
	return defs
}

// ProvideRouter builds the destination resolver.
func ProvideRouter(store *repository.Store, defs []models.Destination, log *logger.Logger) *usecase.Router {
	return usecase.NewRouter(store, defs, log)
}

// ProvideEmitter builds the signal fan-out.
func ProvideEmitter(pub queue.Publisher, router *usecase.Router, m domainrepo.Metrics, log *logger.Logger) *usecase.Emitter {
	return usecase.NewEmitter(pub, router, m, log)
}

// ProvideScanner builds the periodic market sweep from the configured
// instrument list.
func ProvideScanner(
	cfg *config.Config,
	feeds *marketdata.FeedRegistry,
	strategies *strategy.Registry,
	guard *usecase.DedupeGuard,
	emitter *usecase.Emitter,
	archive domainrepo.SignalArchive,
	publisher domainrepo.SignalPublisher,
	m domainrepo.Metrics,
	log *logger.Logger,
) *usecase.Scanner {
	targets := make([]usecase.ScanTarget, 0, len(cfg.Scanner.Instruments))
	for _, inst := range cfg.Scanner.Instruments {
		targets = append(targets, usecase.ScanTarget{
			Symbol:    inst.Symbol,
			AssetType: models.AssetType(inst.AssetType),
			Interval:  inst.Interval,
		})
	}
	return usecase.NewScanner(targets, cfg.Scanner.CandleLimit,
		feeds, strategies, guard, emitter, archive, publisher, m, log)
}

// ProvideAlertEvaluator builds the one-shot alert loop.
func ProvideAlertEvaluator(
	cfg *config.Config,
	store *repository.Store,
	feeds *marketdata.FeedRegistry,
	emitter *usecase.Emitter,
	m domainrepo.Metrics,
	log *logger.Logger,
) *usecase.AlertEvaluator {
	return usecase.NewAlertEvaluator(store, store, feeds, emitter, m, cfg.GoldAllowlist(), log)
}

// ProvideDigestBuilder builds the daily digest scheduler.
func ProvideDigestBuilder(
	cfg *config.Config,
	store *repository.Store,
	archive domainrepo.SignalArchive,
	emitter *usecase.Emitter,
	m domainrepo.Metrics,
	log *logger.Logger,
) *usecase.DigestBuilder {
	return usecase.NewDigestBuilder(usecase.DigestConfig{
		Enabled:   cfg.Digest.Enabled,
		At:        cfg.Digest.At,
		ToGroup:   cfg.Digest.ToGroup,
		ToChannel: cfg.Digest.ToChannel,
		GroupID:   cfg.Telegram.GroupID,
		ChannelID: cfg.Telegram.ChannelID,
	}, store, archive, store, emitter, m, log)
}

// ProvideIngestor builds the webhook signal pipeline. Mapping defaults
// come from the first scanned instrument so a bare alert still lands
// somewhere sensible.
func ProvideIngestor(
	cfg *config.Config,
	tickers *marketdata.TickerCache,
	guard *usecase.DedupeGuard,
	emitter *usecase.Emitter,
	archive domainrepo.SignalArchive,
	publisher domainrepo.SignalPublisher,
	log *logger.Logger,
) *usecase.Ingestor {
	defaults := usecase.MapDefaults{
		AssetType:  models.AssetCrypto,
		Instrument: "BTCUSDT",
		Interval:   "15m",
		Strategy:   "tradingview",
	}
	if len(cfg.Scanner.Instruments) > 0 {
		first := cfg.Scanner.Instruments[0]
		defaults.AssetType = models.AssetType(first.AssetType)
		defaults.Instrument = first.Symbol
		defaults.Interval = first.Interval
	}
	return usecase.NewIngestor(defaults, tickers, guard, emitter, archive, publisher, log)
}

// ProvideJobs lists the queue job handlers.
func ProvideJobs(notifier domainrepo.Notifier, ingestor *usecase.Ingestor, log *logger.Logger) []queue.Job {
	return []queue.Job{
		jobs.NewSendSignalJob(notifier, log),
		jobs.NewSendTextJob(notifier, log),
		jobs.NewIngestWebhookJob(ingestor),
	}
}

// ProvideHandler builds the HTTP surface with its health checks.
func ProvideHandler(
	cfg *config.Config,
	pub queue.Publisher,
	rc *cache.RedisCache,
	store *repository.Store,
	tickers *marketdata.TickerCache,
	m domainrepo.Metrics,
	log *logger.Logger,
) *api.Handler {
	checks := map[string]api.HealthChecker{
		"redis":    rc,
		"postgres": store,
	}
	return api.NewHandler(pub, tickers, cfg.MarketData.Providers, checks, m, log)
}

// ProvideHTTPServer builds the Echo server.
func ProvideHTTPServer(cfg *config.Config, handler *api.Handler, log *logger.Logger) *xhttp.Server {
	return xhttp.NewServer(handler, log,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	)
}
