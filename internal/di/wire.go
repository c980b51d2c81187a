//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"SigFlow/pkg/config"
	"SigFlow/pkg/server"
)

// InitializeApp wires the full application graph.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideCache,
		ProvideCacheService,
		ProvideQueue,
		ProvidePublisher,
		ProvideMetrics,
		ProvideMetricsRecorder,
		ProvideStore,
		ProvideArchive,
		ProvideSignalPublisher,
		ProvideNotifier,
		ProvideTickerCache,
		ProvideFeeds,
		ProvideStreamer,
		ProvideStrategies,
		ProvideGuard,
		ProvideDefaultDestinations,
		ProvideRouter,
		ProvideEmitter,
		ProvideScanner,
		ProvideAlertEvaluator,
		ProvideDigestBuilder,
		ProvideIngestor,
		ProvideJobs,
		ProvideHandler,
		ProvideHTTPServer,
		server.New,
	)
	return nil, nil
}
