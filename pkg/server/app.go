package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SigFlow/internal/marketdata"
	"SigFlow/internal/usecase"
	"SigFlow/pkg/config"
	xhttp "SigFlow/pkg/http"
	"SigFlow/pkg/logger"
	"SigFlow/pkg/queue"
)

// Closer is a named infrastructure teardown callback.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle: queue workers,
// HTTP server, ticker stream and the periodic scanner/alert/digest
// loops.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	queue      *queue.RedisQueue
	httpServer *xhttp.Server
	scanner    *usecase.Scanner
	alerts     *usecase.AlertEvaluator
	digest     *usecase.DigestBuilder
	streamer   *marketdata.Streamer
	closers    []Closer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *logger.Logger,
	q *queue.RedisQueue,
	httpServer *xhttp.Server,
	scanner *usecase.Scanner,
	alerts *usecase.AlertEvaluator,
	digest *usecase.DigestBuilder,
	streamer *marketdata.Streamer,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		queue:      q,
		httpServer: httpServer,
		scanner:    scanner,
		alerts:     alerts,
		digest:     digest,
		streamer:   streamer,
	}
}

// AddCloser registers infrastructure teardown run on shutdown, in
// registration order.
func (a *App) AddCloser(name string, close func() error) {
	a.closers = append(a.closers, Closer{Name: name, Close: close})
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.queue.Start(); err != nil {
		return err
	}
	if err := a.httpServer.Start(); err != nil {
		return err
	}

	if a.streamer != nil {
		go a.streamer.Run(ctx)
	}

	if a.cfg.Scanner.Enabled {
		go a.scanLoop(ctx)
		a.log.Info("scanner started",
			logger.Int("instruments", len(a.cfg.Scanner.Instruments)),
			logger.Duration("interval", a.cfg.Scanner.Interval))
	}

	if a.cfg.Alerts.Enabled {
		go a.alertLoop(ctx)
		a.log.Info("alert evaluator started",
			logger.Duration("interval", a.cfg.Alerts.Interval))
	}

	if a.cfg.Digest.Enabled {
		go a.digestLoop(ctx)
		a.log.Info("digest scheduler started", logger.String("at", a.cfg.Digest.At))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) scanLoop(ctx context.Context) {
	a.scanner.Tick(ctx)

	ticker := time.NewTicker(a.cfg.Scanner.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.scanner.Tick(ctx)
		}
	}
}

func (a *App) alertLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Alerts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.alerts.Tick(ctx, time.Now())
		}
	}
}

// The digest loop wakes every minute; DigestBuilder decides whether the
// send time has been reached and whether today's digest already went
// out.
func (a *App) digestLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.digest.Tick(ctx, time.Now())
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
	}

	if err := a.queue.Stop(shutdownCtx); err != nil {
		a.log.Warn("queue stop error", logger.Error(err))
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close error",
				logger.String("component", c.Name), logger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
