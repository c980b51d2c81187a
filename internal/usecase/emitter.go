package usecase

import (
	"context"
	"fmt"

	"SigFlow/internal/domain/models"
	"SigFlow/internal/domain/repository"
	"SigFlow/pkg/logger"
	"SigFlow/pkg/queue"
)

// Queue job types handled by the worker pool.
const (
	JobSendTelegramSignal = "sendTelegramSignal"
	JobSendTelegramText   = "sendTelegramText"
	JobIngestTradingView  = "ingestTradingViewAlert"
)

// Emitter fans an approved signal out to its destinations by enqueueing
// one delivery job per destination. Delivery itself is asynchronous.
type Emitter struct {
	queue   queue.Publisher
	router  *Router
	metrics repository.Metrics
	log     *logger.Logger
}

func NewEmitter(q queue.Publisher, router *Router, metrics repository.Metrics, log *logger.Logger) *Emitter {
	return &Emitter{queue: q, router: router, metrics: metrics, log: log}
}

// EmitSignal resolves destinations and enqueues one job per destination.
// Returns the number of jobs enqueued.
func (e *Emitter) EmitSignal(ctx context.Context, sig *models.Signal) (int, error) {
	dests, err := e.router.ResolveDestinations(ctx, sig)
	if err != nil {
		return 0, fmt.Errorf("resolve destinations: %w", err)
	}
	if len(dests) == 0 {
		e.log.Debug("signal matched no destinations",
			logger.String("instrument", sig.Instrument),
			logger.String("strategy", sig.Strategy))
		return 0, nil
	}

	enqueued := 0
	for _, dest := range dests {
		msg := models.SignalMessage{ChatID: dest.ChatID, Signal: sig}
		if err := e.queue.PublishMessage(ctx, JobSendTelegramSignal, msg); err != nil {
			e.log.Error("signal job enqueue failed",
				logger.Int64("chatId", dest.ChatID), logger.Error(err))
			continue
		}
		e.metrics.RecordJobEnqueued(JobSendTelegramSignal)
		enqueued++
	}

	if enqueued > 0 {
		e.metrics.RecordSignalEmitted(sig.Strategy, sig.Instrument)
		e.log.Info("signal emitted",
			logger.String("instrument", sig.Instrument),
			logger.String("strategy", sig.Strategy),
			logger.String("side", string(sig.Side)),
			logger.Int("destinations", enqueued))
	}
	return enqueued, nil
}

// EmitText enqueues a plain text delivery to a single chat.
func (e *Emitter) EmitText(ctx context.Context, chatID int64, text, parseMode string) error {
	msg := models.TextMessage{ChatID: chatID, Text: text, ParseMode: parseMode}
	if err := e.queue.PublishMessage(ctx, JobSendTelegramText, msg); err != nil {
		return fmt.Errorf("enqueue text for chat %d: %w", chatID, err)
	}
	e.metrics.RecordJobEnqueued(JobSendTelegramText)
	return nil
}
