package jobs

import (
	"context"
	"fmt"

	"SigFlow/internal/domain/models"
	"SigFlow/internal/usecase"
	"SigFlow/pkg/queue"
)

// IngestWebhookJob processes queued webhook envelopes off the request
// path.
type IngestWebhookJob struct {
	ingestor *usecase.Ingestor
}

func NewIngestWebhookJob(ingestor *usecase.Ingestor) *IngestWebhookJob {
	return &IngestWebhookJob{ingestor: ingestor}
}

func (j *IngestWebhookJob) Name() string { return "tradingview_ingestor" }
func (j *IngestWebhookJob) Type() string { return usecase.JobIngestTradingView }

func (j *IngestWebhookJob) Handle(ctx context.Context, payload interface{}) error {
	env, err := queue.ParsePayload[models.WebhookEnvelope](payload)
	if err != nil {
		return fmt.Errorf("parse webhook envelope: %w", err)
	}
	return j.ingestor.Ingest(ctx, *env)
}
