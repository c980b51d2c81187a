package repository

import (
	"context"
	"time"

	"SigFlow/internal/domain/models"
)

// RoutingStore reads routing rules and destinations and owns the
// idempotent fallback-destination upsert.
type RoutingStore interface {
	// ActiveRoutingRules returns active rules whose destination is active.
	ActiveRoutingRules(ctx context.Context) ([]models.RoutingRule, error)

	// CountRoutingRules reports how many active rules with an active
	// destination exist. Zero triggers the fallback destination path, so
	// a table holding only disabled rows routes like an empty one.
	CountRoutingRules(ctx context.Context) (int, error)

	// ActiveDestinationsByIDs resolves destination rows; inactive or
	// missing IDs are absent from the result.
	ActiveDestinationsByIDs(ctx context.Context, ids []int64) (map[int64]models.Destination, error)

	// UpsertDefaultDestinations inserts-or-reactivates the configured
	// default destinations keyed by (type, chatId) in one transaction:
	// all rows or none.
	UpsertDefaultDestinations(ctx context.Context, defs []models.Destination) ([]models.Destination, error)

	InstrumentBySymbol(ctx context.Context, symbol string) (*models.Instrument, error)
	StrategyByKey(ctx context.Context, key string) (*models.StrategyRef, error)
}

// AlertStore reads active alert rules and deactivates triggered ones.
type AlertStore interface {
	ActiveAlertRules(ctx context.Context, now time.Time) ([]models.AlertRule, error)
	DeactivateAlertRule(ctx context.Context, id int64) error
}

// ChatConfigStore reads per-chat digest settings.
type ChatConfigStore interface {
	EnabledChatConfigs(ctx context.Context) ([]models.ChatConfig, error)
}

// DigestCursor persists the last-sent digest date so a digest goes out at
// most once per UTC day across process instances.
type DigestCursor interface {
	// TryMarkSent atomically advances the cursor to day (YYYY-MM-DD) and
	// returns true only for the instance that won the advance.
	TryMarkSent(ctx context.Context, day string) (bool, error)
}

// SignalArchive stores emitted signals for digest aggregation and audit.
type SignalArchive interface {
	Insert(ctx context.Context, sig *models.Signal) error
	DayStats(ctx context.Context, since time.Time) (*models.DigestStats, error)
}

// SignalPublisher pushes emitted signals onto the analytics bus.
type SignalPublisher interface {
	Publish(ctx context.Context, sig *models.Signal) error
}

// Notifier is the outbound messaging transport. Best-effort; the queue
// layer provides retries.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string, parseMode string) error
}

// Metrics records operational counters.
type Metrics interface {
	RecordSignalEmitted(strategy, instrument string)
	RecordSignalSuppressed(reason string)
	RecordJobEnqueued(jobType string)
	RecordAlertTriggered(alertType string)
	RecordDigestSent()
	RecordFetchError(provider string)
	RecordLastPrice(symbol string, price float64)
}
