package models

import "time"

// AlertType is the trigger predicate of a one-shot alert rule.
type AlertType string

const (
	AlertUpPct   AlertType = "UP_PCT"
	AlertDownPct AlertType = "DOWN_PCT"
	AlertTP1     AlertType = "TP1"
)

// AlertRule is a user-configured one-shot threshold alert. The core only
// ever flips IsActive to false on trigger; rules are created and deleted
// elsewhere.
type AlertRule struct {
	ID         int64
	UserID     int64
	Instrument string
	Type       AlertType
	BasePrice  *float64
	Threshold  *float64
	IsActive   bool
	ExpiresAt  *time.Time
}

// RoutingRule maps signal attributes to a destination. Nil fields are
// wildcards and always match.
type RoutingRule struct {
	ID            int64
	AssetType     *AssetType
	InstrumentID  *int64
	StrategyID    *int64
	Interval      *string
	MinConfidence *int
	DestinationID int64
	IsActive      bool
}

// DestinationType distinguishes outbound chat targets.
type DestinationType string

const (
	DestGroup   DestinationType = "GROUP"
	DestChannel DestinationType = "CHANNEL"
)

// Destination is an addressable outbound target for notifications.
type Destination struct {
	ID       int64
	Type     DestinationType
	ChatID   int64
	Title    string
	IsActive bool
}

// ChatConfig holds per-chat digest delivery settings. Quiet hours are
// expressed as HH:MM in UTC; start > end wraps past midnight.
type ChatConfig struct {
	ChatID            int64
	ChatType          string
	IsEnabled         bool
	SendToGroup       bool
	SendToChannel     bool
	QuietHoursEnabled bool
	QuietStart        string
	QuietEnd          string
}

// Instrument resolves a symbolic instrument key to an ID and asset type.
type Instrument struct {
	ID        int64
	Symbol    string
	AssetType AssetType
}

// StrategyRef resolves a symbolic strategy key to an ID.
type StrategyRef struct {
	ID  int64
	Key string
}
