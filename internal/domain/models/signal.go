package models

import "encoding/json"

// Source identifies where a signal originated.
type Source string

const (
	SourceBinance     Source = "BINANCE"
	SourceTradingView Source = "TRADINGVIEW"
)

// AssetType partitions instruments by market.
type AssetType string

const (
	AssetCrypto AssetType = "CRYPTO"
	AssetGold   AssetType = "GOLD"
)

// SignalKind describes what the signal asks the receiver to do.
type SignalKind string

const (
	KindEntry SignalKind = "ENTRY"
	KindExit  SignalKind = "EXIT"
	KindAlert SignalKind = "ALERT"
)

// Side is the signal direction.
type Side string

const (
	SideBuy     Side = "BUY"
	SideSell    Side = "SELL"
	SideNeutral Side = "NEUTRAL"
)

// Levels carries optional price levels attached to a signal.
type Levels struct {
	Entry *float64 `json:"entry,omitempty"`
	SL    *float64 `json:"sl,omitempty"`
	TP1   *float64 `json:"tp1,omitempty"`
	TP2   *float64 `json:"tp2,omitempty"`
}

// Signal is a directional event produced by a strategy evaluator or an
// inbound alert. Immutable once created; its dedupe/routing key must be
// derivable from these fields alone.
type Signal struct {
	Source     Source          `json:"source"`
	AssetType  AssetType       `json:"assetType"`
	Instrument string          `json:"instrument"`
	Interval   string          `json:"interval"`
	Strategy   string          `json:"strategy"`
	Kind       SignalKind      `json:"kind"`
	Side       Side            `json:"side"`
	Price      *float64        `json:"price"`
	Time       int64           `json:"time"` // epoch ms
	Confidence int             `json:"confidence"`
	Tags       []string        `json:"tags"`
	Reason     string          `json:"reason"`
	Levels     *Levels         `json:"levels,omitempty"`
	ExternalID string          `json:"externalId,omitempty"`
	RawPayload json.RawMessage `json:"rawPayload,omitempty"`
}

// Candle represents one immutable OHLCV bar.
type Candle struct {
	OpenTime  int64   `json:"openTime"` // epoch ms
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"closeTime"` // epoch ms
}

// CachedTicker is a short-lived bid/ask/last snapshot from one provider.
// Nil or non-finite values mean "unknown"; the entry is replaced, never
// mutated, on each upstream fetch.
type CachedTicker struct {
	Provider string   `json:"provider"`
	Symbol   string   `json:"symbol"`
	Bid      *float64 `json:"bid,omitempty"`
	Ask      *float64 `json:"ask,omitempty"`
	Last     *float64 `json:"last,omitempty"`
	Ts       int64    `json:"ts"` // epoch ms
}

// InstrumentCount is a (instrument, signal count) pair for digest ranking.
type InstrumentCount struct {
	Instrument string
	Count      int
}

// DigestStats summarizes one UTC day of signals.
type DigestStats struct {
	Total          int
	Buys           int
	Sells          int
	AvgConfidence  float64
	TopInstruments []InstrumentCount
}
