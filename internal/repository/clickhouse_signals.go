package repository

import (
	"context"
	"fmt"
	"time"

	"SigFlow/internal/domain/models"
	"SigFlow/pkg/clickhouse"
	"SigFlow/pkg/logger"
)

var signalSchema = []string{
	`CREATE TABLE IF NOT EXISTS signals (
		source       LowCardinality(String),
		asset_type   LowCardinality(String),
		instrument   LowCardinality(String),
		interval     LowCardinality(String),
		strategy     LowCardinality(String),
		kind         LowCardinality(String),
		side         LowCardinality(String),
		price        Nullable(Float64),
		ts           DateTime64(3, 'UTC'),
		confidence   UInt8,
		tags         Array(String),
		reason       String,
		external_id  String,
		raw_payload  String
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(ts)
	ORDER BY (instrument, strategy, ts)
	TTL toDateTime(ts) + INTERVAL 180 DAY`,
}

// ClickHouseArchive stores every emitted signal for audit and digest
// aggregation.
type ClickHouseArchive struct {
	client *clickhouse.Client
	log    *logger.Logger
}

func NewClickHouseArchive(ctx context.Context, client *clickhouse.Client, log *logger.Logger) (*ClickHouseArchive, error) {
	if err := client.InitSchema(ctx, signalSchema); err != nil {
		return nil, fmt.Errorf("signals schema: %w", err)
	}
	return &ClickHouseArchive{client: client, log: log}, nil
}

func (a *ClickHouseArchive) Insert(ctx context.Context, sig *models.Signal) error {
	var price any
	if sig.Price != nil {
		price = *sig.Price
	}

	_, err := a.client.DB().ExecContext(ctx, `
		INSERT INTO signals
			(source, asset_type, instrument, interval, strategy, kind, side,
			 price, ts, confidence, tags, reason, external_id, raw_payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(sig.Source), string(sig.AssetType), sig.Instrument, sig.Interval,
		sig.Strategy, string(sig.Kind), string(sig.Side),
		price, time.UnixMilli(sig.Time).UTC(), uint8(sig.Confidence),
		sig.Tags, sig.Reason, sig.ExternalID, string(sig.RawPayload))
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// DayStats aggregates signals since the given instant: totals, side
// tallies, average confidence and the three most active instruments.
func (a *ClickHouseArchive) DayStats(ctx context.Context, since time.Time) (*models.DigestStats, error) {
	var stats models.DigestStats

	err := a.client.DB().QueryRowContext(ctx, `
		SELECT count(),
		       countIf(side = 'BUY'),
		       countIf(side = 'SELL'),
		       ifNaN(avg(confidence), 0)
		FROM signals
		WHERE ts >= ?`, since.UTC()).
		Scan(&stats.Total, &stats.Buys, &stats.Sells, &stats.AvgConfidence)
	if err != nil {
		return nil, fmt.Errorf("day stats: %w", err)
	}
	if stats.Total == 0 {
		return &stats, nil
	}

	rows, err := a.client.DB().QueryContext(ctx, `
		SELECT instrument, count() AS c
		FROM signals
		WHERE ts >= ?
		GROUP BY instrument
		ORDER BY c DESC, instrument
		LIMIT 3`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("top instruments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ic models.InstrumentCount
		if err := rows.Scan(&ic.Instrument, &ic.Count); err != nil {
			return nil, fmt.Errorf("scan top instrument: %w", err)
		}
		stats.TopInstruments = append(stats.TopInstruments, ic)
	}
	return &stats, rows.Err()
}

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.client.Health(ctx)
}

// NoopArchive satisfies the archive contract when ClickHouse is
// disabled. Inserts vanish; stats report an empty day.
type NoopArchive struct{}

func (NoopArchive) Insert(context.Context, *models.Signal) error { return nil }

func (NoopArchive) DayStats(context.Context, time.Time) (*models.DigestStats, error) {
	return &models.DigestStats{}, nil
}
