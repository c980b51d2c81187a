package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"SigFlow/internal/domain/models"
	"SigFlow/pkg/logger"
)

// Store is the Postgres-backed implementation of the routing, alert,
// chat-config and digest-cursor contracts.
type Store struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

func NewStore(ctx context.Context, dsn string, log *logger.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &Store{pool: pool, log: log}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS instruments (
		id         BIGSERIAL PRIMARY KEY,
		symbol     TEXT NOT NULL UNIQUE,
		asset_type TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS strategies (
		id  BIGSERIAL PRIMARY KEY,
		key TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS destinations (
		id               BIGSERIAL PRIMARY KEY,
		destination_type TEXT NOT NULL,
		chat_id          BIGINT NOT NULL,
		title            TEXT NOT NULL DEFAULT '',
		is_active        BOOLEAN NOT NULL DEFAULT TRUE,
		UNIQUE (destination_type, chat_id)
	)`,
	`CREATE TABLE IF NOT EXISTS routing_rules (
		id             BIGSERIAL PRIMARY KEY,
		asset_type     TEXT,
		instrument_id  BIGINT REFERENCES instruments(id),
		strategy_id    BIGINT REFERENCES strategies(id),
		interval       TEXT,
		min_confidence INT,
		destination_id BIGINT NOT NULL REFERENCES destinations(id),
		is_active      BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS alert_rules (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL,
		instrument TEXT NOT NULL,
		type       TEXT NOT NULL,
		base_price DOUBLE PRECISION,
		threshold  DOUBLE PRECISION,
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		expires_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS chat_configs (
		chat_id             BIGINT PRIMARY KEY,
		chat_type           TEXT NOT NULL DEFAULT 'group',
		is_enabled          BOOLEAN NOT NULL DEFAULT TRUE,
		send_to_group       BOOLEAN NOT NULL DEFAULT TRUE,
		send_to_channel     BOOLEAN NOT NULL DEFAULT FALSE,
		quiet_hours_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		quiet_start         TEXT NOT NULL DEFAULT '',
		quiet_end           TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS digest_cursor (
		id        INT PRIMARY KEY,
		last_date TEXT NOT NULL
	)`,
}

// migrate is idempotent; every statement is CREATE IF NOT EXISTS.
func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// --- RoutingStore ---

func (s *Store) ActiveRoutingRules(ctx context.Context) ([]models.RoutingRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.asset_type, r.instrument_id, r.strategy_id, r.interval,
		       r.min_confidence, r.destination_id, r.is_active
		FROM routing_rules r
		JOIN destinations d ON d.id = r.destination_id
		WHERE r.is_active AND d.is_active
		ORDER BY r.id`)
	if err != nil {
		return nil, fmt.Errorf("query routing rules: %w", err)
	}
	defer rows.Close()

	var out []models.RoutingRule
	for rows.Next() {
		var r models.RoutingRule
		var assetType *string
		if err := rows.Scan(&r.ID, &assetType, &r.InstrumentID, &r.StrategyID,
			&r.Interval, &r.MinConfidence, &r.DestinationID, &r.IsActive); err != nil {
			return nil, fmt.Errorf("scan routing rule: %w", err)
		}
		if assetType != nil {
			at := models.AssetType(*assetType)
			r.AssetType = &at
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CountRoutingRules(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM routing_rules r
		JOIN destinations d ON d.id = r.destination_id
		WHERE r.is_active AND d.is_active`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count routing rules: %w", err)
	}
	return n, nil
}

func (s *Store) ActiveDestinationsByIDs(ctx context.Context, ids []int64) (map[int64]models.Destination, error) {
	if len(ids) == 0 {
		return map[int64]models.Destination{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, destination_type, chat_id, title, is_active
		FROM destinations
		WHERE id = ANY($1) AND is_active`, ids)
	if err != nil {
		return nil, fmt.Errorf("query destinations: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]models.Destination, len(ids))
	for rows.Next() {
		var d models.Destination
		if err := rows.Scan(&d.ID, &d.Type, &d.ChatID, &d.Title, &d.IsActive); err != nil {
			return nil, fmt.Errorf("scan destination: %w", err)
		}
		out[d.ID] = d
	}
	return out, rows.Err()
}

// UpsertDefaultDestinations inserts or reactivates the given
// destinations in a single transaction keyed by (type, chat_id).
func (s *Store) UpsertDefaultDestinations(ctx context.Context, defs []models.Destination) ([]models.Destination, error) {
	if len(defs) == 0 {
		return nil, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	out := make([]models.Destination, 0, len(defs))
	for _, d := range defs {
		var row models.Destination
		err := tx.QueryRow(ctx, `
			INSERT INTO destinations (destination_type, chat_id, title, is_active)
			VALUES ($1, $2, $3, TRUE)
			ON CONFLICT (destination_type, chat_id)
			DO UPDATE SET is_active = TRUE, title = EXCLUDED.title
			RETURNING id, destination_type, chat_id, title, is_active`,
			d.Type, d.ChatID, d.Title).
			Scan(&row.ID, &row.Type, &row.ChatID, &row.Title, &row.IsActive)
		if err != nil {
			return nil, fmt.Errorf("upsert destination %s/%d: %w", d.Type, d.ChatID, err)
		}
		out = append(out, row)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (s *Store) InstrumentBySymbol(ctx context.Context, symbol string) (*models.Instrument, error) {
	var inst models.Instrument
	err := s.pool.QueryRow(ctx, `
		SELECT id, symbol, asset_type FROM instruments WHERE symbol = $1`, symbol).
		Scan(&inst.ID, &inst.Symbol, &inst.AssetType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query instrument %s: %w", symbol, err)
	}
	return &inst, nil
}

func (s *Store) StrategyByKey(ctx context.Context, key string) (*models.StrategyRef, error) {
	var ref models.StrategyRef
	err := s.pool.QueryRow(ctx, `SELECT id, key FROM strategies WHERE key = $1`, key).
		Scan(&ref.ID, &ref.Key)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query strategy %s: %w", key, err)
	}
	return &ref, nil
}

// --- AlertStore ---

func (s *Store) ActiveAlertRules(ctx context.Context, now time.Time) ([]models.AlertRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, instrument, type, base_price, threshold, is_active, expires_at
		FROM alert_rules
		WHERE is_active AND (expires_at IS NULL OR expires_at > $1)
		ORDER BY id`, now)
	if err != nil {
		return nil, fmt.Errorf("query alert rules: %w", err)
	}
	defer rows.Close()

	var out []models.AlertRule
	for rows.Next() {
		var r models.AlertRule
		if err := rows.Scan(&r.ID, &r.UserID, &r.Instrument, &r.Type,
			&r.BasePrice, &r.Threshold, &r.IsActive, &r.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan alert rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DeactivateAlertRule(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE alert_rules SET is_active = FALSE WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("deactivate alert rule %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert rule %d already inactive", id)
	}
	return nil
}

// --- ChatConfigStore ---

func (s *Store) EnabledChatConfigs(ctx context.Context) ([]models.ChatConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chat_id, chat_type, is_enabled, send_to_group, send_to_channel,
		       quiet_hours_enabled, quiet_start, quiet_end
		FROM chat_configs
		WHERE is_enabled
		ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("query chat configs: %w", err)
	}
	defer rows.Close()

	var out []models.ChatConfig
	for rows.Next() {
		var c models.ChatConfig
		if err := rows.Scan(&c.ChatID, &c.ChatType, &c.IsEnabled, &c.SendToGroup,
			&c.SendToChannel, &c.QuietHoursEnabled, &c.QuietStart, &c.QuietEnd); err != nil {
			return nil, fmt.Errorf("scan chat config: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- DigestCursor ---

// TryMarkSent advances the single cursor row to day with a
// compare-and-set: only the caller whose write actually moves the date
// forward gets true, so concurrent instances send at most one digest.
func (s *Store) TryMarkSent(ctx context.Context, day string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO digest_cursor (id, last_date) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET last_date = EXCLUDED.last_date
		WHERE digest_cursor.last_date < EXCLUDED.last_date`, day)
	if err != nil {
		return false, fmt.Errorf("advance digest cursor: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
