package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SigFlow/internal/domain/models"
	"SigFlow/internal/domain/repository"
	"SigFlow/pkg/logger"
)

// DigestConfig controls when and where the daily summary goes.
type DigestConfig struct {
	Enabled   bool
	At        string // HH:MM UTC
	ToGroup   bool
	ToChannel bool
	GroupID   int64
	ChannelID int64
}

// DigestBuilder sends one signal summary per UTC day. The persisted
// cursor makes the send exactly-once across process instances.
type DigestBuilder struct {
	cfg     DigestConfig
	cursor  repository.DigestCursor
	archive repository.SignalArchive
	chats   repository.ChatConfigStore
	emitter *Emitter
	metrics repository.Metrics
	log     *logger.Logger
}

func NewDigestBuilder(
	cfg DigestConfig,
	cursor repository.DigestCursor,
	archive repository.SignalArchive,
	chats repository.ChatConfigStore,
	emitter *Emitter,
	metrics repository.Metrics,
	log *logger.Logger,
) *DigestBuilder {
	return &DigestBuilder{
		cfg:     cfg,
		cursor:  cursor,
		archive: archive,
		chats:   chats,
		emitter: emitter,
		metrics: metrics,
		log:     log,
	}
}

func minutesOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// QuietHoursSuppressed reports whether now falls inside [start, end) in
// UTC. start > end wraps past midnight; start == end never suppresses.
func QuietHoursSuppressed(enabled bool, start, end string, now time.Time) bool {
	if !enabled {
		return false
	}
	s, err := minutesOfDay(start)
	if err != nil {
		return false
	}
	e, err := minutesOfDay(end)
	if err != nil {
		return false
	}
	if s == e {
		return false
	}

	utc := now.UTC()
	cur := utc.Hour()*60 + utc.Minute()
	if s < e {
		return cur >= s && cur < e
	}
	return cur >= s || cur < e
}

// Tick fires the digest once the configured send time has passed for
// the current UTC day. Only the instance that advances the cursor sends.
func (d *DigestBuilder) Tick(ctx context.Context, now time.Time) {
	if !d.cfg.Enabled {
		return
	}

	utc := now.UTC()
	target, err := minutesOfDay(d.cfg.At)
	if err != nil {
		d.log.Error("digest send time is invalid",
			logger.String("at", d.cfg.At), logger.Error(err))
		return
	}
	if utc.Hour()*60+utc.Minute() < target {
		return
	}

	day := utc.Format("2006-01-02")
	won, err := d.cursor.TryMarkSent(ctx, day)
	if err != nil {
		d.log.Error("digest cursor advance failed", logger.Error(err))
		return
	}
	if !won {
		return
	}

	since := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	stats, err := d.archive.DayStats(ctx, since)
	if err != nil {
		d.log.Error("digest stats query failed", logger.Error(err))
		return
	}
	if stats == nil || stats.Total == 0 {
		d.log.Info("no signals today, digest skipped", logger.String("day", day))
		return
	}

	text := formatDigest(day, stats)
	sent := 0
	for _, chatID := range d.recipients(ctx, utc) {
		if err := d.emitter.EmitText(ctx, chatID, text, "HTML"); err != nil {
			d.log.Error("digest enqueue failed",
				logger.Int64("chatId", chatID), logger.Error(err))
			continue
		}
		sent++
	}

	if sent > 0 {
		d.metrics.RecordDigestSent()
		d.log.Info("daily digest sent",
			logger.String("day", day),
			logger.Int("recipients", sent),
			logger.Int("signals", stats.Total))
	}
}

// recipients resolves target chats from stored chat configs, falling
// back to the statically configured group/channel when none exist.
func (d *DigestBuilder) recipients(ctx context.Context, now time.Time) []int64 {
	seen := make(map[int64]bool)
	var out []int64
	add := func(chatID int64) {
		if chatID != 0 && !seen[chatID] {
			seen[chatID] = true
			out = append(out, chatID)
		}
	}

	configs, err := d.chats.EnabledChatConfigs(ctx)
	if err != nil {
		d.log.Warn("chat configs load failed, using configured defaults", logger.Error(err))
		configs = nil
	}

	for _, cfg := range configs {
		if QuietHoursSuppressed(cfg.QuietHoursEnabled, cfg.QuietStart, cfg.QuietEnd, now) {
			continue
		}
		switch strings.ToLower(cfg.ChatType) {
		case "group":
			if cfg.SendToGroup {
				add(cfg.ChatID)
			}
		case "channel":
			if cfg.SendToChannel {
				add(cfg.ChatID)
			}
		default:
			add(cfg.ChatID)
		}
	}

	if len(configs) == 0 {
		if d.cfg.ToGroup {
			add(d.cfg.GroupID)
		}
		if d.cfg.ToChannel {
			add(d.cfg.ChannelID)
		}
	}
	return out
}

func formatDigest(day string, stats *models.DigestStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Daily signal digest</b> %s\n\n", day)
	fmt.Fprintf(&b, "Signals: <b>%d</b> (▲ %d buy / ▼ %d sell)\n", stats.Total, stats.Buys, stats.Sells)
	fmt.Fprintf(&b, "Avg confidence: <b>%.1f</b>\n", stats.AvgConfidence)

	if len(stats.TopInstruments) > 0 {
		b.WriteString("\nMost active:\n")
		for i, ic := range stats.TopInstruments {
			fmt.Fprintf(&b, "%d. %s: %d\n", i+1, ic.Instrument, ic.Count)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
