package usecase

import (
	"context"
	"strconv"
	"strings"
	"time"

	"SigFlow/internal/domain/models"
	"SigFlow/internal/domain/repository"
	"SigFlow/pkg/cache"
	"SigFlow/pkg/logger"
)

const (
	defaultBucketMillis = 60_000
	timeBucketLayout    = "2006-01-02T15:04:05.000Z"
)

var unitMillis = map[byte]int64{
	's': 1_000,
	'm': 60_000,
	'h': 3_600_000,
	'd': 86_400_000,
	'w': 604_800_000,
}

// BucketMillis parses an interval token like "15m" or "4h" into its
// bucket width in milliseconds. Unparseable input falls back to one
// minute so a malformed interval degrades dedupe granularity instead of
// dropping signals.
func BucketMillis(interval string) int64 {
	interval = strings.TrimSpace(interval)
	if len(interval) < 2 {
		return defaultBucketMillis
	}

	unit, ok := unitMillis[interval[len(interval)-1]]
	if !ok {
		return defaultBucketMillis
	}
	n, err := strconv.ParseInt(interval[:len(interval)-1], 10, 64)
	if err != nil || n <= 0 {
		return defaultBucketMillis
	}
	return n * unit
}

// FloorTime snaps a millisecond timestamp down to its interval bucket.
func FloorTime(ms int64, interval string) int64 {
	bucket := BucketMillis(interval)
	return ms - ms%bucket
}

func keyParts(sig *models.Signal) []string {
	return []string{
		string(sig.Source),
		string(sig.AssetType),
		sig.Instrument,
		sig.Interval,
		sig.Strategy,
		string(sig.Kind),
		string(sig.Side),
	}
}

// DedupeKey is the identity of a signal for suppression purposes: every
// attribute that makes two signals "the same", plus the time bucket.
// Price, confidence, reason and tags are deliberately excluded.
func DedupeKey(sig *models.Signal) string {
	floored := FloorTime(sig.Time, sig.Interval)
	ts := time.UnixMilli(floored).UTC().Format(timeBucketLayout)
	return strings.Join(append(keyParts(sig), ts), ":")
}

// CooldownKey is the dedupe key without the time bucket, so one emission
// silences the same setup across adjacent buckets.
func CooldownKey(sig *models.Signal) string {
	return strings.Join(keyParts(sig), ":")
}

// DedupeGuard suppresses duplicate and rapid-fire signals with two
// claim-on-write cache entries. A store failure fails open: a possible
// duplicate beats a silently dropped signal.
type DedupeGuard struct {
	cache    cache.Service
	ttl      time.Duration
	cooldown time.Duration
	metrics  repository.Metrics
	log      *logger.Logger
}

func NewDedupeGuard(c cache.Service, ttl, cooldown time.Duration, metrics repository.Metrics, log *logger.Logger) *DedupeGuard {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &DedupeGuard{cache: c, ttl: ttl, cooldown: cooldown, metrics: metrics, log: log}
}

// IsAllowed claims the signal's dedupe slot and cooldown slot. Only a
// signal that wins both claims may be emitted.
func (g *DedupeGuard) IsAllowed(ctx context.Context, sig *models.Signal) bool {
	key := "dedupe:" + DedupeKey(sig)
	ok, err := g.cache.SetNX(ctx, key, 1, g.ttl)
	if err != nil {
		g.log.Warn("dedupe store unavailable, allowing signal",
			logger.String("key", key), logger.Error(err))
		return true
	}
	if !ok {
		g.metrics.RecordSignalSuppressed("duplicate")
		g.log.Debug("signal suppressed as duplicate", logger.String("key", key))
		return false
	}

	if g.cooldown <= 0 {
		return true
	}

	cdKey := "cooldown:" + CooldownKey(sig)
	ok, err = g.cache.SetNX(ctx, cdKey, 1, g.cooldown)
	if err != nil {
		g.log.Warn("cooldown store unavailable, allowing signal",
			logger.String("key", cdKey), logger.Error(err))
		return true
	}
	if !ok {
		g.metrics.RecordSignalSuppressed("cooldown")
		g.log.Debug("signal suppressed by cooldown", logger.String("key", cdKey))
		return false
	}
	return true
}
