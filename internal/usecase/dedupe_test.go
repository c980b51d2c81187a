package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"SigFlow/internal/domain/models"
	"SigFlow/pkg/cache"
	"SigFlow/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type fakeMetrics struct {
	mu         sync.Mutex
	emitted    int
	suppressed map[string]int
	enqueued   map[string]int
	alerts     int
	digests    int
	fetchErrs  int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		suppressed: make(map[string]int),
		enqueued:   make(map[string]int),
	}
}

func (m *fakeMetrics) RecordSignalEmitted(strategy, instrument string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitted++
}

func (m *fakeMetrics) RecordSignalSuppressed(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppressed[reason]++
}

func (m *fakeMetrics) RecordJobEnqueued(jobType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued[jobType]++
}

func (m *fakeMetrics) RecordAlertTriggered(alertType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts++
}

func (m *fakeMetrics) RecordDigestSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.digests++
}

func (m *fakeMetrics) RecordFetchError(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErrs++
}

func (m *fakeMetrics) RecordLastPrice(symbol string, price float64) {}

func sampleSignal() *models.Signal {
	price := 64000.0
	return &models.Signal{
		Source:     models.SourceBinance,
		AssetType:  models.AssetCrypto,
		Instrument: "BTCUSDT",
		Interval:   "15m",
		Strategy:   "rsi",
		Kind:       models.KindEntry,
		Side:       models.SideBuy,
		Price:      &price,
		Time:       time.Date(2024, 1, 1, 0, 7, 30, 0, time.UTC).UnixMilli(),
		Confidence: 66,
		Tags:       []string{"scanner"},
	}
}

func TestBucketMillis(t *testing.T) {
	cases := []struct {
		interval string
		want     int64
	}{
		{"15m", 900_000},
		{"1h", 3_600_000},
		{"30s", 30_000},
		{"1d", 86_400_000},
		{"1w", 604_800_000},
		{"", 60_000},
		{"banana", 60_000},
		{"m", 60_000},
		{"-5m", 60_000},
		{"0h", 60_000},
	}
	for _, tc := range cases {
		if got := BucketMillis(tc.interval); got != tc.want {
			t.Fatalf("BucketMillis(%q) = %d, want %d", tc.interval, got, tc.want)
		}
	}
}

func TestFloorTimeIdempotent(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 7, 30, 0, time.UTC).UnixMilli()
	once := FloorTime(ts, "15m")
	if again := FloorTime(once, "15m"); again != once {
		t.Fatalf("flooring a floored time moved it: %d -> %d", once, again)
	}
	if once > ts {
		t.Fatalf("floor moved time forward: %d > %d", once, ts)
	}
}

func TestDedupeKeyBucketsTime(t *testing.T) {
	sig := sampleSignal()
	key := DedupeKey(sig)
	if !strings.HasSuffix(key, ":2024-01-01T00:00:00.000Z") {
		t.Fatalf("15m interval should floor 00:07:30 to the bucket start, key = %q", key)
	}

	// Anywhere in the same bucket yields the same key.
	sig2 := sampleSignal()
	sig2.Time = time.Date(2024, 1, 1, 0, 14, 59, 0, time.UTC).UnixMilli()
	if DedupeKey(sig2) != key {
		t.Fatalf("same bucket produced different keys")
	}

	// The next bucket does not.
	sig3 := sampleSignal()
	sig3.Time = time.Date(2024, 1, 1, 0, 15, 0, 0, time.UTC).UnixMilli()
	if DedupeKey(sig3) == key {
		t.Fatalf("next bucket reused the key")
	}
}

func TestDedupeKeyUnknownIntervalFloorsToMinute(t *testing.T) {
	sig := sampleSignal()
	sig.Interval = "xyz"
	key := DedupeKey(sig)
	if !strings.HasSuffix(key, ":2024-01-01T00:07:00.000Z") {
		t.Fatalf("unknown interval should fall back to one-minute buckets, key = %q", key)
	}
}

func TestDedupeKeyIgnoresMutableFields(t *testing.T) {
	a := sampleSignal()
	b := sampleSignal()
	other := 99999.0
	b.Price = &other
	b.Confidence = 10
	b.Reason = "different reason"
	b.Tags = []string{"anything"}
	if DedupeKey(a) != DedupeKey(b) {
		t.Fatalf("price, confidence, reason and tags must not affect the key")
	}
}

func TestCooldownKeyHasNoTime(t *testing.T) {
	a := sampleSignal()
	b := sampleSignal()
	b.Time = a.Time + 3_600_000
	if CooldownKey(a) != CooldownKey(b) {
		t.Fatalf("cooldown key must not depend on time")
	}
	if strings.Contains(CooldownKey(a), "2024") {
		t.Fatalf("cooldown key leaked a timestamp: %q", CooldownKey(a))
	}
}

func TestGuardSuppressesDuplicate(t *testing.T) {
	ctx := context.Background()
	metrics := newFakeMetrics()
	guard := NewDedupeGuard(cache.NewMemoryCache(), time.Hour, 0, metrics, testLogger(t))

	if !guard.IsAllowed(ctx, sampleSignal()) {
		t.Fatalf("first signal should pass")
	}
	if guard.IsAllowed(ctx, sampleSignal()) {
		t.Fatalf("identical signal should be suppressed")
	}
	if metrics.suppressed["duplicate"] != 1 {
		t.Fatalf("expected one duplicate suppression, got %v", metrics.suppressed)
	}
}

func TestGuardCooldownAcrossBuckets(t *testing.T) {
	ctx := context.Background()
	metrics := newFakeMetrics()
	guard := NewDedupeGuard(cache.NewMemoryCache(), time.Hour, time.Hour, metrics, testLogger(t))

	first := sampleSignal()
	if !guard.IsAllowed(ctx, first) {
		t.Fatalf("first signal should pass")
	}

	// Same setup, next bucket: new dedupe slot, but cooldown holds it.
	next := sampleSignal()
	next.Time = first.Time + 900_000
	if guard.IsAllowed(ctx, next) {
		t.Fatalf("cooldown should suppress the adjacent bucket")
	}
	if metrics.suppressed["cooldown"] != 1 {
		t.Fatalf("expected one cooldown suppression, got %v", metrics.suppressed)
	}

	// A different instrument is a different setup and passes.
	other := sampleSignal()
	other.Instrument = "ETHUSDT"
	if !guard.IsAllowed(ctx, other) {
		t.Fatalf("different instrument should not share a cooldown")
	}
}
