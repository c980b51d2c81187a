package usecase

import (
	"strings"
	"testing"
	"time"

	"SigFlow/internal/domain/models"
)

func atMinute(hh, mm int) time.Time {
	return time.Date(2024, 5, 10, hh, mm, 0, 0, time.UTC)
}

func TestQuietHoursSuppressed(t *testing.T) {
	cases := []struct {
		name    string
		enabled bool
		start   string
		end     string
		now     time.Time
		want    bool
	}{
		{"disabled", false, "22:00", "06:00", atMinute(23, 30), false},
		{"inside wrap before midnight", true, "22:00", "06:00", atMinute(23, 30), true},
		{"inside wrap after midnight", true, "22:00", "06:00", atMinute(2, 0), true},
		{"outside wrap", true, "22:00", "06:00", atMinute(12, 0), false},
		{"at start inclusive", true, "22:00", "06:00", atMinute(22, 0), true},
		{"at end exclusive", true, "22:00", "06:00", atMinute(6, 0), false},
		{"plain window inside", true, "09:00", "17:00", atMinute(12, 0), true},
		{"plain window outside", true, "09:00", "17:00", atMinute(8, 59), false},
		{"start equals end", true, "10:00", "10:00", atMinute(10, 0), false},
		{"bad start format", true, "banana", "06:00", atMinute(2, 0), false},
		{"bad end format", true, "22:00", "", atMinute(23, 0), false},
	}
	for _, tc := range cases {
		if got := QuietHoursSuppressed(tc.enabled, tc.start, tc.end, tc.now); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFormatDigest(t *testing.T) {
	stats := &models.DigestStats{
		Total:         12,
		Buys:          7,
		Sells:         5,
		AvgConfidence: 68.4,
		TopInstruments: []models.InstrumentCount{
			{Instrument: "BTCUSDT", Count: 6},
			{Instrument: "ETHUSDT", Count: 4},
		},
	}
	text := formatDigest("2024-05-10", stats)
	for _, want := range []string{"2024-05-10", "<b>12</b>", "7 buy", "5 sell", "68.4", "1. BTCUSDT: 6", "2. ETHUSDT: 4"} {
		if !strings.Contains(text, want) {
			t.Fatalf("digest missing %q:\n%s", want, text)
		}
	}
	if strings.HasSuffix(text, "\n") {
		t.Fatalf("digest should not end with a newline")
	}
}

func TestMinutesOfDay(t *testing.T) {
	m, err := minutesOfDay("20:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m != 20*60+30 {
		t.Fatalf("got %d", m)
	}
	if _, err := minutesOfDay("25:00"); err == nil {
		t.Fatalf("expected error for invalid hour")
	}
}
