package usecase

import (
	"strings"
	"testing"
	"time"

	"SigFlow/internal/domain/models"
)

func tvDefaults() MapDefaults {
	return MapDefaults{
		AssetType:  models.AssetCrypto,
		Instrument: "BTCUSDT",
		Interval:   "15m",
		Strategy:   "tradingview",
	}
}

func TestParsePayloadJSONObject(t *testing.T) {
	p := ParsePayload([]byte(`{"signal":"buy","price":"101.5"}`))
	if p.Parsed == nil || p.Unparsed != nil {
		t.Fatalf("JSON object should land in the parsed branch")
	}
	if !p.Parsed.Price.Set || p.Parsed.Price.Value != 101.5 {
		t.Fatalf("string price should decode, got %+v", p.Parsed.Price)
	}
}

func TestParsePayloadPlainText(t *testing.T) {
	p := ParsePayload([]byte("  BTC breaking out!  "))
	if p.Unparsed == nil || p.Parsed != nil {
		t.Fatalf("plain text should land in the unparsed branch")
	}
	if p.Unparsed.Text != "BTC breaking out!" {
		t.Fatalf("text should be trimmed, got %q", p.Unparsed.Text)
	}
}

func TestParsePayloadBrokenJSON(t *testing.T) {
	p := ParsePayload([]byte(`{"signal": `))
	if p.Unparsed == nil {
		t.Fatalf("broken JSON should fall back to the unparsed branch")
	}
}

func TestMapToSignalBuy(t *testing.T) {
	raw := []byte(`{"signal":"buy","price":"101.5","symbol":"ethusdt","interval":"1h","strategy":"mystrat","message":"go long"}`)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	sig := MapToSignal(ParsePayload(raw), tvDefaults(), nil, now, raw)
	if sig.Source != models.SourceTradingView {
		t.Fatalf("source = %s", sig.Source)
	}
	if sig.Side != models.SideBuy || sig.Kind != models.KindEntry {
		t.Fatalf("buy signal should be an entry, got side=%s kind=%s", sig.Side, sig.Kind)
	}
	if sig.Instrument != "ETHUSDT" {
		t.Fatalf("symbol should override the default and be uppercased, got %q", sig.Instrument)
	}
	if sig.Interval != "1h" || sig.Strategy != "mystrat" {
		t.Fatalf("interval/strategy overrides lost: %q %q", sig.Interval, sig.Strategy)
	}
	if sig.Price == nil || *sig.Price != 101.5 {
		t.Fatalf("price = %v, want 101.5", sig.Price)
	}
	if sig.Time != now.UnixMilli() {
		t.Fatalf("time should default to receipt time")
	}
	if sig.Reason != "go long" {
		t.Fatalf("reason = %q", sig.Reason)
	}
	if sig.Confidence != 50 {
		t.Fatalf("confidence = %d, want 50", sig.Confidence)
	}
	if len(sig.Tags) != 1 || sig.Tags[0] != "tradingview" {
		t.Fatalf("tags = %v", sig.Tags)
	}
}

func TestMapToSignalSideFieldAliases(t *testing.T) {
	cases := []struct {
		raw  string
		want models.Side
	}{
		{`{"signal":"Strong Buy"}`, models.SideBuy},
		{`{"side":"short"}`, models.SideSell},
		{`{"direction":"long"}`, models.SideBuy},
		{`{"signal":"sell","direction":"long"}`, models.SideSell},
	}
	for _, tc := range cases {
		raw := []byte(tc.raw)
		sig := MapToSignal(ParsePayload(raw), tvDefaults(), nil, time.Now(), raw)
		if sig.Side != tc.want {
			t.Fatalf("%s: side = %s, want %s", tc.raw, sig.Side, tc.want)
		}
	}
}

func TestMapToSignalExplicitKind(t *testing.T) {
	raw := []byte(`{"direction":"long","kind":"EXIT"}`)
	sig := MapToSignal(ParsePayload(raw), tvDefaults(), nil, time.Now(), raw)
	if sig.Side != models.SideBuy {
		t.Fatalf("direction long should map to BUY, got %s", sig.Side)
	}
	if sig.Kind != models.KindExit {
		t.Fatalf("explicit kind should win over the side default, got %s", sig.Kind)
	}

	raw = []byte(`{"signal":"buy","kind":"rebalance"}`)
	sig = MapToSignal(ParsePayload(raw), tvDefaults(), nil, time.Now(), raw)
	if sig.Kind != models.KindAlert {
		t.Fatalf("unrecognized kind should degrade to ALERT, got %s", sig.Kind)
	}

	raw = []byte(`{"signal":"buy","kind":"entry"}`)
	sig = MapToSignal(ParsePayload(raw), tvDefaults(), nil, time.Now(), raw)
	if sig.Kind != models.KindEntry {
		t.Fatalf("kind matching is case-insensitive, got %s", sig.Kind)
	}
}

func TestMapToSignalNeutralStaysAlert(t *testing.T) {
	raw := []byte(`{"message":"fyi"}`)
	sig := MapToSignal(ParsePayload(raw), tvDefaults(), nil, time.Now(), raw)
	if sig.Side != models.SideNeutral || sig.Kind != models.KindAlert {
		t.Fatalf("no direction should stay a neutral alert, got side=%s kind=%s", sig.Side, sig.Kind)
	}
}

func TestMapToSignalFallbackPrice(t *testing.T) {
	raw := []byte(`{"signal":"buy"}`)
	fallback := 64250.5
	sig := MapToSignal(ParsePayload(raw), tvDefaults(), &fallback, time.Now(), raw)
	if sig.Price == nil || *sig.Price != fallback {
		t.Fatalf("missing payload price should use the fallback, got %v", sig.Price)
	}
	if strings.Contains(sig.Reason, "price unavailable") {
		t.Fatalf("reason should not flag a missing price when the fallback filled it")
	}
}

func TestMapToSignalNoPriceAnywhere(t *testing.T) {
	raw := []byte(`{"signal":"buy"}`)
	sig := MapToSignal(ParsePayload(raw), tvDefaults(), nil, time.Now(), raw)
	if sig.Price != nil {
		t.Fatalf("no price source should leave the price nil, got %v", sig.Price)
	}
	if !strings.HasSuffix(sig.Reason, " (price unavailable)") {
		t.Fatalf("reason should note the missing price, got %q", sig.Reason)
	}
}

func TestMapToSignalUnparsed(t *testing.T) {
	raw := []byte("gold looks weak")
	sig := MapToSignal(ParsePayload(raw), tvDefaults(), nil, time.Now(), raw)
	if sig.Instrument != "BTCUSDT" || sig.Interval != "15m" {
		t.Fatalf("unparsed payload should keep defaults, got %q %q", sig.Instrument, sig.Interval)
	}
	found := false
	for _, tag := range sig.Tags {
		if tag == "unparsed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("unparsed tag missing: %v", sig.Tags)
	}
	if !strings.Contains(sig.Reason, "gold looks weak") {
		t.Fatalf("reason should carry the raw text, got %q", sig.Reason)
	}
}

func TestMapToSignalUnparsedTruncates(t *testing.T) {
	raw := []byte(strings.Repeat("x", 2000))
	sig := MapToSignal(ParsePayload(raw), tvDefaults(), nil, time.Now(), raw)
	if len(sig.Reason) > 600 {
		t.Fatalf("unparsed reason should be truncated, got %d bytes", len(sig.Reason))
	}
}

func TestMapToSignalPayloadTime(t *testing.T) {
	raw := []byte(`{"time":"2024-03-01T09:30:00Z"}`)
	sig := MapToSignal(ParsePayload(raw), tvDefaults(), nil, time.Now(), raw)
	want := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC).UnixMilli()
	if sig.Time != want {
		t.Fatalf("time = %d, want %d", sig.Time, want)
	}

	raw = []byte(`{"time":1709285400000}`)
	sig = MapToSignal(ParsePayload(raw), tvDefaults(), nil, time.Now(), raw)
	if sig.Time != 1709285400000 {
		t.Fatalf("epoch-ms time = %d, want 1709285400000", sig.Time)
	}

	raw = []byte(`{"timestamp":1704067200000}`)
	sig = MapToSignal(ParsePayload(raw), tvDefaults(), nil, time.Now(), raw)
	if sig.Time != 1704067200000 {
		t.Fatalf("timestamp alias = %d, want 1704067200000", sig.Time)
	}

	raw = []byte(`{"time":"2024-03-01T09:30:00Z","timestamp":1704067200000}`)
	sig = MapToSignal(ParsePayload(raw), tvDefaults(), nil, time.Now(), raw)
	if sig.Time != want {
		t.Fatalf("time should win over timestamp, got %d", sig.Time)
	}
}

func TestMapToSignalTickerAndTimeframeFallbacks(t *testing.T) {
	raw := []byte(`{"ticker":"solusdt","timeframe":"4h"}`)
	sig := MapToSignal(ParsePayload(raw), tvDefaults(), nil, time.Now(), raw)
	if sig.Instrument != "SOLUSDT" {
		t.Fatalf("ticker fallback lost, got %q", sig.Instrument)
	}
	if sig.Interval != "4h" {
		t.Fatalf("timeframe fallback lost, got %q", sig.Interval)
	}
}

func TestFlexFloatGarbageLeavesUnset(t *testing.T) {
	p := ParsePayload([]byte(`{"price":"n/a"}`))
	if p.Parsed == nil {
		t.Fatalf("payload should parse")
	}
	if p.Parsed.Price.Set {
		t.Fatalf("garbage price should stay unset")
	}
}
