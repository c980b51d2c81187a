package strategy

import (
	"testing"

	"SigFlow/internal/domain/models"
)

func testParams() Params {
	return Params{
		RSIPeriod:        14,
		RSIBuyThreshold:  30,
		RSISellThreshold: 70,
		EMAFast:          9,
		EMASlow:          21,
		BreakoutLookback: 20,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
	}
}

func candlesFromCloses(closes []float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			OpenTime:  int64(i) * 60_000,
			Open:      c,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
			Volume:    1,
			CloseTime: int64(i+1)*60_000 - 1,
		}
	}
	return out
}

func window(closes []float64) Window {
	return Window{
		Instrument: "BTCUSDT",
		AssetType:  models.AssetCrypto,
		Interval:   "15m",
		Candles:    candlesFromCloses(closes),
	}
}

func TestRegistryKeys(t *testing.T) {
	reg := NewRegistry(testParams())
	want := []string{"emarsi", "rsi", "breakout", "macd"}
	evs := reg.Evaluators()
	if len(evs) != len(want) {
		t.Fatalf("got %d evaluators, want %d", len(evs), len(want))
	}
	for i, ev := range evs {
		if ev.Key() != want[i] {
			t.Fatalf("evaluator %d key = %q, want %q", i, ev.Key(), want[i])
		}
	}
}

func TestEvaluatorsNeedEnoughCandles(t *testing.T) {
	w := window([]float64{100, 101})
	for _, ev := range NewRegistry(testParams()).Evaluators() {
		if sig := ev.Evaluate(w); sig != nil {
			t.Fatalf("%s emitted on a two-candle window", ev.Key())
		}
	}
}

func TestFlatSeriesEmitsNothing(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	w := window(closes)
	for _, ev := range NewRegistry(testParams()).Evaluators() {
		if sig := ev.Evaluate(w); sig != nil {
			t.Fatalf("%s emitted on flat series: %+v", ev.Key(), sig)
		}
	}
}

func TestBreakoutUp(t *testing.T) {
	p := testParams()
	p.BreakoutLookback = 5

	closes := []float64{100, 101, 102, 103, 104, 105, 106, 115}
	w := window(closes)

	sig := NewBreakout(p).Evaluate(w)
	if sig == nil {
		t.Fatalf("expected a breakout signal")
	}
	if sig.Side != models.SideBuy {
		t.Fatalf("side = %s, want BUY", sig.Side)
	}
	if sig.Strategy != "breakout" {
		t.Fatalf("strategy = %q, want breakout", sig.Strategy)
	}
	if sig.Confidence != 68 {
		t.Fatalf("confidence = %d, want 68", sig.Confidence)
	}
	if sig.Price == nil || *sig.Price != 115 {
		t.Fatalf("price should be latest close 115, got %v", sig.Price)
	}
	last := w.Candles[len(w.Candles)-1]
	if sig.Time != last.CloseTime {
		t.Fatalf("time = %d, want close time %d", sig.Time, last.CloseTime)
	}
	if sig.Levels == nil || sig.Levels.SL == nil || sig.Levels.TP1 == nil || sig.Levels.TP2 == nil {
		t.Fatalf("breakout should carry stop/target levels, got %+v", sig.Levels)
	}
	if !(*sig.Levels.SL < 115 && 115 < *sig.Levels.TP1 && *sig.Levels.TP1 < *sig.Levels.TP2) {
		t.Fatalf("levels should bracket an upside breakout: sl=%f tp1=%f tp2=%f",
			*sig.Levels.SL, *sig.Levels.TP1, *sig.Levels.TP2)
	}
}

func TestBreakoutExcludesLatestCandleFromChannel(t *testing.T) {
	p := testParams()
	p.BreakoutLookback = 5

	// Latest close only beats its own high, not the preceding channel.
	closes := []float64{100, 101, 102, 103, 104, 105, 106, 106.2}
	sig := NewBreakout(p).Evaluate(window(closes))
	if sig != nil {
		t.Fatalf("close inside preceding channel should not break out: %+v", sig)
	}
}

func TestBreakoutDown(t *testing.T) {
	p := testParams()
	p.BreakoutLookback = 5

	closes := []float64{110, 109, 108, 107, 106, 105, 104, 95}
	sig := NewBreakout(p).Evaluate(window(closes))
	if sig == nil {
		t.Fatalf("expected a breakdown signal")
	}
	if sig.Side != models.SideSell {
		t.Fatalf("side = %s, want SELL", sig.Side)
	}
}

func TestRSIRecrossBuy(t *testing.T) {
	p := testParams()
	p.RSIPeriod = 3

	// Straight losses pin RSI near zero, then two gains lift it back
	// through the buy threshold on the final bar.
	closes := []float64{100, 90, 80, 70, 75, 80}
	sig := NewRSIThreshold(p).Evaluate(window(closes))
	if sig == nil {
		t.Fatalf("expected an rsi recross signal")
	}
	if sig.Side != models.SideBuy {
		t.Fatalf("side = %s, want BUY", sig.Side)
	}
	if sig.Strategy != "rsi" {
		t.Fatalf("strategy = %q, want rsi", sig.Strategy)
	}
	if sig.Confidence != 66 {
		t.Fatalf("confidence = %d, want 66", sig.Confidence)
	}
}

func TestRSIStaysOversoldNoSignal(t *testing.T) {
	p := testParams()
	p.RSIPeriod = 3

	closes := []float64{100, 90, 80, 70, 60, 50}
	if sig := NewRSIThreshold(p).Evaluate(window(closes)); sig != nil {
		t.Fatalf("continued decline should not signal: %+v", sig)
	}
}
