package strategy

import (
	"fmt"

	"SigFlow/internal/domain/models"
	"SigFlow/internal/indicator"
)

const (
	breakoutConfidence = 68

	// ATR multiples for the stop and the first two targets.
	breakoutStopATR = 1.5
	breakoutTP1ATR  = 1.0
	breakoutTP2ATR  = 2.0
)

// Breakout fires when the latest close escapes the high/low channel of
// the preceding lookback candles (latest candle excluded from the
// channel). Emitted signals carry ATR-derived stop/target levels.
type Breakout struct {
	p Params
}

func NewBreakout(p Params) *Breakout {
	return &Breakout{p: p}
}

func (e *Breakout) Key() string { return "breakout" }

func (e *Breakout) Evaluate(w Window) *models.Signal {
	lookback := e.p.BreakoutLookback
	if lookback < 1 || len(w.Candles) < lookback+1 {
		return nil
	}

	n := len(w.Candles)
	channel := w.Candles[n-1-lookback : n-1]
	high := indicator.HighestHigh(channel)
	low := indicator.LowestLow(channel)
	price := w.Candles[n-1].Close

	var side models.Side
	var reason string
	switch {
	case price > high:
		side = models.SideBuy
		reason = fmt.Sprintf("breakout UP: close=%.6f > high[%d]=%.6f (low=%.6f)",
			price, lookback, high, low)
	case price < low:
		side = models.SideSell
		reason = fmt.Sprintf("breakout DOWN: close=%.6f < low[%d]=%.6f (high=%.6f)",
			price, lookback, low, high)
	default:
		return nil
	}

	sig := newSignal(w, e.Key(), side, price, breakoutConfidence,
		[]string{"breakout", "channel"}, reason)
	sig.Levels = breakoutLevels(w, side, price, lookback)
	return sig
}

// breakoutLevels derives entry/stop/targets from the current ATR. Nil
// when the ATR is not usable (flat or degenerate data).
func breakoutLevels(w Window, side models.Side, price float64, lookback int) *models.Levels {
	atrSeries := indicator.ATR(w.Candles, lookback)
	atr := atrSeries[len(atrSeries)-1]
	if atr <= 0 {
		return nil
	}

	dir := 1.0
	if side == models.SideSell {
		dir = -1.0
	}
	entry := price
	sl := price - dir*breakoutStopATR*atr
	tp1 := price + dir*breakoutTP1ATR*atr
	tp2 := price + dir*breakoutTP2ATR*atr
	return &models.Levels{Entry: &entry, SL: &sl, TP1: &tp1, TP2: &tp2}
}
