package strategy

import (
	"fmt"

	"SigFlow/internal/domain/models"
	"SigFlow/internal/indicator"
)

const emarsiConfidence = 72

// EMARSICross fires on an EMA fast/slow crossover, filtered by RSI so
// buys are not taken into overbought territory and sells not into
// oversold.
type EMARSICross struct {
	p Params
}

func NewEMARSICross(p Params) *EMARSICross {
	return &EMARSICross{p: p}
}

func (e *EMARSICross) Key() string { return "emarsi" }

func (e *EMARSICross) Evaluate(w Window) *models.Signal {
	need := e.p.EMASlow
	if e.p.RSIPeriod > need {
		need = e.p.RSIPeriod
	}
	if len(w.Candles) < need+1 {
		return nil
	}

	closes := w.Closes()
	fast := indicator.EMA(closes, e.p.EMAFast)
	slow := indicator.EMA(closes, e.p.EMASlow)
	rsi := indicator.RSI(closes, e.p.RSIPeriod)

	n := len(closes)
	lastRSI := rsi[n-1]
	price := closes[n-1]

	var side models.Side
	switch {
	case indicator.CrossedAbove(fast, slow) && lastRSI <= e.p.RSISellThreshold:
		side = models.SideBuy
	case indicator.CrossedBelow(fast, slow) && lastRSI >= e.p.RSIBuyThreshold:
		side = models.SideSell
	default:
		return nil
	}

	reason := fmt.Sprintf("EMA%d/%d cross %s: fast=%.6f slow=%.6f rsi=%.2f close=%.6f",
		e.p.EMAFast, e.p.EMASlow, side, fast[n-1], slow[n-1], lastRSI, price)

	return newSignal(w, e.Key(), side, price, emarsiConfidence,
		[]string{"ema", "rsi", "cross"}, reason)
}
