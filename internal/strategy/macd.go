package strategy

import (
	"fmt"

	"SigFlow/internal/domain/models"
	"SigFlow/internal/indicator"
)

const macdConfidence = 74

// MACDCross fires when the MACD line crosses its signal line on the
// latest bar.
type MACDCross struct {
	p Params
}

func NewMACDCross(p Params) *MACDCross {
	return &MACDCross{p: p}
}

func (e *MACDCross) Key() string { return "macd" }

func (e *MACDCross) Evaluate(w Window) *models.Signal {
	if len(w.Candles) < e.p.MACDSlow+1 {
		return nil
	}

	closes := w.Closes()
	macdLine, signalLine, hist := indicator.MACD(closes, e.p.MACDFast, e.p.MACDSlow, e.p.MACDSignal)

	n := len(closes)
	price := closes[n-1]

	var side models.Side
	switch {
	case indicator.CrossedAbove(macdLine, signalLine):
		side = models.SideBuy
	case indicator.CrossedBelow(macdLine, signalLine):
		side = models.SideSell
	default:
		return nil
	}

	reason := fmt.Sprintf("MACD(%d,%d,%d) cross %s: macd=%.6f signal=%.6f hist=%.6f close=%.6f",
		e.p.MACDFast, e.p.MACDSlow, e.p.MACDSignal, side,
		macdLine[n-1], signalLine[n-1], hist[n-1], price)

	return newSignal(w, e.Key(), side, price, macdConfidence,
		[]string{"macd", "cross"}, reason)
}
