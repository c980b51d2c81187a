package strategy

import (
	"fmt"

	"SigFlow/internal/domain/models"
	"SigFlow/internal/indicator"
)

const rsiConfidence = 66

// RSIThreshold fires when RSI crosses back through a threshold: a buy
// when leaving oversold upwards, a sell when leaving overbought
// downwards.
type RSIThreshold struct {
	p Params
}

func NewRSIThreshold(p Params) *RSIThreshold {
	return &RSIThreshold{p: p}
}

func (e *RSIThreshold) Key() string { return "rsi" }

func (e *RSIThreshold) Evaluate(w Window) *models.Signal {
	if len(w.Candles) < e.p.RSIPeriod+1 {
		return nil
	}

	closes := w.Closes()
	rsi := indicator.RSI(closes, e.p.RSIPeriod)

	n := len(closes)
	prev, cur := rsi[n-2], rsi[n-1]
	price := closes[n-1]

	var side models.Side
	var level float64
	switch {
	case prev < e.p.RSIBuyThreshold && cur >= e.p.RSIBuyThreshold:
		side = models.SideBuy
		level = e.p.RSIBuyThreshold
	case prev > e.p.RSISellThreshold && cur <= e.p.RSISellThreshold:
		side = models.SideSell
		level = e.p.RSISellThreshold
	default:
		return nil
	}

	reason := fmt.Sprintf("RSI%d %s threshold %.1f: prev=%.2f cur=%.2f close=%.6f",
		e.p.RSIPeriod, side, level, prev, cur, price)

	return newSignal(w, e.Key(), side, price, rsiConfidence,
		[]string{"rsi", "threshold"}, reason)
}
