// Package strategy holds pluggable signal evaluators. Each evaluator is
// a pure function of a candle window and emits at most one signal.
package strategy

import (
	"SigFlow/internal/domain/models"
)

// Window is the input to an evaluator: an ordered candle series plus the
// instrument context the scanner stamps onto emitted signals.
type Window struct {
	Instrument string
	AssetType  models.AssetType
	Interval   string
	Candles    []models.Candle
}

// Closes extracts the close series.
func (w Window) Closes() []float64 {
	out := make([]float64, len(w.Candles))
	for i, c := range w.Candles {
		out[i] = c.Close
	}
	return out
}

// Evaluator consumes a candle window and emits at most one directional
// signal. A nil result means "no signal", never an error.
type Evaluator interface {
	Key() string
	Evaluate(w Window) *models.Signal
}

// Params carries per-strategy tuning from config.
type Params struct {
	RSIPeriod        int
	RSIBuyThreshold  float64
	RSISellThreshold float64
	EMAFast          int
	EMASlow          int
	BreakoutLookback int
	MACDFast         int
	MACDSlow         int
	MACDSignal       int
}

// Registry holds the active evaluators in evaluation order.
type Registry struct {
	evaluators []Evaluator
}

// NewRegistry builds the default evaluator set from params.
func NewRegistry(p Params) *Registry {
	return &Registry{
		evaluators: []Evaluator{
			NewEMARSICross(p),
			NewRSIThreshold(p),
			NewBreakout(p),
			NewMACDCross(p),
		},
	}
}

// Evaluators returns the registered evaluators.
func (r *Registry) Evaluators() []Evaluator {
	return r.evaluators
}

func newSignal(w Window, strategyKey string, side models.Side, price float64, confidence int, tags []string, reason string) *models.Signal {
	var ts int64
	if n := len(w.Candles); n > 0 {
		ts = w.Candles[n-1].CloseTime
	}
	p := price
	return &models.Signal{
		Source:     models.SourceBinance,
		AssetType:  w.AssetType,
		Instrument: w.Instrument,
		Interval:   w.Interval,
		Strategy:   strategyKey,
		Kind:       models.KindEntry,
		Side:       side,
		Price:      &p,
		Time:       ts,
		Confidence: confidence,
		Tags:       tags,
		Reason:     reason,
	}
}
