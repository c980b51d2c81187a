// Package indicator provides technical indicator series over candle data.
// All series functions return slices whose length matches the input.
package indicator

import (
	"math"

	"SigFlow/internal/domain/models"
)

// EMA computes an exponential moving average seeded with the first value.
// Smoothing factor is 2/(period+1).
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	if period < 1 {
		period = 1
	}
	alpha := 2.0 / (float64(period) + 1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI computes Wilder's relative strength index. The first `period`
// values use a growing simple average of gains/losses; afterwards the
// averages are Wilder-smoothed.
func RSI(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || period < 1 {
		return out
	}
	out[0] = 50

	var gainSum, lossSum, avgGain, avgLoss float64
	for i := 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		if i <= period {
			gainSum += gain
			lossSum += loss
			avgGain = gainSum / float64(i)
			avgLoss = lossSum / float64(i)
		} else {
			avgGain = (avgGain*float64(period-1) + gain) / float64(period)
			avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		}
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns the MACD line (fastEMA-slowEMA), the signal line and the
// histogram, each length-matched to the input.
func MACD(values []float64, fast, slow, signal int) (macdLine, signalLine, histogram []float64) {
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)

	macdLine = make([]float64, len(values))
	for i := range values {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}

	signalLine = EMA(macdLine, signal)

	histogram = make([]float64, len(values))
	for i := range values {
		histogram[i] = macdLine[i] - signalLine[i]
	}
	return macdLine, signalLine, histogram
}

// ATR computes the Wilder-smoothed average true range.
func ATR(candles []models.Candle, period int) []float64 {
	out := make([]float64, len(candles))
	if len(candles) == 0 || period < 1 {
		return out
	}

	var trSum, atr float64
	for i, c := range candles {
		var tr float64
		if i == 0 {
			tr = c.High - c.Low
		} else {
			prevClose := candles[i-1].Close
			tr = math.Max(c.High-c.Low,
				math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
		}

		if i < period {
			trSum += tr
			atr = trSum / float64(i+1)
		} else {
			atr = (atr*float64(period-1) + tr) / float64(period)
		}
		out[i] = atr
	}
	return out
}

// HighestHigh returns the max high over the candles. Zero for empty input.
func HighestHigh(candles []models.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	m := candles[0].High
	for _, c := range candles[1:] {
		if c.High > m {
			m = c.High
		}
	}
	return m
}

// LowestLow returns the min low over the candles. Zero for empty input.
func LowestLow(candles []models.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	m := candles[0].Low
	for _, c := range candles[1:] {
		if c.Low < m {
			m = c.Low
		}
	}
	return m
}

// CrossedAbove reports whether a crossed above b on the latest bar:
// a was at or below b on the prior bar and strictly above on the last.
func CrossedAbove(a, b []float64) bool {
	n := len(a)
	if n < 2 || len(b) != n {
		return false
	}
	return a[n-2] <= b[n-2] && a[n-1] > b[n-1]
}

// CrossedBelow is the symmetric downward crossing.
func CrossedBelow(a, b []float64) bool {
	n := len(a)
	if n < 2 || len(b) != n {
		return false
	}
	return a[n-2] >= b[n-2] && a[n-1] < b[n-1]
}
