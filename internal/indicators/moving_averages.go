package indicators

import (
	"forex-signal-engine/internal/market"
)

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// SMA calculates the Simple Moving Average of closes over the trailing
// period. Returns 0 when the window is shorter than the period.
func SMA(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}

	return sum / float64(period)
}

// EMA calculates the Exponential Moving Average of closes, seeded with the
// SMA of the first period and smoothed with k = 2/(period+1). Returns 0 when
// the window is shorter than the period.
func EMA(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}

	series := emaSeries(market.Closes(candles), period)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// EMASlope returns the per-bar change of the EMA over the trailing lookback
// bars. Returns 0 when the window cannot support both endpoints.
func EMASlope(candles []market.Candle, period, lookback int) float64 {
	if lookback <= 0 || len(candles) < period+lookback {
		return 0
	}

	now := EMA(candles, period)
	then := EMA(candles[:len(candles)-lookback], period)
	if now == 0 || then == 0 {
		return 0
	}
	return (now - then) / float64(lookback)
}

// emaSeries computes the EMA value for every index from period-1 onward.
// The first element corresponds to values[period-1].
func emaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	sum := 0.0
	for _, v := range values[:period] {
		sum += v
	}
	ema := sum / float64(period)

	multiplier := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)
	out = append(out, ema)

	for _, v := range values[period:] {
		ema = (v * multiplier) + (ema * (1 - multiplier))
		out = append(out, ema)
	}

	return out
}

// DistanceBps returns the distance from price to level in basis points of
// the level. Returns 0 when the level is 0.
func DistanceBps(price, level float64) float64 {
	if level == 0 {
		return 0
	}
	return (price - level) / level * 10000
}
