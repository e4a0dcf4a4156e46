package indicators

import (
	"forex-signal-engine/internal/market"
)

// ============================================================================
// RSI (Relative Strength Index)
// ============================================================================

// RSI calculates the Wilder-smoothed Relative Strength Index. Returns the
// neutral value 50 when the window is shorter than period+1, and 100 when
// the average loss is zero.
func RSI(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 50.0
	}

	// Seed with simple averages over the first period of changes
	gains := 0.0
	losses := 0.0
	for i := 1; i <= period; i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	// Wilder smoothing over the remainder of the series
	for i := period + 1; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ============================================================================
// MACD (Moving Average Convergence Divergence)
// ============================================================================

// MACDResult holds MACD indicator values
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD calculates the MACD line (fast EMA minus slow EMA), its signal line
// (an EMA of the MACD series), and the histogram. Returns a zero result when
// the window cannot support the slow EMA plus the signal period.
func MACD(candles []market.Candle, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	if len(candles) < slowPeriod+signalPeriod {
		return MACDResult{}
	}

	closes := market.Closes(candles)
	fast := emaSeries(closes, fastPeriod)
	slow := emaSeries(closes, slowPeriod)
	if len(fast) == 0 || len(slow) == 0 {
		return MACDResult{}
	}

	// Align the fast series to the slow series tail
	offset := len(fast) - len(slow)
	macdLine := make([]float64, len(slow))
	for i := range slow {
		macdLine[i] = fast[i+offset] - slow[i]
	}

	signal := emaSeries(macdLine, signalPeriod)
	if len(signal) == 0 {
		return MACDResult{}
	}

	macd := macdLine[len(macdLine)-1]
	sig := signal[len(signal)-1]
	return MACDResult{
		MACD:      macd,
		Signal:    sig,
		Histogram: macd - sig,
	}
}
