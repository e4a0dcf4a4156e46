package indicators

import (
	"forex-signal-engine/internal/market"
)

// ============================================================================
// VWAP
// ============================================================================

// VWAP calculates the volume-weighted average price of the window. When the
// feed reports no volume the unweighted mean of typical prices is returned,
// so the output is always a defined price, never NaN.
func VWAP(candles []market.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}

	pvSum := 0.0
	volSum := 0.0
	tpSum := 0.0
	for _, c := range candles {
		tp := c.TypicalPrice()
		pvSum += tp * c.Volume
		volSum += c.Volume
		tpSum += tp
	}

	if volSum == 0 {
		return tpSum / float64(len(candles))
	}
	return pvSum / volSum
}

// SessionVWAP calculates the VWAP of the current trading day only.
func SessionVWAP(candles []market.Candle) float64 {
	return VWAP(sessionCandles(candles))
}

// ============================================================================
// PIVOT POINTS
// ============================================================================

// PivotPoints holds classic pivot levels derived from the prior period.
type PivotPoints struct {
	PP float64 `json:"pp"`
	R1 float64 `json:"r1"`
	R2 float64 `json:"r2"`
	S1 float64 `json:"s1"`
	S2 float64 `json:"s2"`
}

// Valid reports whether the pivots were computed from a prior period.
func (p PivotPoints) Valid() bool {
	return p.PP != 0
}

// Pivots calculates the classic (H+L+C)/3 pivot with R1/R2/S1/S2 from the
// prior period's range.
func Pivots(high, low, close float64) PivotPoints {
	pp := (high + low + close) / 3
	return PivotPoints{
		PP: pp,
		R1: (2 * pp) - low,
		S1: (2 * pp) - high,
		R2: pp + (high - low),
		S2: pp - (high - low),
	}
}

// DailyPivots calculates pivots from the previous completed daily candle.
// Returns a zero value when no completed prior day is available.
func DailyPivots(daily []market.Candle) PivotPoints {
	if len(daily) < 2 {
		return PivotPoints{}
	}
	prev := daily[len(daily)-2]
	return Pivots(prev.High, prev.Low, prev.Close)
}

// ============================================================================
// FIBONACCI RETRACEMENT LEVELS
// ============================================================================

// FibLevels holds Fibonacci retracement levels over a lookback window.
type FibLevels struct {
	High  float64 `json:"high"`   // 0%
	L236  float64 `json:"l_236"`  // 23.6%
	L382  float64 `json:"l_382"`  // 38.2%
	L500  float64 `json:"l_500"`  // 50%
	L618  float64 `json:"l_618"`  // 61.8%
	L786  float64 `json:"l_786"`  // 78.6%
	Low   float64 `json:"low"`    // 100%
}

// Valid reports whether the levels were computed from a sufficient window.
func (f FibLevels) Valid() bool {
	return f.High != 0 && f.High != f.Low
}

// Fibonacci calculates retracement levels from the highest high and lowest
// low of the trailing lookback window. Returns a zero value when the window
// is too short.
func Fibonacci(candles []market.Candle, lookback int) FibLevels {
	if lookback <= 0 || len(candles) < lookback {
		return FibLevels{}
	}

	high, low := market.HighLow(market.LastN(candles, lookback))
	diff := high - low

	return FibLevels{
		High: high,
		L236: high - (diff * 0.236),
		L382: high - (diff * 0.382),
		L500: high - (diff * 0.50),
		L618: high - (diff * 0.618),
		L786: high - (diff * 0.786),
		Low:  low,
	}
}

// ============================================================================
// SWING HIGHS / LOWS (fractal rule)
// ============================================================================

// SwingPoints detects fractal swing highs and lows: a bar is a swing high
// (low) only if its high (low) strictly exceeds (undercuts) every neighbor
// within radius bars on both sides. Prices are returned in time order.
func SwingPoints(candles []market.Candle, radius int) (highs, lows []float64) {
	if radius <= 0 || len(candles) < 2*radius+1 {
		return nil, nil
	}

	for i := radius; i < len(candles)-radius; i++ {
		isHigh := true
		isLow := true
		for j := i - radius; j <= i+radius; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			highs = append(highs, candles[i].High)
		}
		if isLow {
			lows = append(lows, candles[i].Low)
		}
	}

	return highs, lows
}

// LatestSwingHigh returns the most recent fractal swing high, falling back
// to the raw window maximum when no swing is detected.
func LatestSwingHigh(candles []market.Candle, radius int) float64 {
	highs, _ := SwingPoints(candles, radius)
	if len(highs) > 0 {
		return highs[len(highs)-1]
	}
	high, _ := market.HighLow(candles)
	return high
}

// LatestSwingLow returns the most recent fractal swing low, falling back to
// the raw window minimum when no swing is detected.
func LatestSwingLow(candles []market.Candle, radius int) float64 {
	_, lows := SwingPoints(candles, radius)
	if len(lows) > 0 {
		return lows[len(lows)-1]
	}
	_, low := market.HighLow(candles)
	return low
}

// ============================================================================
// OPENING RANGE / SESSION LEVELS
// ============================================================================

// ORState describes price relative to the 60-minute opening range.
type ORState string

const (
	ORInside    ORState = "inside"
	ORBreakUp   ORState = "break_up"
	ORBreakDown ORState = "break_down"
)

// OpeningRange holds the first-hour range of the current trading day.
type OpeningRange struct {
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Mid   float64 `json:"mid"`
	State ORState `json:"state"`
}

// OpeningRange60 derives the 60-minute opening range from 1-hour candles:
// the first candle after the 21:00 UTC day open. Returns nil before the
// current day has a completed opening hour.
func OpeningRange60(candles []market.Candle, price float64) *OpeningRange {
	session := sessionCandles(candles)
	if len(session) == 0 {
		return nil
	}

	first := session[0]
	or := &OpeningRange{
		High: first.High,
		Low:  first.Low,
		Mid:  (first.High + first.Low) / 2,
	}

	switch {
	case price > or.High:
		or.State = ORBreakUp
	case price < or.Low:
		or.State = ORBreakDown
	default:
		or.State = ORInside
	}

	return or
}

// SessionHighLow returns the high/low of the current trading day so far.
// Returns (0, 0) when the series holds no candle of the current day.
func SessionHighLow(candles []market.Candle) (high, low float64) {
	return market.HighLow(sessionCandles(candles))
}

// sessionCandles slices the candles belonging to the trading day of the last
// candle.
func sessionCandles(candles []market.Candle) []market.Candle {
	if len(candles) == 0 {
		return nil
	}

	dayStart := market.TradingDayStart(candles[len(candles)-1].OpenTime)
	for i := len(candles) - 1; i >= 0; i-- {
		if candles[i].OpenTime.Before(dayStart) {
			return candles[i+1:]
		}
	}
	return candles
}

// ============================================================================
// AVERAGE DAILY RANGE
// ============================================================================

// AverageDailyRange calculates the mean high-low range of the trailing
// period of daily candles. Returns 0 when the series is too short.
func AverageDailyRange(daily []market.Candle, period int) float64 {
	if period <= 0 || len(daily) < period {
		return 0
	}

	sum := 0.0
	for _, c := range market.LastN(daily, period) {
		sum += c.Range()
	}
	return sum / float64(period)
}
