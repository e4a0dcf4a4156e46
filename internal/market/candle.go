package market

import "time"

// Candle represents a single OHLCV bar. Series are always ordered by
// ascending OpenTime. Volume may be zero for feeds that do not report it.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Range returns the high-low span of the candle.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// TypicalPrice returns (H+L+C)/3.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// BodyRatio returns |close-open| / (high-low). A doji-like bar with a flat
// range yields 0, never NaN.
func (c Candle) BodyRatio() float64 {
	r := c.Range()
	if r == 0 {
		return 0
	}
	body := c.Close - c.Open
	if body < 0 {
		body = -body
	}
	return body / r
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool {
	return c.Close > c.Open
}

// Closes extracts the close series.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// HighLow returns the highest high and lowest low of the window.
// Returns (0, 0) for an empty window.
func HighLow(candles []Candle) (high, low float64) {
	if len(candles) == 0 {
		return 0, 0
	}
	high = candles[0].High
	low = candles[0].Low
	for _, c := range candles[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}

// LastN returns the trailing n candles, or the whole series when shorter.
func LastN(candles []Candle, n int) []Candle {
	if len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}
