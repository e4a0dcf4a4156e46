package indicators

import (
	"math"

	"forex-signal-engine/internal/market"
)

// ============================================================================
// ATR (Average True Range)
// ============================================================================

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(c, prev market.Candle) float64 {
	return math.Max(
		c.High-c.Low,
		math.Max(
			math.Abs(c.High-prev.Close),
			math.Abs(c.Low-prev.Close),
		),
	)
}

// ATR calculates the Wilder-smoothed Average True Range. Returns 0 when the
// window is shorter than period+1.
func ATR(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}

	// Seed with the simple average of the first period true ranges
	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += TrueRange(candles[i], candles[i-1])
	}
	atr := sum / float64(period)

	// Wilder smoothing over the remainder
	for i := period + 1; i < len(candles); i++ {
		tr := TrueRange(candles[i], candles[i-1])
		atr = (atr*float64(period-1) + tr) / float64(period)
	}

	return atr
}

// ============================================================================
// BOLLINGER BANDS / KELTNER CHANNELS
// ============================================================================

// Band holds an upper/middle/lower channel around price.
type Band struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Width returns the upper-lower span of the band.
func (b Band) Width() float64 {
	return b.Upper - b.Lower
}

// Valid reports whether the band was computed from a sufficient window.
func (b Band) Valid() bool {
	return b.Middle != 0
}

// Bollinger calculates Bollinger Bands: SMA ± stdDevMultiplier·stddev over
// the trailing period. Returns a zero band when the window is too short.
func Bollinger(candles []market.Candle, period int, stdDevMultiplier float64) Band {
	if period <= 0 || len(candles) < period {
		return Band{}
	}

	middle := SMA(candles, period)

	variance := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		diff := candles[i].Close - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	return Band{
		Upper:  middle + (stdDev * stdDevMultiplier),
		Middle: middle,
		Lower:  middle - (stdDev * stdDevMultiplier),
	}
}

// Keltner calculates Keltner Channels: SMA ± ATR·multiplier. Returns a zero
// band when the window cannot support either component.
func Keltner(candles []market.Candle, period, atrPeriod int, multiplier float64) Band {
	if period <= 0 || len(candles) < period || len(candles) < atrPeriod+1 {
		return Band{}
	}

	middle := SMA(candles, period)
	atr := ATR(candles, atrPeriod)
	if atr == 0 {
		return Band{}
	}

	return Band{
		Upper:  middle + (atr * multiplier),
		Middle: middle,
		Lower:  middle - (atr * multiplier),
	}
}

// Squeeze reports whether the Bollinger band lies fully inside the Keltner
// channel, the low-volatility compression that precedes breakouts.
func Squeeze(bb, kc Band) bool {
	if !bb.Valid() || !kc.Valid() {
		return false
	}
	return bb.Upper <= kc.Upper && bb.Lower >= kc.Lower
}

// ============================================================================
// DONCHIAN CHANNEL
// ============================================================================

// DonchianPosition returns where price sits inside the rolling high/low
// channel, clamped to [0,1]. Returns the neutral 0.5 when the window is too
// short or the channel is flat.
func DonchianPosition(candles []market.Candle, period int, price float64) float64 {
	if period <= 0 || len(candles) < period {
		return 0.5
	}

	high, low := market.HighLow(market.LastN(candles, period))
	if high == low {
		return 0.5
	}

	pos := (price - low) / (high - low)
	if pos < 0 {
		return 0
	}
	if pos > 1 {
		return 1
	}
	return pos
}

// ============================================================================
// VOLUME
// ============================================================================

// AverageVolume calculates average volume over the trailing period, shrinking
// the period to the available window when necessary.
func AverageVolume(candles []market.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if len(candles) < period {
		period = len(candles)
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Volume
	}

	return sum / float64(period)
}

// IsVolumeSpike checks if the latest volume is significantly higher than the
// preceding average.
func IsVolumeSpike(candles []market.Candle, period int, multiplier float64) bool {
	if len(candles) < period+1 {
		return false
	}

	avgVolume := AverageVolume(candles[:len(candles)-1], period)
	if avgVolume == 0 {
		return false
	}
	return candles[len(candles)-1].Volume >= avgVolume*multiplier
}
