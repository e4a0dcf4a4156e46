package features

import (
	"time"

	"forex-signal-engine/config"
	"forex-signal-engine/internal/indicators"
	"forex-signal-engine/internal/market"
	"forex-signal-engine/internal/zones"
)

// VolBucket classifies the higher-timeframe volatility regime.
type VolBucket string

const (
	VolLow    VolBucket = "low"
	VolMedium VolBucket = "medium"
	VolHigh   VolBucket = "high"
)

// Set is the full feature vector for one pipeline run. It is recomputed
// fresh per call and never mutated in place. Fields that depend on optional
// inputs (4H series, daily series, a session opening hour) are pointers and
// nil when unavailable, so missing data surfaces instead of masquerading as
// a valid zero signal.
type Set struct {
	// Daily context
	DailyRangeUsed float64 // Fraction of the average daily range consumed today
	DailyBias      int     // -1/0/+1 from the daily series
	ADR            float64 // Average daily range in price terms

	// Moving averages
	EMA20         float64
	EMA50         float64
	EMA100        float64
	EMA20Slope    float64 // Per-bar EMA20 change
	EMA100DistBps float64 // Distance from price to EMA100 in basis points

	// Volatility
	ATR14    float64
	ATR20    float64
	Boll     indicators.Band
	Kelt     indicators.Band
	Squeeze  bool
	DonchPos float64 // Donchian position in [0,1]

	// Oscillators
	RSI14 float64
	MACD  indicators.MACDResult

	// Structure
	HigherHighs bool
	LowerLows   bool
	BodyRatio   float64

	// Session levels
	VWAP         float64
	VWAPDistBps  float64
	OpeningRange *indicators.OpeningRange
	Pivots       indicators.PivotPoints
	Fib          indicators.FibLevels
	SessionHigh  float64
	SessionLow   float64

	// Higher timeframe (nil when no 4H series supplied)
	Bias4H *int
	Vol4H  *VolBucket

	// Gating passthrough
	ActivityScore float64
	SpreadZ       float64

	// Zones
	Zones []zones.Zone

	// Confluence score, filled by the scorer after the set is built
	Confluence float64

	// Degraded marks a set built from fewer candles than the full-feature
	// minimum; such sets carry documented neutral defaults.
	Degraded bool
}

// TrendSign returns the agreed direction of EMA20 slope and EMA100 distance:
// +1, -1, or 0 when they disagree or either is flat.
func (s *Set) TrendSign() int {
	slope := sign(s.EMA20Slope)
	dist := sign(s.EMA100DistBps)
	if slope != 0 && slope == dist {
		return slope
	}
	return 0
}

// RSIExtreme reports whether RSI(14) is at an oversold/overbought extreme.
func (s *Set) RSIExtreme() bool {
	return s.RSI14 < 30 || s.RSI14 > 70
}

// NearestZoneDistance returns the edge distance to the closest zone, and
// whether any zone exists.
func (s *Set) NearestZoneDistance(price float64) (float64, bool) {
	zone, dist := zones.Nearest(s.Zones, price)
	if zone == nil {
		return 0, false
	}
	return dist, true
}

// Builder derives feature sets from candle series.
type Builder struct {
	detector   *zones.Detector
	minCandles int
}

// NewBuilder creates a feature builder. minCandles is the window required
// for full feature computation; shorter series yield a degraded set.
func NewBuilder(minCandles int) *Builder {
	return &Builder{
		detector:   zones.NewDetector(),
		minCandles: minCandles,
	}
}

// Build computes the feature set for one run. It never fails: short windows
// produce neutral defaults with Degraded set, per-component documented.
func (b *Builder) Build(candles, candles4h, daily []market.Candle, price float64, spec config.SymbolSpec, ctx market.Context) *Set {
	s := &Set{
		ActivityScore: ctx.ActivityScore,
		SpreadZ:       ctx.SpreadZ,
		Degraded:      len(candles) < b.minCandles,
	}

	if len(candles) == 0 {
		s.RSI14 = 50
		s.DonchPos = 0.5
		return s
	}

	// Moving averages
	s.EMA20 = indicators.EMA(candles, 20)
	s.EMA50 = indicators.EMA(candles, 50)
	s.EMA100 = indicators.EMA(candles, 100)
	s.EMA20Slope = indicators.EMASlope(candles, 20, 3)
	if s.EMA100 != 0 {
		s.EMA100DistBps = indicators.DistanceBps(price, s.EMA100)
	}

	// Volatility
	s.ATR14 = indicators.ATR(candles, 14)
	s.ATR20 = indicators.ATR(candles, 20)
	s.Boll = indicators.Bollinger(candles, 20, 2.0)
	s.Kelt = indicators.Keltner(candles, 20, 14, 1.5)
	s.Squeeze = indicators.Squeeze(s.Boll, s.Kelt)
	s.DonchPos = indicators.DonchianPosition(candles, 20, price)

	// Oscillators
	s.RSI14 = indicators.RSI(candles, 14)
	s.MACD = indicators.MACD(candles, 12, 26, 9)

	// Structure
	s.HigherHighs, s.LowerLows = swingStructure(candles)
	s.BodyRatio = candles[len(candles)-1].BodyRatio()

	// Session levels
	s.VWAP = indicators.SessionVWAP(candles)
	if s.VWAP != 0 {
		s.VWAPDistBps = indicators.DistanceBps(price, s.VWAP)
	}
	s.OpeningRange = indicators.OpeningRange60(candles, price)
	s.Fib = indicators.Fibonacci(candles, 50)
	s.SessionHigh, s.SessionLow = indicators.SessionHighLow(candles)

	// Daily context
	s.ADR = averageDailyRange(candles, daily)
	s.DailyBias = dailyBias(daily)
	if len(daily) >= 2 {
		s.Pivots = indicators.DailyPivots(daily)
	} else {
		s.Pivots = dailyPivotsFromHourly(candles)
	}
	if s.ADR > 0 && s.SessionHigh > s.SessionLow {
		s.DailyRangeUsed = (s.SessionHigh - s.SessionLow) / s.ADR
	}

	// Higher timeframe
	s.Bias4H, s.Vol4H = higherTimeframe(candles4h, price)

	// Zones
	s.Zones = b.detector.Detect(candles, s.ADR, spec.PipSize, price)

	return s
}

// averageDailyRange prefers the true daily series; without one it scales the
// hourly ATR as a documented approximation of a 24-hour range.
func averageDailyRange(candles, daily []market.Candle) float64 {
	if adr := indicators.AverageDailyRange(daily, 14); adr > 0 {
		return adr
	}
	return indicators.ATR(candles, 14) * 5
}

// dailyBias reads the daily trend: +1 when the last close is above the daily
// SMA20, -1 below, 0 without enough history.
func dailyBias(daily []market.Candle) int {
	if len(daily) < 20 {
		return 0
	}
	sma := indicators.SMA(daily, 20)
	if sma == 0 {
		return 0
	}
	return sign(daily[len(daily)-1].Close - sma)
}

// dailyPivotsFromHourly aggregates the previous trading day's hourly candles
// into a synthetic daily bar for pivot calculation.
func dailyPivotsFromHourly(candles []market.Candle) indicators.PivotPoints {
	if len(candles) == 0 {
		return indicators.PivotPoints{}
	}

	dayStart := market.TradingDayStart(candles[len(candles)-1].OpenTime)
	prevStart := dayStart.Add(-24 * time.Hour)

	var prev []market.Candle
	for _, c := range candles {
		if !c.OpenTime.Before(prevStart) && c.OpenTime.Before(dayStart) {
			prev = append(prev, c)
		}
	}
	if len(prev) == 0 {
		return indicators.PivotPoints{}
	}

	high, low := market.HighLow(prev)
	return indicators.Pivots(high, low, prev[len(prev)-1].Close)
}

// higherTimeframe derives the 4H bias and volatility bucket. Both are nil
// when the 4H series is too short.
func higherTimeframe(candles4h []market.Candle, price float64) (*int, *VolBucket) {
	var bias *int
	var vol *VolBucket

	if len(candles4h) >= 50 {
		ema20 := indicators.EMA(candles4h, 20)
		ema50 := indicators.EMA(candles4h, 50)
		slope := indicators.EMASlope(candles4h, 20, 3)

		b := 0
		if ema20 > ema50 && slope > 0 {
			b = 1
		} else if ema20 < ema50 && slope < 0 {
			b = -1
		}
		bias = &b
	}

	if len(candles4h) >= 15 && price > 0 {
		atrPct := indicators.ATR(candles4h, 14) / price
		v := VolMedium
		switch {
		case atrPct < 0.0015:
			v = VolLow
		case atrPct >= 0.0045:
			v = VolHigh
		}
		vol = &v
	}

	return bias, vol
}

// swingStructure reads the last two fractal swing highs/lows for
// higher-high and lower-low flags.
func swingStructure(candles []market.Candle) (higherHighs, lowerLows bool) {
	highs, lows := indicators.SwingPoints(market.LastN(candles, 60), 2)
	if len(highs) >= 2 {
		higherHighs = highs[len(highs)-1] > highs[len(highs)-2]
	}
	if len(lows) >= 2 {
		lowerLows = lows[len(lows)-1] < lows[len(lows)-2]
	}
	return higherHighs, lowerLows
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
