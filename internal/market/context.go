package market

import (
	"math"
	"time"
)

// Session identifies the active forex trading session, classified from UTC
// time-of-day. The trading day runs 21:00 UTC to 21:00 UTC.
type Session string

const (
	SessionSydney  Session = "sydney"
	SessionTokyo   Session = "tokyo"
	SessionLondon  Session = "london"
	SessionOverlap Session = "london_newyork"
	SessionNewYork Session = "newyork"
)

// Favorable reports whether the session is a primary liquidity window.
func (s Session) Favorable() bool {
	return s == SessionLondon || s == SessionOverlap
}

// Context carries the gating signals for one pipeline run. It is supplied by
// the caller or derived once per call; the engine treats it as immutable.
type Context struct {
	Session          Session `json:"session"`
	MinutesToClose   int     `json:"minutes_to_close"`
	WeekendOrHoliday bool    `json:"weekend_or_holiday"`
	SpreadZ          float64 `json:"spread_z"`
	ActivityScore    float64 `json:"activity_score"`
}

const (
	// dayCloseHourUTC is the forex trading day boundary (17:00 New York).
	dayCloseHourUTC = 21

	// activityWindow is the rolling window for the activity z-scores.
	activityWindow = 20
)

// DeriveContext builds a Context from wall-clock time and the recent candle
// series. spreadZ is the caller-observed spread z-score; callers without
// spread data pass 0 (explicit neutral, never a synthetic random value).
func DeriveContext(now time.Time, candles []Candle, spreadZ float64) Context {
	now = now.UTC()
	return Context{
		Session:          SessionAt(now),
		MinutesToClose:   MinutesToClose(now),
		WeekendOrHoliday: IsWeekendOrHoliday(now),
		SpreadZ:          spreadZ,
		ActivityScore:    ActivityScore(candles),
	}
}

// SessionAt classifies the trading session for a UTC instant.
func SessionAt(t time.Time) Session {
	switch h := t.UTC().Hour(); {
	case h == 21:
		return SessionSydney
	case h >= 22 || h < 7:
		return SessionTokyo
	case h < 12:
		return SessionLondon
	case h < 16:
		return SessionOverlap
	default:
		return SessionNewYork
	}
}

// MinutesToClose returns the minutes remaining until the 21:00 UTC day close.
func MinutesToClose(t time.Time) int {
	t = t.UTC()
	close := time.Date(t.Year(), t.Month(), t.Day(), dayCloseHourUTC, 0, 0, 0, time.UTC)
	if !t.Before(close) {
		close = close.Add(24 * time.Hour)
	}
	return int(close.Sub(t).Minutes())
}

// TradingDayStart returns the 21:00 UTC boundary that opened the trading day
// containing t.
func TradingDayStart(t time.Time) time.Time {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), dayCloseHourUTC, 0, 0, 0, time.UTC)
	if t.Before(start) {
		start = start.Add(-24 * time.Hour)
	}
	return start
}

// IsWeekendOrHoliday reports whether the forex market is closed: Friday
// 21:00 UTC through Sunday 21:00 UTC.
func IsWeekendOrHoliday(t time.Time) bool {
	t = t.UTC()
	switch t.Weekday() {
	case time.Saturday:
		return true
	case time.Friday:
		return t.Hour() >= dayCloseHourUTC
	case time.Sunday:
		return t.Hour() < dayCloseHourUTC
	default:
		return false
	}
}

// ActivityScore sums the true-range z-score and the absolute-return z-score
// of the latest candle against the preceding rolling window. Returns 0 when
// the series is too short to form a window.
func ActivityScore(candles []Candle) float64 {
	if len(candles) < activityWindow+2 {
		return 0
	}

	window := candles[len(candles)-activityWindow-1:]

	trs := make([]float64, 0, len(window)-1)
	rets := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		prev := window[i-1]
		c := window[i]
		tr := math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prev.Close), math.Abs(c.Low-prev.Close)))
		trs = append(trs, tr)
		if prev.Close != 0 {
			rets = append(rets, math.Abs(c.Close-prev.Close)/prev.Close)
		} else {
			rets = append(rets, 0)
		}
	}

	trZ := zScore(trs[:len(trs)-1], trs[len(trs)-1])
	retZ := zScore(rets[:len(rets)-1], rets[len(rets)-1])
	return trZ + retZ
}

// zScore returns (current-mean)/stddev over the baseline, or 0 when the
// baseline has no variance. Never NaN or infinity.
func zScore(baseline []float64, current float64) float64 {
	if len(baseline) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range baseline {
		sum += v
	}
	mean := sum / float64(len(baseline))

	variance := 0.0
	for _, v := range baseline {
		d := v - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(baseline)))
	if std == 0 {
		return 0
	}
	return (current - mean) / std
}
