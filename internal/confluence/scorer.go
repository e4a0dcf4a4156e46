package confluence

import (
	"fmt"
	"math"

	"forex-signal-engine/internal/features"
	"forex-signal-engine/internal/market"
)

// Result represents the strength of multiple aligned signals
type Result struct {
	// Individual contributions (points on the 0-100 scale)
	TrendAlignment  float64
	HTFAgreement    float64
	VolatilityScore float64
	ZoneSpacing     float64
	SqueezeVWAP     float64
	RangePenalty    float64
	SessionBonus    float64

	// Composite score, clamped to [0,100]
	Score float64

	// Supporting data
	Reasoning []string
}

// Scorer combines the feature set into a single 0-100 confluence score.
// Contribution caps follow the fixed weighting: trend 15, 4H agreement 15,
// volatility regime 15/10/5, zone spacing 20, squeeze-near-VWAP 15, session
// alignment 10, daily-range overuse -10.
type Scorer struct{}

// NewScorer creates a confluence scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score calculates overall signal confluence for the feature set.
func (cs *Scorer) Score(f *features.Set, ctx market.Context, price float64) *Result {
	r := &Result{Reasoning: make([]string, 0)}

	trendSign := f.TrendSign()

	// 1. Trend alignment: EMA20 slope and EMA100 distance agree in sign
	if trendSign != 0 {
		r.TrendAlignment = 15 * math.Min(1, math.Abs(f.EMA100DistBps)/30)
		if r.TrendAlignment >= 10 {
			r.Reasoning = append(r.Reasoning, "Strong trend alignment between EMA20 slope and EMA100 distance")
		} else {
			r.Reasoning = append(r.Reasoning, "Moderate trend alignment")
		}
	}

	// 2. 4H bias agreement with the 1H trend
	if f.Bias4H != nil && *f.Bias4H != 0 && *f.Bias4H == trendSign {
		r.HTFAgreement = 15
		r.Reasoning = append(r.Reasoning, "4H bias agrees with 1H trend")
	}

	// 3. Volatility regime
	if f.Vol4H != nil {
		switch *f.Vol4H {
		case features.VolMedium:
			r.VolatilityScore = 15
			r.Reasoning = append(r.Reasoning, "Medium volatility regime")
		case features.VolHigh:
			if f.Squeeze {
				r.VolatilityScore = 10
				r.Reasoning = append(r.Reasoning, "Squeeze during high volatility")
			}
		case features.VolLow:
			r.VolatilityScore = 5
			r.Reasoning = append(r.Reasoning, "Low volatility regime")
		}
	}

	// 4. Spacing from the nearest S/R zone: wide spacing rewarded for trend
	// setups, tight spacing rewarded at RSI extremes (mean-reversion setups)
	if dist, ok := f.NearestZoneDistance(price); ok && f.ATR14 > 0 {
		d := dist / f.ATR14
		if f.RSIExtreme() {
			r.ZoneSpacing = 20 * math.Max(0, 1-d/0.5)
			if r.ZoneSpacing > 10 {
				r.Reasoning = append(r.Reasoning, "Price pressed into an S/R zone at an RSI extreme")
			}
		} else {
			r.ZoneSpacing = 20 * math.Min(1, d/2)
			if r.ZoneSpacing > 10 {
				r.Reasoning = append(r.Reasoning, "Clear room to the nearest S/R zone")
			}
		}
	}

	// 5. Squeeze with price near VWAP
	if f.Squeeze && f.VWAP != 0 && f.ATR14 > 0 && math.Abs(price-f.VWAP) <= 0.25*f.ATR14 {
		r.SqueezeVWAP = 15
		r.Reasoning = append(r.Reasoning, "Volatility squeeze coiling at VWAP")
	}

	// 6. Daily-range exhaustion penalty
	if f.DailyRangeUsed > 0.8 {
		r.RangePenalty = -10
		r.Reasoning = append(r.Reasoning,
			fmt.Sprintf("%.0f%% of the average daily range already used", f.DailyRangeUsed*100))
	}

	// 7. Favorable session on the expected side of VWAP
	if ctx.Session.Favorable() && trendSign != 0 && f.VWAP != 0 {
		onExpectedSide := (trendSign > 0 && price >= f.VWAP) || (trendSign < 0 && price <= f.VWAP)
		if onExpectedSide {
			r.SessionBonus = 10
			r.Reasoning = append(r.Reasoning,
				fmt.Sprintf("Favorable %s session with price on the trend side of VWAP", ctx.Session))
		}
	}

	r.Score = clamp(r.TrendAlignment+r.HTFAgreement+r.VolatilityScore+
		r.ZoneSpacing+r.SqueezeVWAP+r.RangePenalty+r.SessionBonus, 0, 100)

	return r
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
