package gate

import (
	"fmt"
	"math"

	"forex-signal-engine/config"
	"forex-signal-engine/internal/features"
	"forex-signal-engine/internal/market"
	"forex-signal-engine/internal/strategy"
)

// Gate names reported in placeholder reasoning.
const (
	GateWeekend     = "weekend_or_holiday"
	GateNearClose   = "near_session_close"
	GateWideSpread  = "abnormal_spread"
	GateLowActivity = "low_activity"
)

// PlanningOnlyMarker is always present in placeholder reasoning so
// downstream consumers can never mistake a placeholder for an actionable
// signal.
const PlanningOnlyMarker = "PLANNING ONLY: soft gates active, do not auto-execute"

// Placeholder confidence is forced into [20,35].
const (
	placeholderBaseConfidence = 35
	placeholderFloor          = 20
	placeholderGateReduction  = 5
)

// Placeholder is the low-confidence fallback synthesized when no strategy
// matched but soft gates are active.
type Placeholder struct {
	Action     strategy.Direction
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	RiskReward float64
	Confidence int
	Reasoning  []string
}

// Keeper applies the soft pre-gates. None of the gates alone blocks
// computation; they only decide what a strategy=None run degrades into.
type Keeper struct {
	cfg config.GateConfig
}

// NewKeeper creates a gate keeper with configured thresholds.
func NewKeeper(cfg config.GateConfig) *Keeper {
	return &Keeper{cfg: cfg}
}

// ActiveGates returns the names of the soft gates the context trips.
func (k *Keeper) ActiveGates(ctx market.Context) []string {
	var gates []string
	if ctx.WeekendOrHoliday {
		gates = append(gates, GateWeekend)
	}
	if ctx.MinutesToClose < k.cfg.MinutesToCloseLimit {
		gates = append(gates, GateNearClose)
	}
	if ctx.SpreadZ > k.cfg.SpreadZLimit {
		gates = append(gates, GateWideSpread)
	}
	if ctx.ActivityScore < k.cfg.ActivityFloor {
		gates = append(gates, GateLowActivity)
	}
	return gates
}

// Placeholder synthesizes the planning-only fallback: direction from the 4H
// bias or the EMA20 slope, an 0.8 ATR stop floored at the broker minimum,
// a forced 1.5 risk:reward target, and confidence reduced per active gate.
func (k *Keeper) Placeholder(f *features.Set, price float64, spec config.SymbolSpec, gates []string) *Placeholder {
	p := &Placeholder{
		Action: placeholderDirection(f, price),
		Entry:  price,
	}

	stopDist := 0.8 * f.ATR14
	if stopDist < spec.MinStopDistance() {
		stopDist = spec.MinStopDistance()
	}
	targetDist := math.Max(1.5*stopDist, spec.MinTargetDistance())

	if p.Action == strategy.Buy {
		p.StopLoss = price - stopDist
		p.TakeProfit = price + targetDist
	} else {
		p.StopLoss = price + stopDist
		p.TakeProfit = price - targetDist
	}
	p.RiskReward = targetDist / stopDist

	p.Confidence = placeholderBaseConfidence - placeholderGateReduction*len(gates)
	if p.Confidence < placeholderFloor {
		p.Confidence = placeholderFloor
	}

	p.Reasoning = append(p.Reasoning, PlanningOnlyMarker)
	p.Reasoning = append(p.Reasoning, "No strategy conditions matched; levels are indicative")
	for _, g := range gates {
		p.Reasoning = append(p.Reasoning, fmt.Sprintf("Soft gate active: %s", g))
	}

	return p
}

// placeholderDirection prefers the 4H bias, then the EMA20 slope, then the
// side of VWAP. Fully deterministic.
func placeholderDirection(f *features.Set, price float64) strategy.Direction {
	if f.Bias4H != nil && *f.Bias4H != 0 {
		if *f.Bias4H > 0 {
			return strategy.Buy
		}
		return strategy.Sell
	}
	if f.EMA20Slope > 0 {
		return strategy.Buy
	}
	if f.EMA20Slope < 0 {
		return strategy.Sell
	}
	if f.VWAP != 0 && price < f.VWAP {
		return strategy.Sell
	}
	return strategy.Buy
}
