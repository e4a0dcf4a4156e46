package levels

import (
	"errors"
	"fmt"
	"math"

	"forex-signal-engine/config"
	"forex-signal-engine/internal/features"
	"forex-signal-engine/internal/market"
	"forex-signal-engine/internal/strategy"
	"forex-signal-engine/internal/zones"
)

// Hard failures: all stop/target math derives from ATR and zone data, so
// there is no safe synthetic substitute for either.
var (
	ErrMissingATR = errors.New("missing ATR for level calculation")
	ErrNoZones    = errors.New("no support/resistance zones available")
)

// Risk:reward is always bounded to this global range.
const (
	MinRiskReward = 1.5
	MaxRiskReward = 2.5
)

// Plan is the fully-specified level set for a selected strategy+direction.
type Plan struct {
	Entry        float64
	StopLoss     float64
	TakeProfit   float64
	RiskReward   float64
	Support      float64
	Resistance   float64
	Confidence   int
	PositionSize float64
	Reasoning    []string
}

// Calculator turns a selection into entry/stop/target prices, enforcing
// per-symbol minimum distances and the bounded risk:reward ratio.
type Calculator struct {
	risk config.RiskConfig
}

// NewCalculator creates a level calculator.
func NewCalculator(risk config.RiskConfig) *Calculator {
	return &Calculator{risk: risk}
}

// Calculate derives the trade plan for a non-None selection.
func (c *Calculator) Calculate(sel strategy.Selection, f *features.Set, ctx market.Context, price float64, spec config.SymbolSpec) (*Plan, error) {
	atr := c.atrFor(sel.Strategy, f)
	if atr <= 0 {
		return nil, ErrMissingATR
	}
	if len(f.Zones) == 0 {
		return nil, ErrNoZones
	}

	p := &Plan{Entry: price}

	// Stop distance: ATR times the strategy multiplier, floored at the
	// per-symbol broker minimum.
	mult := 0.8
	if sel.Strategy == strategy.MeanReversion {
		mult = 0.6
	}
	stopDist := math.Max(atr*mult, spec.MinStopDistance())

	// Target distance: retarget to the desired risk:reward, cap at the
	// nearest opposing zone, then clamp to the global bounds. The default
	// symbol tables keep MinTargetPips <= 1.5*MinStopPips so the broker
	// minimum survives the clamp.
	desired := c.desiredRiskReward(sel, f, price)
	targetDist := stopDist * desired

	if capDist, capped := opposingZoneCap(sel.Direction, f.Zones, price); capped && capDist < targetDist {
		targetDist = capDist
		p.Reasoning = append(p.Reasoning, "Take profit capped at the nearest opposing zone")
	}

	targetDist = math.Max(targetDist, spec.MinTargetDistance())
	targetDist = math.Min(math.Max(targetDist, stopDist*MinRiskReward), stopDist*MaxRiskReward)

	if sel.Direction == strategy.Buy {
		p.StopLoss = price - stopDist
		p.TakeProfit = price + targetDist
	} else {
		p.StopLoss = price + stopDist
		p.TakeProfit = price - targetDist
	}
	p.RiskReward = targetDist / stopDist

	p.Support, p.Resistance = referenceLevels(f, price, atr)
	p.Confidence = c.confidence(sel, f, ctx)
	p.PositionSize = c.positionSize(stopDist, spec)
	p.Reasoning = append(p.Reasoning,
		fmt.Sprintf("Stop %.1f pips, target %.1f pips (%.2f:1 reward:risk)",
			spec.Pips(stopDist), spec.Pips(targetDist), p.RiskReward))

	return p, nil
}

// atrFor picks the ATR window matching the strategy's level math.
func (c *Calculator) atrFor(t strategy.Type, f *features.Set) float64 {
	if t == strategy.Breakout {
		return f.ATR20
	}
	return f.ATR14
}

// desiredRiskReward: 1.75 near S/R or for mean-reversion, 2.25 for confirmed
// squeeze breakouts and strongly aligned trends, 2.0 otherwise.
func (c *Calculator) desiredRiskReward(sel strategy.Selection, f *features.Set, price float64) float64 {
	if sel.Strategy == strategy.MeanReversion {
		return 1.75
	}
	if dist, ok := f.NearestZoneDistance(price); ok && f.ATR14 > 0 && dist <= 0.3*f.ATR14 {
		return 1.75
	}
	if sel.Strategy == strategy.Breakout && f.Squeeze {
		return 2.25
	}
	if sel.Strategy == strategy.Trend && f.Bias4H != nil && *f.Bias4H != 0 && f.TrendSign() == *f.Bias4H {
		return 2.25
	}
	return 2.0
}

// confidence: 50 + floor(confluence/2) + strategy bonuses + session bonus -
// daily-range-usage penalty, clamped to [20,90].
func (c *Calculator) confidence(sel strategy.Selection, f *features.Set, ctx market.Context) int {
	conf := 50 + int(f.Confluence/2)

	if sel.Strategy == strategy.Breakout && f.Squeeze {
		conf += 10
	}
	if sel.Strategy == strategy.Trend && f.Bias4H != nil && *f.Bias4H != 0 {
		conf += 5
	}
	if ctx.Session.Favorable() {
		conf += 5
	}

	switch {
	case f.DailyRangeUsed > 0.9:
		conf -= 20
	case f.DailyRangeUsed > 0.8:
		conf -= 10
	}

	if conf < 20 {
		return 20
	}
	if conf > 90 {
		return 90
	}
	return conf
}

// positionSize = risk amount / (stop distance in pips * pip value), floored
// at zero. Zero denominators yield a zero size, never NaN.
func (c *Calculator) positionSize(stopDist float64, spec config.SymbolSpec) float64 {
	stopPips := spec.Pips(stopDist)
	if stopPips <= 0 || spec.PipValue <= 0 || c.risk.AccountBalance <= 0 {
		return 0
	}
	riskAmount := c.risk.AccountBalance * c.risk.RiskPerTradePercent / 100
	size := riskAmount / (stopPips * spec.PipValue)
	if size < 0 {
		return 0
	}
	return size
}

// opposingZoneCap returns the distance from entry to the near edge of the
// closest zone on the profit side, when one exists.
func opposingZoneCap(dir strategy.Direction, zs []zones.Zone, price float64) (float64, bool) {
	if dir == strategy.Buy {
		if res := zones.NearestResistance(zs, price); res != nil && res.Min > price {
			return res.Min - price, true
		}
		return 0, false
	}
	if sup := zones.NearestSupport(zs, price); sup != nil && sup.Max < price {
		return price - sup.Max, true
	}
	return 0, false
}

// referenceLevels picks the display support/resistance around price,
// preferring zones, then session extremes, then an ATR envelope.
func referenceLevels(f *features.Set, price, atr float64) (support, resistance float64) {
	if sup := zones.NearestSupport(f.Zones, price); sup != nil {
		support = sup.Max
	} else if f.SessionLow > 0 && f.SessionLow < price {
		support = f.SessionLow
	} else {
		support = price - atr
	}

	if res := zones.NearestResistance(f.Zones, price); res != nil {
		resistance = res.Min
	} else if f.SessionHigh > price {
		resistance = f.SessionHigh
	} else {
		resistance = price + atr
	}

	return support, resistance
}
