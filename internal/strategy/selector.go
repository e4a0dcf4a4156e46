package strategy

import (
	"fmt"
	"math"

	"forex-signal-engine/config"
	"forex-signal-engine/internal/features"
	"forex-signal-engine/internal/indicators"
)

// Type is the closed set of strategies the selector can choose. It is
// terminal per call; no state persists across invocations.
type Type string

const (
	Breakout      Type = "BREAKOUT"
	Trend         Type = "TREND"
	MeanReversion Type = "MEAN_REVERSION"
	None          Type = "NONE"
)

// Direction is the trade side for a selection.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == Buy {
		return Sell
	}
	return Buy
}

// Selection is the outcome of one selector run.
type Selection struct {
	Strategy  Type
	Direction Direction
	Reasoning []string
}

// Selector chooses a strategy and direction using threshold rules over the
// confluence score and specific feature conditions. Checks run in fixed
// priority order: Breakout, then Trend, then MeanReversion.
type Selector struct {
	breakoutMin  float64
	trendMin     float64
	reversionMin float64
}

// NewSelector creates a selector with thresholds from config.
func NewSelector(cfg config.EngineConfig) *Selector {
	return &Selector{
		breakoutMin:  cfg.BreakoutMinConfluence,
		trendMin:     cfg.TrendMinConfluence,
		reversionMin: cfg.ReversionMinConfluence,
	}
}

// Select evaluates the strategy conditions against the feature set.
func (s *Selector) Select(f *features.Set, price float64) Selection {
	if sel, ok := s.breakout(f, price); ok {
		return sel
	}
	if sel, ok := s.trend(f, price); ok {
		return sel
	}
	if sel, ok := s.meanReversion(f, price); ok {
		return sel
	}
	return Selection{Strategy: None}
}

// breakout: squeeze active, price within 0.2 ATR20 of the opening-range
// midpoint, confluence at or above the breakout floor.
func (s *Selector) breakout(f *features.Set, price float64) (Selection, bool) {
	if !f.Squeeze || f.OpeningRange == nil || f.ATR20 <= 0 {
		return Selection{}, false
	}
	if f.Confluence < s.breakoutMin {
		return Selection{}, false
	}
	if math.Abs(price-f.OpeningRange.Mid) > 0.2*f.ATR20 {
		return Selection{}, false
	}

	sel := Selection{Strategy: Breakout}
	switch f.OpeningRange.State {
	case indicators.ORBreakUp:
		sel.Direction = Buy
		sel.Reasoning = append(sel.Reasoning, "Opening range broken to the upside under squeeze conditions")
	case indicators.ORBreakDown:
		sel.Direction = Sell
		sel.Reasoning = append(sel.Reasoning, "Opening range broken to the downside under squeeze conditions")
	default:
		// No break yet: anticipate the side from VWAP and the EMA20/EMA50
		// relationship
		if f.EMA20 > f.EMA50 && (f.VWAP == 0 || price >= f.VWAP) {
			sel.Direction = Buy
			sel.Reasoning = append(sel.Reasoning, "Squeeze at the opening-range midpoint; EMA20 above EMA50 and price holding VWAP favor an upside break")
		} else {
			sel.Direction = Sell
			sel.Reasoning = append(sel.Reasoning, "Squeeze at the opening-range midpoint; EMA20 below EMA50 and price under VWAP favor a downside break")
		}
	}
	sel.Reasoning = append(sel.Reasoning, fmt.Sprintf("Confluence %.0f meets breakout threshold %.0f", f.Confluence, s.breakoutMin))
	return sel, true
}

// trend: confluence at the trend floor with full EMA100/slope/4H alignment
// on one side.
func (s *Selector) trend(f *features.Set, price float64) (Selection, bool) {
	if f.Confluence < s.trendMin || f.Bias4H == nil {
		return Selection{}, false
	}

	bullish := price > f.EMA100 && f.EMA100 != 0 && f.EMA20Slope > 0 && *f.Bias4H > 0
	bearish := price < f.EMA100 && f.EMA100 != 0 && f.EMA20Slope < 0 && *f.Bias4H < 0
	if !bullish && !bearish {
		return Selection{}, false
	}

	sel := Selection{Strategy: Trend}
	if bullish {
		sel.Direction = Buy
		sel.Reasoning = append(sel.Reasoning, "Price above EMA100 with a rising EMA20 and bullish 4H bias")
	} else {
		sel.Direction = Sell
		sel.Reasoning = append(sel.Reasoning, "Price below EMA100 with a falling EMA20 and bearish 4H bias")
	}
	sel.Reasoning = append(sel.Reasoning, fmt.Sprintf("Confluence %.0f meets trend threshold %.0f", f.Confluence, s.trendMin))
	return sel, true
}

// meanReversion: confluence at the reversion floor, price pressed into a
// zone, daily range not exhausted, RSI at an extreme. Takes the
// counter-trend side.
func (s *Selector) meanReversion(f *features.Set, price float64) (Selection, bool) {
	if f.Confluence < s.reversionMin || f.ATR14 <= 0 {
		return Selection{}, false
	}
	dist, ok := f.NearestZoneDistance(price)
	if !ok || dist > 0.15*f.ATR14 {
		return Selection{}, false
	}
	if f.DailyRangeUsed > 0.85 {
		return Selection{}, false
	}
	if !f.RSIExtreme() {
		return Selection{}, false
	}

	sel := Selection{Strategy: MeanReversion}
	if f.RSI14 < 30 {
		sel.Direction = Buy
		sel.Reasoning = append(sel.Reasoning, fmt.Sprintf("RSI %.1f oversold with price pressed into support", f.RSI14))
	} else {
		sel.Direction = Sell
		sel.Reasoning = append(sel.Reasoning, fmt.Sprintf("RSI %.1f overbought with price pressed into resistance", f.RSI14))
	}
	sel.Reasoning = append(sel.Reasoning, fmt.Sprintf("Confluence %.0f meets mean-reversion threshold %.0f", f.Confluence, s.reversionMin))
	return sel, true
}
