package strategy

import (
	"testing"

	"forex-signal-engine/config"
	"forex-signal-engine/internal/features"
	"forex-signal-engine/internal/indicators"
	"forex-signal-engine/internal/zones"
)

func testSelector() *Selector {
	return NewSelector(config.EngineConfig{
		BreakoutMinConfluence:  60,
		TrendMinConfluence:     55,
		ReversionMinConfluence: 50,
	})
}

func intPtr(v int) *int { return &v }

// TestSelectBreakoutOnRangeBreak verifies the breakout branch and its
// direction from the opening-range state
func TestSelectBreakoutOnRangeBreak(t *testing.T) {
	f := &features.Set{
		Squeeze:    true,
		ATR20:      0.0100,
		Confluence: 65,
		OpeningRange: &indicators.OpeningRange{
			High: 1.1010, Low: 1.0990, Mid: 1.1000, State: indicators.ORBreakUp,
		},
	}

	sel := testSelector().Select(f, 1.1015)
	if sel.Strategy != Breakout {
		t.Fatalf("Expected BREAKOUT, got %s", sel.Strategy)
	}
	if sel.Direction != Buy {
		t.Errorf("Expected BUY on an upside break, got %s", sel.Direction)
	}
	if len(sel.Reasoning) == 0 {
		t.Error("Expected reasoning entries")
	}

	f.OpeningRange.State = indicators.ORBreakDown
	sel = testSelector().Select(f, 1.0985)
	if sel.Strategy != Breakout || sel.Direction != Sell {
		t.Errorf("Expected BREAKOUT/SELL on a downside break, got %s/%s", sel.Strategy, sel.Direction)
	}
}

// TestSelectBreakoutAnticipation verifies the inside-range tie-break from the
// EMA stack and VWAP
func TestSelectBreakoutAnticipation(t *testing.T) {
	f := &features.Set{
		Squeeze:    true,
		ATR20:      0.0100,
		Confluence: 65,
		EMA20:      1.1005,
		EMA50:      1.0995,
		VWAP:       1.0998,
		OpeningRange: &indicators.OpeningRange{
			High: 1.1010, Low: 1.0990, Mid: 1.1000, State: indicators.ORInside,
		},
	}

	sel := testSelector().Select(f, 1.1002)
	if sel.Strategy != Breakout || sel.Direction != Buy {
		t.Errorf("Expected anticipated BUY, got %s/%s", sel.Strategy, sel.Direction)
	}

	f.EMA20, f.EMA50 = 1.0995, 1.1005
	sel = testSelector().Select(f, 1.1002)
	if sel.Strategy != Breakout || sel.Direction != Sell {
		t.Errorf("Expected anticipated SELL, got %s/%s", sel.Strategy, sel.Direction)
	}
}

// TestSelectBreakoutRequiresProximity verifies the 0.2 ATR distance guard on
// the opening-range midpoint
func TestSelectBreakoutRequiresProximity(t *testing.T) {
	f := &features.Set{
		Squeeze:    true,
		ATR20:      0.0100,
		Confluence: 65,
		OpeningRange: &indicators.OpeningRange{
			High: 1.1010, Low: 1.0990, Mid: 1.1000, State: indicators.ORBreakUp,
		},
	}

	// 0.0030 from the midpoint exceeds 0.2 * 0.0100
	sel := testSelector().Select(f, 1.1030)
	if sel.Strategy == Breakout {
		t.Errorf("Expected no breakout far from the midpoint, got %s", sel.Strategy)
	}
}

// TestSelectSqueezeRangeNeverTrend verifies a quiet coiling range cannot fall
// through to trend or mean-reversion when their conditions are absent
func TestSelectSqueezeRangeNeverTrend(t *testing.T) {
	f := &features.Set{
		Squeeze:    true,
		ATR14:      0.0100,
		ATR20:      0.0100,
		Confluence: 58, // Below the breakout floor
		RSI14:      50,
		Bias4H:     intPtr(0),
		OpeningRange: &indicators.OpeningRange{
			High: 1.1010, Low: 1.0990, Mid: 1.1000, State: indicators.ORInside,
		},
	}

	sel := testSelector().Select(f, 1.1000)
	if sel.Strategy != None {
		t.Errorf("Expected NONE in a neutral squeeze range, got %s", sel.Strategy)
	}
}

// TestSelectTrendBuy verifies the fully aligned bullish trend branch
func TestSelectTrendBuy(t *testing.T) {
	f := &features.Set{
		Confluence: 58,
		EMA100:     1.0950,
		EMA20Slope: 0.0004,
		Bias4H:     intPtr(1),
	}

	sel := testSelector().Select(f, 1.1000)
	if sel.Strategy != Trend {
		t.Fatalf("Expected TREND, got %s", sel.Strategy)
	}
	if sel.Direction != Buy {
		t.Errorf("Expected BUY, got %s", sel.Direction)
	}
}

// TestSelectTrendSell verifies the mirrored bearish branch
func TestSelectTrendSell(t *testing.T) {
	f := &features.Set{
		Confluence: 58,
		EMA100:     1.1050,
		EMA20Slope: -0.0004,
		Bias4H:     intPtr(-1),
	}

	sel := testSelector().Select(f, 1.1000)
	if sel.Strategy != Trend || sel.Direction != Sell {
		t.Errorf("Expected TREND/SELL, got %s/%s", sel.Strategy, sel.Direction)
	}
}

// TestSelectTrendNeedsAlignment verifies partial alignment falls through
func TestSelectTrendNeedsAlignment(t *testing.T) {
	// Price above EMA100 and slope up, but 4H bias disagrees
	f := &features.Set{
		Confluence: 58,
		EMA100:     1.0950,
		EMA20Slope: 0.0004,
		Bias4H:     intPtr(-1),
	}

	sel := testSelector().Select(f, 1.1000)
	if sel.Strategy == Trend {
		t.Errorf("Expected no trend on a disagreeing 4H bias, got %s", sel.Strategy)
	}

	// Missing 4H series entirely
	f.Bias4H = nil
	sel = testSelector().Select(f, 1.1000)
	if sel.Strategy == Trend {
		t.Errorf("Expected no trend without a 4H bias, got %s", sel.Strategy)
	}
}

// TestSelectMeanReversion verifies the zone-pressed RSI-extreme branch and
// its counter-trend directions
func TestSelectMeanReversion(t *testing.T) {
	f := &features.Set{
		Confluence:     52,
		ATR14:          0.0100,
		RSI14:          25,
		DailyRangeUsed: 0.5,
		Zones: []zones.Zone{
			{Min: 1.0990, Max: 1.1005, Type: zones.Support},
		},
	}

	sel := testSelector().Select(f, 1.1000)
	if sel.Strategy != MeanReversion {
		t.Fatalf("Expected MEAN_REVERSION, got %s", sel.Strategy)
	}
	if sel.Direction != Buy {
		t.Errorf("Expected BUY on oversold RSI, got %s", sel.Direction)
	}

	f.RSI14 = 75
	sel = testSelector().Select(f, 1.1000)
	if sel.Strategy != MeanReversion || sel.Direction != Sell {
		t.Errorf("Expected MEAN_REVERSION/SELL on overbought RSI, got %s/%s", sel.Strategy, sel.Direction)
	}
}

// TestSelectMeanReversionGuards verifies the exhaustion and distance guards
func TestSelectMeanReversionGuards(t *testing.T) {
	base := features.Set{
		Confluence:     52,
		ATR14:          0.0100,
		RSI14:          25,
		DailyRangeUsed: 0.5,
		Zones: []zones.Zone{
			{Min: 1.0990, Max: 1.1005, Type: zones.Support},
		},
	}

	// Daily range exhausted
	f := base
	f.DailyRangeUsed = 0.9
	if sel := testSelector().Select(&f, 1.1000); sel.Strategy == MeanReversion {
		t.Error("Expected no mean reversion with the daily range exhausted")
	}

	// Too far from the zone: 0.0045 > 0.15 * ATR14
	f = base
	if sel := testSelector().Select(&f, 1.1050); sel.Strategy == MeanReversion {
		t.Error("Expected no mean reversion far from the zone")
	}

	// RSI not extreme
	f = base
	f.RSI14 = 50
	if sel := testSelector().Select(&f, 1.1000); sel.Strategy == MeanReversion {
		t.Error("Expected no mean reversion without an RSI extreme")
	}
}

// TestSelectPriorityOrder verifies breakout wins when both breakout and
// trend conditions hold
func TestSelectPriorityOrder(t *testing.T) {
	f := &features.Set{
		Squeeze:    true,
		ATR20:      0.0100,
		Confluence: 70,
		EMA100:     1.0950,
		EMA20Slope: 0.0004,
		Bias4H:     intPtr(1),
		OpeningRange: &indicators.OpeningRange{
			High: 1.1010, Low: 1.0990, Mid: 1.1000, State: indicators.ORBreakUp,
		},
	}

	sel := testSelector().Select(f, 1.1010)
	if sel.Strategy != Breakout {
		t.Errorf("Expected BREAKOUT to take priority, got %s", sel.Strategy)
	}
}

// TestDirectionOpposite verifies the side flip helper
func TestDirectionOpposite(t *testing.T) {
	if Buy.Opposite() != Sell {
		t.Error("Expected SELL opposite of BUY")
	}
	if Sell.Opposite() != Buy {
		t.Error("Expected BUY opposite of SELL")
	}
}
