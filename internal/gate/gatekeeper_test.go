package gate

import (
	"math"
	"testing"

	"forex-signal-engine/config"
	"forex-signal-engine/internal/features"
	"forex-signal-engine/internal/market"
	"forex-signal-engine/internal/strategy"
)

func intPtr(v int) *int { return &v }

func testGateConfig() config.GateConfig {
	return config.GateConfig{
		MinutesToCloseLimit: 120,
		SpreadZLimit:        2.0,
		ActivityFloor:       -1.0,
	}
}

func eurSpec() config.SymbolSpec {
	return config.SymbolSpec{PipSize: 0.0001, PipValue: 10.0, MinStopPips: 12, MinTargetPips: 18}
}

// TestActiveGatesNone verifies a clean midweek context trips nothing
func TestActiveGatesNone(t *testing.T) {
	k := NewKeeper(testGateConfig())
	ctx := market.Context{
		Session:        market.SessionLondon,
		MinutesToClose: 600,
	}

	if gates := k.ActiveGates(ctx); len(gates) != 0 {
		t.Errorf("Expected no gates, got %v", gates)
	}
}

// TestActiveGatesEach verifies every gate trips independently
func TestActiveGatesEach(t *testing.T) {
	k := NewKeeper(testGateConfig())

	cases := []struct {
		ctx      market.Context
		expected string
	}{
		{market.Context{WeekendOrHoliday: true, MinutesToClose: 600}, GateWeekend},
		{market.Context{MinutesToClose: 60}, GateNearClose},
		{market.Context{MinutesToClose: 600, SpreadZ: 3.0}, GateWideSpread},
		{market.Context{MinutesToClose: 600, ActivityScore: -2.0}, GateLowActivity},
	}

	for _, tc := range cases {
		gates := k.ActiveGates(tc.ctx)
		if len(gates) != 1 || gates[0] != tc.expected {
			t.Errorf("Expected only %s, got %v", tc.expected, gates)
		}
	}
}

// TestPlaceholderWeekend verifies the weekend planning fallback: levels are
// produced, confidence drops to 30, and the planning marker is present
func TestPlaceholderWeekend(t *testing.T) {
	k := NewKeeper(testGateConfig())
	f := &features.Set{
		ATR14:  0.0030,
		Bias4H: intPtr(1),
	}
	gates := []string{GateWeekend}

	p := k.Placeholder(f, 1.1000, eurSpec(), gates)
	if p == nil {
		t.Fatal("Placeholder must never be nil")
	}

	if p.Action != strategy.Buy {
		t.Errorf("Expected BUY from the bullish 4H bias, got %s", p.Action)
	}
	if p.Confidence != 30 {
		t.Errorf("Expected confidence 30 with one gate, got %d", p.Confidence)
	}
	if p.Entry != 1.1000 {
		t.Errorf("Expected entry at price, got %f", p.Entry)
	}

	// Stop 0.8 ATR = 24 pips, target 1.5R = 36 pips
	if math.Abs((p.Entry-p.StopLoss)-0.0024) > 1e-9 {
		t.Errorf("Expected 24-pip stop, got %f", p.Entry-p.StopLoss)
	}
	if math.Abs((p.TakeProfit-p.Entry)-0.0036) > 1e-9 {
		t.Errorf("Expected 36-pip target, got %f", p.TakeProfit-p.Entry)
	}
	if math.Abs(p.RiskReward-1.5) > 1e-9 {
		t.Errorf("Expected 1.5 risk:reward, got %f", p.RiskReward)
	}

	foundMarker := false
	for _, r := range p.Reasoning {
		if r == PlanningOnlyMarker {
			foundMarker = true
		}
	}
	if !foundMarker {
		t.Error("Expected the planning-only marker in reasoning")
	}
}

// TestPlaceholderConfidenceFloor verifies the 20 floor with many gates
func TestPlaceholderConfidenceFloor(t *testing.T) {
	k := NewKeeper(testGateConfig())
	f := &features.Set{ATR14: 0.0030}
	gates := []string{GateWeekend, GateNearClose, GateWideSpread, GateLowActivity}

	p := k.Placeholder(f, 1.1000, eurSpec(), gates)
	if p.Confidence != 20 {
		t.Errorf("Expected floor confidence 20 with four gates, got %d", p.Confidence)
	}
}

// TestPlaceholderMinimumStop verifies the broker minimum on a thin ATR
func TestPlaceholderMinimumStop(t *testing.T) {
	k := NewKeeper(testGateConfig())
	f := &features.Set{ATR14: 0.0005} // 0.8 ATR = 4 pips, below the 12-pip minimum

	p := k.Placeholder(f, 1.1000, eurSpec(), []string{GateWeekend})
	if math.Abs((p.Entry-p.StopLoss)-0.0012) > 1e-9 {
		t.Errorf("Expected the 12-pip minimum stop, got %f", p.Entry-p.StopLoss)
	}
	// Target floored at the 18-pip minimum, which equals 1.5R here
	if math.Abs((p.TakeProfit-p.Entry)-0.0018) > 1e-9 {
		t.Errorf("Expected an 18-pip target, got %f", p.TakeProfit-p.Entry)
	}
}

// TestPlaceholderDirectionFallbacks verifies the deterministic direction
// chain: 4H bias, then EMA20 slope, then side of VWAP
func TestPlaceholderDirectionFallbacks(t *testing.T) {
	k := NewKeeper(testGateConfig())
	gates := []string{GateWeekend}

	f := &features.Set{ATR14: 0.003, Bias4H: intPtr(-1), EMA20Slope: 0.001}
	if p := k.Placeholder(f, 1.1, eurSpec(), gates); p.Action != strategy.Sell {
		t.Errorf("Expected SELL from the 4H bias, got %s", p.Action)
	}

	f = &features.Set{ATR14: 0.003, EMA20Slope: -0.001}
	if p := k.Placeholder(f, 1.1, eurSpec(), gates); p.Action != strategy.Sell {
		t.Errorf("Expected SELL from the EMA20 slope, got %s", p.Action)
	}

	f = &features.Set{ATR14: 0.003, VWAP: 1.2}
	if p := k.Placeholder(f, 1.1, eurSpec(), gates); p.Action != strategy.Sell {
		t.Errorf("Expected SELL below VWAP, got %s", p.Action)
	}

	f = &features.Set{ATR14: 0.003}
	if p := k.Placeholder(f, 1.1, eurSpec(), gates); p.Action != strategy.Buy {
		t.Errorf("Expected the BUY default, got %s", p.Action)
	}
}
