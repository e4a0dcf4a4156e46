package zones

import (
	"testing"

	"forex-signal-engine/internal/market"
)

// zigZagCandles builds a series whose highs repeatedly peak at 1.1200 and
// whose lows repeatedly trough at 1.0980, giving clean fractal swings.
func zigZagCandles() []market.Candle {
	highs := []float64{1.100, 1.105, 1.120, 1.105, 1.100, 1.105, 1.120, 1.105, 1.100, 1.105, 1.120, 1.105, 1.100}
	candles := make([]market.Candle, len(highs))
	for i, h := range highs {
		candles[i] = market.Candle{High: h, Low: h - 0.002, Close: h - 0.001}
	}
	return candles
}

// TestDetectClustersSwings verifies binning, the touch minimum, strength
// scaling and type assignment by side of the current price
func TestDetectClustersSwings(t *testing.T) {
	d := NewDetector()
	// Width = dailyRange/4 = 0.005
	zones := d.Detect(zigZagCandles(), 0.02, 0.0001, 1.110)

	if len(zones) != 2 {
		t.Fatalf("Expected 2 zones, got %d: %+v", len(zones), zones)
	}

	support := zones[0]
	resistance := zones[1]

	if support.Type != Support {
		t.Errorf("Expected lower zone to be support, got %s", support.Type)
	}
	if resistance.Type != Resistance {
		t.Errorf("Expected upper zone to be resistance, got %s", resistance.Type)
	}

	if support.TouchCount != 2 {
		t.Errorf("Expected 2 touches on support, got %d", support.TouchCount)
	}
	if resistance.TouchCount != 3 {
		t.Errorf("Expected 3 touches on resistance, got %d", resistance.TouchCount)
	}

	// Strength: 40 base, +12 per touch beyond 2
	if support.Strength != 40 {
		t.Errorf("Expected strength 40 for 2 touches, got %f", support.Strength)
	}
	if resistance.Strength != 52 {
		t.Errorf("Expected strength 52 for 3 touches, got %f", resistance.Strength)
	}

	for _, z := range zones {
		if z.Min > z.Max {
			t.Errorf("Zone min %f > max %f", z.Min, z.Max)
		}
		if z.TouchCount < 2 {
			t.Errorf("Zone with %d touches should have been discarded", z.TouchCount)
		}
	}
}

// TestDetectDeterministic verifies identical inputs produce identical zones
func TestDetectDeterministic(t *testing.T) {
	d := NewDetector()

	a := d.Detect(zigZagCandles(), 0.02, 0.0001, 1.110)
	b := d.Detect(zigZagCandles(), 0.02, 0.0001, 1.110)

	if len(a) != len(b) {
		t.Fatalf("Zone counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("Zone %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

// TestDetectTypeFollowsPrice verifies the same zones flip type when price
// moves to the other side
func TestDetectTypeFollowsPrice(t *testing.T) {
	d := NewDetector()

	below := d.Detect(zigZagCandles(), 0.02, 0.0001, 1.090)
	for _, z := range below {
		if z.Type != Resistance {
			t.Errorf("All zones above price should be resistance, got %s", z.Type)
		}
	}

	above := d.Detect(zigZagCandles(), 0.02, 0.0001, 1.130)
	for _, z := range above {
		if z.Type != Support {
			t.Errorf("All zones below price should be support, got %s", z.Type)
		}
	}
}

// TestDetectMinimumWidth verifies the pip-size floor on the bin width
func TestDetectMinimumWidth(t *testing.T) {
	d := NewDetector()

	// Degenerate daily range forces the width to one pip
	zones := d.Detect(zigZagCandles(), 0, 0.0001, 1.110)
	for _, z := range zones {
		if width := z.Max - z.Min; width < 0.0001-1e-12 {
			t.Errorf("Zone width %f below one pip", width)
		}
	}
}

// TestDetectEmpty verifies no zones come from a flat series without swings
func TestDetectEmpty(t *testing.T) {
	d := NewDetector()

	flat := make([]market.Candle, 20)
	for i := range flat {
		flat[i] = market.Candle{High: 1.1, Low: 1.1, Close: 1.1}
	}

	if zones := d.Detect(flat, 0.02, 0.0001, 1.1); zones != nil {
		t.Errorf("Expected no zones from a flat series, got %+v", zones)
	}
}

// TestNearest verifies edge-distance selection and the inside-zone zero
func TestNearest(t *testing.T) {
	zones := []Zone{
		{Min: 1.0975, Max: 1.1025, Type: Support},
		{Min: 1.1175, Max: 1.1225, Type: Resistance},
	}

	z, dist := Nearest(zones, 1.110)
	if z == nil || z.Type != Resistance {
		t.Fatalf("Expected nearest to be resistance, got %+v", z)
	}
	if dist <= 0 {
		t.Errorf("Expected positive edge distance, got %f", dist)
	}

	z, dist = Nearest(zones, 1.100)
	if z == nil || z.Type != Support {
		t.Fatalf("Expected nearest to be support, got %+v", z)
	}
	if dist != 0 {
		t.Errorf("Expected zero distance inside the zone, got %f", dist)
	}

	if z, _ := Nearest(nil, 1.1); z != nil {
		t.Errorf("Expected nil for empty zones, got %+v", z)
	}
}

// TestNearestSupportResistance verifies the type-filtered lookups
func TestNearestSupportResistance(t *testing.T) {
	zones := []Zone{
		{Min: 1.0975, Max: 1.1025, Type: Support},
		{Min: 1.1175, Max: 1.1225, Type: Resistance},
	}

	if z := NearestSupport(zones, 1.110); z == nil || z.Type != Support {
		t.Errorf("Expected the support zone, got %+v", z)
	}
	if z := NearestResistance(zones, 1.110); z == nil || z.Type != Resistance {
		t.Errorf("Expected the resistance zone, got %+v", z)
	}
	if z := NearestSupport(zones[1:], 1.110); z != nil {
		t.Errorf("Expected nil when no support exists, got %+v", z)
	}
}
