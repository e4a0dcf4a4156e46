package confluence

import (
	"testing"

	"forex-signal-engine/internal/features"
	"forex-signal-engine/internal/market"
	"forex-signal-engine/internal/zones"
)

func intPtr(v int) *int { return &v }

func volPtr(v features.VolBucket) *features.VolBucket { return &v }

// TestScoreFullAlignment verifies a fully aligned bullish setup sums the
// fixed component weights
func TestScoreFullAlignment(t *testing.T) {
	f := &features.Set{
		EMA20Slope:    0.001,
		EMA100DistBps: 40, // Past the 30 bps saturation point
		RSI14:         55,
		ATR14:         0.01,
		VWAP:          1.09,
		Bias4H:        intPtr(1),
		Vol4H:         volPtr(features.VolMedium),
		Zones: []zones.Zone{
			{Min: 1.05, Max: 1.06, Type: zones.Support},
		},
		DailyRangeUsed: 0.5,
	}
	ctx := market.Context{Session: market.SessionLondon}

	r := NewScorer().Score(f, ctx, 1.10)

	if r.TrendAlignment != 15 {
		t.Errorf("Expected trend alignment 15, got %f", r.TrendAlignment)
	}
	if r.HTFAgreement != 15 {
		t.Errorf("Expected 4H agreement 15, got %f", r.HTFAgreement)
	}
	if r.VolatilityScore != 15 {
		t.Errorf("Expected volatility score 15, got %f", r.VolatilityScore)
	}
	// Zone edge is 0.04 away = 4 ATR, saturating the spacing reward
	if r.ZoneSpacing != 20 {
		t.Errorf("Expected zone spacing 20, got %f", r.ZoneSpacing)
	}
	if r.SessionBonus != 10 {
		t.Errorf("Expected session bonus 10, got %f", r.SessionBonus)
	}
	if r.Score != 75 {
		t.Errorf("Expected score 75, got %f", r.Score)
	}
	if len(r.Reasoning) == 0 {
		t.Error("Expected reasoning entries")
	}
}

// TestScoreRSIExtremeRewardsTightZone verifies the spacing reward inverts at
// RSI extremes: pressing into a zone scores high, distance scores low
func TestScoreRSIExtremeRewardsTightZone(t *testing.T) {
	f := &features.Set{
		RSI14: 25,
		ATR14: 0.01,
		Zones: []zones.Zone{
			{Min: 1.095, Max: 1.105, Type: zones.Support},
		},
	}
	ctx := market.Context{Session: market.SessionTokyo}

	// Price inside the zone: edge distance 0, full 20 points
	r := NewScorer().Score(f, ctx, 1.10)
	if r.ZoneSpacing != 20 {
		t.Errorf("Expected full spacing reward inside zone at RSI extreme, got %f", r.ZoneSpacing)
	}

	// Price far from the zone: reward decays to 0
	r = NewScorer().Score(f, ctx, 1.20)
	if r.ZoneSpacing != 0 {
		t.Errorf("Expected no spacing reward far from zone at RSI extreme, got %f", r.ZoneSpacing)
	}
}

// TestScoreRangePenalty verifies the exhaustion penalty past 80% of ADR
func TestScoreRangePenalty(t *testing.T) {
	f := &features.Set{DailyRangeUsed: 0.9}
	ctx := market.Context{}

	r := NewScorer().Score(f, ctx, 1.10)
	if r.RangePenalty != -10 {
		t.Errorf("Expected penalty -10, got %f", r.RangePenalty)
	}
	// Clamped at 0, never negative
	if r.Score != 0 {
		t.Errorf("Expected clamped score 0, got %f", r.Score)
	}
}

// TestScoreSqueezeAtVWAP verifies the compression bonus requires proximity
func TestScoreSqueezeAtVWAP(t *testing.T) {
	f := &features.Set{
		Squeeze: true,
		VWAP:    1.1000,
		ATR14:   0.0100,
	}
	ctx := market.Context{}

	// Within 0.25 ATR of VWAP
	r := NewScorer().Score(f, ctx, 1.1020)
	if r.SqueezeVWAP != 15 {
		t.Errorf("Expected squeeze bonus 15 near VWAP, got %f", r.SqueezeVWAP)
	}

	// Too far from VWAP
	r = NewScorer().Score(f, ctx, 1.1050)
	if r.SqueezeVWAP != 0 {
		t.Errorf("Expected no squeeze bonus away from VWAP, got %f", r.SqueezeVWAP)
	}
}

// TestScoreHighVolNeedsSqueeze verifies high volatility only scores when
// compressed
func TestScoreHighVolNeedsSqueeze(t *testing.T) {
	ctx := market.Context{}

	f := &features.Set{Vol4H: volPtr(features.VolHigh)}
	if r := NewScorer().Score(f, ctx, 1.10); r.VolatilityScore != 0 {
		t.Errorf("Expected 0 for high vol without squeeze, got %f", r.VolatilityScore)
	}

	f = &features.Set{Vol4H: volPtr(features.VolHigh), Squeeze: true}
	if r := NewScorer().Score(f, ctx, 1.10); r.VolatilityScore != 10 {
		t.Errorf("Expected 10 for high vol with squeeze, got %f", r.VolatilityScore)
	}

	f = &features.Set{Vol4H: volPtr(features.VolLow)}
	if r := NewScorer().Score(f, ctx, 1.10); r.VolatilityScore != 5 {
		t.Errorf("Expected 5 for low vol, got %f", r.VolatilityScore)
	}
}

// TestScoreNoTrendNoBonuses verifies disagreeing trend components contribute
// nothing
func TestScoreNoTrendNoBonuses(t *testing.T) {
	f := &features.Set{
		EMA20Slope:    0.001,
		EMA100DistBps: -40, // Slope up but price below EMA100
		Bias4H:        intPtr(1),
		VWAP:          1.09,
	}
	ctx := market.Context{Session: market.SessionLondon}

	r := NewScorer().Score(f, ctx, 1.10)
	if r.TrendAlignment != 0 {
		t.Errorf("Expected no trend alignment on disagreement, got %f", r.TrendAlignment)
	}
	if r.HTFAgreement != 0 {
		t.Errorf("Expected no 4H agreement without a 1H trend, got %f", r.HTFAgreement)
	}
	if r.SessionBonus != 0 {
		t.Errorf("Expected no session bonus without a trend, got %f", r.SessionBonus)
	}
}

// TestScoreBounds verifies the composite never leaves [0,100]
func TestScoreBounds(t *testing.T) {
	f := &features.Set{
		EMA20Slope:    0.001,
		EMA100DistBps: 100,
		RSI14:         55,
		ATR14:         0.01,
		VWAP:          1.09,
		Squeeze:       true,
		Bias4H:        intPtr(1),
		Vol4H:         volPtr(features.VolMedium),
		Zones:         []zones.Zone{{Min: 1.00, Max: 1.01, Type: zones.Support}},
	}
	ctx := market.Context{Session: market.SessionOverlap}

	r := NewScorer().Score(f, ctx, 1.10)
	if r.Score < 0 || r.Score > 100 {
		t.Errorf("Score %f outside [0,100]", r.Score)
	}
}
