package zones

import (
	"math"
	"sort"

	"forex-signal-engine/internal/indicators"
	"forex-signal-engine/internal/market"
)

// Type classifies a zone relative to the prevailing price.
type Type string

const (
	Support    Type = "support"
	Resistance Type = "resistance"
)

// Zone is a price band where multiple historical swing points cluster.
// Invariants: Min <= Max, TouchCount >= 2, Strength monotone in TouchCount.
type Zone struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	TouchCount int     `json:"touch_count"`
	Strength   float64 `json:"strength"`
	Type       Type    `json:"type"`
}

// Center returns the midpoint of the zone.
func (z Zone) Center() float64 {
	return (z.Min + z.Max) / 2
}

// Contains reports whether price sits inside the zone band.
func (z Zone) Contains(price float64) bool {
	return price >= z.Min && price <= z.Max
}

// Detector bins fractal swing points into support/resistance zones.
type Detector struct {
	radius  int // Fractal neighbor radius for swing detection
	history int // Bound on how far back swings are collected
}

// NewDetector creates a detector with the standard fractal radius and a
// bounded recent history.
func NewDetector() *Detector {
	return &Detector{radius: 2, history: 200}
}

// Detect collects swing prices over the bounded recent history, bins them by
// rounding to the nearest multiple of a width derived from a quarter of the
// daily range (minimum one pip), and keeps bins with at least two touches.
// Zone type is assigned from the zone's position relative to the current
// price: below is support, above is resistance. The result is sorted by
// price so identical inputs always yield identical output.
func (d *Detector) Detect(candles []market.Candle, dailyRange, pipSize, currentPrice float64) []Zone {
	window := market.LastN(candles, d.history)
	highs, lows := indicators.SwingPoints(window, d.radius)

	swings := make([]float64, 0, len(highs)+len(lows))
	swings = append(swings, highs...)
	swings = append(swings, lows...)
	if len(swings) == 0 {
		return nil
	}

	width := dailyRange / 4
	if width < pipSize {
		width = pipSize
	}
	if width <= 0 {
		return nil
	}

	touches := make(map[int64]int)
	for _, price := range swings {
		bin := int64(math.Round(price / width))
		touches[bin]++
	}

	zones := make([]Zone, 0, len(touches))
	for bin, count := range touches {
		if count < 2 {
			continue
		}
		center := float64(bin) * width
		zone := Zone{
			Min:        center - width/2,
			Max:        center + width/2,
			TouchCount: count,
			Strength:   strength(count),
		}
		if zone.Center() <= currentPrice {
			zone.Type = Support
		} else {
			zone.Type = Resistance
		}
		zones = append(zones, zone)
	}

	sort.Slice(zones, func(i, j int) bool { return zones[i].Min < zones[j].Min })
	return zones
}

// strength maps touch count to a 0-100 score, non-decreasing in touches.
func strength(touches int) float64 {
	s := 40 + 12*float64(touches-2)
	if s > 95 {
		return 95
	}
	return s
}

// Nearest returns the zone closest to price and its edge distance. Distance
// is 0 when price is inside the zone. Returns nil for an empty slice.
func Nearest(zones []Zone, price float64) (*Zone, float64) {
	var best *Zone
	bestDist := math.MaxFloat64
	for i := range zones {
		dist := edgeDistance(zones[i], price)
		if dist < bestDist {
			best = &zones[i]
			bestDist = dist
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, bestDist
}

// NearestSupport returns the closest support zone below or containing price.
func NearestSupport(zones []Zone, price float64) *Zone {
	var best *Zone
	bestDist := math.MaxFloat64
	for i := range zones {
		if zones[i].Type != Support {
			continue
		}
		dist := edgeDistance(zones[i], price)
		if dist < bestDist {
			best = &zones[i]
			bestDist = dist
		}
	}
	return best
}

// NearestResistance returns the closest resistance zone above price.
func NearestResistance(zones []Zone, price float64) *Zone {
	var best *Zone
	bestDist := math.MaxFloat64
	for i := range zones {
		if zones[i].Type != Resistance {
			continue
		}
		dist := edgeDistance(zones[i], price)
		if dist < bestDist {
			best = &zones[i]
			bestDist = dist
		}
	}
	return best
}

func edgeDistance(z Zone, price float64) float64 {
	if z.Contains(price) {
		return 0
	}
	if price < z.Min {
		return z.Min - price
	}
	return price - z.Max
}
