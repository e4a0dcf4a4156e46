package precision

import (
	"fmt"
	"math"
	"sort"

	"forex-signal-engine/config"
	"forex-signal-engine/internal/features"
	"forex-signal-engine/internal/levels"
	"forex-signal-engine/internal/strategy"
)

// Classification buckets an entry option by its distance from current price.
type Classification string

const (
	Immediate Classification = "immediate" // <= 3 pips
	Pullback  Classification = "pullback"  // <= 15 pips
	Strategic Classification = "strategic" // <= 40 pips
	Extreme   Classification = "extreme"   // beyond
)

// Level is one candidate technical price level.
type Level struct {
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Strength     float64 `json:"strength"`
	DistancePips float64 `json:"distance_pips"`
	Confluence   int     `json:"confluence"` // Count of other levels within tolerance
}

// EntryOption is one scored, classified entry candidate for a direction.
type EntryOption struct {
	Classification   Classification     `json:"classification"`
	EntryPrice       float64            `json:"entry_price"`
	DistancePips     float64            `json:"distance_pips"`
	Confluence       int                `json:"confluence"`
	RiskReward       float64            `json:"risk_reward"`
	StopLoss         float64            `json:"stop_loss"`
	TakeProfit       float64            `json:"take_profit"`
	Reasoning        []string           `json:"reasoning"`
	Strength         float64            `json:"strength"`
	SupportingLevels []string           `json:"supporting_levels"`
	Direction        strategy.Direction `json:"direction"`
	Score            float64            `json:"score"`
}

// Analysis is the ranked entry picture for both directions.
type Analysis struct {
	Symbol          string        `json:"symbol"`
	CurrentPrice    float64       `json:"current_price"`
	Levels          []Level       `json:"levels"`
	BuyOptions      []EntryOption `json:"buy_options"`
	SellOptions     []EntryOption `json:"sell_options"`
	RecommendedBuy  *EntryOption  `json:"recommended_buy,omitempty"`
	RecommendedSell *EntryOption  `json:"recommended_sell,omitempty"`
}

const (
	confluenceTolerancePips = 3.0
	maxLevelOptions         = 8

	// Qualification thresholds for the recommended entry
	minRecommendedConfluence = 2
	minRecommendedStrength   = 50.0
)

// Ranker builds, scores and ranks entry options from technical levels.
type Ranker struct{}

// NewRanker creates an entry precision ranker.
func NewRanker() *Ranker {
	return &Ranker{}
}

// Rank builds the candidate level set and the ranked buy/sell options.
// Stop/target math requires ATR, so a missing ATR is a hard failure.
func (r *Ranker) Rank(symbol string, f *features.Set, price float64, spec config.SymbolSpec) (*Analysis, error) {
	if f.ATR14 <= 0 {
		return nil, levels.ErrMissingATR
	}

	lvls := r.collectLevels(f, price, spec)
	scoreConfluence(lvls, spec)

	a := &Analysis{
		Symbol:       symbol,
		CurrentPrice: price,
		Levels:       lvls,
	}

	a.BuyOptions = r.buildOptions(strategy.Buy, lvls, f, price, spec)
	a.SellOptions = r.buildOptions(strategy.Sell, lvls, f, price, spec)
	a.RecommendedBuy = recommend(a.BuyOptions)
	a.RecommendedSell = recommend(a.SellOptions)

	return a, nil
}

// collectLevels flattens every technical level the feature set offers, each
// tagged with a base strength and its pip distance from price.
func (r *Ranker) collectLevels(f *features.Set, price float64, spec config.SymbolSpec) []Level {
	add := func(out []Level, name string, level, strength float64) []Level {
		if level <= 0 {
			return out
		}
		return append(out, Level{
			Name:         name,
			Price:        level,
			Strength:     strength,
			DistancePips: spec.Pips(math.Abs(price - level)),
		})
	}

	var out []Level
	out = add(out, "ema20", f.EMA20, 55)
	out = add(out, "ema50", f.EMA50, 60)
	out = add(out, "ema100", f.EMA100, 65)

	if f.Fib.Valid() {
		out = add(out, "fib_236", f.Fib.L236, 50)
		out = add(out, "fib_382", f.Fib.L382, 60)
		out = add(out, "fib_500", f.Fib.L500, 65)
		out = add(out, "fib_618", f.Fib.L618, 70)
		out = add(out, "fib_786", f.Fib.L786, 55)
	}

	if f.Pivots.Valid() {
		out = add(out, "pivot", f.Pivots.PP, 65)
		out = add(out, "pivot_r1", f.Pivots.R1, 60)
		out = add(out, "pivot_s1", f.Pivots.S1, 60)
		out = add(out, "pivot_r2", f.Pivots.R2, 55)
		out = add(out, "pivot_s2", f.Pivots.S2, 55)
	}

	if f.Boll.Valid() {
		out = add(out, "bollinger_upper", f.Boll.Upper, 55)
		out = add(out, "bollinger_lower", f.Boll.Lower, 55)
	}

	out = add(out, "vwap", f.VWAP, 60)

	if f.OpeningRange != nil {
		out = add(out, "or_high", f.OpeningRange.High, 60)
		out = add(out, "or_low", f.OpeningRange.Low, 60)
	}

	for i, z := range f.Zones {
		out = add(out, fmt.Sprintf("zone_%d", i), z.Center(), z.Strength)
	}

	out = add(out, "session_high", f.SessionHigh, 50)
	out = add(out, "session_low", f.SessionLow, 50)

	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// scoreConfluence counts, for each level, the other levels within the pip
// tolerance and boosts strength proportionally.
func scoreConfluence(lvls []Level, spec config.SymbolSpec) {
	tol := spec.Price(confluenceTolerancePips)
	for i := range lvls {
		count := 0
		for j := range lvls {
			if i == j {
				continue
			}
			if math.Abs(lvls[i].Price-lvls[j].Price) <= tol {
				count++
			}
		}
		lvls[i].Confluence = count
		lvls[i].Strength = math.Min(100, lvls[i].Strength+5*float64(count))
	}
}

// buildOptions generates one Immediate option at the current price plus up
// to eight level-based options on the pullback side of the direction.
// Level-based options whose risk:reward falls outside the global bounds are
// discarded.
func (r *Ranker) buildOptions(dir strategy.Direction, lvls []Level, f *features.Set, price float64, spec config.SymbolSpec) []EntryOption {
	var out []EntryOption

	if opt := r.buildOption(dir, price, 60, nil, lvls, f, price, spec, true); opt != nil {
		out = append(out, *opt)
	}

	candidates := make([]Level, 0, len(lvls))
	for _, l := range lvls {
		if dir == strategy.Buy && l.Price < price {
			candidates = append(candidates, l)
		}
		if dir == strategy.Sell && l.Price > price {
			candidates = append(candidates, l)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].DistancePips < candidates[j].DistancePips
	})
	if len(candidates) > maxLevelOptions {
		candidates = candidates[:maxLevelOptions]
	}

	for i := range candidates {
		if opt := r.buildOption(dir, candidates[i].Price, candidates[i].Strength, &candidates[i], lvls, f, price, spec, false); opt != nil {
			out = append(out, *opt)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].EntryPrice < out[j].EntryPrice
	})

	return out
}

// buildOption derives stop/target from the nearest opposing level and ATR,
// classifies by distance band, and scores quality. Returns nil when the
// option is discarded for an out-of-range risk:reward.
func (r *Ranker) buildOption(dir strategy.Direction, entry, strength float64, base *Level, lvls []Level, f *features.Set, price float64, spec config.SymbolSpec, immediate bool) *EntryOption {
	atr := f.ATR14

	var stop float64
	if dir == strategy.Buy {
		if below, ok := nearestLevel(lvls, entry, false); ok {
			stop = below - 0.25*atr
		} else {
			stop = entry - 0.8*atr
		}
	} else {
		if above, ok := nearestLevel(lvls, entry, true); ok {
			stop = above + 0.25*atr
		} else {
			stop = entry + 0.8*atr
		}
	}

	risk := math.Abs(entry - stop)
	if risk == 0 {
		return nil
	}

	target, hasLevelTarget := targetFromLevels(dir, lvls, entry, risk)
	if !hasLevelTarget {
		target = atrTarget(dir, entry, risk)
	}

	rr := math.Abs(target-entry) / risk
	if rr < levels.MinRiskReward || rr > levels.MaxRiskReward {
		if !immediate {
			return nil
		}
		// The immediate option is always present; fall back to the
		// ATR-derived 2:1 target.
		target = atrTarget(dir, entry, risk)
		rr = 2.0
	}

	distPips := spec.Pips(math.Abs(price - entry))
	opt := &EntryOption{
		Classification: classify(distPips),
		EntryPrice:     entry,
		DistancePips:   distPips,
		RiskReward:     rr,
		StopLoss:       stop,
		TakeProfit:     target,
		Strength:       strength,
		Direction:      dir,
	}

	if base != nil {
		opt.Confluence = base.Confluence
		opt.Reasoning = append(opt.Reasoning, fmt.Sprintf("Entry at %s (%.1f pips away)", base.Name, distPips))
		opt.SupportingLevels = supportingNames(lvls, entry, spec, base.Name)
	} else {
		opt.Reasoning = append(opt.Reasoning, "Immediate entry at the current price")
		opt.Confluence = countNearby(lvls, entry, spec)
		opt.SupportingLevels = supportingNames(lvls, entry, spec, "")
	}
	opt.Reasoning = append(opt.Reasoning, fmt.Sprintf("%.2f:1 reward:risk against the nearest opposing level", rr))

	opt.Score = scoreOption(opt)
	return opt
}

// classify buckets an option by pip distance from the current price.
func classify(distPips float64) Classification {
	switch {
	case distPips <= 3:
		return Immediate
	case distPips <= 15:
		return Pullback
	case distPips <= 40:
		return Strategic
	default:
		return Extreme
	}
}

// scoreOption is the weighted quality score used for ranking.
func scoreOption(o *EntryOption) float64 {
	score := o.Strength * 0.35
	score += float64(o.Confluence) * 8
	score += 20 * math.Max(0, 1-math.Abs(o.RiskReward-2.0)/0.5)
	score += math.Max(0, 15-o.DistancePips*0.25)

	switch o.Classification {
	case Immediate:
		score += 10
	case Pullback:
		score += 8
	case Strategic:
		score += 5
	}

	return score
}

// recommend returns the top-ranked option that clears the qualification
// thresholds, or the top-scored option when none qualify.
func recommend(opts []EntryOption) *EntryOption {
	if len(opts) == 0 {
		return nil
	}
	for i := range opts {
		o := &opts[i]
		if o.Confluence >= minRecommendedConfluence &&
			o.Strength >= minRecommendedStrength &&
			o.RiskReward >= levels.MinRiskReward && o.RiskReward <= levels.MaxRiskReward {
			return o
		}
	}
	return &opts[0]
}

// nearestLevel finds the closest level strictly above (or below) the price.
func nearestLevel(lvls []Level, price float64, above bool) (float64, bool) {
	best := 0.0
	found := false
	for _, l := range lvls {
		if above && l.Price > price {
			if !found || l.Price < best {
				best = l.Price
				found = true
			}
		}
		if !above && l.Price < price {
			if !found || l.Price > best {
				best = l.Price
				found = true
			}
		}
	}
	return best, found
}

// targetFromLevels picks the nearest opposing level far enough to clear the
// minimum risk:reward.
func targetFromLevels(dir strategy.Direction, lvls []Level, entry, risk float64) (float64, bool) {
	minDist := risk * levels.MinRiskReward
	best := 0.0
	found := false
	for _, l := range lvls {
		var dist float64
		if dir == strategy.Buy && l.Price > entry {
			dist = l.Price - entry
		} else if dir == strategy.Sell && l.Price < entry {
			dist = entry - l.Price
		} else {
			continue
		}
		if dist < minDist {
			continue
		}
		if !found || dist < math.Abs(best-entry) {
			best = l.Price
			found = true
		}
	}
	return best, found
}

func atrTarget(dir strategy.Direction, entry, risk float64) float64 {
	if dir == strategy.Buy {
		return entry + 2*risk
	}
	return entry - 2*risk
}

// countNearby counts levels within the confluence tolerance of a price.
func countNearby(lvls []Level, price float64, spec config.SymbolSpec) int {
	tol := spec.Price(confluenceTolerancePips)
	count := 0
	for _, l := range lvls {
		if math.Abs(l.Price-price) <= tol {
			count++
		}
	}
	return count
}

// supportingNames lists the levels within tolerance, excluding the base.
func supportingNames(lvls []Level, price float64, spec config.SymbolSpec, exclude string) []string {
	tol := spec.Price(confluenceTolerancePips)
	var names []string
	for _, l := range lvls {
		if l.Name == exclude {
			continue
		}
		if math.Abs(l.Price-price) <= tol {
			names = append(names, l.Name)
		}
	}
	return names
}
