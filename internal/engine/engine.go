// Package engine wires the analysis pipeline together: features, confluence,
// strategy selection, level calculation and the soft-gate fallback.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"forex-signal-engine/config"
	"forex-signal-engine/internal/cache"
	"forex-signal-engine/internal/confluence"
	"forex-signal-engine/internal/events"
	"forex-signal-engine/internal/features"
	"forex-signal-engine/internal/gate"
	"forex-signal-engine/internal/indicators"
	"forex-signal-engine/internal/levels"
	"forex-signal-engine/internal/market"
	"forex-signal-engine/internal/precision"
	"forex-signal-engine/internal/strategy"
)

// ErrInvalidInput reports a request the pipeline cannot analyze at all.
var ErrInvalidInput = errors.New("invalid analysis input")

// idNamespace seeds the deterministic recommendation IDs. Identical inputs
// must produce byte-identical recommendations, so IDs are derived from the
// input fingerprint rather than generated randomly.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("forex-signal-engine"))

// Engine runs the full deterministic pipeline for one symbol at a time.
// All collaborators are pure except the optional cache and the event bus.
type Engine struct {
	cfg      *config.Config
	builder  *features.Builder
	scorer   *confluence.Scorer
	selector *strategy.Selector
	calc     *levels.Calculator
	ranker   *precision.Ranker
	keeper   *gate.Keeper
	bus      *events.EventBus
	cache    *cache.Service
	logger   zerolog.Logger
}

// New creates an engine. The cache may be nil; memoization is then skipped.
func New(cfg *config.Config, bus *events.EventBus, cacheSvc *cache.Service, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		builder:  features.NewBuilder(cfg.EngineConfig.MinCandles),
		scorer:   confluence.NewScorer(),
		selector: strategy.NewSelector(cfg.EngineConfig),
		calc:     levels.NewCalculator(cfg.RiskConfig),
		ranker:   precision.NewRanker(),
		keeper:   gate.NewKeeper(cfg.GateConfig),
		bus:      bus,
		cache:    cacheSvc,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

// Analyze runs the pipeline and returns at most one recommendation.
// A (nil, nil) return means the run completed and nothing is tradeable:
// no strategy matched and no soft gate asked for a planning placeholder.
func (e *Engine) Analyze(ctx context.Context, in Input) (*Recommendation, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	mctx := e.marketContext(in)
	key := fingerprint(in)

	if cached, ok := e.lookupCached(ctx, key); ok {
		return cached, nil
	}

	spec := e.cfg.SymbolsConfig.Spec(in.Symbol)
	f := e.builder.Build(in.Candles, in.Candles4H, in.CandlesDaily, in.CurrentPrice, spec, mctx)

	conf := e.scorer.Score(f, mctx, in.CurrentPrice)
	f.Confluence = conf.Score

	sel := e.selector.Select(f, in.CurrentPrice)

	var rec *Recommendation
	if sel.Strategy == strategy.None {
		gates := e.keeper.ActiveGates(mctx)
		if len(gates) == 0 {
			e.logger.Debug().Str("symbol", in.Symbol).Float64("confluence", conf.Score).Msg("No strategy matched")
			if e.bus != nil {
				e.bus.PublishNoSignal(in.Symbol)
			}
			return nil, nil
		}
		rec = e.placeholderRecommendation(in, f, spec, conf, gates)
	} else {
		plan, err := e.calc.Calculate(sel, f, mctx, in.CurrentPrice, spec)
		if err != nil {
			if e.bus != nil {
				e.bus.PublishError("analyze", in.Symbol, err)
			}
			return nil, fmt.Errorf("calculate levels for %s: %w", in.Symbol, err)
		}
		rec = e.recommendation(in, f, conf, sel, plan)
	}

	e.storeCached(ctx, key, rec)
	if e.bus != nil {
		e.bus.PublishSignal(rec.Symbol, string(rec.Action), string(rec.Strategy), rec.Confidence, rec.Entry, rec.Placeholder)
	}
	e.logger.Info().
		Str("symbol", rec.Symbol).
		Str("strategy", string(rec.Strategy)).
		Str("action", string(rec.Action)).
		Int("confidence", rec.Confidence).
		Bool("placeholder", rec.Placeholder).
		Msg("Recommendation generated")

	return rec, nil
}

// AnalyzeEntries runs the feature and confluence stages, then ranks every
// technical level near the current price into classified entry options.
func (e *Engine) AnalyzeEntries(ctx context.Context, in Input) (*precision.Analysis, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	mctx := e.marketContext(in)
	spec := e.cfg.SymbolsConfig.Spec(in.Symbol)
	f := e.builder.Build(in.Candles, in.Candles4H, in.CandlesDaily, in.CurrentPrice, spec, mctx)
	f.Confluence = e.scorer.Score(f, mctx, in.CurrentPrice).Score

	analysis, err := e.ranker.Rank(in.Symbol, f, in.CurrentPrice, spec)
	if err != nil {
		if e.bus != nil {
			e.bus.PublishError("entries", in.Symbol, err)
		}
		return nil, fmt.Errorf("rank entries for %s: %w", in.Symbol, err)
	}

	if e.bus != nil {
		e.bus.Publish(events.Event{
			Type: events.EventEntryAnalysis,
			Data: map[string]interface{}{
				"symbol":       in.Symbol,
				"levels":       len(analysis.Levels),
				"buy_options":  len(analysis.BuyOptions),
				"sell_options": len(analysis.SellOptions),
			},
		})
	}

	return analysis, nil
}

// recommendation assembles the full result from a matched strategy.
func (e *Engine) recommendation(in Input, f *features.Set, conf *confluence.Result, sel strategy.Selection, plan *levels.Plan) *Recommendation {
	last := in.Candles[len(in.Candles)-1]

	rec := &Recommendation{
		ID:           recommendationID(in),
		Symbol:       in.Symbol,
		Action:       sel.Direction,
		Strategy:     sel.Strategy,
		Confidence:   plan.Confidence,
		Entry:        plan.Entry,
		StopLoss:     plan.StopLoss,
		TakeProfit:   plan.TakeProfit,
		Support:      plan.Support,
		Resistance:   plan.Resistance,
		RiskReward:   plan.RiskReward,
		PositionSize: plan.PositionSize,
		GeneratedAt:  last.OpenTime,
	}

	rec.Reasoning = append(rec.Reasoning, conf.Reasoning...)
	rec.Reasoning = append(rec.Reasoning, sel.Reasoning...)
	rec.Reasoning = append(rec.Reasoning, plan.Reasoning...)

	rec.EntryConditions = entryConditions(sel)
	rec.EntryTiming = entryTiming(sel, f, in.CurrentPrice)
	rec.VolumeConfirmation = volumeConfirmation(in.Candles)
	rec.CandlestickSignals = candlestickSignals(f, last)

	return rec
}

// placeholderRecommendation wraps the gate keeper's planning-only fallback.
func (e *Engine) placeholderRecommendation(in Input, f *features.Set, spec config.SymbolSpec, conf *confluence.Result, gates []string) *Recommendation {
	p := e.keeper.Placeholder(f, in.CurrentPrice, spec, gates)
	last := in.Candles[len(in.Candles)-1]

	rec := &Recommendation{
		ID:          recommendationID(in),
		Symbol:      in.Symbol,
		Action:      p.Action,
		Strategy:    strategy.None,
		Confidence:  p.Confidence,
		Entry:       p.Entry,
		StopLoss:    p.StopLoss,
		TakeProfit:  p.TakeProfit,
		RiskReward:  p.RiskReward,
		Placeholder: true,
		GeneratedAt: last.OpenTime,
	}

	rec.Reasoning = append(rec.Reasoning, p.Reasoning...)
	rec.Reasoning = append(rec.Reasoning, conf.Reasoning...)
	rec.VolumeConfirmation = volumeConfirmation(in.Candles)
	rec.CandlestickSignals = candlestickSignals(f, last)

	return rec
}

// marketContext uses the caller-provided context or derives one from the
// final candle's open time. Deriving from candle time rather than the wall
// clock keeps replays of historical inputs deterministic.
func (e *Engine) marketContext(in Input) market.Context {
	if in.Context != nil {
		return *in.Context
	}
	last := in.Candles[len(in.Candles)-1]
	return market.DeriveContext(last.OpenTime, in.Candles, 0)
}

func validate(in Input) error {
	if in.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	if in.CurrentPrice <= 0 {
		return fmt.Errorf("%w: current price must be positive", ErrInvalidInput)
	}
	if len(in.Candles) == 0 {
		return fmt.Errorf("%w: at least one candle is required", ErrInvalidInput)
	}
	return nil
}

// fingerprint identifies one analysis input for memoization and IDs.
func fingerprint(in Input) string {
	last := in.Candles[len(in.Candles)-1]
	return fmt.Sprintf("%s:%d:%.5f", in.Symbol, last.OpenTime.Unix(), in.CurrentPrice)
}

// recommendationID derives a stable UUID from the input fingerprint.
func recommendationID(in Input) string {
	return uuid.NewSHA1(idNamespace, []byte(fingerprint(in))).String()
}

func (e *Engine) lookupCached(ctx context.Context, key string) (*Recommendation, bool) {
	if e.cache == nil {
		return nil, false
	}
	raw, ok := e.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var rec Recommendation
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("Discarding unreadable cached recommendation")
		return nil, false
	}
	return &rec, true
}

func (e *Engine) storeCached(ctx context.Context, key string, rec *Recommendation) {
	if e.cache == nil {
		return
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	ttl := time.Duration(e.cfg.EngineConfig.CacheTTLSeconds) * time.Second
	e.cache.Set(ctx, key, string(raw), ttl)
}

// entryConditions lists what must hold before acting on the signal.
func entryConditions(sel strategy.Selection) []string {
	switch sel.Strategy {
	case strategy.Breakout:
		return []string{
			"Price must hold near the opening-range midpoint",
			"Enter on a candle close beyond the opening range",
		}
	case strategy.Trend:
		return []string{
			"4H bias must remain aligned with the trade direction",
			"Prefer entries on a pullback toward EMA20",
		}
	case strategy.MeanReversion:
		return []string{
			"Price must remain inside the support/resistance zone",
			"RSI must stay at an extreme until entry",
		}
	default:
		return nil
	}
}

// entryTiming classifies how urgent the entry is.
func entryTiming(sel strategy.Selection, f *features.Set, price float64) string {
	switch sel.Strategy {
	case strategy.Breakout:
		if f.OpeningRange != nil && f.OpeningRange.State != indicators.ORInside {
			return "immediate"
		}
		return "wait_for_break"
	case strategy.Trend:
		if f.EMA20 > 0 && absDiff(price, f.EMA20) <= 0.25*f.ATR14 {
			return "immediate"
		}
		return "on_pullback"
	case strategy.MeanReversion:
		return "immediate"
	default:
		return "none"
	}
}

// volumeConfirmation reports whether recent volume backs the move. Forex
// feeds often carry no volume at all; that case is reported explicitly
// instead of being treated as absence of confirmation.
func volumeConfirmation(candles []market.Candle) string {
	hasVolume := false
	for _, c := range candles {
		if c.Volume > 0 {
			hasVolume = true
			break
		}
	}
	if !hasVolume {
		return "unavailable"
	}
	if indicators.IsVolumeSpike(candles, 20, 1.5) {
		return "confirmed"
	}
	return "unconfirmed"
}

// candlestickSignals derives simple structural signals from the last candle
// and the swing structure.
func candlestickSignals(f *features.Set, last market.Candle) []string {
	var signals []string
	if f.BodyRatio >= 0.7 {
		if last.Bullish() {
			signals = append(signals, "strong_bullish_close")
		} else {
			signals = append(signals, "strong_bearish_close")
		}
	}
	if f.HigherHighs {
		signals = append(signals, "higher_highs")
	}
	if f.LowerLows {
		signals = append(signals, "lower_lows")
	}
	return signals
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
