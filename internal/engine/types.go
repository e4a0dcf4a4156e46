package engine

import (
	"time"

	"forex-signal-engine/internal/market"
	"forex-signal-engine/internal/strategy"
)

// Input is the immutable snapshot one pipeline run operates on. The 4H and
// daily series are optional; without them the higher-timeframe features stay
// absent and confluence is scored from the 1H series alone.
type Input struct {
	Symbol       string          `json:"symbol"`
	Candles      []market.Candle `json:"candles"`
	Candles4H    []market.Candle `json:"candles_4h,omitempty"`
	CandlesDaily []market.Candle `json:"candles_daily,omitempty"`
	CurrentPrice float64         `json:"current_price"`
	Context      *market.Context `json:"context,omitempty"`
}

// Recommendation is the terminal, immutable result of one pipeline run.
// Placeholder recommendations carry Strategy "NONE" and a planning-only
// reasoning marker; downstream consumers must never auto-execute them.
type Recommendation struct {
	ID                 string             `json:"id"`
	Symbol             string             `json:"symbol"`
	Action             strategy.Direction `json:"action"`
	Strategy           strategy.Type      `json:"strategy"`
	Confidence         int                `json:"confidence"`
	Entry              float64            `json:"entry"`
	StopLoss           float64            `json:"stop_loss"`
	TakeProfit         float64            `json:"take_profit"`
	Support            float64            `json:"support"`
	Resistance         float64            `json:"resistance"`
	RiskReward         float64            `json:"risk_reward"`
	PositionSize       float64            `json:"position_size"`
	Reasoning          []string           `json:"reasoning"`
	EntryConditions    []string           `json:"entry_conditions"`
	EntryTiming        string             `json:"entry_timing"`
	VolumeConfirmation string             `json:"volume_confirmation"`
	CandlestickSignals []string           `json:"candlestick_signals"`
	Placeholder        bool               `json:"placeholder"`
	GeneratedAt        time.Time          `json:"generated_at"`
}
