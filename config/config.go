package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	EngineConfig  EngineConfig  `json:"engine"`
	GateConfig    GateConfig    `json:"gate"`
	RiskConfig    RiskConfig    `json:"risk"`
	SymbolsConfig SymbolsConfig `json:"symbols"`
	ServerConfig  ServerConfig  `json:"server"`
	RedisConfig   RedisConfig   `json:"redis"`
	LoggingConfig LoggingConfig `json:"logging"`
}

// EngineConfig holds the signal pipeline thresholds
type EngineConfig struct {
	MinCandles            int     `json:"min_candles"`             // Candles required for full feature computation
	BreakoutMinConfluence float64 `json:"breakout_min_confluence"` // Confluence floor for breakout setups
	TrendMinConfluence    float64 `json:"trend_min_confluence"`    // Confluence floor for trend setups
	ReversionMinConfluence float64 `json:"reversion_min_confluence"` // Confluence floor for mean-reversion setups
	CacheTTLSeconds       int     `json:"cache_ttl_seconds"`       // Recommendation cache TTL
}

// GateConfig holds the soft pre-gate thresholds
type GateConfig struct {
	MinutesToCloseLimit int     `json:"minutes_to_close_limit"` // Gate when the trading day closes sooner than this
	SpreadZLimit        float64 `json:"spread_z_limit"`         // Gate when spread z-score exceeds this
	ActivityFloor       float64 `json:"activity_floor"`         // Gate when activity score falls below this
}

// RiskConfig holds position sizing configuration
type RiskConfig struct {
	AccountBalance      float64 `json:"account_balance"`       // Account equity in quote currency
	RiskPerTradePercent float64 `json:"risk_per_trade_percent"` // Percentage of equity risked per trade
}

// SymbolSpec holds per-symbol pip geometry and broker minimum distances.
// These are configuration data, not compiled constants, so brokers with
// different minimums can override them per deployment.
type SymbolSpec struct {
	PipSize       float64 `json:"pip_size"`        // Price increment of one pip (0.0001, 0.01 for JPY pairs)
	PipValue      float64 `json:"pip_value"`       // Value of one pip per standard lot in account currency
	MinStopPips   float64 `json:"min_stop_pips"`   // Broker minimum stop distance
	MinTargetPips float64 `json:"min_target_pips"` // Broker minimum take-profit distance
}

// Pips converts a price distance to pips for this symbol.
func (s SymbolSpec) Pips(distance float64) float64 {
	if s.PipSize == 0 {
		return 0
	}
	return distance / s.PipSize
}

// Price converts a pip distance to a price distance for this symbol.
func (s SymbolSpec) Price(pips float64) float64 {
	return pips * s.PipSize
}

// MinStopDistance returns the broker minimum stop distance in price terms.
func (s SymbolSpec) MinStopDistance() float64 {
	return s.MinStopPips * s.PipSize
}

// MinTargetDistance returns the broker minimum take-profit distance in price terms.
func (s SymbolSpec) MinTargetDistance() float64 {
	return s.MinTargetPips * s.PipSize
}

// SymbolsConfig maps symbols (e.g. "EUR/USD") to their specs
type SymbolsConfig struct {
	Specs map[string]SymbolSpec `json:"specs"`
}

// Spec returns the spec for a symbol, falling back to a pip-geometry default
// derived from the quote currency when the symbol is not configured.
func (sc SymbolsConfig) Spec(symbol string) SymbolSpec {
	if spec, ok := sc.Specs[symbol]; ok {
		return spec
	}
	if strings.HasSuffix(strings.ToUpper(symbol), "JPY") {
		return SymbolSpec{PipSize: 0.01, PipValue: 10.0, MinStopPips: 20, MinTargetPips: 30}
	}
	return SymbolSpec{PipSize: 0.0001, PipValue: 10.0, MinStopPips: 12, MinTargetPips: 18}
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`     // Seconds
	WriteTimeout    int    `json:"write_timeout"`    // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"` // Seconds
}

// RedisConfig holds Redis configuration for recommendation caching
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Pretty bool   `json:"pretty"` // Console writer instead of JSON
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	applyDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Engine config
	cfg.EngineConfig.MinCandles = getEnvIntOrDefault("ENGINE_MIN_CANDLES", cfg.EngineConfig.MinCandles)
	cfg.EngineConfig.CacheTTLSeconds = getEnvIntOrDefault("ENGINE_CACHE_TTL", cfg.EngineConfig.CacheTTLSeconds)

	// Risk config
	cfg.RiskConfig.AccountBalance = getEnvFloatOrDefault("RISK_ACCOUNT_BALANCE", cfg.RiskConfig.AccountBalance)
	cfg.RiskConfig.RiskPerTradePercent = getEnvFloatOrDefault("RISK_PER_TRADE_PERCENT", cfg.RiskConfig.RiskPerTradePercent)

	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.ServerConfig.AllowedOrigins)

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolString(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Pretty = getEnvOrDefault("LOG_PRETTY", boolString(cfg.LoggingConfig.Pretty)) == "true"
}

// applyDefaults fills zero values with working defaults
func applyDefaults(cfg *Config) {
	if cfg.EngineConfig.MinCandles == 0 {
		cfg.EngineConfig.MinCandles = 100
	}
	if cfg.EngineConfig.BreakoutMinConfluence == 0 {
		cfg.EngineConfig.BreakoutMinConfluence = 60
	}
	if cfg.EngineConfig.TrendMinConfluence == 0 {
		cfg.EngineConfig.TrendMinConfluence = 55
	}
	if cfg.EngineConfig.ReversionMinConfluence == 0 {
		cfg.EngineConfig.ReversionMinConfluence = 50
	}
	if cfg.EngineConfig.CacheTTLSeconds == 0 {
		cfg.EngineConfig.CacheTTLSeconds = 60
	}
	if cfg.GateConfig.MinutesToCloseLimit == 0 {
		cfg.GateConfig.MinutesToCloseLimit = 120
	}
	if cfg.GateConfig.SpreadZLimit == 0 {
		cfg.GateConfig.SpreadZLimit = 2.0
	}
	if cfg.GateConfig.ActivityFloor == 0 {
		cfg.GateConfig.ActivityFloor = -1.0
	}
	if cfg.RiskConfig.AccountBalance == 0 {
		cfg.RiskConfig.AccountBalance = 10000
	}
	if cfg.RiskConfig.RiskPerTradePercent == 0 {
		cfg.RiskConfig.RiskPerTradePercent = 1.0
	}
	if cfg.SymbolsConfig.Specs == nil {
		cfg.SymbolsConfig.Specs = DefaultSymbolSpecs()
	}
	if cfg.ServerConfig.Port == 0 {
		cfg.ServerConfig.Port = 8080
	}
	if cfg.ServerConfig.Host == "" {
		cfg.ServerConfig.Host = "0.0.0.0"
	}
	if cfg.ServerConfig.AllowedOrigins == "" {
		cfg.ServerConfig.AllowedOrigins = "*"
	}
	if cfg.ServerConfig.ReadTimeout == 0 {
		cfg.ServerConfig.ReadTimeout = 30
	}
	if cfg.ServerConfig.WriteTimeout == 0 {
		cfg.ServerConfig.WriteTimeout = 30
	}
	if cfg.ServerConfig.ShutdownTimeout == 0 {
		cfg.ServerConfig.ShutdownTimeout = 10
	}
	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}
	if cfg.RedisConfig.PoolSize == 0 {
		cfg.RedisConfig.PoolSize = 10
	}
	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "info"
	}
}

// DefaultSymbolSpecs returns the built-in symbol table. Brokers with different
// minimum distances override these via config.json.
func DefaultSymbolSpecs() map[string]SymbolSpec {
	return map[string]SymbolSpec{
		"EUR/USD": {PipSize: 0.0001, PipValue: 10.0, MinStopPips: 12, MinTargetPips: 18},
		"GBP/USD": {PipSize: 0.0001, PipValue: 10.0, MinStopPips: 15, MinTargetPips: 22},
		"AUD/USD": {PipSize: 0.0001, PipValue: 10.0, MinStopPips: 12, MinTargetPips: 18},
		"NZD/USD": {PipSize: 0.0001, PipValue: 10.0, MinStopPips: 12, MinTargetPips: 18},
		"USD/CAD": {PipSize: 0.0001, PipValue: 7.5, MinStopPips: 14, MinTargetPips: 20},
		"USD/CHF": {PipSize: 0.0001, PipValue: 11.0, MinStopPips: 14, MinTargetPips: 20},
		"USD/JPY": {PipSize: 0.01, PipValue: 6.7, MinStopPips: 20, MinTargetPips: 30},
		"EUR/JPY": {PipSize: 0.01, PipValue: 6.7, MinStopPips: 22, MinTargetPips: 32},
		"GBP/JPY": {PipSize: 0.01, PipValue: 6.7, MinStopPips: 25, MinTargetPips: 36},
	}
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
