// Package cache provides Redis-based memoization for analysis results.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"forex-signal-engine/config"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Service provides Redis-based caching with graceful degradation. When Redis
// is unavailable, lookups report a miss and writes are dropped; analysis
// never fails because of the cache.
type Service struct {
	client       *redis.Client
	config       config.RedisConfig
	logger       zerolog.Logger
	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	// Circuit breaker settings
	maxFailures   int
	checkInterval time.Duration
}

// Key prefix for cached recommendations
const prefixRecommendation = "rec:%s"

// NewService creates a cache service and verifies connectivity. A failed
// initial connection returns the service in degraded mode, not an error.
func NewService(cfg config.RedisConfig, logger zerolog.Logger) (*Service, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	cs := &Service{
		client:        client,
		config:        cfg,
		logger:        logger.With().Str("component", "cache").Logger(),
		maxFailures:   3,
		checkInterval: 30 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		cs.logger.Warn().Err(err).Msg("Initial Redis connection failed, running degraded")
		return cs, nil
	}

	cs.healthy = true
	cs.lastCheck = time.Now()
	cs.logger.Info().Str("address", cfg.Address).Msg("Redis connected")

	return cs, nil
}

// IsHealthy returns whether Redis is currently available.
func (cs *Service) IsHealthy() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.healthy
}

// Get returns a cached value and whether it was present. Misses and Redis
// failures both report absent.
func (cs *Service) Get(ctx context.Context, key string) (string, bool) {
	cs.checkHealth(ctx)
	if !cs.IsHealthy() {
		return "", false
	}

	val, err := cs.client.Get(ctx, fmt.Sprintf(prefixRecommendation, key)).Result()
	if err == redis.Nil {
		cs.recordSuccess()
		return "", false
	}
	if err != nil {
		cs.recordFailure()
		return "", false
	}

	cs.recordSuccess()
	return val, true
}

// Set stores a value with the given TTL. Failures are swallowed after
// feeding the circuit breaker.
func (cs *Service) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if !cs.IsHealthy() {
		return
	}

	if err := cs.client.Set(ctx, fmt.Sprintf(prefixRecommendation, key), value, ttl).Err(); err != nil {
		cs.recordFailure()
		return
	}
	cs.recordSuccess()
}

// Close releases the Redis connection.
func (cs *Service) Close() error {
	return cs.client.Close()
}

// recordFailure tracks a Redis operation failure for the circuit breaker.
func (cs *Service) recordFailure() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.failureCount++
	if cs.failureCount >= cs.maxFailures {
		if cs.healthy {
			cs.logger.Warn().Int("failures", cs.failureCount).Msg("Circuit breaker open, Redis marked unhealthy")
		}
		cs.healthy = false
	}
}

// recordSuccess resets the failure counter on a successful operation.
func (cs *Service) recordSuccess() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.healthy {
		cs.logger.Info().Msg("Circuit breaker closed, Redis recovered")
	}
	cs.healthy = true
	cs.failureCount = 0
	cs.lastCheck = time.Now()
}

// checkHealth retries the connection after the backoff interval when the
// breaker is open.
func (cs *Service) checkHealth(ctx context.Context) {
	cs.mu.RLock()
	shouldCheck := !cs.healthy && time.Since(cs.lastCheck) >= cs.checkInterval
	cs.mu.RUnlock()

	if !shouldCheck {
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := cs.client.Ping(pingCtx).Err(); err == nil {
		cs.recordSuccess()
	} else {
		cs.mu.Lock()
		cs.lastCheck = time.Now()
		cs.mu.Unlock()
	}
}
