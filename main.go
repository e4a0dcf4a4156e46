package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"forex-signal-engine/config"
	"forex-signal-engine/internal/api"
	"forex-signal-engine/internal/cache"
	"forex-signal-engine/internal/engine"
	"forex-signal-engine/internal/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := newLogger(cfg.LoggingConfig)
	logger.Info().Msg("Starting forex signal engine")

	eventBus := events.NewEventBus()

	var cacheSvc *cache.Service
	if cfg.RedisConfig.Enabled {
		cacheSvc, err = cache.NewService(cfg.RedisConfig, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Cache unavailable, continuing without memoization")
			cacheSvc = nil
		}
	}

	eng := engine.New(cfg, eventBus, cacheSvc, logger)
	server := api.NewServer(cfg, eng, eventBus, cacheSvc, logger)

	eventBus.Publish(events.Event{Type: events.EventEngineStarted})

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutdown signal received")
	eventBus.Publish(events.Event{Type: events.EventEngineStopped})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
	}
	if cacheSvc != nil {
		if err := cacheSvc.Close(); err != nil {
			logger.Error().Err(err).Msg("Cache close error")
		}
	}

	logger.Info().Msg("Engine stopped")
}

// newLogger builds the process logger from configuration.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().Timestamp().Logger()
}
