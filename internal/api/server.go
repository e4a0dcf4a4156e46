// Package api exposes the analysis engine over HTTP and WebSocket.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"forex-signal-engine/config"
	"forex-signal-engine/internal/cache"
	"forex-signal-engine/internal/engine"
	"forex-signal-engine/internal/events"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Server hosts the HTTP API in front of the engine.
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	engine      *engine.Engine
	eventBus    *events.EventBus
	cacheSvc    *cache.Service
	cfg         *config.Config
	wsHub       *WSHub
	rateLimiter *RateLimiter
	logger      zerolog.Logger
	startedAt   time.Time
}

// NewServer creates the API server and wires the WebSocket hub to the event
// bus. The cache service may be nil.
func NewServer(cfg *config.Config, eng *engine.Engine, eventBus *events.EventBus, cacheSvc *cache.Service, logger zerolog.Logger) *Server {
	if strings.EqualFold(cfg.LoggingConfig.Level, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.ServerConfig.AllowedOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		engine:      eng,
		eventBus:    eventBus,
		cacheSvc:    cacheSvc,
		cfg:         cfg,
		wsHub:       NewWSHub(logger),
		rateLimiter: NewRateLimiter(120, time.Minute),
		logger:      logger.With().Str("component", "api").Logger(),
		startedAt:   time.Now(),
	}

	go server.wsHub.Run()
	eventBus.SubscribeAll(func(event events.Event) {
		server.wsHub.BroadcastEvent(event)
	})

	server.setupRoutes()

	return server
}

// rateLimitMiddleware limits requests per endpoint path.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if !s.rateLimiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests to this endpoint",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	api := s.router.Group("/api/v1")
	api.Use(s.rateLimitMiddleware())
	{
		api.POST("/analyze", s.handleAnalyze)
		api.POST("/entries", s.handleEntries)
		api.GET("/symbols", s.handleSymbols)
	}
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.ServerConfig.Host, s.cfg.ServerConfig.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ServerConfig.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.ServerConfig.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("address", addr).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// handleHealth reports server and cache health.
func (s *Server) handleHealth(c *gin.Context) {
	cacheStatus := "disabled"
	if s.cacheSvc != nil {
		if s.cacheSvc.IsHealthy() {
			cacheStatus = "healthy"
		} else {
			cacheStatus = "degraded"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"cache":      cacheStatus,
		"ws_clients": s.wsHub.GetClientCount(),
		"uptime":     time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}
