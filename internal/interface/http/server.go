// Package http implements the REST API for the EdQuest arena engine:
// guild and party management, study sessions, matchmaking, battles,
// tournaments, cached leaderboards, health checks, and a signed webhook
// for battle results.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/edquest-hub/edquest-arena/config"
	"github.com/edquest-hub/edquest-arena/internal/domain/ranking"
	"github.com/edquest-hub/edquest-arena/internal/engine"
	"github.com/edquest-hub/edquest-arena/internal/infrastructure/scheduler"
	"github.com/edquest-hub/edquest-arena/internal/interface/http/handlers"
	"github.com/edquest-hub/edquest-arena/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	// ReadTimeout - maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout - maximum duration for writing the response.
	WriteTimeout time.Duration

	// IdleTimeout - maximum duration for idle connections.
	IdleTimeout time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// EnableCORS - enable CORS headers.
	EnableCORS bool

	// AllowedOrigins - allowed origins for CORS.
	AllowedOrigins []string

	// RateLimitPerMinute - requests per minute per IP (0 = disabled).
	RateLimitPerMinute int

	// AdminTokenHash - bcrypt hash of the admin token. Empty disables
	// admin endpoints.
	AdminTokenHash string

	// ResultsWebhookSecret - HMAC secret for the battle results webhook.
	// Empty disables the webhook endpoint.
	ResultsWebhookSecret string

	// DefaultRankRange - rank-point distance applied to queue entries that
	// do not state one (0 = engine default).
	DefaultRankRange int
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20, // 1 MB
		EnableCORS:         true,
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 100,
	}
}

// ConfigFromApp builds server configuration from the application config.
func ConfigFromApp(cfg config.HTTPConfig) Config {
	c := DefaultConfig()
	c.Host = cfg.Host
	c.Port = cfg.Port
	c.ReadTimeout = cfg.ReadTimeout
	c.WriteTimeout = cfg.WriteTimeout
	c.IdleTimeout = cfg.IdleTimeout
	c.AdminTokenHash = cfg.AdminTokenHash
	c.ResultsWebhookSecret = cfg.ResultsWebhookSecret
	return c
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardReader serves ranked listings from the cache. Satisfied by
// the redis leaderboard cache; when nil the server falls back to the
// engine's in-memory standings.
type LeaderboardReader interface {
	TopCompetitors(ctx context.Context, n int) ([]ranking.CompetitorStanding, error)
	TopGuilds(ctx context.Context, n int) ([]ranking.GuildStanding, error)
}

// JobRunner exposes background jobs to the admin console. Satisfied by
// the scheduler.
type JobRunner interface {
	ListJobs() []scheduler.JobInfo
	RunNow(ctx context.Context, name string) (*scheduler.JobResult, error)
}

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Engine is the arena registry; required.
	Engine *engine.Engine

	// Leaderboards serves cached standings; optional.
	Leaderboards LeaderboardReader

	// Flags gates optional behavior; optional.
	Flags *config.FeatureFlags

	// Health aggregates readiness checks.
	Health handlers.HealthChecker

	// Jobs exposes the scheduler to admin endpoints; optional.
	Jobs JobRunner

	// Logger
	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	logger     *logger.Logger

	// Middleware state
	rateLimiter *rateLimiter

	// Server state
	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: deps.Logger,
	}

	if s.logger == nil {
		s.logger = logger.Default()
	}
	if s.deps.Health == nil {
		s.deps.Health = handlers.NewNoopHealthChecker()
	}

	if config.RateLimitPerMinute > 0 {
		s.rateLimiter = newRateLimiter(config.RateLimitPerMinute, time.Minute)
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.buildMiddlewareChain(s.router),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /healthz", s.handleHealth) // Kubernetes alias
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /live", s.handleLive)
	s.router.HandleFunc("GET /", s.handleRoot)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Guilds & Parties
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/guilds", s.handleCreateGuild)
	s.router.HandleFunc("GET /api/v1/guilds/{id}", s.handleGetGuild)
	s.router.HandleFunc("POST /api/v1/guilds/{id}/members", s.handleJoinGuild)
	s.router.HandleFunc("POST /api/v1/guilds/{id}/officers", s.handlePromoteOfficer)
	s.router.HandleFunc("DELETE /api/v1/students/{id}/guild", s.handleLeaveGuild)

	s.router.HandleFunc("POST /api/v1/parties", s.handleCreateParty)
	s.router.HandleFunc("GET /api/v1/parties/{id}", s.handleGetParty)
	s.router.HandleFunc("POST /api/v1/parties/{id}/members", s.handleJoinParty)
	s.router.HandleFunc("DELETE /api/v1/students/{id}/party", s.handleLeaveParty)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Study Sessions
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/parties/{id}/sessions", s.handleStartSession)
	s.router.HandleFunc("POST /api/v1/parties/{id}/sessions/end", s.handleEndSession)
	s.router.HandleFunc("GET /api/v1/sessions/{id}", s.handleGetSession)
	s.router.HandleFunc("POST /api/v1/sessions/{id}/progress", s.handleRecordProgress)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Matchmaking & Battles
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/matchmaking/queue", s.handleEnqueue)
	s.router.HandleFunc("GET /api/v1/matchmaking/queue", s.handleQueueStatus)
	s.router.HandleFunc("DELETE /api/v1/matchmaking/queue/{id}", s.handleWithdraw)

	s.router.HandleFunc("GET /api/v1/battles/{id}", s.handleGetBattle)
	s.router.HandleFunc("POST /api/v1/battles/{id}/result", s.handleBattleResult)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Tournaments
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/tournaments", s.handleCreateTournament)
	s.router.HandleFunc("GET /api/v1/tournaments/{id}", s.handleGetTournament)
	s.router.HandleFunc("POST /api/v1/tournaments/{id}/registrations", s.handleRegisterForTournament)
	s.router.HandleFunc("POST /api/v1/tournaments/{id}/matches/{matchID}/result", s.handleReportMatchResult)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Competitors & Leaderboards
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/competitors", s.handleRegisterCompetitor)
	s.router.HandleFunc("GET /api/v1/competitors/{id}", s.handleGetCompetitor)
	s.router.HandleFunc("GET /api/v1/leaderboard/competitors", s.handleCompetitorLeaderboard)
	s.router.HandleFunc("GET /api/v1/leaderboard/guilds", s.handleGuildLeaderboard)

	// ─────────────────────────────────────────────────────────────────────────
	// Webhook Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	resultHook := handlers.NewBattleResultWebhook(s.deps.Engine, s.config.ResultsWebhookSecret, s.logger)
	s.router.Handle("POST /webhook/battles/result", resultHook)

	// ─────────────────────────────────────────────────────────────────────────
	// Admin Endpoints (bcrypt token auth)
	// ─────────────────────────────────────────────────────────────────────────
	admin := handlers.NewAdminTokenAuth(s.config.AdminTokenHash).Middleware()
	s.router.Handle("POST /api/v1/tournaments/{id}/bracket", handlers.ChainHandler(s.handleGenerateBracket, admin))
	s.router.Handle("GET /api/v1/admin/jobs", handlers.ChainHandler(s.handleListJobs, admin))
	s.router.Handle("POST /api/v1/admin/jobs/{name}/run", handlers.ChainHandler(s.handleRunJob, admin))
	s.router.Handle("GET /api/v1/admin/features", handlers.ChainHandler(s.handleListFeatures, admin))
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

// buildMiddlewareChain wraps the router with all middleware.
func (s *Server) buildMiddlewareChain(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last middleware wraps first)
	h := handler

	// Request ID middleware
	h = s.requestIDMiddleware(h)

	// Logging middleware
	h = s.loggingMiddleware(h)

	// Recovery middleware (must be early to catch panics)
	h = s.recoveryMiddleware(h)

	// Security headers on every response
	h = handlers.SecurityHeadersMiddleware(h)

	// CORS middleware
	if s.config.EnableCORS {
		h = s.corsMiddleware(h)
	}

	// Rate limiting middleware
	if s.rateLimiter != nil {
		h = s.rateLimitMiddleware(h)
	}

	return h
}

// requestIDMiddleware adds a unique request ID to each request.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs all HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		s.logger.Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rw.statusCode),
			logger.Int64("duration_ms", duration.Milliseconds()),
			logger.String("ip", getClientIP(r)),
			logger.String("user_agent", r.UserAgent()),
			logger.String("request_id", getRequestID(r.Context())),
		)
	})
}

// recoveryMiddleware recovers from panics and returns 500.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()
				s.logger.Error("panic recovered",
					logger.Any("error", err),
					logger.String("stack", string(stack)),
					logger.String("path", r.URL.Path),
					logger.String("request_id", getRequestID(r.Context())),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, o := range s.config.AllowedOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Token, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware implements per-IP rate limiting.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)

		if !s.rateLimiter.Allow(ip) {
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      interface{}   `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	TotalCount int       `json:"total_count,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	response := JSONResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta: &ResponseMeta{
			Timestamp: time.Now().UTC(),
			Version:   "v1",
		},
	}

	_ = json.NewEncoder(w).Encode(response)
}

// writeJSONError writes an error JSON response.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	response := JSONResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &ResponseMeta{
			Timestamp: time.Now().UTC(),
		},
	}

	_ = json.NewEncoder(w).Encode(response)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER TYPES AND FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP header
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// getRequestID extracts the request ID from context.
func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// generateRequestID generates a unique request ID.
func generateRequestID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%1000)
}

// getQueryParamInt extracts an integer query parameter with a default value.
func getQueryParamInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	var result int
	if _, err := fmt.Sscanf(value, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

type rateLimiter struct {
	mu       sync.RWMutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}

	// Start cleanup goroutine
	go rl.cleanup()

	return rl
}

func (rl *rateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.window)

	requests := rl.requests[key]

	// Filter out old requests
	var valid []time.Time
	for _, t := range requests {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		windowStart := now.Add(-rl.window)

		for key, requests := range rl.requests {
			var valid []time.Time
			for _, t := range requests {
				if t.After(windowStart) {
					valid = append(valid, t)
				}
			}
			if len(valid) == 0 {
				delete(rl.requests, key)
			} else {
				rl.requests[key] = valid
			}
		}
		rl.mu.Unlock()
	}
}
