// Package skilltree implements the skill-tree engine API client. The arena
// pushes earned XP to the platform's skill-tree service so study and battle
// rewards show up on student progression trees.
package skilltree

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/edquest-hub/edquest-arena/config"
	"github.com/edquest-hub/edquest-arena/pkg/circuitbreaker"
	"github.com/edquest-hub/edquest-arena/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the skill-tree API client.
type ClientConfig struct {
	// BaseURL is the skill-tree engine base URL
	BaseURL string

	// APIKey is the API key for authentication
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// RateLimiterConfig for API rate limiting
	RateLimiterConfig RateLimiterConfig

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool

	breakerOpts []circuitbreaker.Option
	retryOpts   []retry.Option
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		Timeout:           30 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// ClientConfigFromApp builds a ClientConfig from the application's skill-tree
// settings.
func ClientConfigFromApp(cfg config.SkillTreeConfig, logger *slog.Logger) ClientConfig {
	cc := DefaultClientConfig(cfg.BaseURL)
	cc.APIKey = cfg.APIKey
	cc.Logger = logger
	if cfg.RequestTimeout > 0 {
		cc.Timeout = cfg.RequestTimeout
	}
	if cfg.RateLimit > 0 {
		cc.RateLimiterConfig.RequestsPerSecond = float64(cfg.RateLimit) / 60.0
	}
	if cfg.RateLimitBurst > 0 {
		cc.RateLimiterConfig.BurstSize = cfg.RateLimitBurst
	}
	cc.breakerOpts = []circuitbreaker.Option{
		circuitbreaker.WithFailureThreshold(cfg.CircuitBreakerThreshold),
		circuitbreaker.WithTimeout(cfg.CircuitBreakerTimeout),
		circuitbreaker.WithMaxHalfOpenRequests(cfg.CircuitBreakerHalfOpenMax),
	}
	cc.retryOpts = []retry.Option{
		retry.WithMaxAttempts(cfg.MaxRetries + 1),
		retry.WithInitialDelay(cfg.RetryBaseDelay),
		retry.WithMaxDelay(cfg.RetryMaxDelay),
	}
	return cc
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the skill-tree engine API client.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	logger      *slog.Logger
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
	retrier     *retry.Retrier
}

// NewClient creates a new skill-tree API client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	breakerOpts := cfg.breakerOpts
	if breakerOpts == nil {
		breaker := circuitbreaker.SkillTreeAPIBreaker(nil)
		return newClient(cfg, breaker)
	}
	return newClient(cfg, circuitbreaker.New("skilltree-api", breakerOpts...))
}

func newClient(cfg ClientConfig, breaker *circuitbreaker.CircuitBreaker) *Client {
	retryOpts := cfg.retryOpts
	retrier := retry.SkillTreeAPIRetrier()
	if retryOpts != nil {
		retrier = retry.New(retryOpts...)
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:      cfg.Logger,
		rateLimiter: NewRateLimiter(cfg.RateLimiterConfig),
		breaker:     breaker,
		retrier:     retrier,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// XP AWARD OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// XPAwardRequest is a single XP grant pushed to the skill-tree engine.
type XPAwardRequest struct {
	// IdempotencyKey deduplicates retried awards on the server side.
	IdempotencyKey string `json:"idempotency_key"`

	StudentID string    `json:"student_id"`
	Amount    int       `json:"amount"`
	Source    string    `json:"source"`
	AwardedAt time.Time `json:"awarded_at"`
}

// XPAwardResponse is the skill-tree engine's acknowledgement.
type XPAwardResponse struct {
	AwardID   string `json:"award_id"`
	StudentID string `json:"student_id"`
	NewTotal  int    `json:"new_total"`
	Duplicate bool   `json:"duplicate"`
}

// NewXPAwardRequest builds an award with a fresh idempotency key.
func NewXPAwardRequest(studentID string, amount int, source string, awardedAt time.Time) XPAwardRequest {
	return XPAwardRequest{
		IdempotencyKey: uuid.New().String(),
		StudentID:      studentID,
		Amount:         amount,
		Source:         source,
		AwardedAt:      awardedAt,
	}
}

// PostXPAward sends one XP award to the skill-tree engine.
func (c *Client) PostXPAward(ctx context.Context, award XPAwardRequest) (*XPAwardResponse, error) {
	var result XPAwardResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/xp/awards", award, &result); err != nil {
		return nil, fmt.Errorf("post xp award for %s: %w", award.StudentID, err)
	}
	return &result, nil
}

// GetStudentXP fetches the student's current XP total from the skill tree.
func (c *Client) GetStudentXP(ctx context.Context, studentID string) (int, error) {
	var result struct {
		StudentID string `json:"student_id"`
		TotalXP   int    `json:"total_xp"`
	}
	path := fmt.Sprintf("/api/v1/students/%s/xp", studentID)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return 0, fmt.Errorf("get student xp for %s: %w", studentID, err)
	}
	return result.TotalXP, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs an HTTP request with rate limiting, circuit breaking,
// and retries.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.rateLimiter.Allow(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}

			err := c.doSingleRequest(ctx, method, path, body, result)
			if err == nil {
				return nil
			}

			var rateLimitErr *RateLimitError
			if errors.As(err, &rateLimitErr) {
				c.rateLimiter.RecordRateLimitHit(rateLimitErr.RetryAfter)
				return retry.Retryable(err)
			}

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				if apiErr.StatusCode >= 500 {
					return retry.Retryable(err)
				}
				return retry.Permanent(err)
			}

			// Transport-level failures (timeouts, resets) are retryable.
			return retry.Retryable(err)
		})
	})
}

func (c *Client) doSingleRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	fullURL := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	if c.config.Debug {
		c.logger.Debug("skilltree api request", "method", method, "path", path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 60 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RateLimitError{
			RetryAfter: retryAfter,
			Message:    "rate limit exceeded",
		}
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// APIError is an error response from the skill-tree engine.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("skilltree api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("skilltree api error %d: %s", e.StatusCode, e.Message)
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the skill-tree engine is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	err := c.doSingleRequest(ctx, http.MethodGet, "/health", nil, nil)
	return err == nil
}

// ClientStatus is the current state of the client's protective layers.
type ClientStatus struct {
	RateLimiter   RateLimiterStatus
	BreakerState  circuitbreaker.State
	BreakerCounts circuitbreaker.Counts
}

// Status returns the current status of the client.
func (c *Client) Status() ClientStatus {
	return ClientStatus{
		RateLimiter:   c.rateLimiter.Status(),
		BreakerState:  c.breaker.State(),
		BreakerCounts: c.breaker.Counts(),
	}
}

// Reset resets the rate limiter and circuit breaker.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.breaker.Reset()
}
