package messaging

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// Dispatcher routes domain events to named handlers with retry and a dead
// letter queue. It sits between the event bus and the projection layer
// (leaderboard cache refresh, snapshot triggers), so a flaky handler never
// loses an event silently.
type Dispatcher struct {
	mu          sync.RWMutex
	bus         shared.EventBus
	handlers    map[shared.EventType][]HandlerRegistration
	middlewares []Middleware
	retry       RetryConfig
	dlq         *DeadLetterQueue
	logger      *slog.Logger
	started     bool
}

// HandlerRegistration is a named handler with per-handler options.
type HandlerRegistration struct {
	Name    string
	Handler shared.EventHandler

	// MaxRetries overrides the dispatcher default when positive.
	MaxRetries int
}

// RetryConfig controls handler retry behavior.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// DispatcherConfig contains configuration for Dispatcher.
type DispatcherConfig struct {
	Bus            shared.EventBus
	Retry          RetryConfig
	DeadLetterSize int
	Logger         *slog.Logger
}

// NewDispatcher creates a dispatcher bound to an event bus. Call Start after
// registering handlers.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Retry.MaxRetries == 0 {
		config.Retry = DefaultRetryConfig()
	}
	if config.DeadLetterSize <= 0 {
		config.DeadLetterSize = 100
	}

	return &Dispatcher{
		bus:      config.Bus,
		handlers: make(map[shared.EventType][]HandlerRegistration),
		retry:    config.Retry,
		dlq:      NewDeadLetterQueue(config.DeadLetterSize),
		logger:   config.Logger,
	}
}

// Register adds a named handler for an event type.
func (d *Dispatcher) Register(eventType shared.EventType, name string, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return errors.New("cannot register handlers after start")
	}

	d.handlers[eventType] = append(d.handlers[eventType], HandlerRegistration{
		Name:    name,
		Handler: handler,
	})
	return nil
}

// Middleware wraps a handler with cross-cutting behavior.
type Middleware func(shared.EventHandler) shared.EventHandler

// Use appends a middleware. Middlewares run in registration order.
func (d *Dispatcher) Use(middleware Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middlewares = append(d.middlewares, middleware)
}

// RecoveryMiddleware converts handler panics into errors.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panicked",
						"event_type", event.EventType(),
						"panic", r,
					)
					err = fmt.Errorf("handler panicked: %v", r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs every handler execution at debug level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			logger.Debug("handler executed",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"duration", time.Since(start),
				"error", err,
			)
			return err
		}
	}
}

// Start subscribes the dispatcher to its bus for every registered type.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return errors.New("dispatcher already started")
	}
	d.started = true
	types := make([]shared.EventType, 0, len(d.handlers))
	for t := range d.handlers {
		types = append(types, t)
	}
	d.mu.Unlock()

	for _, t := range types {
		if err := d.bus.Subscribe(t, d.Dispatch); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
	}
	return nil
}

// Dispatch runs all handlers registered for the event's type. Handler errors
// are retried with exponential backoff; exhausted events land in the dead
// letter queue.
func (d *Dispatcher) Dispatch(event shared.Event) error {
	d.mu.RLock()
	regs := d.handlers[event.EventType()]
	middlewares := d.middlewares
	d.mu.RUnlock()

	var lastErr error
	for _, reg := range regs {
		if err := d.executeHandler(event, reg, middlewares); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (d *Dispatcher) executeHandler(event shared.Event, reg HandlerRegistration, middlewares []Middleware) error {
	handler := reg.Handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}

	maxRetries := d.retry.MaxRetries
	if reg.MaxRetries > 0 {
		maxRetries = reg.MaxRetries
	}

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(d.backoff(attempt))
		}
		if err = handler(event); err == nil {
			if attempt > 0 {
				d.logger.Info("handler recovered after retry",
					"handler", reg.Name,
					"event_type", event.EventType(),
					"attempt", attempt,
				)
			}
			return nil
		}
	}

	d.logger.Error("handler exhausted retries",
		"handler", reg.Name,
		"event_type", event.EventType(),
		"error", err,
	)
	d.dlq.Add(DeadLetterEntry{
		Event:       event,
		HandlerName: reg.Name,
		Error:       err.Error(),
		FailedAt:    time.Now(),
	})
	return err
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(d.retry.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if delay > d.retry.MaxDelay {
		delay = d.retry.MaxDelay
	}
	return delay
}

// DeadLetterQueue returns the queue of events whose handlers failed.
func (d *Dispatcher) DeadLetterQueue() *DeadLetterQueue {
	return d.dlq
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTER QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetterEntry records an event whose handler failed all retries.
type DeadLetterEntry struct {
	Event       shared.Event
	HandlerName string
	Error       string
	FailedAt    time.Time
}

// DeadLetterQueue is a bounded FIFO of failed events. When full, the oldest
// entry is dropped.
type DeadLetterQueue struct {
	mu      sync.Mutex
	entries []DeadLetterEntry
	maxSize int
}

// NewDeadLetterQueue creates a queue holding at most maxSize entries.
func NewDeadLetterQueue(maxSize int) *DeadLetterQueue {
	return &DeadLetterQueue{
		entries: make([]DeadLetterEntry, 0),
		maxSize: maxSize,
	}
}

// Add appends an entry, evicting the oldest when at capacity.
func (q *DeadLetterQueue) Add(entry DeadLetterEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.maxSize {
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, entry)
}

// Entries returns a copy of all queued entries.
func (q *DeadLetterQueue) Entries() []DeadLetterEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]DeadLetterEntry(nil), q.entries...)
}

// Size reports the number of queued entries.
func (q *DeadLetterQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Clear removes all entries.
func (q *DeadLetterQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = q.entries[:0]
}
