package skilltree

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/edquest-hub/edquest-arena/config"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REWARD FORWARDER
// ══════════════════════════════════════════════════════════════════════════════

// Forwarder pushes arena XP awards to the skill-tree engine. The engine's
// reward hook must never block gameplay, so awards are queued and delivered
// by a background worker. If the queue is full the award is dropped and
// logged; the skill tree is a projection, not the system of record.
type Forwarder struct {
	client *Client
	flags  *config.FeatureFlags
	logger *slog.Logger

	sendTimeout time.Duration

	queue   chan XPAwardRequest
	wg      sync.WaitGroup
	closeCh chan struct{}
	once    sync.Once

	mu      sync.Mutex
	dropped int64
	sent    int64
	failed  int64
}

// ForwarderConfig contains configuration for the forwarder.
type ForwarderConfig struct {
	// QueueSize bounds the number of pending awards.
	QueueSize int

	// SendTimeout bounds a single delivery attempt.
	SendTimeout time.Duration

	// Workers is the number of delivery goroutines.
	Workers int
}

// DefaultForwarderConfig returns sensible defaults.
func DefaultForwarderConfig() ForwarderConfig {
	return ForwarderConfig{
		QueueSize:   1024,
		SendTimeout: 15 * time.Second,
		Workers:     2,
	}
}

// NewForwarder creates a forwarder and starts its delivery workers.
func NewForwarder(client *Client, flags *config.FeatureFlags, logger *slog.Logger, cfg ForwarderConfig) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}

	f := &Forwarder{
		client:      client,
		flags:       flags,
		logger:      logger,
		sendTimeout: cfg.SendTimeout,
		queue:       make(chan XPAwardRequest, cfg.QueueSize),
		closeCh:     make(chan struct{}),
	}

	for i := 0; i < cfg.Workers; i++ {
		f.wg.Add(1)
		go f.deliveryLoop()
	}
	return f
}

// ForwardXP queues one XP award for delivery. Satisfies the engine's reward
// hook, so it never blocks and never returns an error.
func (f *Forwarder) ForwardXP(studentID shared.StudentID, amount int, source string) {
	if amount <= 0 {
		return
	}
	if f.flags != nil {
		fctx := &config.FeatureContext{StudentID: string(studentID)}
		if !f.flags.IsEnabled(config.FeatureSkillTreeForwarding, fctx) {
			return
		}
	}

	award := NewXPAwardRequest(string(studentID), amount, source, time.Now())

	select {
	case f.queue <- award:
	default:
		f.mu.Lock()
		f.dropped++
		f.mu.Unlock()
		f.logger.Warn("xp award dropped, forwarder queue full",
			"student_id", studentID,
			"amount", amount,
			"source", source,
		)
	}
}

func (f *Forwarder) deliveryLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.closeCh:
			// Drain what is already queued before exiting.
			for {
				select {
				case award := <-f.queue:
					f.deliver(award)
				default:
					return
				}
			}
		case award := <-f.queue:
			f.deliver(award)
		}
	}
}

func (f *Forwarder) deliver(award XPAwardRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), f.sendTimeout)
	defer cancel()

	resp, err := f.client.PostXPAward(ctx, award)
	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.failed++
		f.logger.Error("xp award delivery failed",
			"student_id", award.StudentID,
			"amount", award.Amount,
			"source", award.Source,
			"error", err,
		)
		return
	}

	f.sent++
	if resp.Duplicate {
		f.logger.Debug("xp award was a duplicate", "student_id", award.StudentID)
	}
}

// Close stops the delivery workers after draining queued awards.
func (f *Forwarder) Close() {
	f.once.Do(func() {
		close(f.closeCh)
	})
	f.wg.Wait()
}

// ForwarderStats reports delivery counters.
type ForwarderStats struct {
	Sent    int64
	Failed  int64
	Dropped int64
	Pending int
}

// Stats returns current delivery counters.
func (f *Forwarder) Stats() ForwarderStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ForwarderStats{
		Sent:    f.sent,
		Failed:  f.failed,
		Dropped: f.dropped,
		Pending: len(f.queue),
	}
}
