package messaging

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

func TestInMemoryEventBus_SyncDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
	defer bus.Close()

	var typed, all int32
	require.NoError(t, bus.Subscribe(shared.EventBattleCompleted, func(e shared.Event) error {
		atomic.AddInt32(&typed, 1)
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		atomic.AddInt32(&all, 1)
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewBaseEvent(shared.EventBattleCompleted, "b1")))
	require.NoError(t, bus.Publish(shared.NewBaseEvent(shared.EventGuildCreated, "g1")))

	assert.Equal(t, int32(1), atomic.LoadInt32(&typed))
	assert.Equal(t, int32(2), atomic.LoadInt32(&all))
}

func TestInMemoryEventBus_AsyncDrainsOnClose(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})

	var handled int32
	require.NoError(t, bus.Subscribe(shared.EventMatchFound, func(e shared.Event) error {
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&handled, 1)
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewBaseEvent(shared.EventMatchFound, "b")))
	}

	require.NoError(t, bus.Close())
	assert.Equal(t, int32(5), atomic.LoadInt32(&handled))

	assert.ErrorIs(t, bus.Publish(shared.NewBaseEvent(shared.EventMatchFound, "b")), ErrEventBusClosed)
}

func TestDispatcher_RetryAndDeadLetter(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
	defer bus.Close()

	d := NewDispatcher(DispatcherConfig{
		Bus: bus,
		Retry: RetryConfig{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
		},
	})

	var flakyCalls, brokenCalls int32
	require.NoError(t, d.Register(shared.EventSessionEnded, "flaky", func(e shared.Event) error {
		if atomic.AddInt32(&flakyCalls, 1) < 2 {
			return errors.New("transient")
		}
		return nil
	}))
	require.NoError(t, d.Register(shared.EventSessionEnded, "broken", func(e shared.Event) error {
		atomic.AddInt32(&brokenCalls, 1)
		return errors.New("permanent")
	}))
	require.NoError(t, d.Start())

	require.NoError(t, bus.Publish(shared.NewBaseEvent(shared.EventSessionEnded, "s1")))

	// The flaky handler succeeds on its retry; the broken one exhausts
	// all attempts and lands in the dead letter queue.
	assert.Equal(t, int32(2), atomic.LoadInt32(&flakyCalls))
	assert.Equal(t, int32(3), atomic.LoadInt32(&brokenCalls))

	entries := d.DeadLetterQueue().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].HandlerName)
}

func TestDispatcher_RecoveryMiddleware(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
	defer bus.Close()

	d := NewDispatcher(DispatcherConfig{
		Bus:   bus,
		Retry: RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})
	d.Use(RecoveryMiddleware(slog.Default()))

	require.NoError(t, d.Register(shared.EventGuildCreated, "panicky", func(e shared.Event) error {
		panic("boom")
	}))
	require.NoError(t, d.Start())

	// The panic is contained; publish does not crash the test.
	require.NoError(t, bus.Publish(shared.NewBaseEvent(shared.EventGuildCreated, "g1")))
	assert.Equal(t, 1, d.DeadLetterQueue().Size())
}
