package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Every event shape the engine publishes must satisfy the Event interface,
// bare envelopes included.
var (
	_ Event = BaseEvent{}
	_ Event = MatchFoundEvent{}
	_ Event = BattleCompletedEvent{}
	_ Event = RankTierChangedEvent{}
	_ Event = SessionEndedEvent{}
	_ Event = GuildTierChangedEvent{}
	_ Event = BracketGeneratedEvent{}
)

func TestNewBaseEvent(t *testing.T) {
	e := NewBaseEvent(EventGuildCreated, "g-1")

	assert.Equal(t, EventGuildCreated, e.EventType())
	assert.Equal(t, "g-1", e.AggregateID())
	assert.WithinDuration(t, time.Now(), e.OccurredAt(), time.Second)

	// No data beyond the envelope, but still serializable.
	assert.NotNil(t, e.Payload())
	assert.Empty(t, e.Payload())
}

func TestConcreteEventPayloadShadowsBase(t *testing.T) {
	e := NewMatchFoundEvent("b-1", "SPEED_SOLVE", []string{"alice", "bob"})

	var asInterface Event = e
	payload := asInterface.Payload()
	assert.Equal(t, "b-1", payload["battle_id"])
	assert.Equal(t, []string{"alice", "bob"}, payload["players"])
}
