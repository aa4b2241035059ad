package engine

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edquest-hub/edquest-arena/internal/domain/session"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// testClock is a controllable clock for lifecycle tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// captureBus records published events for assertions.
type captureBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *captureBus) Publish(event shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *captureBus) types() []shared.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]shared.EventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventType())
	}
	return out
}

func (b *captureBus) has(t shared.EventType) bool {
	for _, et := range b.types() {
		if et == t {
			return true
		}
	}
	return false
}

func newTestEngine(t *testing.T) (*Engine, *testClock, *captureBus) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	bus := &captureBus{}
	e, err := New(Config{
		Rand:  rand.New(rand.NewSource(42)),
		Clock: clock.Now,
		Bus:   bus,
	})
	require.NoError(t, err)
	return e, clock, bus
}

func TestGuildLifecycle(t *testing.T) {
	e, _, bus := newTestEngine(t)

	guildID, err := e.CreateGuild("Algorithm Knights", "leader")
	require.NoError(t, err)

	require.NoError(t, e.JoinGuild("officer", guildID))
	require.NoError(t, e.JoinGuild("member", guildID))
	require.NoError(t, e.PromoteOfficer(guildID, "officer"))

	info, err := e.GetGuildInfo(guildID)
	require.NoError(t, err)
	assert.Equal(t, 3, len(info.Members))
	assert.Equal(t, []shared.StudentID{"officer"}, info.Officers)

	// Leader leaving promotes the first officer.
	require.NoError(t, e.LeaveGuild("leader"))
	info, err = e.GetGuildInfo(guildID)
	require.NoError(t, err)
	assert.Equal(t, shared.StudentID("officer"), info.LeaderID)

	assert.True(t, bus.has(shared.EventGuildCreated))
	assert.True(t, bus.has(shared.EventGuildMemberJoined))
}

func TestJoinGuild_ImplicitLeave(t *testing.T) {
	e, _, _ := newTestEngine(t)

	first, err := e.CreateGuild("First", "founder1")
	require.NoError(t, err)
	second, err := e.CreateGuild("Second", "founder2")
	require.NoError(t, err)

	require.NoError(t, e.JoinGuild("student", first))
	require.NoError(t, e.JoinGuild("student", second))

	firstInfo, _ := e.GetGuildInfo(first)
	secondInfo, _ := e.GetGuildInfo(second)
	assert.NotContains(t, firstInfo.Members, shared.StudentID("student"))
	assert.Contains(t, secondInfo.Members, shared.StudentID("student"))
}

func TestJoinGuild_Errors(t *testing.T) {
	e, _, _ := newTestEngine(t)

	assert.ErrorIs(t, e.JoinGuild("s", "missing"), shared.ErrNotFound)

	guildID, err := e.CreateGuild("Tiny", "leader")
	require.NoError(t, err)
	e.mu.Lock()
	e.guilds[guildID].MaxMembers = 1
	e.mu.Unlock()

	err = e.JoinGuild("overflow", guildID)
	assert.True(t, shared.IsCapacityExceeded(err))

	// A rejected join does not disturb existing membership.
	assert.ErrorIs(t, e.LeaveGuild("overflow"), shared.ErrNotGuildMember)
}

func TestPartyLifecycle(t *testing.T) {
	e, _, _ := newTestEngine(t)

	guildID, err := e.CreateGuild("Guild", "leader")
	require.NoError(t, err)

	// Party inherits the leader's guild at creation.
	partyID, err := e.CreateParty("leader")
	require.NoError(t, err)

	info, err := e.GetPartyInfo(partyID)
	require.NoError(t, err)
	assert.Equal(t, guildID, info.GuildID)

	guildInfo, _ := e.GetGuildInfo(guildID)
	assert.Contains(t, guildInfo.Parties, partyID)

	// The affiliation stays fixed even when the leader changes guilds.
	require.NoError(t, e.LeaveGuild("leader"))
	info, _ = e.GetPartyInfo(partyID)
	assert.Equal(t, guildID, info.GuildID)

	// Last member leaving deletes the party.
	require.NoError(t, e.LeaveParty("leader"))
	_, err = e.GetPartyInfo(partyID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	guildInfo, _ = e.GetGuildInfo(guildID)
	assert.NotContains(t, guildInfo.Parties, partyID)
}

func TestJoinParty_CapacityAndImplicitLeave(t *testing.T) {
	e, _, _ := newTestEngine(t)

	partyID, err := e.CreateParty("leader")
	require.NoError(t, err)

	for _, id := range []shared.StudentID{"a", "b", "c", "d"} {
		require.NoError(t, e.JoinParty(id, partyID))
	}
	err = e.JoinParty("overflow", partyID)
	assert.True(t, shared.IsCapacityExceeded(err))

	// Joining another party implicitly leaves the first.
	otherID, err := e.CreateParty("other")
	require.NoError(t, err)
	require.NoError(t, e.JoinParty("a", otherID))

	info, _ := e.GetPartyInfo(partyID)
	assert.NotContains(t, info.Members, shared.StudentID("a"))
}

func TestSessionLifecycle_RewardsFlowToGuild(t *testing.T) {
	e, clock, bus := newTestEngine(t)

	guildID, err := e.CreateGuild("Guild", "leader")
	require.NoError(t, err)
	partyID, err := e.CreateParty("leader")
	require.NoError(t, err)

	sessionID, err := e.StartSession(partyID, session.SessionTypeProblemSolving)
	require.NoError(t, err)
	require.NoError(t, e.RecordProgress(sessionID, 15, 0.8, []string{"graphs"}))

	clock.Advance(30 * time.Minute)
	reward, err := e.EndSession(partyID)
	require.NoError(t, err)
	assert.Equal(t, 307, reward.TotalXP)

	partyInfo, _ := e.GetPartyInfo(partyID)
	assert.Equal(t, shared.XP(307), partyInfo.TotalXP)
	assert.Equal(t, 1, partyInfo.SessionCount)

	guildInfo, _ := e.GetGuildInfo(guildID)
	assert.Equal(t, shared.XP(307), guildInfo.XP)

	assert.True(t, bus.has(shared.EventSessionEnded))
	assert.True(t, bus.has(shared.EventGuildXPAwarded))
}

func TestEndSession_NoActiveSession(t *testing.T) {
	e, _, _ := newTestEngine(t)

	partyID, err := e.CreateParty("leader")
	require.NoError(t, err)

	_, err = e.EndSession(partyID)
	assert.ErrorIs(t, err, shared.ErrNoActiveSession)

	_, err = e.EndSession("missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStartSession_EndsPreviousFirst(t *testing.T) {
	e, clock, _ := newTestEngine(t)

	partyID, err := e.CreateParty("leader")
	require.NoError(t, err)

	firstID, err := e.StartSession(partyID, session.SessionTypeConceptReview)
	require.NoError(t, err)
	require.NoError(t, e.RecordProgress(firstID, 10, 0.5, nil))

	clock.Advance(20 * time.Minute)
	secondID, err := e.StartSession(partyID, session.SessionTypeExamPrep)
	require.NoError(t, err)
	assert.NotEqual(t, firstID, secondID)

	// The first session was closed with its rewards applied.
	first, err := e.GetSession(firstID)
	require.NoError(t, err)
	assert.False(t, first.IsActive())
	assert.NotZero(t, first.Reward.TotalXP)

	partyInfo, _ := e.GetPartyInfo(partyID)
	assert.Equal(t, secondID, partyInfo.CurrentSessionID)
	assert.Equal(t, shared.XP(first.Reward.TotalXP), partyInfo.TotalXP)
}

func TestRecordProgress_EndedSessionIsClosed(t *testing.T) {
	e, clock, _ := newTestEngine(t)

	partyID, err := e.CreateParty("leader")
	require.NoError(t, err)
	sessionID, err := e.StartSession(partyID, session.SessionTypeProblemSolving)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	_, err = e.EndSession(partyID)
	require.NoError(t, err)

	err = e.RecordProgress(sessionID, 5, 0.5, nil)
	assert.ErrorIs(t, err, shared.ErrAlreadyClosed)

	// Bad input on a live session still reports as invalid input.
	liveID, err := e.StartSession(partyID, session.SessionTypeProblemSolving)
	require.NoError(t, err)
	err = e.RecordProgress(liveID, -1, 0.5, nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
