package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edquest-hub/edquest-arena/internal/domain/battle"
	"github.com/edquest-hub/edquest-arena/internal/domain/session"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

func TestSnapshotRoundTrip(t *testing.T) {
	e, clock, _ := newTestEngine(t)

	guildID, err := e.CreateGuild("Guild", "leader")
	require.NoError(t, err)
	require.NoError(t, e.JoinGuild("member", guildID))

	partyID, err := e.CreateParty("leader")
	require.NoError(t, err)
	sessionID, err := e.StartSession(partyID, session.SessionTypePeerTeaching)
	require.NoError(t, err)
	require.NoError(t, e.RecordProgress(sessionID, 5, 0.6, []string{"recursion"}))

	_, err = e.Enqueue("alice", battle.TypeSpeedSolve, 200)
	require.NoError(t, err)
	battleID, err := e.Enqueue("bob", battle.TypeSpeedSolve, 200)
	require.NoError(t, err)
	require.NotEmpty(t, battleID)
	_, err = e.Enqueue("waiting", battle.TypeQuizDuel, 0)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	snap := e.ExportSnapshot()
	assert.Equal(t, clock.Now(), snap.TakenAt)
	assert.Len(t, snap.Guilds, 1)
	assert.Len(t, snap.Parties, 1)
	assert.Len(t, snap.Queue, 1)

	// Restore into a fresh engine; derived state must rebuild identically.
	restored, _, _ := newTestEngine(t)
	restored.ImportSnapshot(snap)

	guildInfo, err := restored.GetGuildInfo(guildID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []shared.StudentID{"leader", "member"}, guildInfo.Members)

	partyInfo, err := restored.GetPartyInfo(partyID)
	require.NoError(t, err)
	assert.Equal(t, sessionID, partyInfo.CurrentSessionID)

	// Membership indexes rebuilt: leaving works without re-joining.
	require.NoError(t, restored.LeaveGuild("member"))

	// The open battle restores the in-battle flags, the queue its entry.
	assert.True(t, restored.IsInBattle("alice"))
	assert.True(t, restored.IsInBattle("bob"))
	assert.True(t, restored.IsQueued("waiting"))
	assert.Equal(t, 1, restored.QueueLength())

	outcome, err := restored.CompleteBattle(battleID, "alice",
		map[shared.StudentID]float64{"alice": 10, "bob": 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", outcome.WinnerID.String())
	assert.False(t, restored.IsInBattle("alice"))
}

func TestImportSnapshot_CompletedBattlesReleaseFlags(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.Enqueue("alice", battle.TypeCodeGolf, 0)
	require.NoError(t, err)
	battleID, err := e.Enqueue("bob", battle.TypeCodeGolf, 0)
	require.NoError(t, err)
	_, err = e.CompleteBattle(battleID, "bob", nil, nil)
	require.NoError(t, err)

	restored, _, _ := newTestEngine(t)
	restored.ImportSnapshot(e.ExportSnapshot())

	assert.False(t, restored.IsInBattle("alice"))
	assert.False(t, restored.IsInBattle("bob"))

	// The battle record survives as history.
	b, err := restored.GetBattle(battleID)
	require.NoError(t, err)
	assert.True(t, b.IsCompleted())

	stats, err := restored.GetCompetitorStats("bob")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Wins)
}

func TestImportSnapshot_Nil(t *testing.T) {
	e, _, _ := newTestEngine(t)
	guildID, err := e.CreateGuild("Keep", "leader")
	require.NoError(t, err)

	e.ImportSnapshot(nil)

	_, err = e.GetGuildInfo(guildID)
	assert.NoError(t, err)
}
