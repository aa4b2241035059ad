package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edquest-hub/edquest-arena/internal/domain/battle"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

func TestEnqueue_MatchOnSecondEntry(t *testing.T) {
	e, _, bus := newTestEngine(t)

	battleID, err := e.Enqueue("alice", battle.TypeSpeedSolve, 200)
	require.NoError(t, err)
	assert.Empty(t, battleID)
	assert.True(t, e.IsQueued("alice"))
	assert.Equal(t, 1, e.QueueLength())

	battleID, err = e.Enqueue("bob", battle.TypeSpeedSolve, 200)
	require.NoError(t, err)
	require.NotEmpty(t, battleID)

	// Both entries leave the queue; both students hold the in-battle flag.
	assert.Equal(t, 0, e.QueueLength())
	assert.False(t, e.IsQueued("alice"))
	assert.False(t, e.IsQueued("bob"))
	assert.True(t, e.IsInBattle("alice"))
	assert.True(t, e.IsInBattle("bob"))

	b, err := e.GetBattle(battleID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []shared.StudentID{"alice", "bob"}, b.Participants)
	assert.True(t, bus.has(shared.EventMatchFound))
}

func TestEnqueue_TypeAndRangeMismatchStaysQueued(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.Enqueue("alice", battle.TypeSpeedSolve, 200)
	require.NoError(t, err)
	_, err = e.Enqueue("bob", battle.TypeQuizDuel, 200)
	require.NoError(t, err)

	assert.Equal(t, 2, e.QueueLength())

	// Distance check uses the wider of the two preferences.
	e.mu.Lock()
	e.ensureCompetitor("carol").RankPoints = 500
	e.mu.Unlock()

	_, err = e.Enqueue("carol", battle.TypeSpeedSolve, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, e.QueueLength())

	battleID, err := e.Enqueue("dave", battle.TypeSpeedSolve, 600)
	require.NoError(t, err)
	assert.NotEmpty(t, battleID)
}

func TestEnqueue_Rejections(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.Enqueue("alice", battle.TypeCodeGolf, 0)
	require.NoError(t, err)

	_, err = e.Enqueue("alice", battle.TypeCodeGolf, 0)
	assert.ErrorIs(t, err, shared.ErrAlreadyQueued)

	battleID, err := e.Enqueue("bob", battle.TypeCodeGolf, 0)
	require.NoError(t, err)
	require.NotEmpty(t, battleID)

	_, err = e.Enqueue("alice", battle.TypeCodeGolf, 0)
	assert.ErrorIs(t, err, shared.ErrAlreadyInBattle)
}

func TestWithdraw(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.Enqueue("alice", battle.TypeQuizDuel, 0)
	require.NoError(t, err)

	require.NoError(t, e.Withdraw("alice"))
	assert.Equal(t, 0, e.QueueLength())

	// The entry is gone; a second withdrawal fails harmlessly.
	assert.ErrorIs(t, e.Withdraw("alice"), shared.ErrNotQueued)
	assert.ErrorIs(t, e.Withdraw("stranger"), shared.ErrNotQueued)
}

func TestCompleteBattle_SpeedSolveRewards(t *testing.T) {
	e, _, bus := newTestEngine(t)

	_, err := e.Enqueue("alice", battle.TypeSpeedSolve, 200)
	require.NoError(t, err)
	battleID, err := e.Enqueue("bob", battle.TypeSpeedSolve, 200)
	require.NoError(t, err)
	require.NotEmpty(t, battleID)

	scores := map[shared.StudentID]float64{"alice": 95, "bob": 78}
	outcome, err := e.CompleteBattle(battleID, "alice", scores, map[string]float64{"avg_solve_seconds": 42})
	require.NoError(t, err)

	assert.Equal(t, 155, outcome.WinnerXP)
	assert.Equal(t, 50, outcome.LoserXP)
	assert.Equal(t, 32, outcome.WinnerPointsGained)
	assert.Equal(t, 15, outcome.LoserPointsLost)

	alice, err := e.GetCompetitorStats("alice")
	require.NoError(t, err)
	assert.Equal(t, shared.RankPoints(32), alice.RankPoints)
	assert.Equal(t, 1, alice.Wins)
	assert.Equal(t, 1, alice.CurrentStreak)
	assert.False(t, alice.InBattle)

	bob, err := e.GetCompetitorStats("bob")
	require.NoError(t, err)
	// Points floor at zero for a fresh profile.
	assert.Equal(t, shared.RankPoints(0), bob.RankPoints)
	assert.Equal(t, 1, bob.Losses)
	assert.False(t, bob.InBattle)

	assert.True(t, bus.has(shared.EventBattleCompleted))
}

func TestCompleteBattle_UnknownOrRepeated(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.CompleteBattle("missing", "alice", nil, nil)
	assert.ErrorIs(t, err, shared.ErrUnknownBattle)

	_, err = e.Enqueue("alice", battle.TypeConceptClash, 0)
	require.NoError(t, err)
	battleID, err := e.Enqueue("bob", battle.TypeConceptClash, 0)
	require.NoError(t, err)

	_, err = e.CompleteBattle(battleID, "alice", nil, nil)
	require.NoError(t, err)
	before, _ := e.GetCompetitorStats("alice")

	// Exactly one completion takes effect.
	_, err = e.CompleteBattle(battleID, "bob", nil, nil)
	assert.ErrorIs(t, err, shared.ErrUnknownBattle)

	after, _ := e.GetCompetitorStats("alice")
	assert.Equal(t, before, after)
}

func TestCompleteBattle_WinnerMustParticipate(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.Enqueue("alice", battle.TypeQuizDuel, 0)
	require.NoError(t, err)
	battleID, err := e.Enqueue("bob", battle.TypeQuizDuel, 0)
	require.NoError(t, err)

	_, err = e.CompleteBattle(battleID, "stranger", nil, nil)
	assert.ErrorIs(t, err, shared.ErrWinnerNotInBattle)

	// The battle stays open and both flags stay set.
	assert.True(t, e.IsInBattle("alice"))
	assert.True(t, e.IsInBattle("bob"))
}

func TestQueueAndBattleExclusive(t *testing.T) {
	e, _, _ := newTestEngine(t)

	students := []shared.StudentID{"a", "b", "c", "d", "e"}
	for _, s := range students {
		_, err := e.Enqueue(s, battle.TypeSpeedSolve, 200)
		require.NoError(t, err)
		for _, check := range students {
			assert.False(t, e.IsQueued(check) && e.IsInBattle(check),
				"student %s both queued and in battle", check)
		}
	}

	// Five entries pair off into two battles with one left waiting.
	assert.Equal(t, 1, e.QueueLength())
}
