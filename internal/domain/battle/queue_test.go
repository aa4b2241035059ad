package battle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

var enqueueTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func entry(id string, battleType Type, rankRange int) QueueEntry {
	return NewQueueEntry(shared.StudentID(id), battleType, rankRange, enqueueTime)
}

func TestNewQueueEntry_DefaultRange(t *testing.T) {
	e := entry("a", TypeSpeedSolve, 0)
	assert.Equal(t, DefaultRankRange, e.RankRange)

	e = entry("a", TypeSpeedSolve, 75)
	assert.Equal(t, 75, e.RankRange)
}

func TestCompatible(t *testing.T) {
	a := entry("a", TypeSpeedSolve, 100)
	b := entry("b", TypeSpeedSolve, 50)
	quiz := entry("c", TypeQuizDuel, 100)

	// Never with oneself.
	assert.False(t, Compatible(a, a, 0, 0))

	// Battle types must match.
	assert.False(t, Compatible(a, quiz, 0, 0))

	// Distance within the wider of the two preferences.
	assert.True(t, Compatible(a, b, 100, 200))  // distance 100 ≤ max(100, 50)
	assert.False(t, Compatible(a, b, 100, 201)) // distance 101 > 100
	assert.True(t, Compatible(b, a, 100, 200))  // symmetric
}

func TestFindMatch_InsertionOrderGreedy(t *testing.T) {
	points := map[shared.StudentID]shared.RankPoints{
		"a": 0, "b": 1000, "c": 50, "d": 1010,
	}
	lookup := func(id shared.StudentID) shared.RankPoints { return points[id] }

	entries := []QueueEntry{
		entry("a", TypeSpeedSolve, 100),
		entry("b", TypeSpeedSolve, 100),
		entry("c", TypeSpeedSolve, 100),
		entry("d", TypeSpeedSolve, 100),
	}

	// a-c is the first compatible pair in insertion order, even though
	// b-d is a tighter match.
	i, j := FindMatch(entries, lookup)
	assert.Equal(t, 0, i)
	assert.Equal(t, 2, j)
}

func TestFindMatch_NoPair(t *testing.T) {
	points := map[shared.StudentID]shared.RankPoints{"a": 0, "b": 5000}
	lookup := func(id shared.StudentID) shared.RankPoints { return points[id] }

	entries := []QueueEntry{
		entry("a", TypeSpeedSolve, 100),
		entry("b", TypeSpeedSolve, 100),
	}

	i, j := FindMatch(entries, lookup)
	assert.Equal(t, -1, i)
	assert.Equal(t, -1, j)
}

func TestBattleLifecycle(t *testing.T) {
	b, err := NewBattle("b1", TypeSpeedSolve, []shared.StudentID{"alice", "bob"}, enqueueTime)
	assert.NoError(t, err)
	assert.False(t, b.IsCompleted())

	scores := map[shared.StudentID]float64{"alice": 95, "bob": 78}
	outcome, err := b.Complete("alice", scores, nil, enqueueTime.Add(5*time.Minute))
	assert.NoError(t, err)
	assert.True(t, b.IsCompleted())
	assert.Equal(t, shared.StudentID("alice"), b.WinnerID)
	assert.Equal(t, outcome.WinnerXP, b.XPDeltas["alice"])
	assert.Equal(t, 50, b.XPDeltas["bob"])
	assert.Equal(t, 32, b.PointDeltas["alice"])
	assert.Equal(t, -15, b.PointDeltas["bob"])

	// Terminal: a second completion fails.
	_, err = b.Complete("bob", scores, nil, enqueueTime.Add(6*time.Minute))
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestNewBattle_Validation(t *testing.T) {
	_, err := NewBattle("b1", TypeSpeedSolve, []shared.StudentID{"solo"}, enqueueTime)
	assert.ErrorIs(t, err, ErrTooFewParticipants)

	_, err = NewBattle("b1", TypeSpeedSolve, []shared.StudentID{"x", "x"}, enqueueTime)
	assert.ErrorIs(t, err, ErrDuplicateCompetitor)

	b, err := NewBattle("b1", TypeSpeedSolve, []shared.StudentID{"a", "b"}, enqueueTime)
	assert.NoError(t, err)
	_, err = b.Complete("stranger", nil, nil, enqueueTime)
	assert.ErrorIs(t, err, ErrWinnerNotCompeting)
}
