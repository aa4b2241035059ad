package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

var testStart = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T) *StudySession {
	t.Helper()
	s, err := NewStudySession("s1", "p1", SessionTypeProblemSolving,
		[]shared.StudentID{"alice", "bob"}, testStart)
	require.NoError(t, err)
	return s
}

func TestNewStudySession(t *testing.T) {
	s := newTestSession(t)
	assert.True(t, s.IsActive())
	assert.Len(t, s.Participants, 2)

	_, err := NewStudySession("", "p1", SessionTypeExamPrep, nil, testStart)
	assert.ErrorIs(t, err, ErrInvalidSessionID)

	_, err = NewStudySession("s1", "", SessionTypeExamPrep, nil, testStart)
	assert.ErrorIs(t, err, ErrInvalidPartyID)
}

func TestRecordProgress(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.RecordProgress(5, 0.5, []string{"graphs"}))
	require.NoError(t, s.RecordProgress(10, 0.8, []string{"dp"}))

	assert.Equal(t, 15, s.ProblemsSolved)
	assert.Equal(t, 0.8, s.CollaborationScore) // latest value wins
	assert.Equal(t, []string{"graphs", "dp"}, s.ConceptsCovered)

	assert.ErrorIs(t, s.RecordProgress(-1, 0.5, nil), ErrNegativeProblems)
	assert.ErrorIs(t, s.RecordProgress(1, 1.5, nil), ErrInvalidCollabScore)
}

func TestEnd_RewardFormula(t *testing.T) {
	// 15 problems in a 30-minute session with collaboration score 0.8:
	// efficiency=0.5, baseXP=150, collaborationBonus=120, efficiencyBonus=37.
	s := newTestSession(t)
	require.NoError(t, s.RecordProgress(15, 0.8, nil))

	reward, err := s.End(testStart.Add(30 * time.Minute))
	require.NoError(t, err)

	assert.Equal(t, 150, reward.BaseXP)
	assert.Equal(t, 120, reward.CollaborationBonus)
	assert.Equal(t, 37, reward.EfficiencyBonus)
	assert.Equal(t, 307, reward.TotalXP)
	assert.False(t, s.IsActive())
}

func TestEnd_ZeroDuration(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.RecordProgress(10, 0.0, nil))

	reward, err := s.End(testStart)
	require.NoError(t, err)

	// Zero duration means zero efficiency, never a division by zero.
	assert.Equal(t, 100, reward.BaseXP)
	assert.Equal(t, 0, reward.EfficiencyBonus)
	assert.Equal(t, 100, reward.TotalXP)
}

func TestEnd_EfficiencyBonusCapped(t *testing.T) {
	// 20 problems in 2 minutes: efficiency=10, bonus capped at baseXP.
	s := newTestSession(t)
	require.NoError(t, s.RecordProgress(20, 0.0, nil))

	reward, err := s.End(testStart.Add(2 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 200, reward.BaseXP)
	assert.Equal(t, 200, reward.EfficiencyBonus)
}

func TestEnd_ExactlyOnce(t *testing.T) {
	s := newTestSession(t)
	_, err := s.End(testStart.Add(time.Minute))
	require.NoError(t, err)

	_, err = s.End(testStart.Add(2 * time.Minute))
	assert.ErrorIs(t, err, ErrAlreadyEnded)
	assert.ErrorIs(t, s.RecordProgress(1, 0.5, nil), ErrAlreadyEnded)
}

func TestEnd_BeforeStart(t *testing.T) {
	s := newTestSession(t)
	_, err := s.End(testStart.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrEndBeforeStart)
	assert.True(t, s.IsActive())
}
