package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edquest-hub/edquest-arena/internal/domain/battle"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
	"github.com/edquest-hub/edquest-arena/internal/domain/tournament"
)

func openWindow(clock *testClock) shared.TimeRange {
	now := clock.Now()
	return shared.TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}
}

func TestTournamentFlow_SingleElimination(t *testing.T) {
	e, clock, bus := newTestEngine(t)

	id, err := e.CreateTournament("Spring Cup", tournament.FormatSingleElimination,
		battle.TypeSpeedSolve, 8, openWindow(clock))
	require.NoError(t, err)

	players := []shared.StudentID{"p1", "p2", "p3", "p4", "p5"}
	for _, p := range players {
		require.NoError(t, e.RegisterForTournament(id, p))
	}
	assert.ErrorIs(t, e.RegisterForTournament(id, "p1"), shared.ErrAlreadyRegistered)

	require.NoError(t, e.GenerateBracket(id))
	assert.ErrorIs(t, e.GenerateBracket(id), shared.ErrBracketExists)

	info, err := e.GetTournament(id)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusInProgress, info.Status)
	// Five registrants pair into three round-one matches, one of them a bye.
	require.Len(t, info.Matches, 3)

	byes := 0
	for _, m := range info.Matches {
		if m.IsBye() {
			byes++
			assert.True(t, m.Completed)
			assert.Equal(t, 1, info.Standings[m.WinnerID])
		}
	}
	assert.Equal(t, 1, byes)

	// Registration closes once the bracket exists.
	assert.ErrorIs(t, e.RegisterForTournament(id, "late"), shared.ErrRegistrationClosed)

	for _, m := range info.Matches {
		if !m.IsBye() {
			require.NoError(t, e.ReportMatchResult(id, m.ID, m.SlotA, ""))
		}
	}

	info, err = e.GetTournament(id)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusCompleted, info.Status)
	assert.True(t, bus.has(shared.EventTournamentCompleted))
	assert.True(t, bus.has(shared.EventBracketGenerated))
}

func TestTournamentFlow_RoundRobin(t *testing.T) {
	e, clock, _ := newTestEngine(t)

	id, err := e.CreateTournament("League", tournament.FormatRoundRobin,
		battle.TypeQuizDuel, 4, openWindow(clock))
	require.NoError(t, err)

	for _, p := range []shared.StudentID{"a", "b", "c", "d"} {
		require.NoError(t, e.RegisterForTournament(id, p))
	}
	assert.ErrorIs(t, e.RegisterForTournament(id, "e"), shared.ErrTournamentFull)

	require.NoError(t, e.GenerateBracket(id))

	info, err := e.GetTournament(id)
	require.NoError(t, err)
	require.Len(t, info.Matches, 6) // n(n-1)/2 for n=4

	// "a" wins all of their matches, everyone else loses to them.
	for _, m := range info.Matches {
		winner := m.SlotA
		if m.SlotB == "a" {
			winner = m.SlotB
		}
		require.NoError(t, e.ReportMatchResult(id, m.ID, winner, ""))
	}

	info, err = e.GetTournament(id)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusCompleted, info.Status)
	assert.Equal(t, 3, info.Standings["a"])
}

func TestTournament_RegistrationWindow(t *testing.T) {
	e, clock, _ := newTestEngine(t)

	now := clock.Now()
	id, err := e.CreateTournament("Future Cup", tournament.FormatSingleElimination,
		battle.TypeCodeGolf, 16,
		shared.TimeRange{From: now.Add(time.Hour), To: now.Add(2 * time.Hour)})
	require.NoError(t, err)

	assert.ErrorIs(t, e.RegisterForTournament(id, "early"), shared.ErrRegistrationClosed)

	clock.Advance(90 * time.Minute)
	require.NoError(t, e.RegisterForTournament(id, "ontime"))

	clock.Advance(time.Hour)
	assert.ErrorIs(t, e.RegisterForTournament(id, "late"), shared.ErrRegistrationClosed)
}

func TestGenerateBracket_SoleRegistrantFinishesTournament(t *testing.T) {
	e, clock, bus := newTestEngine(t)

	id, err := e.CreateTournament("Walkover Cup", tournament.FormatSingleElimination,
		battle.TypeSpeedSolve, 8, openWindow(clock))
	require.NoError(t, err)
	require.NoError(t, e.RegisterForTournament(id, "solo"))

	require.NoError(t, e.GenerateBracket(id))

	// A lone registrant gets a bye and the tournament closes right away.
	info, err := e.GetTournament(id)
	require.NoError(t, err)
	assert.Equal(t, tournament.StatusCompleted, info.Status)
	require.Len(t, info.Matches, 1)
	assert.True(t, info.Matches[0].Completed)
	assert.Equal(t, shared.StudentID("solo"), info.Matches[0].WinnerID)
	assert.Equal(t, 1, info.Standings["solo"])

	assert.True(t, bus.has(shared.EventBracketGenerated))
	assert.True(t, bus.has(shared.EventTournamentCompleted))
}

func TestGenerateBracket_Empty(t *testing.T) {
	e, clock, _ := newTestEngine(t)

	id, err := e.CreateTournament("Ghost Cup", tournament.FormatRoundRobin,
		battle.TypeConceptClash, 8, openWindow(clock))
	require.NoError(t, err)

	assert.ErrorIs(t, e.GenerateBracket(id), shared.ErrNoRegistrants)
	assert.ErrorIs(t, e.GenerateBracket("missing"), shared.ErrNotFound)
}
