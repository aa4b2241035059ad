package engine

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edquest-hub/edquest-arena/internal/domain/battle"
	"github.com/edquest-hub/edquest-arena/internal/domain/session"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

type captureForwarder struct {
	mu     sync.Mutex
	awards map[shared.StudentID]int
}

func (f *captureForwarder) ForwardXP(studentID shared.StudentID, amount int, source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.awards == nil {
		f.awards = make(map[shared.StudentID]int)
	}
	f.awards[studentID] += amount
}

func TestRegisterCompetitor(t *testing.T) {
	e, _, _ := newTestEngine(t)

	require.NoError(t, e.RegisterCompetitor("alice"))
	assert.ErrorIs(t, e.RegisterCompetitor("alice"), shared.ErrAlreadyExists)

	stats, err := e.GetCompetitorStats("alice")
	require.NoError(t, err)
	assert.Equal(t, shared.RankPoints(0), stats.RankPoints)
	assert.Equal(t, "Bronze III", stats.Tier)

	_, err = e.GetCompetitorStats("stranger")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTopCompetitorsAndGuilds(t *testing.T) {
	e, _, _ := newTestEngine(t)

	for id, points := range map[shared.StudentID]shared.RankPoints{
		"low": 10, "mid": 120, "high": 450,
	} {
		require.NoError(t, e.RegisterCompetitor(id))
		e.mu.Lock()
		e.competitors[id].RankPoints = points
		e.mu.Unlock()
	}

	top := e.TopCompetitors(2)
	require.Len(t, top, 2)
	assert.Equal(t, shared.StudentID("high"), top[0].StudentID)
	assert.Equal(t, shared.StudentID("mid"), top[1].StudentID)

	g1, err := e.CreateGuild("Alpha", "l1")
	require.NoError(t, err)
	_, err = e.CreateGuild("Beta", "l2")
	require.NoError(t, err)
	e.mu.Lock()
	e.guilds[g1].AwardXP(500)
	e.mu.Unlock()

	guilds := e.TopGuilds(10)
	require.Len(t, guilds, 2)
	assert.Equal(t, g1, guilds[0].GuildID)
}

func TestRewardForwarding(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	fwd := &captureForwarder{}
	e, err := New(Config{
		Rand:      rand.New(rand.NewSource(7)),
		Clock:     clock.Now,
		Forwarder: fwd,
	})
	require.NoError(t, err)

	partyID, err := e.CreateParty("leader")
	require.NoError(t, err)
	require.NoError(t, e.JoinParty("buddy", partyID))

	sessionID, err := e.StartSession(partyID, session.SessionTypeProblemSolving)
	require.NoError(t, err)
	require.NoError(t, e.RecordProgress(sessionID, 15, 0.8, nil))
	clock.Advance(30 * time.Minute)
	_, err = e.EndSession(partyID)
	require.NoError(t, err)

	// Every session participant receives the full session reward.
	assert.Equal(t, 307, fwd.awards["leader"])
	assert.Equal(t, 307, fwd.awards["buddy"])

	_, err = e.Enqueue("leader", battle.TypeSpeedSolve, 200)
	require.NoError(t, err)
	battleID, err := e.Enqueue("buddy", battle.TypeSpeedSolve, 200)
	require.NoError(t, err)
	_, err = e.CompleteBattle(battleID, "leader",
		map[shared.StudentID]float64{"leader": 95, "buddy": 78}, nil)
	require.NoError(t, err)

	assert.Equal(t, 307+155, fwd.awards["leader"])
	assert.Equal(t, 307+50, fwd.awards["buddy"])
}
