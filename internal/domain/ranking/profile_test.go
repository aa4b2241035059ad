package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

func newTestProfile(t *testing.T, id string) *CompetitorProfile {
	t.Helper()
	p, err := NewCompetitorProfile(shared.StudentID(id), DefaultCompetitorTiers(), time.Now())
	require.NoError(t, err)
	return p
}

func TestNewCompetitorProfile(t *testing.T) {
	p := newTestProfile(t, "alice")
	assert.Equal(t, TierBronzeIII, p.Tier)
	assert.Equal(t, shared.RankPoints(0), p.RankPoints)
	assert.Zero(t, p.TotalBattles)

	_, err := NewCompetitorProfile("", DefaultCompetitorTiers(), time.Now())
	assert.ErrorIs(t, err, ErrInvalidStudentID)
}

func TestRecordWin_StreakAndTier(t *testing.T) {
	tiers := DefaultCompetitorTiers()
	p := newTestProfile(t, "alice")

	for i := 0; i < 4; i++ {
		p.RecordWin(32, 90, tiers)
	}
	assert.Equal(t, 4, p.Wins)
	assert.Equal(t, 4, p.CurrentStreak)
	assert.Equal(t, 4, p.BestStreak)
	assert.Equal(t, shared.RankPoints(128), p.RankPoints)
	assert.Equal(t, TierBronzeII, p.Tier)

	p.RecordLoss(15, 40, tiers)
	assert.Equal(t, 0, p.CurrentStreak)
	assert.Equal(t, 4, p.BestStreak)
	assert.Equal(t, shared.RankPoints(113), p.RankPoints)
}

func TestRecordLoss_PointsFloorAtZero(t *testing.T) {
	tiers := DefaultCompetitorTiers()
	p := newTestProfile(t, "bob")

	p.RecordLoss(15, 10, tiers)
	assert.Equal(t, shared.RankPoints(0), p.RankPoints)
	assert.Equal(t, TierBronzeIII, p.Tier)
}

func TestRecordScore_Statistics(t *testing.T) {
	tiers := DefaultCompetitorTiers()
	p := newTestProfile(t, "carol")

	p.RecordWin(32, 80, tiers)
	p.RecordLoss(15, 60, tiers)
	p.RecordWin(32, 100, tiers)

	assert.Equal(t, 100.0, p.BestScore)
	assert.InDelta(t, 80.0, p.AverageScore, 1e-9)
	assert.Equal(t, 3, p.TotalBattles)
	assert.InDelta(t, 2.0/3.0, p.WinRate(), 1e-9)
}

func TestTopCompetitors_Ordering(t *testing.T) {
	tiers := DefaultCompetitorTiers()
	a := newTestProfile(t, "a")
	b := newTestProfile(t, "b")
	c := newTestProfile(t, "c")

	a.RecordWin(100, 50, tiers)
	c.RecordWin(100, 50, tiers) // same points as a: tie broken by lowest ID
	b.RecordWin(300, 50, tiers)

	standings := TopCompetitors([]*CompetitorProfile{c, b, a}, 10)
	require.Len(t, standings, 3)
	assert.Equal(t, shared.StudentID("b"), standings[0].StudentID)
	assert.Equal(t, shared.StudentID("a"), standings[1].StudentID)
	assert.Equal(t, shared.StudentID("c"), standings[2].StudentID)
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, 3, standings[2].Rank)

	top1 := TopCompetitors([]*CompetitorProfile{c, b, a}, 1)
	require.Len(t, top1, 1)
	assert.Equal(t, shared.StudentID("b"), top1[0].StudentID)
}

func TestTopGuilds_Ordering(t *testing.T) {
	rows := []GuildRow{
		{GuildID: "g2", Name: "Beta", XP: 500},
		{GuildID: "g1", Name: "Alpha", XP: 500},
		{GuildID: "g3", Name: "Gamma", XP: 900},
	}

	standings := TopGuilds(rows, 2)
	require.Len(t, standings, 2)
	assert.Equal(t, shared.GuildID("g3"), standings[0].GuildID)
	assert.Equal(t, shared.GuildID("g1"), standings[1].GuildID)
}
