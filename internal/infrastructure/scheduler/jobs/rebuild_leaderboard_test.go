package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edquest-hub/edquest-arena/internal/domain/ranking"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

type fakeStandingsSource struct {
	competitors []ranking.CompetitorStanding
	guilds      []ranking.GuildStanding

	competitorDepth int
	guildDepth      int
}

func (f *fakeStandingsSource) TopCompetitors(n int) []ranking.CompetitorStanding {
	f.competitorDepth = n
	return f.competitors
}

func (f *fakeStandingsSource) TopGuilds(n int) []ranking.GuildStanding {
	f.guildDepth = n
	return f.guilds
}

type fakeLeaderboardStore struct {
	competitors []ranking.CompetitorStanding
	guilds      []ranking.GuildStanding
	failGuilds  bool
}

func (f *fakeLeaderboardStore) RebuildCompetitors(_ context.Context, standings []ranking.CompetitorStanding) error {
	f.competitors = standings
	return nil
}

func (f *fakeLeaderboardStore) RebuildGuilds(_ context.Context, standings []ranking.GuildStanding) error {
	if f.failGuilds {
		return errors.New("redis unavailable")
	}
	f.guilds = standings
	return nil
}

func TestRebuildLeaderboardJob_Run(t *testing.T) {
	source := &fakeStandingsSource{
		competitors: []ranking.CompetitorStanding{
			{Rank: 1, StudentID: shared.StudentID("alice"), RankPoints: 340, Tier: "Silver I"},
			{Rank: 2, StudentID: shared.StudentID("bob"), RankPoints: 120, Tier: "Bronze II"},
		},
		guilds: []ranking.GuildStanding{
			{Rank: 1, GuildID: shared.GuildID("g1"), Name: "Night Owls", XP: 900},
		},
	}
	store := &fakeLeaderboardStore{}

	job := NewRebuildLeaderboardJob(source, store, nil, RebuildLeaderboardConfig{
		CompetitorDepth: 25,
		GuildDepth:      10,
	})

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 25, source.competitorDepth)
	assert.Equal(t, 10, source.guildDepth)
	assert.Len(t, store.competitors, 2)
	assert.Len(t, store.guilds, 1)

	stats := job.LastRebuildStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Competitors)
	assert.Equal(t, 1, stats.Guilds)
}

func TestRebuildLeaderboardJob_StoreFailure(t *testing.T) {
	source := &fakeStandingsSource{}
	store := &fakeLeaderboardStore{failGuilds: true}

	job := NewRebuildLeaderboardJob(source, store, nil, DefaultRebuildLeaderboardConfig())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rebuild guild leaderboard")
	assert.Nil(t, job.LastRebuildStats())
}
