package ranking

import (
	"sort"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// CompetitorStanding is one leaderboard row for ranked play.
type CompetitorStanding struct {
	Rank       int
	StudentID  shared.StudentID
	RankPoints shared.RankPoints
	Tier       string
	Wins       int
	Losses     int
}

// GuildStanding is one leaderboard row for guilds.
type GuildStanding struct {
	Rank    int
	GuildID shared.GuildID
	Name    string
	XP      shared.XP
	Tier    string
	Members int
}

// TopCompetitors orders profiles by rank points descending, ties broken by
// lowest student ID so the ordering is deterministic, and returns the first n.
func TopCompetitors(profiles []*CompetitorProfile, n int) []CompetitorStanding {
	sorted := make([]*CompetitorProfile, len(profiles))
	copy(sorted, profiles)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].RankPoints != sorted[j].RankPoints {
			return sorted[i].RankPoints > sorted[j].RankPoints
		}
		return sorted[i].StudentID < sorted[j].StudentID
	})

	if n < 0 {
		n = 0
	}
	if n > len(sorted) {
		n = len(sorted)
	}

	standings := make([]CompetitorStanding, 0, n)
	for i := 0; i < n; i++ {
		p := sorted[i]
		standings = append(standings, CompetitorStanding{
			Rank:       i + 1,
			StudentID:  p.StudentID,
			RankPoints: p.RankPoints,
			Tier:       p.Tier,
			Wins:       p.Wins,
			Losses:     p.Losses,
		})
	}
	return standings
}

// GuildRow is the minimal guild projection the leaderboard needs. The guild
// entity itself lives in the guild package; referencing it here by value
// keeps the two domain packages decoupled.
type GuildRow struct {
	GuildID shared.GuildID
	Name    string
	XP      shared.XP
	Tier    string
	Members int
}

// TopGuilds orders guilds by accumulated XP descending, ties broken by lowest
// guild ID, and returns the first n.
func TopGuilds(rows []GuildRow, n int) []GuildStanding {
	sorted := make([]GuildRow, len(rows))
	copy(sorted, rows)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].XP != sorted[j].XP {
			return sorted[i].XP > sorted[j].XP
		}
		return sorted[i].GuildID < sorted[j].GuildID
	})

	if n < 0 {
		n = 0
	}
	if n > len(sorted) {
		n = len(sorted)
	}

	standings := make([]GuildStanding, 0, n)
	for i := 0; i < n; i++ {
		g := sorted[i]
		standings = append(standings, GuildStanding{
			Rank:    i + 1,
			GuildID: g.GuildID,
			Name:    g.Name,
			XP:      g.XP,
			Tier:    g.Tier,
			Members: g.Members,
		})
	}
	return standings
}
