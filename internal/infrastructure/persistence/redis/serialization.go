package redis

import (
	"encoding/json"
	"fmt"

	"github.com/edquest-hub/edquest-arena/internal/domain/ranking"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STANDING SERIALIZATION
// ══════════════════════════════════════════════════════════════════════════════

// competitorStandingDTO is the stored form of a competitor standing. The rank
// is not stored: it is derived from the sorted-set position on read.
type competitorStandingDTO struct {
	StudentID  string `json:"student_id"`
	RankPoints int    `json:"rank_points"`
	Tier       string `json:"tier"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
}

type guildStandingDTO struct {
	GuildID string `json:"guild_id"`
	Name    string `json:"name"`
	XP      int    `json:"xp"`
	Tier    string `json:"tier"`
	Members int    `json:"members"`
}

func marshalStanding(s ranking.CompetitorStanding) ([]byte, error) {
	dto := competitorStandingDTO{
		StudentID:  string(s.StudentID),
		RankPoints: int(s.RankPoints),
		Tier:       s.Tier,
		Wins:       s.Wins,
		Losses:     s.Losses,
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return nil, fmt.Errorf("marshal competitor standing: %w", err)
	}
	return data, nil
}

func unmarshalStanding(data []byte) (ranking.CompetitorStanding, error) {
	var dto competitorStandingDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return ranking.CompetitorStanding{}, fmt.Errorf("unmarshal competitor standing: %w", err)
	}
	return ranking.CompetitorStanding{
		StudentID:  shared.StudentID(dto.StudentID),
		RankPoints: shared.RankPoints(dto.RankPoints),
		Tier:       dto.Tier,
		Wins:       dto.Wins,
		Losses:     dto.Losses,
	}, nil
}

func marshalGuildStanding(s ranking.GuildStanding) ([]byte, error) {
	dto := guildStandingDTO{
		GuildID: string(s.GuildID),
		Name:    s.Name,
		XP:      int(s.XP),
		Tier:    s.Tier,
		Members: s.Members,
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return nil, fmt.Errorf("marshal guild standing: %w", err)
	}
	return data, nil
}

func unmarshalGuildStanding(data []byte) (ranking.GuildStanding, error) {
	var dto guildStandingDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return ranking.GuildStanding{}, fmt.Errorf("unmarshal guild standing: %w", err)
	}
	return ranking.GuildStanding{
		GuildID: shared.GuildID(dto.GuildID),
		Name:    dto.Name,
		XP:      shared.XP(dto.XP),
		Tier:    dto.Tier,
		Members: dto.Members,
	}, nil
}
