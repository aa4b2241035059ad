package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/edquest-hub/edquest-arena/internal/domain/ranking"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrLeaderboardEmpty is returned when the leaderboard has no entries.
	ErrLeaderboardEmpty = errors.New("leaderboard_cache: leaderboard is empty")

	// ErrNotRanked is returned when the competitor is not in the leaderboard.
	ErrNotRanked = errors.New("leaderboard_cache: competitor not ranked")
)

// Key patterns for the leaderboard cache.
const (
	// keyCompetitorRanks is the sorted set of rank points by student ID.
	keyCompetitorRanks = "arena:lb:competitors"

	// keyCompetitorInfo is the hash of standing details by student ID.
	keyCompetitorInfo = "arena:lb:competitors:info"

	// keyGuildRanks is the sorted set of accumulated XP by guild ID.
	keyGuildRanks = "arena:lb:guilds"

	// keyGuildInfo is the hash of standing details by guild ID.
	keyGuildInfo = "arena:lb:guilds:info"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache serves competitor and guild rankings from Redis sorted
// sets, so dashboard reads never take the engine lock.
//
// Architecture:
//   - Sorted set "arena:lb:competitors" maps studentID -> rank points
//   - Hash "arena:lb:competitors:info" maps studentID -> standing JSON
//   - Same pair for guilds, keyed by guild ID with XP as score
//
// The cache is rebuilt wholesale by the scheduler from engine standings;
// reads between rebuilds may lag by one rebuild interval.
type LeaderboardCache struct {
	cache *Cache
}

// NewLeaderboardCache creates a leaderboard cache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

// RebuildCompetitors atomically replaces the competitor leaderboard.
func (lc *LeaderboardCache) RebuildCompetitors(ctx context.Context, standings []ranking.CompetitorStanding) error {
	client := lc.cache.Client()

	pipe := client.TxPipeline()
	pipe.Del(ctx, keyCompetitorRanks, keyCompetitorInfo)

	for _, s := range standings {
		id := s.StudentID.String()
		pipe.ZAdd(ctx, keyCompetitorRanks, redis.Z{
			Score:  float64(s.RankPoints),
			Member: id,
		})
		data, err := marshalStanding(s)
		if err != nil {
			return err
		}
		pipe.HSet(ctx, keyCompetitorInfo, id, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard_cache: rebuild competitors: %w", err)
	}
	return nil
}

// RebuildGuilds atomically replaces the guild leaderboard.
func (lc *LeaderboardCache) RebuildGuilds(ctx context.Context, standings []ranking.GuildStanding) error {
	client := lc.cache.Client()

	pipe := client.TxPipeline()
	pipe.Del(ctx, keyGuildRanks, keyGuildInfo)

	for _, s := range standings {
		id := s.GuildID.String()
		pipe.ZAdd(ctx, keyGuildRanks, redis.Z{
			Score:  float64(s.XP),
			Member: id,
		})
		data, err := marshalGuildStanding(s)
		if err != nil {
			return err
		}
		pipe.HSet(ctx, keyGuildInfo, id, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard_cache: rebuild guilds: %w", err)
	}
	return nil
}

// TopCompetitors returns the top n competitors by rank points.
func (lc *LeaderboardCache) TopCompetitors(ctx context.Context, n int) ([]ranking.CompetitorStanding, error) {
	if n <= 0 {
		n = 10
	}

	client := lc.cache.Client()
	ids, err := client.ZRevRange(ctx, keyCompetitorRanks, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: top competitors: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrLeaderboardEmpty
	}

	raw, err := client.HMGet(ctx, keyCompetitorInfo, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: fetch standings: %w", err)
	}

	standings := make([]ranking.CompetitorStanding, 0, len(ids))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		standing, err := unmarshalStanding([]byte(s))
		if err != nil {
			return nil, err
		}
		standing.Rank = len(standings) + 1
		standings = append(standings, standing)
	}
	return standings, nil
}

// TopGuilds returns the top n guilds by accumulated XP.
func (lc *LeaderboardCache) TopGuilds(ctx context.Context, n int) ([]ranking.GuildStanding, error) {
	if n <= 0 {
		n = 10
	}

	client := lc.cache.Client()
	ids, err := client.ZRevRange(ctx, keyGuildRanks, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: top guilds: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrLeaderboardEmpty
	}

	raw, err := client.HMGet(ctx, keyGuildInfo, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: fetch standings: %w", err)
	}

	standings := make([]ranking.GuildStanding, 0, len(ids))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		standing, err := unmarshalGuildStanding([]byte(s))
		if err != nil {
			return nil, err
		}
		standing.Rank = len(standings) + 1
		standings = append(standings, standing)
	}
	return standings, nil
}

// RankOf returns a competitor's 1-based position in the ranked ladder.
func (lc *LeaderboardCache) RankOf(ctx context.Context, studentID shared.StudentID) (int64, error) {
	rank, err := lc.cache.Client().ZRevRank(ctx, keyCompetitorRanks, studentID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotRanked
		}
		return 0, fmt.Errorf("leaderboard_cache: rank of %s: %w", studentID, err)
	}
	return rank + 1, nil
}

// CompetitorCount returns the number of ranked competitors.
func (lc *LeaderboardCache) CompetitorCount(ctx context.Context) (int64, error) {
	return lc.cache.Client().ZCard(ctx, keyCompetitorRanks).Result()
}
