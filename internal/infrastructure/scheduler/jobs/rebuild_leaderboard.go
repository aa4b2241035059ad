// Package jobs contains the arena's scheduled background jobs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/edquest-hub/edquest-arena/internal/domain/ranking"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// StandingsSource produces current leaderboard standings. The engine
// satisfies this.
type StandingsSource interface {
	TopCompetitors(n int) []ranking.CompetitorStanding
	TopGuilds(n int) []ranking.GuildStanding
}

// LeaderboardStore receives rebuilt standings. The Redis leaderboard cache
// satisfies this.
type LeaderboardStore interface {
	RebuildCompetitors(ctx context.Context, standings []ranking.CompetitorStanding) error
	RebuildGuilds(ctx context.Context, standings []ranking.GuildStanding) error
}

// RebuildLeaderboardJob refreshes the cached competitor and guild ladders
// from the live registry so leaderboard reads never block the engine.
type RebuildLeaderboardJob struct {
	source StandingsSource
	store  LeaderboardStore
	logger *slog.Logger

	config RebuildLeaderboardConfig

	lastStats atomic.Value // *RebuildStats
}

// RebuildLeaderboardConfig contains configuration for the rebuild job.
type RebuildLeaderboardConfig struct {
	// CompetitorDepth is how many competitor rows to cache.
	CompetitorDepth int

	// GuildDepth is how many guild rows to cache.
	GuildDepth int
}

// DefaultRebuildLeaderboardConfig returns sensible defaults.
func DefaultRebuildLeaderboardConfig() RebuildLeaderboardConfig {
	return RebuildLeaderboardConfig{
		CompetitorDepth: 100,
		GuildDepth:      50,
	}
}

// RebuildStats contains statistics from a rebuild run.
type RebuildStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Competitors int
	Guilds      int
}

// NewRebuildLeaderboardJob creates a new rebuild leaderboard job.
func NewRebuildLeaderboardJob(
	source StandingsSource,
	store LeaderboardStore,
	logger *slog.Logger,
	config RebuildLeaderboardConfig,
) *RebuildLeaderboardJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.CompetitorDepth <= 0 {
		config.CompetitorDepth = 100
	}
	if config.GuildDepth <= 0 {
		config.GuildDepth = 50
	}

	return &RebuildLeaderboardJob{
		source: source,
		store:  store,
		logger: logger,
		config: config,
	}
}

// Name returns the job name.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "Refreshes the cached competitor and guild leaderboards from the registry"
}

// Run executes the rebuild job.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	startedAt := time.Now()

	competitors := j.source.TopCompetitors(j.config.CompetitorDepth)
	guilds := j.source.TopGuilds(j.config.GuildDepth)

	if err := j.store.RebuildCompetitors(ctx, competitors); err != nil {
		return fmt.Errorf("rebuild competitor leaderboard: %w", err)
	}
	if err := j.store.RebuildGuilds(ctx, guilds); err != nil {
		return fmt.Errorf("rebuild guild leaderboard: %w", err)
	}

	stats := &RebuildStats{
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
		Competitors: len(competitors),
		Guilds:      len(guilds),
	}
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	j.lastStats.Store(stats)

	j.logger.Info("leaderboards rebuilt",
		"competitors", stats.Competitors,
		"guilds", stats.Guilds,
		"duration", stats.Duration.String(),
	)
	return nil
}

// LastRebuildStats returns statistics from the last rebuild.
func (j *RebuildLeaderboardJob) LastRebuildStats() *RebuildStats {
	stats := j.lastStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RebuildStats)
}
