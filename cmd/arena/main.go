// Package main is the entry point for the EdQuest arena server.
//
// The arena hosts the platform's competitive and collaborative loop:
// guild and party membership, study sessions with XP rewards, rank-based
// matchmaking, battles, and tournaments. State lives in the in-memory
// engine; postgres keeps durable snapshots and the event log, redis
// serves cached leaderboards, and the skill-tree engine receives XP
// awards over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/edquest-hub/edquest-arena/config"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
	"github.com/edquest-hub/edquest-arena/internal/engine"
	"github.com/edquest-hub/edquest-arena/internal/infrastructure/external/skilltree"
	"github.com/edquest-hub/edquest-arena/internal/infrastructure/messaging"
	"github.com/edquest-hub/edquest-arena/internal/infrastructure/persistence/postgres"
	"github.com/edquest-hub/edquest-arena/internal/infrastructure/persistence/redis"
	"github.com/edquest-hub/edquest-arena/internal/infrastructure/scheduler"
	"github.com/edquest-hub/edquest-arena/internal/infrastructure/scheduler/jobs"
	arenahttp "github.com/edquest-hub/edquest-arena/internal/interface/http"
	"github.com/edquest-hub/edquest-arena/internal/interface/http/handlers"
	"github.com/edquest-hub/edquest-arena/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	slogger := setupSlog(cfg)
	appLog := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})

	slogger.Info("starting EdQuest arena",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRES (snapshots + event log)
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		slogger.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slogger.Info("database schema is up to date")

	snapshotRepo := postgres.NewSnapshotRepository(dbConn)
	eventLog := postgres.NewEventLogRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (leaderboard cache, optional)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var leaderboards *redis.LeaderboardCache

	if !cfg.Redis.Disabled {
		slogger.Info("connecting to redis...")
		redisCache, err = connectRedis(cfg.Redis)
		if err != nil {
			slogger.Warn("redis unavailable, leaderboard caching disabled", "error", err)
		} else {
			defer redisCache.Close()
			leaderboards = redis.NewLeaderboardCache(redisCache)
			slogger.Info("redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS + DISPATCHER
	// ─────────────────────────────────────────────────────────────────────────
	var bus shared.EventBus
	if redisCache != nil {
		bus, err = messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client: redisCache.Client(),
			Logger: slogger,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis event bus: %w", err)
		}
	} else {
		busCfg := messaging.DefaultInMemoryEventBusConfig()
		busCfg.Logger = slogger
		bus = messaging.NewInMemoryEventBus(busCfg)
	}
	defer func() {
		slogger.Info("closing event bus...")
		_ = bus.Close()
	}()

	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{
		Bus:    bus,
		Retry:  messaging.DefaultRetryConfig(),
		Logger: slogger,
	})
	dispatcher.Use(messaging.RecoveryMiddleware(slogger))
	dispatcher.Use(messaging.LoggingMiddleware(slogger))

	// Persist every domain event to the postgres event log.
	appendToLog := func(event shared.Event) error {
		logCtx, logCancel := context.WithTimeout(context.Background(), cfg.Database.QueryTimeout)
		defer logCancel()
		return eventLog.Append(logCtx, event)
	}
	for _, eventType := range loggedEventTypes {
		if err := dispatcher.Register(eventType, "event_log", appendToLog); err != nil {
			return fmt.Errorf("failed to register event log handler: %w", err)
		}
	}
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. SKILL-TREE FORWARDER (optional, feature-flagged)
	// ─────────────────────────────────────────────────────────────────────────
	var forwarder engine.RewardForwarder
	var skilltreeForwarder *skilltree.Forwarder

	if cfg.SkillTree.BaseURL != "" {
		client := skilltree.NewClient(skilltree.ClientConfigFromApp(cfg.SkillTree, slogger))
		skilltreeForwarder = skilltree.NewForwarder(client, cfg.Features, slogger, skilltree.ForwarderConfig{})
		forwarder = skilltreeForwarder
		slogger.Info("skill-tree forwarder enabled", "base_url", cfg.SkillTree.BaseURL)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ENGINE (restore from the latest snapshot when one exists)
	// ─────────────────────────────────────────────────────────────────────────
	engCfg := engine.Config{
		Bus:       bus,
		Forwarder: forwarder,
		Logger:    appLog,
	}
	if cfg.Arena.BracketSeed != 0 {
		engCfg.Rand = rand.New(rand.NewSource(cfg.Arena.BracketSeed))
	}

	eng, err := engine.New(engCfg)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	snap, err := snapshotRepo.Load(ctx)
	switch {
	case err == nil:
		eng.ImportSnapshot(snap)
		slogger.Info("engine state restored from snapshot", "taken_at", snap.TakenAt)
	case shared.IsNotFound(err):
		slogger.Info("no snapshot found, starting with empty registry")
	default:
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. SCHEDULER (leaderboard rebuilds + periodic snapshots)
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(scheduler.Config{
			Logger:            slogger,
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			JobTimeout:        cfg.Scheduler.JobTimeout,
		})

		if leaderboards != nil {
			rebuild := jobs.NewRebuildLeaderboardJob(eng, leaderboards, slogger, jobs.RebuildLeaderboardConfig{})
			if err := sched.Register(rebuild, scheduler.NewIntervalSchedule(cfg.Scheduler.RebuildLeaderboardInterval)); err != nil {
				return fmt.Errorf("failed to register leaderboard job: %w", err)
			}
		}

		if cfg.Features.IsEnabled(config.FeatureRegistrySnapshots, nil) {
			snapshotJob := jobs.NewSnapshotRegistryJob(eng, snapshotRepo, slogger)
			if err := sched.Register(snapshotJob, scheduler.NewIntervalSchedule(cfg.Scheduler.SnapshotInterval)); err != nil {
				return fmt.Errorf("failed to register snapshot job: %w", err)
			}
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			slogger.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		health.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}

	deps := arenahttp.Dependencies{
		Engine: eng,
		Flags:  cfg.Features,
		Health: health,
		Logger: appLog,
	}
	if leaderboards != nil {
		deps.Leaderboards = leaderboards
	}
	if sched != nil {
		deps.Jobs = sched
	}

	httpCfg := arenahttp.ConfigFromApp(cfg.HTTP)
	httpCfg.DefaultRankRange = cfg.Arena.DefaultRankRange

	server := arenahttp.NewServer(httpCfg, deps)
	serverErr := server.StartAsync()
	slogger.Info("EdQuest arena is running", "address", server.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		slogger.Info("received shutdown signal", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slogger.Error("http server shutdown failed", "error", err)
	}

	if skilltreeForwarder != nil {
		slogger.Info("draining skill-tree forwarder...")
		skilltreeForwarder.Close()
	}

	// Final snapshot so the registry survives the restart.
	if err := snapshotRepo.Save(shutdownCtx, eng.ExportSnapshot()); err != nil {
		slogger.Error("failed to save final snapshot", "error", err)
	} else {
		slogger.Info("final snapshot saved")
	}

	slogger.Info("shutdown completed successfully")
	return nil
}

// loggedEventTypes are the domain events persisted to the postgres event
// log for auditing and offline analysis.
var loggedEventTypes = []shared.EventType{
	shared.EventGuildCreated,
	shared.EventGuildMemberJoined,
	shared.EventGuildMemberLeft,
	shared.EventGuildOfficerNamed,
	shared.EventGuildTierChanged,
	shared.EventGuildXPAwarded,
	shared.EventPartyCreated,
	shared.EventPartyJoined,
	shared.EventPartyLeft,
	shared.EventPartyDisbanded,
	shared.EventSessionStarted,
	shared.EventSessionEnded,
	shared.EventCompetitorQueued,
	shared.EventCompetitorWithdrawn,
	shared.EventMatchFound,
	shared.EventBattleCreated,
	shared.EventBattleCompleted,
	shared.EventRankPointsChanged,
	shared.EventRankTierChanged,
	shared.EventTournamentCreated,
	shared.EventTournamentJoined,
	shared.EventBracketGenerated,
	shared.EventTournamentCompleted,
}

// setupSlog configures structured logging for the infrastructure layer.
func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	switch cfg.Observability.LogLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

// connectRedis builds a cache connection from the application config,
// preferring the URL form when present.
func connectRedis(cfg config.RedisConfig) (*redis.Cache, error) {
	if cfg.URL != "" {
		return redis.NewCacheFromURL(cfg.URL)
	}

	rc := redis.DefaultConfig()
	if cfg.Host != "" {
		rc.Host = cfg.Host
	}
	if cfg.Port != 0 {
		rc.Port = cfg.Port
	}
	rc.Password = cfg.Password
	rc.DB = cfg.DB
	if cfg.PoolSize > 0 {
		rc.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		rc.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		rc.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		rc.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		rc.WriteTimeout = cfg.WriteTimeout
	}
	return redis.NewCache(rc)
}
