// Package engine implements the competitive and collaborative social engine:
// guild and party membership, study-session rewards, the matchmaking queue,
// battle lifecycle, ranking, and tournament brackets.
//
// The engine is the single owner of all mutable state. Every entity lives in
// its registry, keyed by identifier; cross-entity references are identifier
// lookups, never direct pointers. All operations are serialized behind one
// mutex, so no caller ever observes a partially updated entity.
package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edquest-hub/edquest-arena/internal/domain/battle"
	"github.com/edquest-hub/edquest-arena/internal/domain/guild"
	"github.com/edquest-hub/edquest-arena/internal/domain/ranking"
	"github.com/edquest-hub/edquest-arena/internal/domain/session"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
	"github.com/edquest-hub/edquest-arena/internal/domain/tournament"
	"github.com/edquest-hub/edquest-arena/pkg/logger"
)

// EventBus is the engine's publishing side of the event infrastructure.
type EventBus interface {
	Publish(event shared.Event) error
}

// RewardForwarder pushes battle and session XP to the platform's external
// skill-tree engine. Forwarding is optional and feature-flagged; the engine
// works without it.
type RewardForwarder interface {
	ForwardXP(studentID shared.StudentID, amount int, source string)
}

// Config configures a new engine.
type Config struct {
	// CompetitorTiers is the 18-tier ladder for ranked play.
	CompetitorTiers *ranking.TierTable

	// GuildTiers is the 8-tier ladder over accumulated guild XP.
	GuildTiers *ranking.TierTable

	// Rand drives bracket seeding. Defaults to a time-seeded source.
	Rand *rand.Rand

	// Bus receives domain events. Optional.
	Bus EventBus

	// Forwarder receives XP awards for the skill-tree engine. Optional.
	Forwarder RewardForwarder

	// Clock supplies the current time. Defaults to time.Now.
	Clock func() time.Time

	// Logger for operational logging. Defaults to the package default.
	Logger *logger.Logger
}

// Engine owns the entity registry and the matchmaking queue.
type Engine struct {
	mu sync.Mutex

	competitorTiers *ranking.TierTable
	guildTiers      *ranking.TierTable
	rng             *rand.Rand
	bus             EventBus
	forwarder       RewardForwarder
	clock           func() time.Time
	log             *logger.Logger

	// Entity registry: the single source of truth, keyed by identifier.
	guilds      map[shared.GuildID]*guild.Guild
	parties     map[shared.PartyID]*guild.StudyParty
	sessions    map[shared.SessionID]*session.StudySession
	competitors map[shared.StudentID]*ranking.CompetitorProfile
	battles     map[shared.BattleID]*battle.Battle
	tournaments map[shared.TournamentID]*tournament.Tournament

	// Matchmaking queue, in insertion order.
	queue []battle.QueueEntry

	// inBattle marks competitors with an open battle. A student can never
	// hold a queue entry and this flag at the same time.
	inBattle map[shared.StudentID]shared.BattleID

	// Reverse membership indexes for the one-guild/one-party rule.
	memberGuild map[shared.StudentID]shared.GuildID
	memberParty map[shared.StudentID]shared.PartyID
}

// New constructs an engine. A nil or malformed tier table is a configuration
// error; it is surfaced here, at startup, never per call.
func New(cfg Config) (*Engine, error) {
	if cfg.CompetitorTiers == nil {
		cfg.CompetitorTiers = ranking.DefaultCompetitorTiers()
	}
	if cfg.GuildTiers == nil {
		cfg.GuildTiers = ranking.DefaultGuildTiers()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	return &Engine{
		competitorTiers: cfg.CompetitorTiers,
		guildTiers:      cfg.GuildTiers,
		rng:             cfg.Rand,
		bus:             cfg.Bus,
		forwarder:       cfg.Forwarder,
		clock:           cfg.Clock,
		log:             cfg.Logger,
		guilds:          make(map[shared.GuildID]*guild.Guild),
		parties:         make(map[shared.PartyID]*guild.StudyParty),
		sessions:        make(map[shared.SessionID]*session.StudySession),
		competitors:     make(map[shared.StudentID]*ranking.CompetitorProfile),
		battles:         make(map[shared.BattleID]*battle.Battle),
		tournaments:     make(map[shared.TournamentID]*tournament.Tournament),
		inBattle:        make(map[shared.StudentID]shared.BattleID),
		memberGuild:     make(map[shared.StudentID]shared.GuildID),
		memberParty:     make(map[shared.StudentID]shared.PartyID),
	}, nil
}

// publish fans events out to the bus after the registry lock is released, so
// slow or reentrant handlers can never block an engine operation.
func (e *Engine) publish(events ...shared.Event) {
	if e.bus == nil {
		return
	}
	for _, ev := range events {
		if err := e.bus.Publish(ev); err != nil {
			e.log.Warn("event publish failed",
				logger.String("event_type", string(ev.EventType())),
				logger.Err(err))
		}
	}
}

// forwardXP hands an XP award to the external skill-tree engine, when wired.
func (e *Engine) forwardXP(studentID shared.StudentID, amount int, source string) {
	if e.forwarder == nil {
		return
	}
	e.forwarder.ForwardXP(studentID, amount, source)
}

// ensureCompetitor lazily creates a ranked profile. Callers hold e.mu.
func (e *Engine) ensureCompetitor(studentID shared.StudentID) *ranking.CompetitorProfile {
	if p, ok := e.competitors[studentID]; ok {
		return p
	}
	p, _ := ranking.NewCompetitorProfile(studentID, e.competitorTiers, e.clock())
	e.competitors[studentID] = p
	return p
}

// rankPointsOf resolves current rank points for matchmaking compatibility.
// Unregistered competitors sit at zero points. Callers hold e.mu.
func (e *Engine) rankPointsOf(studentID shared.StudentID) shared.RankPoints {
	if p, ok := e.competitors[studentID]; ok {
		return p.RankPoints
	}
	return 0
}

// queueIndexOf returns the queue position of a student, or -1. Callers hold e.mu.
func (e *Engine) queueIndexOf(studentID shared.StudentID) int {
	for i := range e.queue {
		if e.queue[i].StudentID == studentID {
			return i
		}
	}
	return -1
}

// ID generation. Entities are keyed by UUID strings minted here.

func newGuildID() shared.GuildID           { return shared.GuildID(uuid.NewString()) }
func newPartyID() shared.PartyID           { return shared.PartyID(uuid.NewString()) }
func newSessionID() shared.SessionID       { return shared.SessionID(uuid.NewString()) }
func newBattleID() shared.BattleID         { return shared.BattleID(uuid.NewString()) }
func newTournamentID() shared.TournamentID { return shared.TournamentID(uuid.NewString()) }
func newMatchID() shared.MatchID           { return shared.MatchID(uuid.NewString()) }
