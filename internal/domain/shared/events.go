// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the social engine.
const (
	// Guild events
	EventGuildCreated       EventType = "guild.created"
	EventGuildMemberJoined  EventType = "guild.member_joined"
	EventGuildMemberLeft    EventType = "guild.member_left"
	EventGuildOfficerNamed  EventType = "guild.officer_promoted"
	EventGuildTierChanged   EventType = "guild.tier_changed"
	EventGuildXPAwarded     EventType = "guild.xp_awarded"

	// Party events
	EventPartyCreated   EventType = "party.created"
	EventPartyJoined    EventType = "party.member_joined"
	EventPartyLeft      EventType = "party.member_left"
	EventPartyDisbanded EventType = "party.disbanded"

	// Study session events
	EventSessionStarted EventType = "session.started"
	EventSessionEnded   EventType = "session.ended"

	// Matchmaking events
	EventCompetitorQueued    EventType = "matchmaking.queued"
	EventCompetitorWithdrawn EventType = "matchmaking.withdrawn"
	EventMatchFound          EventType = "matchmaking.match_found"

	// Battle events
	EventBattleCreated   EventType = "battle.created"
	EventBattleCompleted EventType = "battle.completed"

	// Ranking events
	EventRankPointsChanged EventType = "ranking.points_changed"
	EventRankTierChanged   EventType = "ranking.tier_changed"

	// Tournament events
	EventTournamentCreated   EventType = "tournament.created"
	EventTournamentJoined    EventType = "tournament.registered"
	EventBracketGenerated    EventType = "tournament.bracket_generated"
	EventTournamentCompleted EventType = "tournament.completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a single domain event.
type EventHandler func(event Event) error

// EventBus distributes domain events to subscribed handlers.
type EventBus interface {
	// Publish sends an event to all subscribed handlers.
	Publish(event Event) error

	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error

	// Close gracefully shuts down the bus.
	Close() error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// Payload implements Event interface. A bare base event carries no data
// beyond its envelope; concrete event types shadow this with their fields.
func (e BaseEvent) Payload() map[string]interface{} {
	return map[string]interface{}{}
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Battle Events
// ═══════════════════════════════════════════════════════════════════════════

// MatchFoundEvent is emitted when the matchmaking sweep pairs two competitors.
type MatchFoundEvent struct {
	BaseEvent
	BattleID   string   `json:"battle_id"`
	BattleType string   `json:"battle_type"`
	Players    []string `json:"players"`
}

// Payload implements Event interface.
func (e MatchFoundEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"battle_id":   e.BattleID,
		"battle_type": e.BattleType,
		"players":     e.Players,
	}
}

// NewMatchFoundEvent creates a new MatchFoundEvent.
func NewMatchFoundEvent(battleID, battleType string, players []string) MatchFoundEvent {
	return MatchFoundEvent{
		BaseEvent:  NewBaseEvent(EventMatchFound, battleID),
		BattleID:   battleID,
		BattleType: battleType,
		Players:    players,
	}
}

// BattleCompletedEvent is emitted when a battle resolves into rewards.
type BattleCompletedEvent struct {
	BaseEvent
	BattleID     string `json:"battle_id"`
	WinnerID     string `json:"winner_id"`
	WinnerXP     int    `json:"winner_xp"`
	LoserXP      int    `json:"loser_xp"`
	PointsGained int    `json:"points_gained"`
	PointsLost   int    `json:"points_lost"`
}

// Payload implements Event interface.
func (e BattleCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"battle_id":     e.BattleID,
		"winner_id":     e.WinnerID,
		"winner_xp":     e.WinnerXP,
		"loser_xp":      e.LoserXP,
		"points_gained": e.PointsGained,
		"points_lost":   e.PointsLost,
	}
}

// NewBattleCompletedEvent creates a new BattleCompletedEvent.
func NewBattleCompletedEvent(battleID, winnerID string, winnerXP, loserXP, gained, lost int) BattleCompletedEvent {
	return BattleCompletedEvent{
		BaseEvent:    NewBaseEvent(EventBattleCompleted, battleID),
		BattleID:     battleID,
		WinnerID:     winnerID,
		WinnerXP:     winnerXP,
		LoserXP:      loserXP,
		PointsGained: gained,
		PointsLost:   lost,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Ranking Events
// ═══════════════════════════════════════════════════════════════════════════

// RankTierChangedEvent is emitted when a competitor crosses a tier threshold.
type RankTierChangedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	OldTier   string `json:"old_tier"`
	NewTier   string `json:"new_tier"`
	Points    int    `json:"points"`
}

// Payload implements Event interface.
func (e RankTierChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"old_tier":   e.OldTier,
		"new_tier":   e.NewTier,
		"points":     e.Points,
	}
}

// NewRankTierChangedEvent creates a new RankTierChangedEvent.
func NewRankTierChangedEvent(studentID, oldTier, newTier string, points int) RankTierChangedEvent {
	return RankTierChangedEvent{
		BaseEvent: NewBaseEvent(EventRankTierChanged, studentID),
		StudentID: studentID,
		OldTier:   oldTier,
		NewTier:   newTier,
		Points:    points,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionEndedEvent is emitted when a study session closes and rewards apply.
type SessionEndedEvent struct {
	BaseEvent
	SessionID      string `json:"session_id"`
	PartyID        string `json:"party_id"`
	GuildID        string `json:"guild_id,omitempty"`
	ProblemsSolved int    `json:"problems_solved"`
	TotalXP        int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e SessionEndedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":      e.SessionID,
		"party_id":        e.PartyID,
		"guild_id":        e.GuildID,
		"problems_solved": e.ProblemsSolved,
		"total_xp":        e.TotalXP,
	}
}

// NewSessionEndedEvent creates a new SessionEndedEvent.
func NewSessionEndedEvent(sessionID, partyID, guildID string, problems, totalXP int) SessionEndedEvent {
	return SessionEndedEvent{
		BaseEvent:      NewBaseEvent(EventSessionEnded, sessionID),
		SessionID:      sessionID,
		PartyID:        partyID,
		GuildID:        guildID,
		ProblemsSolved: problems,
		TotalXP:        totalXP,
	}
}

// GuildTierChangedEvent is emitted when accumulated guild XP crosses a tier threshold.
type GuildTierChangedEvent struct {
	BaseEvent
	GuildID string `json:"guild_id"`
	OldTier string `json:"old_tier"`
	NewTier string `json:"new_tier"`
	TotalXP int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e GuildTierChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"guild_id": e.GuildID,
		"old_tier": e.OldTier,
		"new_tier": e.NewTier,
		"total_xp": e.TotalXP,
	}
}

// NewGuildTierChangedEvent creates a new GuildTierChangedEvent.
func NewGuildTierChangedEvent(guildID, oldTier, newTier string, totalXP int) GuildTierChangedEvent {
	return GuildTierChangedEvent{
		BaseEvent: NewBaseEvent(EventGuildTierChanged, guildID),
		GuildID:   guildID,
		OldTier:   oldTier,
		NewTier:   newTier,
		TotalXP:   totalXP,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Tournament Events
// ═══════════════════════════════════════════════════════════════════════════

// BracketGeneratedEvent is emitted when a tournament bracket is built.
type BracketGeneratedEvent struct {
	BaseEvent
	TournamentID string `json:"tournament_id"`
	Format       string `json:"format"`
	MatchCount   int    `json:"match_count"`
	ByeCount     int    `json:"bye_count"`
}

// Payload implements Event interface.
func (e BracketGeneratedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"tournament_id": e.TournamentID,
		"format":        e.Format,
		"match_count":   e.MatchCount,
		"bye_count":     e.ByeCount,
	}
}

// NewBracketGeneratedEvent creates a new BracketGeneratedEvent.
func NewBracketGeneratedEvent(tournamentID, format string, matches, byes int) BracketGeneratedEvent {
	return BracketGeneratedEvent{
		BaseEvent:    NewBaseEvent(EventBracketGenerated, tournamentID),
		TournamentID: tournamentID,
		Format:       format,
		MatchCount:   matches,
		ByeCount:     byes,
	}
}
