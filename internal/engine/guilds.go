package engine

import (
	"github.com/edquest-hub/edquest-arena/internal/domain/guild"
	"github.com/edquest-hub/edquest-arena/internal/domain/ranking"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
	"github.com/edquest-hub/edquest-arena/pkg/logger"
)

// CreateGuild founds a new guild with the given leader. If the leader already
// belongs to a guild they implicitly leave it first.
func (e *Engine) CreateGuild(name string, leaderID shared.StudentID) (shared.GuildID, error) {
	e.mu.Lock()

	id := newGuildID()
	g, err := guild.NewGuild(id, name, leaderID, e.clock())
	if err != nil {
		e.mu.Unlock()
		return "", shared.WrapError("guild", "Create", shared.ErrInvalidInput, "cannot create guild", err)
	}

	events := e.detachFromGuildLocked(leaderID)

	e.guilds[id] = g
	g.Tier = e.guildTiers.ResolveGuildTier(g.XP)
	e.memberGuild[leaderID] = id

	e.mu.Unlock()

	e.log.Info("guild created",
		logger.String("guild_id", id.String()),
		logger.String("leader_id", leaderID.String()),
		logger.String("name", g.Name))
	e.publish(append(events, shared.NewBaseEvent(shared.EventGuildCreated, id.String()))...)
	return id, nil
}

// JoinGuild adds a student to a guild, implicitly leaving any previous guild.
// Fails with a capacity error when the guild is full; in that case the
// student's previous membership is untouched.
func (e *Engine) JoinGuild(studentID shared.StudentID, guildID shared.GuildID) error {
	e.mu.Lock()

	g, ok := e.guilds[guildID]
	if !ok {
		e.mu.Unlock()
		return shared.ErrGuildNotFound
	}
	if g.HasMember(studentID) {
		e.mu.Unlock()
		return shared.NewDomainError("guild", "Join", shared.ErrAlreadyExists, "student is already a member")
	}
	if g.IsFull() {
		e.mu.Unlock()
		return shared.ErrGuildFull
	}

	events := e.detachFromGuildLocked(studentID)

	if err := g.AddMember(studentID); err != nil {
		e.mu.Unlock()
		return shared.WrapError("guild", "Join", shared.ErrInvalidInput, "cannot join guild", err)
	}
	e.memberGuild[studentID] = guildID

	e.mu.Unlock()

	e.publish(append(events, shared.NewBaseEvent(shared.EventGuildMemberJoined, guildID.String()))...)
	return nil
}

// LeaveGuild removes a student from their current guild. Leadership passes to
// the first officer, or first remaining member; an empty guild persists.
func (e *Engine) LeaveGuild(studentID shared.StudentID) error {
	e.mu.Lock()

	if _, ok := e.memberGuild[studentID]; !ok {
		e.mu.Unlock()
		return shared.ErrNotGuildMember
	}
	events := e.detachFromGuildLocked(studentID)

	e.mu.Unlock()

	e.publish(events...)
	return nil
}

// detachFromGuildLocked removes the student from whatever guild they belong
// to, handling leader succession. Callers hold e.mu.
func (e *Engine) detachFromGuildLocked(studentID shared.StudentID) []shared.Event {
	guildID, ok := e.memberGuild[studentID]
	if !ok {
		return nil
	}
	g, ok := e.guilds[guildID]
	if !ok {
		delete(e.memberGuild, studentID)
		return nil
	}

	if err := g.RemoveMember(studentID); err != nil {
		return nil
	}
	delete(e.memberGuild, studentID)
	return []shared.Event{shared.NewBaseEvent(shared.EventGuildMemberLeft, guildID.String())}
}

// PromoteOfficer marks a guild member as an officer.
func (e *Engine) PromoteOfficer(guildID shared.GuildID, studentID shared.StudentID) error {
	e.mu.Lock()

	g, ok := e.guilds[guildID]
	if !ok {
		e.mu.Unlock()
		return shared.ErrGuildNotFound
	}
	if err := g.PromoteOfficer(studentID); err != nil {
		e.mu.Unlock()
		return shared.WrapError("guild", "PromoteOfficer", shared.ErrInvalidInput, "cannot promote officer", err)
	}

	e.mu.Unlock()

	e.publish(shared.NewBaseEvent(shared.EventGuildOfficerNamed, guildID.String()))
	return nil
}

// awardGuildXPLocked credits session XP to a guild and re-derives its tier
// from the guild threshold table. Callers hold e.mu.
func (e *Engine) awardGuildXPLocked(g *guild.Guild, amount int) []shared.Event {
	oldTier := g.Tier
	g.AwardXP(amount)
	g.Tier = e.guildTiers.ResolveGuildTier(g.XP)

	events := []shared.Event{shared.NewBaseEvent(shared.EventGuildXPAwarded, g.ID.String())}
	if g.Tier != oldTier {
		events = append(events, shared.NewGuildTierChangedEvent(g.ID.String(), oldTier, g.Tier, g.XP.Int()))
	}
	return events
}

// GuildInfo is the dashboard projection of a guild.
type GuildInfo struct {
	ID       shared.GuildID
	Name     string
	LeaderID shared.StudentID
	Officers []shared.StudentID
	Members  []shared.StudentID
	Parties  []shared.PartyID
	XP       shared.XP
	Tier     string
}

// GetGuildInfo returns a copy of the guild's current state.
func (e *Engine) GetGuildInfo(guildID shared.GuildID) (GuildInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.guilds[guildID]
	if !ok {
		return GuildInfo{}, shared.ErrGuildNotFound
	}

	info := GuildInfo{
		ID:       g.ID,
		Name:     g.Name,
		LeaderID: g.LeaderID,
		Officers: append([]shared.StudentID(nil), g.Officers...),
		Members:  append([]shared.StudentID(nil), g.Members...),
		Parties:  append([]shared.PartyID(nil), g.PartyIDs...),
		XP:       g.XP,
		Tier:     g.Tier,
	}
	return info, nil
}

// TopGuilds returns the top n guilds by accumulated XP, ties broken by
// lowest guild ID.
func (e *Engine) TopGuilds(n int) []ranking.GuildStanding {
	e.mu.Lock()
	rows := make([]ranking.GuildRow, 0, len(e.guilds))
	for _, g := range e.guilds {
		rows = append(rows, ranking.GuildRow{
			GuildID: g.ID,
			Name:    g.Name,
			XP:      g.XP,
			Tier:    g.Tier,
			Members: g.MemberCount(),
		})
	}
	e.mu.Unlock()

	return ranking.TopGuilds(rows, n)
}
