package engine

import (
	"github.com/edquest-hub/edquest-arena/internal/domain/guild"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
	"github.com/edquest-hub/edquest-arena/pkg/logger"
)

// CreateParty forms a new study party led by the given student. The party's
// guild affiliation is inherited from the leader's current guild at this
// moment and never changes afterwards. A student can lead or belong to only
// one party; creating a new one implicitly leaves the previous.
func (e *Engine) CreateParty(leaderID shared.StudentID) (shared.PartyID, error) {
	e.mu.Lock()

	events := e.detachFromPartyLocked(leaderID)

	id := newPartyID()
	guildID := e.memberGuild[leaderID] // empty when unaffiliated

	p, err := guild.NewStudyParty(id, leaderID, guildID, e.clock())
	if err != nil {
		e.mu.Unlock()
		return "", shared.WrapError("party", "Create", shared.ErrInvalidInput, "cannot create party", err)
	}

	e.parties[id] = p
	e.memberParty[leaderID] = id
	if g, ok := e.guilds[guildID]; ok {
		g.AttachParty(id)
	}

	e.mu.Unlock()

	e.log.Info("party created",
		logger.String("party_id", id.String()),
		logger.String("leader_id", leaderID.String()),
		logger.String("guild_id", guildID.String()))
	e.publish(append(events, shared.NewBaseEvent(shared.EventPartyCreated, id.String()))...)
	return id, nil
}

// JoinParty adds a student to a party, implicitly leaving any previous party.
// Fails with a capacity error when the party is full.
func (e *Engine) JoinParty(studentID shared.StudentID, partyID shared.PartyID) error {
	e.mu.Lock()

	p, ok := e.parties[partyID]
	if !ok {
		e.mu.Unlock()
		return shared.ErrPartyNotFound
	}
	if p.HasMember(studentID) {
		e.mu.Unlock()
		return shared.NewDomainError("party", "Join", shared.ErrAlreadyExists, "student is already a member")
	}
	if p.IsFull() {
		e.mu.Unlock()
		return shared.ErrPartyFull
	}

	events := e.detachFromPartyLocked(studentID)

	if err := p.AddMember(studentID); err != nil {
		e.mu.Unlock()
		return shared.WrapError("party", "Join", shared.ErrInvalidInput, "cannot join party", err)
	}
	e.memberParty[studentID] = partyID

	e.mu.Unlock()

	e.publish(append(events, shared.NewBaseEvent(shared.EventPartyJoined, partyID.String()))...)
	return nil
}

// LeaveParty removes a student from their current party. When the last member
// leaves, the party is deleted; unlike guilds, parties do not persist empty.
func (e *Engine) LeaveParty(studentID shared.StudentID) error {
	e.mu.Lock()

	if _, ok := e.memberParty[studentID]; !ok {
		e.mu.Unlock()
		return shared.ErrNotPartyMember
	}
	events := e.detachFromPartyLocked(studentID)

	e.mu.Unlock()

	e.publish(events...)
	return nil
}

// detachFromPartyLocked removes the student from whatever party they belong
// to, deleting the party when it empties. Callers hold e.mu.
func (e *Engine) detachFromPartyLocked(studentID shared.StudentID) []shared.Event {
	partyID, ok := e.memberParty[studentID]
	if !ok {
		return nil
	}
	p, ok := e.parties[partyID]
	if !ok {
		delete(e.memberParty, studentID)
		return nil
	}

	empty, err := p.RemoveMember(studentID)
	if err != nil {
		return nil
	}
	delete(e.memberParty, studentID)

	events := []shared.Event{shared.NewBaseEvent(shared.EventPartyLeft, partyID.String())}
	if empty {
		delete(e.parties, partyID)
		if g, ok := e.guilds[p.GuildID]; ok {
			g.DetachParty(partyID)
		}
		events = append(events, shared.NewBaseEvent(shared.EventPartyDisbanded, partyID.String()))
	}
	return events
}

// PartyInfo is the study-session UI projection of a party.
type PartyInfo struct {
	ID               shared.PartyID
	LeaderID         shared.StudentID
	Members          []shared.StudentID
	GuildID          shared.GuildID
	CurrentSessionID shared.SessionID
	SessionCount     int
	TotalXP          shared.XP
}

// GetPartyInfo returns a copy of the party's current state.
func (e *Engine) GetPartyInfo(partyID shared.PartyID) (PartyInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.parties[partyID]
	if !ok {
		return PartyInfo{}, shared.ErrPartyNotFound
	}

	return PartyInfo{
		ID:               p.ID,
		LeaderID:         p.LeaderID,
		Members:          append([]shared.StudentID(nil), p.Members...),
		GuildID:          p.GuildID,
		CurrentSessionID: p.CurrentSessionID,
		SessionCount:     len(p.SessionHistory),
		TotalXP:          p.TotalXP,
	}, nil
}
