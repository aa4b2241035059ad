package engine

import (
	"errors"

	"github.com/edquest-hub/edquest-arena/internal/domain/guild"
	"github.com/edquest-hub/edquest-arena/internal/domain/session"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
	"github.com/edquest-hub/edquest-arena/pkg/logger"
)

// StartSession opens a new study session for a party. Any still-open session
// for that party is ended first, with its rewards applied.
func (e *Engine) StartSession(partyID shared.PartyID, sessionType session.SessionType) (shared.SessionID, error) {
	e.mu.Lock()

	p, ok := e.parties[partyID]
	if !ok {
		e.mu.Unlock()
		return "", shared.ErrPartyNotFound
	}

	var events []shared.Event
	var forwards []xpForward
	if p.HasActiveSession() {
		events, forwards = e.endSessionLocked(p)
	}

	id := newSessionID()
	s, err := session.NewStudySession(id, partyID, sessionType, p.Members, e.clock())
	if err != nil {
		e.mu.Unlock()
		return "", shared.WrapError("session", "Start", shared.ErrInvalidInput, "cannot start session", err)
	}

	e.sessions[id] = s
	p.BeginSession(id)

	e.mu.Unlock()

	e.log.Info("study session started",
		logger.String("session_id", id.String()),
		logger.String("party_id", partyID.String()),
		logger.String("type", string(sessionType)))
	e.publish(append(events, shared.NewBaseEvent(shared.EventSessionStarted, id.String()))...)
	e.dispatchForwards(forwards)
	return id, nil
}

// RecordProgress updates the running counters of an open session.
func (e *Engine) RecordProgress(sessionID shared.SessionID, problemsSolved int, collaborationScore float64, conceptsCovered []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[sessionID]
	if !ok {
		return shared.ErrSessionNotFound
	}
	if err := s.RecordProgress(problemsSolved, collaborationScore, conceptsCovered); err != nil {
		kind := shared.ErrInvalidInput
		if errors.Is(err, session.ErrAlreadyEnded) {
			kind = shared.ErrAlreadyClosed
		}
		return shared.WrapError("session", "RecordProgress", kind, "cannot record progress", err)
	}
	return nil
}

// EndSession closes the party's open session. The reward is computed exactly
// once and credited to the party and, for guild-affiliated parties, to the
// guild, whose rank tier is re-derived. Ending with no open session fails
// with NoActiveSession.
func (e *Engine) EndSession(partyID shared.PartyID) (session.Reward, error) {
	e.mu.Lock()

	p, ok := e.parties[partyID]
	if !ok {
		e.mu.Unlock()
		return session.Reward{}, shared.ErrPartyNotFound
	}
	if !p.HasActiveSession() {
		e.mu.Unlock()
		return session.Reward{}, shared.ErrNoActiveSession
	}

	s := e.sessions[p.CurrentSessionID]
	events, forwards := e.endSessionLocked(p)
	reward := session.Reward{}
	if s != nil {
		reward = s.Reward
	}

	e.mu.Unlock()

	e.publish(events...)
	e.dispatchForwards(forwards)
	return reward, nil
}

// xpForward is a deferred skill-tree XP award, dispatched outside the lock.
type xpForward struct {
	studentID shared.StudentID
	amount    int
	source    string
}

// dispatchForwards hands XP awards to the external forwarder after the
// registry lock is released.
func (e *Engine) dispatchForwards(forwards []xpForward) {
	for _, f := range forwards {
		e.forwardXP(f.studentID, f.amount, f.source)
	}
}

// endSessionLocked closes the party's current session and applies rewards.
// Callers hold e.mu and have verified an active session exists.
func (e *Engine) endSessionLocked(p *guild.StudyParty) ([]shared.Event, []xpForward) {
	s, ok := e.sessions[p.CurrentSessionID]
	if !ok {
		// Dangling session reference; clear it without rewards.
		p.CloseSession(0)
		return nil, nil
	}

	reward, err := s.End(e.clock())
	if err != nil {
		p.CloseSession(0)
		return nil, nil
	}

	p.CloseSession(reward.TotalXP)

	guildID := ""
	var events []shared.Event
	if g, affiliated := e.guilds[p.GuildID]; affiliated {
		guildID = g.ID.String()
		events = append(events, e.awardGuildXPLocked(g, reward.TotalXP)...)
	}

	events = append(events, shared.NewSessionEndedEvent(
		s.ID.String(), p.ID.String(), guildID, s.ProblemsSolved, reward.TotalXP))

	forwards := make([]xpForward, 0, len(s.Participants))
	for _, member := range s.Participants {
		forwards = append(forwards, xpForward{member, reward.TotalXP, "study_session"})
	}
	return events, forwards
}

// GetSession returns a copy of the session's current state.
func (e *Engine) GetSession(sessionID shared.SessionID) (session.StudySession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[sessionID]
	if !ok {
		return session.StudySession{}, shared.ErrSessionNotFound
	}
	out := *s
	out.Participants = append([]shared.StudentID(nil), s.Participants...)
	out.ConceptsCovered = append([]string(nil), s.ConceptsCovered...)
	return out, nil
}
