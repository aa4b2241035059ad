// Package session contains domain entities and business logic for timed
// collaborative study sessions and their reward computation.
// This is a pure domain layer with zero external dependencies.
package session

import (
	"errors"
	"math"
	"time"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// Domain errors for session package.
var (
	ErrInvalidSessionID   = errors.New("session: invalid session ID")
	ErrInvalidPartyID     = errors.New("session: invalid party ID")
	ErrAlreadyEnded       = errors.New("session: session already ended")
	ErrNegativeProblems   = errors.New("session: problems solved cannot be negative")
	ErrInvalidCollabScore = errors.New("session: collaboration score must be in [0, 1]")
	ErrEndBeforeStart     = errors.New("session: end time cannot be before start time")
)

// SessionType tags what kind of study block the party is running.
type SessionType string

const (
	SessionTypeProblemSolving SessionType = "PROBLEM_SOLVING"
	SessionTypeConceptReview  SessionType = "CONCEPT_REVIEW"
	SessionTypeExamPrep       SessionType = "EXAM_PREP"
	SessionTypePeerTeaching   SessionType = "PEER_TEACHING"
)

// Status represents the lifecycle state of a study session.
type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// StudySession represents one timed collaborative study block run by a party.
// A session runs exactly one lifecycle: open, then ended. Once ended it is
// immutable and its XP has been computed exactly once.
type StudySession struct {
	ID           shared.SessionID
	PartyID      shared.PartyID
	Type         SessionType
	Participants []shared.StudentID

	StartedAt time.Time
	EndedAt   *time.Time
	Status    Status

	// Progress recorded while the session is open.
	ProblemsSolved     int
	CollaborationScore float64
	ConceptsCovered    []string

	// Reward, computed once at end.
	Reward Reward
}

// Reward is the XP breakdown computed when a session ends.
type Reward struct {
	BaseXP             int
	CollaborationBonus int
	EfficiencyBonus    int
	TotalXP            int
}

// NewStudySession opens a new session for a party. Participants are a
// snapshot of the party roster at start time.
func NewStudySession(id shared.SessionID, partyID shared.PartyID, sessionType SessionType, participants []shared.StudentID, startedAt time.Time) (*StudySession, error) {
	if !id.IsValid() {
		return nil, ErrInvalidSessionID
	}
	if !partyID.IsValid() {
		return nil, ErrInvalidPartyID
	}

	snapshot := make([]shared.StudentID, len(participants))
	copy(snapshot, participants)

	return &StudySession{
		ID:              id,
		PartyID:         partyID,
		Type:            sessionType,
		Participants:    snapshot,
		StartedAt:       startedAt,
		Status:          StatusActive,
		ConceptsCovered: []string{},
	}, nil
}

// IsActive reports whether the session is still open.
func (s *StudySession) IsActive() bool {
	return s.Status == StatusActive
}

// RecordProgress updates the running counters of an open session.
// Problems solved accumulates; the collaboration score is the latest reported
// value, clamped on input rather than silently.
func (s *StudySession) RecordProgress(problemsSolved int, collaborationScore float64, conceptsCovered []string) error {
	if !s.IsActive() {
		return ErrAlreadyEnded
	}
	if problemsSolved < 0 {
		return ErrNegativeProblems
	}
	if collaborationScore < 0 || collaborationScore > 1 {
		return ErrInvalidCollabScore
	}

	s.ProblemsSolved += problemsSolved
	s.CollaborationScore = collaborationScore
	s.ConceptsCovered = append(s.ConceptsCovered, conceptsCovered...)
	return nil
}

// End closes the session and computes its reward exactly once.
func (s *StudySession) End(endedAt time.Time) (Reward, error) {
	if !s.IsActive() {
		return Reward{}, ErrAlreadyEnded
	}
	if endedAt.Before(s.StartedAt) {
		return Reward{}, ErrEndBeforeStart
	}

	s.EndedAt = &endedAt
	s.Status = StatusEnded
	s.Reward = computeReward(s.ProblemsSolved, s.CollaborationScore, endedAt.Sub(s.StartedAt))
	return s.Reward, nil
}

// Duration returns the length of the session. For active sessions it is the
// time elapsed since start.
func (s *StudySession) Duration() time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}

// computeReward applies the session reward formula:
//
//	baseXP             = problemsSolved × 10
//	efficiency         = problemsSolved / durationMinutes (0 when duration ≤ 0)
//	collaborationBonus = floor(baseXP × collaborationScore)
//	efficiencyBonus    = floor(baseXP × min(efficiency/2, 1))
func computeReward(problemsSolved int, collaborationScore float64, duration time.Duration) Reward {
	baseXP := problemsSolved * 10

	minutes := duration.Minutes()
	efficiency := 0.0
	if minutes > 0 {
		efficiency = float64(problemsSolved) / minutes
	}

	collaborationBonus := int(math.Floor(float64(baseXP) * collaborationScore))
	efficiencyBonus := int(math.Floor(float64(baseXP) * math.Min(efficiency/2.0, 1.0)))

	return Reward{
		BaseXP:             baseXP,
		CollaborationBonus: collaborationBonus,
		EfficiencyBonus:    efficiencyBonus,
		TotalXP:            baseXP + collaborationBonus + efficiencyBonus,
	}
}
