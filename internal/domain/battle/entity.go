// Package battle contains domain entities and business logic for matched
// contests: the battle lifecycle, the matchmaking queue, and reward math.
// This is a pure domain layer with zero external dependencies.
package battle

import (
	"errors"
	"time"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// Domain errors for battle package.
var (
	ErrInvalidBattleID     = errors.New("battle: invalid battle ID")
	ErrTooFewParticipants  = errors.New("battle: at least two participants required")
	ErrAlreadyCompleted    = errors.New("battle: already completed")
	ErrWinnerNotCompeting  = errors.New("battle: winner is not a participant")
	ErrDuplicateCompetitor = errors.New("battle: duplicate participant")
)

// Type tags the kind of contest being fought.
type Type string

const (
	TypeSpeedSolve   Type = "SPEED_SOLVE"
	TypeQuizDuel     Type = "QUIZ_DUEL"
	TypeCodeGolf     Type = "CODE_GOLF"
	TypeConceptClash Type = "CONCEPT_CLASH"
)

// Status is the battle lifecycle state. There are exactly two states; elapsed
// time between creation and completion is informational only.
type Status string

const (
	StatusCreated   Status = "created"
	StatusCompleted Status = "completed"
)

// Battle represents one matched contest between competitors. A battle exists
// only while its participants carry the active-in-battle flag; completion is
// terminal.
type Battle struct {
	ID           shared.BattleID
	Type         Type
	Participants []shared.StudentID

	Status      Status
	WinnerID    shared.StudentID
	Scores      map[shared.StudentID]float64
	XPDeltas    map[shared.StudentID]int
	PointDeltas map[shared.StudentID]int

	// PerformanceData carries opaque per-battle metrics reported by the
	// result webhook (accuracy, time-to-solve, hints used).
	PerformanceData map[string]float64

	CreatedAt   time.Time
	CompletedAt *time.Time
}

// NewBattle creates a battle in the created state.
func NewBattle(id shared.BattleID, battleType Type, participants []shared.StudentID, now time.Time) (*Battle, error) {
	if !id.IsValid() {
		return nil, ErrInvalidBattleID
	}
	if len(participants) < 2 {
		return nil, ErrTooFewParticipants
	}
	seen := make(map[shared.StudentID]struct{}, len(participants))
	for _, p := range participants {
		if _, dup := seen[p]; dup {
			return nil, ErrDuplicateCompetitor
		}
		seen[p] = struct{}{}
	}

	roster := make([]shared.StudentID, len(participants))
	copy(roster, participants)

	return &Battle{
		ID:           id,
		Type:         battleType,
		Participants: roster,
		Status:       StatusCreated,
		CreatedAt:    now,
	}, nil
}

// HasParticipant reports whether the student fought in this battle.
func (b *Battle) HasParticipant(studentID shared.StudentID) bool {
	for _, p := range b.Participants {
		if p == studentID {
			return true
		}
	}
	return false
}

// IsCompleted reports whether the battle reached its terminal state.
func (b *Battle) IsCompleted() bool {
	return b.Status == StatusCompleted
}

// Complete resolves the battle: validates the winner, computes the reward
// outcome, and transitions to the terminal state. A second call fails.
func (b *Battle) Complete(winnerID shared.StudentID, scores map[shared.StudentID]float64, performanceData map[string]float64, now time.Time) (Outcome, error) {
	if b.IsCompleted() {
		return Outcome{}, ErrAlreadyCompleted
	}
	if !b.HasParticipant(winnerID) {
		return Outcome{}, ErrWinnerNotCompeting
	}

	outcome := ComputeOutcome(winnerID, b.Participants, scores)

	b.Status = StatusCompleted
	b.WinnerID = winnerID
	b.CompletedAt = &now
	b.PerformanceData = performanceData

	b.Scores = make(map[shared.StudentID]float64, len(b.Participants))
	b.XPDeltas = make(map[shared.StudentID]int, len(b.Participants))
	b.PointDeltas = make(map[shared.StudentID]int, len(b.Participants))
	for _, p := range b.Participants {
		b.Scores[p] = scores[p]
		if p == winnerID {
			b.XPDeltas[p] = outcome.WinnerXP
			b.PointDeltas[p] = outcome.WinnerPointsGained
		} else {
			b.XPDeltas[p] = outcome.LoserXP
			b.PointDeltas[p] = -outcome.LoserPointsLost
		}
	}

	return outcome, nil
}
