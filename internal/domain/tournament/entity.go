// Package tournament contains domain entities and business logic for
// multi-round competitive events: registration windows, bracket generation,
// and standings. This is a pure domain layer with zero external dependencies.
package tournament

import (
	"errors"
	"strings"
	"time"

	"github.com/edquest-hub/edquest-arena/internal/domain/battle"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// Domain errors for tournament package.
var (
	ErrInvalidTournamentID = errors.New("tournament: invalid tournament ID")
	ErrInvalidName         = errors.New("tournament: name cannot be empty")
	ErrInvalidCapacity     = errors.New("tournament: capacity must be at least 2")
	ErrInvalidWindow       = errors.New("tournament: invalid registration window")
	ErrUnknownFormat       = errors.New("tournament: unknown format")
	ErrRegistrationClosed  = errors.New("tournament: registration window is closed")
	ErrFull                = errors.New("tournament: at capacity")
	ErrAlreadyRegistered   = errors.New("tournament: student already registered")
	ErrBracketGenerated    = errors.New("tournament: bracket already generated")
	ErrNoRegistrants       = errors.New("tournament: no registrants")
	ErrMatchNotFound       = errors.New("tournament: match not found")
	ErrMatchCompleted      = errors.New("tournament: match already completed")
	ErrNotInMatch          = errors.New("tournament: winner is not in the match")
)

// Format tags the bracket construction algorithm.
type Format string

const (
	FormatSingleElimination Format = "single_elimination"
	FormatRoundRobin        Format = "round_robin"
)

// IsValid reports whether the format is one this engine can generate.
func (f Format) IsValid() bool {
	return f == FormatSingleElimination || f == FormatRoundRobin
}

// Status is the tournament lifecycle state, driven by the registration
// window and explicit bracket generation.
type Status string

const (
	StatusRegistration Status = "registration"
	StatusInProgress   Status = "in_progress"
	StatusCompleted    Status = "completed"
)

// Match is one scheduled pairing within a tournament round. A bye match has
// an empty second slot and auto-resolves its winner without a battle.
type Match struct {
	ID    shared.MatchID
	Round int

	SlotA shared.StudentID
	SlotB shared.StudentID // empty for a bye

	WinnerID  shared.StudentID
	BattleID  shared.BattleID // empty for a bye
	Completed bool
}

// IsBye reports whether this match is an unpaired slot.
func (m *Match) IsBye() bool {
	return m.SlotB == ""
}

// HasSlot reports whether the student occupies one of the match slots.
func (m *Match) HasSlot(studentID shared.StudentID) bool {
	return m.SlotA == studentID || m.SlotB == studentID
}

// Tournament represents a multi-round competitive event.
type Tournament struct {
	ID         shared.TournamentID
	Name       string
	Format     Format
	BattleType battle.Type

	Capacity int
	Window   shared.TimeRange

	Registrants []shared.StudentID
	Status      Status

	// Matches is the generated bracket in generation order.
	Matches []Match

	// Standings counts match wins per registrant.
	Standings map[shared.StudentID]int

	CreatedAt time.Time
}

// NewTournament creates a tournament accepting registrations inside the
// given window.
func NewTournament(id shared.TournamentID, name string, format Format, battleType battle.Type, capacity int, window shared.TimeRange, now time.Time) (*Tournament, error) {
	if !id.IsValid() {
		return nil, ErrInvalidTournamentID
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	if !format.IsValid() {
		return nil, ErrUnknownFormat
	}
	if capacity < 2 {
		return nil, ErrInvalidCapacity
	}
	if !window.IsValid() {
		return nil, ErrInvalidWindow
	}

	return &Tournament{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Format:      format,
		BattleType:  battleType,
		Capacity:    capacity,
		Window:      window,
		Registrants: []shared.StudentID{},
		Status:      StatusRegistration,
		Standings:   make(map[shared.StudentID]int),
		CreatedAt:   now,
	}, nil
}

// IsRegistered reports whether the student already holds a slot.
func (t *Tournament) IsRegistered(studentID shared.StudentID) bool {
	for _, r := range t.Registrants {
		if r == studentID {
			return true
		}
	}
	return false
}

// Register enrolls a student. Registration is only accepted inside the
// window and below capacity; a duplicate registration is a no-op failure.
func (t *Tournament) Register(studentID shared.StudentID, now time.Time) error {
	if t.Status != StatusRegistration || !t.Window.Contains(now) {
		return ErrRegistrationClosed
	}
	if t.IsRegistered(studentID) {
		return ErrAlreadyRegistered
	}
	if len(t.Registrants) >= t.Capacity {
		return ErrFull
	}
	t.Registrants = append(t.Registrants, studentID)
	return nil
}

// MatchByID finds a bracket match.
func (t *Tournament) MatchByID(matchID shared.MatchID) *Match {
	for i := range t.Matches {
		if t.Matches[i].ID == matchID {
			return &t.Matches[i]
		}
	}
	return nil
}

// ReportResult records the winner of a bracket match and updates standings.
// When every generated match has completed, the tournament closes. Later
// single-elimination rounds are not generated from reported winners; see the
// bracket generator's notes.
func (t *Tournament) ReportResult(matchID shared.MatchID, winnerID shared.StudentID, battleID shared.BattleID) error {
	m := t.MatchByID(matchID)
	if m == nil {
		return ErrMatchNotFound
	}
	if m.Completed {
		return ErrMatchCompleted
	}
	if !m.HasSlot(winnerID) {
		return ErrNotInMatch
	}

	m.WinnerID = winnerID
	m.BattleID = battleID
	m.Completed = true
	t.Standings[winnerID]++

	if t.allMatchesCompleted() {
		t.Status = StatusCompleted
	}
	return nil
}

// allMatchesCompleted reports whether every generated match has a winner.
func (t *Tournament) allMatchesCompleted() bool {
	if len(t.Matches) == 0 {
		return false
	}
	for i := range t.Matches {
		if !t.Matches[i].Completed {
			return false
		}
	}
	return true
}

// RoundCount returns the highest round number in the generated bracket.
func (t *Tournament) RoundCount() int {
	max := 0
	for i := range t.Matches {
		if t.Matches[i].Round > max {
			max = t.Matches[i].Round
		}
	}
	return max
}
