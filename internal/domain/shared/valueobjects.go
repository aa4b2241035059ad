// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// StudentID represents a unique learner identifier.
type StudentID string

// IsValid checks that the student ID is non-empty.
func (s StudentID) IsValid() bool {
	return strings.TrimSpace(string(s)) != ""
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s StudentID) IsEmpty() bool {
	return s == ""
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.TrimSpace(id))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewStudentID", ErrInvalidID, "student ID cannot be empty")
	}
	return sid, nil
}

// GuildID represents a unique guild identifier.
type GuildID string

// IsValid checks that the guild ID is non-empty.
func (g GuildID) IsValid() bool { return g != "" }

// String returns the string representation.
func (g GuildID) String() string { return string(g) }

// PartyID represents a unique study-party identifier.
type PartyID string

// IsValid checks that the party ID is non-empty.
func (p PartyID) IsValid() bool { return p != "" }

// String returns the string representation.
func (p PartyID) String() string { return string(p) }

// SessionID represents a unique study-session identifier.
type SessionID string

// IsValid checks that the session ID is non-empty.
func (s SessionID) IsValid() bool { return s != "" }

// String returns the string representation.
func (s SessionID) String() string { return string(s) }

// BattleID represents a unique battle identifier.
type BattleID string

// IsValid checks that the battle ID is non-empty.
func (b BattleID) IsValid() bool { return b != "" }

// String returns the string representation.
func (b BattleID) String() string { return string(b) }

// TournamentID represents a unique tournament identifier.
type TournamentID string

// IsValid checks that the tournament ID is non-empty.
func (t TournamentID) IsValid() bool { return t != "" }

// String returns the string representation.
func (t TournamentID) String() string { return string(t) }

// MatchID represents a unique bracket-match identifier.
type MatchID string

// IsValid checks that the match ID is non-empty.
func (m MatchID) IsValid() bool { return m != "" }

// String returns the string representation.
func (m MatchID) String() string { return string(m) }

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points earned by a party, guild, or competitor.
type XP int

// MinXP is the lower bound for any XP total.
const MinXP XP = 0

// IsValid checks if the XP value is non-negative.
func (x XP) IsValid() bool {
	return x >= MinXP
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add adds XP and returns the result, floored at MinXP.
func (x XP) Add(amount int) XP {
	result := XP(int(x) + amount)
	if result < MinXP {
		return MinXP
	}
	return result
}

// NewXP creates a new XP value with validation.
func NewXP(amount int) (XP, error) {
	if amount < int(MinXP) {
		return 0, NewDomainError("shared", "NewXP", ErrNegativeValue, "XP cannot be negative")
	}
	return XP(amount), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// RankPoints Value Object
// ═══════════════════════════════════════════════════════════════════════════

// RankPoints represents a competitor's scalar ranked-play score.
// Points never go below zero; losses saturate at the floor.
type RankPoints int

// IsValid checks if the points value is non-negative.
func (r RankPoints) IsValid() bool {
	return r >= 0
}

// Int returns the underlying int value.
func (r RankPoints) Int() int {
	return int(r)
}

// Add adds a (possibly negative) delta and returns the result floored at zero.
func (r RankPoints) Add(delta int) RankPoints {
	result := RankPoints(int(r) + delta)
	if result < 0 {
		return 0
	}
	return result
}

// Distance returns the absolute rank-point distance to another value.
func (r RankPoints) Distance(other RankPoints) int {
	d := int(r) - int(other)
	if d < 0 {
		return -d
	}
	return d
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a time period, used for tournament registration windows.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks if the time range is valid.
func (t TimeRange) IsValid() bool {
	return !t.From.IsZero() && !t.To.IsZero() && !t.From.After(t.To)
}

// Duration returns the duration of the time range.
func (t TimeRange) Duration() time.Duration {
	return t.To.Sub(t.From)
}

// Contains checks if a time is within the range.
func (t TimeRange) Contains(tm time.Time) bool {
	return (tm.Equal(t.From) || tm.After(t.From)) && (tm.Equal(t.To) || tm.Before(t.To))
}

// NewTimeRange creates a new TimeRange with validation.
func NewTimeRange(from, to time.Time) (TimeRange, error) {
	tr := TimeRange{From: from, To: to}
	if !tr.IsValid() {
		return TimeRange{}, NewDomainError("shared", "NewTimeRange", ErrInvalidInput, "'from' must be before 'to'")
	}
	return tr, nil
}
