// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrNegativeValue = errors.New("value cannot be negative")

	// Capacity errors
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrWindowClosed    = errors.New("window closed")

	// Matchmaking errors
	ErrAlreadyQueued   = errors.New("already queued")
	ErrAlreadyInBattle = errors.New("already in battle")
	ErrNotQueued       = errors.New("not queued")

	// Configuration errors (programming errors, surfaced at startup)
	ErrBadConfiguration = errors.New("bad configuration")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "guild", "battle", "tournament"
	Op      string // Operation that failed, e.g., "Join", "Complete"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Guild domain errors
var (
	ErrGuildNotFound  = NewDomainError("guild", "Find", ErrNotFound, "guild not found")
	ErrGuildFull      = NewDomainError("guild", "Join", ErrCapacityExceeded, "guild is at member capacity")
	ErrNotGuildMember = NewDomainError("guild", "Check", ErrInvalidInput, "student is not a guild member")
	ErrPartyNotFound  = NewDomainError("party", "Find", ErrNotFound, "party not found")
	ErrPartyFull      = NewDomainError("party", "Join", ErrCapacityExceeded, "party is at member capacity")
	ErrNotPartyMember = NewDomainError("party", "Check", ErrInvalidInput, "student is not a party member")
)

// Session domain errors
var (
	ErrSessionNotFound = NewDomainError("session", "Find", ErrNotFound, "session not found")
	ErrNoActiveSession = NewDomainError("session", "End", ErrNotFound, "no active session for party")
	ErrSessionEnded    = NewDomainError("session", "Record", ErrAlreadyClosed, "session already ended")
)

// Ranking domain errors
var (
	ErrCompetitorNotFound = NewDomainError("ranking", "Find", ErrNotFound, "competitor not found")
	ErrCompetitorExists   = NewDomainError("ranking", "Register", ErrAlreadyExists, "competitor already registered")
)

// Battle and matchmaking domain errors
var (
	ErrUnknownBattle      = NewDomainError("battle", "Complete", ErrNotFound, "unknown or already completed battle")
	ErrWinnerNotInBattle  = NewDomainError("battle", "Complete", ErrInvalidInput, "winner is not a battle participant")
	ErrCompetitorQueued   = NewDomainError("matchmaking", "Enqueue", ErrAlreadyQueued, "competitor already has a queue entry")
	ErrCompetitorInBattle = NewDomainError("matchmaking", "Enqueue", ErrAlreadyInBattle, "competitor has an open battle")
	ErrEntryNotQueued     = NewDomainError("matchmaking", "Withdraw", ErrNotQueued, "no queue entry for competitor")
)

// Tournament domain errors
var (
	ErrTournamentNotFound = NewDomainError("tournament", "Find", ErrNotFound, "tournament not found")
	ErrTournamentFull     = NewDomainError("tournament", "Register", ErrCapacityExceeded, "tournament is at capacity")
	ErrRegistrationClosed = NewDomainError("tournament", "Register", ErrWindowClosed, "registration window is closed")
	ErrAlreadyRegistered  = NewDomainError("tournament", "Register", ErrAlreadyExists, "student already registered")
	ErrBracketExists      = NewDomainError("tournament", "GenerateBracket", ErrInvalidState, "bracket already generated")
	ErrNoRegistrants      = NewDomainError("tournament", "GenerateBracket", ErrInvalidState, "tournament has no registrants")
)

// External service errors
var (
	ErrSkillTreeUnavailable = NewDomainError("skilltree", "Request", ErrServiceUnavailable, "skill-tree engine is unavailable")
	ErrSkillTreeTimeout     = NewDomainError("skilltree", "Request", ErrTimeout, "skill-tree engine request timeout")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCapacityExceeded checks if the error is a capacity error.
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// IsAlreadyQueued checks if the error is a double-enqueue error.
func IsAlreadyQueued(err error) bool {
	return errors.Is(err, ErrAlreadyQueued)
}

// IsAlreadyInBattle checks if the error is an exclusive-battle-state error.
func IsAlreadyInBattle(err error) bool {
	return errors.Is(err, ErrAlreadyInBattle)
}

// IsRegistrationClosed checks if the error is a registration-window error.
func IsRegistrationClosed(err error) bool {
	return errors.Is(err, ErrWindowClosed)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
