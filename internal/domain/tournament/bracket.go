package tournament

import (
	"math/rand"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// MatchIDGenerator mints identifiers for bracket matches. The engine supplies
// a UUID-backed generator; tests supply a deterministic one.
type MatchIDGenerator func() shared.MatchID

// GenerateBracket builds the bracket for the tournament's format and moves it
// into the in-progress state. It can only run once.
//
// Single elimination seeds by shuffling the registrants - an explicit
// randomization, not rank-based "fair" seeding - and pairs them
// consecutively. An odd registrant out receives a bye that auto-resolves
// without a battle. Only the first round is generated here; constructing
// later rounds from reported winners is intentionally not implemented.
//
// Round robin generates every unordered pair exactly once (n×(n−1)/2
// matches) and buckets them greedily into rounds of max(1, n/2) in
// generation order. The bucketing is not conflict-aware: a participant may
// appear twice in the same round bucket.
func (t *Tournament) GenerateBracket(rng *rand.Rand, newMatchID MatchIDGenerator) error {
	if t.Status != StatusRegistration {
		return ErrBracketGenerated
	}
	if len(t.Registrants) == 0 {
		return ErrNoRegistrants
	}

	switch t.Format {
	case FormatSingleElimination:
		t.Matches = singleEliminationRound(t.Registrants, rng, newMatchID)
	case FormatRoundRobin:
		t.Matches = roundRobinSchedule(t.Registrants, newMatchID)
	default:
		return ErrUnknownFormat
	}

	// A bye has its winner the moment the bracket exists.
	for i := range t.Matches {
		if t.Matches[i].IsBye() {
			t.Matches[i].WinnerID = t.Matches[i].SlotA
			t.Matches[i].Completed = true
			t.Standings[t.Matches[i].SlotA]++
		}
	}

	t.Status = StatusInProgress

	// A bracket of nothing but byes has no reportable match left, so it
	// closes the moment it exists.
	if t.allMatchesCompleted() {
		t.Status = StatusCompleted
	}
	return nil
}

// singleEliminationRound shuffles the field and pairs consecutive entries
// into first-round matches, with a trailing bye for an odd field.
func singleEliminationRound(registrants []shared.StudentID, rng *rand.Rand, newMatchID MatchIDGenerator) []Match {
	field := make([]shared.StudentID, len(registrants))
	copy(field, registrants)
	rng.Shuffle(len(field), func(i, j int) {
		field[i], field[j] = field[j], field[i]
	})

	matches := make([]Match, 0, (len(field)+1)/2)
	for i := 0; i+1 < len(field); i += 2 {
		matches = append(matches, Match{
			ID:    newMatchID(),
			Round: 1,
			SlotA: field[i],
			SlotB: field[i+1],
		})
	}
	if len(field)%2 == 1 {
		matches = append(matches, Match{
			ID:    newMatchID(),
			Round: 1,
			SlotA: field[len(field)-1],
		})
	}
	return matches
}

// roundRobinSchedule emits every unordered pair once, bucketed into rounds
// of max(1, n/2) in generation order.
func roundRobinSchedule(registrants []shared.StudentID, newMatchID MatchIDGenerator) []Match {
	n := len(registrants)
	roundSize := n / 2
	if roundSize < 1 {
		roundSize = 1
	}

	matches := make([]Match, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			matches = append(matches, Match{
				ID:    newMatchID(),
				Round: len(matches)/roundSize + 1,
				SlotA: registrants[i],
				SlotB: registrants[j],
			})
		}
	}
	return matches
}
