package battle

import (
	"time"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// QueueEntry is one competitor waiting to be matched. An entry is removed
// exactly once: either by a successful match or by explicit withdrawal.
type QueueEntry struct {
	StudentID shared.StudentID
	Type      Type

	// RankRange is the acceptable rank-point distance to an opponent.
	// A pair is compatible when their distance is within the larger of the
	// two entries' preferences.
	RankRange int

	EnqueuedAt time.Time
}

// NewQueueEntry creates a queue entry. A non-positive range preference falls
// back to the default.
func NewQueueEntry(studentID shared.StudentID, battleType Type, rankRange int, now time.Time) QueueEntry {
	if rankRange <= 0 {
		rankRange = DefaultRankRange
	}
	return QueueEntry{
		StudentID:  studentID,
		Type:       battleType,
		RankRange:  rankRange,
		EnqueuedAt: now,
	}
}

// DefaultRankRange is the rank-point distance used when a competitor states
// no preference.
const DefaultRankRange = 200

// Compatible reports whether two queue entries can be paired: same battle
// type, different competitors, and rank-point distance within the wider of
// the two preferences.
func Compatible(a, b QueueEntry, pointsA, pointsB shared.RankPoints) bool {
	if a.StudentID == b.StudentID {
		return false
	}
	if a.Type != b.Type {
		return false
	}
	limit := a.RankRange
	if b.RankRange > limit {
		limit = b.RankRange
	}
	return pointsA.Distance(pointsB) <= limit
}

// FindMatch scans entries in insertion order and returns the indexes of the
// first compatible pair (i before j). The scan is greedy: it stops at the
// first match found rather than searching for a globally optimal pairing.
// Returns (-1, -1) when no pair is compatible; entries then stay queued.
func FindMatch(entries []QueueEntry, points func(shared.StudentID) shared.RankPoints) (int, int) {
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if Compatible(entries[i], entries[j], points(entries[i].StudentID), points(entries[j].StudentID)) {
				return i, j
			}
		}
	}
	return -1, -1
}
