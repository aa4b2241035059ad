package engine

import (
	"github.com/edquest-hub/edquest-arena/internal/domain/battle"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
	"github.com/edquest-hub/edquest-arena/pkg/logger"
)

// Enqueue places a competitor into the matchmaking queue and runs one
// matchmaking sweep before returning, so the caller observes an immediate
// match-or-queued outcome. A competitor with an existing queue entry or an
// open battle is rejected.
//
// Entries with no compatible partner stay queued indefinitely: there is no
// timeout and no periodic re-sweep. Matching is only ever attempted at
// enqueue time.
func (e *Engine) Enqueue(studentID shared.StudentID, battleType battle.Type, rankRange int) (shared.BattleID, error) {
	e.mu.Lock()

	if e.queueIndexOf(studentID) >= 0 {
		e.mu.Unlock()
		return "", shared.ErrCompetitorQueued
	}
	if _, fighting := e.inBattle[studentID]; fighting {
		e.mu.Unlock()
		return "", shared.ErrCompetitorInBattle
	}

	e.ensureCompetitor(studentID)
	e.queue = append(e.queue, battle.NewQueueEntry(studentID, battleType, rankRange, e.clock()))

	battleID, events := e.sweepLocked()

	e.mu.Unlock()

	e.publish(events...)
	return battleID, nil
}

// Withdraw removes a competitor's queue entry. If a match already consumed
// the entry, withdrawal fails harmlessly with NotQueued.
func (e *Engine) Withdraw(studentID shared.StudentID) error {
	e.mu.Lock()

	i := e.queueIndexOf(studentID)
	if i < 0 {
		e.mu.Unlock()
		return shared.ErrEntryNotQueued
	}
	e.queue = append(e.queue[:i], e.queue[i+1:]...)

	e.mu.Unlock()

	e.publish(shared.NewBaseEvent(shared.EventCompetitorWithdrawn, studentID.String()))
	return nil
}

// QueueLength reports the number of waiting entries.
func (e *Engine) QueueLength() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// IsQueued reports whether the student currently has a queue entry.
func (e *Engine) IsQueued(studentID shared.StudentID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queueIndexOf(studentID) >= 0
}

// IsInBattle reports whether the student has an open battle.
func (e *Engine) IsInBattle(studentID shared.StudentID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, fighting := e.inBattle[studentID]
	return fighting
}

// sweepLocked runs one greedy matchmaking pass: the first compatible pair in
// insertion order is removed from the queue and becomes a battle. The sweep
// stops after the first match. Callers hold e.mu.
//
// Returns the battle ID when a match was found (empty otherwise) and the
// events to publish after the lock is released.
func (e *Engine) sweepLocked() (shared.BattleID, []shared.Event) {
	i, j := battle.FindMatch(e.queue, e.rankPointsOf)
	if i < 0 {
		return "", nil
	}

	a, b := e.queue[i], e.queue[j]
	// Remove the later index first so the earlier one stays valid.
	e.queue = append(e.queue[:j], e.queue[j+1:]...)
	e.queue = append(e.queue[:i], e.queue[i+1:]...)

	battleID, err := e.createBattleLocked(a.Type, []shared.StudentID{a.StudentID, b.StudentID})
	if err != nil {
		// Construction cannot fail for a matched pair; log and requeue.
		e.log.Error("battle creation failed after match",
			logger.String("player_a", a.StudentID.String()),
			logger.String("player_b", b.StudentID.String()),
			logger.Err(err))
		e.queue = append(e.queue, a, b)
		return "", nil
	}

	events := []shared.Event{
		shared.NewMatchFoundEvent(battleID.String(), string(a.Type),
			[]string{a.StudentID.String(), b.StudentID.String()}),
	}
	return battleID, events
}

// createBattleLocked creates a battle and marks every participant
// active-in-battle, rejecting future enqueue or second-battle attempts for
// them until completion releases the flag. Callers hold e.mu.
func (e *Engine) createBattleLocked(battleType battle.Type, participants []shared.StudentID) (shared.BattleID, error) {
	id := newBattleID()
	b, err := battle.NewBattle(id, battleType, participants, e.clock())
	if err != nil {
		return "", err
	}

	e.battles[id] = b
	for _, p := range participants {
		e.ensureCompetitor(p)
		e.inBattle[p] = id
	}
	return id, nil
}
