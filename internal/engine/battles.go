package engine

import (
	"github.com/edquest-hub/edquest-arena/internal/domain/battle"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
	"github.com/edquest-hub/edquest-arena/pkg/logger"
)

// CompleteBattle resolves a battle: computes the reward outcome, updates
// every participant's competitor profile, and releases their active-in-battle
// flags. All of it happens atomically with respect to other battle and queue
// operations.
//
// An unknown or already-completed battle ID fails with UnknownBattle and no
// side effects, so exactly one of two concurrent completions succeeds.
func (e *Engine) CompleteBattle(battleID shared.BattleID, winnerID shared.StudentID, scores map[shared.StudentID]float64, performanceData map[string]float64) (battle.Outcome, error) {
	e.mu.Lock()

	b, ok := e.battles[battleID]
	if !ok || b.IsCompleted() {
		e.mu.Unlock()
		return battle.Outcome{}, shared.ErrUnknownBattle
	}
	if !b.HasParticipant(winnerID) {
		e.mu.Unlock()
		return battle.Outcome{}, shared.ErrWinnerNotInBattle
	}

	outcome, err := b.Complete(winnerID, scores, performanceData, e.clock())
	if err != nil {
		e.mu.Unlock()
		return battle.Outcome{}, shared.WrapError("battle", "Complete", shared.ErrInvalidState, "cannot complete battle", err)
	}

	events := []shared.Event{
		shared.NewBattleCompletedEvent(battleID.String(), winnerID.String(),
			outcome.WinnerXP, outcome.LoserXP,
			outcome.WinnerPointsGained, outcome.LoserPointsLost),
	}
	forwards := make([]xpForward, 0, len(b.Participants))

	for _, p := range b.Participants {
		profile := e.ensureCompetitor(p)
		oldTier := profile.Tier

		if p == winnerID {
			profile.RecordWin(outcome.WinnerPointsGained, scores[p], e.competitorTiers)
			forwards = append(forwards, xpForward{p, outcome.WinnerXP, "battle_win"})
		} else {
			profile.RecordLoss(outcome.LoserPointsLost, scores[p], e.competitorTiers)
			forwards = append(forwards, xpForward{p, outcome.LoserXP, "battle_loss"})
		}

		if profile.Tier != oldTier {
			events = append(events, shared.NewRankTierChangedEvent(
				p.String(), oldTier, profile.Tier, profile.RankPoints.Int()))
		}

		delete(e.inBattle, p)
	}

	e.mu.Unlock()

	e.log.Info("battle completed",
		logger.String("battle_id", battleID.String()),
		logger.String("winner_id", winnerID.String()),
		logger.Float64("performance_ratio", outcome.PerformanceRatio))
	e.publish(events...)
	e.dispatchForwards(forwards)
	return outcome, nil
}

// GetBattle returns a copy of the battle's current state.
func (e *Engine) GetBattle(battleID shared.BattleID) (battle.Battle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.battles[battleID]
	if !ok {
		return battle.Battle{}, shared.ErrUnknownBattle
	}

	out := *b
	out.Participants = append([]shared.StudentID(nil), b.Participants...)
	return out, nil
}
