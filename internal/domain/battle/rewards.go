package battle

import (
	"math"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// Flat reward constants. The loser always receives participation XP and
// always loses the same fraction of the base point stake.
const (
	baseWinXP       = 100
	loserFlatXP     = 50
	basePointStake  = 25
	loserLossFactor = 0.6
)

// Outcome is the reward resolution of a completed battle.
type Outcome struct {
	WinnerID shared.StudentID

	// PerformanceRatio is the winner's score divided by the sum of all
	// participants' scores; 1.0 when the total is zero.
	PerformanceRatio float64

	WinnerXP           int
	LoserXP            int
	WinnerPointsGained int
	LoserPointsLost    int
}

// ComputeOutcome applies the battle reward formula:
//
//	performanceRatio   = scores[winner] / sum(scores)  (1.0 if total is 0)
//	winnerXP           = round(100 × (1 + performanceRatio))
//	loserXP            = 50
//	winnerPointsGained = round(25 × (1 + performanceRatio × 0.5))
//	loserPointsLost    = round(25 × 0.6)
func ComputeOutcome(winnerID shared.StudentID, participants []shared.StudentID, scores map[shared.StudentID]float64) Outcome {
	total := 0.0
	for _, p := range participants {
		total += scores[p]
	}

	ratio := 1.0
	if total > 0 {
		ratio = scores[winnerID] / total
	}

	return Outcome{
		WinnerID:           winnerID,
		PerformanceRatio:   ratio,
		WinnerXP:           int(math.Round(baseWinXP * (1 + ratio))),
		LoserXP:            loserFlatXP,
		WinnerPointsGained: int(math.Round(basePointStake * (1 + ratio*0.5))),
		LoserPointsLost:    int(math.Round(basePointStake * loserLossFactor)),
	}
}
