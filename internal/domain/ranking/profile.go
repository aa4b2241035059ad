package ranking

import (
	"errors"
	"time"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// Domain errors for competitor profiles.
var (
	ErrInvalidStudentID = errors.New("ranking: invalid student ID")
	ErrNegativeScore    = errors.New("ranking: score cannot be negative")
)

// CompetitorProfile is a learner's ranked-play identity: rank points with the
// tier derived from them, win/loss tallies, streaks, and score statistics.
type CompetitorProfile struct {
	StudentID shared.StudentID

	RankPoints shared.RankPoints
	Tier       string

	Wins   int
	Losses int

	// CurrentStreak counts consecutive wins; a loss resets it to zero.
	CurrentStreak int
	BestStreak    int

	BestScore    float64
	AverageScore float64
	TotalBattles int

	CreatedAt time.Time
}

// NewCompetitorProfile registers a fresh ranked identity at zero points in
// the lowest tier of the given table.
func NewCompetitorProfile(studentID shared.StudentID, tiers *TierTable, now time.Time) (*CompetitorProfile, error) {
	if !studentID.IsValid() {
		return nil, ErrInvalidStudentID
	}

	return &CompetitorProfile{
		StudentID: studentID,
		Tier:      tiers.LowestTier(),
		CreatedAt: now,
	}, nil
}

// RecordWin applies a battle victory: tally, streak, points, tier, and score
// statistics update together.
func (p *CompetitorProfile) RecordWin(pointsGained int, score float64, tiers *TierTable) {
	p.Wins++
	p.CurrentStreak++
	if p.CurrentStreak > p.BestStreak {
		p.BestStreak = p.CurrentStreak
	}
	p.RankPoints = p.RankPoints.Add(pointsGained)
	p.Tier = tiers.Resolve(p.RankPoints)
	p.recordScore(score)
}

// RecordLoss applies a battle defeat. Rank points saturate at zero.
func (p *CompetitorProfile) RecordLoss(pointsLost int, score float64, tiers *TierTable) {
	p.Losses++
	p.CurrentStreak = 0
	p.RankPoints = p.RankPoints.Add(-pointsLost)
	p.Tier = tiers.Resolve(p.RankPoints)
	p.recordScore(score)
}

// recordScore folds a battle score into the running best/average.
func (p *CompetitorProfile) recordScore(score float64) {
	if score > p.BestScore {
		p.BestScore = score
	}
	p.AverageScore = (p.AverageScore*float64(p.TotalBattles) + score) / float64(p.TotalBattles+1)
	p.TotalBattles++
}

// WinRate returns the fraction of battles won, 0 for a fresh profile.
func (p *CompetitorProfile) WinRate() float64 {
	if p.TotalBattles == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.TotalBattles)
}
