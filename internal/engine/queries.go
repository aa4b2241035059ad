package engine

import (
	"github.com/edquest-hub/edquest-arena/internal/domain/ranking"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// RegisterCompetitor explicitly creates a ranked-play profile. Enqueueing and
// tournament registration create profiles lazily; this operation exists for
// the onboarding flow and fails on a duplicate.
func (e *Engine) RegisterCompetitor(studentID shared.StudentID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !studentID.IsValid() {
		return shared.NewDomainError("ranking", "Register", shared.ErrInvalidID, "invalid student ID")
	}
	if _, exists := e.competitors[studentID]; exists {
		return shared.ErrCompetitorExists
	}
	e.ensureCompetitor(studentID)
	return nil
}

// CompetitorStats is the dashboard projection of a ranked profile.
type CompetitorStats struct {
	StudentID     shared.StudentID
	RankPoints    shared.RankPoints
	Tier          string
	Wins          int
	Losses        int
	WinRate       float64
	CurrentStreak int
	BestStreak    int
	BestScore     float64
	AverageScore  float64
	InBattle      bool
	Queued        bool
}

// GetCompetitorStats returns a copy of the competitor's ranked profile.
func (e *Engine) GetCompetitorStats(studentID shared.StudentID) (CompetitorStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.competitors[studentID]
	if !ok {
		return CompetitorStats{}, shared.ErrCompetitorNotFound
	}
	_, fighting := e.inBattle[studentID]

	return CompetitorStats{
		StudentID:     p.StudentID,
		RankPoints:    p.RankPoints,
		Tier:          p.Tier,
		Wins:          p.Wins,
		Losses:        p.Losses,
		WinRate:       p.WinRate(),
		CurrentStreak: p.CurrentStreak,
		BestStreak:    p.BestStreak,
		BestScore:     p.BestScore,
		AverageScore:  p.AverageScore,
		InBattle:      fighting,
		Queued:        e.queueIndexOf(studentID) >= 0,
	}, nil
}

// TopCompetitors returns the top n ranked profiles by rank points, ties
// broken by lowest student ID for a deterministic ordering.
func (e *Engine) TopCompetitors(n int) []ranking.CompetitorStanding {
	e.mu.Lock()
	profiles := make([]*ranking.CompetitorProfile, 0, len(e.competitors))
	for _, p := range e.competitors {
		snapshot := *p
		profiles = append(profiles, &snapshot)
	}
	e.mu.Unlock()

	return ranking.TopCompetitors(profiles, n)
}
