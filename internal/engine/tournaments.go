package engine

import (
	"github.com/edquest-hub/edquest-arena/internal/domain/battle"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
	"github.com/edquest-hub/edquest-arena/internal/domain/tournament"
	"github.com/edquest-hub/edquest-arena/pkg/logger"
)

// CreateTournament opens a tournament for registration inside the given
// window.
func (e *Engine) CreateTournament(name string, format tournament.Format, battleType battle.Type, capacity int, window shared.TimeRange) (shared.TournamentID, error) {
	e.mu.Lock()

	id := newTournamentID()
	t, err := tournament.NewTournament(id, name, format, battleType, capacity, window, e.clock())
	if err != nil {
		e.mu.Unlock()
		return "", shared.WrapError("tournament", "Create", shared.ErrInvalidInput, "cannot create tournament", err)
	}
	e.tournaments[id] = t

	e.mu.Unlock()

	e.log.Info("tournament created",
		logger.String("tournament_id", id.String()),
		logger.String("format", string(format)),
		logger.Int("capacity", capacity))
	e.publish(shared.NewBaseEvent(shared.EventTournamentCreated, id.String()))
	return id, nil
}

// RegisterForTournament enrolls a student. Fails with RegistrationClosed
// outside the window, TournamentFull at capacity; a duplicate registration is
// a no-op failure.
func (e *Engine) RegisterForTournament(tournamentID shared.TournamentID, studentID shared.StudentID) error {
	e.mu.Lock()

	t, ok := e.tournaments[tournamentID]
	if !ok {
		e.mu.Unlock()
		return shared.ErrTournamentNotFound
	}

	if err := t.Register(studentID, e.clock()); err != nil {
		e.mu.Unlock()
		switch err {
		case tournament.ErrRegistrationClosed:
			return shared.ErrRegistrationClosed
		case tournament.ErrFull:
			return shared.ErrTournamentFull
		case tournament.ErrAlreadyRegistered:
			return shared.ErrAlreadyRegistered
		default:
			return shared.WrapError("tournament", "Register", shared.ErrInvalidInput, "cannot register", err)
		}
	}
	e.ensureCompetitor(studentID)

	e.mu.Unlock()

	e.publish(shared.NewBaseEvent(shared.EventTournamentJoined, tournamentID.String()))
	return nil
}

// GenerateBracket builds the tournament bracket for its format. Single
// elimination generates the first round only; round robin generates the full
// schedule. Byes auto-resolve without a battle.
func (e *Engine) GenerateBracket(tournamentID shared.TournamentID) error {
	e.mu.Lock()

	t, ok := e.tournaments[tournamentID]
	if !ok {
		e.mu.Unlock()
		return shared.ErrTournamentNotFound
	}

	if err := t.GenerateBracket(e.rng, newMatchID); err != nil {
		e.mu.Unlock()
		switch err {
		case tournament.ErrBracketGenerated:
			return shared.ErrBracketExists
		case tournament.ErrNoRegistrants:
			return shared.ErrNoRegistrants
		default:
			return shared.WrapError("tournament", "GenerateBracket", shared.ErrInvalidState, "cannot generate bracket", err)
		}
	}

	format := string(t.Format)
	matches, byes := 0, 0
	for i := range t.Matches {
		if t.Matches[i].IsBye() {
			byes++
		} else {
			matches++
		}
	}
	completed := t.Status == tournament.StatusCompleted

	e.mu.Unlock()

	e.log.Info("bracket generated",
		logger.String("tournament_id", tournamentID.String()),
		logger.String("format", format),
		logger.Int("matches", matches),
		logger.Int("byes", byes))
	e.publish(shared.NewBracketGeneratedEvent(tournamentID.String(), format, matches, byes))
	if completed {
		// A bye-only bracket leaves nothing to report, so the tournament
		// closed during generation.
		e.publish(shared.NewBaseEvent(shared.EventTournamentCompleted, tournamentID.String()))
	}
	return nil
}

// ReportMatchResult records the winner of a bracket match, linking the
// battle that decided it when there was one. Standings recompute as results
// arrive; when every generated match has a winner, the tournament completes.
func (e *Engine) ReportMatchResult(tournamentID shared.TournamentID, matchID shared.MatchID, winnerID shared.StudentID, battleID shared.BattleID) error {
	e.mu.Lock()

	t, ok := e.tournaments[tournamentID]
	if !ok {
		e.mu.Unlock()
		return shared.ErrTournamentNotFound
	}

	if err := t.ReportResult(matchID, winnerID, battleID); err != nil {
		e.mu.Unlock()
		return shared.WrapError("tournament", "ReportResult", shared.ErrInvalidInput, "cannot report result", err)
	}

	completed := t.Status == tournament.StatusCompleted

	e.mu.Unlock()

	if completed {
		e.publish(shared.NewBaseEvent(shared.EventTournamentCompleted, tournamentID.String()))
	}
	return nil
}

// TournamentInfo is the admin-console projection of a tournament.
type TournamentInfo struct {
	ID          shared.TournamentID
	Name        string
	Format      tournament.Format
	BattleType  battle.Type
	Capacity    int
	Window      shared.TimeRange
	Status      tournament.Status
	Registrants []shared.StudentID
	Matches     []tournament.Match
	Standings   map[shared.StudentID]int
}

// GetTournament returns a copy of the tournament's current state.
func (e *Engine) GetTournament(tournamentID shared.TournamentID) (TournamentInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tournaments[tournamentID]
	if !ok {
		return TournamentInfo{}, shared.ErrTournamentNotFound
	}

	standings := make(map[shared.StudentID]int, len(t.Standings))
	for k, v := range t.Standings {
		standings[k] = v
	}

	return TournamentInfo{
		ID:          t.ID,
		Name:        t.Name,
		Format:      t.Format,
		BattleType:  t.BattleType,
		Capacity:    t.Capacity,
		Window:      t.Window,
		Status:      t.Status,
		Registrants: append([]shared.StudentID(nil), t.Registrants...),
		Matches:     append([]tournament.Match(nil), t.Matches...),
		Standings:   standings,
	}, nil
}
