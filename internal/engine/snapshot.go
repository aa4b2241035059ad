package engine

import (
	"context"
	"time"

	"github.com/edquest-hub/edquest-arena/internal/domain/battle"
	"github.com/edquest-hub/edquest-arena/internal/domain/guild"
	"github.com/edquest-hub/edquest-arena/internal/domain/ranking"
	"github.com/edquest-hub/edquest-arena/internal/domain/session"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
	"github.com/edquest-hub/edquest-arena/internal/domain/tournament"
)

// Snapshot is the full serializable state of the entity registry. The engine
// is storage-agnostic: a snapshot is loaded at startup and saved at process
// boundaries (and periodically by the scheduler), nothing more.
type Snapshot struct {
	TakenAt time.Time `json:"taken_at"`

	Guilds      []*guild.Guild               `json:"guilds"`
	Parties     []*guild.StudyParty          `json:"parties"`
	Sessions    []*session.StudySession      `json:"sessions"`
	Competitors []*ranking.CompetitorProfile `json:"competitors"`
	Battles     []*battle.Battle             `json:"battles"`
	Tournaments []*tournament.Tournament     `json:"tournaments"`
	Queue       []battle.QueueEntry          `json:"queue"`
}

// SnapshotRepository persists registry snapshots. Implemented by the
// postgres layer; the engine never talks to storage directly.
type SnapshotRepository interface {
	// Save persists a snapshot, replacing any previous one.
	Save(ctx context.Context, snap *Snapshot) error

	// Load returns the most recent snapshot, or a NotFound error when the
	// store is empty.
	Load(ctx context.Context) (*Snapshot, error)
}

// ExportSnapshot copies the whole registry under the lock.
func (e *Engine) ExportSnapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &Snapshot{
		TakenAt:     e.clock(),
		Guilds:      make([]*guild.Guild, 0, len(e.guilds)),
		Parties:     make([]*guild.StudyParty, 0, len(e.parties)),
		Sessions:    make([]*session.StudySession, 0, len(e.sessions)),
		Competitors: make([]*ranking.CompetitorProfile, 0, len(e.competitors)),
		Battles:     make([]*battle.Battle, 0, len(e.battles)),
		Tournaments: make([]*tournament.Tournament, 0, len(e.tournaments)),
		Queue:       append([]battle.QueueEntry(nil), e.queue...),
	}

	for _, g := range e.guilds {
		cp := *g
		snap.Guilds = append(snap.Guilds, &cp)
	}
	for _, p := range e.parties {
		cp := *p
		snap.Parties = append(snap.Parties, &cp)
	}
	for _, s := range e.sessions {
		cp := *s
		snap.Sessions = append(snap.Sessions, &cp)
	}
	for _, c := range e.competitors {
		cp := *c
		snap.Competitors = append(snap.Competitors, &cp)
	}
	for _, b := range e.battles {
		cp := *b
		snap.Battles = append(snap.Battles, &cp)
	}
	for _, t := range e.tournaments {
		cp := *t
		snap.Tournaments = append(snap.Tournaments, &cp)
	}
	return snap
}

// ImportSnapshot replaces the registry with the snapshot's state and rebuilds
// the derived indexes (membership maps, active-battle flags). Meant to run
// once at startup before the engine serves requests.
func (e *Engine) ImportSnapshot(snap *Snapshot) {
	if snap == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.guilds = make(map[shared.GuildID]*guild.Guild, len(snap.Guilds))
	e.parties = make(map[shared.PartyID]*guild.StudyParty, len(snap.Parties))
	e.sessions = make(map[shared.SessionID]*session.StudySession, len(snap.Sessions))
	e.competitors = make(map[shared.StudentID]*ranking.CompetitorProfile, len(snap.Competitors))
	e.battles = make(map[shared.BattleID]*battle.Battle, len(snap.Battles))
	e.tournaments = make(map[shared.TournamentID]*tournament.Tournament, len(snap.Tournaments))
	e.queue = append([]battle.QueueEntry(nil), snap.Queue...)
	e.inBattle = make(map[shared.StudentID]shared.BattleID)
	e.memberGuild = make(map[shared.StudentID]shared.GuildID)
	e.memberParty = make(map[shared.StudentID]shared.PartyID)

	for _, g := range snap.Guilds {
		e.guilds[g.ID] = g
		for _, m := range g.Members {
			e.memberGuild[m] = g.ID
		}
	}
	for _, p := range snap.Parties {
		e.parties[p.ID] = p
		for _, m := range p.Members {
			e.memberParty[m] = p.ID
		}
	}
	for _, s := range snap.Sessions {
		e.sessions[s.ID] = s
	}
	for _, c := range snap.Competitors {
		e.competitors[c.StudentID] = c
	}
	for _, b := range snap.Battles {
		e.battles[b.ID] = b
		if !b.IsCompleted() {
			for _, p := range b.Participants {
				e.inBattle[p] = b.ID
			}
		}
	}
	for _, t := range snap.Tournaments {
		e.tournaments[t.ID] = t
	}
}
