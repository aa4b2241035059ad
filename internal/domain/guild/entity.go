// Package guild contains domain entities and business logic for learner
// communities: persistent guilds and the small study parties working inside them.
// This is a pure domain layer with zero external dependencies.
package guild

import (
	"errors"
	"strings"
	"time"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// Domain errors for guild package.
var (
	ErrInvalidGuildName = errors.New("guild: name cannot be empty")
	ErrInvalidStudentID = errors.New("guild: invalid student ID")
	ErrGuildFull        = errors.New("guild: member capacity reached")
	ErrPartyFull        = errors.New("guild: party capacity reached")
	ErrAlreadyMember    = errors.New("guild: student is already a member")
	ErrNotMember        = errors.New("guild: student is not a member")
	ErrAlreadyOfficer   = errors.New("guild: student is already an officer")
)

// Capacity limits. A guild is a large community; a party is a tight working group.
const (
	DefaultMaxMembers = 50
	MaxPartySize      = 5
)

// Guild represents a persistent community of learners. Guilds accumulate XP
// from the study sessions of their affiliated parties and derive a rank tier
// from that total. A guild survives losing all of its members.
type Guild struct {
	ID       shared.GuildID
	Name     string
	LeaderID shared.StudentID

	// Members is kept in join order; leadership succession picks the first
	// officer, falling back to the first remaining member.
	Members  []shared.StudentID
	Officers []shared.StudentID

	// PartyIDs are the study parties affiliated with this guild.
	PartyIDs []shared.PartyID

	MaxMembers int
	XP         shared.XP
	Tier       string

	CreatedAt time.Time
}

// NewGuild creates a guild with the founding leader as its first member.
func NewGuild(id shared.GuildID, name string, leaderID shared.StudentID, now time.Time) (*Guild, error) {
	if !id.IsValid() {
		return nil, errors.New("guild: invalid guild ID")
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidGuildName
	}
	if !leaderID.IsValid() {
		return nil, ErrInvalidStudentID
	}

	return &Guild{
		ID:         id,
		Name:       strings.TrimSpace(name),
		LeaderID:   leaderID,
		Members:    []shared.StudentID{leaderID},
		Officers:   []shared.StudentID{},
		PartyIDs:   []shared.PartyID{},
		MaxMembers: DefaultMaxMembers,
		CreatedAt:  now,
	}, nil
}

// HasMember reports whether the student belongs to the guild.
func (g *Guild) HasMember(studentID shared.StudentID) bool {
	for _, m := range g.Members {
		if m == studentID {
			return true
		}
	}
	return false
}

// IsOfficer reports whether the student is an officer of the guild.
func (g *Guild) IsOfficer(studentID shared.StudentID) bool {
	for _, o := range g.Officers {
		if o == studentID {
			return true
		}
	}
	return false
}

// IsFull reports whether the guild is at member capacity.
func (g *Guild) IsFull() bool {
	return len(g.Members) >= g.MaxMembers
}

// AddMember adds a student, enforcing the capacity invariant.
func (g *Guild) AddMember(studentID shared.StudentID) error {
	if !studentID.IsValid() {
		return ErrInvalidStudentID
	}
	if g.HasMember(studentID) {
		return ErrAlreadyMember
	}
	if g.IsFull() {
		return ErrGuildFull
	}
	g.Members = append(g.Members, studentID)
	return nil
}

// RemoveMember removes a student from the guild. If the leader leaves,
// leadership passes to the first officer, or to the first remaining member
// when there are no officers. An empty guild keeps existing with no leader.
func (g *Guild) RemoveMember(studentID shared.StudentID) error {
	if !g.HasMember(studentID) {
		return ErrNotMember
	}

	g.Members = removeID(g.Members, studentID)
	g.Officers = removeID(g.Officers, studentID)

	if g.LeaderID == studentID {
		g.LeaderID = g.successor()
	}
	return nil
}

// successor picks the next leader after the current one left.
func (g *Guild) successor() shared.StudentID {
	if len(g.Officers) > 0 {
		return g.Officers[0]
	}
	if len(g.Members) > 0 {
		return g.Members[0]
	}
	return ""
}

// PromoteOfficer marks a member as an officer. Officers are always a subset
// of the member list.
func (g *Guild) PromoteOfficer(studentID shared.StudentID) error {
	if !g.HasMember(studentID) {
		return ErrNotMember
	}
	if g.IsOfficer(studentID) {
		return ErrAlreadyOfficer
	}
	g.Officers = append(g.Officers, studentID)
	return nil
}

// AttachParty records a party affiliation with this guild.
func (g *Guild) AttachParty(partyID shared.PartyID) {
	for _, p := range g.PartyIDs {
		if p == partyID {
			return
		}
	}
	g.PartyIDs = append(g.PartyIDs, partyID)
}

// DetachParty drops a disbanded party from the guild's party list.
func (g *Guild) DetachParty(partyID shared.PartyID) {
	out := g.PartyIDs[:0]
	for _, p := range g.PartyIDs {
		if p != partyID {
			out = append(out, p)
		}
	}
	g.PartyIDs = out
}

// AwardXP adds session XP to the guild total. Tier re-derivation happens in
// the ranking layer, which owns the threshold tables.
func (g *Guild) AwardXP(amount int) {
	g.XP = g.XP.Add(amount)
}

// MemberCount returns the number of guild members.
func (g *Guild) MemberCount() int {
	return len(g.Members)
}

// StudyParty represents a 2-5 person working group. A party's guild
// affiliation is fixed at creation, inherited from the leader's guild at that
// moment, and never changes afterwards.
type StudyParty struct {
	ID       shared.PartyID
	LeaderID shared.StudentID
	Members  []shared.StudentID

	// GuildID is empty for unaffiliated parties.
	GuildID shared.GuildID

	// CurrentSessionID is set while a study session is open.
	CurrentSessionID shared.SessionID
	SessionHistory   []shared.SessionID

	TotalXP   shared.XP
	CreatedAt time.Time
}

// NewStudyParty creates a party with the leader as its first member.
// The guild affiliation is captured once, here.
func NewStudyParty(id shared.PartyID, leaderID shared.StudentID, guildID shared.GuildID, now time.Time) (*StudyParty, error) {
	if !id.IsValid() {
		return nil, errors.New("guild: invalid party ID")
	}
	if !leaderID.IsValid() {
		return nil, ErrInvalidStudentID
	}

	return &StudyParty{
		ID:             id,
		LeaderID:       leaderID,
		Members:        []shared.StudentID{leaderID},
		GuildID:        guildID,
		SessionHistory: []shared.SessionID{},
		CreatedAt:      now,
	}, nil
}

// HasMember reports whether the student belongs to the party.
func (p *StudyParty) HasMember(studentID shared.StudentID) bool {
	for _, m := range p.Members {
		if m == studentID {
			return true
		}
	}
	return false
}

// IsFull reports whether the party is at capacity.
func (p *StudyParty) IsFull() bool {
	return len(p.Members) >= MaxPartySize
}

// AddMember adds a student, enforcing the party size invariant.
func (p *StudyParty) AddMember(studentID shared.StudentID) error {
	if !studentID.IsValid() {
		return ErrInvalidStudentID
	}
	if p.HasMember(studentID) {
		return ErrAlreadyMember
	}
	if p.IsFull() {
		return ErrPartyFull
	}
	p.Members = append(p.Members, studentID)
	return nil
}

// RemoveMember removes a student and returns true when the party became
// empty. Empty parties are deleted by the caller; unlike guilds they do not
// persist. Leadership falls to the first remaining member.
func (p *StudyParty) RemoveMember(studentID shared.StudentID) (empty bool, err error) {
	if !p.HasMember(studentID) {
		return false, ErrNotMember
	}

	p.Members = removeID(p.Members, studentID)
	if len(p.Members) == 0 {
		return true, nil
	}
	if p.LeaderID == studentID {
		p.LeaderID = p.Members[0]
	}
	return false, nil
}

// HasActiveSession reports whether a study session is currently open.
func (p *StudyParty) HasActiveSession() bool {
	return p.CurrentSessionID.IsValid()
}

// BeginSession records the newly opened session as current.
func (p *StudyParty) BeginSession(sessionID shared.SessionID) {
	p.CurrentSessionID = sessionID
}

// CloseSession archives the current session and credits the earned XP.
func (p *StudyParty) CloseSession(totalXP int) {
	if p.CurrentSessionID.IsValid() {
		p.SessionHistory = append(p.SessionHistory, p.CurrentSessionID)
	}
	p.CurrentSessionID = ""
	p.TotalXP = p.TotalXP.Add(totalXP)
}

// MemberCount returns the number of party members.
func (p *StudyParty) MemberCount() int {
	return len(p.Members)
}

// removeID removes the first occurrence of id preserving order.
func removeID(ids []shared.StudentID, id shared.StudentID) []shared.StudentID {
	out := ids[:0]
	for _, m := range ids {
		if m != id {
			out = append(out, m)
		}
	}
	return out
}
