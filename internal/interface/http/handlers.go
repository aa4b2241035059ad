package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/edquest-hub/edquest-arena/config"
	"github.com/edquest-hub/edquest-arena/internal/domain/battle"
	"github.com/edquest-hub/edquest-arena/internal/domain/ranking"
	"github.com/edquest-hub/edquest-arena/internal/domain/session"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
	"github.com/edquest-hub/edquest-arena/internal/domain/tournament"
	"github.com/edquest-hub/edquest-arena/internal/engine"
	"github.com/edquest-hub/edquest-arena/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "EdQuest Arena API",
		"version":     "v1",
		"description": "REST API for the EdQuest competitive and collaborative arena",
		"endpoints": map[string]string{
			"health":      "/health",
			"guilds":      "/api/v1/guilds",
			"parties":     "/api/v1/parties",
			"matchmaking": "/api/v1/matchmaking/queue",
			"tournaments": "/api/v1/tournaments",
			"leaderboard": "/api/v1/leaderboard/competitors",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.Health.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.Health.Check(r.Context())
	if !status.Ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// GUILD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createGuildRequest struct {
	Name     string `json:"name"`
	LeaderID string `json:"leader_id"`
}

type guildBody struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	LeaderID string   `json:"leader_id"`
	Officers []string `json:"officers"`
	Members  []string `json:"members"`
	Parties  []string `json:"parties"`
	XP       int      `json:"xp"`
	Tier     string   `json:"tier"`
}

func toGuildBody(info engine.GuildInfo) guildBody {
	return guildBody{
		ID:       string(info.ID),
		Name:     info.Name,
		LeaderID: string(info.LeaderID),
		Officers: studentIDStrings(info.Officers),
		Members:  studentIDStrings(info.Members),
		Parties:  partyIDStrings(info.Parties),
		XP:       int(info.XP),
		Tier:     info.Tier,
	}
}

// handleCreateGuild handles POST /api/v1/guilds
func (s *Server) handleCreateGuild(w http.ResponseWriter, r *http.Request) {
	var req createGuildRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	guildID, err := s.deps.Engine.CreateGuild(req.Name, shared.StudentID(req.LeaderID))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	info, err := s.deps.Engine.GetGuildInfo(guildID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toGuildBody(info))
}

// handleGetGuild handles GET /api/v1/guilds/{id}
func (s *Server) handleGetGuild(w http.ResponseWriter, r *http.Request) {
	guildID := r.PathValue("id")
	if guildID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Guild ID is required")
		return
	}

	info, err := s.deps.Engine.GetGuildInfo(shared.GuildID(guildID))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toGuildBody(info))
}

type joinGuildRequest struct {
	StudentID string `json:"student_id"`
}

// handleJoinGuild handles POST /api/v1/guilds/{id}/members
func (s *Server) handleJoinGuild(w http.ResponseWriter, r *http.Request) {
	guildID := r.PathValue("id")

	var req joinGuildRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if err := s.deps.Engine.JoinGuild(shared.StudentID(req.StudentID), shared.GuildID(guildID)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"guild_id":   guildID,
		"student_id": req.StudentID,
		"status":     "joined",
	})
}

// handlePromoteOfficer handles POST /api/v1/guilds/{id}/officers
func (s *Server) handlePromoteOfficer(w http.ResponseWriter, r *http.Request) {
	guildID := r.PathValue("id")

	var req joinGuildRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if err := s.deps.Engine.PromoteOfficer(shared.GuildID(guildID), shared.StudentID(req.StudentID)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"guild_id":   guildID,
		"student_id": req.StudentID,
		"status":     "promoted",
	})
}

// handleLeaveGuild handles DELETE /api/v1/students/{id}/guild
func (s *Server) handleLeaveGuild(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")
	if studentID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Student ID is required")
		return
	}

	if err := s.deps.Engine.LeaveGuild(shared.StudentID(studentID)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"student_id": studentID,
		"status":     "left",
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// PARTY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createPartyRequest struct {
	LeaderID string `json:"leader_id"`
}

type partyBody struct {
	ID               string   `json:"id"`
	LeaderID         string   `json:"leader_id"`
	Members          []string `json:"members"`
	GuildID          string   `json:"guild_id,omitempty"`
	CurrentSessionID string   `json:"current_session_id,omitempty"`
	SessionCount     int      `json:"session_count"`
	TotalXP          int      `json:"total_xp"`
}

func toPartyBody(info engine.PartyInfo) partyBody {
	return partyBody{
		ID:               string(info.ID),
		LeaderID:         string(info.LeaderID),
		Members:          studentIDStrings(info.Members),
		GuildID:          string(info.GuildID),
		CurrentSessionID: string(info.CurrentSessionID),
		SessionCount:     info.SessionCount,
		TotalXP:          int(info.TotalXP),
	}
}

// handleCreateParty handles POST /api/v1/parties
func (s *Server) handleCreateParty(w http.ResponseWriter, r *http.Request) {
	var req createPartyRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	partyID, err := s.deps.Engine.CreateParty(shared.StudentID(req.LeaderID))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	info, err := s.deps.Engine.GetPartyInfo(partyID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPartyBody(info))
}

// handleGetParty handles GET /api/v1/parties/{id}
func (s *Server) handleGetParty(w http.ResponseWriter, r *http.Request) {
	partyID := r.PathValue("id")
	if partyID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Party ID is required")
		return
	}

	info, err := s.deps.Engine.GetPartyInfo(shared.PartyID(partyID))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPartyBody(info))
}

// handleJoinParty handles POST /api/v1/parties/{id}/members
func (s *Server) handleJoinParty(w http.ResponseWriter, r *http.Request) {
	partyID := r.PathValue("id")

	var req joinGuildRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if err := s.deps.Engine.JoinParty(shared.StudentID(req.StudentID), shared.PartyID(partyID)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"party_id":   partyID,
		"student_id": req.StudentID,
		"status":     "joined",
	})
}

// handleLeaveParty handles DELETE /api/v1/students/{id}/party
func (s *Server) handleLeaveParty(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")
	if studentID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Student ID is required")
		return
	}

	if err := s.deps.Engine.LeaveParty(shared.StudentID(studentID)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"student_id": studentID,
		"status":     "left",
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDY SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type startSessionRequest struct {
	Type string `json:"type"`
}

type sessionBody struct {
	ID                 string     `json:"id"`
	PartyID            string     `json:"party_id"`
	Type               string     `json:"type"`
	Participants       []string   `json:"participants"`
	Status             string     `json:"status"`
	StartedAt          time.Time  `json:"started_at"`
	EndedAt            *time.Time `json:"ended_at,omitempty"`
	ProblemsSolved     int        `json:"problems_solved"`
	CollaborationScore float64    `json:"collaboration_score"`
	ConceptsCovered    []string   `json:"concepts_covered,omitempty"`
	Reward             rewardBody `json:"reward"`
}

type rewardBody struct {
	BaseXP             int `json:"base_xp"`
	CollaborationBonus int `json:"collaboration_bonus"`
	EfficiencyBonus    int `json:"efficiency_bonus"`
	TotalXP            int `json:"total_xp"`
}

func toSessionBody(ss session.StudySession) sessionBody {
	return sessionBody{
		ID:                 string(ss.ID),
		PartyID:            string(ss.PartyID),
		Type:               string(ss.Type),
		Participants:       studentIDStrings(ss.Participants),
		Status:             string(ss.Status),
		StartedAt:          ss.StartedAt,
		EndedAt:            ss.EndedAt,
		ProblemsSolved:     ss.ProblemsSolved,
		CollaborationScore: ss.CollaborationScore,
		ConceptsCovered:    ss.ConceptsCovered,
		Reward:             toRewardBody(ss.Reward),
	}
}

func toRewardBody(rw session.Reward) rewardBody {
	return rewardBody{
		BaseXP:             rw.BaseXP,
		CollaborationBonus: rw.CollaborationBonus,
		EfficiencyBonus:    rw.EfficiencyBonus,
		TotalXP:            rw.TotalXP,
	}
}

// handleStartSession handles POST /api/v1/parties/{id}/sessions
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	partyID := r.PathValue("id")

	var req startSessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if !s.featureEnabled(config.FeatureStudySessions, "") {
		writeJSONError(w, http.StatusServiceUnavailable, "feature_disabled", "Study sessions are currently disabled")
		return
	}

	sessionType := session.SessionType(req.Type)
	switch sessionType {
	case session.SessionTypeProblemSolving, session.SessionTypeConceptReview,
		session.SessionTypeExamPrep, session.SessionTypePeerTeaching:
	default:
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Unknown session type: "+req.Type)
		return
	}

	sessionID, err := s.deps.Engine.StartSession(shared.PartyID(partyID), sessionType)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"session_id": string(sessionID),
		"party_id":   partyID,
		"type":       req.Type,
	})
}

type recordProgressRequest struct {
	ProblemsSolved     int      `json:"problems_solved"`
	CollaborationScore float64  `json:"collaboration_score"`
	ConceptsCovered    []string `json:"concepts_covered"`
}

// handleRecordProgress handles POST /api/v1/sessions/{id}/progress
func (s *Server) handleRecordProgress(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req recordProgressRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	err := s.deps.Engine.RecordProgress(shared.SessionID(sessionID), req.ProblemsSolved, req.CollaborationScore, req.ConceptsCovered)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"status":     "recorded",
	})
}

// handleEndSession handles POST /api/v1/parties/{id}/sessions/end
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	partyID := r.PathValue("id")

	reward, err := s.deps.Engine.EndSession(shared.PartyID(partyID))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toRewardBody(reward))
}

// handleGetSession handles GET /api/v1/sessions/{id}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Session ID is required")
		return
	}

	ss, err := s.deps.Engine.GetSession(shared.SessionID(sessionID))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionBody(ss))
}

// ══════════════════════════════════════════════════════════════════════════════
// MATCHMAKING HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type enqueueRequest struct {
	StudentID  string `json:"student_id"`
	BattleType string `json:"battle_type"`
	RankRange  int    `json:"rank_range"`
}

// handleEnqueue handles POST /api/v1/matchmaking/queue
func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if !s.featureEnabled(config.FeatureMatchmaking, req.StudentID) {
		writeJSONError(w, http.StatusServiceUnavailable, "feature_disabled", "Matchmaking is currently disabled")
		return
	}

	battleType := battle.Type(req.BattleType)
	switch battleType {
	case battle.TypeSpeedSolve, battle.TypeQuizDuel, battle.TypeCodeGolf, battle.TypeConceptClash:
	default:
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Unknown battle type: "+req.BattleType)
		return
	}

	rankRange := req.RankRange
	if rankRange <= 0 {
		rankRange = s.config.DefaultRankRange
	}

	battleID, err := s.deps.Engine.Enqueue(shared.StudentID(req.StudentID), battleType, rankRange)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if battleID == "" {
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"student_id": req.StudentID,
			"status":     "queued",
			"queue_size": s.deps.Engine.QueueLength(),
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"student_id": req.StudentID,
		"status":     "matched",
		"battle_id":  string(battleID),
	})
}

// handleQueueStatus handles GET /api/v1/matchmaking/queue
func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"queue_size": s.deps.Engine.QueueLength(),
	})
}

// handleWithdraw handles DELETE /api/v1/matchmaking/queue/{id}
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")
	if studentID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Student ID is required")
		return
	}

	if err := s.deps.Engine.Withdraw(shared.StudentID(studentID)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"student_id": studentID,
		"status":     "withdrawn",
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// BATTLE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type battleBody struct {
	ID              string             `json:"id"`
	Type            string             `json:"type"`
	Participants    []string           `json:"participants"`
	Status          string             `json:"status"`
	WinnerID        string             `json:"winner_id,omitempty"`
	Scores          map[string]float64 `json:"scores,omitempty"`
	XPDeltas        map[string]int     `json:"xp_deltas,omitempty"`
	PointDeltas     map[string]int     `json:"point_deltas,omitempty"`
	PerformanceData map[string]float64 `json:"performance_data,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
}

func toBattleBody(b battle.Battle) battleBody {
	body := battleBody{
		ID:              string(b.ID),
		Type:            string(b.Type),
		Participants:    studentIDStrings(b.Participants),
		Status:          string(b.Status),
		WinnerID:        string(b.WinnerID),
		PerformanceData: b.PerformanceData,
		CreatedAt:       b.CreatedAt,
		CompletedAt:     b.CompletedAt,
	}
	if len(b.Scores) > 0 {
		body.Scores = make(map[string]float64, len(b.Scores))
		for id, v := range b.Scores {
			body.Scores[string(id)] = v
		}
	}
	if len(b.XPDeltas) > 0 {
		body.XPDeltas = make(map[string]int, len(b.XPDeltas))
		for id, v := range b.XPDeltas {
			body.XPDeltas[string(id)] = v
		}
	}
	if len(b.PointDeltas) > 0 {
		body.PointDeltas = make(map[string]int, len(b.PointDeltas))
		for id, v := range b.PointDeltas {
			body.PointDeltas[string(id)] = v
		}
	}
	return body
}

// handleGetBattle handles GET /api/v1/battles/{id}
func (s *Server) handleGetBattle(w http.ResponseWriter, r *http.Request) {
	battleID := r.PathValue("id")
	if battleID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Battle ID is required")
		return
	}

	b, err := s.deps.Engine.GetBattle(shared.BattleID(battleID))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBattleBody(b))
}

type battleResultRequest struct {
	WinnerID    string             `json:"winner_id"`
	Scores      map[string]float64 `json:"scores"`
	Performance map[string]float64 `json:"performance"`
}

// handleBattleResult handles POST /api/v1/battles/{id}/result
func (s *Server) handleBattleResult(w http.ResponseWriter, r *http.Request) {
	battleID := r.PathValue("id")

	var req battleResultRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	scores := make(map[shared.StudentID]float64, len(req.Scores))
	for id, score := range req.Scores {
		scores[shared.StudentID(id)] = score
	}

	outcome, err := s.deps.Engine.CompleteBattle(
		shared.BattleID(battleID),
		shared.StudentID(req.WinnerID),
		scores,
		req.Performance,
	)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"battle_id":            battleID,
		"winner_id":            string(outcome.WinnerID),
		"performance_ratio":    outcome.PerformanceRatio,
		"winner_xp":            outcome.WinnerXP,
		"loser_xp":             outcome.LoserXP,
		"winner_points_gained": outcome.WinnerPointsGained,
		"loser_points_lost":    outcome.LoserPointsLost,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// TOURNAMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createTournamentRequest struct {
	Name       string    `json:"name"`
	Format     string    `json:"format"`
	BattleType string    `json:"battle_type"`
	Capacity   int       `json:"capacity"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
}

type matchBody struct {
	ID        string `json:"id"`
	Round     int    `json:"round"`
	SlotA     string `json:"slot_a"`
	SlotB     string `json:"slot_b,omitempty"`
	WinnerID  string `json:"winner_id,omitempty"`
	BattleID  string `json:"battle_id,omitempty"`
	Completed bool   `json:"completed"`
	Bye       bool   `json:"bye"`
}

type tournamentBody struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Format      string         `json:"format"`
	BattleType  string         `json:"battle_type"`
	Capacity    int            `json:"capacity"`
	From        time.Time      `json:"from"`
	To          time.Time      `json:"to"`
	Status      string         `json:"status"`
	Registrants []string       `json:"registrants"`
	Matches     []matchBody    `json:"matches,omitempty"`
	Standings   map[string]int `json:"standings,omitempty"`
}

func toTournamentBody(info engine.TournamentInfo) tournamentBody {
	body := tournamentBody{
		ID:          string(info.ID),
		Name:        info.Name,
		Format:      string(info.Format),
		BattleType:  string(info.BattleType),
		Capacity:    info.Capacity,
		From:        info.Window.From,
		To:          info.Window.To,
		Status:      string(info.Status),
		Registrants: studentIDStrings(info.Registrants),
	}
	for _, m := range info.Matches {
		body.Matches = append(body.Matches, matchBody{
			ID:        string(m.ID),
			Round:     m.Round,
			SlotA:     string(m.SlotA),
			SlotB:     string(m.SlotB),
			WinnerID:  string(m.WinnerID),
			BattleID:  string(m.BattleID),
			Completed: m.Completed,
			Bye:       m.IsBye(),
		})
	}
	if len(info.Standings) > 0 {
		body.Standings = make(map[string]int, len(info.Standings))
		for id, wins := range info.Standings {
			body.Standings[string(id)] = wins
		}
	}
	return body
}

// handleCreateTournament handles POST /api/v1/tournaments
func (s *Server) handleCreateTournament(w http.ResponseWriter, r *http.Request) {
	var req createTournamentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if !s.featureEnabled(config.FeatureTournaments, "") {
		writeJSONError(w, http.StatusServiceUnavailable, "feature_disabled", "Tournaments are currently disabled")
		return
	}

	format := tournament.Format(req.Format)
	if !format.IsValid() {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Unknown tournament format: "+req.Format)
		return
	}

	battleType := battle.Type(req.BattleType)
	switch battleType {
	case battle.TypeSpeedSolve, battle.TypeQuizDuel, battle.TypeCodeGolf, battle.TypeConceptClash:
	default:
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Unknown battle type: "+req.BattleType)
		return
	}

	window := shared.TimeRange{From: req.From, To: req.To}
	tournamentID, err := s.deps.Engine.CreateTournament(req.Name, format, battleType, req.Capacity, window)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	info, err := s.deps.Engine.GetTournament(tournamentID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTournamentBody(info))
}

// handleGetTournament handles GET /api/v1/tournaments/{id}
func (s *Server) handleGetTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID := r.PathValue("id")
	if tournamentID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Tournament ID is required")
		return
	}

	info, err := s.deps.Engine.GetTournament(shared.TournamentID(tournamentID))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTournamentBody(info))
}

// handleRegisterForTournament handles POST /api/v1/tournaments/{id}/registrations
func (s *Server) handleRegisterForTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID := r.PathValue("id")

	var req joinGuildRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if !s.featureEnabled(config.FeatureTournaments, req.StudentID) {
		writeJSONError(w, http.StatusServiceUnavailable, "feature_disabled", "Tournaments are currently disabled")
		return
	}

	if err := s.deps.Engine.RegisterForTournament(shared.TournamentID(tournamentID), shared.StudentID(req.StudentID)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"tournament_id": tournamentID,
		"student_id":    req.StudentID,
		"status":        "registered",
	})
}

// handleGenerateBracket handles POST /api/v1/tournaments/{id}/bracket (admin).
func (s *Server) handleGenerateBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID := r.PathValue("id")

	if err := s.deps.Engine.GenerateBracket(shared.TournamentID(tournamentID)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	info, err := s.deps.Engine.GetTournament(shared.TournamentID(tournamentID))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTournamentBody(info))
}

type matchResultRequest struct {
	WinnerID string `json:"winner_id"`
	BattleID string `json:"battle_id"`
}

// handleReportMatchResult handles POST /api/v1/tournaments/{id}/matches/{matchID}/result
func (s *Server) handleReportMatchResult(w http.ResponseWriter, r *http.Request) {
	tournamentID := r.PathValue("id")
	matchID := r.PathValue("matchID")

	var req matchResultRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	err := s.deps.Engine.ReportMatchResult(
		shared.TournamentID(tournamentID),
		shared.MatchID(matchID),
		shared.StudentID(req.WinnerID),
		shared.BattleID(req.BattleID),
	)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"tournament_id": tournamentID,
		"match_id":      matchID,
		"winner_id":     req.WinnerID,
		"status":        "reported",
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPETITOR & LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type competitorBody struct {
	StudentID     string  `json:"student_id"`
	RankPoints    int     `json:"rank_points"`
	Tier          string  `json:"tier"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`
	CurrentStreak int     `json:"current_streak"`
	BestStreak    int     `json:"best_streak"`
	BestScore     float64 `json:"best_score"`
	AverageScore  float64 `json:"average_score"`
	InBattle      bool    `json:"in_battle"`
	Queued        bool    `json:"queued"`
}

func toCompetitorBody(stats engine.CompetitorStats) competitorBody {
	return competitorBody{
		StudentID:     string(stats.StudentID),
		RankPoints:    int(stats.RankPoints),
		Tier:          stats.Tier,
		Wins:          stats.Wins,
		Losses:        stats.Losses,
		WinRate:       stats.WinRate,
		CurrentStreak: stats.CurrentStreak,
		BestStreak:    stats.BestStreak,
		BestScore:     stats.BestScore,
		AverageScore:  stats.AverageScore,
		InBattle:      stats.InBattle,
		Queued:        stats.Queued,
	}
}

// handleRegisterCompetitor handles POST /api/v1/competitors
func (s *Server) handleRegisterCompetitor(w http.ResponseWriter, r *http.Request) {
	var req joinGuildRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if err := s.deps.Engine.RegisterCompetitor(shared.StudentID(req.StudentID)); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	stats, err := s.deps.Engine.GetCompetitorStats(shared.StudentID(req.StudentID))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCompetitorBody(stats))
}

// handleGetCompetitor handles GET /api/v1/competitors/{id}
func (s *Server) handleGetCompetitor(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")
	if studentID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Student ID is required")
		return
	}

	stats, err := s.deps.Engine.GetCompetitorStats(shared.StudentID(studentID))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCompetitorBody(stats))
}

type competitorStandingBody struct {
	Rank       int    `json:"rank"`
	StudentID  string `json:"student_id"`
	RankPoints int    `json:"rank_points"`
	Tier       string `json:"tier"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
}

type guildStandingBody struct {
	Rank    int    `json:"rank"`
	GuildID string `json:"guild_id"`
	Name    string `json:"name"`
	XP      int    `json:"xp"`
	Tier    string `json:"tier"`
	Members int    `json:"members"`
}

// handleCompetitorLeaderboard handles GET /api/v1/leaderboard/competitors.
// Served from the redis cache when available; the engine's in-memory
// standings are the fallback.
func (s *Server) handleCompetitorLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := getQueryParamInt(r, "limit", 20)

	var standings []ranking.CompetitorStanding
	if s.deps.Leaderboards != nil && s.featureEnabled(config.FeatureLeaderboardCache, "") {
		cached, err := s.deps.Leaderboards.TopCompetitors(r.Context(), limit)
		if err == nil {
			standings = cached
		} else {
			s.logger.Warn("leaderboard cache miss, falling back to engine", logger.Err(err))
		}
	}
	if standings == nil {
		standings = s.deps.Engine.TopCompetitors(limit)
	}

	body := make([]competitorStandingBody, 0, len(standings))
	for _, st := range standings {
		body = append(body, competitorStandingBody{
			Rank:       st.Rank,
			StudentID:  string(st.StudentID),
			RankPoints: int(st.RankPoints),
			Tier:       st.Tier,
			Wins:       st.Wins,
			Losses:     st.Losses,
		})
	}

	writeJSON(w, http.StatusOK, body)
}

// handleGuildLeaderboard handles GET /api/v1/leaderboard/guilds
func (s *Server) handleGuildLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := getQueryParamInt(r, "limit", 20)

	var standings []ranking.GuildStanding
	if s.deps.Leaderboards != nil && s.featureEnabled(config.FeatureLeaderboardCache, "") {
		cached, err := s.deps.Leaderboards.TopGuilds(r.Context(), limit)
		if err == nil {
			standings = cached
		} else {
			s.logger.Warn("leaderboard cache miss, falling back to engine", logger.Err(err))
		}
	}
	if standings == nil {
		standings = s.deps.Engine.TopGuilds(limit)
	}

	body := make([]guildStandingBody, 0, len(standings))
	for _, st := range standings {
		body = append(body, guildStandingBody{
			Rank:    st.Rank,
			GuildID: string(st.GuildID),
			Name:    st.Name,
			XP:      int(st.XP),
			Tier:    st.Tier,
			Members: st.Members,
		})
	}

	writeJSON(w, http.StatusOK, body)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type jobBody struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Enabled     bool      `json:"enabled"`
	Schedule    string    `json:"schedule"`
	LastRun     time.Time `json:"last_run"`
	NextRun     time.Time `json:"next_run"`
	RunCount    int64     `json:"run_count"`
	FailCount   int64     `json:"fail_count"`
}

// handleListJobs handles GET /api/v1/admin/jobs (admin).
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Scheduler not configured")
		return
	}

	jobs := s.deps.Jobs.ListJobs()
	body := make([]jobBody, 0, len(jobs))
	for _, j := range jobs {
		body = append(body, jobBody{
			Name:        j.Name,
			Description: j.Description,
			Enabled:     j.Enabled,
			Schedule:    j.Schedule,
			LastRun:     j.LastRun,
			NextRun:     j.NextRun,
			RunCount:    j.RunCount,
			FailCount:   j.FailCount,
		})
	}

	writeJSON(w, http.StatusOK, body)
}

// handleRunJob handles POST /api/v1/admin/jobs/{name}/run (admin).
func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Scheduler not configured")
		return
	}

	name := r.PathValue("name")
	result, err := s.deps.Jobs.RunNow(r.Context(), name)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}

	resp := map[string]interface{}{
		"job_name":    result.JobName,
		"success":     result.Success,
		"duration_ms": result.Duration.Milliseconds(),
	}
	if result.Error != nil {
		resp["error"] = result.Error.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

type featureBody struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Enabled        bool   `json:"enabled"`
	RolloutPercent int    `json:"rollout_percent"`
}

// handleListFeatures handles GET /api/v1/admin/features (admin).
func (s *Server) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	if s.deps.Flags == nil {
		writeJSON(w, http.StatusOK, []featureBody{})
		return
	}

	features := s.deps.Flags.GetAllFeatures()
	body := make([]featureBody, 0, len(features))
	for _, f := range features {
		body = append(body, featureBody{
			Name:           f.Name,
			Description:    f.Description,
			Enabled:        f.Enabled,
			RolloutPercent: f.RolloutPercent,
		})
	}
	sort.Slice(body, func(i, j int) bool { return body[i].Name < body[j].Name })

	writeJSON(w, http.StatusOK, body)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// featureEnabled consults the flag set; a server without flags runs with
// everything on. studentID may be empty for features without per-student
// rollout.
func (s *Server) featureEnabled(name, studentID string) bool {
	if s.deps.Flags == nil {
		return true
	}
	return s.deps.Flags.IsEnabled(name, &config.FeatureContext{StudentID: studentID})
}

// decodeBody decodes the JSON request body into dst, writing a 400 on
// failure. Returns false when the handler should stop.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return false
	}
	return true
}

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsNotFound(err), errors.Is(err, shared.ErrNotQueued):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, shared.ErrAlreadyExists),
		errors.Is(err, shared.ErrAlreadyQueued),
		errors.Is(err, shared.ErrAlreadyInBattle),
		errors.Is(err, shared.ErrInvalidState),
		errors.Is(err, shared.ErrStateTransition),
		errors.Is(err, shared.ErrAlreadyClosed):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	case shared.IsCapacityExceeded(err):
		writeJSONError(w, http.StatusConflict, "capacity_exceeded", err.Error())
	case shared.IsRegistrationClosed(err), errors.Is(err, shared.ErrWindowClosed):
		writeJSONError(w, http.StatusConflict, "registration_closed", err.Error())
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrInvalidID),
		errors.Is(err, shared.ErrEmptyValue),
		errors.Is(err, shared.ErrNegativeValue),
		errors.Is(err, shared.ErrInvalidEntity):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		s.logger.Error("unhandled domain error",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func studentIDStrings(ids []shared.StudentID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func partyIDStrings(ids []shared.PartyID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
