package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edquest-hub/edquest-arena/config"
	"github.com/edquest-hub/edquest-arena/internal/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	eng, err := engine.New(engine.Config{})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0 // no throttling in tests

	return NewServer(cfg, Dependencies{Engine: eng})
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func TestGuildLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/guilds", map[string]string{
		"name":      "Night Owls",
		"leader_id": "alice",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created guildBody
	decodeData(t, rec, &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Night Owls", created.Name)
	assert.Equal(t, "alice", created.LeaderID)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/guilds/"+created.ID+"/members", map[string]string{
		"student_id": "bob",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/guilds/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched guildBody
	decodeData(t, rec, &fetched)
	assert.Contains(t, fetched.Members, "bob")
}

func TestGetGuild_NotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/guilds/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/parties", map[string]string{
		"leader_id": "alice",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var party partyBody
	decodeData(t, rec, &party)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/parties/"+party.ID+"/sessions", map[string]string{
		"type": "PROBLEM_SOLVING",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var started map[string]string
	decodeData(t, rec, &started)
	sessionID := started["session_id"]
	require.NotEmpty(t, sessionID)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/sessions/"+sessionID+"/progress", map[string]interface{}{
		"problems_solved":     15,
		"collaboration_score": 0.8,
		"concepts_covered":    []string{"recursion"},
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/parties/"+party.ID+"/sessions/end", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reward rewardBody
	decodeData(t, rec, &reward)
	assert.Equal(t, 150, reward.BaseXP)
	assert.Positive(t, reward.TotalXP)
}

func TestStartSession_RejectsUnknownType(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/parties", map[string]string{"leader_id": "alice"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var party partyBody
	decodeData(t, rec, &party)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/parties/"+party.ID+"/sessions", map[string]string{
		"type": "NAPPING",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMatchmakingOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	for _, id := range []string{"alice", "bob"} {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/competitors", map[string]string{"student_id": id})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/matchmaking/queue", map[string]interface{}{
		"student_id":  "alice",
		"battle_type": "SPEED_SOLVE",
		"rank_range":  100,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	// Second compatible competitor gets matched immediately.
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/matchmaking/queue", map[string]interface{}{
		"student_id":  "bob",
		"battle_type": "SPEED_SOLVE",
		"rank_range":  100,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var matched map[string]string
	decodeData(t, rec, &matched)
	battleID := matched["battle_id"]
	require.NotEmpty(t, battleID)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/battles/"+battleID+"/result", map[string]interface{}{
		"winner_id": "alice",
		"scores":    map[string]float64{"alice": 95, "bob": 78},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var outcome map[string]interface{}
	decodeData(t, rec, &outcome)
	assert.Equal(t, "alice", outcome["winner_id"])
	assert.EqualValues(t, 155, outcome["winner_xp"])

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/battles/"+battleID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var b battleBody
	decodeData(t, rec, &b)
	assert.Equal(t, "completed", b.Status)
	assert.Equal(t, "alice", b.WinnerID)
}

func TestEnqueue_DoubleQueueConflicts(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/competitors", map[string]string{"student_id": "alice"})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := map[string]interface{}{
		"student_id":  "alice",
		"battle_type": "QUIZ_DUEL",
		"rank_range":  50,
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/matchmaking/queue", body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/matchmaking/queue", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCompetitorLeaderboard_EngineFallback(t *testing.T) {
	srv := newTestServer(t)

	for _, id := range []string{"alice", "bob", "carol"} {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/competitors", map[string]string{"student_id": id})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/leaderboard/competitors?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var standings []competitorStandingBody
	decodeData(t, rec, &standings)
	assert.Len(t, standings, 2)
	assert.Equal(t, 1, standings[0].Rank)
}

func TestEnqueue_DisabledByFeatureFlag(t *testing.T) {
	eng, err := engine.New(engine.Config{})
	require.NoError(t, err)

	flags := config.LoadFeatureFlags()
	require.NoError(t, flags.DisableFeature(config.FeatureMatchmaking))

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	srv := NewServer(cfg, Dependencies{Engine: eng, Flags: flags})

	require.NoError(t, eng.RegisterCompetitor("alice"))

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/matchmaking/queue", map[string]interface{}{
		"student_id":  "alice",
		"battle_type": "SPEED_SOLVE",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
}

func TestAdminEndpointsRejectedWithoutToken(t *testing.T) {
	srv := newTestServer(t) // no AdminTokenHash configured

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/admin/jobs", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
