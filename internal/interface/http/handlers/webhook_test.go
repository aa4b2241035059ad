package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edquest-hub/edquest-arena/internal/domain/battle"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

type fakeCompleter struct {
	battleID shared.BattleID
	winnerID shared.StudentID
	scores   map[shared.StudentID]float64
	perf     map[string]float64
	err      error
}

func (f *fakeCompleter) CompleteBattle(battleID shared.BattleID, winnerID shared.StudentID, scores map[shared.StudentID]float64, performanceData map[string]float64) (battle.Outcome, error) {
	f.battleID = battleID
	f.winnerID = winnerID
	f.scores = scores
	f.perf = performanceData
	if f.err != nil {
		return battle.Outcome{}, f.err
	}
	return battle.Outcome{
		WinnerID:           winnerID,
		PerformanceRatio:   0.55,
		WinnerXP:           155,
		LoserXP:            50,
		WinnerPointsGained: 32,
		LoserPointsLost:    15,
	}, nil
}

func postResult(t *testing.T, hook *BattleResultWebhook, payload BattleResultPayload, secret string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhook/battles/result", bytes.NewReader(body))
	if secret != "" {
		req.Header.Set(SignatureHeader, Sign([]byte(secret), body))
	}

	rec := httptest.NewRecorder()
	hook.ServeHTTP(rec, req)
	return rec
}

func TestBattleResultWebhook_CompletesBattle(t *testing.T) {
	completer := &fakeCompleter{}
	hook := NewBattleResultWebhook(completer, "top-secret", nil)

	payload := BattleResultPayload{
		BattleID: "battle-1",
		Scores: map[string]float64{
			"alice": 95,
			"bob":   78,
		},
		Performance: map[string]float64{"accuracy": 0.9},
	}

	rec := postResult(t, hook, payload, "top-secret")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, shared.BattleID("battle-1"), completer.battleID)
	assert.Equal(t, shared.StudentID("alice"), completer.winnerID)
	assert.Equal(t, 95.0, completer.scores["alice"])
	assert.Equal(t, 0.9, completer.perf["accuracy"])

	var resp BattleResultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.WinnerID)
	assert.Equal(t, 155, resp.XPDeltas["alice"])
	assert.Equal(t, 50, resp.XPDeltas["bob"])
	assert.Equal(t, 32, resp.Outcome.WinnerPointsGained)
}

func TestBattleResultWebhook_RejectsBadSignature(t *testing.T) {
	completer := &fakeCompleter{}
	hook := NewBattleResultWebhook(completer, "top-secret", nil)

	payload := BattleResultPayload{
		BattleID: "battle-1",
		Scores:   map[string]float64{"alice": 1},
	}

	rec := postResult(t, hook, payload, "wrong-secret")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, completer.battleID)
}

func TestBattleResultWebhook_MissingSignature(t *testing.T) {
	hook := NewBattleResultWebhook(&fakeCompleter{}, "top-secret", nil)

	rec := postResult(t, hook, BattleResultPayload{BattleID: "b", Scores: map[string]float64{"a": 1}}, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBattleResultWebhook_DisabledWithoutSecret(t *testing.T) {
	hook := NewBattleResultWebhook(&fakeCompleter{}, "", nil)

	rec := postResult(t, hook, BattleResultPayload{BattleID: "b", Scores: map[string]float64{"a": 1}}, "anything")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBattleResultWebhook_UnknownBattleIs404(t *testing.T) {
	completer := &fakeCompleter{err: shared.ErrUnknownBattle}
	hook := NewBattleResultWebhook(completer, "top-secret", nil)

	payload := BattleResultPayload{
		BattleID: "missing",
		Scores:   map[string]float64{"alice": 1},
	}

	rec := postResult(t, hook, payload, "top-secret")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBattleResultWebhook_RequiresScores(t *testing.T) {
	hook := NewBattleResultWebhook(&fakeCompleter{}, "top-secret", nil)

	rec := postResult(t, hook, BattleResultPayload{BattleID: "battle-1"}, "top-secret")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecideWinner_TieBreaksDeterministically(t *testing.T) {
	scores := map[shared.StudentID]float64{
		"zed":   80,
		"alice": 80,
		"bob":   40,
	}

	// Same result no matter the map iteration order.
	for i := 0; i < 20; i++ {
		assert.Equal(t, shared.StudentID("alice"), decideWinner(scores))
	}
}
