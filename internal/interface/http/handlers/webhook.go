package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/edquest-hub/edquest-arena/internal/domain/battle"
	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
	"github.com/edquest-hub/edquest-arena/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// BATTLE RESULT WEBHOOK
// ══════════════════════════════════════════════════════════════════════════════

// SignatureHeader carries the HMAC-SHA256 signature of the request body,
// prefixed with "sha256=".
const SignatureHeader = "X-Arena-Signature"

// maxWebhookBody caps the result payload; battle results are small.
const maxWebhookBody = 64 * 1024

// BattleCompleter finalizes a battle with participant scores.
// Satisfied by the engine.
type BattleCompleter interface {
	CompleteBattle(battleID shared.BattleID, winnerID shared.StudentID, scores map[shared.StudentID]float64, performanceData map[string]float64) (battle.Outcome, error)
}

// BattleResultPayload is the body posted by the problem-grading service
// when a battle finishes.
type BattleResultPayload struct {
	BattleID    string             `json:"battle_id"`
	Scores      map[string]float64 `json:"scores"`
	Performance map[string]float64 `json:"performance,omitempty"`
	FinishedAt  time.Time          `json:"finished_at,omitempty"`
}

// BattleResultResponse acknowledges a processed result.
type BattleResultResponse struct {
	BattleID string            `json:"battle_id"`
	WinnerID string            `json:"winner_id"`
	XPDeltas map[string]int    `json:"xp_deltas"`
	Outcome  battleOutcomeBody `json:"outcome"`
}

type battleOutcomeBody struct {
	PerformanceRatio   float64 `json:"performance_ratio"`
	WinnerXP           int     `json:"winner_xp"`
	LoserXP            int     `json:"loser_xp"`
	WinnerPointsGained int     `json:"winner_points_gained"`
	LoserPointsLost    int     `json:"loser_points_lost"`
}

// BattleResultWebhook receives signed battle results and completes the
// corresponding battle. The winner is the participant with the highest
// reported score; ties go to the lexicographically smallest student ID so
// replays of the same payload always resolve the same way.
type BattleResultWebhook struct {
	completer BattleCompleter
	secret    []byte
	log       *logger.Logger
}

// NewBattleResultWebhook creates the webhook handler. An empty secret
// disables the endpoint: every request is rejected.
func NewBattleResultWebhook(completer BattleCompleter, secret string, log *logger.Logger) *BattleResultWebhook {
	if log == nil {
		log = logger.Default()
	}
	return &BattleResultWebhook{
		completer: completer,
		secret:    []byte(secret),
		log:       log,
	}
}

// ServeHTTP handles POST /webhook/battles/result.
func (h *BattleResultWebhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeWebhookError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if len(h.secret) == 0 {
		writeWebhookError(w, http.StatusForbidden, "webhook disabled")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeWebhookError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !h.verifySignature(body, r.Header.Get(SignatureHeader)) {
		h.log.Warn("battle result webhook rejected: bad signature",
			logger.String("remote_addr", r.RemoteAddr),
		)
		writeWebhookError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var payload BattleResultPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeWebhookError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	if payload.BattleID == "" {
		writeWebhookError(w, http.StatusBadRequest, "battle_id is required")
		return
	}
	if len(payload.Scores) == 0 {
		writeWebhookError(w, http.StatusBadRequest, "scores are required")
		return
	}

	scores := make(map[shared.StudentID]float64, len(payload.Scores))
	for id, score := range payload.Scores {
		scores[shared.StudentID(id)] = score
	}

	winnerID := decideWinner(scores)

	outcome, err := h.completer.CompleteBattle(
		shared.BattleID(payload.BattleID),
		winnerID,
		scores,
		payload.Performance,
	)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case shared.IsNotFound(err):
			status = http.StatusNotFound
		case errors.Is(err, shared.ErrInvalidState):
			status = http.StatusConflict
		case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrValidation):
			status = http.StatusBadRequest
		}
		h.log.Warn("battle result webhook: completion failed",
			logger.BattleID(payload.BattleID),
			logger.Err(err),
		)
		writeWebhookError(w, status, err.Error())
		return
	}

	h.log.Info("battle completed via webhook",
		logger.BattleID(payload.BattleID),
		logger.StudentID(string(winnerID)),
		logger.Int("winner_xp", outcome.WinnerXP),
	)

	resp := BattleResultResponse{
		BattleID: payload.BattleID,
		WinnerID: string(winnerID),
		XPDeltas: map[string]int{},
		Outcome: battleOutcomeBody{
			PerformanceRatio:   outcome.PerformanceRatio,
			WinnerXP:           outcome.WinnerXP,
			LoserXP:            outcome.LoserXP,
			WinnerPointsGained: outcome.WinnerPointsGained,
			LoserPointsLost:    outcome.LoserPointsLost,
		},
	}
	for id := range scores {
		if id == winnerID {
			resp.XPDeltas[string(id)] = outcome.WinnerXP
		} else {
			resp.XPDeltas[string(id)] = outcome.LoserXP
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// verifySignature checks the sha256= HMAC of the raw body.
func (h *BattleResultWebhook) verifySignature(body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok || sig == "" {
		return false
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return constantTimeEqual(sig, expected)
}

// Sign computes the signature header value for a payload. Exported for
// senders and tests.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func decideWinner(scores map[shared.StudentID]float64) shared.StudentID {
	var winner shared.StudentID
	best := -1.0
	for id, score := range scores {
		if score > best || (score == best && (winner == "" || id < winner)) {
			winner = id
			best = score
		}
	}
	return winner
}

func writeWebhookError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
