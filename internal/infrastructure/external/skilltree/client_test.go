package skilltree

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig(srv.URL)
	cfg.APIKey = "test-key"
	cfg.RateLimiterConfig.RequestsPerSecond = 1000
	cfg.RateLimiterConfig.BurstSize = 1000
	cfg.RateLimiterConfig.MinInterval = 0
	return NewClient(cfg), srv
}

func TestPostXPAward(t *testing.T) {
	var gotAuth string
	var gotBody XPAwardRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(XPAwardResponse{
			AwardID:   "award-1",
			StudentID: gotBody.StudentID,
			NewTotal:  500,
		})
	})

	award := NewXPAwardRequest("alice", 155, "battle", time.Now())
	resp, err := client.PostXPAward(context.Background(), award)
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "alice", gotBody.StudentID)
	assert.Equal(t, 155, gotBody.Amount)
	assert.Equal(t, "battle", gotBody.Source)
	assert.NotEmpty(t, gotBody.IdempotencyKey)
	assert.Equal(t, 500, resp.NewTotal)
}

func TestPostXPAward_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(XPAwardResponse{AwardID: "award-2"})
	})

	award := NewXPAwardRequest("bob", 50, "battle", time.Now())
	resp, err := client.PostXPAward(context.Background(), award)
	require.NoError(t, err)
	assert.Equal(t, "award-2", resp.AwardID)
	assert.Equal(t, int64(2), calls.Load())
}

func TestPostXPAward_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int64

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "INVALID_STUDENT",
			"message": "student does not exist",
		})
	})

	award := NewXPAwardRequest("ghost", 10, "session", time.Now())
	_, err := client.PostXPAward(context.Background(), award)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_STUDENT")
	assert.Equal(t, int64(1), calls.Load(), "4xx must not be retried")
}

func TestForwarder_DeliversQueuedAwards(t *testing.T) {
	var amounts atomic.Int64

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var award XPAwardRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&award))
		amounts.Add(int64(award.Amount))
		json.NewEncoder(w).Encode(XPAwardResponse{AwardID: award.IdempotencyKey})
	})

	fwd := NewForwarder(client, nil, nil, DefaultForwarderConfig())
	fwd.ForwardXP(shared.StudentID("alice"), 155, "battle")
	fwd.ForwardXP(shared.StudentID("bob"), 50, "battle")
	fwd.ForwardXP(shared.StudentID("carol"), 0, "battle") // ignored
	fwd.Close()

	assert.Equal(t, int64(205), amounts.Load())

	stats := fwd.Stats()
	assert.Equal(t, int64(2), stats.Sent)
	assert.Equal(t, int64(0), stats.Failed)
	assert.Equal(t, 0, stats.Pending)
}
