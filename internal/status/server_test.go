package status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"auctionbot/agent/internal/runtime"
)

type fakeHost struct {
	running   bool
	triggered int
}

func (f *fakeHost) Stats() runtime.Stats {
	return runtime.Stats{TotalListings: 7, BotListings: 2, CachedEntries: 9, CreatedListings: 1, LastCheck: time.Unix(1700000000, 0).UTC(), Running: f.running}
}

func (f *fakeHost) TriggerCycle(context.Context) { f.triggered++ }
func (f *fakeHost) IsRunning() bool              { return f.running }

func TestStats(t *testing.T) {
	srv := New(":0", &fakeHost{running: true}, zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got runtime.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 7, got.TotalListings)
	assert.Equal(t, 2, got.BotListings)
	assert.Equal(t, 9, got.CachedEntries)
	assert.Equal(t, 1, got.CreatedListings)
	assert.True(t, got.Running)
}

func TestTrigger(t *testing.T) {
	host := &fakeHost{running: true}
	srv := New(":0", host, zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/cycles", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, host.triggered)

	host.running = false
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/cycles", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, host.triggered)
}

func TestHealthAndMetrics(t *testing.T) {
	h := New(":0", &fakeHost{}, nil).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
