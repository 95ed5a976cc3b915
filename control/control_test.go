package control

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railwatch.dev/railwatch/monitor"
)

func testServer(t *testing.T) (*Server, *monitor.State) {
	state := monitor.NewState()
	s := New(":0", state, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
	s.Now = func() time.Time {
		return time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	}
	return s, state
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestSnooze(t *testing.T) {
	s, state := testServer(t)

	req := httptest.NewRequest("POST", "/snooze", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
		Cutoff  string `json:"cutoff"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "2026-08-25T08:00:00Z", resp.Cutoff)
	assert.Contains(t, resp.Message, "snoozing until")

	// The monitor's gate sees the snooze
	assert.True(t, state.Suppressed(time.Date(2026, 8, 25, 7, 0, 0, 0, time.UTC), "20260825"))
	assert.False(t, state.Suppressed(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC), "20260825"))
}

func TestSkipNextDay(t *testing.T) {
	s, state := testServer(t)

	req := httptest.NewRequest("POST", "/skip-next-day", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OK          bool   `json:"ok"`
		Message     string `json:"message"`
		SkippedDate string `json:"skipped_date"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "2026-08-25", resp.SkippedDate)

	assert.True(t, state.Suppressed(time.Date(2026, 8, 25, 8, 0, 0, 0, time.UTC), "20260825"))
	assert.False(t, state.Suppressed(time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC), "20260824"))
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := testServer(t)

	for _, path := range []string{"/snooze", "/skip-next-day"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}

func TestHealthz(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetrics(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "railwatch_cycles_total")
}
