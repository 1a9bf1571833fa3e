package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"no checks", nil, StatusUp},
		{"all up", map[string]Check{"a": Static(StatusUp, ""), "b": Static(StatusUp, "")}, StatusUp},
		{"degraded", map[string]Check{"a": Static(StatusUp, ""), "b": Static(StatusDegraded, "neutral")}, StatusDegraded},
		{"down beats degraded", map[string]Check{"a": Static(StatusDown, "x"), "b": Static(StatusDegraded, "y")}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Components, len(tt.checks))
		})
	}
}

func TestPingCheck(t *testing.T) {
	ok := PingCheck(func(context.Context) error { return nil }, StatusDown)
	assert.Equal(t, StatusUp, ok(context.Background()).Status)

	bad := PingCheck(func(context.Context) error { return errors.New("connection refused") }, StatusDown)
	got := bad(context.Background())
	assert.Equal(t, StatusDown, got.Status)
	assert.Equal(t, "connection refused", got.Message)

	soft := PingCheck(func(context.Context) error { return errors.New("cache gone") }, StatusDegraded)
	assert.Equal(t, StatusDegraded, soft(context.Background()).Status)
}

func TestRunSlowCheckIsDown(t *testing.T) {
	c := NewChecker()
	c.SetCheckTimeout(10 * time.Millisecond)
	c.Register("stuck", func(ctx context.Context) ComponentHealth {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return ComponentHealth{Status: StatusUp}
	})

	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Contains(t, report.Components["stuck"].Message, "timed out")
}

func TestRunPanickingCheckIsDown(t *testing.T) {
	c := NewChecker()
	c.Register("broken", func(context.Context) ComponentHealth { panic("nil map") })
	c.Register("fine", Static(StatusUp, ""))

	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Contains(t, report.Components["broken"].Message, "nil map")
	assert.Equal(t, StatusUp, report.Components["fine"].Status)
	assert.NotEmpty(t, report.Components["fine"].Latency)
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("sentiment", Static(StatusDegraded, "neutral scorer"))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StatusDegraded, report.Status)

	c.Register("history", Static(StatusDown, "db gone"))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
	assert.Contains(t, rec.Body.String(), "uptime")
}
