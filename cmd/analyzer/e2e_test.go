//go:build e2e

// End-to-end checks against a running analyzer. Start the service, then:
//
//	E2E_ANALYZER_URL=http://localhost:8080 go test -v -tags=e2e ./cmd/analyzer/...
package main

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseURL() string {
	if v := os.Getenv("E2E_ANALYZER_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func skipIfDown(t *testing.T, client *http.Client) {
	t.Helper()
	resp, err := client.Get(baseURL() + "/health/live")
	if err != nil {
		t.Skipf("analyzer unavailable: %v", err)
	}
	resp.Body.Close()
}

func TestHealth(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	skipIfDown(t, client)

	for _, path := range []string{"/health/live", "/health/ready"} {
		t.Run(path, func(t *testing.T) {
			resp, err := client.Get(baseURL() + path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}

func TestAnalyzeTwiceHitsCache(t *testing.T) {
	client := &http.Client{Timeout: 10 * time.Second}
	skipIfDown(t, client)

	text := `{"text":"Hoy fue un día maravilloso con mis amigos ` + time.Now().Format(time.RFC3339Nano) + `"}`
	var first, second map[string]any
	for _, out := range []*map[string]any{&first, &second} {
		resp, err := client.Post(baseURL()+"/api/v1/analyze", "application/json", strings.NewReader(text))
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		require.NoError(t, json.Unmarshal(body, out))
	}

	assert.Equal(t, first["polarity"], second["polarity"])
	assert.NotEmpty(t, first["top_words"])
	t.Logf("tone=%v cache_hit(second)=%v", second["tone"], second["cache_hit"])
}

func TestEmptyTextRejected(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	skipIfDown(t, client)

	resp, err := client.Post(baseURL()+"/api/v1/analyze", "application/json", strings.NewReader(`{"text":"  "}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
