package worldmonitor

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SparkyNY/worldmonitor/cache"
	"github.com/SparkyNY/worldmonitor/config"
	"github.com/SparkyNY/worldmonitor/pipeline"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := &config.AppConfig{
		Server: config.ServerConfig{Port: 0},
		Sources: []config.SourceConfig{
			{Dataset: "closures", Mode: config.ModeStub, StaticWarning: "road closure feed not yet configured"},
		},
	}
	clock := clockwork.NewFakeClock()
	service := pipeline.NewService(cfg, pipeline.Deps{
		Store: cache.NewMemory(clock),
		Clock: clock,
	})
	srv := NewServer(cfg, service, InitLogging(config.LoggingConfig{Level: "error"}))
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out))
	}
	return resp.StatusCode
}

func TestHandleHealth(t *testing.T) {
	_, ts := newTestServer(t)

	var health healthResponse
	status := getJSON(t, ts.URL+"/api/health", &health)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Datasets)
}

func TestHandleDatasetNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/datasets/nope", nil))
	// Known dataset, nothing cached yet.
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/datasets/closures", nil))
}

func TestHandleRefreshThenRead(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/datasets/closures/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var refreshed pipeline.Payload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&refreshed))
	assert.Equal(t, []string{"road closure feed not yet configured"}, refreshed.Provenance.Warnings)

	var cached pipeline.Payload
	status := getJSON(t, ts.URL+"/api/datasets/closures", &cached)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, refreshed, cached)
}

func TestHandleProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte("<rss/>"))
	}))
	defer upstream.Close()

	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/proxy?url=" + url.QueryEscape(upstream.URL))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/rss+xml", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "<rss/>", string(body))
}

func TestHandleProxyRejectsRelativeTargets(t *testing.T) {
	_, ts := newTestServer(t)

	for _, target := range []string{"", "not-a-url", "ftp://example.org/feed", "/etc/passwd"} {
		status := getJSON(t, ts.URL+"/proxy?url="+url.QueryEscape(target), nil)
		assert.Equal(t, http.StatusBadRequest, status, "target %q", target)
	}
}

func TestHandleRefreshUnknownDataset(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/datasets/nope/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
