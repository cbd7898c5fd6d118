package cli

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tabtrail/internal/config"
	"github.com/runnerr0/tabtrail/internal/storage"
	"github.com/runnerr0/tabtrail/internal/tracker"
)

func setupStatusTest(t *testing.T) (*StatusCommand, *config.Config, *storage.MemoryStore, *tracker.Tracker) {
	t.Helper()
	store := storage.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	trk := tracker.New(store, nil, nil, discardLogger())
	cmd := &StatusCommand{globals: &GlobalFlags{}, version: "test"}
	return cmd, testConfig(), store, trk
}

// --- human output ---

func TestStatus_HumanOutput(t *testing.T) {
	cmd, cfg, store, trk := setupStatusTest(t)
	seedVisit(t, trk, 1, "https://a.test", "Alpha", 1000)
	seedVisit(t, trk, 2, "https://b.test", "Beta", 2000)
	require.NoError(t, trk.OnTabRemoved(context.Background(), 2))

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(cfg, store, nil))
	})

	assert.Contains(t, output, "Tabtrail Status")
	assert.Contains(t, output, "Version:       test")
	assert.Contains(t, output, "1 active / 2 known")
	assert.Contains(t, output, "2 entries")
	assert.Contains(t, output, "Retention:     30 days")
	assert.Contains(t, output, "not running")
}

func TestStatus_ShowsLastAction(t *testing.T) {
	cmd, cfg, store, trk := setupStatusTest(t)
	seedVisit(t, trk, 1, "https://a.test", "Alpha", 1000)

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(cfg, store, nil))
	})

	assert.Contains(t, output, "Last action:   snapshot")
}

func TestStatus_DaemonRunning(t *testing.T) {
	cmd, cfg, store, _ := setupStatusTest(t)

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(cfg, store, &daemonStatus{Status: "ok", Version: "0.2.0"}))
	})

	assert.Contains(t, output, "running (0.2.0)")
	assert.Contains(t, output, daemonURL(cfg))
}

// --- JSON output ---

func TestStatus_JSONOutput(t *testing.T) {
	cmd, cfg, store, trk := setupStatusTest(t)
	cmd.globals.JSON = true
	seedVisit(t, trk, 1, "https://a.test", "Alpha", 1000)

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(cfg, store, nil))
	})

	var got statusJSON
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(output)), &got), "output should be valid JSON: %s", output)

	assert.Equal(t, "test", got.Version)
	assert.Equal(t, 1, got.ActiveSessions)
	assert.Equal(t, 1, got.KnownSessions)
	assert.Equal(t, 1, got.HistoryEntries)
	assert.Equal(t, 30, got.RetentionDays)
	assert.Equal(t, "snapshot", got.LastAction)
	assert.False(t, got.DaemonRunning)
	assert.Empty(t, got.DatabasePath, "memory backend has no database path")
}

func TestStatus_JSONDaemonVersion(t *testing.T) {
	cmd, cfg, store, _ := setupStatusTest(t)
	cmd.globals.JSON = true

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(cfg, store, &daemonStatus{Status: "ok", Version: "0.3.1"}))
	})

	var got statusJSON
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(output)), &got))
	assert.True(t, got.DaemonRunning)
	assert.Equal(t, "0.3.1", got.DaemonVersion)
}

// --- daemon probe ---

func TestProbeDaemon_Running(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","version":"0.9.0","instance_id":"abc","sessions":2}`))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Daemon.Host = host
	cfg.Daemon.Port = port

	ds := probeDaemon(cfg)
	require.NotNil(t, ds)
	assert.Equal(t, "ok", ds.Status)
	assert.Equal(t, "0.9.0", ds.Version)
	assert.Equal(t, 2, ds.Sessions)
}

func TestProbeDaemon_NotRunning(t *testing.T) {
	cfg := testConfig()
	cfg.Daemon.Port = 1

	assert.Nil(t, probeDaemon(cfg))
}

func TestProbeDaemon_BadStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Daemon.Host = host
	cfg.Daemon.Port = port

	assert.Nil(t, probeDaemon(cfg))
}
