package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tabtrail/internal/snapshot"
	"github.com/runnerr0/tabtrail/internal/storage"
	"github.com/runnerr0/tabtrail/internal/tracker"
)

func writeHTMLFile(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	return path
}

func TestSnapshot_FromHTMLFile(t *testing.T) {
	store := storage.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	trk := tracker.New(store, snapshot.NewMarkdownConverter(), nil, discardLogger())

	path := writeHTMLFile(t, `<html><head><title>Offline Page</title></head><body><p>Hello from a file.</p></body></html>`)
	cmd := &SnapshotCommand{
		Tab:      5,
		URL:      "https://offline.test/page",
		HTMLFile: path,
		Timeout:  10,
		globals:  &GlobalFlags{},
	}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithTracker(trk))
	})

	assert.Contains(t, output, "Captured https://offline.test/page for tab 5")
	assert.Contains(t, output, "Offline Page")

	entries, err := trk.History(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Offline Page", entries[0].Title)
	assert.Contains(t, entries[0].PageContentMarkdown, "Hello from a file.")
	assert.Greater(t, entries[0].EntryTime, int64(0))
}

func TestSnapshot_TitleFlagOverrides(t *testing.T) {
	trk, _ := newTestTracker(t)

	path := writeHTMLFile(t, `<html><head><title>Page Title</title></head><body></body></html>`)
	cmd := &SnapshotCommand{
		Tab:      1,
		URL:      "https://offline.test",
		Title:    "Custom Title",
		HTMLFile: path,
		Timeout:  10,
		globals:  &GlobalFlags{},
	}

	captureOutput(t, func() {
		require.NoError(t, cmd.executeWithTracker(trk))
	})

	entries, err := trk.History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Custom Title", entries[0].Title)
}

func TestSnapshot_MissingHTMLFile(t *testing.T) {
	trk, _ := newTestTracker(t)

	cmd := &SnapshotCommand{
		Tab:      1,
		URL:      "https://offline.test",
		HTMLFile: filepath.Join(t.TempDir(), "missing.html"),
		Timeout:  10,
		globals:  &GlobalFlags{},
	}

	err := cmd.executeWithTracker(trk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read html file")
}

func TestSnapshot_FetchesOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Live Page</title></head><body><p>Served.</p></body></html>`))
	}))
	defer srv.Close()

	trk, _ := newTestTracker(t)
	cmd := &SnapshotCommand{
		Tab:     3,
		URL:     srv.URL,
		Timeout: 5,
		globals: &GlobalFlags{JSON: true},
	}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithTracker(trk))
	})

	var entry tracker.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(output)), &entry), "output should be valid JSON: %s", output)
	assert.Equal(t, srv.URL, entry.URL)
	assert.Equal(t, "Live Page", entry.Title)
	assert.Greater(t, entry.EntryTime, int64(0))
}

func TestSnapshot_FetchFailureSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	trk, _ := newTestTracker(t)
	cmd := &SnapshotCommand{
		Tab:     3,
		URL:     srv.URL,
		Timeout: 5,
		globals: &GlobalFlags{JSON: true},
	}

	err := cmd.executeWithTracker(trk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch page")
}

func TestSnapshot_ReferrerComputedFromTrail(t *testing.T) {
	trk, _ := newTestTracker(t)
	ctx := context.Background()
	require.NoError(t, trk.OnNavigationCompleted(ctx, 9, "https://first.test", 1000))
	require.NoError(t, trk.OnNavigationCompleted(ctx, 9, "https://second.test", 2000))

	path := writeHTMLFile(t, `<html><head><title>Second</title></head><body></body></html>`)
	cmd := &SnapshotCommand{
		Tab:      9,
		URL:      "https://second.test",
		HTMLFile: path,
		Timeout:  10,
		globals:  &GlobalFlags{},
	}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithTracker(trk))
	})
	assert.Contains(t, output, "Referrer: https://first.test")

	entries, err := trk.History(ctx, 9)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].RefererURL)
	assert.Equal(t, "https://first.test", *entries[0].RefererURL)
}
