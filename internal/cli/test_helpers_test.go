package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tabtrail/internal/config"
	"github.com/runnerr0/tabtrail/internal/snapshot"
	"github.com/runnerr0/tabtrail/internal/storage"
	"github.com/runnerr0/tabtrail/internal/tracker"
)

// captureOutput captures stdout during fn execution and returns it as a
// string. pterm printers hold their own writer, so they are redirected too.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	pterm.SetDefaultOutput(w)

	fn()

	w.Close()
	os.Stdout = old
	pterm.SetDefaultOutput(old)

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns defaults pointed at the in-memory backend so command
// tests never touch the filesystem.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "memory"
	return cfg
}

// newTestTracker builds a tracker over a fresh in-memory store.
func newTestTracker(t *testing.T) (*tracker.Tracker, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	return tracker.New(store, nil, nil, discardLogger()), store
}

// seedVisit mimics the extension's navigate-then-capture flow: the page is
// queued at time `at` and snapshotted half a second later.
func seedVisit(t *testing.T, trk *tracker.Tracker, tabID int, pageURL, title string, at int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, trk.OnNavigationCompleted(ctx, tabID, pageURL, at))
	_, err := trk.OnSnapshotRequested(ctx, tabID, snapshot.Snapshot{
		URL:       pageURL,
		Title:     title,
		EntryTime: at + 500,
	})
	require.NoError(t, err)
}
