package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"

	"github.com/runnerr0/tabtrail/internal/snapshot"
	"github.com/runnerr0/tabtrail/internal/tracker"
)

// Execute implements the go-flags Commander interface for SnapshotCommand.
func (c *SnapshotCommand) Execute(args []string) error {
	if c.Tab <= 0 {
		return fmt.Errorf("--tab is required")
	}
	if c.URL == "" {
		return fmt.Errorf("--url is required")
	}

	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg, c.globals)
	if err != nil {
		return err
	}
	defer closeStore()

	trk := newTracker(cfg, store, newLogger(cfg, c.globals, os.Stderr))
	return c.executeWithTracker(trk)
}

// executeWithTracker runs snapshot against a provided tracker (for testing).
func (c *SnapshotCommand) executeWithTracker(trk *tracker.Tracker) error {
	ctx := context.Background()

	snap, err := c.capture(ctx)
	if err != nil {
		return err
	}
	if c.Title != "" {
		snap.Title = c.Title
	}

	entry, err := trk.OnSnapshotRequested(ctx, c.Tab, *snap)
	if err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	}

	title := entry.Title
	if title == "" {
		title = "(untitled)"
	}
	pterm.Success.Printf("Captured %s for tab %d\n", entry.URL, c.Tab)
	fmt.Printf("  Title:    %s\n", title)
	fmt.Printf("  Visited:  %s\n", formatMillis(entry.EntryTime))
	if entry.RefererURL != nil {
		fmt.Printf("  Referrer: %s\n", *entry.RefererURL)
	}
	fmt.Printf("  Content:  %d characters of markdown\n", len(entry.PageContentMarkdown))

	return nil
}

// capture builds the snapshot either from a local HTML file or by fetching
// the URL over HTTP.
func (c *SnapshotCommand) capture(ctx context.Context) (*snapshot.Snapshot, error) {
	if c.HTMLFile != "" {
		data, err := os.ReadFile(c.HTMLFile)
		if err != nil {
			return nil, fmt.Errorf("read html file: %w", err)
		}
		doc := string(data)
		return &snapshot.Snapshot{
			URL:          c.URL,
			Title:        snapshot.ExtractTitle(doc),
			RenderedHTML: doc,
			EntryTime:    time.Now().UnixMilli(),
		}, nil
	}

	var spinner *pterm.SpinnerPrinter
	if c.globals == nil || !c.globals.JSON {
		spinner, _ = pterm.DefaultSpinner.Start(fmt.Sprintf("Fetching %s...", c.URL))
	}
	ext := snapshot.NewHTTPExtractor(time.Duration(c.Timeout) * time.Second)
	snap, err := ext.Extract(ctx, c.URL)
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	return snap, nil
}
