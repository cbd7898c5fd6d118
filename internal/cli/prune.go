package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"

	"github.com/runnerr0/tabtrail/internal/config"
	"github.com/runnerr0/tabtrail/internal/tracker"
)

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
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
	return c.executeWithTracker(cfg, trk)
}

// executeWithTracker runs prune against a provided tracker (for testing).
func (c *PruneCommand) executeWithTracker(cfg *config.Config, trk *tracker.Tracker) error {
	ctx := context.Background()

	cutoff, err := c.resolveCutoff(cfg)
	if err != nil {
		return err
	}

	// The flag forces orphan collection on; the config supplies the default.
	orphans := c.Orphans || cfg.Retention.PruneOrphans

	if cutoff.IsZero() && !orphans {
		return fmt.Errorf("nothing to prune: retention.days is 0 and orphan pruning is off")
	}

	res, err := trk.Prune(ctx, cutoff, orphans, c.DryRun)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if c.DryRun {
		fmt.Printf("Would prune %d entries and %d orphaned records.\n", res.EntriesRemoved, res.RecordsRemoved)
		return nil
	}
	if res.EntriesRemoved == 0 && res.RecordsRemoved == 0 {
		fmt.Println("Nothing to prune.")
		return nil
	}
	pterm.Success.Printf("Pruned %d entries and %d orphaned records.\n", res.EntriesRemoved, res.RecordsRemoved)
	return nil
}

// resolveCutoff turns --older-than (or the configured retention window) into
// an absolute cutoff time. Zero means no age-based pruning.
func (c *PruneCommand) resolveCutoff(cfg *config.Config) (time.Time, error) {
	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --older-than: %w", err)
		}
		return time.Now().Add(-d), nil
	}
	if cfg.Retention.Days > 0 {
		return time.Now().AddDate(0, 0, -cfg.Retention.Days), nil
	}
	return time.Time{}, nil
}
