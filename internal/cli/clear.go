package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"

	"github.com/runnerr0/tabtrail/internal/tracker"
)

// Execute implements the go-flags Commander interface for ClearCommand.
func (c *ClearCommand) Execute(args []string) error {
	if c.Tab <= 0 && !c.All {
		return fmt.Errorf("clear requires --tab or --all")
	}

	// Confirmation prompt unless --force. Clearing one tab is routine;
	// wiping the whole store is not.
	if c.All && !c.Force {
		fmt.Println("⚠ WARNING: This will permanently delete ALL tracked history.")
		fmt.Println("  - Every tab's URL and timing queues")
		fmt.Println("  - Every tab's captured history and page content")
		fmt.Println()
		fmt.Println("This action cannot be undone.")
		fmt.Println()
		fmt.Print(`Type "CLEAR" to confirm: `)

		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			return fmt.Errorf("aborted: no input received")
		}
		input := strings.TrimSpace(scanner.Text())
		if input != "CLEAR" {
			return fmt.Errorf("aborted: confirmation text did not match")
		}
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

// executeWithTracker runs clear against a provided tracker (for testing).
func (c *ClearCommand) executeWithTracker(trk *tracker.Tracker) error {
	ctx := context.Background()

	if c.All {
		if err := trk.ClearAll(ctx); err != nil {
			return fmt.Errorf("clear failed: %w", err)
		}
	} else {
		if err := trk.Clear(ctx, c.Tab); err != nil {
			return fmt.Errorf("clear failed: %w", err)
		}
	}

	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"cleared": true,
		}
		if c.All {
			out["scope"] = "all"
		} else {
			out["scope"] = "tab"
			out["tabsessionId"] = c.Tab
		}
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(out)
	}

	if c.All {
		pterm.Success.Println("Cleared all tracked history.")
	} else {
		pterm.Success.Printf("Cleared history for tab %d\n", c.Tab)
	}
	return nil
}
