package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"

	"github.com/runnerr0/tabtrail/internal/backend"
	"github.com/runnerr0/tabtrail/internal/config"
	"github.com/runnerr0/tabtrail/internal/exporter"
	"github.com/runnerr0/tabtrail/internal/tracker"
)

// Execute implements the go-flags Commander interface for ExportCommand.
func (c *ExportCommand) Execute(args []string) error {
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

// executeWithTracker runs export against a provided tracker (for testing).
func (c *ExportCommand) executeWithTracker(cfg *config.Config, trk *tracker.Tracker) error {
	ctx := context.Background()

	docs, err := c.collectDocuments(ctx, trk)
	if err != nil {
		return err
	}

	if c.Push {
		return c.push(ctx, cfg, docs)
	}
	return c.write(docs)
}

func (c *ExportCommand) collectDocuments(ctx context.Context, trk *tracker.Tracker) ([]exporter.Document, error) {
	if c.Tab > 0 {
		entries, err := trk.History(ctx, c.Tab)
		if err != nil {
			return nil, err
		}
		return exporter.FromHistory(c.Tab, entries), nil
	}

	records, err := trk.Histories(ctx)
	if err != nil {
		return nil, err
	}
	return exporter.FromRecords(records), nil
}

// write renders documents to the output file, or stdout when no file is set.
func (c *ExportCommand) write(docs []exporter.Document) error {
	if c.Out == "" {
		_, err := exporter.Write(os.Stdout, docs, c.Format)
		return err
	}

	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	n, err := exporter.Write(f, docs, c.Format)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("write output file: %w", cerr)
	}
	if err != nil {
		return err
	}

	pterm.Success.Printf("Exported %d documents to %s\n", n, c.Out)
	return nil
}

// push verifies the backend token, then uploads the documents.
func (c *ExportCommand) push(ctx context.Context, cfg *config.Config, docs []exporter.Document) error {
	if cfg.Backend.URL == "" {
		return fmt.Errorf("backend.url is not configured")
	}
	if cfg.Backend.APISecretKey == "" {
		return fmt.Errorf("backend.api_secret_key is not configured")
	}

	timeout := time.Duration(cfg.Backend.VerifyTimeoutSeconds) * time.Second
	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.APISecretKey, cfg.Backend.APISecretKey, timeout)

	spinner, _ := pterm.DefaultSpinner.Start("Verifying backend token...")
	if err := client.VerifyToken(ctx); err != nil {
		if spinner != nil {
			_ = spinner.Stop()
		}
		return err
	}
	if spinner != nil {
		spinner.UpdateText(fmt.Sprintf("Pushing %d documents...", len(docs)))
	}

	result, err := client.SaveDocuments(ctx, docs)
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return err
	}

	pterm.Success.Printf("Saved %d documents\n", result.Saved)
	if result.Message != "" {
		fmt.Printf("  Backend: %s\n", result.Message)
	}
	if result.RequestID != "" {
		fmt.Printf("  Request: %s\n", result.RequestID)
	}
	return nil
}
