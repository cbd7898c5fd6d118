package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/runnerr0/tabtrail/internal/config"
	"github.com/runnerr0/tabtrail/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string `json:"version"`
	DatabasePath      string `json:"database_path,omitempty"`
	DatabaseSizeBytes int64  `json:"database_size_bytes"`
	StoredKeys        int64  `json:"stored_keys"`
	AuditEntries      int64  `json:"audit_entries"`
	ActiveSessions    int    `json:"active_sessions"`
	KnownSessions     int    `json:"known_sessions"`
	HistoryEntries    int    `json:"history_entries"`
	RetentionDays     int    `json:"retention_days"`
	LastAction        string `json:"last_action,omitempty"`
	LastActionAt      string `json:"last_action_at,omitempty"`
	DaemonRunning     bool   `json:"daemon_running"`
	DaemonVersion     string `json:"daemon_version,omitempty"`
}

// daemonStatus mirrors the daemon's /status response.
type daemonStatus struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	InstanceID string `json:"instance_id"`
	Sessions   int    `json:"sessions"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg, c.globals)
	if err != nil {
		return err
	}
	defer closeStore()

	return c.executeWithStore(cfg, store, probeDaemon(cfg))
}

// executeWithStore runs status against a provided store (for testing).
func (c *StatusCommand) executeWithStore(cfg *config.Config, store storage.Store, daemon *daemonStatus) error {
	ctx := context.Background()

	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	trk := newTracker(cfg, store, newLogger(cfg, c.globals, os.Stderr))
	sessions, err := trk.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("read sessions: %w", err)
	}

	active, history := 0, 0
	for _, s := range sessions {
		if s.Active {
			active++
		}
		history += s.HistoryCount
	}

	dbPath := ""
	if cfg.Storage.Backend != "memory" {
		dbPath, _ = resolveDBPath(cfg, c.globals)
	}

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(cfg, stats, dbPath, active, len(sessions), history, daemon)
	}
	return c.printStatusHuman(cfg, stats, dbPath, active, len(sessions), history, daemon)
}

func (c *StatusCommand) printStatusHuman(cfg *config.Config, stats *storage.Stats, dbPath string, active, known, history int, daemon *daemonStatus) error {
	fmt.Println("Tabtrail Status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", c.version)
	if dbPath != "" {
		fmt.Printf("Database:      %s (%s)\n", dbPath, formatBytes(stats.DatabaseSizeBytes))
	} else {
		fmt.Printf("Database:      in-memory (%s)\n", formatBytes(stats.DatabaseSizeBytes))
	}
	fmt.Printf("Sessions:      %d active / %d known\n", active, known)
	fmt.Printf("History:       %d entries\n", history)
	fmt.Printf("Retention:     %d days\n", cfg.Retention.Days)

	if stats.LastAction != "" {
		fmt.Printf("Last action:   %s (%s)\n", stats.LastAction, stats.LastActionAt.Local().Format("2006-01-02 15:04:05"))
	}

	fmt.Println()
	if daemon != nil {
		fmt.Printf("Daemon:        running (%s) at %s\n", daemon.Version, daemonURL(cfg))
	} else {
		fmt.Println("Daemon:        not running")
	}

	return nil
}

func (c *StatusCommand) printStatusJSON(cfg *config.Config, stats *storage.Stats, dbPath string, active, known, history int, daemon *daemonStatus) error {
	out := statusJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: stats.DatabaseSizeBytes,
		StoredKeys:        stats.Keys,
		AuditEntries:      stats.AuditEntries,
		ActiveSessions:    active,
		KnownSessions:     known,
		HistoryEntries:    history,
		RetentionDays:     cfg.Retention.Days,
		DaemonRunning:     daemon != nil,
	}

	if stats.LastAction != "" {
		out.LastAction = stats.LastAction
		out.LastActionAt = stats.LastActionAt.UTC().Format(time.RFC3339)
	}
	if daemon != nil {
		out.DaemonVersion = daemon.Version
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// probeDaemon pings the daemon's status endpoint. Returns nil if the daemon
// does not answer within 1 second.
func probeDaemon(cfg *config.Config) *daemonStatus {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(daemonURL(cfg) + "/status")
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var ds daemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&ds); err != nil {
		return nil
	}
	return &ds
}
