package cli

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/tabtrail/internal/config"
	"github.com/runnerr0/tabtrail/internal/snapshot"
	"github.com/runnerr0/tabtrail/internal/storage"
	"github.com/runnerr0/tabtrail/internal/tracker"
)

// loadConfig resolves the configuration for a command. An explicit --config
// must load cleanly; without one the default path is loaded, created on
// first run.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals != nil && globals.Config != "" {
		return config.Load(globals.Config)
	}
	return config.LoadOrCreate()
}

// resolveDBPath determines the SQLite database file path.
// Priority: --db-path flag > config storage section.
func resolveDBPath(cfg *config.Config, globals *GlobalFlags) (string, error) {
	if globals != nil && globals.DBPath != "" {
		return globals.DBPath, nil
	}
	return cfg.DatabasePath()
}

// openStore opens the configured store backend with migrations applied.
// The returned closer releases both the store and the underlying database.
func openStore(cfg *config.Config, globals *GlobalFlags) (storage.Store, func(), error) {
	if cfg.Storage.Backend == "memory" {
		store := storage.NewMemoryStore()
		return store, func() { store.Close() }, nil
	}

	dbPath, err := resolveDBPath(cfg, globals)
	if err != nil {
		return nil, nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=%s&_foreign_keys=on",
		dbPath, strings.ToUpper(cfg.Storage.SQLiteJournalMode))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	runner := storage.NewMigrationRunner(db)
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create store: %w", err)
	}

	return store, func() {
		store.Close()
		db.Close()
	}, nil
}

// newTracker assembles a tracker from the configured capture policy.
func newTracker(cfg *config.Config, store storage.Store, log *slog.Logger) *tracker.Tracker {
	deny := tracker.NewDenylist(cfg.Capture.DenylistDomains, cfg.Capture.DenylistRegex)
	return tracker.New(store, snapshot.NewMarkdownConverter(), deny, log)
}

// newLogger builds a logger at the configured level. --verbose forces debug.
func newLogger(cfg *config.Config, globals *GlobalFlags, w io.Writer) *slog.Logger {
	level := cfg.Logging.SlogLevel()
	if globals != nil && globals.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// daemonURL is the base URL of the local daemon for this config.
func daemonURL(cfg *config.Config) string {
	return fmt.Sprintf("http://%s:%d", cfg.Daemon.Host, cfg.Daemon.Port)
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]

	n, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, w, or m suffix)", s)
	}
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatMillis renders an epoch-milliseconds timestamp for humans.
func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04:05")
}
