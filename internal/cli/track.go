package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/runnerr0/tabtrail/internal/daemon"
)

// Execute implements the go-flags Commander interface for TrackCommand.
func (c *TrackCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	if c.Port != 0 {
		cfg.Daemon.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}

	store, closeStore, err := openStore(cfg, c.globals)
	if err != nil {
		return err
	}
	defer closeStore()

	// Log to the configured file once the storage directory exists; --verbose
	// keeps everything on stderr for watching live.
	logW := io.Writer(os.Stderr)
	if !c.globals.Verbose {
		if logPath, perr := cfg.LogFilePath(); perr == nil && logPath != "" {
			if f, ferr := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); ferr == nil {
				defer f.Close()
				logW = f
			} else {
				fmt.Fprintf(os.Stderr, "log file unavailable, logging to stderr: %v\n", ferr)
			}
		}
	}

	log := newLogger(cfg, c.globals, logW)
	trk := newTracker(cfg, store, log)

	srv := daemon.New(trk, daemon.Options{
		Host:           cfg.Daemon.Host,
		Port:           cfg.Daemon.Port,
		AuthToken:      cfg.Daemon.AuthToken,
		MaxRequestSize: int64(cfg.Daemon.MaxRequestSize),
		Version:        c.version,
		Logger:         log,
	})

	dbLabel := "(memory)"
	if cfg.Storage.Backend != "memory" {
		if p, perr := resolveDBPath(cfg, c.globals); perr == nil {
			dbLabel = p
		}
	}

	fmt.Printf("tabtrail %s\n", c.version)
	fmt.Printf("  Listening: %s\n", daemonURL(cfg))
	fmt.Printf("  Database:  %s\n", dbLabel)
	fmt.Println("  Ready. Press Ctrl+C to stop.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
