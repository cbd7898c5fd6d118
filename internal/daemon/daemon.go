package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/runnerr0/tabtrail/internal/tracker"
)

const (
	defaultHost           = "127.0.0.1"
	defaultMaxRequestSize = 10 * 1024 * 1024

	shutdownTimeout = 3 * time.Second
)

// Options configures the daemon's listener and request policy.
type Options struct {
	Host           string
	Port           int // 0 binds an ephemeral port
	AuthToken      string
	MaxRequestSize int64
	Version        string
	Logger         *slog.Logger
}

// Server is the local HTTP endpoint the browser extension posts tab events
// to. It owns no tracking logic itself: requests are decoded, validated, and
// handed to the tracker.
type Server struct {
	tracker    *tracker.Tracker
	opts       Options
	instanceID string
	log        *slog.Logger
}

// New creates a daemon server around an existing tracker. Zero option fields
// fall back to the defaults.
func New(trk *tracker.Tracker, opts Options) *Server {
	if opts.Host == "" {
		opts.Host = defaultHost
	}
	if opts.MaxRequestSize <= 0 {
		opts.MaxRequestSize = defaultMaxRequestSize
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		tracker:    trk,
		opts:       opts,
		instanceID: uuid.NewString(),
		log:        opts.Logger,
	}
}

// Addr returns the host:port the daemon binds to.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
}

// InstanceID identifies this daemon process for the status endpoint.
func (s *Server) InstanceID() string {
	return s.instanceID
}

// Run binds the listener and serves until ctx is canceled, then shuts down
// gracefully. A bind failure is returned immediately so the caller can report
// a port conflict instead of hanging.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.Addr(), err)
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	s.log.Info("daemon listening",
		"addr", ln.Addr().String(),
		"instance", s.instanceID,
		"auth", s.opts.AuthToken != "")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		<-serveErr
		s.log.Info("daemon stopped")
		return nil
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}
