package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Store keys fixed by the extension wire contract. The extension's background
// worker reads and writes these exact names, so they are part of the public
// boundary and must never be renamed.
const (
	KeyURLQueues  = "urlQueueList"
	KeyTimeQueues = "timeQueueList"
	KeyWebHistory = "webhistory"
)

// Store is the persistent keyed-JSON adapter the tracker runs on. Values are
// opaque JSON documents; missing keys are simply absent from Get results.
// Implementations must leave prior state unchanged when an operation fails —
// callers treat failures as non-fatal and retry implicitly on the next event.
type Store interface {
	Get(ctx context.Context, keys []string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, values map[string]json.RawMessage) error
	Delete(ctx context.Context, keys []string) error
	Audit(ctx context.Context, entry AuditEntry) error
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	getValue    *sql.Stmt
	setValue    *sql.Stmt
	deleteValue *sql.Stmt
	insertAudit *sql.Stmt
}

// NewSQLiteStore creates a SQLiteStore from an already-opened and migrated
// database. The caller keeps ownership of the *sql.DB.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getValue, err = s.db.Prepare(`SELECT value FROM kv WHERE key = ?`)
	if err != nil {
		return err
	}

	s.setValue, err = s.db.Prepare(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}

	s.deleteValue, err = s.db.Prepare(`DELETE FROM kv WHERE key = ?`)
	if err != nil {
		return err
	}

	s.insertAudit, err = s.db.Prepare(`
		INSERT INTO audit_log (action, detail, tab_session_id, ts)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	return nil
}

// Get fetches the values for the given keys. Keys without a stored value are
// omitted from the result map.
func (s *SQLiteStore) Get(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(keys))

	for _, key := range keys {
		var raw []byte
		err := s.getValue.QueryRowContext(ctx, key).Scan(&raw)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %q: %w", key, err)
		}
		out[key] = json.RawMessage(raw)
	}

	return out, nil
}

// Set upserts all given key/value pairs in a single transaction, so a failed
// write never leaves a partial update behind.
func (s *SQLiteStore) Set(ctx context.Context, values map[string]json.RawMessage) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339)
	stmt := tx.StmtContext(ctx, s.setValue)
	for key, value := range values {
		if !json.Valid(value) {
			return fmt.Errorf("set %q: value is not valid JSON", key)
		}
		if _, err := stmt.ExecContext(ctx, key, []byte(value), now); err != nil {
			return fmt.Errorf("set %q: %w", key, err)
		}
	}

	return tx.Commit()
}

// Delete removes the given keys. Missing keys are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := tx.StmtContext(ctx, s.deleteValue)
	for _, key := range keys {
		if _, err := stmt.ExecContext(ctx, key); err != nil {
			return fmt.Errorf("delete %q: %w", key, err)
		}
	}

	return tx.Commit()
}

// Audit records one tracker action in the audit log.
func (s *SQLiteStore) Audit(ctx context.Context, entry AuditEntry) error {
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}

	var tabID interface{}
	if entry.TabSessionID != 0 {
		tabID = entry.TabSessionID
	}

	_, err := s.insertAudit.ExecContext(ctx,
		entry.Action, entry.Detail, tabID, at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Stats returns aggregate statistics about the store.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kv").Scan(&stats.Keys)
	if err != nil {
		return nil, fmt.Errorf("count keys: %w", err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log").Scan(&stats.AuditEntries)
	if err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}

	if stats.AuditEntries > 0 {
		var action string
		var tsStr string
		err = s.db.QueryRowContext(ctx,
			"SELECT action, ts FROM audit_log ORDER BY id DESC LIMIT 1",
		).Scan(&action, &tsStr)
		if err != nil {
			return nil, fmt.Errorf("last audit entry: %w", err)
		}
		stats.LastAction = action
		stats.LastActionAt, _ = parseTimestamp(tsStr)
	}

	stats.DatabaseSizeBytes = s.databaseSize(ctx)

	return stats, nil
}

// databaseSize queries page_count * page_size, which works for both file and
// in-memory databases.
func (s *SQLiteStore) databaseSize(ctx context.Context) int64 {
	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// parseTimestamp tries the timestamp formats SQLite hands back.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed — that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.getValue, s.setValue, s.deleteValue, s.insertAudit,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
