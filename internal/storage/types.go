package storage

import "time"

// AuditEntry records one tracker action for the audit log.
type AuditEntry struct {
	Action       string // "tab_created", "navigation", "snapshot", ...
	Detail       string
	TabSessionID int // 0 when the action is not tied to one tab
	At           time.Time
}

// Stats holds aggregate statistics about the store.
type Stats struct {
	Keys              int64
	AuditEntries      int64
	LastAction        string
	LastActionAt      time.Time
	DatabaseSizeBytes int64
}
