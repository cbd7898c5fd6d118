package tracker

// The JSON tags below are the extension's storage schema. "reffererUrl" is
// misspelled on the wire; every existing consumer reads that exact key, so
// it stays.

// URLQueueRecord is one tab's ordered log of visited URLs. Insertion order
// is significant and duplicates are allowed.
type URLQueueRecord struct {
	TabSessionID int      `json:"tabsessionId"`
	URLQueue     []string `json:"urlQueue"`
}

// TimeQueueRecord is one tab's ordered log of capture timestamps in epoch
// milliseconds, index-aligned with the URL queue.
type TimeQueueRecord struct {
	TabSessionID int     `json:"tabsessionId"`
	TimeQueue    []int64 `json:"timeQueue"`
}

// HistoryEntry is one captured page visit. RefererURL and Duration are
// pointers because the first capture of a trail has no predecessor to
// derive them from.
type HistoryEntry struct {
	URL                 string  `json:"url"`
	Title               string  `json:"title"`
	EntryTime           int64   `json:"entryTime"`
	RefererURL          *string `json:"reffererUrl,omitempty"`
	Duration            *int64  `json:"duration,omitempty"`
	PageContentMarkdown string  `json:"pageContentMarkdown,omitempty"`
}

// TabHistoryRecord is one tab's ordered history of captured visits. History
// records outlive their tab: closing a tab removes the queues but keeps the
// history until it is cleared or pruned.
type TabHistoryRecord struct {
	TabSessionID int            `json:"tabsessionId"`
	TabHistory   []HistoryEntry `json:"tabHistory"`
}

// SessionInfo summarizes one tracked tab for status output.
type SessionInfo struct {
	TabSessionID int   `json:"tabsessionId"`
	QueueDepth   int   `json:"queueDepth"`
	HistoryCount int   `json:"historyCount"`
	LastSeen     int64 `json:"lastSeen,omitempty"`
	Active       bool  `json:"active"`
}

// PruneResult reports what a prune pass removed.
type PruneResult struct {
	EntriesRemoved int  `json:"entriesRemoved"`
	RecordsRemoved int  `json:"recordsRemoved"`
	DryRun         bool `json:"dryRun,omitempty"`
}
