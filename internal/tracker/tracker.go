package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/runnerr0/tabtrail/internal/snapshot"
	"github.com/runnerr0/tabtrail/internal/storage"
)

// RefererStart marks the first entry of a trail: there is no earlier page to
// refer from.
const RefererStart = "START"

// sessionKeys are the store keys one tab session spans.
var sessionKeys = []string{
	storage.KeyURLQueues,
	storage.KeyTimeQueues,
	storage.KeyWebHistory,
}

// Tracker is the per-tab state machine. All state lives in the store and
// every mutation is a full read-modify-write cycle, serialized through
// per-key locks so concurrent events cannot erase each other's writes.
type Tracker struct {
	store storage.Store
	conv  snapshot.Converter
	deny  *Denylist
	log   *slog.Logger
	locks *keyLock
}

// New creates a Tracker on the given store. conv may be nil to skip markdown
// conversion, deny may be nil to capture everything, and logger may be nil
// to use the default logger.
func New(store storage.Store, conv snapshot.Converter, deny *Denylist, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store: store,
		conv:  conv,
		deny:  deny,
		log:   logger,
		locks: newKeyLock(),
	}
}

// sessionState is the decoded view of all three session lists.
type sessionState struct {
	urls      []URLQueueRecord
	times     []TimeQueueRecord
	histories []TabHistoryRecord
}

// ensureSession loads all three lists and appends a fresh record for tabID
// wherever one is missing, persisting only the lists that changed. The
// returned state reflects the store after initialization. Idempotent: a tab
// already present everywhere causes no writes. Callers must hold all three
// key locks.
func (t *Tracker) ensureSession(ctx context.Context, tabID int) (*sessionState, error) {
	values, err := t.store.Get(ctx, sessionKeys)
	if err != nil {
		return nil, fmt.Errorf("read session lists: %w", err)
	}

	state := &sessionState{}
	if state.urls, _, err = decodeList[URLQueueRecord](values, storage.KeyURLQueues); err != nil {
		return nil, err
	}
	if state.times, _, err = decodeList[TimeQueueRecord](values, storage.KeyTimeQueues); err != nil {
		return nil, err
	}
	if state.histories, _, err = decodeList[TabHistoryRecord](values, storage.KeyWebHistory); err != nil {
		return nil, err
	}

	updates := make(map[string]json.RawMessage, 3)

	if !lo.ContainsBy(state.urls, func(r URLQueueRecord) bool { return r.TabSessionID == tabID }) {
		state.urls = append(state.urls, URLQueueRecord{TabSessionID: tabID, URLQueue: []string{}})
		if updates[storage.KeyURLQueues], err = encodeList(storage.KeyURLQueues, state.urls); err != nil {
			return nil, err
		}
	}
	if !lo.ContainsBy(state.times, func(r TimeQueueRecord) bool { return r.TabSessionID == tabID }) {
		state.times = append(state.times, TimeQueueRecord{TabSessionID: tabID, TimeQueue: []int64{}})
		if updates[storage.KeyTimeQueues], err = encodeList(storage.KeyTimeQueues, state.times); err != nil {
			return nil, err
		}
	}
	if !lo.ContainsBy(state.histories, func(r TabHistoryRecord) bool { return r.TabSessionID == tabID }) {
		state.histories = append(state.histories, TabHistoryRecord{TabSessionID: tabID, TabHistory: []HistoryEntry{}})
		if updates[storage.KeyWebHistory], err = encodeList(storage.KeyWebHistory, state.histories); err != nil {
			return nil, err
		}
	}

	if len(updates) == 0 {
		return state, nil
	}
	if err := t.store.Set(ctx, updates); err != nil {
		return nil, fmt.Errorf("initialize session %d: %w", tabID, err)
	}
	return state, nil
}

// OnTabCreated initializes the tab's queue and history records so later
// events find them in place. Safe to call for tabs that already exist.
func (t *Tracker) OnTabCreated(ctx context.Context, tabID int) error {
	unlock := t.locks.acquire(sessionKeys...)
	defer unlock()

	if _, err := t.ensureSession(ctx, tabID); err != nil {
		return err
	}

	t.audit(ctx, "tab_created", "", tabID)
	t.log.Debug("tab created", "tab", tabID)
	return nil
}

// OnNavigationCompleted appends the visited URL and its capture time to the
// tab's queues, keeping them index-aligned. Denylisted pages are not
// recorded.
func (t *Tracker) OnNavigationCompleted(ctx context.Context, tabID int, pageURL string, entryTime int64) error {
	if t.deny.Match(pageURL) {
		t.audit(ctx, "navigation_skipped", pageURL, tabID)
		t.log.Debug("navigation denylisted", "tab", tabID, "url", pageURL)
		return nil
	}

	unlock := t.locks.acquire(sessionKeys...)
	defer unlock()

	state, err := t.ensureSession(ctx, tabID)
	if err != nil {
		return err
	}

	_, ui, ok := lo.FindIndexOf(state.urls, func(r URLQueueRecord) bool { return r.TabSessionID == tabID })
	if !ok {
		return fmt.Errorf("no url queue record for tab %d", tabID)
	}
	_, ti, ok := lo.FindIndexOf(state.times, func(r TimeQueueRecord) bool { return r.TabSessionID == tabID })
	if !ok {
		return fmt.Errorf("no time queue record for tab %d", tabID)
	}

	state.urls[ui].URLQueue = append(state.urls[ui].URLQueue, pageURL)
	state.times[ti].TimeQueue = append(state.times[ti].TimeQueue, entryTime)

	urlsRaw, err := encodeList(storage.KeyURLQueues, state.urls)
	if err != nil {
		return err
	}
	timesRaw, err := encodeList(storage.KeyTimeQueues, state.times)
	if err != nil {
		return err
	}

	// One batched write keeps the queues aligned even when persistence fails.
	if err := t.store.Set(ctx, map[string]json.RawMessage{
		storage.KeyURLQueues:  urlsRaw,
		storage.KeyTimeQueues: timesRaw,
	}); err != nil {
		return fmt.Errorf("persist queues: %w", err)
	}

	t.audit(ctx, "navigation", pageURL, tabID)
	t.log.Debug("navigation recorded", "tab", tabID, "url", pageURL)
	return nil
}

// OnSnapshotRequested captures a page visit into the tab's history. The
// entry's referrer and duration come from the queues: the trail's first
// capture gets the START sentinel, later ones the URL two slots back (the
// queue already holds the current page by capture time), and duration is
// measured from the last queued timestamp. The queues themselves are left
// untouched.
func (t *Tracker) OnSnapshotRequested(ctx context.Context, tabID int, snap snapshot.Snapshot) (*HistoryEntry, error) {
	unlock := t.locks.acquire(sessionKeys...)
	defer unlock()

	state, err := t.ensureSession(ctx, tabID)
	if err != nil {
		return nil, err
	}

	urlRec, _, ok := lo.FindIndexOf(state.urls, func(r URLQueueRecord) bool { return r.TabSessionID == tabID })
	if !ok {
		return nil, fmt.Errorf("no url queue record for tab %d", tabID)
	}
	timeRec, _, ok := lo.FindIndexOf(state.times, func(r TimeQueueRecord) bool { return r.TabSessionID == tabID })
	if !ok {
		return nil, fmt.Errorf("no time queue record for tab %d", tabID)
	}
	_, hi, ok := lo.FindIndexOf(state.histories, func(r TabHistoryRecord) bool { return r.TabSessionID == tabID })
	if !ok {
		return nil, fmt.Errorf("no history record for tab %d", tabID)
	}

	entry := HistoryEntry{
		URL:       snap.URL,
		Title:     snap.Title,
		EntryTime: snap.EntryTime,
	}

	if n := len(timeRec.TimeQueue); n > 0 {
		d := snap.EntryTime - timeRec.TimeQueue[n-1]
		entry.Duration = &d
	}

	// An empty URL queue leaves the referrer unset: nothing was ever
	// navigated in this tab.
	switch n := len(urlRec.URLQueue); {
	case n == 1:
		ref := RefererStart
		entry.RefererURL = &ref
	case n > 1:
		ref := urlRec.URLQueue[n-2]
		entry.RefererURL = &ref
	}

	if t.conv != nil && snap.RenderedHTML != "" {
		md, err := t.conv.ToMarkdown(snap.RenderedHTML)
		if err != nil {
			t.log.Warn("markdown conversion failed", "tab", tabID, "url", snap.URL, "error", err)
		} else {
			entry.PageContentMarkdown = md
		}
	}

	state.histories[hi].TabHistory = append(state.histories[hi].TabHistory, entry)

	raw, err := encodeList(storage.KeyWebHistory, state.histories)
	if err != nil {
		return nil, err
	}
	if err := t.store.Set(ctx, map[string]json.RawMessage{storage.KeyWebHistory: raw}); err != nil {
		return nil, fmt.Errorf("persist history: %w", err)
	}

	t.audit(ctx, "snapshot", snap.URL, tabID)
	t.log.Info("snapshot captured", "tab", tabID, "url", snap.URL)
	return &entry, nil
}

// OnTabRemoved drops the tab's queue records. The history record stays: a
// closed tab's captures remain exportable until cleared or pruned.
func (t *Tracker) OnTabRemoved(ctx context.Context, tabID int) error {
	unlock := t.locks.acquire(storage.KeyURLQueues, storage.KeyTimeQueues)
	defer unlock()

	values, err := t.store.Get(ctx, []string{storage.KeyURLQueues, storage.KeyTimeQueues})
	if err != nil {
		return fmt.Errorf("read queues: %w", err)
	}

	updates := make(map[string]json.RawMessage, 2)

	urls, present, err := decodeList[URLQueueRecord](values, storage.KeyURLQueues)
	if err != nil {
		return err
	}
	if present {
		kept := lo.Filter(urls, func(r URLQueueRecord, _ int) bool { return r.TabSessionID != tabID })
		if updates[storage.KeyURLQueues], err = encodeList(storage.KeyURLQueues, kept); err != nil {
			return err
		}
	}

	times, present, err := decodeList[TimeQueueRecord](values, storage.KeyTimeQueues)
	if err != nil {
		return err
	}
	if present {
		kept := lo.Filter(times, func(r TimeQueueRecord, _ int) bool { return r.TabSessionID != tabID })
		if updates[storage.KeyTimeQueues], err = encodeList(storage.KeyTimeQueues, kept); err != nil {
			return err
		}
	}

	if len(updates) == 0 {
		return nil
	}
	if err := t.store.Set(ctx, updates); err != nil {
		return fmt.Errorf("persist queues: %w", err)
	}

	t.audit(ctx, "tab_removed", "", tabID)
	t.log.Debug("tab removed", "tab", tabID)
	return nil
}

// audit records a tracker action. Audit writes are best-effort: a failure is
// logged and dropped, never surfaced to the event that caused it.
func (t *Tracker) audit(ctx context.Context, action, detail string, tabID int) {
	err := t.store.Audit(ctx, storage.AuditEntry{
		Action:       action,
		Detail:       detail,
		TabSessionID: tabID,
	})
	if err != nil {
		t.log.Warn("audit write failed", "action", action, "error", err)
	}
}

// decodeList unmarshals the list stored under key. A missing key decodes to
// a nil slice with present=false.
func decodeList[T any](values map[string]json.RawMessage, key string) (list []T, present bool, err error) {
	raw, ok := values[key]
	if !ok {
		return nil, false, nil
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return list, true, nil
}

// encodeList marshals a list for storage under key.
func encodeList[T any](key string, list []T) (json.RawMessage, error) {
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	return raw, nil
}
