package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/runnerr0/tabtrail/internal/storage"
)

// Histories returns all history records as stored.
func (t *Tracker) Histories(ctx context.Context) ([]TabHistoryRecord, error) {
	values, err := t.store.Get(ctx, []string{storage.KeyWebHistory})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	records, _, err := decodeList[TabHistoryRecord](values, storage.KeyWebHistory)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// History returns the captured entries for one tab, oldest first. A tab
// without a record returns nil.
func (t *Tracker) History(ctx context.Context, tabID int) ([]HistoryEntry, error) {
	records, err := t.Histories(ctx)
	if err != nil {
		return nil, err
	}

	rec, ok := lo.Find(records, func(r TabHistoryRecord) bool { return r.TabSessionID == tabID })
	if !ok {
		return nil, nil
	}
	return rec.TabHistory, nil
}

// Sessions summarizes every tab the store knows about, sorted by tab id.
// A session is active while its queue records exist; history-only sessions
// are closed tabs whose captures have not been cleared or pruned yet.
func (t *Tracker) Sessions(ctx context.Context) ([]SessionInfo, error) {
	values, err := t.store.Get(ctx, sessionKeys)
	if err != nil {
		return nil, fmt.Errorf("read session lists: %w", err)
	}

	urls, _, err := decodeList[URLQueueRecord](values, storage.KeyURLQueues)
	if err != nil {
		return nil, err
	}
	times, _, err := decodeList[TimeQueueRecord](values, storage.KeyTimeQueues)
	if err != nil {
		return nil, err
	}
	histories, _, err := decodeList[TabHistoryRecord](values, storage.KeyWebHistory)
	if err != nil {
		return nil, err
	}

	infos := make(map[int]*SessionInfo)
	upsert := func(tabID int) *SessionInfo {
		info, ok := infos[tabID]
		if !ok {
			info = &SessionInfo{TabSessionID: tabID}
			infos[tabID] = info
		}
		return info
	}

	for _, r := range urls {
		info := upsert(r.TabSessionID)
		info.QueueDepth = len(r.URLQueue)
		info.Active = true
	}
	for _, r := range times {
		info := upsert(r.TabSessionID)
		info.Active = true
		if n := len(r.TimeQueue); n > 0 {
			info.LastSeen = r.TimeQueue[n-1]
		}
	}
	for _, r := range histories {
		upsert(r.TabSessionID).HistoryCount = len(r.TabHistory)
	}

	ids := lo.Keys(infos)
	sort.Ints(ids)

	out := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, *infos[id])
	}
	return out, nil
}

// Clear removes every trace of one tab: queue records and history record.
func (t *Tracker) Clear(ctx context.Context, tabID int) error {
	unlock := t.locks.acquire(sessionKeys...)
	defer unlock()

	values, err := t.store.Get(ctx, sessionKeys)
	if err != nil {
		return fmt.Errorf("read session lists: %w", err)
	}

	updates := make(map[string]json.RawMessage, 3)

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

	histories, present, err := decodeList[TabHistoryRecord](values, storage.KeyWebHistory)
	if err != nil {
		return err
	}
	if present {
		kept := lo.Filter(histories, func(r TabHistoryRecord, _ int) bool { return r.TabSessionID != tabID })
		if updates[storage.KeyWebHistory], err = encodeList(storage.KeyWebHistory, kept); err != nil {
			return err
		}
	}

	if len(updates) == 0 {
		return nil
	}
	if err := t.store.Set(ctx, updates); err != nil {
		return fmt.Errorf("persist session lists: %w", err)
	}

	t.audit(ctx, "cleared", "", tabID)
	t.log.Info("session cleared", "tab", tabID)
	return nil
}

// ClearAll deletes all tracked state.
func (t *Tracker) ClearAll(ctx context.Context) error {
	unlock := t.locks.acquire(sessionKeys...)
	defer unlock()

	if err := t.store.Delete(ctx, sessionKeys); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}

	t.audit(ctx, "cleared_all", "", 0)
	t.log.Info("all sessions cleared")
	return nil
}

// Prune applies retention to the history list. Entries captured before
// cutoff are dropped (a zero cutoff skips age pruning), and when orphans is
// true, history records whose tab no longer has queue records are removed
// wholesale. With dryRun the result is computed but nothing is written.
func (t *Tracker) Prune(ctx context.Context, cutoff time.Time, orphans, dryRun bool) (*PruneResult, error) {
	unlock := t.locks.acquire(storage.KeyURLQueues, storage.KeyWebHistory)
	defer unlock()

	values, err := t.store.Get(ctx, []string{storage.KeyURLQueues, storage.KeyWebHistory})
	if err != nil {
		return nil, fmt.Errorf("read session lists: %w", err)
	}

	urls, _, err := decodeList[URLQueueRecord](values, storage.KeyURLQueues)
	if err != nil {
		return nil, err
	}
	histories, present, err := decodeList[TabHistoryRecord](values, storage.KeyWebHistory)
	if err != nil {
		return nil, err
	}

	res := &PruneResult{DryRun: dryRun}
	if !present || len(histories) == 0 {
		return res, nil
	}

	live := make(map[int]bool, len(urls))
	for _, r := range urls {
		live[r.TabSessionID] = true
	}

	kept := make([]TabHistoryRecord, 0, len(histories))
	for _, rec := range histories {
		if orphans && !live[rec.TabSessionID] {
			res.RecordsRemoved++
			res.EntriesRemoved += len(rec.TabHistory)
			continue
		}
		if !cutoff.IsZero() {
			cutoffMs := cutoff.UnixMilli()
			fresh := lo.Filter(rec.TabHistory, func(e HistoryEntry, _ int) bool {
				return e.EntryTime >= cutoffMs
			})
			res.EntriesRemoved += len(rec.TabHistory) - len(fresh)
			rec.TabHistory = fresh
		}
		kept = append(kept, rec)
	}

	if dryRun || (res.EntriesRemoved == 0 && res.RecordsRemoved == 0) {
		return res, nil
	}

	raw, err := encodeList(storage.KeyWebHistory, kept)
	if err != nil {
		return nil, err
	}
	if err := t.store.Set(ctx, map[string]json.RawMessage{storage.KeyWebHistory: raw}); err != nil {
		return nil, fmt.Errorf("persist history: %w", err)
	}

	t.audit(ctx, "pruned", fmt.Sprintf("entries=%d records=%d", res.EntriesRemoved, res.RecordsRemoved), 0)
	t.log.Info("history pruned", "entries", res.EntriesRemoved, "records", res.RecordsRemoved)
	return res, nil
}
