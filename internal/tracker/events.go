package tracker

import (
	"context"
	"fmt"

	"github.com/runnerr0/tabtrail/internal/snapshot"
)

// Event is a tab lifecycle or capture event delivered to the tracker. The
// daemon translates extension posts into these; tests inject them directly.
type Event interface {
	// TabID identifies the browser tab the event belongs to.
	TabID() int
	// Name is the audit/log label for the event kind.
	Name() string
}

// TabCreated fires when the browser opens a new tab.
type TabCreated struct {
	ID int
}

func (e TabCreated) TabID() int   { return e.ID }
func (e TabCreated) Name() string { return "tab_created" }

// TabNavigationCompleted fires when a tab finishes loading a URL. The daemon
// only emits it for loads that reached status "complete" with a non-empty
// URL.
type TabNavigationCompleted struct {
	ID        int
	URL       string
	EntryTime int64
}

func (e TabNavigationCompleted) TabID() int   { return e.ID }
func (e TabNavigationCompleted) Name() string { return "navigation" }

// TabRemoved fires when a tab is closed.
type TabRemoved struct {
	ID int
}

func (e TabRemoved) TabID() int   { return e.ID }
func (e TabRemoved) Name() string { return "tab_removed" }

// SnapshotRequested fires when the user asks to save the current page.
type SnapshotRequested struct {
	ID   int
	Snap snapshot.Snapshot
}

func (e SnapshotRequested) TabID() int   { return e.ID }
func (e SnapshotRequested) Name() string { return "snapshot" }

// Handle dispatches an event to the matching handler. Failures of background
// events (created, navigation, removed) are logged and swallowed: they are
// terminal for this invocation only, and the next event re-runs the
// initialization implicitly. Snapshot failures propagate because the user is
// watching for the result.
func (t *Tracker) Handle(ctx context.Context, ev Event) error {
	var err error
	switch e := ev.(type) {
	case TabCreated:
		err = t.OnTabCreated(ctx, e.ID)
	case TabNavigationCompleted:
		err = t.OnNavigationCompleted(ctx, e.ID, e.URL, e.EntryTime)
	case TabRemoved:
		err = t.OnTabRemoved(ctx, e.ID)
	case SnapshotRequested:
		_, serr := t.OnSnapshotRequested(ctx, e.ID, e.Snap)
		return serr
	default:
		return fmt.Errorf("unhandled event type %T", ev)
	}

	if err != nil {
		t.log.Error("tab event failed", "event", ev.Name(), "tab", ev.TabID(), "error", err)
	}
	return nil
}
