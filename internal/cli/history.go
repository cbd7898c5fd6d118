package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/runnerr0/tabtrail/internal/tracker"
)

// historyItem flattens one captured visit with the tab it belongs to.
type historyItem struct {
	TabSessionID int     `json:"tabsessionId"`
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	EntryTime    int64   `json:"entryTime"`
	RefererURL   *string `json:"reffererUrl,omitempty"`
	Duration     *int64  `json:"duration,omitempty"`
	Content      string  `json:"pageContentMarkdown,omitempty"`
}

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg, c.globals)
	if err != nil {
		return err
	}
	defer closeStore()

	trk := newTracker(cfg, store, newLogger(cfg, c.globals, os.Stderr))
	return c.executeWithTracker(trk, args)
}

// executeWithTracker runs history against a provided tracker (for testing).
func (c *HistoryCommand) executeWithTracker(trk *tracker.Tracker, args []string) error {
	ctx := context.Background()

	items, err := c.collect(ctx, trk)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		query := strings.ToLower(strings.Join(args, " "))
		items = lo.Filter(items, func(it historyItem, _ int) bool {
			return strings.Contains(strings.ToLower(it.URL), query) ||
				strings.Contains(strings.ToLower(it.Title), query)
		})
	}

	total := len(items)
	if c.Offset > 0 {
		if c.Offset >= len(items) {
			items = nil
		} else {
			items = items[c.Offset:]
		}
	}
	if c.Limit > 0 && len(items) > c.Limit {
		items = items[:c.Limit]
	}

	if !c.Content {
		for i := range items {
			items[i].Content = ""
		}
	}

	if c.globals != nil && c.globals.JSON {
		if items == nil {
			items = []historyItem{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	return c.printHuman(items, total)
}

// collect gathers entries for one tab or all tabs, oldest first within a tab.
func (c *HistoryCommand) collect(ctx context.Context, trk *tracker.Tracker) ([]historyItem, error) {
	if c.Tab > 0 {
		entries, err := trk.History(ctx, c.Tab)
		if err != nil {
			return nil, err
		}
		items := make([]historyItem, 0, len(entries))
		for _, e := range entries {
			items = append(items, toItem(c.Tab, e))
		}
		return items, nil
	}

	records, err := trk.Histories(ctx)
	if err != nil {
		return nil, err
	}
	var items []historyItem
	for _, rec := range records {
		for _, e := range rec.TabHistory {
			items = append(items, toItem(rec.TabSessionID, e))
		}
	}
	return items, nil
}

func toItem(tabID int, e tracker.HistoryEntry) historyItem {
	return historyItem{
		TabSessionID: tabID,
		URL:          e.URL,
		Title:        e.Title,
		EntryTime:    e.EntryTime,
		RefererURL:   e.RefererURL,
		Duration:     e.Duration,
		Content:      e.PageContentMarkdown,
	}
}

func (c *HistoryCommand) printHuman(items []historyItem, total int) error {
	if len(items) == 0 {
		fmt.Println("No history entries found.")
		return nil
	}

	if total > len(items) {
		fmt.Printf("Showing %d of %d entries:\n\n", len(items), total)
	} else {
		fmt.Printf("Found %d entries:\n\n", len(items))
	}

	for i, it := range items {
		title := it.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%d. [tab %d] %s\n", i+1, it.TabSessionID, title)
		fmt.Printf("   %s\n", it.URL)

		meta := []string{"Visited: " + formatMillis(it.EntryTime)}
		if it.Duration != nil {
			meta = append(meta, "Duration: "+(time.Duration(*it.Duration)*time.Millisecond).String())
		}
		if it.RefererURL != nil {
			meta = append(meta, "Referrer: "+*it.RefererURL)
		}
		fmt.Printf("   %s\n", strings.Join(meta, "  "))

		if c.Content && it.Content != "" {
			fmt.Println()
			fmt.Println(it.Content)
		}
		fmt.Println()
	}

	return nil
}
