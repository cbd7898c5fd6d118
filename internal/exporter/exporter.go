package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"

	"github.com/runnerr0/tabtrail/internal/tracker"
)

// DocumentMetadata is the metadata envelope the indexing backend expects.
// Field names are the backend's schema verbatim, misspelling included.
type DocumentMetadata struct {
	BrowsingSessionID int    `json:"BrowsingSessionId"`
	URL               string `json:"VisitedWebPageURL"`
	Title             string `json:"VisitedWebPageTitle"`
	VisitedAt         string `json:"VisitedWebPageDateWithTimeInISOString"`
	RefererURL        string `json:"VisitedWebPageReffererURL,omitempty"`
	DurationMillis    *int64 `json:"VisitedWebPageVisitDurationInMilliseconds,omitempty"`
}

// Document pairs one page visit's metadata with its markdown content.
type Document struct {
	Metadata    DocumentMetadata `json:"metadata"`
	PageContent string           `json:"pageContent"`
}

// FromHistory flattens one tab's history into documents, preserving entry
// order. Pure: no store access, no clock.
func FromHistory(tabID int, entries []tracker.HistoryEntry) []Document {
	return lo.Map(entries, func(e tracker.HistoryEntry, _ int) Document {
		meta := DocumentMetadata{
			BrowsingSessionID: tabID,
			URL:               e.URL,
			Title:             e.Title,
			VisitedAt:         isoMillis(e.EntryTime),
			DurationMillis:    e.Duration,
		}
		if e.RefererURL != nil {
			meta.RefererURL = *e.RefererURL
		}
		return Document{
			Metadata:    meta,
			PageContent: e.PageContentMarkdown,
		}
	})
}

// FromRecords flattens multiple history records in record order.
func FromRecords(records []tracker.TabHistoryRecord) []Document {
	docs := make([]Document, 0)
	for _, rec := range records {
		docs = append(docs, FromHistory(rec.TabSessionID, rec.TabHistory)...)
	}
	return docs
}

// Write renders docs to w in the given format and returns how many it wrote.
// Supported formats: jsonl (one document per line), json (a single indented
// array), md (a readable digest).
func Write(w io.Writer, docs []Document, format string) (int, error) {
	switch format {
	case "jsonl":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		for _, d := range docs {
			if err := enc.Encode(d); err != nil {
				return 0, fmt.Errorf("encode document: %w", err)
			}
		}
		return len(docs), nil

	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(docs); err != nil {
			return 0, fmt.Errorf("encode documents: %w", err)
		}
		return len(docs), nil

	case "md":
		for _, d := range docs {
			title := d.Metadata.Title
			if title == "" {
				title = d.Metadata.URL
			}
			fmt.Fprintf(w, "## %s\n\n", title)
			fmt.Fprintf(w, "- URL: %s\n", d.Metadata.URL)
			fmt.Fprintf(w, "- Session: %d\n", d.Metadata.BrowsingSessionID)
			fmt.Fprintf(w, "- Visited: %s\n", d.Metadata.VisitedAt)
			if d.Metadata.RefererURL != "" {
				fmt.Fprintf(w, "- Referrer: %s\n", d.Metadata.RefererURL)
			}
			if d.Metadata.DurationMillis != nil {
				fmt.Fprintf(w, "- Duration: %dms\n", *d.Metadata.DurationMillis)
			}
			if d.PageContent != "" {
				fmt.Fprintf(w, "\n%s\n", d.PageContent)
			}
			fmt.Fprintln(w)
		}
		return len(docs), nil

	default:
		return 0, fmt.Errorf("unsupported format: %s", format)
	}
}

// isoMillis renders an epoch-milliseconds timestamp the way JavaScript's
// toISOString does: UTC, millisecond precision, trailing Z.
func isoMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
