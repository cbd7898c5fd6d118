package snapshot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// maxFetchBytes caps how much of a fetched page is read.
const maxFetchBytes = 10 << 20

// Extractor captures a Snapshot of the page at a URL.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (*Snapshot, error)
}

// HTTPExtractor fetches a page over HTTP and reads its title out of the
// document. It stands in for the extension's in-page extraction when a
// capture is requested from the command line.
type HTTPExtractor struct {
	client *http.Client
}

// NewHTTPExtractor creates an extractor whose fetches give up after timeout.
func NewHTTPExtractor(timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{
		client: &http.Client{Timeout: timeout},
	}
}

// Extract fetches pageURL and returns its snapshot, stamped with the current
// time. Non-2xx responses are errors.
func (e *HTTPExtractor) Extract(ctx context.Context, pageURL string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "tabtrail")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", pageURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pageURL, err)
	}

	doc := string(body)
	return &Snapshot{
		URL:          pageURL,
		Title:        ExtractTitle(doc),
		RenderedHTML: doc,
		EntryTime:    time.Now().UnixMilli(),
	}, nil
}

// ExtractTitle returns the text of the document's first <title> element, or
// "" when there is none.
func ExtractTitle(doc string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(tokenizer.Token().Data)
				}
				return ""
			}
		}
	}
}
