package snapshot

// Snapshot is a point-in-time capture of a loaded page: address, title,
// rendered HTML, and the capture timestamp in epoch milliseconds. The
// extension extracts these inside the page's own context and posts them to
// the daemon; the CLI builds them from a live fetch or a local file. A
// snapshot is never cached — every capture observes the page as it is now.
type Snapshot struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	RenderedHTML string `json:"renderedHtml"`
	EntryTime    int64  `json:"entryTime"`
}
