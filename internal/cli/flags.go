package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DBPath  string `long:"db-path" description:"Override database file path" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// TrackCommand — run the tracking daemon in the foreground.
type TrackCommand struct {
	Port     int    `long:"port" description:"Override daemon port"`
	LogLevel string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
}

// StatusCommand — daemon health, session counts, database statistics.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// HistoryCommand — list captured history entries.
type HistoryCommand struct {
	Tab     int  `long:"tab" description:"Only entries for this tab session"`
	Limit   int  `long:"limit" description:"Maximum entries" default:"20"`
	Offset  int  `long:"offset" description:"Skip first N entries" default:"0"`
	Content bool `long:"content" description:"Include captured page markdown"`

	globals *GlobalFlags
	version string
}

// SnapshotCommand — capture a page into a tab's history.
type SnapshotCommand struct {
	Tab      int    `long:"tab" description:"Tab session id (required)"`
	URL      string `long:"url" description:"Page URL (required)"`
	Title    string `long:"title" description:"Page title (extracted from the page when omitted)"`
	HTMLFile string `long:"html-file" description:"Read rendered HTML from file instead of fetching"`
	Timeout  int    `long:"timeout" description:"Fetch timeout in seconds" default:"10"`

	globals *GlobalFlags
	version string
}

// ExportCommand — flatten captured history into backend documents.
type ExportCommand struct {
	Tab    int    `long:"tab" description:"Only entries for this tab session"`
	Out    string `long:"out" description:"Write to file instead of stdout"`
	Format string `long:"format" description:"Output format: jsonl | json | md" default:"jsonl"`
	Push   bool   `long:"push" description:"Push documents to the configured backend"`

	globals *GlobalFlags
	version string
}

// ClearCommand — clear one tab's data or everything.
type ClearCommand struct {
	Tab   int  `long:"tab" description:"Tab session id to clear"`
	All   bool `long:"all" description:"Clear ALL tracked data"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
}

// PruneCommand — apply retention pruning to captured history.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 30d)"`
	Orphans   bool   `long:"orphans" description:"Also drop history for closed tabs (config default applies when omitted)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
}
