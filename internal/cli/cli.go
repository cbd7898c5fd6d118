package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Track    *TrackCommand
	Status   *StatusCommand
	History  *HistoryCommand
	Snapshot *SnapshotCommand
	Export   *ExportCommand
	Clear    *ClearCommand
	Prune    *PruneCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "tabtrail"
	parser.LongDescription = "Per-tab web history tracking: a local daemon the browser extension reports to, plus tools to inspect, capture, export, and prune what it saves."

	cmds := &commands{
		Track:    &TrackCommand{globals: &globals, version: version},
		Status:   &StatusCommand{globals: &globals, version: version},
		History:  &HistoryCommand{globals: &globals, version: version},
		Snapshot: &SnapshotCommand{globals: &globals, version: version},
		Export:   &ExportCommand{globals: &globals, version: version},
		Clear:    &ClearCommand{globals: &globals, version: version},
		Prune:    &PruneCommand{globals: &globals, version: version},
	}

	parser.AddCommand("track", "Run the tracking daemon", "Run the local HTTP daemon the browser extension posts tab events to.", cmds.Track)
	parser.AddCommand("status", "Show daemon health and statistics", "Show daemon health, session counts, and database statistics.", cmds.Status)
	parser.AddCommand("history", "List captured history entries", "List captured history entries, optionally filtered by tab or substring.", cmds.History)
	parser.AddCommand("snapshot", "Capture a page into a tab's history", "Capture a page into a tab's history, fetching it live or reading HTML from a file.", cmds.Snapshot)
	parser.AddCommand("export", "Export history as backend documents", "Flatten captured history into documents and write or push them.", cmds.Export)
	parser.AddCommand("clear", "Clear tracked data", "Clear one tab's data, or ALL data. Destructive operation with safety prompt.", cmds.Clear)
	parser.AddCommand("prune", "Apply retention pruning", "Apply retention pruning to remove old history entries.", cmds.Prune)

	return parser, &globals, cmds
}

// Run is the main entry point for the Tabtrail CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("tabtrail %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
