package cli

import (
	"strings"
	"testing"

	goflags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseOnly parses args without executing the matched command, so flag
// wiring can be checked in isolation.
func parseOnly(t *testing.T, args ...string) (*GlobalFlags, *commands) {
	t.Helper()
	parser, globals, cmds := buildParser("test")
	parser.CommandHandler = func(goflags.Commander, []string) error { return nil }
	_, err := parser.ParseArgs(args)
	require.NoError(t, err)
	return globals, cmds
}

func TestVersionFlag(t *testing.T) {
	output := captureOutput(t, func() {
		err := RunWithArgs("0.1.0-test", []string{"--version"})
		assert.NoError(t, err)
	})
	assert.Contains(t, output, "tabtrail 0.1.0-test")
}

func TestVersionOutputFormat(t *testing.T) {
	output := captureOutput(t, func() {
		_ = RunWithArgs("1.2.3", []string{"--version"})
	})
	assert.Equal(t, "tabtrail 1.2.3", strings.TrimSpace(output))
}

func TestAllSubcommandsExist(t *testing.T) {
	expected := []string{"track", "status", "history", "snapshot", "export", "clear", "prune"}
	parser, _, _ := buildParser("test")

	for _, name := range expected {
		cmd := parser.Find(name)
		assert.NotNil(t, cmd, "subcommand %q should exist", name)
	}
}

func TestTrackFlags(t *testing.T) {
	_, cmds := parseOnly(t, "track", "--port", "9000", "--log-level", "debug")
	assert.Equal(t, 9000, cmds.Track.Port)
	assert.Equal(t, "debug", cmds.Track.LogLevel)
}

func TestHistoryFlagDefaults(t *testing.T) {
	_, cmds := parseOnly(t, "history")
	assert.Equal(t, 0, cmds.History.Tab)
	assert.Equal(t, 20, cmds.History.Limit)
	assert.Equal(t, 0, cmds.History.Offset)
	assert.False(t, cmds.History.Content)
}

func TestHistoryFlags(t *testing.T) {
	_, cmds := parseOnly(t, "history", "--tab", "7", "--limit", "5", "--offset", "2", "--content")
	assert.Equal(t, 7, cmds.History.Tab)
	assert.Equal(t, 5, cmds.History.Limit)
	assert.Equal(t, 2, cmds.History.Offset)
	assert.True(t, cmds.History.Content)
}

func TestSnapshotTimeoutDefault(t *testing.T) {
	_, cmds := parseOnly(t, "snapshot", "--tab", "1", "--url", "https://example.com")
	assert.Equal(t, 10, cmds.Snapshot.Timeout)
}

func TestSnapshotRequiresTab(t *testing.T) {
	err := RunWithArgs("test", []string{"snapshot", "--url", "https://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--tab is required")
}

func TestSnapshotRequiresURL(t *testing.T) {
	err := RunWithArgs("test", []string{"snapshot", "--tab", "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url is required")
}

func TestExportFormatDefault(t *testing.T) {
	_, cmds := parseOnly(t, "export")
	assert.Equal(t, "jsonl", cmds.Export.Format)
	assert.False(t, cmds.Export.Push)
}

func TestExportFlags(t *testing.T) {
	_, cmds := parseOnly(t, "export", "--tab", "3", "--out", "trail.md", "--format", "md", "--push")
	assert.Equal(t, 3, cmds.Export.Tab)
	assert.Equal(t, "trail.md", cmds.Export.Out)
	assert.Equal(t, "md", cmds.Export.Format)
	assert.True(t, cmds.Export.Push)
}

func TestClearRequiresTarget(t *testing.T) {
	err := RunWithArgs("test", []string{"clear"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear requires --tab or --all")
}

func TestClearFlags(t *testing.T) {
	_, cmds := parseOnly(t, "clear", "--all", "--force")
	assert.True(t, cmds.Clear.All)
	assert.True(t, cmds.Clear.Force)
}

func TestPruneFlags(t *testing.T) {
	_, cmds := parseOnly(t, "prune", "--older-than", "7d", "--orphans", "--dry-run")
	assert.Equal(t, "7d", cmds.Prune.OlderThan)
	assert.True(t, cmds.Prune.Orphans)
	assert.True(t, cmds.Prune.DryRun)
}

func TestGlobalFlagsJSON(t *testing.T) {
	globals, _ := parseOnly(t, "--json", "status")
	assert.True(t, globals.JSON)
}

func TestGlobalFlagsVerbose(t *testing.T) {
	globals, _ := parseOnly(t, "--verbose", "status")
	assert.True(t, globals.Verbose)
}

func TestGlobalFlagsConfig(t *testing.T) {
	globals, _ := parseOnly(t, "--config", "/tmp/test.yaml", "status")
	assert.Equal(t, "/tmp/test.yaml", globals.Config)
}

func TestGlobalFlagsDBPath(t *testing.T) {
	globals, _ := parseOnly(t, "--db-path", "/tmp/test.db", "status")
	assert.Equal(t, "/tmp/test.db", globals.DBPath)
}

func TestUnknownSubcommandFails(t *testing.T) {
	parser, _, _ := buildParser("test")
	_, err := parser.ParseArgs([]string{"nonexistent"})
	require.Error(t, err)
}

func TestHelpFlagDoesNotError(t *testing.T) {
	err := RunWithArgs("test", []string{"--help"})
	assert.NoError(t, err)
}
