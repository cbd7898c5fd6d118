package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClear_SingleTab(t *testing.T) {
	trk, _ := newTestTracker(t)
	seedVisit(t, trk, 1, "https://a.test", "Alpha", 1000)
	seedVisit(t, trk, 2, "https://b.test", "Beta", 2000)

	cmd := &ClearCommand{Tab: 1, globals: &GlobalFlags{}}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithTracker(trk))
	})

	assert.Contains(t, output, "Cleared history for tab 1")

	records, err := trk.Histories(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].TabSessionID)
}

func TestClear_All(t *testing.T) {
	trk, _ := newTestTracker(t)
	seedVisit(t, trk, 1, "https://a.test", "Alpha", 1000)
	seedVisit(t, trk, 2, "https://b.test", "Beta", 2000)

	cmd := &ClearCommand{All: true, Force: true, globals: &GlobalFlags{}}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithTracker(trk))
	})

	assert.Contains(t, output, "Cleared all tracked history")

	records, err := trk.Histories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)

	sessions, err := trk.Sessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestClear_JSONOutput(t *testing.T) {
	trk, _ := newTestTracker(t)
	seedVisit(t, trk, 7, "https://a.test", "Alpha", 1000)

	cmd := &ClearCommand{Tab: 7, globals: &GlobalFlags{JSON: true}}
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithTracker(trk))
	})

	var result map[string]interface{}
	err := json.Unmarshal([]byte(strings.TrimSpace(output)), &result)
	require.NoError(t, err, "output should be valid JSON: %s", output)

	assert.Equal(t, true, result["cleared"])
	assert.Equal(t, "tab", result["scope"])
	assert.Equal(t, float64(7), result["tabsessionId"])
}

func TestClear_UnknownTabIsNoop(t *testing.T) {
	trk, _ := newTestTracker(t)
	seedVisit(t, trk, 1, "https://a.test", "Alpha", 1000)

	cmd := &ClearCommand{Tab: 99, globals: &GlobalFlags{}}
	captureOutput(t, func() {
		require.NoError(t, cmd.executeWithTracker(trk))
	})

	records, err := trk.Histories(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1, "other tabs must survive clearing an unknown tab")
}
