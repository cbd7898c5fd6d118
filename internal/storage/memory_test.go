package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Store = (*MemoryStore)(nil)

func TestMemoryStore_Roundtrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	value := json.RawMessage(`[{"tabsessionId":1,"timeQueue":[1000]}]`)
	require.NoError(t, store.Set(ctx, map[string]json.RawMessage{KeyTimeQueues: value}))

	got, err := store.Get(ctx, []string{KeyTimeQueues, KeyWebHistory})
	require.NoError(t, err)
	require.Contains(t, got, KeyTimeQueues)
	assert.NotContains(t, got, KeyWebHistory)
	assert.JSONEq(t, string(value), string(got[KeyTimeQueues]))
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	in := json.RawMessage(`["original"]`)
	require.NoError(t, store.Set(ctx, map[string]json.RawMessage{KeyURLQueues: in}))

	// Mutating the caller's slice must not reach the stored copy.
	in[2] = 'X'

	got, err := store.Get(ctx, []string{KeyURLQueues})
	require.NoError(t, err)
	assert.Equal(t, `["original"]`, string(got[KeyURLQueues]))

	// And mutating a returned value must not corrupt the store.
	got[KeyURLQueues][2] = 'Y'
	again, err := store.Get(ctx, []string{KeyURLQueues})
	require.NoError(t, err)
	assert.Equal(t, `["original"]`, string(again[KeyURLQueues]))
}

func TestMemoryStore_RejectsInvalidJSONBeforeWriting(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Set(ctx, map[string]json.RawMessage{
		KeyURLQueues: json.RawMessage(`[]`),
		"broken":     json.RawMessage(`{`),
	})
	require.Error(t, err)

	got, err := store.Get(ctx, []string{KeyURLQueues, "broken"})
	require.NoError(t, err)
	assert.Empty(t, got, "a rejected batch must not write any of its keys")
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, map[string]json.RawMessage{
		KeyURLQueues: json.RawMessage(`[]`),
	}))
	require.NoError(t, store.Delete(ctx, []string{KeyURLQueues, "missing"}))

	got, err := store.Get(ctx, []string{KeyURLQueues})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_AuditTrail(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Audit(ctx, AuditEntry{Action: "tab_created", TabSessionID: 1}))
	require.NoError(t, store.Audit(ctx, AuditEntry{Action: "navigation", TabSessionID: 1}))

	trail := store.AuditTrail()
	require.Len(t, trail, 2)
	assert.Equal(t, "tab_created", trail[0].Action)
	assert.Equal(t, "navigation", trail[1].Action)
	assert.False(t, trail[0].At.IsZero())

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.AuditEntries)
	assert.Equal(t, "navigation", stats.LastAction)
}
