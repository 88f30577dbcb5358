package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PointOps(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "tenant:T-1")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "tenant:T-1", []byte(`{"id":"a"}`)))

	val, err := store.Get(ctx, "tenant:T-1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"a"}`, string(val))

	require.NoError(t, store.Del(ctx, "tenant:T-1"))
	_, err = store.Get(ctx, "tenant:T-1")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStore_PrefixBoundaries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// Tenant "t1" must not match "t10" entries.
	require.NoError(t, store.Set(ctx, UsageKey("t1", "2026-08", "api_calls"), []byte(`{"tenant_id":"t1"}`)))
	require.NoError(t, store.Set(ctx, UsageKey("t1", "2026-07", "api_calls"), []byte(`{"tenant_id":"t1","period":"2026-07"}`)))
	require.NoError(t, store.Set(ctx, UsageKey("t10", "2026-08", "api_calls"), []byte(`{"tenant_id":"t10"}`)))

	values, err := store.GetByPrefix(ctx, UsagePrefix("t1"))
	require.NoError(t, err)
	assert.Len(t, values, 2)

	values, err = store.GetByPrefix(ctx, UsagePrefix("t10"))
	require.NoError(t, err)
	assert.Len(t, values, 1)
}

func TestMemoryStore_BatchOps(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.MSet(ctx, map[string][]byte{
		"flag:dark_mode":  []byte(`{"key":"dark_mode"}`),
		"flag:new_portal": []byte(`{"key":"new_portal"}`),
	}))

	values, err := store.MGet(ctx, "flag:dark_mode", "flag:missing", "flag:new_portal")
	require.NoError(t, err)
	// Missing keys are skipped, not returned as nil holes.
	assert.Len(t, values, 2)

	require.NoError(t, store.MDel(ctx, "flag:dark_mode", "flag:new_portal"))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "flag:x", []byte(`{"key":"x"}`)))
	val, err := store.Get(ctx, "flag:x")
	require.NoError(t, err)
	val[0] = '!'

	again, err := store.Get(ctx, "flag:x")
	require.NoError(t, err)
	assert.Equal(t, `{"key":"x"}`, string(again))
}
