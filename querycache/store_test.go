package querycache

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"collab-hub/storage"

	"log/slog"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(slog.Default(), db)
}

func TestStore_Set_Then_Get_Roundtrip(t *testing.T) {
	req := require.New(t)
	store := newStore(t)

	req.NoError(store.SetCached("customer:42", json.RawMessage(`{"name":"Ada"}`)))

	raw, ok := store.GetCached("customer:42")
	req.True(ok)
	req.JSONEq(`{"name":"Ada"}`, string(raw))
}

func TestStore_Get_Unknown_Key_Is_A_Miss(t *testing.T) {
	req := require.New(t)
	store := newStore(t)

	raw, ok := store.GetCached("customer:nope")
	req.False(ok)
	req.Nil(raw)
}

func TestStore_Set_Overwrites_Previous_Value(t *testing.T) {
	req := require.New(t)
	store := newStore(t)

	req.NoError(store.SetCached("customer:42", json.RawMessage(`{"v":1}`)))
	req.NoError(store.SetCached("customer:42", json.RawMessage(`{"v":2}`)))

	raw, ok := store.GetCached("customer:42")
	req.True(ok)
	req.JSONEq(`{"v":2}`, string(raw))
}

func TestStore_Invalidate_Removes_The_Entry(t *testing.T) {
	req := require.New(t)
	store := newStore(t)

	req.NoError(store.SetCached("customer:42", json.RawMessage(`{}`)))
	req.NoError(store.Invalidate("customer:42"))

	_, ok := store.GetCached("customer:42")
	req.False(ok)

	// Invalidating again is harmless
	req.NoError(store.Invalidate("customer:42"))
}
