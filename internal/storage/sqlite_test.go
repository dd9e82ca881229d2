package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorage_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "registry.db")
	ctx := context.Background()

	s, err := NewSQLiteStorage(path, "", newTestLogger())
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, set("admin", "alice")))
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStorage(path, "", newTestLogger())
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.View(ctx, func(kv KV) error {
		v, err := kv.Get([]byte("admin"))
		require.NoError(t, err)
		assert.Equal(t, "alice", string(v))
		return nil
	}))
}

func TestSQLiteStorage_BinaryKeysCompareBytewise(t *testing.T) {
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "registry.db"), "", newTestLogger())
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	keys := []string{"a\x00\x01", "a\x00\xff", "a\x00\x7f", "a\x01"}
	require.NoError(t, s.Update(ctx, func(kv KV) error {
		for _, k := range keys {
			if err := kv.Set([]byte(k), []byte(k)); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.View(ctx, func(kv KV) error {
		assert.Equal(t, []string{"a\x00\x01", "a\x00\x7f", "a\x00\xff"}, scanKeys(t, kv, "a\x00", Ascending))
		return nil
	}))
}

func TestSQLiteStorage_ClosedDatabaseIsUnavailable(t *testing.T) {
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "registry.db"), "", newTestLogger())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Update(context.Background(), set("k", "v"))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
