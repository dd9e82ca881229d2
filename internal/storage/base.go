package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// snapshotVersion is the format version written into persisted snapshots
const snapshotVersion = 1

// BaseStorage provides the shared in-memory transaction logic for snapshot
// backends. It handles locking and rollback. Concrete backends (FileStorage,
// S3Storage, OCIStorage, MemoryStorage) embed this and provide their own
// persistence mechanisms.
type BaseStorage struct {
	mu     sync.RWMutex
	data   *MemTable
	logger *slog.Logger
}

// NewBaseStorage creates a new BaseStorage with empty data
func NewBaseStorage(logger *slog.Logger) *BaseStorage {
	return &BaseStorage{
		data:   NewMemTable(),
		logger: logger,
	}
}

// SetData sets the in-memory data (used by backends after loading)
func (b *BaseStorage) SetData(data *MemTable) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = data
}

// Len returns the number of stored keys
func (b *BaseStorage) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data.Len()
}

// MarshalData serializes the storage data to JSON.
// NOTE: Caller must NOT hold the lock - this method acquires its own lock.
// For use within locked contexts, use marshalDataLocked instead.
func (b *BaseStorage) MarshalData() ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.marshalDataLocked()
}

// marshalDataLocked serializes data without acquiring lock.
// Caller MUST hold at least a read lock.
func (b *BaseStorage) marshalDataLocked() ([]byte, error) {
	return MarshalSnapshot(b.data)
}

// UnmarshalData deserializes a JSON snapshot into storage
func (b *BaseStorage) UnmarshalData(jsonData []byte) error {
	table, err := UnmarshalSnapshot(jsonData)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.data = table
	b.mu.Unlock()
	return nil
}

// PersistFunc is a callback function that backends implement for persistence
type PersistFunc func(ctx context.Context) error

// View runs fn against the current data under a read lock
func (b *BaseStorage) View(ctx context.Context, fn func(kv KV) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fn(readOnlyKV{table: b.data})
}

// Update runs fn against a private copy of the data. When fn succeeds the copy
// replaces the current data and the persist callback is called. If persist
// fails, the in-memory change is rolled back.
func (b *BaseStorage) Update(ctx context.Context, fn func(kv KV) error, persist PersistFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	working := b.data.Clone()
	if err := fn(working); err != nil {
		return err
	}
	if !working.Dirty() {
		return nil
	}

	previous := b.data
	b.data = working

	if persist != nil {
		if err := persist(ctx); err != nil {
			// Rollback in-memory change
			b.data = previous
			b.logger.Error("Storage write failed",
				"operation", "update",
				"keys", working.Len(),
				"error", err)
			return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
	}

	return nil
}

type snapshotEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type snapshot struct {
	Version int             `json:"version"`
	Entries []snapshotEntry `json:"entries"`
}

// MarshalSnapshot encodes the table as an indented JSON document with
// base64 keys and values in ascending key order
func MarshalSnapshot(table *MemTable) ([]byte, error) {
	s := snapshot{Version: snapshotVersion, Entries: []snapshotEntry{}}
	for _, e := range table.Entries() {
		s.Entries = append(s.Entries, snapshotEntry{
			Key:   base64.StdEncoding.EncodeToString(e.Key),
			Value: base64.StdEncoding.EncodeToString(e.Value),
		})
	}
	return json.MarshalIndent(s, "", "  ")
}

// UnmarshalSnapshot decodes a document written by MarshalSnapshot
func UnmarshalSnapshot(data []byte) (*MemTable, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid snapshot JSON: %w", err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", s.Version)
	}

	table := NewMemTable()
	for i, e := range s.Entries {
		key, err := base64.StdEncoding.DecodeString(e.Key)
		if err != nil {
			return nil, fmt.Errorf("snapshot entry %d: invalid key encoding: %w", i, err)
		}
		value, err := base64.StdEncoding.DecodeString(e.Value)
		if err != nil {
			return nil, fmt.Errorf("snapshot entry %d: invalid value encoding: %w", i, err)
		}
		if err := table.Set(key, value); err != nil {
			return nil, err
		}
	}
	return table.Clone(), nil
}
