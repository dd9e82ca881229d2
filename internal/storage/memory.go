package storage

import (
	"context"
	"log/slog"
)

// MemoryStorage keeps all data in process memory. Nothing survives a restart.
type MemoryStorage struct {
	*BaseStorage
}

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage(logger *slog.Logger) *MemoryStorage {
	return &MemoryStorage{BaseStorage: NewBaseStorage(logger)}
}

// Update runs fn with exclusive access
func (m *MemoryStorage) Update(ctx context.Context, fn func(kv KV) error) error {
	return m.BaseStorage.Update(ctx, fn, nil)
}

// Ping always succeeds for memory storage
func (m *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close closes the storage (no-op for memory storage)
func (m *MemoryStorage) Close() error {
	return nil
}
