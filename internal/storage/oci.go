package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// OCIStorage implements Store using an OCI registry artifact as the snapshot.
// It embeds BaseStorage for in-memory transactions and provides
// OCI-based persistence via persist().
type OCIStorage struct {
	*BaseStorage
	client    *OCIClient
	reference string // OCI reference "registry/repo:latest"
}

// NewOCIStorage creates a new OCI-backed storage.
// The uri should be a parsed OCI StorageURI (oci://registry/repo).
// The token is used as the registry password.
func NewOCIStorage(uri *StorageURI, token string, logger *slog.Logger) (*OCIStorage, error) {
	if !uri.IsOCIScheme() {
		return nil, fmt.Errorf("expected OCI URI, got scheme: %s", uri.Scheme)
	}

	reference := uri.OCIReference()

	client, err := NewOCIClient(reference, token, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCI client: %w", err)
	}

	s := &OCIStorage{
		BaseStorage: NewBaseStorage(logger),
		client:      client,
		reference:   reference,
	}

	if err := s.load(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load data from OCI: %w", err)
	}

	return s, nil
}

// load pulls the snapshot on startup. A missing tag is pushed empty so that
// bad credentials surface before the first registration.
func (s *OCIStorage) load(ctx context.Context) error {
	data, found, err := s.client.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to pull from OCI: %w", err)
	}

	if !found {
		s.logger.Info("OCI artifact does not exist, initializing empty storage",
			"reference", s.reference)

		s.mu.RLock()
		defer s.mu.RUnlock()
		if err := s.persist(ctx); err != nil {
			return fmt.Errorf("failed to initialize OCI storage: %w", err)
		}
		return nil
	}

	if err := s.UnmarshalData(data); err != nil {
		return fmt.Errorf("failed to parse registry snapshot (corrupted JSON): %w", err)
	}

	s.logger.Info("OCI storage loaded",
		"reference", s.reference,
		"key_count", s.Len())

	return nil
}

// persist pushes the complete snapshot. BaseStorage holds the lock here.
func (s *OCIStorage) persist(ctx context.Context) error {
	data, err := s.marshalDataLocked()
	if err != nil {
		return fmt.Errorf("failed to marshal registry snapshot: %w", err)
	}
	return s.client.Push(ctx, data, s.data.Len())
}

// Update runs fn and pushes the result when it changed anything
func (s *OCIStorage) Update(ctx context.Context, fn func(kv KV) error) error {
	return s.BaseStorage.Update(ctx, fn, s.persist)
}

// Ping resolves the snapshot tag
func (s *OCIStorage) Ping(ctx context.Context) error {
	_, err := s.client.Exists(ctx)
	return err
}

// Close closes the storage (no-op for OCI storage)
func (s *OCIStorage) Close() error {
	return nil
}
