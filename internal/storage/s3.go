package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// S3Storage implements Store using an S3-compatible object as the snapshot.
// It embeds BaseStorage for in-memory transactions and provides
// S3-based persistence via persist().
type S3Storage struct {
	*BaseStorage
	client *S3Client
	bucket string
	key    string
}

// NewS3Storage creates a new S3-backed storage.
// The uri should be a parsed S3 StorageURI (s3://endpoint/bucket/path or s3+http://...).
// The token should be in format ACCESS_KEY:SECRET_KEY.
func NewS3Storage(uri *StorageURI, token string, logger *slog.Logger) (*S3Storage, error) {
	if !uri.IsS3Scheme() {
		return nil, fmt.Errorf("expected S3 URI, got scheme: %s", uri.Scheme)
	}

	endpoint := uri.S3Endpoint()
	region := uri.S3Region()
	if region == "" {
		region = ExtractRegionFromEndpoint(endpoint)
	}

	accessKey, secretKey, err := ParseS3Token(token)
	if err != nil {
		return nil, fmt.Errorf("failed to parse S3 credentials: %w", err)
	}

	client, err := NewS3Client(S3ClientOptions{
		Endpoint:  endpoint,
		Bucket:    uri.S3Bucket(),
		Key:       uri.S3Key(),
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    uri.S3UseSSL(),
		Region:    region,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	ctx := context.Background()
	if err := client.ValidateBucket(ctx); err != nil {
		return nil, fmt.Errorf("S3 bucket validation failed: %w", err)
	}

	s := &S3Storage{
		BaseStorage: NewBaseStorage(logger),
		client:      client,
		bucket:      uri.S3Bucket(),
		key:         uri.S3Key(),
	}

	if err := s.load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load data from S3: %w", err)
	}

	return s, nil
}

// load reads the snapshot on startup. A missing object is created empty so
// that bad credentials surface before the first registration.
func (s *S3Storage) load(ctx context.Context) error {
	data, found, err := s.client.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to download from S3: %w", err)
	}

	if !found {
		s.logger.Info("S3 object does not exist, initializing empty storage",
			"bucket", s.bucket,
			"key", s.key)

		s.mu.RLock()
		defer s.mu.RUnlock()
		if err := s.persist(ctx); err != nil {
			return fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		return nil
	}

	if err := s.UnmarshalData(data); err != nil {
		return fmt.Errorf("failed to parse registry snapshot (corrupted JSON): %w", err)
	}

	s.logger.Info("S3 storage loaded",
		"bucket", s.bucket,
		"key", s.key,
		"key_count", s.Len())

	return nil
}

// persist uploads the complete snapshot. BaseStorage holds the lock here.
func (s *S3Storage) persist(ctx context.Context) error {
	data, err := s.marshalDataLocked()
	if err != nil {
		return fmt.Errorf("failed to marshal registry snapshot: %w", err)
	}
	return s.client.Upload(ctx, data, s.data.Len())
}

// Update runs fn and uploads the result when it changed anything
func (s *S3Storage) Update(ctx context.Context, fn func(kv KV) error) error {
	return s.BaseStorage.Update(ctx, fn, s.persist)
}

// Ping checks that the bucket is still reachable
func (s *S3Storage) Ping(ctx context.Context) error {
	return s.client.ValidateBucket(ctx)
}

// Close closes the storage (no-op for S3 storage)
func (s *S3Storage) Close() error {
	return nil
}
