package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrTokenRequired is returned when a storage scheme requires a token but none was provided
	ErrTokenRequired = errors.New("storage token required")
)

// NewStorage creates a storage backend based on the URI scheme:
//   - memory:// -> MemoryStorage
//   - file:// -> FileStorage
//   - sqlite:// -> SQLiteStorage
//   - postgres:// -> PostgresStorage
//   - oci:// -> OCIStorage (requires token)
//   - s3:// or s3+http:// -> S3Storage
func NewStorage(ctx context.Context, uri *StorageURI, token string, logger *slog.Logger) (Store, error) {
	switch uri.Scheme {
	case "memory":
		logger.Warn("Using in-memory storage; registrations are lost on restart")
		return NewMemoryStorage(logger), nil

	case "file":
		return NewFileStorage(uri.Path, token, logger)

	case "sqlite":
		return NewSQLiteStorage(uri.Path, token, logger)

	case "postgres", "postgresql":
		return NewPostgresStorage(ctx, uri, token, logger)

	case "oci":
		if token == "" {
			return nil, fmt.Errorf("%w: OCI storage requires authentication token (--storage-token or CODEID_REGISTRY_STORAGE_TOKEN)", ErrTokenRequired)
		}
		return NewOCIStorage(uri, token, logger)

	case "s3", "s3+http":
		// Credentials optional for IAM role
		return NewS3Storage(uri, token, logger)

	default:
		return nil, fmt.Errorf("unsupported storage scheme: %s", uri.Scheme)
	}
}
