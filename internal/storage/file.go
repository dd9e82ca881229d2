package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// fileSizeWarnBytes is the snapshot size above which a warning is logged
const fileSizeWarnBytes = 50 * 1024 * 1024

// fileVersion identifies one write of the snapshot file
type fileVersion struct {
	size    int64
	modTime time.Time
}

func statVersion(path string) (fileVersion, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileVersion{}, err
	}
	return fileVersion{size: info.Size(), modTime: info.ModTime()}, nil
}

// FileStorage implements Store with a JSON snapshot on the local filesystem.
// Every write replaces the file atomically; a write is refused when the file
// was modified by another process since this one last read or wrote it.
type FileStorage struct {
	*BaseStorage
	filePath string
	seen     fileVersion
}

// NewFileStorage opens or creates the snapshot at filePath. File storage has
// no credentials, so a token only produces a warning.
func NewFileStorage(filePath string, token string, logger *slog.Logger) (*FileStorage, error) {
	if token != "" {
		logger.Warn("Storage token provided but file storage does not use authentication",
			"file_path", filePath)
	}

	s := &FileStorage{BaseStorage: NewBaseStorage(logger), filePath: filePath}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load storage: %w", err)
	}
	return s, nil
}

func (s *FileStorage) load() error {
	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("Storage file not found, creating empty storage", "file_path", s.filePath)
		if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.persist(context.Background())
	}
	if err != nil {
		return fmt.Errorf("failed to read storage file: %w", err)
	}

	if err := s.UnmarshalData(data); err != nil {
		return fmt.Errorf("failed to parse storage file: %w", err)
	}
	if s.seen, err = statVersion(s.filePath); err != nil {
		return err
	}

	s.logger.Info("Storage file loaded", "file_path", s.filePath, "key_count", s.Len())
	return nil
}

// persist replaces the snapshot through a synced temp file and a rename.
// BaseStorage holds the lock here.
func (s *FileStorage) persist(ctx context.Context) error {
	current, err := statVersion(s.filePath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if current != s.seen {
		s.logger.Error("Storage file changed underneath the registry", "file_path", s.filePath)
		return fmt.Errorf("%w: %s was modified by another process; restart to reload", ErrSnapshotChanged, s.filePath)
	}

	data, err := s.marshalDataLocked()
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}
	if err := writeFileAtomic(s.filePath, data); err != nil {
		return err
	}
	if s.seen, err = statVersion(s.filePath); err != nil {
		return err
	}

	if s.seen.size > fileSizeWarnBytes {
		s.logger.Warn("Storage file size exceeds recommended threshold",
			"file_path", s.filePath,
			"current_size_mb", float64(s.seen.size)/(1024*1024),
			"threshold_mb", fileSizeWarnBytes/(1024*1024),
			"key_count", s.data.Len())
	}
	return nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".registry-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Update runs fn and rewrites the snapshot file when it changed anything
func (s *FileStorage) Update(ctx context.Context, fn func(kv KV) error) error {
	return s.BaseStorage.Update(ctx, fn, s.persist)
}

// Ping checks that the snapshot file is still there
func (s *FileStorage) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.filePath); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Close is a no-op; every write is already on disk
func (s *FileStorage) Close() error {
	return nil
}
