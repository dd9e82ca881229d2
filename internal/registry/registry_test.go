package registry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/criteo/code-id-registry/internal/models"
	"github.com/criteo/code-id-registry/internal/storage"
)

const testAdmin = "admin"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// flakyStore is a memory store whose commits fail while failCommits is set
type flakyStore struct {
	*storage.BaseStorage
	failCommits bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{BaseStorage: storage.NewBaseStorage(newTestLogger())}
}

func (f *flakyStore) Update(ctx context.Context, fn func(kv storage.KV) error) error {
	return f.BaseStorage.Update(ctx, fn, func(ctx context.Context) error {
		if f.failCommits {
			return errors.New("disk unplugged")
		}
		return nil
	})
}

func (f *flakyStore) Ping(ctx context.Context) error { return nil }
func (f *flakyStore) Close() error                   { return nil }

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(storage.NewMemoryStorage(newTestLogger()), nil, newTestLogger())
	_, created, err := svc.Instantiate(context.Background(), testAdmin)
	require.NoError(t, err)
	require.True(t, created)
	return svc
}

func registerReq(name, version, chain string, codeID uint64, checksum string) models.RegisterRequest {
	return models.RegisterRequest{
		ContractName: name,
		Version:      version,
		ChainID:      chain,
		CodeID:       codeID,
		Checksum:     checksum,
	}
}

func unregisterReq(name, chain string, codeID uint64, version string) models.UnregisterRequest {
	return models.UnregisterRequest{
		ContractName: name,
		ChainID:      chain,
		CodeID:       codeID,
		Version:      version,
	}
}

func ptr(s string) *string { return &s }
