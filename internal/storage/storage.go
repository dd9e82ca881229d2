package storage

import (
	"context"
	"errors"
	"iter"
)

var (
	// ErrNotFound is returned when a key is not present
	ErrNotFound = errors.New("key not found")

	// ErrStorageUnavailable is returned when storage operations fail
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrReadOnly is returned when a write is attempted inside a read-only view
	ErrReadOnly = errors.New("write attempted in read-only transaction")

	// ErrSnapshotChanged is returned by snapshot backends (file, S3, OCI) when
	// the stored snapshot was rewritten by another process since this one
	// last read or wrote it
	ErrSnapshotChanged = errors.New("snapshot changed by another writer")
)

// Order is the direction of a prefix scan
type Order int

const (
	// Ascending iterates keys in increasing byte order
	Ascending Order = iota
	// Descending iterates keys in decreasing byte order
	Descending
)

// String returns the order name used in logs
func (o Order) String() string {
	if o == Descending {
		return "descending"
	}
	return "ascending"
}

// Entry is a key/value pair yielded by Scan
type Entry struct {
	Key   []byte
	Value []byte
}

// KV is the byte-keyed substrate the registry reads and writes.
// Keys compare byte-wise. Scan yields every entry whose key starts with
// prefix, in strict key order; a failed scan yields a single non-nil error
// and stops. Each call to Scan starts from the boundary.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Scan(prefix []byte, order Order) iter.Seq2[Entry, error]
}

// Store defines the transactional interface over a KV backend.
//
// Update runs fn with exclusive access. If fn returns an error nothing it
// wrote is kept. If the backend cannot make the result durable the state
// before the call is restored and an error matching ErrStorageUnavailable is
// returned. View runs fn against a consistent read-only KV.
type Store interface {
	View(ctx context.Context, fn func(kv KV) error) error
	Update(ctx context.Context, fn func(kv KV) error) error

	// Ping checks backend connectivity
	Ping(ctx context.Context) error

	// Close closes the storage
	Close() error
}

// PrefixEnd returns the smallest key greater than every key starting with
// prefix, or nil when no such key exists (prefix is empty or all 0xff).
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
