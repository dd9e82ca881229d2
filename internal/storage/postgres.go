package storage

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS codeid_registry_kv (
	key   BYTEA PRIMARY KEY,
	value BYTEA NOT NULL
)`

// postgresLockID serializes writers across every server sharing the database
const postgresLockID int64 = 0x636f64656964 // "codeid"

// PostgresStorage implements Store on a PostgreSQL table
type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStorage connects to the database and creates the table if needed.
// A non-empty token overrides the password in the URI.
func NewPostgresStorage(ctx context.Context, uri *StorageURI, token string, logger *slog.Logger) (*PostgresStorage, error) {
	cfg, err := pgxpool.ParseConfig(uri.Raw)
	if err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL URI: %w", err)
	}
	if token != "" {
		cfg.ConnConfig.Password = token
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, CategorizeSQLError(BackendPostgres, OpConnect, fmt.Errorf("failed to create connection pool: %w", err))
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, CategorizeSQLError(BackendPostgres, OpConnect, fmt.Errorf("failed to ping database: %w", err))
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, CategorizeSQLError(BackendPostgres, OpConnect, fmt.Errorf("failed to create schema: %w", err))
	}

	logger.Info("PostgreSQL storage connected",
		"host", uri.Host,
		"database", uri.Path)

	return &PostgresStorage{pool: pool, logger: logger}, nil
}

// View runs fn inside a read-only repeatable-read transaction
func (s *PostgresStorage) View(ctx context.Context, fn func(kv KV) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return CategorizeSQLError(BackendPostgres, OpConnect, err)
	}
	defer tx.Rollback(ctx)

	return fn(&postgresKV{ctx: ctx, tx: tx, readOnly: true})
}

// Update runs fn inside a transaction holding the registry advisory lock
func (s *PostgresStorage) Update(ctx context.Context, fn func(kv KV) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return CategorizeSQLError(BackendPostgres, OpConnect, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, postgresLockID); err != nil {
		return CategorizeSQLError(BackendPostgres, OpWrite, fmt.Errorf("failed to acquire lock: %w", err))
	}

	kv := &postgresKV{ctx: ctx, tx: tx}
	if err := fn(kv); err != nil {
		return err
	}
	if !kv.dirty {
		return nil
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error("Storage write failed",
			"operation", "commit",
			"error", err)
		return CategorizeSQLError(BackendPostgres, OpWrite, err)
	}
	return nil
}

// Ping checks database connectivity
func (s *PostgresStorage) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return CategorizeSQLError(BackendPostgres, OpConnect, err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

type postgresKV struct {
	ctx      context.Context
	tx       pgx.Tx
	readOnly bool
	dirty    bool
}

func (k *postgresKV) Get(key []byte) ([]byte, error) {
	var value []byte
	err := k.tx.QueryRow(k.ctx, `SELECT value FROM codeid_registry_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, CategorizeSQLError(BackendPostgres, OpRead, err)
	}
	return value, nil
}

func (k *postgresKV) Set(key, value []byte) error {
	if k.readOnly {
		return ErrReadOnly
	}
	if value == nil {
		value = []byte{}
	}
	_, err := k.tx.Exec(k.ctx,
		`INSERT INTO codeid_registry_kv (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	if err != nil {
		return CategorizeSQLError(BackendPostgres, OpWrite, err)
	}
	k.dirty = true
	return nil
}

func (k *postgresKV) Delete(key []byte) error {
	if k.readOnly {
		return ErrReadOnly
	}
	if _, err := k.tx.Exec(k.ctx, `DELETE FROM codeid_registry_kv WHERE key = $1`, key); err != nil {
		return CategorizeSQLError(BackendPostgres, OpWrite, err)
	}
	k.dirty = true
	return nil
}

func (k *postgresKV) Scan(prefix []byte, order Order) iter.Seq2[Entry, error] {
	return pagedScan(prefix, order, k.fetchPage)
}

func (k *postgresKV) fetchPage(lo, hi []byte, order Order, limit int) ([]Entry, error) {
	var q strings.Builder
	args := []any{lo}
	q.WriteString(`SELECT key, value FROM codeid_registry_kv WHERE key >= $1`)
	if hi != nil {
		args = append(args, hi)
		fmt.Fprintf(&q, ` AND key < $%d`, len(args))
	}
	if order == Descending {
		q.WriteString(` ORDER BY key DESC`)
	} else {
		q.WriteString(` ORDER BY key ASC`)
	}
	args = append(args, limit)
	fmt.Fprintf(&q, ` LIMIT $%d`, len(args))

	rows, err := k.tx.Query(k.ctx, q.String(), args...)
	if err != nil {
		return nil, CategorizeSQLError(BackendPostgres, OpRead, err)
	}
	page, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.Key, &e.Value)
		return e, err
	})
	if err != nil {
		return nil, CategorizeSQLError(BackendPostgres, OpRead, err)
	}
	return page, nil
}
