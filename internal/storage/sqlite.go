package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key   BLOB PRIMARY KEY,
	value BLOB NOT NULL
) WITHOUT ROWID;
`

// SQLiteStorage implements Store on a single SQLite database file
type SQLiteStorage struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStorage opens (creating if needed) the database at path
func NewSQLiteStorage(path string, token string, logger *slog.Logger) (*SQLiteStorage, error) {
	if token != "" {
		logger.Warn("Storage token provided but SQLite storage does not use authentication",
			"path", path)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, CategorizeSQLError(BackendSQLite, OpConnect, err)
	}
	// One writer at a time; transactions are serialized on this connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, CategorizeSQLError(BackendSQLite, OpConnect, fmt.Errorf("failed to create schema: %w", err))
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&count); err != nil {
		db.Close()
		return nil, CategorizeSQLError(BackendSQLite, OpRead, err)
	}

	logger.Info("SQLite storage opened", "path", path, "key_count", count)

	return &SQLiteStorage{db: db, path: path, logger: logger}, nil
}

// View runs fn inside a read transaction
func (s *SQLiteStorage) View(ctx context.Context, fn func(kv KV) error) error {
	return s.run(ctx, true, fn)
}

// Update runs fn inside a write transaction; fn's writes commit together or not at all
func (s *SQLiteStorage) Update(ctx context.Context, fn func(kv KV) error) error {
	return s.run(ctx, false, fn)
}

func (s *SQLiteStorage) run(ctx context.Context, readOnly bool, fn func(kv KV) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CategorizeSQLError(BackendSQLite, OpConnect, err)
	}

	kv := &sqliteKV{ctx: ctx, tx: tx, readOnly: readOnly}
	if err := fn(kv); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("SQLite rollback failed", "error", rbErr)
		}
		return err
	}

	if readOnly || !kv.dirty {
		return tx.Rollback()
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("Storage write failed",
			"operation", "commit",
			"path", s.path,
			"error", err)
		return CategorizeSQLError(BackendSQLite, OpWrite, err)
	}
	return nil
}

// Ping checks the database connection
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return CategorizeSQLError(BackendSQLite, OpConnect, err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type sqliteKV struct {
	ctx      context.Context
	tx       *sql.Tx
	readOnly bool
	dirty    bool
}

func (k *sqliteKV) Get(key []byte) ([]byte, error) {
	var value []byte
	err := k.tx.QueryRowContext(k.ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, CategorizeSQLError(BackendSQLite, OpRead, err)
	}
	return value, nil
}

func (k *sqliteKV) Set(key, value []byte) error {
	if k.readOnly {
		return ErrReadOnly
	}
	if value == nil {
		value = []byte{}
	}
	_, err := k.tx.ExecContext(k.ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return CategorizeSQLError(BackendSQLite, OpWrite, err)
	}
	k.dirty = true
	return nil
}

func (k *sqliteKV) Delete(key []byte) error {
	if k.readOnly {
		return ErrReadOnly
	}
	if _, err := k.tx.ExecContext(k.ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return CategorizeSQLError(BackendSQLite, OpWrite, err)
	}
	k.dirty = true
	return nil
}

func (k *sqliteKV) Scan(prefix []byte, order Order) iter.Seq2[Entry, error] {
	return pagedScan(prefix, order, k.fetchPage)
}

func (k *sqliteKV) fetchPage(lo, hi []byte, order Order, limit int) ([]Entry, error) {
	var q strings.Builder
	args := []any{lo}
	q.WriteString(`SELECT key, value FROM kv WHERE key >= ?`)
	if hi != nil {
		q.WriteString(` AND key < ?`)
		args = append(args, hi)
	}
	if order == Descending {
		q.WriteString(` ORDER BY key DESC`)
	} else {
		q.WriteString(` ORDER BY key ASC`)
	}
	q.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := k.tx.QueryContext(k.ctx, q.String(), args...)
	if err != nil {
		return nil, CategorizeSQLError(BackendSQLite, OpRead, err)
	}
	defer rows.Close()

	var page []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, CategorizeSQLError(BackendSQLite, OpRead, err)
		}
		page = append(page, e)
	}
	if err := rows.Err(); err != nil {
		return nil, CategorizeSQLError(BackendSQLite, OpRead, err)
	}
	return page, nil
}
