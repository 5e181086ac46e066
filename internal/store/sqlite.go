package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/statify/internal/shared"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements [Store] on a SQLite database.
//
// A local-disk alternative to Redis for development and single-machine
// deployments. Expiry is enforced by filtering on the expires_at column at
// read time; stale rows are purged opportunistically on writes.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteStore opens (or creates) a SQLite database at path, applies the
// schema, and configures the connection pool. The path ":memory:" yields an
// ephemeral database for tests.
func OpenSQLiteStore(path string, maxOpenConns, maxIdleConns int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", shared.ErrStoreUnavailable, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping sqlite: %v", shared.ErrStoreUnavailable, err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Set upserts value under key, resetting expires_at from the TTL.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: s.now().Add(ttl), Valid: true}
	}

	query := `
		INSERT INTO kv_entries (key, value, expires_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, key, value, expiresAt, s.now()); err != nil {
		return fmt.Errorf("%w: sqlite set %s: %v", shared.ErrStoreUnavailable, key, err)
	}

	s.purge(ctx)
	return nil
}

// Get returns the value under key, excluding rows past their expiry.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT value FROM kv_entries
		WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)
	`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key, s.now()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite get %s: %v", shared.ErrStoreUnavailable, key, err)
	}

	return value, nil
}

// Delete removes key if present.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("%w: sqlite delete %s: %v", shared.ErrStoreUnavailable, key, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: sqlite ping: %v", shared.ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// purge deletes rows past their expiry. Failures are ignored; the read-time
// filter keeps expired rows invisible regardless.
func (s *SQLiteStore) purge(ctx context.Context) {
	s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= ?", s.now())
}
