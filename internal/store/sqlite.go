package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ─── SQLite Backend ─────────────────────────────────────────────────────────
// A single kv table; every primitive is one SQL statement (or one short
// transaction), so atomicity comes from SQLite itself and holds across
// processes sharing the database file.

// SQLite is the durable store backend.
type SQLite struct {
	db *sql.DB

	// Injectable clock for testing.
	now func() time.Time
}

// Migrations returns the schema statements. Each string is a single SQL
// statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			version    INTEGER NOT NULL DEFAULT 1,
			expires_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_kv_expires ON kv(expires_at)`,
	}
}

// OpenSQLite opens (creating if needed) the store at the given path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// A single writer connection sidesteps SQLITE_BUSY under concurrent
	// request handlers; SQLite serializes the statements.
	db.SetMaxOpenConns(1)
	for _, stmt := range Migrations() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite store: %w", err)
		}
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) nowMS() int64 { return s.now().UnixMilli() }

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, int64, bool, error) {
	var val []byte
	var version int64
	err := s.db.QueryRowContext(ctx, `
		SELECT value, version FROM kv
		WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)
	`, key, s.nowMS()).Scan(&val, &version)
	if err == sql.ErrNoRows {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return val, version, true, nil
}

func (s *SQLite) Put(ctx context.Context, key string, val []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, version, expires_at) VALUES (?, ?, 1, NULL)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			version    = kv.version + 1,
			expires_at = NULL
	`, key, val)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) CompareAndSwap(ctx context.Context, key string, expect int64, val []byte) (bool, error) {
	if expect == 0 {
		// Create-if-absent: purge an expired leftover first, then a plain
		// INSERT OR IGNORE decides the race.
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer tx.Rollback()
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM kv WHERE key = ? AND expires_at IS NOT NULL AND expires_at <= ?
		`, key, s.nowMS()); err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO kv (key, value, version, expires_at) VALUES (?, ?, 1, NULL)
		`, key, val)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		n, _ := res.RowsAffected()
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return n == 1, nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE kv SET value = ?, version = version + 1
		WHERE key = ? AND version = ? AND (expires_at IS NULL OR expires_at > ?)
	`, val, key, expect, s.nowMS())
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (s *SQLite) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	// One upsert: fresh (or expired) keys restart at delta, live keys add.
	var out int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO kv (key, value, version, expires_at)
		VALUES (?1, CAST(?2 AS TEXT), 1, NULL)
		ON CONFLICT(key) DO UPDATE SET
			value = CASE
				WHEN kv.expires_at IS NOT NULL AND kv.expires_at <= ?3 THEN CAST(?2 AS TEXT)
				ELSE CAST(CAST(kv.value AS INTEGER) + ?2 AS TEXT)
			END,
			version = kv.version + 1,
			expires_at = CASE
				WHEN kv.expires_at IS NOT NULL AND kv.expires_at <= ?3 THEN NULL
				ELSE kv.expires_at
			END
		RETURNING CAST(value AS INTEGER)
	`, key, delta, s.nowMS()).Scan(&out)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

func (s *SQLite) Expire(ctx context.Context, key string, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE kv SET expires_at = ? WHERE key = ?
	`, s.now().Add(ttl).UnixMilli(), key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) Keys(ctx context.Context, prefix string) ([]string, error) {
	// Engine key prefixes contain no LIKE metacharacters.
	rows, err := s.db.QueryContext(ctx, `
		SELECT key FROM kv
		WHERE key LIKE ?1 || '%'
		  AND (expires_at IS NULL OR expires_at > ?2)
		ORDER BY key
	`, prefix, s.nowMS())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLite) Wipe(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
