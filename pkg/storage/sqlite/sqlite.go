// Package sqlite implements the storage.Backend contract on a single SQLite
// file via mattn/go-sqlite3, for single-process and test deployments where
// the spec's "single-file relational engine acceptable" allowance applies.
package sqlite

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" database/sql driver

	"github.com/codeready-toolchain/vex/pkg/vexerr"
)

// Config holds SQLite file and pragma settings.
type Config struct {
	Path        string
	BusyTimeout time.Duration

	// EncryptionKey requests at-rest encryption. mattn/go-sqlite3's default
	// build does not link SQLCipher, so construction fails fast whenever this
	// is non-empty rather than silently storing plaintext: the spec requires
	// that "the engine must verify the cipher is actually active before
	// accepting writes; if verification fails, construction must fail."
	EncryptionKey string
}

const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	tenant_id  TEXT NOT NULL,
	job_type   TEXT NOT NULL,
	payload    TEXT NOT NULL,
	status     TEXT NOT NULL,
	run_at     TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	priority   INTEGER NOT NULL DEFAULT 0,
	retries    INTEGER NOT NULL DEFAULT 0,
	last_error TEXT,
	locked_at  TIMESTAMP,
	locked_by  TEXT,
	result     TEXT
);

CREATE INDEX IF NOT EXISTS idx_jobs_dequeue ON jobs (status, run_at, priority DESC);
`

// Backend is a storage.Backend implementation backed by a single SQLite file.
type Backend struct {
	db *stdsql.DB
}

// New opens (creating if absent) the database file at cfg.Path, applies
// pragmas, and ensures the schema exists.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.EncryptionKey != "" {
		return nil, fmt.Errorf("storage/sqlite: %w", vexerr.ErrStorageEncryptionUnsupported)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("storage/sqlite: path is required")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	db, err := stdsql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("storage/sqlite: open: %w", err)
	}
	// A single-file SQLite database serializes writers; one connection avoids
	// "database is locked" errors under the stdlib pool's default concurrency.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage/sqlite: enable foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds())); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage/sqlite: set busy_timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage/sqlite: create schema: %w", err)
	}

	slog.Info("sqlite storage backend ready", "path", cfg.Path)
	return &Backend{db: db}, nil
}

func (b *Backend) SetValue(ctx context.Context, key string, value json.RawMessage) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, created_at, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, string(value))
	if err != nil {
		return vexerr.New(vexerr.CategoryStorage, "set_value", err)
	}
	return nil
}

func (b *Backend) GetValue(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var raw string
	err := b.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, vexerr.New(vexerr.CategoryStorage, "get_value", err)
	}
	return json.RawMessage(raw), true, nil
}

func (b *Backend) Delete(ctx context.Context, key string) (bool, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key)
	if err != nil {
		return false, vexerr.New(vexerr.CategoryStorage, "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, vexerr.New(vexerr.CategoryStorage, "delete rows_affected", err)
	}
	return n > 0, nil
}

func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	var exists int
	err := b.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM kv_store WHERE key = ?)`, key).Scan(&exists)
	if err != nil {
		return false, vexerr.New(vexerr.CategoryStorage, "exists", err)
	}
	return exists != 0, nil
}

func (b *Backend) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT key FROM kv_store WHERE key LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, vexerr.New(vexerr.CategoryStorage, "list_keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, vexerr.New(vexerr.CategoryStorage, "list_keys scan", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// escapeLike escapes SQL LIKE wildcards in a literal prefix so keys
// containing '%' or '_' are matched exactly rather than as patterns.
func escapeLike(s string) string {
	r := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			r = append(r, '\\', s[i])
		default:
			r = append(r, s[i])
		}
	}
	return string(r)
}

func (b *Backend) IsHealthy(ctx context.Context) bool {
	return b.db.PingContext(ctx) == nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

// DB exposes the underlying connection for components needing direct SQL
// access (the job queue's dequeue logic).
func (b *Backend) DB() *stdsql.DB {
	return b.db
}
