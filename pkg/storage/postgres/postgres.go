// Package postgres implements the storage.Backend contract on top of
// PostgreSQL via database/sql and the pgx driver, following the connection
// pooling and embedded-migration conventions of tarsy's pkg/database client.
package postgres

import (
	"context"
	stdsql "database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/codeready-toolchain/vex/pkg/vexerr"
)

//go:embed migrations
var migrationsFS embed.FS

// Config holds Postgres connection and pool settings.
type Config struct {
	// DSN, when set, takes priority over the discrete Host/Port/... fields.
	DSN string

	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (c Config) dsn() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Backend is a storage.Backend implementation backed by a kv_store table.
type Backend struct {
	db *stdsql.DB
}

// New opens a connection pool, runs embedded migrations, and returns a ready
// Backend.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	db, err := stdsql.Open("pgx", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("storage/postgres: open: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage/postgres: ping: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage/postgres: migrate: %w", err)
	}

	slog.Info("postgres storage backend ready", "max_open_conns", cfg.MaxOpenConns)
	return &Backend{db: db}, nil
}

func runMigrations(db *stdsql.DB) error {
	if _, err := fs.ReadDir(migrationsFS, "migrations"); err != nil {
		return fmt.Errorf("embedded migrations missing: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create postgres migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "vex", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (b *Backend) SetValue(ctx context.Context, key string, value json.RawMessage) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, string(value))
	if err != nil {
		return vexerr.New(vexerr.CategoryStorage, "set_value", err)
	}
	return nil
}

func (b *Backend) GetValue(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var raw string
	err := b.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&raw)
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, vexerr.New(vexerr.CategoryStorage, "get_value", err)
	}
	return json.RawMessage(raw), true, nil
}

func (b *Backend) Delete(ctx context.Context, key string) (bool, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
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
	var exists bool
	err := b.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM kv_store WHERE key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, vexerr.New(vexerr.CategoryStorage, "exists", err)
	}
	return exists, nil
}

func (b *Backend) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	// Escape LIKE wildcards so the prefix matches literally; backslash is
	// Postgres' default LIKE escape character.
	escaped := make([]byte, 0, len(prefix))
	for i := 0; i < len(prefix); i++ {
		switch prefix[i] {
		case '%', '_', '\\':
			escaped = append(escaped, '\\', prefix[i])
		default:
			escaped = append(escaped, prefix[i])
		}
	}
	rows, err := b.db.QueryContext(ctx, `SELECT key FROM kv_store WHERE key LIKE $1`, string(escaped)+"%")
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

func (b *Backend) IsHealthy(ctx context.Context) bool {
	return b.db.PingContext(ctx) == nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

// DB exposes the underlying pool for components that need direct SQL access
// (the job queue's atomic dequeue, for instance).
func (b *Backend) DB() *stdsql.DB {
	return b.db
}
