package config

import "time"

// StorageConfig selects and configures the KV storage backend (§4.C/4.O).
type StorageConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string `yaml:"driver"`

	// DSN, when set, is used verbatim as the Postgres connection string
	// (sourced from the DATABASE_URL environment variable per §6) and takes
	// priority over the discrete Host/Port/... fields below.
	DSN string `yaml:"-"`

	// Postgres connection settings.
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`

	// SQLite settings.
	SQLitePath    string        `yaml:"sqlite_path"`
	BusyTimeout   time.Duration `yaml:"busy_timeout"`
	EncryptionKey string        `yaml:"-"` // sourced only from env, never logged or persisted
}

// DefaultStorageConfig returns SQLite defaults, suitable for a single-process
// deployment or the test suite without an external database.
func DefaultStorageConfig() *StorageConfig {
	return &StorageConfig{
		Driver:          "sqlite",
		SQLitePath:      "./data/vex.db",
		BusyTimeout:     5 * time.Second,
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	}
}

func (v *Validator) validateStorage() error {
	s := v.cfg.Storage
	if s == nil {
		return NewValidationError("storage", "", ErrMissingRequiredField)
	}
	switch s.Driver {
	case "postgres":
		if s.DSN == "" && s.Database == "" {
			return NewValidationError("storage", "database", ErrMissingRequiredField)
		}
		if s.MaxIdleConns > s.MaxOpenConns {
			return NewValidationError("storage", "max_idle_conns", ErrInvalidValue)
		}
		if s.MaxOpenConns < 1 {
			return NewValidationError("storage", "max_open_conns", ErrInvalidValue)
		}
	case "sqlite":
		if s.SQLitePath == "" {
			return NewValidationError("storage", "sqlite_path", ErrMissingRequiredField)
		}
		if s.BusyTimeout <= 0 {
			return NewValidationError("storage", "busy_timeout", ErrInvalidValue)
		}
	default:
		return NewValidationError("storage", "driver", ErrInvalidValue)
	}
	return nil
}
