package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the optional vex.yaml file structure. Every section is
// optional; unset sections fall back to built-in defaults.
type fileConfig struct {
	Storage   *StorageConfig   `yaml:"storage"`
	Queue     *QueueConfig     `yaml:"queue"`
	Genome    *GenomeConfig    `yaml:"genome"`
	Anchor    *AnchorConfig    `yaml:"anchor"`
	RateLimit *RateLimitConfig `yaml:"rate_limit"`
	Breaker   *BreakerConfig   `yaml:"breaker"`
}

// Initialize loads, validates, and returns ready-to-use configuration. This
// is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Start from built-in defaults.
//  2. Load vex.yaml from configDir, if present, overriding whole sections.
//  3. Apply DATABASE_URL / VEX_SQLITE_ENCRYPTION_KEY environment overrides.
//  4. Validate.
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg := Default()
	cfg.configDir = configDir

	fc, err := loadFile(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFileOverrides(cfg, fc)
	applyEnvOverrides(cfg)

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized",
		"storage_driver", stats.StorageDriver,
		"anchor_backend", stats.AnchorBackend,
		"queue_worker_count", stats.QueueWorkerCount,
		"consensus_protocol", stats.ConsensusProtocol)

	return cfg, nil
}

func loadFile(configDir string) (*fileConfig, error) {
	path := filepath.Join(configDir, "vex.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileConfig{}, nil
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &fc, nil
}

func applyFileOverrides(cfg *Config, fc *fileConfig) {
	if fc.Storage != nil {
		cfg.Storage = fc.Storage
	}
	if fc.Queue != nil {
		cfg.Queue = fc.Queue
	}
	if fc.Genome != nil {
		cfg.Genome = fc.Genome
	}
	if fc.Anchor != nil {
		cfg.Anchor = fc.Anchor
	}
	if fc.RateLimit != nil {
		cfg.RateLimit = fc.RateLimit
	}
	if fc.Breaker != nil {
		cfg.Breaker = fc.Breaker
	}
}

// applyEnvOverrides reads DATABASE_URL (which selects the postgres driver and
// sets its DSN) and VEX_SQLITE_ENCRYPTION_KEY. No <PROVIDER>_API_KEY variable
// is read, here or in the llm package.
func applyEnvOverrides(cfg *Config) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Storage.Driver = "postgres"
		cfg.Storage.DSN = dsn
	}
	if key := os.Getenv("VEX_SQLITE_ENCRYPTION_KEY"); key != "" {
		cfg.Storage.EncryptionKey = key
	}
}
