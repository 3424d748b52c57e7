// Package storage defines the key/value storage backend contract shared by
// the audit chain, the durable job queue, and episodic memory. Concrete
// backends live in the postgres and sqlite subpackages.
package storage

import (
	"context"
	"encoding/json"
)

// Backend is the capability set every storage implementation exposes,
// mirroring the spec's set_value/get_value/delete/exists/list_keys/
// is_healthy contract over a generic TEXT key / JSON value kv_store table.
type Backend interface {
	// SetValue upserts key with the JSON-encoded value.
	SetValue(ctx context.Context, key string, value json.RawMessage) error
	// GetValue returns the stored value, or ok=false if the key is absent.
	GetValue(ctx context.Context, key string) (value json.RawMessage, ok bool, err error)
	// Delete removes key, reporting whether a row was actually removed.
	Delete(ctx context.Context, key string) (removed bool, err error)
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// ListKeys returns every key with the given prefix, in no particular order.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	// IsHealthy is a liveness probe; it never returns an error.
	IsHealthy(ctx context.Context) bool
	// Close releases any held resources (connection pools, file handles).
	Close() error
}
