// Package anchor defines the common contract shared by every external
// anchoring backend (File, OpenTimestamps, Ethereum, Celestia, Git) that
// commits a periodic audit Merkle root to a tamper-evident external system.
package anchor

import (
	"context"
	"errors"
	"time"

	"github.com/codeready-toolchain/vex/pkg/vexhash"
)

// Category distinguishes the anchor-specific error classes named by the spec.
type Category string

const (
	CategoryNetwork            Category = "network"
	CategoryBackendUnavailable Category = "backend_unavailable"
	CategoryVerificationFailed Category = "verification_failed"
	CategoryGit                Category = "git"
)

// Error wraps a Category with the underlying cause.
type Error struct {
	Cat Category
	Err error
}

func (e *Error) Error() string { return string(e.Cat) + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

func newErr(cat Category, err error) error { return &Error{Cat: cat, Err: err} }

var ErrNoProof = errors.New("anchor: receipt carries no proof")

// Metadata accompanies a root when submitting it to a backend.
type Metadata struct {
	TenantID    string
	EventCount  uint64
	Timestamp   time.Time
	Description string
}

// Receipt is the backend-agnostic anchor record returned by Anchor and
// consumed by Verify.
type Receipt struct {
	Backend     string         `json:"backend"`
	RootHash    string         `json:"root_hash"`
	AnchorID    string         `json:"anchor_id"`
	AnchoredAt  time.Time      `json:"anchored_at"`
	Proof       *string        `json:"proof,omitempty"`
	Metadata    Metadata       `json:"metadata"`
}

// Backend is the capability set every anchoring backend exposes.
type Backend interface {
	Name() string
	Anchor(ctx context.Context, root vexhash.Hash, metadata Metadata) (Receipt, error)
	Verify(ctx context.Context, receipt Receipt) (bool, error)
	IsHealthy(ctx context.Context) bool
}
