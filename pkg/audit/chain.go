package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/vex/pkg/merkle"
	"github.com/codeready-toolchain/vex/pkg/redact"
	"github.com/codeready-toolchain/vex/pkg/storage"
	"github.com/codeready-toolchain/vex/pkg/vexerr"
	"github.com/codeready-toolchain/vex/pkg/vexhash"
)

func chainStateKey(tenant string) string { return fmt.Sprintf("audit:tenant:%s:chain_state", tenant) }
func chainIndexKey(tenant string) string { return fmt.Sprintf("audit:tenant:%s:chain", tenant) }
func eventKey(tenant string, id uuid.UUID) string {
	return fmt.Sprintf("audit:tenant:%s:event:%s", tenant, id)
}

// Chain is a per-tenant hash-chained audit log backed by a storage.Backend.
// Chain state mutation is guarded per tenant, matching the spec's "chain
// state: guarded per tenant" shared-resource rule.
type Chain struct {
	backend storage.Backend

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
}

// New constructs a Chain over backend.
func New(backend storage.Backend) *Chain {
	return &Chain{backend: backend, locks: make(map[string]*sync.Mutex)}
}

func (c *Chain) tenantLock(tenant string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[tenant]
	if !ok {
		l = &sync.Mutex{}
		c.locks[tenant] = l
	}
	return l
}

func (c *Chain) loadChainState(ctx context.Context, tenant string) (ChainState, error) {
	raw, ok, err := c.backend.GetValue(ctx, chainStateKey(tenant))
	if err != nil {
		return ChainState{}, vexerr.New(vexerr.CategoryStorage, "load chain state", err)
	}
	if !ok {
		return ChainState{}, nil
	}
	var state ChainState
	if err := json.Unmarshal(raw, &state); err != nil {
		return ChainState{}, vexerr.New(vexerr.CategoryStorage, "decode chain state", err)
	}
	return state, nil
}

func (c *Chain) saveChainState(ctx context.Context, tenant string, state ChainState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return vexerr.New(vexerr.CategoryStorage, "encode chain state", err)
	}
	if err := c.backend.SetValue(ctx, chainStateKey(tenant), raw); err != nil {
		return vexerr.New(vexerr.CategoryStorage, "save chain state", err)
	}
	return nil
}

func (c *Chain) loadChainIndex(ctx context.Context, tenant string) ([]uuid.UUID, error) {
	raw, ok, err := c.backend.GetValue(ctx, chainIndexKey(tenant))
	if err != nil {
		return nil, vexerr.New(vexerr.CategoryStorage, "load chain index", err)
	}
	if !ok {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, vexerr.New(vexerr.CategoryStorage, "decode chain index", err)
	}
	return ids, nil
}

func (c *Chain) saveChainIndex(ctx context.Context, tenant string, ids []uuid.UUID) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return vexerr.New(vexerr.CategoryStorage, "encode chain index", err)
	}
	if err := c.backend.SetValue(ctx, chainIndexKey(tenant), raw); err != nil {
		return vexerr.New(vexerr.CategoryStorage, "save chain index", err)
	}
	return nil
}

// LogInput carries the caller-supplied fields for Log; everything else
// (hash, previous_hash, sequence) is computed by the chain itself.
type LogInput struct {
	Tenant               string
	EventType            EventType
	Actor                Actor
	AgentID              *string
	Data                 json.RawMessage
	Rationale            *string
	PolicyVersion        *string
	DataProvenanceHash   *string
	HumanReviewRequired  bool
	ApprovalCount        int
	EvidenceCapsule      json.RawMessage
	Signatures           []Signature
}

// Log appends a new event to tenant's chain: pseudonymizes the actor,
// sanitizes data, assigns a sequence number, computes the chained hash, and
// persists the event, the updated chain index, and the updated chain state.
func (c *Chain) Log(ctx context.Context, in LogInput) (*Event, error) {
	lock := c.tenantLock(in.Tenant)
	lock.Lock()
	defer lock.Unlock()

	actor := in.Actor
	if actor.Kind == ActorKindHuman {
		actor.ID = redact.PseudonymizeActorID(actor.ID)
	}

	sanitizedData, err := sanitizeRaw(in.Data)
	if err != nil {
		return nil, vexerr.New(vexerr.CategoryValidation, "sanitize data", err)
	}
	sanitizedCapsule, err := sanitizeRaw(in.EvidenceCapsule)
	if err != nil {
		return nil, vexerr.New(vexerr.CategoryValidation, "sanitize evidence capsule", err)
	}

	state, err := c.loadChainState(ctx, in.Tenant)
	if err != nil {
		return nil, err
	}

	ev := &Event{
		ID:                  uuid.New(),
		EventType:           in.EventType,
		Timestamp:           time.Now().UTC(),
		AgentID:             in.AgentID,
		Data:                sanitizedData,
		PreviousHash:        state.LastHash,
		Sequence:            state.Sequence,
		Actor:               actor,
		Rationale:           in.Rationale,
		PolicyVersion:       in.PolicyVersion,
		DataProvenanceHash:  in.DataProvenanceHash,
		HumanReviewRequired: in.HumanReviewRequired,
		ApprovalCount:       in.ApprovalCount,
		Signatures:          in.Signatures,
		EvidenceCapsule:     sanitizedCapsule,
	}

	hash, err := ev.computeHash()
	if err != nil {
		return nil, vexerr.New(vexerr.CategoryStorage, "compute event hash", err)
	}
	ev.Hash = hash

	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, vexerr.New(vexerr.CategoryStorage, "encode event", err)
	}
	if err := c.backend.SetValue(ctx, eventKey(in.Tenant, ev.ID), raw); err != nil {
		return nil, err
	}

	ids, err := c.loadChainIndex(ctx, in.Tenant)
	if err != nil {
		return nil, err
	}
	ids = append(ids, ev.ID)
	if err := c.saveChainIndex(ctx, in.Tenant, ids); err != nil {
		return nil, err
	}

	newState := ChainState{LastHash: &hash, Sequence: state.Sequence + 1}
	if err := c.saveChainState(ctx, in.Tenant, newState); err != nil {
		return nil, err
	}

	return ev, nil
}

func sanitizeRaw(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return raw, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	sanitized := redact.Sanitize(v)
	return json.Marshal(sanitized)
}

// Events returns every event for tenant in chain (insertion) order.
func (c *Chain) Events(ctx context.Context, tenant string) ([]*Event, error) {
	ids, err := c.loadChainIndex(ctx, tenant)
	if err != nil {
		return nil, err
	}
	events := make([]*Event, 0, len(ids))
	for _, id := range ids {
		raw, ok, err := c.backend.GetValue(ctx, eventKey(tenant, id))
		if err != nil {
			return nil, vexerr.New(vexerr.CategoryStorage, "load event", err)
		}
		if !ok {
			return nil, vexerr.New(vexerr.CategoryStorage, "event missing from store", vexerr.ErrNotFound)
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, vexerr.New(vexerr.CategoryStorage, "decode event", err)
		}
		events = append(events, &ev)
	}
	return events, nil
}

// VerifyResult reports the outcome of VerifyChain, identifying the first
// event that failed verification (if any).
type VerifyResult struct {
	Valid          bool
	FailedAtIndex  int
	FailedEventID  uuid.UUID
	Reason         string
}

// VerifyChain iterates tenant's events in index order and, per the spec's
// stricter reading, recomputes each event's hash from its stored fields and
// compares it against the stored hash, in addition to checking previous_hash
// linkage and no-previous-hash-on-first-event. A truncated or merely
// linkage-based check would not catch an event whose stored hash was
// tampered with in place alongside a consistent previous_hash pointer.
func (c *Chain) VerifyChain(ctx context.Context, tenant string) (VerifyResult, error) {
	events, err := c.Events(ctx, tenant)
	if err != nil {
		return VerifyResult{}, err
	}

	var prevHash *vexhash.Hash
	for i, ev := range events {
		if i == 0 && ev.PreviousHash != nil {
			return VerifyResult{FailedAtIndex: i, FailedEventID: ev.ID, Reason: "first event must have no previous_hash"}, nil
		}
		if i > 0 {
			if ev.PreviousHash == nil || prevHash == nil || *ev.PreviousHash != *prevHash {
				return VerifyResult{FailedAtIndex: i, FailedEventID: ev.ID, Reason: "previous_hash does not match prior event's hash"}, nil
			}
		}

		recomputed, err := ev.computeHash()
		if err != nil {
			return VerifyResult{}, vexerr.New(vexerr.CategoryStorage, "recompute event hash", err)
		}
		if recomputed != ev.Hash {
			return VerifyResult{FailedAtIndex: i, FailedEventID: ev.ID, Reason: "stored hash does not match recomputed hash"}, nil
		}

		h := ev.Hash
		prevHash = &h
	}

	return VerifyResult{Valid: true}, nil
}

// BuildMerkleTree constructs a Merkle tree over tenant's events in chain
// order, using (event.id, event.hash) as the leaf pairs.
func (c *Chain) BuildMerkleTree(ctx context.Context, tenant string) (*merkle.Tree, error) {
	events, err := c.Events(ctx, tenant)
	if err != nil {
		return nil, err
	}
	leaves := make([]merkle.Leaf, len(events))
	for i, ev := range events {
		leaves[i] = merkle.Leaf{ID: ev.ID.String(), Hash: ev.Hash}
	}
	return merkle.Build(leaves), nil
}
