// Package audit implements the per-tenant hash-chained audit log: event
// sanitization and pseudonymization, chained hashing, tamper verification,
// and Merkle commitment construction for external anchoring.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/vex/pkg/vexhash"
)

// EventType identifies the kind of audit event. The canonical set is closed
// except for Custom, which carries an arbitrary caller-supplied label.
type EventType string

const (
	EventAgentCreated      EventType = "AgentCreated"
	EventAgentExecuted     EventType = "AgentExecuted"
	EventDebateStarted     EventType = "DebateStarted"
	EventDebateRound       EventType = "DebateRound"
	EventDebateConcluded   EventType = "DebateConcluded"
	EventConsensusReached  EventType = "ConsensusReached"
	EventContextStored     EventType = "ContextStored"
	EventPaymentInitiated  EventType = "PaymentInitiated"
	EventPaymentCompleted  EventType = "PaymentCompleted"
	EventPolicyUpdate      EventType = "PolicyUpdate"
	EventModelUpgrade      EventType = "ModelUpgrade"
	EventAnomalousBehavior EventType = "AnomalousBehavior"
	EventHumanOverride     EventType = "HumanOverride"
	EventGateDecision      EventType = "GateDecision"
)

// CustomEventType builds a Custom(label) event type.
func CustomEventType(label string) EventType {
	return EventType("Custom(" + label + ")")
}

// ActorKind distinguishes the three actor shapes an audit event may carry.
type ActorKind string

const (
	ActorKindSystem ActorKind = "system"
	ActorKindBot    ActorKind = "bot"
	ActorKindHuman  ActorKind = "human"
)

// Actor identifies who (or what) triggered an audit event. For ActorKindHuman,
// ID is pseudonymized (hex-SHA-256) by Log before the event is persisted; the
// Actor value returned to callers after logging always reflects the
// pseudonymized form.
type Actor struct {
	Kind ActorKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
}

func SystemActor() Actor            { return Actor{Kind: ActorKindSystem} }
func BotActor(id uuid.UUID) Actor   { return Actor{Kind: ActorKindBot, ID: id.String()} }
func HumanActor(id string) Actor    { return Actor{Kind: ActorKindHuman, ID: id} }

// Signature is an Ed25519 signature over an event's hash by a named signer.
type Signature struct {
	SignerID  string    `json:"signer_id"`
	SignedAt  time.Time `json:"signed_at"`
	Signature [64]byte  `json:"signature"`
}

// Event is a single audit log entry. Hash and PreviousHash are computed by
// Log and must never be set directly by callers.
type Event struct {
	ID                   uuid.UUID       `json:"id"`
	EventType            EventType       `json:"event_type"`
	Timestamp            time.Time       `json:"timestamp"`
	AgentID              *string         `json:"agent_id,omitempty"`
	Data                 json.RawMessage `json:"data"`
	Hash                 vexhash.Hash    `json:"hash"`
	PreviousHash         *vexhash.Hash   `json:"previous_hash,omitempty"`
	Sequence             uint64          `json:"sequence_number"`
	Actor                Actor           `json:"actor"`
	Rationale            *string         `json:"rationale,omitempty"`
	PolicyVersion        *string         `json:"policy_version,omitempty"`
	DataProvenanceHash   *string         `json:"data_provenance_hash,omitempty"`
	HumanReviewRequired  bool            `json:"human_review_required"`
	ApprovalCount        int             `json:"approval_count"`
	Signatures           []Signature     `json:"signatures,omitempty"`
	EvidenceCapsule      json.RawMessage `json:"evidence_capsule,omitempty"`
}

// ChainState is the per-tenant chain cursor: the hash of the most recently
// appended event (absent for an empty chain) and the next sequence number.
type ChainState struct {
	LastHash *vexhash.Hash `json:"last_hash,omitempty"`
	Sequence uint64        `json:"sequence"`
}

// hashableFields is the JCS input for an event's base hash: exactly the
// fields named in the spec's log() step 4, in the struct's declared order
// (JCS re-sorts keys regardless, but field selection must match exactly).
type hashableFields struct {
	EventType           EventType       `json:"event_type"`
	Timestamp           int64           `json:"timestamp"`
	Sequence            uint64          `json:"sequence"`
	Data                json.RawMessage `json:"data"`
	Actor               Actor           `json:"actor"`
	Rationale           *string         `json:"rationale"`
	PolicyVersion       *string         `json:"policy_version"`
	DataProvenanceHash  *string         `json:"data_provenance_hash"`
	HumanReviewRequired bool            `json:"human_review_required"`
	ApprovalCount       int             `json:"approval_count"`
	EvidenceCapsule     json.RawMessage `json:"evidence_capsule"`
}

func (e *Event) hashable() hashableFields {
	return hashableFields{
		EventType:           e.EventType,
		Timestamp:           e.Timestamp.Truncate(time.Second).UTC().Unix(),
		Sequence:            e.Sequence,
		Data:                e.Data,
		Actor:               e.Actor,
		Rationale:           e.Rationale,
		PolicyVersion:       e.PolicyVersion,
		DataProvenanceHash:  e.DataProvenanceHash,
		HumanReviewRequired: e.HumanReviewRequired,
		ApprovalCount:       e.ApprovalCount,
		EvidenceCapsule:     e.EvidenceCapsule,
	}
}

// baseHash computes H(JCS(hashable fields)), i.e. the hash before chaining
// in the previous event's hash.
func (e *Event) baseHash() (vexhash.Hash, error) {
	canon, err := vexhash.CanonicalJSON(e.hashable())
	if err != nil {
		return vexhash.Hash{}, err
	}
	return vexhash.Digest(canon), nil
}

// computeHash reproduces e.Hash from e's other fields, honoring the chain
// formula: hash = base if previous is absent, else H(base ":" hex(prev) ":" seq).
func (e *Event) computeHash() (vexhash.Hash, error) {
	base, err := e.baseHash()
	if err != nil {
		return vexhash.Hash{}, err
	}
	if e.PreviousHash == nil {
		return base, nil
	}
	input := base.Hex() + ":" + e.PreviousHash.Hex() + ":" + uitoa(e.Sequence)
	return vexhash.Digest([]byte(input)), nil
}

func uitoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
