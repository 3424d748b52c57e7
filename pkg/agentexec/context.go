package agentexec

import (
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/vex/pkg/vexhash"
)

// CompressionLevel tags how much of the original content a context packet
// retains.
type CompressionLevel string

const (
	CompressionFull     CompressionLevel = "full"
	CompressionSummary  CompressionLevel = "summary"
	CompressionAbstract CompressionLevel = "abstract"
	CompressionMinimal  CompressionLevel = "minimal"
)

// ContextPacket is an immutable fact produced by an agent. Hash is a pure
// function of Content; ParentHash, when set, links packets into an acyclic
// chain.
type ContextPacket struct {
	ID          uuid.UUID
	Content     []byte
	CreatedAt   time.Time
	Expiry      *time.Time
	Compression CompressionLevel
	Hash        vexhash.Hash
	ParentHash  *vexhash.Hash
	SourceAgent *uuid.UUID
	Importance  float64
}

// NewContextPacket builds a packet over content, computing its content hash
// and chaining it to parent (if non-nil).
func NewContextPacket(content []byte, sourceAgent uuid.UUID, importance float64, now time.Time, parent *ContextPacket) ContextPacket {
	packet := ContextPacket{
		ID:          uuid.New(),
		Content:     content,
		CreatedAt:   now,
		Compression: CompressionFull,
		Hash:        vexhash.Digest(content),
		SourceAgent: &sourceAgent,
		Importance:  importance,
	}
	if parent != nil {
		h := parent.Hash
		packet.ParentHash = &h
	}
	return packet
}
