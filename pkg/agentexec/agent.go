// Package agentexec implements the blue/red adversarial agent executor:
// composing the prompt, invoking the blue LLM call, conditionally running
// a bounded debate against a spawned shadow (red) agent, evaluating
// consensus, and producing the verified response contract.
package agentexec

import (
	"errors"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/vex/pkg/genome"
)

// ErrMaxDepthReached is returned by Spawn when the parent is already at its
// configured max depth.
var ErrMaxDepthReached = errors.New("agentexec: agent is at max depth, cannot spawn children")

// Agent is a persistent agent identity: role, lineage, current context, and
// the genome driving its LLM parameters.
type Agent struct {
	ID       uuid.UUID
	Name     string
	Role     string
	Generation int
	Depth    int
	MaxDepth int

	Context *ContextPacket

	ChildIDs []uuid.UUID
	ShadowID *uuid.UUID
	ParentID *uuid.UUID

	Fitness float64
	Genome  genome.Genome
}

// NewRootAgent constructs a generation-0, depth-0 agent with no parent.
func NewRootAgent(name, role string, g genome.Genome, maxDepth int) *Agent {
	return &Agent{
		ID:       uuid.New(),
		Name:     name,
		Role:     role,
		Generation: 0,
		Depth:    0,
		MaxDepth: maxDepth,
		Fitness:  0.5,
		Genome:   g,
	}
}

// Spawn creates a child of parent with a new role, incrementing generation
// and depth. Returns ErrMaxDepthReached if parent.Depth == parent.MaxDepth.
func (parent *Agent) Spawn(name, role string) (*Agent, error) {
	if parent.Depth >= parent.MaxDepth {
		return nil, ErrMaxDepthReached
	}
	parentID := parent.ID
	child := &Agent{
		ID:         uuid.New(),
		Name:       name,
		Role:       role,
		Generation: parent.Generation + 1,
		Depth:      parent.Depth + 1,
		MaxDepth:   parent.MaxDepth,
		ParentID:   &parentID,
		Fitness:    parent.Fitness,
		Genome:     parent.Genome,
	}
	parent.ChildIDs = append(parent.ChildIDs, child.ID)
	return child, nil
}

// SpawnShadow creates parent's shadow (red) agent: depth 0, no further
// spawning of its own, carrying parent's genome.
func (parent *Agent) SpawnShadow(role string) *Agent {
	parentID := parent.ID
	shadow := &Agent{
		ID:         uuid.New(),
		Name:       parent.Name + "-shadow",
		Role:       role,
		Generation: parent.Generation + 1,
		Depth:      0,
		MaxDepth:   0,
		ParentID:   &parentID,
		Fitness:    parent.Fitness,
		Genome:     parent.Genome,
	}
	parent.ShadowID = &shadow.ID
	return shadow
}
