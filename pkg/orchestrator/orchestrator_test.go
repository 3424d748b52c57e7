package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/vex/pkg/agentexec"
	"github.com/codeready-toolchain/vex/pkg/config"
	"github.com/codeready-toolchain/vex/pkg/evomemory"
	"github.com/codeready-toolchain/vex/pkg/genome"
	"github.com/codeready-toolchain/vex/pkg/llm"
)

func newRunner(t *testing.T) (*Orchestrator, *agentexec.Agent) {
	t.Helper()
	provider := llm.NewMockProvider()
	provider.Responder = func(req llm.Request) (llm.Response, error) {
		return llm.Response{Content: "answer from " + req.System}, nil
	}
	exec := &agentexec.Executor{
		Provider: provider,
		Config:   &config.GenomeConfig{AdversarialEnabled: false},
	}
	root := agentexec.NewRootAgent("root", "Synthesizer", genome.New("root"), 3)
	o := &Orchestrator{
		Executor: exec,
		Config: &config.GenomeConfig{
			AgentsPerLevel:     2,
			TournamentSize:     2,
			MutationRate:       0.1,
			AdversarialEnabled: false,
		},
	}
	return o, root
}

func TestRunSpawnsDefaultRolesAndSynthesizes(t *testing.T) {
	o, root := newRunner(t)
	result, err := o.Run(context.Background(), root, "what should we build?")
	require.NoError(t, err)

	assert.Equal(t, root.ID.String(), result.RootID)
	assert.Equal(t, 1, result.LevelsProcessed)
	assert.Len(t, result.PerAgent, 3) // 2 children + root
	assert.False(t, result.MerkleRoot.IsZero())
	assert.Contains(t, result.Response, "answer from Synthesizer")

	assert.Len(t, root.ChildIDs, 2)
}

func TestRunConfidenceIsMeanOfChildAndRootConfidences(t *testing.T) {
	o, root := newRunner(t)
	result, err := o.Run(context.Background(), root, "prompt")
	require.NoError(t, err)

	var sum float64
	for _, r := range result.PerAgent {
		sum += r.Confidence
	}
	assert.InDelta(t, sum/float64(len(result.PerAgent)), result.Confidence, 1e-9)
}

func TestRunEvolutionStepAppliesOffspringToFittestChildAndRecordsExperiment(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.Responder = func(req llm.Request) (llm.Response, error) {
		if req.System == agentexec.ChallengerRole {
			return llm.Response{Content: `{"is_challenge": false, "confidence": 0.95, "reasoning": "fine", "suggested_revision": null}`}, nil
		}
		return llm.Response{Content: "ok"}, nil
	}
	exec := &agentexec.Executor{
		Provider: provider,
		Config: &config.GenomeConfig{
			AdversarialEnabled: true,
			MaxDebateRounds:    2,
			ConsensusProtocol:  "majority",
		},
	}
	mem := evomemory.New()
	o := &Orchestrator{
		Executor: exec,
		Config: &config.GenomeConfig{
			AgentsPerLevel:     2,
			TournamentSize:     2,
			MutationRate:       0.1,
			AdversarialEnabled: true,
			MaxDebateRounds:    2,
			ConsensusProtocol:  "majority",
		},
		Memory: mem,
	}
	root := agentexec.NewRootAgent("root", "Synthesizer", genome.New("root"), 3)

	_, err := o.Run(context.Background(), root, "prompt")
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Len())
}
