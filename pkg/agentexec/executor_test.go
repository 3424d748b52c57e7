package agentexec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/vex/pkg/config"
	"github.com/codeready-toolchain/vex/pkg/genome"
	"github.com/codeready-toolchain/vex/pkg/llm"
)

func fixedClock() func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func newTestAgent() *Agent {
	return NewRootAgent("root", "You are a helpful researcher.", genome.New("researcher"), 3)
}

func TestExecuteNonAdversarialSkipsDebate(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.Responder = func(req llm.Request) (llm.Response, error) {
		return llm.Response{Content: "the answer is 42"}, nil
	}

	exec := &Executor{
		Provider: provider,
		Config:   &config.GenomeConfig{AdversarialEnabled: false},
		Now:      fixedClock(),
	}

	result, err := exec.Execute(context.Background(), newTestAgent(), "what is the answer?")
	require.NoError(t, err)
	assert.False(t, result.Verified)
	assert.Equal(t, 0.5, result.Confidence)
	assert.Equal(t, "the answer is 42", result.Response)
	assert.Nil(t, result.Debate)
}

func TestExecuteAdversarialCleanResponseIsVerified(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.Responder = func(req llm.Request) (llm.Response, error) {
		if req.System == ChallengerRole {
			return llm.Response{Content: `{"is_challenge": false, "confidence": 0.9, "reasoning": "looks solid", "suggested_revision": null}`}, nil
		}
		return llm.Response{Content: "water boils at 100C at sea level"}, nil
	}

	exec := &Executor{
		Provider: provider,
		Config: &config.GenomeConfig{
			AdversarialEnabled: true,
			MaxDebateRounds:    3,
			ConsensusProtocol:  "majority",
		},
		Now: fixedClock(),
	}

	agent := newTestAgent()
	result, err := exec.Execute(context.Background(), agent, "at what temperature does water boil?")
	require.NoError(t, err)
	require.NotNil(t, result.Debate)
	assert.True(t, result.Verified)
	assert.Equal(t, "water boils at 100C at sea level", result.Response)
	assert.Equal(t, 0, result.Debate.RoundCount(), "a clean red response should stop before any round is recorded")
	assert.NotNil(t, agent.Context)
	assert.Equal(t, agent.ID, *agent.Context.SourceAgent)
}

func TestExecuteAdversarialChallengeRecordsRoundAndUsesRebuttalWhenNotVerified(t *testing.T) {
	provider := llm.NewMockProvider()
	calls := 0
	provider.Responder = func(req llm.Request) (llm.Response, error) {
		if req.System == ChallengerRole {
			calls++
			return llm.Response{Content: `{"is_challenge": true, "confidence": 0.9, "reasoning": "overstated", "suggested_revision": null}`}, nil
		}
		if calls == 0 {
			return llm.Response{Content: "this always works without exception"}, nil
		}
		return llm.Response{Content: "this works in most tested cases"}, nil
	}

	exec := &Executor{
		Provider: provider,
		Config: &config.GenomeConfig{
			AdversarialEnabled: true,
			MaxDebateRounds:    1,
			ConsensusProtocol:  "unanimous",
		},
		Now: fixedClock(),
	}

	agent := newTestAgent()
	result, err := exec.Execute(context.Background(), agent, "does this approach work?")
	require.NoError(t, err)
	require.NotNil(t, result.Debate)
	assert.Equal(t, 1, result.Debate.RoundCount())
	assert.False(t, result.Verified, "unanimous consensus cannot be reached once red challenges")
	assert.Equal(t, "this works in most tested cases", result.Response)
}

func TestComposePromptPrependsPreviousContext(t *testing.T) {
	exec := &Executor{Now: fixedClock()}
	agent := newTestAgent()
	packet := NewContextPacket([]byte("prior fact"), agent.ID, 0.8, fixedClock()(), nil)
	agent.Context = &packet

	composed := exec.composePrompt(agent, "new question")
	assert.Contains(t, composed, "Previous Context")
	assert.Contains(t, composed, "prior fact")
	assert.Contains(t, composed, "new question")
}
