package adversarial

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func votes(agrees ...bool) []Vote {
	out := make([]Vote, len(agrees))
	for i, a := range agrees {
		out[i] = Vote{AgentID: uuid.New(), Agrees: a, Confidence: 0.8}
	}
	return out
}

func TestMajorityReachedWhenNotSplitEvenly(t *testing.T) {
	result := Evaluate(Majority, votes(true, true, false))
	assert.True(t, result.Reached)
	assert.True(t, result.Decision)
}

func TestMajorityNotReachedOnExactSplit(t *testing.T) {
	result := Evaluate(Majority, votes(true, false))
	assert.False(t, result.Reached)
}

func TestSuperMajorityRequiresTwoThirds(t *testing.T) {
	reached := Evaluate(SuperMajority, votes(true, true, true, false))
	assert.True(t, reached.Reached)
	assert.True(t, reached.Decision)

	notReached := Evaluate(SuperMajority, votes(true, true, false, false))
	assert.False(t, notReached.Reached)
}

func TestUnanimousFailsOnAnyDisagreement(t *testing.T) {
	result := Evaluate(Unanimous, votes(true, false))
	assert.False(t, result.Reached)
	assert.False(t, result.Decision)
}

func TestUnanimousReachedWhenAllAgree(t *testing.T) {
	result := Evaluate(Unanimous, votes(true, true, true))
	assert.True(t, result.Reached)
	assert.True(t, result.Decision)
}

func TestWeightedConfidenceWeighsByConfidenceNotCount(t *testing.T) {
	v := []Vote{
		{AgentID: uuid.New(), Agrees: true, Confidence: 0.9},
		{AgentID: uuid.New(), Agrees: false, Confidence: 0.1},
		{AgentID: uuid.New(), Agrees: false, Confidence: 0.1},
	}
	result := Evaluate(WeightedConfidence, v)
	assert.True(t, result.Reached)
	assert.True(t, result.Decision)
}

func TestEvaluateEmptyVotesNotReached(t *testing.T) {
	result := Evaluate(Majority, nil)
	assert.False(t, result.Reached)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestEvaluateConfidenceIsMeanOfVotes(t *testing.T) {
	v := []Vote{
		{AgentID: uuid.New(), Agrees: true, Confidence: 1.0},
		{AgentID: uuid.New(), Agrees: true, Confidence: 0.5},
	}
	result := Evaluate(Majority, v)
	assert.InDelta(t, 0.75, result.Confidence, 1e-9)
}
