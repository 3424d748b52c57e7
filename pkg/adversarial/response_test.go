package adversarial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRedResponseParsesWellFormedJSON(t *testing.T) {
	raw := `Here is my analysis: {"is_challenge": true, "confidence": 0.8, "reasoning": "too absolute", "suggested_revision": null}`
	resp := ParseRedResponse(raw)

	assert.True(t, resp.IsChallenge)
	assert.Equal(t, 0.8, resp.Confidence)
	assert.Equal(t, "too absolute", resp.Reasoning)
	assert.Nil(t, resp.SuggestedRevision)
}

func TestParseRedResponseFallsBackOnParseFailure(t *testing.T) {
	raw := "I have to disagree with this claim, it's overstated."
	resp := ParseRedResponse(raw)

	assert.True(t, resp.IsChallenge)
	assert.Equal(t, raw, resp.Reasoning)
}

func TestParseRedResponseFallbackNotChallengeWithoutDisagree(t *testing.T) {
	raw := "This all looks correct to me."
	resp := ParseRedResponse(raw)

	assert.False(t, resp.IsChallenge)
}
