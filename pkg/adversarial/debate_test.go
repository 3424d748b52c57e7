package adversarial

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDebateLifecycle(t *testing.T) {
	debate := NewDebate(uuid.New(), uuid.New(), "The sky is blue", time.Now())
	assert.False(t, debate.IsConcluded())

	rebuttal := "Rayleigh scattering still applies at sunset, just at longer wavelengths."
	debate.AddRound(Round{
		Number:         1,
		BlueClaim:      "The sky is blue due to Rayleigh scattering",
		RedReasoning:   "But the sky is red at sunset",
		RedIsChallenge: true,
		RedConfidence:  0.7,
		BlueRebuttal:   &rebuttal,
	})
	assert.Equal(t, 1, debate.RoundCount())

	debate.Conclude(true, 0.85)
	assert.True(t, debate.IsConcluded())
	assert.Equal(t, true, *debate.Verdict)
	assert.Equal(t, 0.85, debate.Confidence)
}

func TestDebateConcludeClampsConfidence(t *testing.T) {
	debate := NewDebate(uuid.New(), uuid.New(), "claim", time.Now())
	debate.Conclude(false, 1.5)
	assert.Equal(t, 1.0, debate.Confidence)

	debate.Conclude(false, -1.0)
	assert.Equal(t, 0.0, debate.Confidence)
}
