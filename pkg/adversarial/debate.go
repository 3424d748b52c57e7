package adversarial

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMaxRounds is the bounded number of challenge/rebuttal rounds a
// debate runs for when the caller does not override it.
const DefaultMaxRounds = 3

// Round is a single exchange within a debate: the red agent's challenge
// (and confidence/reasoning) against blue's current claim, with blue's
// optional rebuttal.
type Round struct {
	Number         uint32
	BlueClaim      string
	RedReasoning   string
	RedIsChallenge bool
	RedConfidence  float64
	BlueRebuttal   *string
}

// Debate is the bounded adversarial exchange between a blue agent
// (proposing a claim) and a red agent (challenging it).
type Debate struct {
	ID            uuid.UUID
	BlueAgentID   uuid.UUID
	RedAgentID    uuid.UUID
	InitialClaim  string
	Rounds        []Round
	Verdict       *bool
	Confidence    float64
	startedAt     time.Time
}

// NewDebate starts a debate over claim between blueID and redID.
func NewDebate(blueID, redID uuid.UUID, claim string, now time.Time) *Debate {
	return &Debate{
		ID:           uuid.New(),
		BlueAgentID:  blueID,
		RedAgentID:   redID,
		InitialClaim: claim,
		startedAt:    now,
	}
}

// AddRound appends a round to the debate.
func (d *Debate) AddRound(r Round) {
	d.Rounds = append(d.Rounds, r)
}

// Conclude records the final verdict (true = claim upheld) and its
// confidence, clamped to [0,1].
func (d *Debate) Conclude(upheld bool, confidence float64) {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	d.Verdict = &upheld
	d.Confidence = confidence
}

// IsConcluded reports whether a verdict has been recorded.
func (d *Debate) IsConcluded() bool {
	return d.Verdict != nil
}

// RoundCount reports how many rounds have been recorded.
func (d *Debate) RoundCount() int {
	return len(d.Rounds)
}

// StartedAt reports when the debate began.
func (d *Debate) StartedAt() time.Time {
	return d.startedAt
}
