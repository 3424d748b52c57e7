package adversarial

import "github.com/google/uuid"

// Vote is a single agent's position on whether a claim should stand.
type Vote struct {
	AgentID    uuid.UUID
	Agrees     bool
	Confidence float64
	Reasoning  string
}

// Protocol selects the rule used to turn a vote set into a decision.
type Protocol int

const (
	// Majority is reached whenever the agree ratio is not exactly 0.5;
	// the decision is whichever side has more than half.
	Majority Protocol = iota
	// SuperMajority is reached only when the agree ratio exceeds 0.66
	// (decision=true) or falls below 0.34 (decision=false).
	SuperMajority
	// Unanimous is reached only when every vote agrees or every vote
	// disagrees.
	Unanimous
	// WeightedConfidence weighs each vote by its confidence rather than
	// counting heads; reached whenever any confidence was cast at all.
	WeightedConfidence
)

// Result is the outcome of evaluating a vote set under a protocol.
type Result struct {
	Protocol   Protocol
	Votes      []Vote
	Reached    bool
	Decision   bool
	Confidence float64
}

// Evaluate tallies votes under protocol and returns whether consensus was
// reached, the decision (meaningful only if Reached), and the overall
// confidence (the arithmetic mean of each vote's confidence).
func Evaluate(protocol Protocol, votes []Vote) Result {
	result := Result{Protocol: protocol, Votes: votes}
	if len(votes) == 0 {
		return result
	}

	total := float64(len(votes))
	var agrees float64
	var confidenceSum float64
	for _, v := range votes {
		if v.Agrees {
			agrees++
		}
		confidenceSum += v.Confidence
	}
	ratio := agrees / total
	result.Confidence = confidenceSum / total

	switch protocol {
	case Majority:
		result.Reached = ratio != 0.5
		result.Decision = ratio > 0.5
	case SuperMajority:
		switch {
		case ratio > 0.66:
			result.Reached = true
			result.Decision = true
		case ratio < 0.34:
			result.Reached = true
			result.Decision = false
		}
	case Unanimous:
		switch ratio {
		case 1.0:
			result.Reached = true
			result.Decision = true
		case 0.0:
			result.Reached = true
			result.Decision = false
		}
	case WeightedConfidence:
		var weightedAgree, weightedDisagree float64
		for _, v := range votes {
			if v.Agrees {
				weightedAgree += v.Confidence
			} else {
				weightedDisagree += v.Confidence
			}
		}
		totalWeight := weightedAgree + weightedDisagree
		if totalWeight > 0 {
			result.Reached = true
			result.Decision = weightedAgree/totalWeight > 0.5
		}
	}

	return result
}
