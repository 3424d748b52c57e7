package genome

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// successThreshold is the overall_fitness value above which an experiment is
// marked successful.
const successThreshold = 0.6

// fallbackOverallFitness is substituted for a non-finite or out-of-range
// overall fitness value, rather than dropping the experiment.
const fallbackOverallFitness = 0.5

const maxFitnessKeyLen = 100
const maxTaskSummaryLen = 200

// allowedTaskSummaryPunct is the punctuation set task summaries may retain;
// everything else, including control characters and escape sequences, is
// stripped.
const allowedTaskSummaryPunct = ".,!?-_:;()[]{} "

// Experiment snapshots a genome's trait vector alongside the fitness it
// achieved on a task, for later correlation learning.
type Experiment struct {
	ID             uuid.UUID
	Timestamp      time.Time
	Traits         [numTraits]float64
	FitnessScores  map[string]float64
	OverallFitness float64
	TaskSummary    string
	Successful     bool
}

// NewExperiment constructs an Experiment from a tested genome and its
// fitness results. Fitness scores that are NaN, infinite, or outside [0,1]
// are dropped, as are keys outside 1..100 characters. overallFitness
// similarly invalid falls back to 0.5 rather than discarding the
// experiment. taskSummary is scrubbed to alphanumerics, spaces, and a safe
// punctuation set, and truncated to 200 characters.
func NewExperiment(g Genome, fitnessScores map[string]float64, overallFitness float64, taskSummary string, now time.Time) Experiment {
	cleanScores := make(map[string]float64, len(fitnessScores))
	for k, v := range fitnessScores {
		if len(k) < 1 || len(k) > maxFitnessKeyLen {
			continue
		}
		if !validUnitFitness(v) {
			continue
		}
		cleanScores[k] = v
	}

	overall := overallFitness
	if !validUnitFitness(overall) {
		overall = fallbackOverallFitness
	}

	return Experiment{
		ID:             uuid.New(),
		Timestamp:      now,
		Traits:         g.Traits,
		FitnessScores:  cleanScores,
		OverallFitness: overall,
		TaskSummary:    sanitizeTaskSummary(taskSummary),
		Successful:     overall > successThreshold,
	}
}

func validUnitFitness(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0.0 && v <= 1.0
}

func sanitizeTaskSummary(s string) string {
	var b strings.Builder
	for _, r := range s {
		if b.Len() >= maxTaskSummaryLen {
			break
		}
		if isAlphanumericRune(r) || strings.ContainsRune(allowedTaskSummaryPunct, r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > maxTaskSummaryLen {
		out = out[:maxTaskSummaryLen]
	}
	return out
}

func isAlphanumericRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// Trait returns the value of a named trait from the experiment's snapshot.
func (e Experiment) Trait(name string) (float64, bool) {
	for i, n := range TraitNames {
		if n == name {
			return e.Traits[i], true
		}
	}
	return 0, false
}
