// Package evomemory implements the bounded episodic memory that records
// genome experiments with importance-weighted eviction and learns
// trait-fitness correlations over time, feeding trait-adjustment
// suggestions back into the evolution step.
package evomemory

import (
	"math"
	"sort"
	"sync"

	"github.com/codeready-toolchain/vex/pkg/genome"
)

// DefaultMaxEntries is the capacity applied when the caller does not
// override it.
const DefaultMaxEntries = 500

// HardMaxEntries bounds the capacity even an explicit caller request may
// set, guarding against unbounded memory growth.
const HardMaxEntries = 10_000

// correlationUpdatePeriod triggers a correlation recompute every Nth
// insertion.
const correlationUpdatePeriod = 10

// minCorrelationSamples is the minimum number of stored experiments before
// correlation learning runs at all.
const minCorrelationSamples = 10

// strongCorrelationThreshold is the |ρ| above which a trait-fitness
// correlation is considered strong enough to suggest an adjustment.
const strongCorrelationThreshold = 0.3

// suggestionStep is how far a suggested trait adjustment moves from the
// current value.
const suggestionStep = 0.1

type entry struct {
	experiment genome.Experiment
	importance float64
}

// Memory is a bounded store of genome experiments that learns trait/fitness
// correlations as it accumulates data. New experiments go to the front; each
// eviction re-sorts the stored entries by importance.
type Memory struct {
	mu           sync.Mutex
	entries      []entry
	maxEntries   int
	correlations map[string]float64
}

// New constructs a Memory with the default capacity (500).
func New() *Memory {
	return NewWithCapacity(DefaultMaxEntries)
}

// NewWithCapacity constructs a Memory capped at min(maxEntries, 10000).
func NewWithCapacity(maxEntries int) *Memory {
	if maxEntries > HardMaxEntries {
		maxEntries = HardMaxEntries
	}
	return &Memory{
		maxEntries:   maxEntries,
		correlations: make(map[string]float64),
	}
}

// Record inserts an experiment at the front (most recent), using its
// overall fitness as initial importance. If this pushes the store over
// capacity, entries are re-sorted by importance and truncated. Every 10th
// insertion recomputes trait/fitness correlations.
func (m *Memory) Record(exp genome.Experiment) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append([]entry{{experiment: exp, importance: exp.OverallFitness}}, m.entries...)
	m.maybeEvict()

	if len(m.entries)%correlationUpdatePeriod == 0 {
		m.updateCorrelationsLocked()
	}
}

func (m *Memory) maybeEvict() {
	if len(m.entries) <= m.maxEntries {
		return
	}
	sort.SliceStable(m.entries, func(i, j int) bool {
		return m.entries[i].importance > m.entries[j].importance
	})
	m.entries = m.entries[:m.maxEntries]
}

// Len reports the number of stored experiments.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// TopExperiments returns up to limit experiments ordered by importance
// descending.
func (m *Memory) TopExperiments(limit int) []genome.Experiment {
	m.mu.Lock()
	defer m.mu.Unlock()

	sorted := make([]entry, len(m.entries))
	copy(sorted, m.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].importance > sorted[j].importance
	})

	if limit > len(sorted) {
		limit = len(sorted)
	}
	out := make([]genome.Experiment, limit)
	for i := 0; i < limit; i++ {
		out[i] = sorted[i].experiment
	}
	return out
}

// Experiments returns a snapshot of all stored experiments in storage order:
// newest first, except that each eviction re-sorts the entries by importance.
func (m *Memory) Experiments() []genome.Experiment {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]genome.Experiment, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.experiment
	}
	return out
}

// ApplyDecay multiplies every stored entry's importance by factor, e.g. the
// result of a Decay.Importance computation rolled up for a tick.
func (m *Memory) ApplyDecay(factor float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		m.entries[i].importance *= factor
	}
}

// Correlations returns a snapshot of learned trait/fitness correlations.
func (m *Memory) Correlations() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.correlations))
	for k, v := range m.correlations {
		out[k] = v
	}
	return out
}

// updateCorrelationsLocked recomputes Pearson correlation between each
// trait and overall_fitness across all stored experiments. Must be called
// with m.mu held.
func (m *Memory) updateCorrelationsLocked() {
	if len(m.entries) < minCorrelationSamples {
		return
	}

	fitness := make([]float64, len(m.entries))
	for i, e := range m.entries {
		fitness[i] = e.experiment.OverallFitness
	}

	for i, name := range genome.TraitNames {
		values := make([]float64, len(m.entries))
		for j, e := range m.entries {
			values[j] = e.experiment.Traits[i]
		}
		m.correlations[name] = pearsonCorrelation(values, fitness)
	}
}

// pearsonCorrelation computes the Pearson correlation coefficient between
// x and y, returning 0.0 for mismatched lengths, empty input, non-finite
// values, near-zero denominators, or non-finite intermediate sums. The
// result is clamped to [-1, 1].
func pearsonCorrelation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0.0
	}
	for _, v := range x {
		if !isFinite(v) {
			return 0.0
		}
	}
	for _, v := range y {
		if !isFinite(v) {
			return 0.0
		}
	}

	n := float64(len(x))
	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}
	if !isFinite(sumXY) || !isFinite(sumX2) || !isFinite(sumY2) {
		return 0.0
	}

	numerator := n*sumXY - sumX*sumY
	denominator := sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))

	const epsilon = 1e-10
	if !isFinite(numerator) || !isFinite(denominator) || absf(denominator) < epsilon {
		return 0.0
	}

	result := numerator / denominator
	if !isFinite(result) {
		return 0.0
	}
	return clampUnit(result)
}

// Adjustment is a suggested trait-value change derived from a strong
// learned correlation.
type Adjustment struct {
	TraitName      string
	CurrentValue   float64
	SuggestedValue float64
	Correlation    float64
	Confidence     float64
}

// SuggestAdjustments returns one Adjustment per learned correlation whose
// magnitude exceeds 0.3: positively correlated traits are nudged up by
// 0.1 (clamped to 1), negatively correlated traits down by 0.1 (clamped
// to 0).
func (m *Memory) SuggestAdjustments(current genome.Genome) []Adjustment {
	m.mu.Lock()
	correlations := make(map[string]float64, len(m.correlations))
	for k, v := range m.correlations {
		correlations[k] = v
	}
	m.mu.Unlock()

	var out []Adjustment
	for name, corr := range correlations {
		if absf(corr) <= strongCorrelationThreshold {
			continue
		}
		currentValue, _ := current.Trait(name)

		suggested := currentValue - suggestionStep
		if corr > 0 {
			suggested = currentValue + suggestionStep
		}
		suggested = clamp01(suggested)

		out = append(out, Adjustment{
			TraitName:      name,
			CurrentValue:   currentValue,
			SuggestedValue: suggested,
			Correlation:    corr,
			Confidence:     absf(corr),
		})
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func absf(v float64) float64 {
	return math.Abs(v)
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sqrt(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}
