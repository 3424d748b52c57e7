package evomemory

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/vex/pkg/genome"
)

func TestRecordStoresExperiment(t *testing.T) {
	m := New()
	g := genome.New("Test")
	exp := genome.NewExperiment(g, nil, 0.8, "Task 1", time.Now())
	m.Record(exp)

	assert.Equal(t, 1, m.Len())
}

func TestMaybeEvictCapsAtMaxEntries(t *testing.T) {
	m := NewWithCapacity(5)
	g := genome.New("Test")
	for i := 0; i < 10; i++ {
		exp := genome.NewExperiment(g, nil, float64(i)/10.0, "task", time.Now())
		m.Record(exp)
	}
	assert.Equal(t, 5, m.Len())
}

func TestNewWithCapacityCapsAtHardMax(t *testing.T) {
	m := NewWithCapacity(1_000_000)
	assert.LessOrEqual(t, m.maxEntries, HardMaxEntries)
}

func TestTopExperimentsOrderedByImportanceDescending(t *testing.T) {
	m := New()
	g := genome.New("Test")
	m.Record(genome.NewExperiment(g, nil, 0.2, "low", time.Now()))
	m.Record(genome.NewExperiment(g, nil, 0.9, "high", time.Now()))
	m.Record(genome.NewExperiment(g, nil, 0.5, "mid", time.Now()))

	top := m.TopExperiments(3)
	assert.Equal(t, "high", top[0].TaskSummary)
	assert.Equal(t, "mid", top[1].TaskSummary)
	assert.Equal(t, "low", top[2].TaskSummary)
}

func TestPearsonCorrelationPerfectPositive(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 1.0, pearsonCorrelation(x, y), 0.001)
}

func TestPearsonCorrelationPerfectNegative(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{5, 4, 3, 2, 1}
	assert.InDelta(t, -1.0, pearsonCorrelation(x, y), 0.001)
}

func TestPearsonCorrelationHandlesNaNAndInf(t *testing.T) {
	x := []float64{math.NaN(), 1.0, 2.0}
	y := []float64{1.0, 2.0, 3.0}
	assert.Equal(t, 0.0, pearsonCorrelation(x, y))

	xInf := []float64{math.Inf(1), 1.0, 2.0}
	assert.Equal(t, 0.0, pearsonCorrelation(xInf, y))
}

func TestPearsonCorrelationEmptyOrMismatchedYieldsZero(t *testing.T) {
	assert.Equal(t, 0.0, pearsonCorrelation(nil, nil))
	assert.Equal(t, 0.0, pearsonCorrelation([]float64{1}, []float64{1, 2}))
}

func TestCorrelationLearningAfterTenInsertions(t *testing.T) {
	m := NewWithCapacity(100)
	for i := 0; i < 20; i++ {
		exploration := 0.3 + float64(i)*0.03
		fitness := 0.4 + float64(i)*0.02
		traits := [5]float64{exploration, 0.5, 0.5, 0.5, 0.5}
		exp := genome.Experiment{Traits: traits, OverallFitness: fitness, TaskSummary: "test"}
		m.Record(exp)
	}

	corr := m.Correlations()["exploration"]
	assert.Greater(t, corr, 0.5)
}

func TestSuggestAdjustmentsRecommendsIncreaseForPositiveCorrelation(t *testing.T) {
	m := NewWithCapacity(100)
	for i := 0; i < 15; i++ {
		exploration := 0.3 + float64(i)*0.04
		fitness := 0.4 + float64(i)*0.03
		traits := [5]float64{exploration, 0.5, 0.5, 0.5, 0.5}
		exp := genome.Experiment{Traits: traits, OverallFitness: fitness, TaskSummary: "test"}
		m.Record(exp)
	}

	current := genome.New("Current")
	suggestions := m.SuggestAdjustments(current)

	var found bool
	for _, s := range suggestions {
		if s.TraitName == "exploration" {
			found = true
			assert.Greater(t, s.SuggestedValue, s.CurrentValue)
		}
	}
	assert.True(t, found, "expected an exploration adjustment suggestion")
}

func TestMemoryIsBoundedUnderSustainedInsertion(t *testing.T) {
	m := New()
	g := genome.New("Test")
	for i := 0; i < 2000; i++ {
		m.Record(genome.NewExperiment(g, nil, 0.1, "spam", time.Now()))
	}
	assert.LessOrEqual(t, m.Len(), DefaultMaxEntries)
}

func TestDecayFactorBounds(t *testing.T) {
	d := Decay{Strategy: Linear, MaxAge: time.Hour, MinImportance: 0.1}
	fresh := d.Importance(time.Now(), time.Now(), 1.0)
	assert.InDelta(t, 1.0, fresh, 0.05)

	old := d.Importance(time.Now().Add(-2*time.Hour), time.Now(), 1.0)
	assert.Equal(t, 0.1, old)
}

func TestDecayStrategyExponentialDropsFasterThanLinear(t *testing.T) {
	age := 30 * time.Minute
	maxAge := time.Hour
	assert.Less(t, Exponential.factor(age, maxAge), Linear.factor(age, maxAge))
}

func TestDecayStrategyNoneNeverDecays(t *testing.T) {
	assert.Equal(t, 1.0, None.factor(time.Hour, time.Minute))
}

func TestDecayStrategyStepIsDiscontinuousAtHalfway(t *testing.T) {
	maxAge := time.Hour
	assert.Equal(t, 1.0, Step.factor(29*time.Minute, maxAge))
	assert.Equal(t, 0.3, Step.factor(31*time.Minute, maxAge))
}
