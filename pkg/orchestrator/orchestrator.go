// Package orchestrator implements the agent hierarchy: spawning named-role
// children under a root agent, running them concurrently through the
// adversarial executor, synthesizing their responses, committing the round
// into a Merkle tree, and optionally advancing the genome population one
// generation. It follows the reference organization's pkg/agent/orchestrator
// SubAgentRunner shape in running one goroutine per child under its own
// context.WithTimeout, adapted to VEX's blue/red executor instead of tarsy's
// MCP-backed sub-agents; outcomes are collected into a per-child slice joined
// with a sync.WaitGroup, not a results channel.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/codeready-toolchain/vex/pkg/agentexec"
	"github.com/codeready-toolchain/vex/pkg/config"
	"github.com/codeready-toolchain/vex/pkg/evomemory"
	"github.com/codeready-toolchain/vex/pkg/genome"
	"github.com/codeready-toolchain/vex/pkg/merkle"
	"github.com/codeready-toolchain/vex/pkg/vexhash"
)

// defaultChildRoles is the fixed role rotation children are named from; the
// spec names exactly these two for the default agents_per_level=2 case.
var defaultChildRoles = []string{"Researcher", "Critic"}

// ChildTimeout bounds a single child's executor run when the caller does
// not wrap ctx with its own deadline.
const ChildTimeout = 2 * time.Minute

// Orchestrator runs one round of the agent hierarchy over a root agent.
type Orchestrator struct {
	Executor *agentexec.Executor
	Config   *config.GenomeConfig
	Memory   *evomemory.Memory // optional; when set, the evolution step records an experiment
}

// Result is the orchestrator's aggregate output (§4.K step 7).
type Result struct {
	RootID           string
	Response         string
	MerkleRoot       vexhash.Hash
	PerAgent         map[string]agentexec.Result
	LevelsProcessed  int
	Confidence       float64
}

type childOutcome struct {
	agent  *agentexec.Agent
	role   string
	result agentexec.Result
	err    error
}

// Run spawns agents_per_level children under root, executes them in
// parallel, synthesizes a combined response through root, and returns the
// aggregate result.
func (o *Orchestrator) Run(ctx context.Context, root *agentexec.Agent, prompt string) (Result, error) {
	n := o.Config.AgentsPerLevel
	if n <= 0 {
		n = 2
	}

	children := make([]*agentexec.Agent, 0, n)
	for i := 0; i < n; i++ {
		role := childRole(i)
		child, err := root.Spawn(fmt.Sprintf("%s-%d", role, i), role)
		if err != nil {
			return Result{}, fmt.Errorf("spawn child %d: %w", i, err)
		}
		children = append(children, child)
	}

	outcomes := o.runChildren(ctx, children, prompt)

	perAgent := make(map[string]agentexec.Result, len(children)+1)
	var childResponses []string
	var confidences []float64
	for _, oc := range outcomes {
		if oc.err != nil {
			return Result{}, fmt.Errorf("child %s: %w", oc.agent.Name, oc.err)
		}
		perAgent[oc.agent.ID.String()] = oc.result
		childResponses = append(childResponses, fmt.Sprintf("%s: %s", oc.role, oc.result.Response))
		confidences = append(confidences, oc.result.Confidence)
	}

	synthesisPrompt := synthesisPrompt(prompt, childResponses)
	rootResult, err := o.Executor.Execute(ctx, root, synthesisPrompt)
	if err != nil {
		return Result{}, fmt.Errorf("synthesis: %w", err)
	}
	perAgent[root.ID.String()] = rootResult
	confidences = append(confidences, rootResult.Confidence)

	leaves := make([]merkle.Leaf, 0, len(perAgent))
	for id, res := range perAgent {
		leaves = append(leaves, merkle.Leaf{ID: id, Hash: res.Context.Hash})
	}
	tree := merkle.Build(leaves)

	if o.Config.AdversarialEnabled {
		o.runEvolutionStep(children, outcomes, prompt)
	}

	return Result{
		RootID:          root.ID.String(),
		Response:        rootResult.Response,
		MerkleRoot:      tree.Root(),
		PerAgent:        perAgent,
		LevelsProcessed: 1,
		Confidence:      mean(confidences),
	}, nil
}

func (o *Orchestrator) runChildren(ctx context.Context, children []*agentexec.Agent, prompt string) []childOutcome {
	results := make([]childOutcome, len(children))
	var wg sync.WaitGroup
	for i, child := range children {
		wg.Add(1)
		go func(i int, child *agentexec.Agent) {
			defer wg.Done()
			childCtx, cancel := context.WithTimeout(ctx, ChildTimeout)
			defer cancel()
			res, err := o.Executor.Execute(childCtx, child, prompt)
			results[i] = childOutcome{agent: child, role: child.Role, result: res, err: err}
		}(i, child)
	}
	wg.Wait()
	return results
}

func childRole(i int) string {
	if i < len(defaultChildRoles) {
		return defaultChildRoles[i]
	}
	return fmt.Sprintf("Agent-%d", i)
}

func synthesisPrompt(original string, childResponses []string) string {
	var b strings.Builder
	b.WriteString("Synthesize a final answer to: ")
	b.WriteString(original)
	b.WriteString("\n\nConsider these perspectives:\n")
	for _, r := range childResponses {
		b.WriteString("- ")
		b.WriteString(r)
		b.WriteString("\n")
	}
	return b.String()
}

// runEvolutionStep applies §4.H's orchestrator evolution step: the fittest
// child is identified by confidence, one offspring is produced by
// tournament-selected crossover + mutation over the round's population, and
// the offspring genome replaces the fittest child's genome in place.
func (o *Orchestrator) runEvolutionStep(children []*agentexec.Agent, outcomes []childOutcome, taskSummary string) {
	if len(children) < 2 {
		return
	}

	population := make([]genome.Scored, len(children))
	fittestIdx := 0
	for i, oc := range outcomes {
		population[i] = genome.Scored{Genome: children[i].Genome, Fitness: oc.result.Confidence}
		if oc.result.Confidence > outcomes[fittestIdx].result.Confidence {
			fittestIdx = i
		}
	}

	tournamentSize := o.Config.TournamentSize
	if tournamentSize <= 0 {
		tournamentSize = genome.DefaultTournamentSize
	}
	parentA := genome.TournamentSelect(population, tournamentSize)
	parentB := genome.TournamentSelect(population, tournamentSize)
	offspring := genome.Crossover(parentA, parentB)
	genome.Mutate(&offspring, o.Config.MutationRate)

	fittest := children[fittestIdx]
	fittest.Genome = offspring

	if o.Memory != nil {
		fitnessScores := make(map[string]float64, len(children))
		for _, oc := range outcomes {
			fitnessScores[oc.role] = oc.result.Confidence
		}
		exp := genome.NewExperiment(offspring, fitnessScores, outcomes[fittestIdx].result.Confidence, taskSummary, time.Now().UTC())
		o.Memory.Record(exp)
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
