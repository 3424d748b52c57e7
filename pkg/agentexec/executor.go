package agentexec

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codeready-toolchain/vex/pkg/adversarial"
	"github.com/codeready-toolchain/vex/pkg/audit"
	"github.com/codeready-toolchain/vex/pkg/config"
	"github.com/codeready-toolchain/vex/pkg/llm"
)

// ChallengerRole is the system role assigned to a spawned shadow agent.
const ChallengerRole = "Adversarial challenger: find flaws in the claim under review."

// Result is the verified-response contract an Execute call produces.
type Result struct {
	AgentID    string
	Response   string
	Verified   bool
	Confidence float64
	Context    ContextPacket
	TraceRoot  *string
	Debate     *adversarial.Debate
}

// Executor runs the blue/red adversarial verification loop (§4.J) over a
// single agent invocation.
type Executor struct {
	Provider llm.Provider
	Config   *config.GenomeConfig

	// Audit and Tenant are optional; when Audit is non-nil every debate
	// stage and the final consensus are logged to the tenant's chain.
	Audit  *audit.Chain
	Tenant string

	// Now is overridable for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

// Execute runs the full executor contract for agent against prompt.
func (e *Executor) Execute(ctx context.Context, agent *Agent, prompt string) (Result, error) {
	composed := e.composePrompt(agent, prompt)
	params := agent.Genome.ToParams()

	blueResp, err := e.Provider.Complete(ctx, llm.Request{
		System:           agent.Role,
		Prompt:           composed,
		Temperature:      params.Temperature,
		TopP:             params.TopP,
		PresencePenalty:  params.PresencePenalty,
		FrequencyPenalty: params.FrequencyPenalty,
		MaxTokens:        params.MaxTokens(1024),
	})
	if err != nil {
		return Result{}, fmt.Errorf("blue call: %w", err)
	}
	e.logEvent(ctx, audit.EventAgentExecuted, &agent.ID, map[string]any{"role": agent.Role, "prompt": composed})

	if !e.Config.AdversarialEnabled {
		return e.finalize(ctx, agent, blueResp.Content, false, 0.5, blueResp.TraceRoot, nil)
	}

	shadow := agent.SpawnShadow(ChallengerRole)
	debate := adversarial.NewDebate(agent.ID, shadow.ID, blueResp.Content, e.now())
	e.logEvent(ctx, audit.EventDebateStarted, &agent.ID, map[string]any{"debate_id": debate.ID, "red_id": shadow.ID})

	maxRounds := e.Config.MaxDebateRounds
	if maxRounds <= 0 {
		maxRounds = adversarial.DefaultMaxRounds
	}

	currentClaim := blueResp.Content
	var lastRebuttal *string
	var redVotes []adversarial.Vote

	for round := uint32(1); round <= uint32(maxRounds); round++ {
		challengePrompt := adversarial.ChallengePrompt(currentClaim)
		redResp, err := e.Provider.Complete(ctx, llm.Request{System: shadow.Role, Prompt: challengePrompt})
		if err != nil {
			return Result{}, fmt.Errorf("red call (round %d): %w", round, err)
		}
		parsed := adversarial.ParseRedResponse(redResp.Content)

		redVotes = append(redVotes, adversarial.Vote{
			AgentID:    shadow.ID,
			Agrees:     !parsed.IsChallenge,
			Confidence: parsed.Confidence,
			Reasoning:  parsed.Reasoning,
		})

		if !parsed.IsChallenge {
			break
		}

		rebuttalPrompt := fmt.Sprintf("Your prior response:\n%q\n\nA reviewer raised this challenge:\n%q\n\nRevise or defend your response.", currentClaim, parsed.Reasoning)
		rebuttalResp, err := e.Provider.Complete(ctx, llm.Request{System: agent.Role, Prompt: rebuttalPrompt})
		if err != nil {
			return Result{}, fmt.Errorf("blue rebuttal (round %d): %w", round, err)
		}
		rebuttal := rebuttalResp.Content

		debate.AddRound(adversarial.Round{
			Number:         round,
			BlueClaim:      currentClaim,
			RedReasoning:   parsed.Reasoning,
			RedIsChallenge: true,
			RedConfidence:  parsed.Confidence,
			BlueRebuttal:   &rebuttal,
		})
		e.logEvent(ctx, audit.EventDebateRound, &agent.ID, map[string]any{"debate_id": debate.ID, "round": round})

		lastRebuttal = &rebuttal
		currentClaim = rebuttal
	}

	blueVote := adversarial.Vote{AgentID: agent.ID, Agrees: true, Confidence: maxFloat(agent.Fitness, 0.5)}
	votes := append(append([]adversarial.Vote{}, redVotes...), blueVote)

	protocol, err := adversarial.ParseProtocol(e.Config.ConsensusProtocol)
	if err != nil {
		return Result{}, err
	}
	consensus := adversarial.Evaluate(protocol, votes)

	verified := consensus.Reached && consensus.Decision
	finalResponse := blueResp.Content
	if !verified && lastRebuttal != nil {
		finalResponse = *lastRebuttal
	}

	debate.Conclude(consensus.Decision, consensus.Confidence)
	e.logEvent(ctx, audit.EventDebateConcluded, &agent.ID, map[string]any{"debate_id": debate.ID, "verdict": consensus.Decision})
	e.logEvent(ctx, audit.EventConsensusReached, &agent.ID, map[string]any{"debate_id": debate.ID, "confidence": consensus.Confidence})

	return e.finalize(ctx, agent, finalResponse, verified, consensus.Confidence, blueResp.TraceRoot, debate)
}

func (e *Executor) finalize(ctx context.Context, agent *Agent, finalResponse string, verified bool, confidence float64, traceRoot *string, debate *adversarial.Debate) (Result, error) {
	packet := NewContextPacket([]byte(finalResponse), agent.ID, confidence, e.now(), agent.Context)
	agent.Context = &packet
	agent.Fitness = confidence

	e.logEvent(ctx, audit.EventContextStored, &agent.ID, map[string]any{"context_id": packet.ID, "importance": confidence})

	return Result{
		AgentID:    agent.ID.String(),
		Response:   finalResponse,
		Verified:   verified,
		Confidence: confidence,
		Context:    packet,
		TraceRoot:  traceRoot,
		Debate:     debate,
	}, nil
}

// composePrompt prepends the agent's prior context (if any) as "Previous
// Context" ahead of the new prompt.
func (e *Executor) composePrompt(agent *Agent, prompt string) string {
	if agent.Context == nil || len(agent.Context.Content) == 0 {
		return prompt
	}
	var b strings.Builder
	b.WriteString("Previous Context (")
	b.WriteString(agent.Context.CreatedAt.Format(time.RFC3339))
	b.WriteString("):\n")
	b.Write(agent.Context.Content)
	b.WriteString("\n\n")
	b.WriteString(prompt)
	return b.String()
}

func (e *Executor) logEvent(ctx context.Context, eventType audit.EventType, agentID interface{ String() string }, data map[string]any) {
	if e.Audit == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	id := agentID.String()
	_, _ = e.Audit.Log(ctx, audit.LogInput{
		Tenant:    e.Tenant,
		EventType: eventType,
		Actor:     audit.SystemActor(),
		AgentID:   &id,
		Data:      raw,
	})
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
