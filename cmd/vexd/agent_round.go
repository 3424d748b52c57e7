package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/vex/pkg/agentexec"
	"github.com/codeready-toolchain/vex/pkg/audit"
	"github.com/codeready-toolchain/vex/pkg/config"
	"github.com/codeready-toolchain/vex/pkg/evomemory"
	"github.com/codeready-toolchain/vex/pkg/genome"
	"github.com/codeready-toolchain/vex/pkg/llm"
	"github.com/codeready-toolchain/vex/pkg/orchestrator"
	"github.com/codeready-toolchain/vex/pkg/queue"
)

// agentRoundPayload is the job_type="agent_round" payload shape: run one
// root agent (plus its spawned children) against prompt and record the
// round in the tenant's audit chain. The tenant travels inside the payload,
// not the queue row's tenant_id column, matching the registry's
// factory(JSON payload) → Job contract, which never sees the row directly.
type agentRoundPayload struct {
	Tenant    string `json:"tenant"`
	AgentName string `json:"agent_name"`
	Role      string `json:"role"`
	Prompt    string `json:"prompt"`
}

type agentRoundResult struct {
	Response        string  `json:"response"`
	Verified        bool    `json:"verified"`
	Confidence      float64 `json:"confidence"`
	MerkleRoot      string  `json:"merkle_root"`
	LevelsProcessed int     `json:"levels_processed"`
}

// agentRoundHandler is the job_type="agent_round" queue.Handler: the one
// concrete domain job this entrypoint wires up, exercising the full
// dataflow named in the spec overview (queue → worker → executor → audit →
// Merkle root) end to end.
type agentRoundHandler struct {
	provider  llm.Provider
	genomeCfg *config.GenomeConfig
	audit     *audit.Chain
	memory    *evomemory.Memory
	maxDepth  int
}

func (h *agentRoundHandler) Name() string { return "agent_round" }

func (h *agentRoundHandler) MaxRetries() uint32 { return 3 }

func (h *agentRoundHandler) BackoffStrategy() queue.BackoffStrategy {
	return queue.BackoffExponential
}

func (h *agentRoundHandler) Execute(ctx context.Context, payload json.RawMessage) queue.Outcome {
	var p agentRoundPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return queue.FatalErr(fmt.Errorf("decode agent_round payload: %w", err))
	}
	if p.Prompt == "" || p.Tenant == "" {
		return queue.FatalErr(fmt.Errorf("agent_round payload requires tenant and prompt"))
	}
	if p.AgentName == "" {
		p.AgentName = "root"
	}
	if p.Role == "" {
		p.Role = "Synthesizer"
	}

	root := agentexec.NewRootAgent(p.AgentName, p.Role, genome.New(p.Prompt), h.maxDepth)
	exec := &agentexec.Executor{
		Provider: h.provider,
		Config:   h.genomeCfg,
		Audit:    h.audit,
		Tenant:   p.Tenant,
	}
	orch := &orchestrator.Orchestrator{
		Executor: exec,
		Config:   h.genomeCfg,
		Memory:   h.memory,
	}

	result, err := orch.Run(ctx, root, p.Prompt)
	if err != nil {
		return queue.Retry(fmt.Errorf("orchestrator run: %w", err))
	}

	out, err := json.Marshal(agentRoundResult{
		Response:        result.Response,
		Verified:        result.PerAgent[result.RootID].Verified,
		Confidence:      result.Confidence,
		MerkleRoot:      result.MerkleRoot.Hex(),
		LevelsProcessed: result.LevelsProcessed,
	})
	if err != nil {
		return queue.FatalErr(fmt.Errorf("encode result: %w", err))
	}
	return queue.Success(out)
}
