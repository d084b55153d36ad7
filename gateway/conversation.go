// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/agentflow-gateway/gateway/orchestrator"
)

// ConversationRequest is the conversation endpoint of spec.md §6's HTTP
// surface: an agent roster plus a speaker policy, described abstractly
// there and given a concrete Go shape here.
type ConversationRequest struct {
	Agents                []orchestrator.AgentConfig
	SpeakerSelection      orchestrator.SpeakerSelection
	AgentOrder            []string
	MaxRounds             int
	Timeout               time.Duration
	TerminationCondition  string
	InitialMessage        string
	InitialAgentID        string
}

// BuildAgentPool wires each AgentConfig's named adapter through the
// registry into an orchestrator.LLMAgent, per §4.I's "role-aware LLM agent"
// producer. Returned agents share no state across calls; a fresh pool is
// built per conversation.
func (g *Gateway) BuildAgentPool(agents []orchestrator.AgentConfig) ([]orchestrator.Agent, error) {
	out := make([]orchestrator.Agent, 0, len(agents))
	for _, cfg := range agents {
		provider, err := g.Registry.Get(cfg.AdapterName)
		if err != nil {
			return nil, fmt.Errorf("gateway: agent %q: %w", cfg.Name, err)
		}
		out = append(out, orchestrator.NewLLMAgent(cfg, provider.AsInvoker()))
	}
	return out, nil
}

// Converse drives one bounded multi-agent conversation (§4.I), per spec.md
// §2's conversation request flow: caller -> orchestrator -> (loop: select
// speaker -> render prompt -> call through the registry -> append history ->
// test termination) -> caller.
func (g *Gateway) Converse(ctx context.Context, req ConversationRequest) (orchestrator.Result, error) {
	cfg := orchestrator.DefaultConfig()
	if req.MaxRounds > 0 {
		cfg.MaxRounds = req.MaxRounds
	}
	if req.Timeout > 0 {
		cfg.Timeout = req.Timeout
	}
	if req.TerminationCondition != "" {
		cfg.TerminationCondition = req.TerminationCondition
	}
	if req.SpeakerSelection != "" {
		cfg.SpeakerSelection = req.SpeakerSelection
	}
	cfg.AgentOrder = req.AgentOrder

	o := orchestrator.New(cfg)
	agents, err := g.BuildAgentPool(req.Agents)
	if err != nil {
		return orchestrator.Result{}, err
	}
	for _, a := range agents {
		o.RegisterAgent(a)
	}

	return o.Orchestrate(ctx, req.InitialMessage, req.InitialAgentID)
}
