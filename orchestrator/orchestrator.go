// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

// Package orchestrator implements the multi-agent round loop (§4.I): agent
// registration, speaker selection, round execution, and the termination-
// aware orchestration loop.
package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/agentflow-gateway/gateway/internal/ids"
)

// SpeakerSelection chooses which agent speaks next when a message has no
// explicit receiver, per §4.I.
type SpeakerSelection string

const (
	SelectionRoundRobin SpeakerSelection = "round_robin"
	SelectionRandom     SpeakerSelection = "random"
	SelectionManual     SpeakerSelection = "manual"
	SelectionAuto       SpeakerSelection = "auto"
)

// Config configures one orchestration session, per §3.
type Config struct {
	SessionID            string
	MaxRounds            int
	Timeout              time.Duration
	AutoPlanning         bool
	SaveHistory          bool
	SpeakerSelection     SpeakerSelection
	AgentOrder           []string
	TerminationCondition string // case-insensitive substring match; "" disables
	Metadata             map[string]any
}

// DefaultConfig returns a Config with MaxRounds=20, Timeout=300s,
// SpeakerSelection=RoundRobin and TerminationCondition="TERMINATE", matching
// the Rust original's OrchestrationConfig::default.
func DefaultConfig() Config {
	return Config{
		SessionID:            ids.New(),
		MaxRounds:            20,
		Timeout:              300 * time.Second,
		SaveHistory:          true,
		SpeakerSelection:     SelectionRoundRobin,
		TerminationCondition: "TERMINATE",
		Metadata:             make(map[string]any),
	}
}

// Result is the outcome of a completed orchestration session, per §3.
type Result struct {
	SessionID  string
	Result     string
	Rounds     int
	Success    bool
	AgentsUsed []string
	History    []Message
	Duration   time.Duration
	Metadata   map[string]any
}

// Orchestrator coordinates a fixed roster of agents through successive
// rounds of a conversation until termination or MaxRounds is reached.
type Orchestrator struct {
	mu     sync.RWMutex
	agents map[string]Agent
	config Config

	speakerMu    sync.Mutex
	speakerIndex int
}

// New builds an Orchestrator with no registered agents.
func New(config Config) *Orchestrator {
	return &Orchestrator{agents: make(map[string]Agent), config: config}
}

// RegisterAgent adds agent to the roster, keyed by its configured id.
func (o *Orchestrator) RegisterAgent(agent Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agents[agent.Config().ID] = agent
}

// UnregisterAgent removes the agent with id, reporting whether it was present.
func (o *Orchestrator) UnregisterAgent(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.agents[id]; !ok {
		return false
	}
	delete(o.agents, id)
	return true
}

// GetAgent looks up a registered agent by id.
func (o *Orchestrator) GetAgent(id string) (Agent, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	a, ok := o.agents[id]
	return a, ok
}

// ListAgents returns the ids of every registered agent.
func (o *Orchestrator) ListAgents() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, 0, len(o.agents))
	for id := range o.agents {
		out = append(out, id)
	}
	return out
}

// Config returns the session configuration.
func (o *Orchestrator) Config() Config { return o.config }

func (o *Orchestrator) orderedAgentIDs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if len(o.config.AgentOrder) > 0 {
		ids := make([]string, 0, len(o.config.AgentOrder))
		for _, id := range o.config.AgentOrder {
			if _, ok := o.agents[id]; ok {
				ids = append(ids, id)
			}
		}
		return ids
	}
	ids := make([]string, 0, len(o.agents))
	for id := range o.agents {
		ids = append(ids, id)
	}
	return ids
}

// selectNextSpeaker picks the next agent id per the configured
// SpeakerSelection policy, per §4.I. Manual behaves like RoundRobin absent
// an explicit receiver (the caller is expected to address messages directly
// when using Manual selection).
func (o *Orchestrator) selectNextSpeaker() (string, bool) {
	agentIDs := o.orderedAgentIDs()
	if len(agentIDs) == 0 {
		return "", false
	}

	switch o.config.SpeakerSelection {
	case SelectionRandom:
		return agentIDs[rand.Intn(len(agentIDs))], true
	default: // RoundRobin, Manual, Auto (Auto is handled separately in executeRound)
		o.speakerMu.Lock()
		defer o.speakerMu.Unlock()
		selected := agentIDs[o.speakerIndex%len(agentIDs)]
		o.speakerIndex++
		return selected, true
	}
}

// firstAgentWithRole returns the id of the first registered agent whose
// configured role matches kind, used to seed agentCtx.Shared["executor_id"]
// so an LLMAgent's Planner-handoff rule can find an Executor without the
// agent needing a back-reference to the Orchestrator.
func (o *Orchestrator) firstAgentWithRole(kind string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for id, agent := range o.agents {
		if agent.Config().Role.Kind == kind {
			return id, true
		}
	}
	return "", false
}

func (o *Orchestrator) checkTermination(content string) bool {
	if o.config.TerminationCondition == "" {
		return false
	}
	return strings.Contains(strings.ToUpper(content), strings.ToUpper(o.config.TerminationCondition))
}

// ExecuteRound advances the conversation by one round: the message is
// recorded into agentCtx, then dispatched either to its explicit receiver,
// to a selected speaker, or (under Auto selection) to every agent whose
// CanHandle reports true. Per-agent errors under the broadcast (Auto)
// and non-addressed paths are swallowed (matching the Rust original's
// warn-and-continue behavior) so one failing agent doesn't abort the round.
func (o *Orchestrator) ExecuteRound(ctx context.Context, msg Message, agentCtx *Context) ([]Response, error) {
	var responses []Response
	agentCtx.AddMessage(msg)

	if msg.ReceiverID != "" {
		agent, ok := o.GetAgent(msg.ReceiverID)
		if !ok {
			return nil, fmt.Errorf("orchestrator: agent not found: %s", msg.ReceiverID)
		}
		resp, err := agent.Process(ctx, msg, agentCtx)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
		return responses, nil
	}

	if o.config.SpeakerSelection == SelectionAuto {
		o.mu.RLock()
		agents := make(map[string]Agent, len(o.agents))
		for id, a := range o.agents {
			agents[id] = a
		}
		o.mu.RUnlock()
		for _, agent := range agents {
			if !agent.CanHandle(msg) {
				continue
			}
			if resp, err := agent.Process(ctx, msg, agentCtx); err == nil {
				responses = append(responses, resp)
			}
		}
		return responses, nil
	}

	speakerID, ok := o.selectNextSpeaker()
	if !ok {
		return responses, nil
	}
	agent, ok := o.GetAgent(speakerID)
	if !ok {
		return responses, nil
	}
	if resp, err := agent.Process(ctx, msg, agentCtx); err == nil {
		responses = append(responses, resp)
	}
	return responses, nil
}

// Orchestrate runs the round loop from initialMessage (optionally addressed
// to initialAgentID) until a response meets the termination condition, no
// agent responds, or MaxRounds rounds have elapsed, per §4.I.
func (o *Orchestrator) Orchestrate(ctx context.Context, initialMessage, initialAgentID string) (Result, error) {
	start := time.Now()
	if o.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()
	}
	agentCtx := NewContext()
	if executorID, ok := o.firstAgentWithRole(RoleExecutor); ok {
		agentCtx.Shared["executor_id"] = executorID
	}
	var agentsUsed []string
	seenAgent := make(map[string]bool)
	round := 0

	current := NewMessage("user", "User", initialAgentID, initialMessage, MessageText)

	var finalResult string
	success := false

	timedOut := false
	for round < o.config.MaxRounds {
		if ctx.Err() != nil {
			timedOut = true
			break
		}
		round++

		responses, err := o.ExecuteRound(ctx, current, agentCtx)
		if err != nil {
			if ctx.Err() != nil {
				timedOut = true
			}
			break
		}
		if len(responses) == 0 {
			break
		}

		shouldContinue := false
		var selected *Response
		terminated := false

		for _, resp := range responses {
			if !seenAgent[resp.Message.SenderID] {
				seenAgent[resp.Message.SenderID] = true
				agentsUsed = append(agentsUsed, resp.Message.SenderID)
			}
			agentCtx.AddMessage(resp.Message)

			if o.checkTermination(resp.Message.Content) {
				finalResult = resp.Message.Content
				success = true
				selected = nil
				terminated = true
				break
			}

			if selected == nil || resp.ShouldContinue {
				r := resp
				selected = &r
			}
			finalResult = resp.Message.Content
		}

		if !terminated && selected != nil {
			if selected.ShouldContinue && !o.checkTermination(selected.Message.Content) {
				shouldContinue = true
				receiver := selected.NextAgentID
				current = NewMessage(selected.Message.SenderID, selected.Message.SenderName, receiver, selected.Message.Content, MessageTask)
			} else {
				success = true
			}
		}

		if !shouldContinue {
			break
		}
	}

	// A deadline exceeded mid-round yields a partial, unsuccessful result
	// rather than an error, per §5's cancellation contract.
	if timedOut {
		success = false
	}

	return Result{
		SessionID:  o.config.SessionID,
		Result:     finalResult,
		Rounds:     round,
		Success:    success,
		AgentsUsed: agentsUsed,
		History:    agentCtx.History,
		Duration:   time.Since(start),
		Metadata:   o.config.Metadata,
	}, nil
}
