// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

// Package workflow implements the step-graph execution engine (§4.J): an
// ID-pointer directed graph of steps (AgentExecution, ParallelExecution,
// ConditionalBranch, Loop, HumanReview, and the additive ConnectorCall)
// walked from a configured start step until a step names no successor, an
// unrecoverable error occurs, or the engine's step budget is exhausted.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/agentflow-gateway/gateway/internal/ids"
	"github.com/agentflow-gateway/gateway/orchestrator"
)

// StepType identifies a step's execution semantics, per §4.J.
type StepType string

const (
	StepAgentExecution    StepType = "agent_execution"
	StepParallelExecution StepType = "parallel_execution"
	StepConditionalBranch StepType = "conditional_branch"
	StepLoop              StepType = "loop"
	StepHumanReview       StepType = "human_review"
	StepConnectorCall     StepType = "connector_call" // additive, §6.1
)

// Step is one node in the workflow's directed graph, per §3.
type Step struct {
	ID            string
	Name          string
	Type          StepType
	AgentID       string
	AgentIDs      []string // ParallelExecution fan-out
	InputMapping  map[string]string
	OutputKey     string
	Condition     string
	NextStepID    string
	TrueStepID    string
	FalseStepID   string
	MaxIterations int
	Enabled       bool
	Metadata      map[string]any

	// ConnectorCall fields, additive per §6.1.
	Connector  string
	Operation  string // "query" or "execute"
	Statement  string
	Action     string
	Parameters map[string]any
}

// Config is a workflow's static metadata, per §3.
type Config struct {
	ID          string
	Name        string
	Description string
	Version     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Enabled     bool
	Metadata    map[string]any
}

// NewConfig builds a Config with Version="1.0.0" and Enabled=true.
func NewConfig(name, description string) Config {
	now := time.Now().UTC()
	return Config{
		ID:          ids.New(),
		Name:        name,
		Description: description,
		Version:     "1.0.0",
		CreatedAt:   now,
		UpdatedAt:   now,
		Enabled:     true,
		Metadata:    make(map[string]any),
	}
}

// Workflow is a named graph of steps plus its entry point, per §3.
type Workflow struct {
	Config      Config
	Steps       []Step
	StartStepID string
}

// GetStep finds the step with id, or reports false.
func (w *Workflow) GetStep(id string) (Step, bool) {
	for _, s := range w.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// Result is the outcome of one Execute call, per §3.
type Result struct {
	WorkflowID    string
	Success       bool
	FinalOutput   string
	StepsExecuted []string
	AgentsUsed    []string
	StepOutputs   map[string]any
	Error         string
	Duration      time.Duration
	Metadata      map[string]any
}

// AgentResolver looks up an agent by id so the engine can dispatch
// AgentExecution/ParallelExecution steps without owning agent registration
// itself — the orchestrator package (or a gateway-level adapter over it)
// supplies this.
type AgentResolver func(agentID string) (orchestrator.Agent, bool)

// ConnectorResolver looks up a registered connector by name for
// ConnectorCall steps, per §6.1.
type ConnectorResolver func(name string) (Connector, bool)

// Connector is the minimal surface ConnectorCall steps need. Its Query/
// Execute signatures differ from connectors/base.Connector's;
// connectors/base.WorkflowAdapter adapts a base.Connector to this interface.
type Connector interface {
	Query(ctx context.Context, statement string, parameters map[string]any) (map[string]any, error)
	Execute(ctx context.Context, action, statement string, parameters map[string]any) (map[string]any, error)
}

// MaxSteps bounds every Engine's execution loop, per §4.J.
const MaxSteps = 100

// Engine walks a Workflow's step graph.
type Engine struct {
	maxSteps  int
	agents    AgentResolver
	connector ConnectorResolver
}

// NewEngine builds an Engine with MaxSteps=100, resolving agents via agents
// and (optionally, may be nil) connectors via connector.
func NewEngine(agents AgentResolver, connector ConnectorResolver) *Engine {
	return &Engine{maxSteps: MaxSteps, agents: agents, connector: connector}
}

// WithMaxSteps overrides the step budget and returns e for chaining.
func (e *Engine) WithMaxSteps(max int) *Engine {
	e.maxSteps = max
	return e
}

// Execute runs workflow from its configured start step, threading
// initialInput into the shared orchestrator.Context before the first step
// runs, per §4.J.
func (e *Engine) Execute(ctx context.Context, wf *Workflow, initialInput map[string]any) (Result, error) {
	start := time.Now()
	agentCtx := orchestrator.NewContext()
	for k, v := range initialInput {
		agentCtx.Shared[k] = v
	}

	var stepsExecuted []string
	var agentsUsed []string
	seenAgent := make(map[string]bool)
	stepOutputs := make(map[string]any)
	currentID := wf.StartStepID
	iterations := 0

	for currentID != "" {
		if iterations >= e.maxSteps {
			return Result{
				WorkflowID:    wf.Config.ID,
				Success:       false,
				StepsExecuted: stepsExecuted,
				AgentsUsed:    agentsUsed,
				StepOutputs:   stepOutputs,
				Error:         "exceeded maximum steps",
				Duration:      time.Since(start),
				Metadata:      make(map[string]any),
			}, nil
		}
		iterations++

		step, ok := wf.GetStep(currentID)
		if !ok {
			break
		}

		if !step.Enabled {
			currentID = step.NextStepID
			continue
		}

		stepsExecuted = append(stepsExecuted, step.ID)
		input := e.buildStepInput(step, agentCtx)

		output, nextID, err := e.executeStep(ctx, step, input, agentCtx, &agentsUsed, seenAgent)
		if err != nil {
			return Result{
				WorkflowID:    wf.Config.ID,
				Success:       false,
				StepsExecuted: stepsExecuted,
				AgentsUsed:    agentsUsed,
				StepOutputs:   stepOutputs,
				Error:         err.Error(),
				Duration:      time.Since(start),
				Metadata:      make(map[string]any),
			}, nil
		}

		stepOutputs[step.OutputKey] = output
		agentCtx.Shared[step.OutputKey] = output
		currentID = nextID
	}

	finalOutput := ""
	if v, ok := stepOutputs["final_result"].(string); ok {
		finalOutput = v
	}

	return Result{
		WorkflowID:    wf.Config.ID,
		Success:       true,
		FinalOutput:   finalOutput,
		StepsExecuted: stepsExecuted,
		AgentsUsed:    agentsUsed,
		StepOutputs:   stepOutputs,
		Duration:      time.Since(start),
		Metadata:      make(map[string]any),
	}, nil
}

// buildStepInput renders a step's textual input either from its
// input_mapping (joined "key: value" lines read from shared state) or, with
// no mapping configured, from the shared "input" key, per §4.J.
func (e *Engine) buildStepInput(step Step, agentCtx *orchestrator.Context) string {
	if len(step.InputMapping) == 0 {
		if v, ok := agentCtx.Shared["input"].(string); ok {
			return v
		}
		return ""
	}
	input := ""
	for key, sourceKey := range step.InputMapping {
		if v, ok := agentCtx.Shared[sourceKey]; ok {
			input += fmt.Sprintf("%s: %v\n", key, v)
		}
	}
	return input
}

func (e *Engine) executeStep(ctx context.Context, step Step, input string, agentCtx *orchestrator.Context, agentsUsed *[]string, seenAgent map[string]bool) (any, string, error) {
	switch step.Type {
	case StepAgentExecution:
		return e.executeAgentStep(ctx, step, input, agentCtx, agentsUsed, seenAgent)
	case StepParallelExecution:
		return e.executeParallelStep(ctx, step, input, agentCtx, agentsUsed, seenAgent)
	case StepConditionalBranch:
		return e.executeConditionalStep(step)
	case StepConnectorCall:
		return e.executeConnectorStep(ctx, step)
	case StepLoop, StepHumanReview:
		return nil, step.NextStepID, nil
	default:
		return nil, "", fmt.Errorf("workflow: unknown step type: %s", step.Type)
	}
}

func (e *Engine) executeAgentStep(ctx context.Context, step Step, input string, agentCtx *orchestrator.Context, agentsUsed *[]string, seenAgent map[string]bool) (any, string, error) {
	if step.AgentID == "" {
		return nil, "", fmt.Errorf("workflow: no agent_id for step %s", step.ID)
	}
	if e.agents == nil {
		return nil, "", fmt.Errorf("workflow: no agent resolver configured")
	}
	agent, ok := e.agents(step.AgentID)
	if !ok {
		return nil, "", fmt.Errorf("workflow: agent not found: %s", step.AgentID)
	}

	if !seenAgent[step.AgentID] {
		seenAgent[step.AgentID] = true
		*agentsUsed = append(*agentsUsed, step.AgentID)
	}

	msg := orchestrator.NewMessage("workflow", "Workflow", step.AgentID, input, orchestrator.MessageTask)
	resp, err := agent.Process(ctx, msg, agentCtx)
	if err != nil {
		return nil, "", err
	}

	return map[string]any{"content": resp.Message.Content, "agent": step.AgentID}, step.NextStepID, nil
}

func (e *Engine) executeParallelStep(ctx context.Context, step Step, input string, agentCtx *orchestrator.Context, agentsUsed *[]string, seenAgent map[string]bool) (any, string, error) {
	if e.agents == nil {
		return nil, "", fmt.Errorf("workflow: no agent resolver configured")
	}

	type outcome struct {
		agentID string
		content string
		err     error
	}
	results := make(chan outcome, len(step.AgentIDs))

	for _, agentID := range step.AgentIDs {
		agent, ok := e.agents(agentID)
		if !ok {
			continue
		}
		go func(agentID string, agent orchestrator.Agent) {
			msg := orchestrator.NewMessage("workflow", "Workflow", agentID, input, orchestrator.MessageTask)
			resp, err := agent.Process(ctx, msg, agentCtx)
			if err != nil {
				results <- outcome{agentID: agentID, err: err}
				return
			}
			results <- outcome{agentID: agentID, content: resp.Message.Content}
		}(agentID, agent)
	}

	var collected []map[string]any
	for i := 0; i < len(step.AgentIDs); i++ {
		out := <-results
		if out.err != nil {
			continue
		}
		if !seenAgent[out.agentID] {
			seenAgent[out.agentID] = true
			*agentsUsed = append(*agentsUsed, out.agentID)
		}
		collected = append(collected, map[string]any{"agent": out.agentID, "content": out.content})
	}

	return map[string]any{"results": collected}, step.NextStepID, nil
}

// executeConditionalStep always treats a non-empty Condition as true, per
// the decided Open Question 2 resolution recorded in DESIGN.md: no
// expression language is implemented.
func (e *Engine) executeConditionalStep(step Step) (any, string, error) {
	conditionMet := step.Condition != ""
	nextID := step.FalseStepID
	if conditionMet {
		nextID = step.TrueStepID
	}
	return map[string]any{"condition_met": conditionMet}, nextID, nil
}

// executeConnectorStep dispatches a ConnectorCall step (§6.1) to its named
// connector's Query or Execute operation.
func (e *Engine) executeConnectorStep(ctx context.Context, step Step) (any, string, error) {
	if e.connector == nil {
		return nil, "", fmt.Errorf("workflow: no connector resolver configured")
	}
	conn, ok := e.connector(step.Connector)
	if !ok {
		return nil, "", fmt.Errorf("workflow: connector not found: %s", step.Connector)
	}

	switch step.Operation {
	case "execute":
		result, err := conn.Execute(ctx, step.Action, step.Statement, step.Parameters)
		if err != nil {
			return nil, "", err
		}
		return result, step.NextStepID, nil
	default: // "query" and unset both default to a read, matching §6.1
		result, err := conn.Query(ctx, step.Statement, step.Parameters)
		if err != nil {
			return nil, "", err
		}
		return result, step.NextStepID, nil
	}
}
