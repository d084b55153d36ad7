// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"context"
	"strings"
)

// Invoker is the completion call this package depends on;
// registry.WrappedProvider.AsInvoker adapts a wrapped provider to it.
// Kept as a narrow interface here (rather than importing the registry
// package directly) to avoid a package cycle: registry wires billing,
// concurrency, and rate-limit collaborators around llmgateway.Provider, none
// of which this package needs to know about.
type Invoker interface {
	InvokeWithOptions(ctx context.Context, prompt string, opts InvokerOptions) (string, error)
}

// InvokerOptions has the same fields as registry.InvokeOptions; it is a
// distinct type, and the AsInvoker adapter copies the fields across.
type InvokerOptions struct {
	UserID string
}

// LLMAgent is the role-aware agent implementation described by §4.I: it
// renders a prompt from its system prompt, the last 10 turns of history, and
// the current message, invokes its adapter through the registry, and wraps
// the reply into a Response addressed back to the sender.
type LLMAgent struct {
	BaseAgent
	provider Invoker
}

var _ Agent = (*LLMAgent)(nil)

// NewLLMAgent builds an LLMAgent bound to provider for completions.
func NewLLMAgent(cfg AgentConfig, provider Invoker) *LLMAgent {
	return &LLMAgent{BaseAgent: BaseAgent{Cfg: cfg}, provider: provider}
}

// Process builds the completion prompt, invokes the bound provider, and
// applies the role-specific handoff rule: a Planner whose reply mentions
// "next" routes the follow-up to an Executor, per §4.I.
func (a *LLMAgent) Process(ctx context.Context, msg Message, agentCtx *Context) (Response, error) {
	prompt := BuildPrompt(a.Cfg, msg, agentCtx)

	user, _ := agentCtx.Shared["user_id"].(string)
	content, err := a.provider.InvokeWithOptions(ctx, prompt, InvokerOptions{UserID: user})
	if err != nil {
		return Response{}, err
	}

	reply := NewMessage(a.Cfg.ID, a.Cfg.Name, msg.SenderID, content, MessageResult)
	resp := NewResponse(reply)

	if a.Cfg.Role.Kind == RolePlanner && strings.Contains(strings.ToLower(content), "next") {
		if executorID, ok := findAgentByRole(agentCtx, RoleExecutor); ok {
			resp = resp.Next(executorID)
		}
	}

	return resp, nil
}

// findAgentByRole is a placeholder hook: role-based handoff needs visibility
// into the orchestrator's roster, which an individual agent does not hold.
// The orchestrator sets agentCtx.Shared["executor_id"] (if a RoleExecutor
// agent is registered) before each round so this lookup has somewhere to
// read from without a back-reference to the Orchestrator itself.
func findAgentByRole(agentCtx *Context, role string) (string, bool) {
	if role != RoleExecutor {
		return "", false
	}
	id, ok := agentCtx.Shared["executor_id"].(string)
	return id, ok && id != ""
}
