// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package gateway

import (
	"context"

	"github.com/agentflow-gateway/gateway/orchestrator"
	"github.com/agentflow-gateway/gateway/workflow"
)

// RunWorkflow executes wf (§4.J) over the agent pool built from agents and
// the Gateway's registered connectors (§6.1), seeding the run's shared
// context with initialInput.
func (g *Gateway) RunWorkflow(ctx context.Context, wf *workflow.Workflow, agents []orchestrator.AgentConfig, initialInput map[string]any) (workflow.Result, error) {
	pool, err := g.BuildAgentPool(agents)
	if err != nil {
		return workflow.Result{}, err
	}
	byID := make(map[string]orchestrator.Agent, len(pool))
	for i, a := range pool {
		byID[agents[i].ID] = a
	}

	resolveAgent := func(id string) (orchestrator.Agent, bool) {
		a, ok := byID[id]
		return a, ok
	}
	resolveConnector := func(name string) (workflow.Connector, bool) {
		c, ok := g.Connectors[name]
		return c, ok
	}

	engine := workflow.NewEngine(resolveAgent, resolveConnector)
	return engine.Execute(ctx, wf, initialInput)
}
