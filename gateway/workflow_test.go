// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentflow-gateway/gateway/orchestrator"
	"github.com/agentflow-gateway/gateway/workflow"
)

// echoConnector is a stub workflow.Connector that returns its input
// statement verbatim, per SPEC_FULL.md §10 scenario S7.
type echoConnector struct{}

func (echoConnector) Query(_ context.Context, statement string, parameters map[string]any) (map[string]any, error) {
	return map[string]any{"echo": statement}, nil
}

func (echoConnector) Execute(_ context.Context, action, statement string, parameters map[string]any) (map[string]any, error) {
	return map[string]any{"echo": statement, "action": action}, nil
}

func TestRunWorkflowSingleAgentStep(t *testing.T) {
	g := newTestGateway(t)
	agentCfg := orchestrator.NewAgentConfig("echo", orchestrator.Role{Kind: orchestrator.RoleAssistant}, "desc", "prompt", "stub")

	wf := &workflow.Workflow{
		Config:      workflow.NewConfig("single-step", "one agent step"),
		StartStepID: "s1",
		Steps: []workflow.Step{
			{
				ID: "s1", Type: workflow.StepAgentExecution, AgentID: agentCfg.ID,
				OutputKey: "final_result", Enabled: true,
			},
		},
	}

	result, err := g.RunWorkflow(context.Background(), wf, []orchestrator.AgentConfig{agentCfg}, map[string]any{"input": "abc"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"s1"}, result.StepsExecuted)
	out, ok := result.StepOutputs["final_result"].(map[string]any)
	require.True(t, ok)
	// The agent sends BuildPrompt's rendering of "abc"; the stub reverses it.
	assert.Equal(t, "\n\ncba :ksat tnerruC\ntpmorp :elor metsyS", out["content"])
	assert.Contains(t, result.AgentsUsed, agentCfg.ID)
}

func TestRunWorkflowConnectorStep(t *testing.T) {
	g := newTestGateway(t)
	g.RegisterConnector("echo", echoConnector{})

	wf := &workflow.Workflow{
		Config:      workflow.NewConfig("connector-step", "one connector step"),
		StartStepID: "s1",
		Steps: []workflow.Step{
			{
				ID: "s1", Type: workflow.StepConnectorCall, Connector: "echo",
				Statement: "hello", OutputKey: "s1", Enabled: true,
			},
		},
	}

	result, err := g.RunWorkflow(context.Background(), wf, nil, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"s1"}, result.StepsExecuted)
	out, ok := result.StepOutputs["s1"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", out["echo"])
}
