// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectModelRoundRobinCycles(t *testing.T) {
	r := New()
	r.AddRule(Rule{
		Name:     "rr",
		Strategy: StrategyRoundRobin,
		Priority: 1,
		Models: []ModelWeight{
			{ModelName: "m1", AdapterName: "a1", Enabled: true},
			{ModelName: "m2", AdapterName: "a2", Enabled: true},
		},
	})

	first, err := r.SelectModel("", nil)
	require.NoError(t, err)
	second, err := r.SelectModel("", nil)
	require.NoError(t, err)
	third, err := r.SelectModel("", nil)
	require.NoError(t, err)

	assert.Equal(t, "m1", first.Model)
	assert.Equal(t, "m2", second.Model)
	assert.Equal(t, "m1", third.Model)
}

func TestSelectModelSkipsDisabledModels(t *testing.T) {
	r := New()
	r.AddRule(Rule{
		Name:     "rr",
		Strategy: StrategyRoundRobin,
		Priority: 1,
		Models: []ModelWeight{
			{ModelName: "m1", AdapterName: "a1", Enabled: false},
			{ModelName: "m2", AdapterName: "a2", Enabled: true},
		},
	})

	choice, err := r.SelectModel("", nil)
	require.NoError(t, err)
	assert.Equal(t, "m2", choice.Model)
}

func TestSelectModelHigherPriorityRuleWinsAndIsEvaluatedFirst(t *testing.T) {
	r := New()
	r.AddRule(Rule{Name: "low", Priority: 1, Strategy: StrategyRoundRobin,
		Models: []ModelWeight{{ModelName: "low-model", AdapterName: "a", Enabled: true}}})
	r.AddRule(Rule{Name: "high", Priority: 10, Strategy: StrategyRoundRobin,
		Models: []ModelWeight{{ModelName: "high-model", AdapterName: "a", Enabled: true}}})

	choice, err := r.SelectModel("", nil)
	require.NoError(t, err)
	assert.Equal(t, "high-model", choice.Model)
}

func TestSelectModelConditionRequiresContext(t *testing.T) {
	r := New()
	r.AddRule(Rule{Name: "conditional", Priority: 5, Strategy: StrategyRoundRobin, Condition: "has_tools",
		Models: []ModelWeight{{ModelName: "m1", AdapterName: "a", Enabled: true}}})

	_, err := r.SelectModel("", nil)
	assert.ErrorIs(t, err, ErrNoChoice)

	choice, err := r.SelectModel("", map[string]any{"tools": true})
	require.NoError(t, err)
	assert.Equal(t, "m1", choice.Model)
}

func TestSelectModelUserBasedRequiresUserID(t *testing.T) {
	r := New()
	r.AddRule(Rule{Name: "ub", Priority: 1, Strategy: StrategyUserBased,
		Models: []ModelWeight{{ModelName: "m1", AdapterName: "a", Enabled: true}, {ModelName: "m2", AdapterName: "a", Enabled: true}}})

	_, err := r.SelectModel("", nil)
	assert.ErrorIs(t, err, ErrNoChoice)

	choice, err := r.SelectModel("user-42", nil)
	require.NoError(t, err)
	assert.Contains(t, []string{"m1", "m2"}, choice.Model)
}

func TestSelectModelHashBasedFallsBackToDefaultKey(t *testing.T) {
	r := New()
	r.AddRule(Rule{Name: "hb", Priority: 1, Strategy: StrategyHashBased,
		Models: []ModelWeight{{ModelName: "m1", AdapterName: "a", Enabled: true}, {ModelName: "m2", AdapterName: "a", Enabled: true}}})

	choiceA, err := r.SelectModel("", nil)
	require.NoError(t, err)
	choiceB, err := r.SelectModel("", nil)
	require.NoError(t, err)
	assert.Equal(t, choiceA.Model, choiceB.Model, "same empty-userID key hashes to the same model deterministically")
}

func TestSelectModelWeightedRespectsZeroTotalWeight(t *testing.T) {
	r := New()
	r.AddRule(Rule{Name: "w", Priority: 1, Strategy: StrategyWeighted,
		Models: []ModelWeight{{ModelName: "m1", AdapterName: "a", Enabled: true, Weight: 0}}})

	_, err := r.SelectModel("", nil)
	assert.ErrorIs(t, err, ErrNoChoice)
}

func TestSelectModelLeastConnectionsPrefersFewerInFlight(t *testing.T) {
	r := New()
	r.AddRule(Rule{Name: "lc", Priority: 1, Strategy: StrategyLeastConnections,
		Models: []ModelWeight{{ModelName: "busy", AdapterName: "a", Enabled: true}, {ModelName: "idle", AdapterName: "a", Enabled: true}}})

	r.connMu.Lock()
	r.conns["busy"] = 5
	r.connMu.Unlock()

	choice, err := r.SelectModel("", nil)
	require.NoError(t, err)
	assert.Equal(t, "idle", choice.Model)
}

func TestNoRulesReturnsErrNoChoice(t *testing.T) {
	r := New()
	_, err := r.SelectModel("", nil)
	assert.ErrorIs(t, err, ErrNoChoice)
}

func TestConnectionCountsTrackSelections(t *testing.T) {
	r := New()
	r.AddRule(Rule{Name: "rr", Priority: 1, Strategy: StrategyRoundRobin,
		Models: []ModelWeight{{ModelName: "m1", AdapterName: "a", Enabled: true}}})

	_, err := r.SelectModel("", nil)
	require.NoError(t, err)
	_, err = r.SelectModel("", nil)
	require.NoError(t, err)

	counts := r.ConnectionCounts()
	assert.Equal(t, uint64(2), counts["m1"])
}

func TestUpdateAndRemoveRule(t *testing.T) {
	r := New()
	r.AddRule(Rule{Name: "a", Priority: 1, Strategy: StrategyRoundRobin,
		Models: []ModelWeight{{ModelName: "m1", AdapterName: "x", Enabled: true}}})

	r.UpdateRule("a", Rule{Name: "a", Priority: 1, Strategy: StrategyRoundRobin,
		Models: []ModelWeight{{ModelName: "m2", AdapterName: "y", Enabled: true}}})
	choice, err := r.SelectModel("", nil)
	require.NoError(t, err)
	assert.Equal(t, "m2", choice.Model)

	r.RemoveRule("a")
	assert.Empty(t, r.ListRules())
}
