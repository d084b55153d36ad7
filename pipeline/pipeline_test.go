// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	BaseProcessor
	order *[]string
	failPre bool
}

func (r *recordingProcessor) Pre(_ context.Context, pc *ProcessingContext) error {
	*r.order = append(*r.order, r.Name())
	if r.failPre {
		return errors.New("boom")
	}
	return nil
}

func (r *recordingProcessor) Post(_ context.Context, pc *ProcessingContext) error {
	*r.order = append(*r.order, r.Name())
	return nil
}

func TestChainRunsInAscendingPriorityOrder(t *testing.T) {
	var order []string
	c := NewChain()
	c.Add(&recordingProcessor{BaseProcessor: BaseProcessor{ProcName: "late", ProcPriority: 100}, order: &order})
	c.Add(&recordingProcessor{BaseProcessor: BaseProcessor{ProcName: "early", ProcPriority: 10}, order: &order})

	pc := NewProcessingContext("r1", "u1", "stub", "hi")
	require.NoError(t, c.PreProcess(context.Background(), pc))
	assert.Equal(t, []string{"early", "late"}, order)
}

func TestChainAbortsOnProcessorError(t *testing.T) {
	var order []string
	c := NewChain()
	c.Add(&recordingProcessor{BaseProcessor: BaseProcessor{ProcName: "first", ProcPriority: 10}, order: &order, failPre: true})
	c.Add(&recordingProcessor{BaseProcessor: BaseProcessor{ProcName: "second", ProcPriority: 20}, order: &order})

	pc := NewProcessingContext("r1", "u1", "stub", "hi")
	err := c.PreProcess(context.Background(), pc)
	require.Error(t, err)
	assert.Equal(t, []string{"first"}, order)
}

func TestAuditProcessorDoesNotMutateContext(t *testing.T) {
	a := NewAuditProcessor(nil)
	pc := NewProcessingContext("r1", "u1", "stub", "hello world")
	pc.ProcessedOutput = "answer"
	require.NoError(t, a.Pre(context.Background(), pc))
	require.NoError(t, a.Post(context.Background(), pc))
	assert.Equal(t, "hello world", pc.ProcessedInput)
}

func TestTruncatePreviewIsCodePointSafe(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, truncatePreview(short, 100))

	long := make([]rune, 150)
	for i := range long {
		long[i] = '日'
	}
	out := truncatePreview(string(long), 100)
	assert.Equal(t, 101, len([]rune(out))) // 100 chars + ellipsis
}

func TestPIIMaskRedactsEmail(t *testing.T) {
	p := NewPIIProcessor(ModeMask, "", nil)
	pc := NewProcessingContext("r1", "u1", "stub", "contact me at jane.doe@example.com please")
	require.NoError(t, p.Pre(context.Background(), pc))
	assert.NotContains(t, pc.ProcessedInput, "jane.doe@example.com")
	assert.Equal(t, true, pc.Metadata["pii_redacted_input"])
}

func TestPIIRemoveMode(t *testing.T) {
	p := NewPIIProcessor(ModeRemove, "", nil)
	pc := NewProcessingContext("r1", "u1", "stub", "email jane.doe@example.com now")
	require.NoError(t, p.Pre(context.Background(), pc))
	assert.Contains(t, pc.ProcessedInput, "[REDACTED]")
}

func TestPIIIdempotent(t *testing.T) {
	p := NewPIIProcessor(ModeHash, "", nil)
	pc := NewProcessingContext("r1", "u1", "stub", "email jane.doe@example.com now")
	require.NoError(t, p.Pre(context.Background(), pc))
	once := pc.ProcessedInput

	pc2 := NewProcessingContext("r1", "u1", "stub", once)
	require.NoError(t, p.Pre(context.Background(), pc2))
	assert.Equal(t, once, pc2.ProcessedInput)
}

func TestPIINoMatchLeavesMetadataUnset(t *testing.T) {
	p := NewPIIProcessor(ModeMask, "", nil)
	pc := NewProcessingContext("r1", "u1", "stub", "nothing sensitive here")
	require.NoError(t, p.Pre(context.Background(), pc))
	_, ok := pc.Metadata["pii_redacted_input"]
	assert.False(t, ok)
}

func TestPIICustomPatternCompilationFailureSkippedSilently(t *testing.T) {
	p := NewPIIProcessor(ModeMask, "", []CustomPattern{{Name: "bad", Pattern: "("}})
	pc := NewProcessingContext("r1", "u1", "stub", "hello world")
	require.NoError(t, p.Pre(context.Background(), pc))
	assert.Equal(t, "hello world", pc.ProcessedInput)
}

func TestMaskCodePointsShortString(t *testing.T) {
	assert.Equal(t, "****", maskCodePoints("abcd"))
	assert.Equal(t, "ab****yz", maskCodePoints("abcdefghyz"))
}

func TestFormatterSingleOutputPassthrough(t *testing.T) {
	f := &Formatter{Format: FormatPlain, Strategy: StrategyConcatenate}
	out, err := f.Combine([]AgentOutput{{AgentID: "a", Content: "only"}})
	require.NoError(t, err)
	assert.Equal(t, "only", out)
}

func TestFormatterBestPicksMaxConfidence(t *testing.T) {
	f := &Formatter{Format: FormatPlain, Strategy: StrategyBest}
	out, err := f.Combine([]AgentOutput{
		{AgentID: "a", Content: "low", Confidence: 0.2},
		{AgentID: "b", Content: "high", Confidence: 0.9},
	})
	require.NoError(t, err)
	assert.Equal(t, "high", out)
}

func TestFormatterConcatenateMarkdown(t *testing.T) {
	f := &Formatter{Format: FormatMarkdown, Strategy: StrategyConcatenate}
	out, err := f.Combine([]AgentOutput{
		{AgentID: "a", Content: "one"},
		{AgentID: "b", Content: "two"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "### a")
	assert.Contains(t, out, "one")
	assert.Contains(t, out, "### b")
}

func TestFormatterVotePicksMajority(t *testing.T) {
	f := &Formatter{Format: FormatPlain, Strategy: StrategyVote}
	out, err := f.Combine([]AgentOutput{
		{AgentID: "a", Content: "yes"},
		{AgentID: "b", Content: "no"},
		{AgentID: "c", Content: "yes"},
	})
	require.NoError(t, err)
	assert.Equal(t, "yes", out)
}

func TestFormattingProcessorPostCombinesAgentOutputs(t *testing.T) {
	fp := NewFormattingProcessor(FormatPlain, StrategyConcatenate)
	pc := NewProcessingContext("r1", "u1", "stub", "q")
	pc.Metadata["agent_outputs"] = []AgentOutput{{AgentID: "a", Content: "x"}, {AgentID: "b", Content: "y"}}
	require.NoError(t, fp.Post(context.Background(), pc))
	assert.Equal(t, "x\ny", pc.ProcessedOutput)
}
