// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FormattingPriority is the formatting processor's fixed chain position,
// per §4.F.
const FormattingPriority = 100

// OutputFormat selects the textual shape of the combined result.
type OutputFormat string

const (
	FormatPlain      OutputFormat = "plain"
	FormatJSON       OutputFormat = "json"
	FormatMarkdown   OutputFormat = "markdown"
	FormatStructured OutputFormat = "structured"
)

// CombineStrategy selects how multiple agent outputs are reduced to one.
type CombineStrategy string

const (
	StrategyConcatenate     CombineStrategy = "concatenate"
	StrategyWeightedAverage CombineStrategy = "weighted_average"
	StrategyVote            CombineStrategy = "vote"
	StrategyBest            CombineStrategy = "best"
)

// AgentOutput is one agent's contribution to a combined result.
type AgentOutput struct {
	AgentID    string
	Content    string
	Confidence float64
}

// Formatter combines N agent outputs into one string per the
// {Format} x {Strategy} matrix.
type Formatter struct {
	Format   OutputFormat
	Strategy CombineStrategy
}

// Combine reduces outputs to one string. Exactly one output is always a
// pass-through, per §4.F.
func (f *Formatter) Combine(outputs []AgentOutput) (string, error) {
	if len(outputs) == 1 {
		return outputs[0].Content, nil
	}
	if len(outputs) == 0 {
		return "", nil
	}

	reduced, err := f.reduce(outputs)
	if err != nil {
		return "", err
	}
	return f.render(reduced)
}

func (f *Formatter) reduce(outputs []AgentOutput) ([]AgentOutput, error) {
	switch f.Strategy {
	case StrategyBest:
		best := outputs[0]
		for _, o := range outputs[1:] {
			if o.Confidence > best.Confidence {
				best = o
			}
		}
		return []AgentOutput{best}, nil
	case StrategyVote:
		counts := make(map[string]int)
		for _, o := range outputs {
			counts[o.Content]++
		}
		var winner string
		var max int
		// Deterministic tie-break: first-seen content with the max count.
		seen := make(map[string]bool)
		for _, o := range outputs {
			if seen[o.Content] {
				continue
			}
			seen[o.Content] = true
			if counts[o.Content] > max {
				max = counts[o.Content]
				winner = o.Content
			}
		}
		return []AgentOutput{{AgentID: "vote", Content: winner}}, nil
	case StrategyWeightedAverage:
		// Text has no numeric average; weighted-average over confidence
		// yields the confidence-sorted concatenation, highest first.
		sorted := make([]AgentOutput, len(outputs))
		copy(sorted, outputs)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Confidence > sorted[j].Confidence })
		return sorted, nil
	case StrategyConcatenate, "":
		return outputs, nil
	default:
		return nil, fmt.Errorf("pipeline: unknown combine strategy %q", f.Strategy)
	}
}

func (f *Formatter) render(outputs []AgentOutput) (string, error) {
	switch f.Format {
	case FormatJSON:
		encoded, err := json.Marshal(outputs)
		if err != nil {
			return "", fmt.Errorf("pipeline: encode formatted output: %w", err)
		}
		return string(encoded), nil
	case FormatMarkdown:
		var b strings.Builder
		for _, o := range outputs {
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", o.AgentID, o.Content)
		}
		return strings.TrimSuffix(b.String(), "\n"), nil
	case FormatStructured:
		var b strings.Builder
		for _, o := range outputs {
			fmt.Fprintf(&b, "[%s] %s\n", o.AgentID, o.Content)
		}
		return strings.TrimSuffix(b.String(), "\n"), nil
	case FormatPlain, "":
		parts := make([]string, len(outputs))
		for i, o := range outputs {
			parts[i] = o.Content
		}
		return strings.Join(parts, "\n"), nil
	default:
		return "", fmt.Errorf("pipeline: unknown output format %q", f.Format)
	}
}

// FormattingProcessor is a Processor wrapper around Formatter: when
// pc.Metadata["agent_outputs"] carries a []AgentOutput, Post combines them
// into pc.ProcessedOutput. Formatter can also be used on its own to combine
// outputs directly.
type FormattingProcessor struct {
	BaseProcessor
	formatter *Formatter
}

// NewFormattingProcessor builds the formatting processor at its fixed
// priority.
func NewFormattingProcessor(format OutputFormat, strategy CombineStrategy) *FormattingProcessor {
	return &FormattingProcessor{
		BaseProcessor: BaseProcessor{ProcName: "formatting", ProcPriority: FormattingPriority},
		formatter:     &Formatter{Format: format, Strategy: strategy},
	}
}

func (f *FormattingProcessor) Post(_ context.Context, pc *ProcessingContext) error {
	raw, ok := pc.Metadata["agent_outputs"]
	if !ok {
		return nil
	}
	outputs, ok := raw.([]AgentOutput)
	if !ok || len(outputs) == 0 {
		return nil
	}
	combined, err := f.formatter.Combine(outputs)
	if err != nil {
		return err
	}
	pc.ProcessedOutput = combined
	return nil
}
