// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

// Package pipeline implements the pre/post-processor chain (§4.F) that sits
// between a caller's request and the provider registry: audit logging, PII
// redaction, and multi-agent output formatting, each a Processor sorted by
// ascending priority.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ProcessingContext carries one request/response pair through the chain.
type ProcessingContext struct {
	RequestID       string
	UserID          string
	AdapterName     string
	OriginalInput   string
	ProcessedInput  string
	OriginalOutput  string
	ProcessedOutput string
	Metadata        map[string]any
	StartTime       time.Time
}

// NewProcessingContext seeds a context for one invocation.
func NewProcessingContext(requestID, userID, adapterName, input string) *ProcessingContext {
	return &ProcessingContext{
		RequestID:      requestID,
		UserID:         userID,
		AdapterName:    adapterName,
		OriginalInput:  input,
		ProcessedInput: input,
		Metadata:       make(map[string]any),
		StartTime:      time.Now(),
	}
}

// Processor is one stage of the chain. Embedding BaseProcessor supplies
// no-op Pre and Post hooks.
type Processor interface {
	Name() string
	Priority() uint32
	Pre(ctx context.Context, pc *ProcessingContext) error
	Post(ctx context.Context, pc *ProcessingContext) error
}

// BaseProcessor gives concrete processors a name/priority pair and no-op
// hooks, so each only overrides the one it needs (mirroring the teacher's
// preference for small single-purpose structs over one monolithic switch).
type BaseProcessor struct {
	ProcName     string
	ProcPriority uint32
}

func (b BaseProcessor) Name() string       { return b.ProcName }
func (b BaseProcessor) Priority() uint32   { return b.ProcPriority }
func (b BaseProcessor) Pre(context.Context, *ProcessingContext) error  { return nil }
func (b BaseProcessor) Post(context.Context, *ProcessingContext) error { return nil }

// Chain holds processors sorted by ascending priority. Ties keep the order
// Add was called in (stable sort), matching §4.F's "ties unspecified".
type Chain struct {
	mu         sync.Mutex
	processors []Processor
}

// NewChain builds an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Add inserts p and re-sorts the chain by ascending priority.
func (c *Chain) Add(p Processor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processors = append(c.processors, p)
	sort.SliceStable(c.processors, func(i, j int) bool {
		return c.processors[i].Priority() < c.processors[j].Priority()
	})
}

// Processors returns a snapshot of the current chain, ascending priority.
func (c *Chain) Processors() []Processor {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Processor, len(c.processors))
	copy(out, c.processors)
	return out
}

// PreProcess runs every processor's Pre hook in priority order. A processor
// error aborts the chain and is returned wrapped with the processor's name.
func (c *Chain) PreProcess(ctx context.Context, pc *ProcessingContext) error {
	for _, p := range c.Processors() {
		if err := p.Pre(ctx, pc); err != nil {
			return fmt.Errorf("pipeline: processor %q pre-stage: %w", p.Name(), err)
		}
	}
	return nil
}

// PostProcess runs every processor's Post hook in priority order.
func (c *Chain) PostProcess(ctx context.Context, pc *ProcessingContext) error {
	for _, p := range c.Processors() {
		if err := p.Post(ctx, pc); err != nil {
			return fmt.Errorf("pipeline: processor %q post-stage: %w", p.Name(), err)
		}
	}
	return nil
}
