// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

// Package billing tracks token usage and cost for provider invocations.
// Token counts are either reported by the upstream provider or, when absent,
// estimated from the request/response text.
package billing

import (
	"sync"
	"time"
)

// Record is a single usage event appended by RecordUsage.
type Record struct {
	Adapter    string
	User       string
	RequestID  string
	InputTok   int
	OutputTok  int
	CostUSD    float64
	Timestamp  time.Time
	Metadata   map[string]any
}

// Aggregate holds monotonically increasing totals for one key (an adapter
// name or a user id).
type Aggregate struct {
	mu         sync.Mutex
	InputTok   int
	OutputTok  int
	CostUSD    float64
	Requests   int
}

func (a *Aggregate) add(in, out int, cost float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.InputTok += in
	a.OutputTok += out
	a.CostUSD += cost
	a.Requests++
}

// Snapshot returns a point-in-time copy of the aggregate's counters.
func (a *Aggregate) Snapshot() Aggregate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Aggregate{InputTok: a.InputTok, OutputTok: a.OutputTok, CostUSD: a.CostUSD, Requests: a.Requests}
}

// Tracker records usage and maintains per-adapter and per-user aggregates.
// A disabled Tracker is a no-op, matching §4.C's "Disabled tracker is a
// no-op" contract.
type Tracker struct {
	Enabled bool
	Pricing *PricingConfig

	mu          sync.Mutex
	records     []Record
	byAdapter   map[string]*Aggregate
	byUser      map[string]*Aggregate
}

// NewTracker builds an enabled tracker backed by the given pricing table. A
// nil pricing table falls back to DefaultPricing.
func NewTracker(pricing *PricingConfig) *Tracker {
	if pricing == nil {
		pricing = DefaultPricing
	}
	return &Tracker{
		Enabled:   true,
		Pricing:   pricing,
		byAdapter: make(map[string]*Aggregate),
		byUser:    make(map[string]*Aggregate),
	}
}

// RecordUsage appends a billing record and updates aggregates. Cost is
// always computed from the tracker's pricing table, looked up with adapter
// as the provider name and model as the model name.
func (t *Tracker) RecordUsage(adapter, model, user, requestID string, inTok, outTok int, meta map[string]any) Record {
	if !t.Enabled {
		return Record{}
	}
	cost := t.Pricing.CalculateCost(adapter, model, inTok, outTok)
	rec := Record{
		Adapter:   adapter,
		User:      user,
		RequestID: requestID,
		InputTok:  inTok,
		OutputTok: outTok,
		CostUSD:   cost,
		Timestamp: time.Now().UTC(),
		Metadata:  meta,
	}

	t.mu.Lock()
	t.records = append(t.records, rec)
	adapterAgg := t.byAdapter[adapter]
	if adapterAgg == nil {
		adapterAgg = &Aggregate{}
		t.byAdapter[adapter] = adapterAgg
	}
	var userAgg *Aggregate
	if user != "" {
		userAgg = t.byUser[user]
		if userAgg == nil {
			userAgg = &Aggregate{}
			t.byUser[user] = userAgg
		}
	}
	t.mu.Unlock()

	adapterAgg.add(inTok, outTok, cost)
	if userAgg != nil {
		userAgg.add(inTok, outTok, cost)
	}
	return rec
}

// AdapterUsage returns a snapshot of the per-adapter aggregate, or the zero
// value if the adapter has never been billed.
func (t *Tracker) AdapterUsage(adapter string) Aggregate {
	t.mu.Lock()
	agg := t.byAdapter[adapter]
	t.mu.Unlock()
	if agg == nil {
		return Aggregate{}
	}
	return agg.Snapshot()
}

// UserUsage returns a snapshot of the per-user aggregate.
func (t *Tracker) UserUsage(user string) Aggregate {
	t.mu.Lock()
	agg := t.byUser[user]
	t.mu.Unlock()
	if agg == nil {
		return Aggregate{}
	}
	return agg.Snapshot()
}

// Records returns a copy of every record appended so far, for test and audit
// use only; it is not part of the hot path.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// EstimateTokens approximates token count for text lacking an upstream
// usage report: CJK Unified Ideograph characters (U+4E00-U+9FFF) count as
// two-thirds of a token each, every other character counts as a quarter
// token, and the sum is floored.
func EstimateTokens(s string) int {
	var total, chinese int
	for _, r := range s {
		total++
		if r >= 0x4E00 && r <= 0x9FFF {
			chinese++
		}
	}
	other := total - chinese
	return int(float64(other)/4.0 + float64(chinese)/1.5)
}
