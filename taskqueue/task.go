// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

// Package taskqueue implements the in-memory priority queue with idempotency
// and retry (§4.G). A background consumer drains pending tasks strictly FIFO
// within each priority band; higher-priority tasks drain first.
package taskqueue

import (
	"time"

	"github.com/agentflow-gateway/gateway/internal/ids"
)

// Status is the task's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRetrying   Status = "retrying"
)

// Priority orders draining; higher values drain first.
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityNormal   Priority = 2
	PriorityHigh     Priority = 3
	PriorityCritical Priority = 4
)

// Task is one unit of queued work, per §3.
type Task struct {
	ID             string
	Kind           string
	Payload        any
	Status         Status
	Priority       Priority
	RetryCount     int
	MaxRetries     int
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	Error          string
	Result         any
	IdempotencyKey string
}

// NewTask builds a Pending task with MaxRetries=3, matching the Rust
// original's Task::new default.
func NewTask(kind string, payload any, priority Priority) *Task {
	return &Task{
		ID:         ids.New(),
		Kind:       kind,
		Payload:    payload,
		Status:     StatusPending,
		Priority:   priority,
		MaxRetries: 3,
		CreatedAt:  time.Now().UTC(),
	}
}

// WithIdempotencyKey sets the idempotency key and returns t for chaining.
func (t *Task) WithIdempotencyKey(key string) *Task {
	t.IdempotencyKey = key
	return t
}

// WithMaxRetries overrides the retry budget and returns t for chaining.
func (t *Task) WithMaxRetries(max int) *Task {
	t.MaxRetries = max
	return t
}

// CanRetry reports whether another retry attempt is budgeted.
func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

// MarkProcessing transitions to Processing and stamps StartedAt.
func (t *Task) MarkProcessing() {
	t.Status = StatusProcessing
	now := time.Now().UTC()
	t.StartedAt = &now
}

// MarkCompleted transitions to Completed terminally with result.
func (t *Task) MarkCompleted(result any) {
	t.Status = StatusCompleted
	now := time.Now().UTC()
	t.CompletedAt = &now
	t.Result = result
}

// MarkFailed transitions to Retrying (if budget remains) or Failed
// terminally, incrementing RetryCount on the Retrying path. Per §4.G, a
// Retrying task is re-admitted to Pending by the queue after an exponential
// backoff of 2^retry_count seconds.
func (t *Task) MarkFailed(errMsg string) {
	if t.CanRetry() {
		t.Status = StatusRetrying
		t.RetryCount++
	} else {
		t.Status = StatusFailed
		now := time.Now().UTC()
		t.CompletedAt = &now
	}
	t.Error = errMsg
}

// RetryBackoff returns the exponential backoff duration for the task's
// current retry_count, per §4.G.
func (t *Task) RetryBackoff() time.Duration {
	return time.Duration(1<<uint(t.RetryCount)) * time.Second
}

// Clone returns a deep-enough copy for safe external handoff.
func (t *Task) Clone() *Task {
	cp := *t
	return &cp
}
