// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package taskqueue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/agentflow-gateway/gateway/shared/metrics"
)

// Handler executes one task's work and returns its result.
type Handler func(ctx context.Context, t *Task) (any, error)

// pqItem is one entry in the internal priority heap: higher Priority drains
// first; within the same priority, lower seq (earlier enqueue) drains first.
type pqItem struct {
	id       string
	priority Priority
	seq      uint64
}

type priorityHeap []*pqItem

func (h priorityHeap) Len() int { return len(h) }
func (h priorityHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h priorityHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *priorityHeap) Push(x any)        { *h = append(*h, x.(*pqItem)) }
func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is the in-memory priority task queue with idempotency and retry,
// per §4.G. A configurable number of worker goroutines drain the heap.
type Queue struct {
	mu          sync.Mutex
	items       priorityHeap
	tasks       map[string]*Task
	idempotency map[string]string // key -> first-seen task id, per §4.G
	seq         uint64
	ready       chan struct{}

	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	metrics *metrics.Registry
}

// SetMetrics attaches m so Depth reports through it on every mutation. A nil
// Queue.metrics (the New() default) leaves these calls as no-ops, per
// shared/metrics' nil-safe Registry.
func (q *Queue) SetMetrics(m *metrics.Registry) {
	q.mu.Lock()
	q.metrics = m
	q.mu.Unlock()
	q.reportDepth()
}

func (q *Queue) reportDepth() {
	q.mu.Lock()
	depth := len(q.items)
	m := q.metrics
	q.mu.Unlock()
	m.SetQueueDepth("pending", float64(depth))
}

// New builds a Queue and starts workers background consumer goroutines that
// call handler for each dequeued task. Call Close to stop them.
func New(workers int, handler Handler) *Queue {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		tasks:       make(map[string]*Task),
		idempotency: make(map[string]string),
		ready:       make(chan struct{}, 1),
		handler:     handler,
		ctx:         ctx,
		cancel:      cancel,
	}
	heap.Init(&q.items)
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Enqueue admits t. If t.IdempotencyKey names a prior Completed task, the new
// task is dropped — not enqueued, not an error — and the prior task's id is
// returned, per §4.G. Otherwise t is stored Pending and the first-seen
// idempotency mapping is recorded.
func (q *Queue) Enqueue(t *Task) string {
	q.mu.Lock()

	if t.IdempotencyKey != "" {
		if existingID, ok := q.idempotency[t.IdempotencyKey]; ok {
			if existing, found := q.tasks[existingID]; found && existing.Status == StatusCompleted {
				q.mu.Unlock()
				return existingID
			}
		} else {
			q.idempotency[t.IdempotencyKey] = t.ID
		}
	}

	q.tasks[t.ID] = t
	q.seq++
	heap.Push(&q.items, &pqItem{id: t.ID, priority: t.Priority, seq: q.seq})
	q.mu.Unlock()

	q.reportDepth()
	q.signal()
	return t.ID
}

// Get returns a copy of the task stored under id.
func (q *Queue) Get(id string) (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// List returns a copy of every task, optionally filtered by status.
func (q *Queue) List(status *Status) []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Task, 0, len(q.tasks))
	for _, t := range q.tasks {
		if status != nil && t.Status != *status {
			continue
		}
		out = append(out, t.Clone())
	}
	return out
}

// Update overwrites the stored task with t (matched by t.ID).
func (q *Queue) Update(t *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks[t.ID] = t
}

// Depth returns the number of items still sitting in the ready heap
// (excludes tasks currently Processing).
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) popReady() *Task {
	q.mu.Lock()
	var found *Task
	for q.items.Len() > 0 {
		item := heap.Pop(&q.items).(*pqItem)
		t, ok := q.tasks[item.id]
		if !ok || t.Status != StatusPending {
			continue
		}
		found = t
		break
	}
	q.mu.Unlock()
	if found != nil {
		q.reportDepth()
	}
	return found
}

func (q *Queue) readmit(t *Task) {
	q.mu.Lock()
	t.Status = StatusPending
	q.seq++
	heap.Push(&q.items, &pqItem{id: t.ID, priority: t.Priority, seq: q.seq})
	q.mu.Unlock()
	q.reportDepth()
	q.signal()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.ready:
		}

		for {
			t := q.popReady()
			if t == nil {
				break
			}
			q.process(t)
		}
	}
}

func (q *Queue) process(t *Task) {
	t.MarkProcessing()
	q.Update(t)

	result, err := q.handler(q.ctx, t)
	if err != nil {
		t.MarkFailed(err.Error())
		q.Update(t)
		if t.Status == StatusRetrying {
			backoff := t.RetryBackoff()
			time.AfterFunc(backoff, func() { q.readmit(t) })
		}
		return
	}

	t.MarkCompleted(result)
	q.Update(t)
}

// Close stops accepting new drains and waits for in-flight workers to exit.
func (q *Queue) Close() {
	q.cancel()
	q.wg.Wait()
}
