// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

// Package bus implements the fan-out publish-subscribe message bus with
// ring-buffered replay (§4.H). Grounded in
// original_source/nexus/src/infrastructure/messaging/mcp/bus.rs for the
// publish/subscribe/get shape and the subscriber channel capacity; the
// replay ring buffer is additive (bus.rs keeps only an unbounded by-id map),
// modeled on orchestrator/replay's snapshot/summary storage idiom.
package bus

import (
	"sync"
	"time"

	"github.com/agentflow-gateway/gateway/internal/ids"
)

// SubscriberCapacity is the fixed per-subscriber channel buffer, per §4.H.
const SubscriberCapacity = 100

// RingSize is the fixed number of events retained per (source, day) bucket.
const RingSize = 1000

// UsageEvent is a single bus message, per §3's UsageEvent entity.
type UsageEvent struct {
	ID        string
	Source    string
	Payload   any
	Timestamp time.Time
}

type ring struct {
	mu     sync.Mutex
	events []UsageEvent
	head   int
	count  int
}

func newRing() *ring {
	return &ring{events: make([]UsageEvent, RingSize)}
}

func (r *ring) push(ev UsageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := (r.head + r.count) % RingSize
	if r.count < RingSize {
		r.events[idx] = ev
		r.count++
	} else {
		r.events[r.head] = ev
		r.head = (r.head + 1) % RingSize
	}
}

// snapshot returns events oldest-first.
func (r *ring) snapshot() []UsageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]UsageEvent, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.events[(r.head+i)%RingSize])
	}
	return out
}

// Bus fan-outs published events to subscribers and retains a bounded replay
// window per (source, day) bucket.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan UsageEvent
	buckets     map[string]*ring
}

// New builds an empty Bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[string]chan UsageEvent),
		buckets:     make(map[string]*ring),
	}
}

func bucketKey(source string, ts time.Time) string {
	return source + "|" + ts.UTC().Format("2006-01-02")
}

// Publish fan-outs ev to every current subscriber via a non-blocking send; a
// subscriber whose channel is full is evicted, per §4.H. The event is also
// appended to its (source, day) ring buffer for replay. Returns the
// generated event id.
func (b *Bus) Publish(source string, payload any) string {
	ev := UsageEvent{ID: ids.New(), Source: source, Payload: payload, Timestamp: time.Now().UTC()}

	b.mu.Lock()
	bucket, ok := b.buckets[bucketKey(source, ev.Timestamp)]
	if !ok {
		bucket = newRing()
		b.buckets[bucketKey(source, ev.Timestamp)] = bucket
	}
	subs := make(map[string]chan UsageEvent, len(b.subscribers))
	for name, ch := range b.subscribers {
		subs[name] = ch
	}
	b.mu.Unlock()

	bucket.push(ev)

	var dead []string
	for name, ch := range subs {
		select {
		case ch <- ev:
		default:
			dead = append(dead, name)
		}
	}
	if len(dead) > 0 {
		b.mu.Lock()
		for _, name := range dead {
			delete(b.subscribers, name)
		}
		b.mu.Unlock()
	}

	return ev.ID
}

// Subscribe registers name and returns a receive-only channel of capacity
// SubscriberCapacity. Subscribing under a name already registered replaces
// the prior channel.
func (b *Bus) Subscribe(name string) <-chan UsageEvent {
	ch := make(chan UsageEvent, SubscriberCapacity)
	b.mu.Lock()
	b.subscribers[name] = ch
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes name's registration, if present.
func (b *Bus) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, name)
}

// GetEvents replays the (source, day) bucket's retained events, oldest
// first.
func (b *Bus) GetEvents(source string, day time.Time) []UsageEvent {
	b.mu.RLock()
	bucket, ok := b.buckets[bucketKey(source, day)]
	b.mu.RUnlock()
	if !ok {
		return nil
	}
	return bucket.snapshot()
}

// SubscriberCount reports how many subscribers are currently registered, for
// test and diagnostic use.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
