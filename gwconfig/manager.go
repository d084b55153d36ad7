// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package gwconfig

import (
	"sync"
)

// Manager owns the single mutable Config value, per §4.M: one writer at a
// time (writeMu), reads observe a snapshot (Clone under a read lock), and
// every mutation publishes the new snapshot to a fan-out of watchers via a
// latest-value channel (buffered size 1, overwritten rather than blocked on).
type Manager struct {
	writeMu sync.Mutex

	mu      sync.RWMutex
	cfg     Config
	version uint64

	watchMu  sync.Mutex
	watchers map[int]chan Config
	nextID   int
}

// NewManager builds a Manager seeded with initial. initial is normalized
// (nil maps become empty) before being stored.
func NewManager(initial Config) *Manager {
	return &Manager{
		cfg:      normalize(initial),
		watchers: make(map[int]chan Config),
	}
}

// Snapshot returns a deep-enough copy of the current config; callers never
// observe a partially-written mutation.
func (m *Manager) Snapshot() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Clone()
}

// Version returns the monotone audit counter, bumped on every mutation. It
// is for audit only, not optimistic concurrency, per spec.md §3.
func (m *Manager) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Watch registers a new watcher and returns its channel plus an unsubscribe
// function. The channel has capacity 1 and always holds only the latest
// published snapshot: a publish that finds the channel full drains the stale
// value first, per §4.M's "latest-value channel" semantics.
func (m *Manager) Watch() (<-chan Config, func()) {
	ch := make(chan Config, 1)
	m.watchMu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = ch
	m.watchMu.Unlock()

	unsubscribe := func() {
		m.watchMu.Lock()
		defer m.watchMu.Unlock()
		if c, ok := m.watchers[id]; ok {
			delete(m.watchers, id)
			close(c)
		}
	}
	return ch, unsubscribe
}

func (m *Manager) publish(snap Config) {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	for _, ch := range m.watchers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// mutate serializes writers through writeMu, applies fn to a clone of the
// current config, stores the result, bumps the version, and fans the new
// snapshot out to watchers.
func (m *Manager) mutate(fn func(*Config)) Config {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.RLock()
	next := m.cfg.Clone()
	m.mu.RUnlock()

	fn(&next)

	m.mu.Lock()
	m.cfg = next
	m.version++
	snap := m.cfg.Clone()
	m.mu.Unlock()

	m.publish(snap)
	return snap
}

// UpsertAdapter writes (or replaces) one adapter config entry and returns
// the resulting snapshot. Cascading re-registration in the provider
// registry is the caller's responsibility, per §4.M's hot-reload contract.
func (m *Manager) UpsertAdapter(a AdapterConfig) Config {
	return m.mutate(func(c *Config) {
		if c.Adapters == nil {
			c.Adapters = map[string]AdapterConfig{}
		}
		c.Adapters[a.Name] = a
	})
}

// RemoveAdapter deletes one adapter config entry.
func (m *Manager) RemoveAdapter(name string) Config {
	return m.mutate(func(c *Config) {
		delete(c.Adapters, name)
	})
}

// UpsertPrompt writes (or replaces) one prompt template entry.
func (m *Manager) UpsertPrompt(p PromptConfig) Config {
	return m.mutate(func(c *Config) {
		if c.Prompts == nil {
			c.Prompts = map[string]PromptConfig{}
		}
		c.Prompts[p.Name] = p
	})
}

// RemovePrompt deletes one prompt template entry.
func (m *Manager) RemovePrompt(name string) Config {
	return m.mutate(func(c *Config) {
		delete(c.Prompts, name)
	})
}

// UpsertFeatureFlag writes (or replaces) one feature flag entry.
func (m *Manager) UpsertFeatureFlag(f FeatureFlagConfig) Config {
	return m.mutate(func(c *Config) {
		if c.FeatureFlags == nil {
			c.FeatureFlags = map[string]FeatureFlagConfig{}
		}
		c.FeatureFlags[f.Name] = f
	})
}

// SetRoutingRules replaces the routing rule list wholesale.
func (m *Manager) SetRoutingRules(rules []RoutingRuleConfig) Config {
	return m.mutate(func(c *Config) {
		c.RoutingRules = append([]RoutingRuleConfig(nil), rules...)
	})
}
