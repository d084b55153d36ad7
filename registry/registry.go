// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

// Package registry is the named pool of wrapped providers (§4.E): it compiles
// an AdapterConfig into a llmgateway.GenericProvider, wraps it with a
// concurrency guard, rate limiter, and billing tracker, and keys the result
// by config name. Wrapped invocation ordering (acquire, rate-limit, call,
// bill, release) is contractual per §4.E and mirrors
// original_source/llm-adapter/src/wrapper.rs exactly.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agentflow-gateway/gateway/billing"
	"github.com/agentflow-gateway/gateway/concurrency"
	"github.com/agentflow-gateway/gateway/internal/ids"
	"github.com/agentflow-gateway/gateway/llmgateway"
	"github.com/agentflow-gateway/gateway/ratelimit"
	"github.com/agentflow-gateway/gateway/shared/metrics"
)

// ErrAdapterNotFound is returned when a name has no registered provider.
var ErrAdapterNotFound = errors.New("registry: adapter not found")

// AdapterConfig mirrors the JSON schema of spec.md §6: a named, templated
// HTTP back-end plus its rate-limit/concurrency/billing knobs.
type AdapterConfig struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
	Enabled bool

	Request llmgateway.RequestConfig

	RateLimit       ratelimit.Config
	Concurrency     concurrency.Config
	Pricing         *billing.PricingConfig
	BillingEnabled  bool
}

// InvokeOptions carries the per-call refinements (§4.I's invoke_with_options)
// the orchestrator's LLM agent uses: the caller's user id for rate-limit and
// billing attribution.
type InvokeOptions struct {
	UserID string
}

// WrappedProvider is a registered provider plus the concurrency/rate-limit/
// billing collaborators wrapped around it, per §4.E.
type WrappedProvider struct {
	Name    string
	inner   llmgateway.Provider
	limiter *ratelimit.Limiter
	guard   *concurrency.Guard
	tracker *billing.Tracker
	model   string
	metrics *metrics.Registry
}

// Invoke runs the default (anonymous-user) invocation path.
func (w *WrappedProvider) Invoke(ctx context.Context, prompt string) (string, error) {
	return w.InvokeWithOptions(ctx, prompt, InvokeOptions{})
}

// InvokeWithOptions executes the wrapped call: acquire permit, check rate
// limit, call the inner provider, record billing (even on failure), release
// the permit on every exit path. Step ordering is contractual per §4.E.
func (w *WrappedProvider) InvokeWithOptions(ctx context.Context, prompt string, opts InvokeOptions) (string, error) {
	permit, err := w.guard.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("registry: %s: %w", w.Name, err)
	}
	w.metrics.SetPermitsInUse(float64(w.guard.InUse()))
	defer func() {
		permit.Release()
		w.metrics.SetPermitsInUse(float64(w.guard.InUse()))
	}()

	user := opts.UserID
	key := w.Name + ":" + userOrAnonymous(user)
	if err := w.limiter.Check(key); err != nil {
		scope := w.Name
		var tooMany *ratelimit.ErrTooManyRequests
		if errors.As(err, &tooMany) {
			scope = string(tooMany.Scope)
		}
		w.metrics.IncRateLimitReject(scope)
		return "", fmt.Errorf("registry: %s: %w", w.Name, err)
	}

	start := time.Now()
	result, callErr := w.inner.Invoke(ctx, prompt)
	duration := time.Since(start)

	inTok := billing.EstimateTokens(prompt)
	outTok := 0
	if callErr == nil {
		outTok = billing.EstimateTokens(result)
	}
	rec := w.tracker.RecordUsage(w.Name, w.model, user, ids.New(), inTok, outTok, map[string]any{
		"duration_ms": duration.Milliseconds(),
		"success":     callErr == nil,
	})
	w.metrics.AddBillingCost(w.Name, rec.CostUSD)

	if callErr != nil {
		w.metrics.IncProviderCall(w.Name, "error")
		return "", callErr
	}
	w.metrics.IncProviderCall(w.Name, "success")
	return result, nil
}

// Registry is the {name -> WrappedProvider} mapping plus a {adapter_name ->
// BillingTracker} side table, per §4.E.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*WrappedProvider
	trackers  map[string]*billing.Tracker
	metrics   *metrics.Registry
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{
		providers: make(map[string]*WrappedProvider),
		trackers:  make(map[string]*billing.Tracker),
	}
}

// SetMetrics attaches m so every provider registered from this point on
// reports through it. A nil Registry (the New() default) leaves every
// WrappedProvider's metrics calls as no-ops.
func (r *Registry) SetMetrics(m *metrics.Registry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// Register compiles cfg into a GenericProvider and stores the wrapped result
// under cfg.Name. A disabled config is skipped silently, per §4.E.
func (r *Registry) Register(cfg AdapterConfig) {
	if !cfg.Enabled {
		return
	}
	provider := llmgateway.NewGenericProvider(cfg.Name, cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Request)
	r.RegisterProvider(cfg.Name, cfg.Model, provider, cfg.RateLimit, cfg.Concurrency, cfg.Pricing, cfg.BillingEnabled)
}

// RegisterProvider wraps an arbitrary llmgateway.Provider (generic or a
// vendor-specific implementation such as llmgateway/providers/bedrock) under
// name, giving non-template providers the same registry seam.
func (r *Registry) RegisterProvider(name, model string, inner llmgateway.Provider, rl ratelimit.Config, cc concurrency.Config, pricing *billing.PricingConfig, billingEnabled bool) {
	tracker := billing.NewTracker(pricing)
	tracker.Enabled = billingEnabled

	wrapped := &WrappedProvider{
		Name:    name,
		inner:   inner,
		limiter: ratelimit.New(rl),
		guard:   concurrency.New(cc),
		tracker: tracker,
		model:   model,
	}

	r.mu.Lock()
	wrapped.metrics = r.metrics
	r.providers[name] = wrapped
	r.trackers[name] = tracker
	r.mu.Unlock()
}

// Get returns the wrapped provider registered under name.
func (r *Registry) Get(name string) (*WrappedProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, name)
	}
	return p, nil
}

// Tracker returns the billing tracker for adapter, or nil if unregistered.
func (r *Registry) Tracker(adapter string) *billing.Tracker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trackers[adapter]
}

// Names lists every registered adapter name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	return out
}

// Unregister removes a provider and its tracker, if present.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, name)
	delete(r.trackers, name)
}

func userOrAnonymous(user string) string {
	if user == "" {
		return "anonymous"
	}
	return user
}
