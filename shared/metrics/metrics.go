// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

// Package metrics exposes the Prometheus gauges/counters the gateway's core
// components update. Nothing in the gateway reads these metrics to make
// decisions — they are a read-only projection over router connection counts,
// queue depth, billing totals, and concurrency-guard saturation, all named
// with a gateway_ prefix.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the gauges/counters the gateway's core components update.
// A nil *Registry is valid and every method becomes a no-op, so callers can
// construct components without metrics wiring in tests.
type Registry struct {
	QueueDepth        *prometheus.GaugeVec
	PermitsInUse      prometheus.Gauge
	RouterConnections *prometheus.GaugeVec
	RateLimitRejects  *prometheus.CounterVec
	BillingCostTotal  *prometheus.CounterVec
	ProviderCalls     *prometheus.CounterVec
}

// NewRegistry builds and registers a fresh Registry against reg. Passing
// prometheus.NewRegistry() keeps tests isolated from the global registry;
// passing prometheus.DefaultRegisterer matches the teacher's init()-time
// MustRegister pattern for the production binary.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_taskqueue_depth",
			Help: "Number of tasks waiting in the ready queue, by status.",
		}, []string{"status"}),
		PermitsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_concurrency_permits_in_use",
			Help: "Number of concurrency-guard permits currently held.",
		}),
		RouterConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_router_model_connections",
			Help: "Cumulative selection count per model, as tracked by the router for LeastConnections.",
		}, []string{"model"}),
		RateLimitRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_ratelimit_rejections_total",
			Help: "Total requests rejected by the sliding-window rate limiter, by scope.",
		}, []string{"scope"}),
		BillingCostTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_billing_cost_usd_total",
			Help: "Total estimated USD cost billed, by adapter.",
		}, []string{"adapter"}),
		ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_provider_calls_total",
			Help: "Total provider invocations, by adapter and outcome.",
		}, []string{"adapter", "outcome"}),
	}
	reg.MustRegister(r.QueueDepth, r.PermitsInUse, r.RouterConnections, r.RateLimitRejects, r.BillingCostTotal, r.ProviderCalls)
	return r
}

func (r *Registry) SetQueueDepth(status string, n float64) {
	if r == nil {
		return
	}
	r.QueueDepth.WithLabelValues(status).Set(n)
}

func (r *Registry) SetPermitsInUse(n float64) {
	if r == nil {
		return
	}
	r.PermitsInUse.Set(n)
}

func (r *Registry) SetRouterConnections(model string, n float64) {
	if r == nil {
		return
	}
	r.RouterConnections.WithLabelValues(model).Set(n)
}

func (r *Registry) IncRateLimitReject(scope string) {
	if r == nil {
		return
	}
	r.RateLimitRejects.WithLabelValues(scope).Inc()
}

func (r *Registry) AddBillingCost(adapter string, cost float64) {
	if r == nil {
		return
	}
	r.BillingCostTotal.WithLabelValues(adapter).Add(cost)
}

func (r *Registry) IncProviderCall(adapter, outcome string) {
	if r == nil {
		return
	}
	r.ProviderCalls.WithLabelValues(adapter, outcome).Inc()
}
