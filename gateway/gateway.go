// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package gateway

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentflow-gateway/gateway/bus"
	"github.com/agentflow-gateway/gateway/flags"
	"github.com/agentflow-gateway/gateway/gwconfig"
	"github.com/agentflow-gateway/gateway/pipeline"
	"github.com/agentflow-gateway/gateway/registry"
	"github.com/agentflow-gateway/gateway/router"
	"github.com/agentflow-gateway/gateway/shared/metrics"
	"github.com/agentflow-gateway/gateway/workflow"
)

// Gateway ties components A-M together for one request, per §4.N. It owns
// no algorithmic state itself: every field is one of the components
// specified in §4, constructed once by New and mutated only through their
// own public APIs.
type Gateway struct {
	Config   *gwconfig.Manager
	Registry *registry.Registry
	Router   *router.Router
	Flags    *flags.Store
	Pipeline *pipeline.Chain
	Bus      *bus.Bus
	Metrics  *metrics.Registry

	// Connectors backs ConnectorCall workflow steps (§6.1). Nil entries are
	// simply unavailable to RunWorkflow; the zero value of this field is a
	// Gateway with no connector-backed steps.
	Connectors map[string]workflow.Connector

	// JWTVerifyKey, when non-nil, enables the JWT refinement of inline
	// credential detection (§6.4). A nil key disables JWT verification and
	// AuthenticateInline falls straight through to the heuristic.
	JWTVerifyKey []byte
}

// New builds a Gateway from cfg's current snapshot: every enabled adapter is
// registered, every routing rule is added, and every feature flag is set.
// Metrics are registered against a private prometheus.Registry so concurrent
// tests never collide on the global DefaultRegisterer; NewWithRegisterer lets
// the production binary pass prometheus.DefaultRegisterer instead.
func New(cfg *gwconfig.Manager) (*Gateway, error) {
	return NewWithRegisterer(cfg, prometheus.NewRegistry())
}

// NewWithRegisterer is New with an explicit Prometheus registerer, per §6.2.
func NewWithRegisterer(cfg *gwconfig.Manager, reg prometheus.Registerer) (*Gateway, error) {
	reg2 := registry.New()
	m := metrics.NewRegistry(reg)
	reg2.SetMetrics(m)

	g := &Gateway{
		Config:     cfg,
		Registry:   reg2,
		Router:     router.New(),
		Flags:      flags.New(),
		Pipeline:   defaultPipeline(),
		Bus:        bus.New(),
		Metrics:    m,
		Connectors: make(map[string]workflow.Connector),
	}
	if err := g.ReloadFromConfig(); err != nil {
		return nil, err
	}
	return g, nil
}

// defaultPipeline builds the three built-in processors of §4.F in their
// fixed priority order (Add sorts by priority, so registration order here
// does not matter, but this reads top-to-bottom the way the chain runs).
func defaultPipeline() *pipeline.Chain {
	chain := pipeline.NewChain()
	chain.Add(pipeline.NewAuditProcessor(nil))
	chain.Add(pipeline.NewPIIProcessor(pipeline.ModeMask, "", nil))
	chain.Add(pipeline.NewFormattingProcessor(pipeline.FormatPlain, pipeline.StrategyConcatenate))
	return chain
}

// ReloadFromConfig re-registers every adapter, routing rule, and feature
// flag from the config manager's current snapshot. §4.M's hot-reload
// contract makes cascading re-registration the caller's responsibility;
// Gateway is that caller. Safe to call repeatedly (e.g. after a config
// watcher fires).
func (g *Gateway) ReloadFromConfig() error {
	snap := g.Config.Snapshot()

	for name, a := range snap.Adapters {
		if !a.Enabled {
			g.Registry.Unregister(name)
			continue
		}
		g.Registry.Register(a.ToAdapter())
	}

	for _, rc := range snap.RoutingRules {
		rule, err := rc.ToRule()
		if err != nil {
			return fmt.Errorf("gateway: routing rule %q: %w", rc.Name, err)
		}
		g.Router.RemoveRule(rule.Name)
		g.Router.AddRule(rule)
	}

	for name, fc := range snap.FeatureFlags {
		flag, err := fc.ToFlag()
		if err != nil {
			return fmt.Errorf("gateway: feature flag %q: %w", name, err)
		}
		g.Flags.Set(flag)
	}

	return nil
}

// RegisterConnector makes conn reachable from ConnectorCall workflow steps
// under name, per §6.1.
func (g *Gateway) RegisterConnector(name string, conn workflow.Connector) {
	if g.Connectors == nil {
		g.Connectors = make(map[string]workflow.Connector)
	}
	g.Connectors[name] = conn
}
