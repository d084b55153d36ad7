// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package gateway

import (
	"context"
	"fmt"

	"github.com/agentflow-gateway/gateway/internal/ids"
	"github.com/agentflow-gateway/gateway/pipeline"
	"github.com/agentflow-gateway/gateway/registry"
	"github.com/agentflow-gateway/gateway/router"
)

// InvokeRequest is the single-shot invocation request of spec.md §6's HTTP
// surface, described abstractly there and given a concrete Go shape here.
type InvokeRequest struct {
	Input      string
	Adapter    string
	APIKey     string
	Model      string
	BaseURL    string
	UserID     string
	PromptName string

	// RoutingContext is passed to the router's rule Condition check (§4.K)
	// when Adapter is empty and a routing decision is needed.
	RoutingContext map[string]any
}

// InvokeResult is the outcome of one single-shot invocation.
type InvokeResult struct {
	RequestID string
	Adapter   string
	Result    string
}

// Invoke runs the single-invocation request flow of spec.md §2: resolve an
// adapter (explicit name, inline credential, or router decision), run the
// pipeline's pre-processors, call the resolved provider through the
// registry, then run the pipeline's post-processors.
func (g *Gateway) Invoke(ctx context.Context, req InvokeRequest) (InvokeResult, error) {
	requestID := ids.New()

	adapterName, err := g.resolveAdapter(req)
	if err != nil {
		return InvokeResult{}, err
	}

	pc := pipeline.NewProcessingContext(requestID, req.UserID, adapterName, req.Input)
	if err := g.Pipeline.PreProcess(ctx, pc); err != nil {
		return InvokeResult{}, fmt.Errorf("gateway: pre-process: %w", err)
	}

	provider, err := g.Registry.Get(adapterName)
	if err != nil {
		return InvokeResult{}, fmt.Errorf("gateway: %w", err)
	}

	output, err := provider.InvokeWithOptions(ctx, pc.ProcessedInput, registry.InvokeOptions{UserID: req.UserID})
	if err != nil {
		return InvokeResult{}, err
	}

	pc.OriginalOutput = output
	pc.ProcessedOutput = output
	if err := g.Pipeline.PostProcess(ctx, pc); err != nil {
		return InvokeResult{}, fmt.Errorf("gateway: post-process: %w", err)
	}

	return InvokeResult{
		RequestID: requestID,
		Adapter:   adapterName,
		Result:    pc.ProcessedOutput,
	}, nil
}

// resolveAdapter implements spec.md §6's adapter-resolution order: an
// explicit, already-registered adapter name wins outright; failing that, an
// api_key that looks like an inline credential synthesizes and registers a
// new adapter; failing that, the router picks one from the configured
// rules. No adapter name and no routing decision is RouterNoChoice, fatal
// to the call per §7.
func (g *Gateway) resolveAdapter(req InvokeRequest) (string, error) {
	if req.Adapter != "" {
		if _, err := g.Registry.Get(req.Adapter); err == nil {
			return req.Adapter, nil
		}
	}

	if req.APIKey != "" {
		cfg, ok, err := AuthenticateInline(req.APIKey, req.Model, req.BaseURL, g.JWTVerifyKey)
		if err != nil {
			return "", fmt.Errorf("gateway: inline credential: %w", err)
		}
		if ok {
			if req.Adapter != "" {
				cfg.Name = req.Adapter
			}
			g.Config.UpsertAdapter(cfg)
			g.Registry.Register(cfg.ToAdapter())
			return cfg.Name, nil
		}
	}

	if req.Adapter != "" {
		return "", fmt.Errorf("gateway: %w: %s", registry.ErrAdapterNotFound, req.Adapter)
	}

	choice, err := g.Router.SelectModel(req.UserID, req.RoutingContext)
	if err != nil {
		return "", fmt.Errorf("gateway: %w", router.ErrNoChoice)
	}
	for model, n := range g.Router.ConnectionCounts() {
		g.Metrics.SetRouterConnections(model, float64(n))
	}
	return choice.Adapter, nil
}
