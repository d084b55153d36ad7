// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package gwconfig

import (
	"fmt"

	"github.com/agentflow-gateway/gateway/billing"
	"github.com/agentflow-gateway/gateway/concurrency"
	"github.com/agentflow-gateway/gateway/flags"
	"github.com/agentflow-gateway/gateway/llmgateway"
	"github.com/agentflow-gateway/gateway/ratelimit"
	"github.com/agentflow-gateway/gateway/registry"
	"github.com/agentflow-gateway/gateway/router"
)

// metaString reads a string-valued metadata key, falling back to def.
func metaString(md map[string]any, key, def string) string {
	if v, ok := md[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// metaInt reads an int-valued metadata key (tolerating the float64 JSON
// decodes into), falling back to def.
func metaInt(md map[string]any, key string, def int) int {
	v, ok := md[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}

// metaBool reads a bool-valued metadata key, falling back to def.
func metaBool(md map[string]any, key string, def bool) bool {
	if v, ok := md[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// metaFloat reads a float-valued metadata key, falling back to def.
func metaFloat(md map[string]any, key string, def float64) float64 {
	v, ok := md[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

// ToAdapter compiles one on-disk AdapterConfig into the registry's typed
// AdapterConfig, applying every recognized metadata key of spec.md §6. Keys
// absent from metadata fall back to the defaults named there
// (endpoint_template "/v1/chat/completions", method POST, auth_type "bearer").
func (a AdapterConfig) ToAdapter() registry.AdapterConfig {
	md := a.Metadata
	if md == nil {
		md = map[string]any{}
	}

	method := llmgateway.Method(metaString(md, "method", "POST"))
	authType := llmgateway.AuthType(metaString(md, "auth_type", "bearer"))
	authHeader := metaString(md, "auth_header", "")
	if authType == llmgateway.AuthQuery {
		authHeader = metaString(md, "auth_param", authHeader)
	}

	req := llmgateway.RequestConfig{
		EndpointTemplate: metaString(md, "endpoint_template", "/v1/chat/completions"),
		BodyTemplate:     md["body_template"],
		Method:           method,
		Auth:             authType,
		AuthHeader:       authHeader,
		ModelField:       metaString(md, "model_field", "model"),
		MessageField:     metaString(md, "message_field", "messages"),
		ResponsePath:     metaString(md, "response_path", "choices.0.message.content"),
	}

	rl := ratelimit.Config{
		RPS:     metaInt(md, "rate_limit_rps", 0),
		RPM:     metaInt(md, "rate_limit_rpm", 0),
		RPH:     metaInt(md, "rate_limit_rph", 0),
		Enabled: metaBool(md, "rate_limit_enabled", false),
	}

	cc := concurrency.Config{
		MaxConcurrent: metaInt(md, "max_concurrent", 0),
		Enabled:       metaBool(md, "concurrency_enabled", false),
	}

	var pricing *billing.PricingConfig
	inPrice := metaFloat(md, "input_price_per_1k", -1)
	outPrice := metaFloat(md, "output_price_per_1k", -1)
	if inPrice >= 0 || outPrice >= 0 {
		pricing = billing.NewPricingConfig()
		if inPrice < 0 {
			inPrice = 0
		}
		if outPrice < 0 {
			outPrice = 0
		}
		pricing.SetModelPricing(a.Name, a.Model, billing.ModelPricing{InputPer1K: inPrice, OutputPer1K: outPrice})
	}

	return registry.AdapterConfig{
		Name:           a.Name,
		APIKey:         a.APIKey,
		Model:          a.Model,
		BaseURL:        a.BaseURL,
		Enabled:        a.Enabled,
		Request:        req,
		RateLimit:      rl,
		Concurrency:    cc,
		Pricing:        pricing,
		BillingEnabled: metaBool(md, "billing_enabled", pricing != nil),
	}
}

// ToFlag converts one on-disk FeatureFlagConfig into a flags.Flag.
func (f FeatureFlagConfig) ToFlag() (flags.Flag, error) {
	out := flags.Flag{
		Name:        f.Name,
		EnabledFor:  f.EnabledFor,
		DisabledFor: f.DisabledFor,
	}
	switch f.Status {
	case "enabled", "":
		out.Status = flags.StatusEnabled
	case "disabled":
		out.Status = flags.StatusDisabled
	case "gradual_rollout":
		out.Status = flags.StatusGradualRollout
		out.Percentage = f.Percentage
	default:
		return flags.Flag{}, fmt.Errorf("gwconfig: unknown feature flag status %q for %q", f.Status, f.Name)
	}
	return out, nil
}

// ToRule converts one on-disk RoutingRuleConfig into a router.Rule.
func (r RoutingRuleConfig) ToRule() (router.Rule, error) {
	strategy := router.Strategy(r.Strategy)
	switch strategy {
	case router.StrategyRoundRobin, router.StrategyRandom, router.StrategyWeighted,
		router.StrategyLeastConnections, router.StrategyUserBased, router.StrategyHashBased:
	default:
		return router.Rule{}, fmt.Errorf("gwconfig: unknown routing strategy %q for rule %q", r.Strategy, r.Name)
	}
	models := make([]router.ModelWeight, len(r.Models))
	for i, m := range r.Models {
		models[i] = router.ModelWeight{
			ModelName:   m.ModelName,
			AdapterName: m.AdapterName,
			Weight:      m.Weight,
			Enabled:     m.Enabled,
		}
	}
	return router.Rule{
		Name:      r.Name,
		Strategy:  strategy,
		Models:    models,
		Condition: r.Condition,
		Priority:  r.Priority,
	}, nil
}
