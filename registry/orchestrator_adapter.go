// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package registry

import (
	"context"

	"github.com/agentflow-gateway/gateway/orchestrator"
)

// AsInvoker adapts w to the orchestrator.Invoker seam the role-aware LLM
// agent (§4.I) calls through, so a registered adapter can back an
// orchestrator.LLMAgent without that package importing registry directly.
func (w *WrappedProvider) AsInvoker() orchestrator.Invoker {
	return invokerAdapter{w}
}

type invokerAdapter struct {
	w *WrappedProvider
}

func (a invokerAdapter) InvokeWithOptions(ctx context.Context, prompt string, opts orchestrator.InvokerOptions) (string, error) {
	return a.w.InvokeWithOptions(ctx, prompt, InvokeOptions{UserID: opts.UserID})
}
