// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

// Package gateway is the invoke-orchestration glue (§4.N): it composes
// config, rate limiting, concurrency, billing, the provider registry, the
// processing pipeline, the router, the orchestrator and the workflow engine
// into the two externally observable operations spec.md §2 names —
// single-shot invocation and multi-agent conversation — following the
// request-flow diagram: caller -> Gateway -> (router selects an adapter) ->
// pipeline pre-process -> registry.Get -> wrapped provider call ->
// pipeline post-process -> caller.
package gateway
