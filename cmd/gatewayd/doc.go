// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

/*
Command gatewayd runs the Gateway service: the HTTP surface over the
provider registry, orchestrator, workflow engine, and router described in
spec.md §6.

# Usage

	gatewayd [flags]

# Environment Variables

Optional:
  - PORT: HTTP server port (default: 8080)
  - GATEWAY_CONFIG_FILE: path to a JSON or YAML config document (schema in
    spec.md §6); unset starts the gateway with an empty configuration
  - GATEWAY_JWT_VERIFY_KEY: HMAC key enabling JWT-refined inline credential
    detection (§6.4); unset falls back to the heuristic detector only

# Example

	export GATEWAY_CONFIG_FILE="/etc/gateway/config.yaml"
	./gatewayd
*/
package main
