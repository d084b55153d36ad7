// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package gwconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "version": "1.0.0",
  "adapters": {
    "openai": {"name": "openai", "api_key": "sk-test", "model": "gpt-4", "enabled": true}
  },
  "prompts": {
    "greeting": {"name": "greeting", "template": "hello {name}", "enabled": true}
  },
  "feature_flags": {
    "beta": {"name": "beta", "status": "gradual_rollout", "percentage": 10}
  },
  "routing_rules": [
    {"name": "default", "strategy": "round_robin", "priority": 1, "models": [
      {"model_name": "gpt-4", "adapter_name": "openai", "weight": 1, "enabled": true}
    ]}
  ]
}`

const sampleYAML = `
version: "1.0.0"
adapters:
  openai:
    name: openai
    api_key: sk-test
    model: gpt-4
    enabled: true
prompts: {}
feature_flags: {}
routing_rules: []
`

func TestLoadJSON(t *testing.T) {
	cfg, err := LoadJSON([]byte(sampleJSON))
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", cfg.Version)
	require.Contains(t, cfg.Adapters, "openai")
	assert.Equal(t, "gpt-4", cfg.Adapters["openai"].Model)
	require.Contains(t, cfg.FeatureFlags, "beta")
	require.Len(t, cfg.RoutingRules, 1)
}

func TestLoadYAML(t *testing.T) {
	cfg, err := LoadYAML([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", cfg.Version)
	require.Contains(t, cfg.Adapters, "openai")
}

func TestLoadFileDispatchesByExtension(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, writeFile(jsonPath, sampleJSON))
	cfg, err := LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", cfg.Version)

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, writeFile(yamlPath, sampleYAML))
	cfg, err = LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", cfg.Version)
}

func TestLoadJSONMalformed(t *testing.T) {
	_, err := LoadJSON([]byte("{not json"))
	assert.Error(t, err)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
