// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

// Package bedrock adapts AWS Bedrock to the llmgateway.Provider interface so
// it can sit behind the registry's wrapped-invocation path (§4.E) alongside
// the template-driven GenericProvider. Grounded in the teacher's
// orchestrator/llm_router.go BedrockProvider: request/response shape differs
// per model family (Anthropic, Amazon Titan, Meta Llama, Mistral), selected
// by a model-id prefix sniff.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Family identifies the Bedrock model family, each with its own wire shape.
type Family string

const (
	FamilyAnthropic Family = "anthropic"
	FamilyAmazon    Family = "amazon"
	FamilyMeta      Family = "meta"
	FamilyMistral   Family = "mistral"
)

// DetectFamily sniffs the model family from its Bedrock model id prefix.
func DetectFamily(modelID string) Family {
	switch {
	case strings.HasPrefix(modelID, "anthropic."):
		return FamilyAnthropic
	case strings.HasPrefix(modelID, "amazon."):
		return FamilyAmazon
	case strings.HasPrefix(modelID, "meta."):
		return FamilyMeta
	case strings.HasPrefix(modelID, "mistral."):
		return FamilyMistral
	default:
		return FamilyAnthropic
	}
}

// Provider invokes a Bedrock model through bedrockruntime.Client, implementing
// llmgateway.Provider so the registry can wrap it like any other adapter.
type Provider struct {
	Client      *bedrockruntime.Client
	Model       string
	MaxTokens   int
	Temperature float64
}

// New builds a Provider bound to an already-configured bedrockruntime.Client
// (construction of the AWS config/credentials is a collaborator concern, out
// of this module's scope per spec.md §1).
func New(client *bedrockruntime.Client, model string) *Provider {
	return &Provider{Client: client, Model: model, MaxTokens: 1024, Temperature: 0.7}
}

// Invoke builds the family-specific request body, calls InvokeModel, and
// parses the family-specific response body into plain text.
func (p *Provider) Invoke(ctx context.Context, prompt string) (string, error) {
	family := DetectFamily(p.Model)

	body, err := p.buildRequestBody(family, prompt)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := p.Client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.Model),
		Body:        payload,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke model: %w", err)
	}

	return p.parseResponseBody(family, out.Body)
}

func (p *Provider) buildRequestBody(family Family, prompt string) (map[string]any, error) {
	switch family {
	case FamilyAnthropic:
		return map[string]any{
			"anthropic_version": "bedrock-2023-05-31",
			"max_tokens":        p.MaxTokens,
			"temperature":       p.Temperature,
			"messages":          []map[string]string{{"role": "user", "content": prompt}},
		}, nil
	case FamilyAmazon:
		return map[string]any{
			"inputText": prompt,
			"textGenerationConfig": map[string]any{
				"maxTokenCount": p.MaxTokens,
				"temperature":   p.Temperature,
				"topP":          0.9,
			},
		}, nil
	case FamilyMeta:
		return map[string]any{
			"prompt":      prompt,
			"max_gen_len": p.MaxTokens,
			"temperature": p.Temperature,
			"top_p":       0.9,
		}, nil
	case FamilyMistral:
		return map[string]any{
			"prompt":      prompt,
			"max_tokens":  p.MaxTokens,
			"temperature": p.Temperature,
			"top_p":       0.9,
		}, nil
	default:
		return nil, fmt.Errorf("bedrock: unsupported model family: %s", family)
	}
}

func (p *Provider) parseResponseBody(family Family, body []byte) (string, error) {
	switch family {
	case FamilyAnthropic:
		var resp struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("bedrock: parse anthropic response: %w", err)
		}
		if len(resp.Content) == 0 {
			return "", fmt.Errorf("bedrock: empty anthropic response")
		}
		return resp.Content[0].Text, nil
	case FamilyAmazon:
		var resp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("bedrock: parse titan response: %w", err)
		}
		if len(resp.Results) == 0 {
			return "", fmt.Errorf("bedrock: empty titan response")
		}
		return resp.Results[0].OutputText, nil
	case FamilyMeta:
		var resp struct {
			Generation string `json:"generation"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("bedrock: parse llama response: %w", err)
		}
		return resp.Generation, nil
	case FamilyMistral:
		var resp struct {
			Outputs []struct {
				Text string `json:"text"`
			} `json:"outputs"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("bedrock: parse mistral response: %w", err)
		}
		if len(resp.Outputs) == 0 {
			return "", fmt.Errorf("bedrock: empty mistral response")
		}
		return resp.Outputs[0].Text, nil
	default:
		return "", fmt.Errorf("bedrock: unsupported model family: %s", family)
	}
}
