// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

// Package llmgateway implements the template-driven generic HTTP provider
// (§4.D): one RequestConfig describes how to build the request and where to
// find the answer in the response, for an arbitrary LLM back-end.
package llmgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// AuthType selects how the adapter's API key is attached to a request.
type AuthType string

const (
	AuthBearer AuthType = "bearer"
	AuthHeader AuthType = "header"
	AuthQuery  AuthType = "query"
	AuthNone   AuthType = "none"
)

// Method is the HTTP verb used to invoke the provider.
type Method string

const (
	MethodGET  Method = "GET"
	MethodPOST Method = "POST"
	MethodPUT  Method = "PUT"
)

// RequestConfig describes how to build one provider's HTTP request and how
// to pull the answer out of its response, per §4.D.
type RequestConfig struct {
	EndpointTemplate string
	BodyTemplate     any // JSON-shaped value (map[string]any, []any, ...), or nil
	Method           Method
	Auth             AuthType
	AuthHeader       string // header name for AuthHeader; query param name for AuthQuery
	ModelField       string
	MessageField     string
	ResponsePath     string
}

// Provider is the uniform invocation contract every adapter implements.
type Provider interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// GenericProvider invokes a back-end built from a RequestConfig.
type GenericProvider struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
	Config  RequestConfig

	HTTPClient *http.Client
}

// NewGenericProvider builds a GenericProvider. A nil HTTPClient defaults to
// http.DefaultClient.
func NewGenericProvider(name, apiKey, model, baseURL string, cfg RequestConfig) *GenericProvider {
	if cfg.Method == "" {
		cfg.Method = MethodPOST
	}
	return &GenericProvider{
		Name:    name,
		APIKey:  apiKey,
		Model:   model,
		BaseURL: baseURL,
		Config:  cfg,
	}
}

func (p *GenericProvider) client() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return http.DefaultClient
}

func (p *GenericProvider) buildURL() string {
	endpoint := strings.ReplaceAll(p.Config.EndpointTemplate, "{model}", p.Model)
	return p.BaseURL + endpoint
}

// buildBody deep-walks BodyTemplate substituting {model}/{prompt}/{message}
// string leaves, then ensures the top-level object carries ModelField and
// MessageField, per §4.D. A nil BodyTemplate falls back to the minimal
// {model_field: model, message_field: prompt} object.
func (p *GenericProvider) buildBody(prompt string) (any, error) {
	if p.Config.BodyTemplate == nil {
		return map[string]any{
			p.Config.ModelField:   p.Model,
			p.Config.MessageField: prompt,
		}, nil
	}

	body := deepCopyReplace(p.Config.BodyTemplate, p.Model, prompt)

	obj, ok := body.(map[string]any)
	if !ok {
		return body, nil
	}

	if _, exists := obj[p.Config.ModelField]; !exists {
		obj[p.Config.ModelField] = p.Model
	}

	userMsg := map[string]any{"role": "user", "content": prompt}
	if existing, exists := obj[p.Config.MessageField]; exists {
		switch v := existing.(type) {
		case []any:
			obj[p.Config.MessageField] = append(v, userMsg)
		default:
			obj[p.Config.MessageField] = prompt
		}
	} else {
		obj[p.Config.MessageField] = []any{userMsg}
	}

	return obj, nil
}

func deepCopyReplace(v any, model, prompt string) any {
	switch val := v.(type) {
	case string:
		switch val {
		case "{model}":
			return model
		case "{prompt}", "{message}":
			return prompt
		default:
			return val
		}
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyReplace(item, model, prompt)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopyReplace(item, model, prompt)
		}
		return out
	default:
		return val
	}
}

// extractResponse walks ResponsePath (dot-separated; numeric segments index
// arrays) to the final node. A string leaf is returned verbatim; any other
// leaf is JSON-serialized.
func extractResponse(root any, path string) (string, error) {
	current := root
	for _, seg := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return "", &PathError{Segment: seg}
			}
			current = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return "", &PathError{Segment: seg}
			}
			current = node[idx]
		default:
			return "", &PathError{Segment: seg}
		}
	}

	if s, ok := current.(string); ok {
		return s, nil
	}
	serialized, err := json.Marshal(current)
	if err != nil {
		return "", fmt.Errorf("llmgateway: serialize response node: %w", err)
	}
	return string(serialized), nil
}

// Invoke builds the request from prompt, sends it, and extracts the answer
// per ResponsePath. See package doc and §4.D for the construction rules.
func (p *GenericProvider) Invoke(ctx context.Context, prompt string) (string, error) {
	reqURL := p.buildURL()

	var bodyReader io.Reader
	if p.Config.Method != MethodGET {
		body, err := p.buildBody(prompt)
		if err != nil {
			return "", err
		}
		encoded, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("llmgateway: encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, string(p.Config.Method), reqURL, bodyReader)
	if err != nil {
		return "", fmt.Errorf("llmgateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	switch p.Config.Auth {
	case AuthBearer:
		header := p.Config.AuthHeader
		if header == "" {
			header = "Authorization"
		}
		req.Header.Set(header, "Bearer "+p.APIKey)
	case AuthHeader:
		if p.Config.AuthHeader != "" {
			req.Header.Set(p.Config.AuthHeader, p.APIKey)
		}
	case AuthQuery:
		if p.Config.AuthHeader != "" {
			q := req.URL.Query()
			q.Set(p.Config.AuthHeader, p.APIKey)
			req.URL.RawQuery = q.Encode()
		}
	case AuthNone, "":
	}

	resp, err := p.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("llmgateway: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llmgateway: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ProviderHTTPError{Status: resp.StatusCode, BodyPrefix: bodyPrefix(respBody, 200)}
	}

	var parsed any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &ParseError{BodyPrefix: bodyPrefix(respBody, 200)}
	}

	return extractResponse(parsed, p.Config.ResponsePath)
}
