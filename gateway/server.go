// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/agentflow-gateway/gateway/orchestrator"
	"github.com/agentflow-gateway/gateway/workflow"
)

// NewServer builds the HTTP surface of spec.md §6 over g: a health check, a
// Prometheus scrape endpoint, and the invoke/converse/workflow operations,
// wired the way the teacher's orchestrator.Run wires gorilla/mux routes
// behind rs/cors.
func (g *Gateway) NewServer() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", g.healthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/api/v1/invoke", g.invokeHandler).Methods("POST")
	r.HandleFunc("/api/v1/converse", g.converseHandler).Methods("POST")
	r.HandleFunc("/api/v1/workflows/execute", g.workflowHandler).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (g *Gateway) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "healthy",
		"service":   "gatewayd",
		"adapters":  g.Registry.Names(),
		"timestamp": time.Now().UTC(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) invokeHandler(w http.ResponseWriter, r *http.Request) {
	var req InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := g.Invoke(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// converseRequestBody is the wire shape of a conversation request; it mirrors
// ConversationRequest but with a JSON-friendly duration field.
type converseRequestBody struct {
	Agents               []orchestrator.AgentConfig  `json:"agents"`
	SpeakerSelection     orchestrator.SpeakerSelection `json:"speaker_selection,omitempty"`
	AgentOrder           []string                    `json:"agent_order,omitempty"`
	MaxRounds            int                         `json:"max_rounds,omitempty"`
	TimeoutSeconds       int                         `json:"timeout_seconds,omitempty"`
	TerminationCondition string                      `json:"termination_condition,omitempty"`
	InitialMessage       string                      `json:"initial_message"`
	InitialAgentID       string                      `json:"initial_agent_id,omitempty"`
}

func (g *Gateway) converseHandler(w http.ResponseWriter, r *http.Request) {
	var body converseRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req := ConversationRequest{
		Agents:               body.Agents,
		SpeakerSelection:     body.SpeakerSelection,
		AgentOrder:           body.AgentOrder,
		MaxRounds:            body.MaxRounds,
		TerminationCondition: body.TerminationCondition,
		InitialMessage:       body.InitialMessage,
		InitialAgentID:       body.InitialAgentID,
	}
	if body.TimeoutSeconds > 0 {
		req.Timeout = time.Duration(body.TimeoutSeconds) * time.Second
	}
	result, err := g.Converse(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type workflowRequestBody struct {
	Workflow      *workflow.Workflow         `json:"workflow"`
	Agents        []orchestrator.AgentConfig `json:"agents"`
	InitialInput  map[string]any             `json:"initial_input,omitempty"`
}

func (g *Gateway) workflowHandler(w http.ResponseWriter, r *http.Request) {
	var body workflowRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Workflow == nil {
		writeError(w, http.StatusBadRequest, "workflow is required")
		return
	}
	result, err := g.RunWorkflow(r.Context(), body.Workflow, body.Agents, body.InitialInput)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("gateway: error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
