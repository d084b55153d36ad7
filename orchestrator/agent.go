// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"context"
	"time"

	"github.com/agentflow-gateway/gateway/internal/ids"
)

// Role identifies an agent's function within a conversation, per §4.I.
// Expert and Custom carry an associated name distinguishing the specific
// domain/role, mirroring the Rust original's Expert{domain}/Custom{role_name}
// enum variants.
type Role struct {
	Kind string // one of the Role* constants below
	Name string // populated only for RoleExpert/RoleCustom
}

const (
	RoleUser        = "user"
	RoleAssistant   = "assistant"
	RolePlanner     = "planner"
	RoleExecutor    = "executor"
	RoleReviewer    = "reviewer"
	RoleCoordinator = "coordinator"
	RoleExpert      = "expert"
	RoleCustom      = "custom"
)

// Expert builds an Expert role scoped to domain.
func Expert(domain string) Role { return Role{Kind: RoleExpert, Name: domain} }

// CustomRole builds a Custom role under name.
func CustomRole(name string) Role { return Role{Kind: RoleCustom, Name: name} }

// Capability is a named, independently toggleable agent feature.
type Capability struct {
	Name        string
	Description string
	Enabled     bool
	Parameters  map[string]any
}

// AgentConfig is an agent's static configuration, per §3.
type AgentConfig struct {
	ID           string
	Name         string
	Role         Role
	Description  string
	SystemPrompt string
	AdapterName  string
	Capabilities []Capability
	MaxTurns     *int
	Temperature  *float64
	Enabled      bool
	Metadata     map[string]any
}

// NewAgentConfig builds an AgentConfig with Enabled=true, matching the Rust
// original's AgentConfig::new default.
func NewAgentConfig(name string, role Role, description, systemPrompt, adapterName string) AgentConfig {
	return AgentConfig{
		ID:           ids.New(),
		Name:         name,
		Role:         role,
		Description:  description,
		SystemPrompt: systemPrompt,
		AdapterName:  adapterName,
		Enabled:      true,
		Metadata:     make(map[string]any),
	}
}

// MessageType classifies a Message's purpose in the conversation, per §3.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
	MessageTask   MessageType = "task"
	MessageResult MessageType = "result"
	MessageError  MessageType = "error"
)

// Message is one turn in a multi-agent conversation, per §3.
type Message struct {
	ID         string
	SenderID   string
	SenderName string
	ReceiverID string // empty means broadcast/unaddressed
	Content    string
	Type       MessageType
	Metadata   map[string]any
	Timestamp  time.Time
}

// NewMessage builds a Message, stamping a fresh id and the current time.
func NewMessage(senderID, senderName, receiverID, content string, msgType MessageType) Message {
	return Message{
		ID:         ids.New(),
		SenderID:   senderID,
		SenderName: senderName,
		ReceiverID: receiverID,
		Content:    content,
		Type:       msgType,
		Metadata:   make(map[string]any),
		Timestamp:  time.Now().UTC(),
	}
}

// Context carries the accumulating conversation state across rounds, per §3:
// history, shared_state (visible to every agent) and local_state (per-orchestrator
// scratch space).
type Context struct {
	History []Message
	Shared  map[string]any
	Local   map[string]any
}

// NewContext builds an empty Context.
func NewContext() *Context {
	return &Context{Shared: make(map[string]any), Local: make(map[string]any)}
}

// AddMessage appends msg to the conversation history.
func (c *Context) AddMessage(msg Message) {
	c.History = append(c.History, msg)
}

// LastN returns the most recent n messages, oldest first, or the full
// history if it holds n or fewer.
func (c *Context) LastN(n int) []Message {
	if len(c.History) <= n {
		return c.History
	}
	return c.History[len(c.History)-n:]
}

// Response is an agent's reply to a processed Message, per §3.
type Response struct {
	Message        Message
	ShouldContinue bool
	NextAgentID    string
	Confidence     *float64
	Metadata       map[string]any
}

// NewResponse wraps msg with ShouldContinue defaulted true, matching the
// Rust original's AgentResponse::new.
func NewResponse(msg Message) Response {
	return Response{Message: msg, ShouldContinue: true, Metadata: make(map[string]any)}
}

// Done marks the response as terminal for its agent and returns it for
// chaining.
func (r Response) Done() Response {
	r.ShouldContinue = false
	return r
}

// Next sets the agent that should receive the follow-up message.
func (r Response) Next(agentID string) Response {
	r.NextAgentID = agentID
	return r
}

// Agent is the interface every participant in an orchestration round
// implements, per §4.I.
type Agent interface {
	Config() AgentConfig
	CanHandle(msg Message) bool
	Process(ctx context.Context, msg Message, agentCtx *Context) (Response, error)
}

// BaseAgent supplies the default CanHandle behavior — handle unaddressed
// messages or ones addressed to this agent's id — for embedding by concrete
// Agent implementations.
type BaseAgent struct {
	Cfg AgentConfig
}

// Config returns the embedded configuration.
func (b BaseAgent) Config() AgentConfig { return b.Cfg }

// CanHandle reports true when msg has no receiver or targets this agent.
func (b BaseAgent) CanHandle(msg Message) bool {
	return msg.ReceiverID == "" || msg.ReceiverID == b.Cfg.ID
}

// BuildPrompt renders the agent's system prompt, the current task, and the
// last 10 conversation turns into a single completion prompt, per §4.I.
func BuildPrompt(cfg AgentConfig, msg Message, agentCtx *Context) string {
	prompt := "System role: " + cfg.SystemPrompt + "\nCurrent task: " + msg.Content + "\n\n"
	recent := agentCtx.LastN(10)
	if len(recent) > 0 {
		prompt += "Recent conversation:\n"
		for _, m := range recent {
			prompt += "[" + m.SenderName + "]: " + m.Content + "\n"
		}
		prompt += "\n"
	}
	return prompt
}
