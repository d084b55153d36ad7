// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

// Package logging is the structured event trail used by the processing
// pipeline's audit processor. It
// generalizes shared/logger's {component, instance_id, user_id, request_id}
// JSON-line shape with two additional fields this module's domain needs:
// session_id (one multi-agent orchestration) and workflow_id (one workflow
// execution). Intra-package narrative tracing still uses the stdlib log
// package directly, matching the teacher's mixed use of log.Printf alongside
// shared/logger for the structured audit trail.
package logging

import (
	"github.com/agentflow-gateway/gateway/shared/logger"
)

// Event is one structured log line emitted by a core component.
type Event struct {
	Component  string
	RequestID  string
	SessionID  string
	WorkflowID string
	Message    string
	Fields     map[string]interface{}
}

// Sink emits structured events. The default Sink wraps shared/logger.Logger;
// tests may substitute a recording sink.
type Sink interface {
	Emit(level logger.LogLevel, ev Event)
}

// StdSink writes events through a shared/logger.Logger instance.
type StdSink struct {
	log *logger.Logger
}

// NewStdSink builds a StdSink for component.
func NewStdSink(component string) *StdSink {
	return &StdSink{log: logger.New(component)}
}

// Emit writes ev at level, folding SessionID/WorkflowID into the field map
// since shared/logger.LogEntry has no dedicated slots for them.
func (s *StdSink) Emit(level logger.LogLevel, ev Event) {
	fields := ev.Fields
	if ev.SessionID != "" || ev.WorkflowID != "" {
		merged := make(map[string]interface{}, len(fields)+2)
		for k, v := range fields {
			merged[k] = v
		}
		if ev.SessionID != "" {
			merged["session_id"] = ev.SessionID
		}
		if ev.WorkflowID != "" {
			merged["workflow_id"] = ev.WorkflowID
		}
		fields = merged
	}
	s.log.Log(level, "", ev.RequestID, ev.Message, fields)
}

// Info emits ev at INFO level.
func (s *StdSink) Info(ev Event) { s.Emit(logger.INFO, ev) }

// Error emits ev at ERROR level.
func (s *StdSink) Error(ev Event) { s.Emit(logger.ERROR, ev) }

// Warn emits ev at WARN level.
func (s *StdSink) Warn(ev Event) { s.Emit(logger.WARN, ev) }
