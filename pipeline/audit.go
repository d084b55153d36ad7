// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package pipeline

import (
	"context"
	"unicode/utf8"

	"github.com/agentflow-gateway/gateway/internal/logging"
)

// AuditPriority is the audit processor's fixed chain position, per §4.F.
const AuditPriority = 10

const (
	auditInputPreviewMax  = 100
	auditOutputPreviewMax = 200
)

// AuditProcessor emits a request_started event before the provider call and
// model_call + response_completed events after, each carrying a code-point
// safe truncated preview of the text involved.
type AuditProcessor struct {
	BaseProcessor
	sink *logging.StdSink
}

// NewAuditProcessor builds the audit processor at its fixed priority.
func NewAuditProcessor(sink *logging.StdSink) *AuditProcessor {
	if sink == nil {
		sink = logging.NewStdSink("pipeline.audit")
	}
	return &AuditProcessor{
		BaseProcessor: BaseProcessor{ProcName: "audit", ProcPriority: AuditPriority},
		sink:          sink,
	}
}

func (a *AuditProcessor) Pre(_ context.Context, pc *ProcessingContext) error {
	a.sink.Info(logging.Event{
		Component: "audit",
		RequestID: pc.RequestID,
		Message:   "request_started",
		Fields: map[string]interface{}{
			"adapter": pc.AdapterName,
			"user_id": pc.UserID,
			"preview": truncatePreview(pc.ProcessedInput, auditInputPreviewMax),
		},
	})
	return nil
}

func (a *AuditProcessor) Post(_ context.Context, pc *ProcessingContext) error {
	a.sink.Info(logging.Event{
		Component: "audit",
		RequestID: pc.RequestID,
		Message:   "model_call",
		Fields: map[string]interface{}{
			"adapter": pc.AdapterName,
		},
	})
	a.sink.Info(logging.Event{
		Component: "audit",
		RequestID: pc.RequestID,
		Message:   "response_completed",
		Fields: map[string]interface{}{
			"adapter":     pc.AdapterName,
			"preview":     truncatePreview(pc.ProcessedOutput, auditOutputPreviewMax),
			"duration_ms": float64(0),
		},
	})
	return nil
}

// truncatePreview returns s unchanged if it has at most max code points,
// otherwise the first max code points with an ellipsis appended. Byte slicing
// is avoided so multi-byte runes are never split.
func truncatePreview(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "…"
}
