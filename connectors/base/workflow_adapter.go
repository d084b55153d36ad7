// Copyright 2025 Gateway Authors
// SPDX-License-Identifier: BUSL-1.1

package base

import "context"

// WorkflowAdapter narrows a Connector to the plain map-in/map-out Query/
// Execute shape the workflow package's ConnectorCall step (§6.1) dispatches
// through, so any registered Connector implementation can back a workflow
// step without the workflow package importing this one's Query/Command
// request types directly.
type WorkflowAdapter struct {
	Conn Connector
}

// Query runs statement/parameters through the wrapped Connector's Query.
func (a WorkflowAdapter) Query(ctx context.Context, statement string, parameters map[string]any) (map[string]any, error) {
	result, err := a.Conn.Query(ctx, &Query{Statement: statement, Parameters: parameters})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"rows":      result.Rows,
		"row_count": result.RowCount,
		"duration":  result.Duration,
		"cached":    result.Cached,
		"connector": result.Connector,
	}, nil
}

// Execute runs action/statement/parameters through the wrapped Connector's
// Execute.
func (a WorkflowAdapter) Execute(ctx context.Context, action, statement string, parameters map[string]any) (map[string]any, error) {
	result, err := a.Conn.Execute(ctx, &Command{Action: action, Statement: statement, Parameters: parameters})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success":       result.Success,
		"rows_affected": result.RowsAffected,
		"duration":      result.Duration,
		"message":       result.Message,
		"connector":     result.Connector,
	}, nil
}
