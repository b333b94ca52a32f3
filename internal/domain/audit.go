package domain

import (
	"context"
	"time"
)

// AuditLogger records tool executions. Implementations must not affect the
// outcome of the tool call they describe.
type AuditLogger interface {
	LogAudit(ctx context.Context, entry AuditEntry) error
}

type AuditEntry struct {
	SessionID string
	Action    string // tool_exec | tool_missing
	ToolName  string
	Command   string // raw tool input
	Result    string // ok | not_found | error
	Details   string // observation text, possibly truncated
	Duration  time.Duration
}
