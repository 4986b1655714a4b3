// ABOUTME: Adapter that persists MCP tool call records to the SQLite audit store
// ABOUTME: Keeps the mcp package free of storage dependencies

package gateway

import (
	"context"

	"github.com/2389/santecall-gateway/internal/mcp"
	"github.com/2389/santecall-gateway/internal/store"
)

// storeAuditor implements mcp.CallAuditor on top of the audit store.
type storeAuditor struct {
	store *store.SQLiteStore
}

func (a storeAuditor) RecordCall(ctx context.Context, rec mcp.CallRecord) error {
	return a.store.AppendToolCall(ctx, &store.ToolCall{
		ID:          rec.ID,
		ToolName:    rec.Tool,
		PrincipalID: rec.Principal,
		IsError:     rec.IsError,
		Duration:    rec.Duration,
		CreatedAt:   rec.StartedAt,
	})
}
