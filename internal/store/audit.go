// ABOUTME: Audit trail of MCP tool calls: who called which tool, when, and whether it failed
// ABOUTME: Arguments such as phone numbers are never stored

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeFormat sorts lexicographically in time order (UTC, fixed width).
const timeFormat = "2006-01-02T15:04:05.000000Z"

// ToolCall is one audited tool invocation.
type ToolCall struct {
	ID          string        // UUID v4, the invoker's call id
	ToolName    string        // registered tool name
	PrincipalID string        // empty for anonymous callers
	IsError     bool          // result carried isError
	Duration    time.Duration // stored with millisecond precision
	CreatedAt   time.Time     // when the call started
}

// ToolCallFilter specifies filtering options for listing tool calls.
type ToolCallFilter struct {
	Since       *time.Time // calls at or after this time
	Until       *time.Time // calls at or before this time
	ToolName    string     // exact match when set
	PrincipalID string     // exact match when set
	ErrorsOnly  bool
	Limit       int // max results (default 100, max 1000)
}

// AppendToolCall records a tool call.
// Generates ID and CreatedAt if not set.
func (s *SQLiteStore) AppendToolCall(ctx context.Context, c *ToolCall) error {
	if c.ToolName == "" {
		return errors.New("tool name is required")
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_calls (call_id, tool_name, principal_id, is_error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.ToolName,
		c.PrincipalID,
		c.IsError,
		c.Duration.Milliseconds(),
		c.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting tool call: %w", err)
	}

	s.logger.Debug("recorded tool call",
		"id", c.ID,
		"tool", c.ToolName,
		"principal", c.PrincipalID,
		"is_error", c.IsError,
	)
	return nil
}

// normalizeLimit applies default (100) and cap (1000) to a list limit.
func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// ListToolCalls returns matching tool calls, newest first.
func (s *SQLiteStore) ListToolCalls(ctx context.Context, f ToolCallFilter) ([]ToolCall, error) {
	var (
		where []string
		args  []any
	)
	if f.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, f.Since.UTC().Format(timeFormat))
	}
	if f.Until != nil {
		where = append(where, "created_at <= ?")
		args = append(args, f.Until.UTC().Format(timeFormat))
	}
	if f.ToolName != "" {
		where = append(where, "tool_name = ?")
		args = append(args, f.ToolName)
	}
	if f.PrincipalID != "" {
		where = append(where, "principal_id = ?")
		args = append(args, f.PrincipalID)
	}
	if f.ErrorsOnly {
		where = append(where, "is_error = 1")
	}

	query := "SELECT call_id, tool_name, principal_id, is_error, duration_ms, created_at FROM tool_calls"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, normalizeLimit(f.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tool calls: %w", err)
	}
	defer rows.Close()

	calls := []ToolCall{}
	for rows.Next() {
		var (
			c          ToolCall
			durationMS int64
			createdAt  string
		)
		if err := rows.Scan(&c.ID, &c.ToolName, &c.PrincipalID, &c.IsError, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning tool call: %w", err)
		}
		c.Duration = time.Duration(durationMS) * time.Millisecond
		if c.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tool calls: %w", err)
	}
	return calls, nil
}

// PruneToolCalls deletes calls created before cutoff and returns how many
// were removed.
func (s *SQLiteStore) PruneToolCalls(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM tool_calls WHERE created_at < ?",
		cutoff.UTC().Format(timeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning tool calls: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned tool calls: %w", err)
	}
	if n > 0 {
		s.logger.Info("pruned tool calls", "count", n, "cutoff", cutoff.UTC())
	}
	return n, nil
}
