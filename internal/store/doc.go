// Package store provides the gateway's audit trail using SQLite.
//
// Each MCP tools/call produces one ToolCall row: the call id, the tool name,
// the authenticated principal (empty for anonymous callers), whether the
// result was an error, and its duration. Tool arguments, and therefore
// patient phone numbers, are never written.
//
// # SQLite Configuration
//
// The store uses modernc.org/sqlite (pure Go, no cgo) with:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//
// Timestamps are stored as fixed-width UTC strings so that text ordering
// matches time ordering.
//
// # Usage
//
//	s, err := store.NewSQLiteStore("/var/lib/santecall-gateway/audit.db", logger)
//	defer s.Close()
//
//	calls, err := s.ListToolCalls(ctx, store.ToolCallFilter{ErrorsOnly: true, Limit: 20})
//	n, err := s.PruneToolCalls(ctx, time.Now().AddDate(0, 0, -30))
package store
