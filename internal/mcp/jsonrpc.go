// ABOUTME: JSON-RPC 2.0 envelope and MCP tool result types used by the router
// ABOUTME: Protocol errors are *jsonrpc2.Error values carrying the standard codes

package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sourcegraph/jsonrpc2"
)

// Version is the only accepted value of the jsonrpc member.
const Version = "2.0"

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// notificationPrefix marks receive-only methods that never get a response.
const notificationPrefix = "notifications/"

// Request is a validated JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response. Exactly one of Result and Error is set.
// A nil ID is serialized as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *jsonrpc2.Error `json:"error,omitempty"`
}

func resultResponse(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

func errorResponse(id json.RawMessage, err *jsonrpc2.Error) *Response {
	return &Response{JSONRPC: Version, ID: id, Error: err}
}

// rpcError builds a protocol error with a formatted message.
func rpcError(code int64, format string, args ...any) *jsonrpc2.Error {
	return &jsonrpc2.Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Content is one item of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult is the result of tools/call. IsError is always serialized.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError"`
}

// TextResult wraps text as a single text content item.
func TextResult(text string, isError bool) *CallToolResult {
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: text}},
		IsError: isError,
	}
}

// Text returns the concatenated text of all content items.
func (r *CallToolResult) Text() string {
	var b strings.Builder
	for _, c := range r.Content {
		b.WriteString(c.Text)
	}
	return b.String()
}

// Arguments are the decoded arguments of a tools/call request.
type Arguments map[string]any

// String returns the named argument when it is a string, or "".
func (a Arguments) String(name string) string {
	s, _ := a[name].(string)
	return s
}
