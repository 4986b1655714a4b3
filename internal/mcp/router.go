// ABOUTME: JSON-RPC 2.0 entry point for MCP requests
// ABOUTME: Validates the envelope, dispatches by method, and contains every failure

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/sourcegraph/jsonrpc2"
)

// OutcomeKind classifies how the transport must answer a request.
type OutcomeKind int

const (
	// OutcomeReply carries a result or a dispatch-level protocol error.
	OutcomeReply OutcomeKind = iota + 1
	// OutcomeNotification has no response body.
	OutcomeNotification
	// OutcomeEnvelopeError is an unparseable or malformed envelope.
	OutcomeEnvelopeError
	// OutcomeInternalError is a failure inside dispatch.
	OutcomeInternalError
)

// String returns the metric/log label for the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReply:
		return "reply"
	case OutcomeNotification:
		return "notification"
	case OutcomeEnvelopeError:
		return "envelope_error"
	case OutcomeInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Outcome is the result of handling one request. Response is nil for
// notifications.
type Outcome struct {
	Kind     OutcomeKind
	Response *Response
}

// supportedProtocolVersions lists the MCP revisions this server speaks, newest first.
var supportedProtocolVersions = []string{
	mcpgo.LATEST_PROTOCOL_VERSION,
	"2025-03-26",
	"2024-11-05",
}

// methodHandler returns a result, a *jsonrpc2.Error for protocol errors, or
// any other error for internal failures.
type methodHandler func(ctx context.Context, params json.RawMessage) (any, error)

// RouterConfig holds the dependencies of a Router.
type RouterConfig struct {
	Registry      *Registry
	Invoker       *Invoker
	Logger        *slog.Logger
	Observer      Observer // optional
	ServerName    string
	ServerVersion string
}

// Router dispatches JSON-RPC requests to MCP method handlers.
type Router struct {
	registry   *Registry
	invoker    *Invoker
	logger     *slog.Logger
	observer   Observer
	serverInfo mcpgo.Implementation
	methods    map[string]methodHandler
}

// NewRouter creates a router with the initialize, ping, tools/list and
// tools/call methods.
func NewRouter(cfg RouterConfig) (*Router, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Invoker == nil {
		return nil, errors.New("invoker is required")
	}
	if cfg.ServerName == "" {
		return nil, errors.New("server name is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Router{
		registry: cfg.Registry,
		invoker:  cfg.Invoker,
		logger:   logger.With("component", "mcp.router"),
		observer: cfg.Observer,
		serverInfo: mcpgo.Implementation{
			Name:    cfg.ServerName,
			Version: cfg.ServerVersion,
		},
	}
	r.methods = map[string]methodHandler{
		string(mcpgo.MethodInitialize): r.handleInitialize,
		string(mcpgo.MethodPing):       r.handlePing,
		string(mcpgo.MethodToolsList):  r.handleToolsList,
		string(mcpgo.MethodToolsCall):  r.handleToolsCall,
	}
	return r, nil
}

// Handle processes one request body. It never panics.
func (r *Router) Handle(ctx context.Context, body []byte) (out Outcome) {
	start := time.Now()
	var (
		id     json.RawMessage
		method string
	)

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic in MCP dispatch",
				"method", method,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			out = internalError(id, fmt.Sprint(rec))
		}
		r.observe(method, out, time.Since(start))
	}()

	req, rpcErr := parseRequest(body)
	if rpcErr != nil {
		if req != nil {
			id = req.ID
		}
		r.logger.Debug("rejected MCP envelope", "code", rpcErr.Code, "message", rpcErr.Message)
		return Outcome{Kind: OutcomeEnvelopeError, Response: errorResponse(id, rpcErr)}
	}
	id, method = req.ID, req.Method

	if strings.HasPrefix(method, notificationPrefix) {
		r.logger.Debug("accepted MCP notification", "method", method)
		return Outcome{Kind: OutcomeNotification}
	}

	handler, ok := r.methods[method]
	if !ok {
		return Outcome{
			Kind:     OutcomeReply,
			Response: errorResponse(id, rpcError(jsonrpc2.CodeMethodNotFound, "Method not found: %s", method)),
		}
	}

	result, err := handler(ctx, req.Params)
	if err != nil {
		var protoErr *jsonrpc2.Error
		if errors.As(err, &protoErr) {
			return Outcome{Kind: OutcomeReply, Response: errorResponse(id, protoErr)}
		}
		r.logger.Error("MCP method failed", "method", method, "error", err)
		return internalError(id, err.Error())
	}
	return Outcome{Kind: OutcomeReply, Response: resultResponse(id, result)}
}

func internalError(id json.RawMessage, msg string) Outcome {
	return Outcome{
		Kind:     OutcomeInternalError,
		Response: errorResponse(id, rpcError(jsonrpc2.CodeInternalError, "Internal error: %s", msg)),
	}
}

func (r *Router) observe(method string, out Outcome, duration time.Duration) {
	label := method
	switch {
	case strings.HasPrefix(method, notificationPrefix):
		label = "notifications"
	case r.methods[method] == nil:
		label = "other"
	}

	outcome := out.Kind.String()
	if out.Kind == OutcomeReply && out.Response != nil && out.Response.Error != nil {
		outcome = "error"
	}

	r.logger.Debug("MCP request handled",
		"method", method,
		"outcome", outcome,
		"duration", duration,
	)
	if r.observer != nil {
		r.observer.ObserveRPC(label, outcome)
	}
}

// parseRequest validates the JSON-RPC envelope. When the body is an object
// but the envelope is invalid, the returned request still carries the id.
func parseRequest(body []byte) (*Request, *jsonrpc2.Error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		return nil, rpcError(jsonrpc2.CodeParseError, "Parse error: Invalid JSON")
	}

	req := &Request{}
	if raw, ok := envelope["id"]; ok && validID(raw) {
		req.ID = raw
	}

	raw, ok := envelope["jsonrpc"]
	if !ok || json.Unmarshal(raw, &req.JSONRPC) != nil || req.JSONRPC != Version {
		return req, rpcError(jsonrpc2.CodeInvalidRequest, "Invalid Request: jsonrpc must be '2.0'")
	}

	if raw, ok := envelope["id"]; ok && !validID(raw) {
		return req, rpcError(jsonrpc2.CodeInvalidRequest, "Invalid Request: id must be a string, a number or null")
	}

	raw, ok = envelope["method"]
	if !ok || json.Unmarshal(raw, &req.Method) != nil || req.Method == "" {
		return req, rpcError(jsonrpc2.CodeInvalidRequest, "Invalid Request: method must be a non-empty string")
	}

	if raw, ok := envelope["params"]; ok && !isNull(raw) {
		req.Params = raw
	}
	return req, nil
}

// validID reports whether raw is a JSON string, number or null.
func validID(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch v.(type) {
	case nil, string, float64:
		return true
	default:
		return false
	}
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// decodeParams unmarshals params into v. Absent params leave v untouched.
func decodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return rpcError(jsonrpc2.CodeInvalidParams, "Invalid params: %v", err)
	}
	return nil
}

type initializeParams struct {
	ProtocolVersion string               `json:"protocolVersion"`
	ClientInfo      mcpgo.Implementation `json:"clientInfo"`
}

type toolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

type serverCapabilities struct {
	Tools toolsCapability `json:"tools"`
}

type initializeResult struct {
	ProtocolVersion string               `json:"protocolVersion"`
	Capabilities    serverCapabilities   `json:"capabilities"`
	ServerInfo      mcpgo.Implementation `json:"serverInfo"`
}

func (r *Router) handleInitialize(_ context.Context, params json.RawMessage) (any, error) {
	var p initializeParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	version := negotiateProtocolVersion(p.ProtocolVersion)
	r.logger.Info("MCP client initialized",
		"client_name", p.ClientInfo.Name,
		"client_version", p.ClientInfo.Version,
		"requested_version", p.ProtocolVersion,
		"protocol_version", version,
	)

	return initializeResult{
		ProtocolVersion: version,
		Capabilities:    serverCapabilities{Tools: toolsCapability{ListChanged: false}},
		ServerInfo:      r.serverInfo,
	}, nil
}

// negotiateProtocolVersion echoes a supported requested version and falls
// back to the latest one otherwise.
func negotiateProtocolVersion(requested string) string {
	if requested != "" && slices.Contains(supportedProtocolVersions, requested) {
		return requested
	}
	return mcpgo.LATEST_PROTOCOL_VERSION
}

func (r *Router) handlePing(context.Context, json.RawMessage) (any, error) {
	return struct{}{}, nil
}

type toolsListResult struct {
	Tools []mcpgo.Tool `json:"tools"`
}

func (r *Router) handleToolsList(context.Context, json.RawMessage) (any, error) {
	return toolsListResult{Tools: r.registry.List()}, nil
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (r *Router) handleToolsCall(ctx context.Context, params json.RawMessage) (any, error) {
	var p callToolParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, rpcError(jsonrpc2.CodeInvalidParams, "Invalid params: tool name is required")
	}

	args := Arguments{}
	if len(p.Arguments) > 0 && !isNull(p.Arguments) {
		if err := json.Unmarshal(p.Arguments, &args); err != nil {
			return nil, rpcError(jsonrpc2.CodeInvalidParams, "Invalid params: arguments must be an object")
		}
	}

	return r.invoker.Invoke(ctx, p.Name, args)
}
