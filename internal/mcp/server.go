// ABOUTME: HTTP transport for the MCP router with liveness routes
// ABOUTME: Maps router outcomes to HTTP status codes and writes JSON responses

package mcp

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sourcegraph/jsonrpc2"
)

// HTTPStatus returns the status code the transport uses for the outcome.
func (o Outcome) HTTPStatus() int {
	switch o.Kind {
	case OutcomeNotification:
		return http.StatusAccepted
	case OutcomeEnvelopeError:
		return http.StatusBadRequest
	case OutcomeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// HealthStatus is the liveness payload served on GET / and GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// ServerConfig holds configuration for the MCP HTTP server.
type ServerConfig struct {
	Router  *Router
	Logger  *slog.Logger
	Service string // reported by the liveness routes
	Version string

	// PostMiddleware wraps the JSON-RPC routes only, e.g. bearer auth.
	PostMiddleware func(http.Handler) http.Handler
}

// Server exposes the router over HTTP.
type Server struct {
	router         *Router
	logger         *slog.Logger
	health         HealthStatus
	postMiddleware func(http.Handler) http.Handler
}

// NewServer creates a new MCP HTTP server with the given configuration.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Router == nil {
		return nil, errors.New("router is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		router: cfg.Router,
		logger: logger.With("component", "mcp.server"),
		health: HealthStatus{
			Status:  "ok",
			Service: cfg.Service,
			Version: cfg.Version,
		},
		postMiddleware: cfg.PostMiddleware,
	}, nil
}

// RegisterRoutes registers the liveness and JSON-RPC routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("GET /health", s.handleHealth)

	var post http.Handler = http.HandlerFunc(s.handlePost)
	if s.postMiddleware != nil {
		post = s.postMiddleware(post)
	}
	mux.Handle("POST /{$}", post)
	mux.Handle("POST /mcp", post)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.health)
}

// handlePost processes one JSON-RPC message.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.logger.Warn("failed to read request body", "error", err)
		s.writeJSON(w, http.StatusBadRequest,
			errorResponse(nil, rpcError(jsonrpc2.CodeParseError, "Parse error: failed to read request body")))
		return
	}
	if len(body) > MaxRequestBodySize {
		s.writeJSON(w, http.StatusBadRequest,
			errorResponse(nil, rpcError(jsonrpc2.CodeInvalidRequest, "Invalid Request: request body too large")))
		return
	}

	out := s.router.Handle(r.Context(), body)
	if out.Kind == OutcomeNotification {
		w.WriteHeader(out.HTTPStatus())
		return
	}
	s.writeJSON(w, out.HTTPStatus(), out.Response)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode response", "error", err)
		data, status = []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"Internal error: failed to encode response"}}`), http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
