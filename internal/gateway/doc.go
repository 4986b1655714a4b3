// Package gateway orchestrates the santecall-gateway server components.
//
// # Overview
//
// New assembles, from a config.Config:
//
//   - a santecall.Client for the lookup API
//   - the patient search tool, registered as the only MCP tool
//   - the MCP invoker, router and HTTP server
//   - optional bearer authentication on the JSON-RPC routes (auth.jwt_secret)
//   - an optional SQLite audit trail of tool calls (audit.path)
//   - an optional Prometheus endpoint (metrics.enabled)
//   - CORS for browser-hosted MCP clients (cors.allowed_origins)
//
// # HTTP Routes
//
//	GET  /            liveness
//	GET  /health      liveness
//	POST /            JSON-RPC 2.0 (MCP)
//	POST /mcp         JSON-RPC 2.0 (MCP)
//	GET  /metrics     Prometheus, path configurable
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, version, logger)
//	if err != nil {
//	    return err
//	}
//	return gw.Run(ctx) // blocks until ctx is canceled
//
// On cancellation the HTTP server drains in-flight requests for up to
// server.shutdown_timeout and the audit store is closed.
package gateway
