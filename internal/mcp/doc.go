// Package mcp implements the Model Context Protocol endpoint of the gateway.
//
// # Overview
//
// MCP is a tool-invocation convention layered on JSON-RPC 2.0. This package
// accepts one JSON-RPC message per HTTP POST and supports the subset of the
// lifecycle needed to list and call tools:
//
//   - initialize - protocol version negotiation and server identity
//   - ping - liveness
//   - tools/list - the registered tools, in registration order
//   - tools/call - argument validation and tool execution
//   - notifications/* - accepted without a response body
//
// # Error Handling
//
// Protocol errors travel in the JSON-RPC error member and use the standard
// codes from github.com/sourcegraph/jsonrpc2:
//
//	-32700  body is not a JSON object
//	-32600  jsonrpc is not "2.0", or method/id is malformed
//	-32601  unknown method
//	-32602  unknown tool or malformed tools/call params
//	-32603  failure or panic inside dispatch
//
// Tool errors (a missing argument, a failed backend call) are successful
// JSON-RPC responses whose result has isError set to true.
//
// # HTTP Status Codes
//
// Only envelope errors (-32700, -32600) are answered with 400 and internal
// errors with 500. Notifications get 202 with an empty body. Everything else,
// including -32601 and -32602, is 200.
//
// # Architecture
//
//   - Registry: immutable, ordered catalog of Tool values
//   - Invoker: validates arguments and runs a tool handler
//   - Router: envelope validation and method dispatch
//   - Server: HTTP routes (GET /, GET /health, POST /, POST /mcp)
//
// # Usage
//
//	registry, _ := mcp.NewRegistry(searchTool.Tool())
//	invoker, _ := mcp.NewInvoker(mcp.InvokerConfig{Registry: registry})
//	router, _ := mcp.NewRouter(mcp.RouterConfig{
//	    Registry:   registry,
//	    Invoker:    invoker,
//	    ServerName: "santecall-gateway",
//	})
//	server, _ := mcp.NewServer(mcp.ServerConfig{Router: router})
//	server.RegisterRoutes(mux)
package mcp
