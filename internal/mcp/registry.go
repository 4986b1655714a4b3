// ABOUTME: Static catalog of MCP tools built once at startup
// ABOUTME: Preserves registration order for tools/list and indexes tools by name

package mcp

import (
	"context"
	"errors"
	"fmt"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// ErrDuplicateTool is returned when two tools share a name.
var ErrDuplicateTool = errors.New("duplicate tool name")

// ToolHandler executes a tool with validated arguments. The returned text is
// sent as the tool result; a non-nil error is rendered as isError content
// using the error's message.
type ToolHandler func(ctx context.Context, args Arguments) (string, error)

// Tool binds a descriptor to its handler.
type Tool struct {
	Definition mcpgo.Tool
	Handler    ToolHandler

	// ArgumentErrors overrides the message returned when a required
	// argument is missing, keyed by argument name.
	ArgumentErrors map[string]string
}

// Registry is an immutable, ordered set of tools.
type Registry struct {
	tools []Tool
	index map[string]int
}

// NewRegistry creates a registry holding tools in the given order.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools: make([]Tool, 0, len(tools)),
		index: make(map[string]int, len(tools)),
	}
	for _, t := range tools {
		name := t.Definition.Name
		if name == "" {
			return nil, errors.New("tool name is required")
		}
		if t.Handler == nil {
			return nil, fmt.Errorf("tool %q: handler is required", name)
		}
		if _, exists := r.index[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, name)
		}
		r.index[name] = len(r.tools)
		r.tools = append(r.tools, t)
	}
	return r, nil
}

// List returns the tool descriptors in registration order.
func (r *Registry) List() []mcpgo.Tool {
	defs := make([]mcpgo.Tool, len(r.tools))
	for i, t := range r.tools {
		defs[i] = t.Definition
	}
	return defs
}

// Find returns the tool registered under name.
func (r *Registry) Find(name string) (Tool, bool) {
	i, ok := r.index[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}
