// ABOUTME: Runs tools/call requests against the registry
// ABOUTME: Validates arguments, calls the handler, and renders failures as isError content

package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/2389/santecall-gateway/internal/auth"
)

// auditTimeout bounds a single audit write.
const auditTimeout = 5 * time.Second

// Observer receives protocol and tool call measurements.
type Observer interface {
	ObserveRPC(method, outcome string)
	ObserveToolCall(tool string, isError bool, duration time.Duration)
}

// CallRecord describes one completed tool invocation. Arguments are not kept.
type CallRecord struct {
	ID        string
	Tool      string
	Principal string
	IsError   bool
	StartedAt time.Time
	Duration  time.Duration
}

// CallAuditor persists tool invocations.
type CallAuditor interface {
	RecordCall(ctx context.Context, rec CallRecord) error
}

// InvokerConfig holds the dependencies of an Invoker.
type InvokerConfig struct {
	Registry *Registry
	Logger   *slog.Logger
	Observer Observer    // optional
	Auditor  CallAuditor // optional
}

// Invoker executes tools/call requests.
type Invoker struct {
	registry *Registry
	logger   *slog.Logger
	observer Observer
	auditor  CallAuditor
}

// NewInvoker creates an invoker over the given registry.
func NewInvoker(cfg InvokerConfig) (*Invoker, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{
		registry: cfg.Registry,
		logger:   logger.With("component", "mcp.invoker"),
		observer: cfg.Observer,
		auditor:  cfg.Auditor,
	}, nil
}

// Invoke runs the named tool. An unknown tool is a protocol error returned as
// *jsonrpc2.Error; every other failure is reported in the result with IsError set.
func (inv *Invoker) Invoke(ctx context.Context, name string, args Arguments) (*CallToolResult, error) {
	tool, ok := inv.registry.Find(name)
	if !ok {
		return nil, rpcError(jsonrpc2.CodeInvalidParams, "Outil inconnu: %s", name)
	}
	if args == nil {
		args = Arguments{}
	}

	callID := uuid.New().String()
	start := time.Now()
	logger := inv.logger.With("tool_name", name, "call_id", callID)

	var result *CallToolResult
	if !auth.FromContext(ctx).Allows(auth.ScopeToolsCall) {
		logger.Warn("tool call denied", "principal", auth.PrincipalFromContext(ctx))
		result = TextResult(fmt.Sprintf("Erreur: accès refusé à l'outil %s.", name), true)
	} else if msg := validateArguments(tool, args); msg != "" {
		logger.Debug("tool arguments rejected", "reason", msg)
		result = TextResult(msg, true)
	} else {
		result = inv.run(ctx, logger, tool, args)
	}

	duration := time.Since(start)
	logger.Info("tool call complete",
		"is_error", result.IsError,
		"duration", duration,
	)

	if inv.observer != nil {
		inv.observer.ObserveToolCall(name, result.IsError, duration)
	}
	inv.audit(ctx, logger, CallRecord{
		ID:        callID,
		Tool:      name,
		Principal: auth.PrincipalFromContext(ctx),
		IsError:   result.IsError,
		StartedAt: start,
		Duration:  duration,
	})
	return result, nil
}

// run calls the handler, converting errors and panics into isError content.
func (inv *Invoker) run(ctx context.Context, logger *slog.Logger, tool Tool, args Arguments) (result *CallToolResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool handler panicked", "panic", r, "stack", string(debug.Stack()))
			result = TextResult(fmt.Sprintf("Erreur interne: %v", r), true)
		}
	}()

	text, err := tool.Handler(ctx, args)
	if err != nil {
		logger.Warn("tool call failed", "error", err)
		return TextResult(err.Error(), true)
	}
	return TextResult(text, false)
}

func (inv *Invoker) audit(ctx context.Context, logger *slog.Logger, rec CallRecord) {
	if inv.auditor == nil {
		return
	}
	// The audit row is written even when the client has gone away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := inv.auditor.RecordCall(ctx, rec); err != nil {
		logger.Warn("failed to record tool call", "error", err)
	}
}

// validateArguments checks args against the tool's input schema and returns
// a user-facing message for the first problem found, or "".
func validateArguments(tool Tool, args Arguments) string {
	schema := tool.Definition.InputSchema

	for _, name := range schema.Required {
		if isBlank(args[name]) {
			if msg, ok := tool.ArgumentErrors[name]; ok {
				return msg
			}
			return fmt.Sprintf("Erreur: l'argument %q est requis.", name)
		}
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		prop, known := schema.Properties[name]
		if !known {
			return fmt.Sprintf("Erreur: argument inconnu %q.", name)
		}
		value := args[name]
		if value == nil {
			continue
		}
		if propType(prop) == "string" {
			if _, ok := value.(string); !ok {
				return fmt.Sprintf("Erreur: l'argument %q doit être une chaîne de caractères.", name)
			}
		}
	}
	return ""
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}

func propType(prop any) string {
	m, ok := prop.(map[string]any)
	if !ok {
		return ""
	}
	t, _ := m["type"].(string)
	return t
}
