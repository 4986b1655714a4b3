// ABOUTME: Shared fixtures for MCP package tests
// ABOUTME: Provides a counting echo tool, recording observer/auditor and router setup

package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoTool returns its "message" argument and counts calls.
type echoTool struct {
	mu    sync.Mutex
	calls int
	err   error
	panic any
}

func (e *echoTool) handle(_ context.Context, args Arguments) (string, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.panic != nil {
		panic(e.panic)
	}
	if e.err != nil {
		return "", e.err
	}
	return "echo: " + args.String("message"), nil
}

func (e *echoTool) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *echoTool) tool() Tool {
	return Tool{
		Definition: mcpgo.NewTool("echo",
			mcpgo.WithDescription("Echoes a message"),
			mcpgo.WithString("message", mcpgo.Required(), mcpgo.Description("text to echo")),
			mcpgo.WithString("prefix"),
			mcpgo.WithNumber("repeat"),
		),
		Handler:        e.handle,
		ArgumentErrors: map[string]string{"message": "Erreur: message requis."},
	}
}

func namedTool(name string) Tool {
	return Tool{
		Definition: mcpgo.NewTool(name, mcpgo.WithDescription(name)),
		Handler: func(context.Context, Arguments) (string, error) {
			return name, nil
		},
	}
}

type rpcObservation struct {
	method  string
	outcome string
}

type toolObservation struct {
	tool    string
	isError bool
}

type recordingObserver struct {
	mu    sync.Mutex
	rpcs  []rpcObservation
	tools []toolObservation
}

func (o *recordingObserver) ObserveRPC(method, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rpcs = append(o.rpcs, rpcObservation{method, outcome})
}

func (o *recordingObserver) ObserveToolCall(tool string, isError bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tools = append(o.tools, toolObservation{tool, isError})
}

type recordingAuditor struct {
	mu      sync.Mutex
	records []CallRecord
	fail    bool
}

func (a *recordingAuditor) RecordCall(_ context.Context, rec CallRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return errors.New("disk full")
	}
	a.records = append(a.records, rec)
	return nil
}

type fixture struct {
	echo     *echoTool
	observer *recordingObserver
	auditor  *recordingAuditor
	registry *Registry
	invoker  *Invoker
	router   *Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		echo:     &echoTool{},
		observer: &recordingObserver{},
		auditor:  &recordingAuditor{},
	}

	var err error
	f.registry, err = NewRegistry(f.echo.tool(), namedTool("second"))
	require.NoError(t, err)

	f.invoker, err = NewInvoker(InvokerConfig{
		Registry: f.registry,
		Logger:   testLogger(),
		Observer: f.observer,
		Auditor:  f.auditor,
	})
	require.NoError(t, err)

	f.router, err = NewRouter(RouterConfig{
		Registry:      f.registry,
		Invoker:       f.invoker,
		Logger:        testLogger(),
		Observer:      f.observer,
		ServerName:    "test-gateway",
		ServerVersion: "0.0.1",
	})
	require.NoError(t, err)
	return f
}
