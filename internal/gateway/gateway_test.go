// ABOUTME: End-to-end tests for the gateway against a fake SanteCall backend
// ABOUTME: Exercises MCP over HTTP, auth, audit, metrics, CORS and graceful shutdown

package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/santecall-gateway/internal/auth"
	"github.com/2389/santecall-gateway/internal/config"
	"github.com/2389/santecall-gateway/internal/patient"
	"github.com/2389/santecall-gateway/internal/store"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

// testLogger creates a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBackend records lookup queries and replies with a fixed status and body.
type fakeBackend struct {
	mu      sync.Mutex
	queries []url.Values
	status  int
	body    string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.queries = append(b.queries, r.URL.Query())
	status, body := b.status, b.body
	b.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (b *fakeBackend) received() []url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]url.Values(nil), b.queries...)
}

func startBackend(t *testing.T, b *fakeBackend) string {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return srv.URL + "/public/lookup"
}

func testConfig(apiURL string) *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.SanteCall.APIURL = apiURL
	cfg.SanteCall.Token = "backend-token"
	cfg.SanteCall.DefaultVolubileID = "cabinet-42"
	cfg.SanteCall.Timeout = 2 * time.Second
	cfg.Audit.Path = ":memory:"
	return cfg
}

func newTestGateway(t *testing.T, cfg *config.Config) *Gateway {
	t.Helper()
	gw, err := New(cfg, "test", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Shutdown(context.Background()) })
	return gw
}

type rpcReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func post(t *testing.T, h http.Handler, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeReply(t *testing.T, rec *httptest.ResponseRecorder) rpcReply {
	t.Helper()
	var reply rpcReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply), "body: %s", rec.Body.String())
	return reply
}

func callSearch(t *testing.T, h http.Handler, args string, token string) toolResult {
	t.Helper()
	body := `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"search_patient","arguments":` + args + `}}`
	rec := post(t, h, "/mcp", body, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	reply := decodeReply(t, rec)
	require.Nil(t, reply.Error)
	assert.JSONEq(t, "7", string(reply.ID))

	var result toolResult
	require.NoError(t, json.Unmarshal(reply.Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	return result
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil, "test", testLogger())
	require.Error(t, err)
}

func TestNew_RejectsInvalidBackendURL(t *testing.T) {
	cfg := testConfig("ftp://backend.test")
	_, err := New(cfg, "test", testLogger())
	require.Error(t, err)
}

func TestGateway_Health(t *testing.T) {
	gw := newTestGateway(t, testConfig(startBackend(t, &fakeBackend{})))

	for _, path := range []string{"/", "/health"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, `{"status":"ok","service":"MCP Proxy SanteCall","version":"test"}`, rec.Body.String())
		})
	}
}

func TestGateway_InitializeAndList(t *testing.T) {
	gw := newTestGateway(t, testConfig(startBackend(t, &fakeBackend{})))

	rec := post(t, gw.Handler(), "/", `{"jsonrpc":"2.0","id":"init","method":"initialize","params":{"protocolVersion":"2024-11-05"}}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	reply := decodeReply(t, rec)
	require.Nil(t, reply.Error)

	var init struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(reply.Result, &init))
	assert.Equal(t, "2024-11-05", init.ProtocolVersion)
	assert.Equal(t, ServerName, init.ServerInfo.Name)
	assert.Equal(t, "test", init.ServerInfo.Version)

	rec = post(t, gw.Handler(), "/mcp", `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	reply = decodeReply(t, rec)

	var list struct {
		Tools []struct {
			Name        string `json:"name"`
			InputSchema struct {
				Required []string `json:"required"`
			} `json:"inputSchema"`
			Annotations map[string]any `json:"annotations"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(reply.Result, &list))
	require.Len(t, list.Tools, 1)
	assert.Equal(t, patient.ToolName, list.Tools[0].Name)
	assert.Equal(t, []string{patient.ArgPhone}, list.Tools[0].InputSchema.Required)
	assert.Equal(t, map[string]any{
		"readOnlyHint":    true,
		"destructiveHint": false,
		"idempotentHint":  true,
		"openWorldHint":   true,
	}, list.Tools[0].Annotations)
}

func TestGateway_SearchPatient(t *testing.T) {
	backend := &fakeBackend{body: `{
		"civilite": "Mme",
		"first_name": "Marie",
		"last_name": "Curie",
		"cabinet_nom": "Cabinet du Panthéon",
		"prise_rdv_enabled": true,
		"scheduled_appointments": [{"date": "2025-03-04 10:30", "practitioner_id": 12, "acte_id": "consultation"}]
	}`}
	gw := newTestGateway(t, testConfig(startBackend(t, backend)))

	result := callSearch(t, gw.Handler(), `{"phone":"+33678951483"}`, "")
	assert.False(t, result.IsError)
	text := result.Content[0].Text
	assert.Contains(t, text, "=== PATIENT ===")
	assert.Contains(t, text, "Nom: Curie")
	assert.Contains(t, text, "=== RENDEZ-VOUS PROGRAMMÉS (1) ===")

	queries := backend.received()
	require.Len(t, queries, 1)
	assert.Equal(t, "+33678951483", queries[0].Get("phone"))
	assert.Equal(t, "backend-token", queries[0].Get("token"))
	assert.Equal(t, "cabinet-42", queries[0].Get("volubile_id"))

	t.Run("explicit tenant wins", func(t *testing.T) {
		callSearch(t, gw.Handler(), `{"phone":"+33678951483","volubile_id":"other"}`, "")
		queries := backend.received()
		assert.Equal(t, "other", queries[len(queries)-1].Get("volubile_id"))
	})

	t.Run("audited without arguments", func(t *testing.T) {
		calls, err := gw.store.ListToolCalls(context.Background(), store.ToolCallFilter{})
		require.NoError(t, err)
		require.Len(t, calls, 2)
		for _, c := range calls {
			assert.Equal(t, patient.ToolName, c.ToolName)
			assert.False(t, c.IsError)
			assert.Empty(t, c.PrincipalID)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, "santecall_gateway_tool_calls_total")
		assert.Contains(t, body, `tool="search_patient"`)
		assert.Contains(t, body, `santecall_gateway_backend_lookup_seconds_count{result="found"} 2`)
	})
}

func TestGateway_SearchPatientNotFound(t *testing.T) {
	gw := newTestGateway(t, testConfig(startBackend(t, &fakeBackend{body: "{}"})))

	result := callSearch(t, gw.Handler(), `{"phone":"+33600000000"}`, "")
	assert.False(t, result.IsError)
	assert.Equal(t, patient.NotFoundText, result.Content[0].Text)
}

func TestGateway_SearchPatientMissingPhone(t *testing.T) {
	backend := &fakeBackend{}
	gw := newTestGateway(t, testConfig(startBackend(t, backend)))

	for _, args := range []string{`{}`, `{"phone":""}`, `{"phone":"   "}`} {
		result := callSearch(t, gw.Handler(), args, "")
		assert.True(t, result.IsError)
		assert.Equal(t, patient.MissingPhoneText, result.Content[0].Text)
	}
	assert.Empty(t, backend.received())
}

func TestGateway_BackendFailures(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		gw := newTestGateway(t, testConfig(startBackend(t, &fakeBackend{status: http.StatusServiceUnavailable})))

		result := callSearch(t, gw.Handler(), `{"phone":"+33678951483"}`, "")
		assert.True(t, result.IsError)
		assert.Equal(t, "Erreur lors de la recherche: Erreur API SanteCall: réponse HTTP 503", result.Content[0].Text)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		apiURL := srv.URL + "/public/lookup"
		srv.Close()

		gw := newTestGateway(t, testConfig(apiURL))
		result := callSearch(t, gw.Handler(), `{"phone":"+33678951483"}`, "")
		assert.True(t, result.IsError)
		assert.Equal(t, "Erreur lors de la recherche: Erreur API SanteCall: service injoignable", result.Content[0].Text)
		assert.NotContains(t, result.Content[0].Text, "backend-token")

		calls, err := gw.store.ListToolCalls(context.Background(), store.ToolCallFilter{ErrorsOnly: true})
		require.NoError(t, err)
		assert.Len(t, calls, 1)
	})
}

func TestGateway_ProtocolStatuses(t *testing.T) {
	gw := newTestGateway(t, testConfig(startBackend(t, &fakeBackend{})))

	t.Run("notification", func(t *testing.T) {
		rec := post(t, gw.Handler(), "/mcp", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, "")
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("parse error", func(t *testing.T) {
		rec := post(t, gw.Handler(), "/mcp", `{`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		reply := decodeReply(t, rec)
		require.NotNil(t, reply.Error)
		assert.Equal(t, -32700, reply.Error.Code)
		assert.JSONEq(t, "null", string(reply.ID))
	})

	t.Run("unknown method", func(t *testing.T) {
		rec := post(t, gw.Handler(), "/mcp", `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		reply := decodeReply(t, rec)
		require.NotNil(t, reply.Error)
		assert.Equal(t, -32601, reply.Error.Code)
	})

	t.Run("unknown tool", func(t *testing.T) {
		rec := post(t, gw.Handler(), "/mcp", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"delete_patient"}}`, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		reply := decodeReply(t, rec)
		require.NotNil(t, reply.Error)
		assert.Equal(t, -32602, reply.Error.Code)
		assert.Equal(t, "Outil inconnu: delete_patient", reply.Error.Message)
	})
}

func TestGateway_BearerAuth(t *testing.T) {
	cfg := testConfig(startBackend(t, &fakeBackend{body: `{"last_name":"Curie"}`}))
	cfg.Auth.JWTSecret = testSecret
	gw := newTestGateway(t, cfg)

	verifier, err := auth.NewJWTVerifier([]byte(testSecret))
	require.NoError(t, err)
	token, err := verifier.Generate("assistant-1", time.Hour)
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		rec := post(t, gw.Handler(), "/mcp", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("bad token", func(t *testing.T) {
		rec := post(t, gw.Handler(), "/", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("health stays open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		result := callSearch(t, gw.Handler(), `{"phone":"+33678951483"}`, token)
		assert.False(t, result.IsError)

		calls, err := gw.store.ListToolCalls(context.Background(), store.ToolCallFilter{PrincipalID: "assistant-1"})
		require.NoError(t, err)
		assert.Len(t, calls, 1)
	})

	t.Run("scoped token without tools:call", func(t *testing.T) {
		scoped, err := verifier.Generate("assistant-2", time.Hour, "patients:read")
		require.NoError(t, err)

		result := callSearch(t, gw.Handler(), `{"phone":"+33678951483"}`, scoped)
		assert.True(t, result.IsError)
		assert.Equal(t, "Erreur: accès refusé à l'outil search_patient.", result.Content[0].Text)

		calls, err := gw.store.ListToolCalls(context.Background(), store.ToolCallFilter{PrincipalID: "assistant-2"})
		require.NoError(t, err)
		require.Len(t, calls, 1)
		assert.True(t, calls[0].IsError)
	})
}

func TestGateway_CORSPreflight(t *testing.T) {
	cfg := testConfig(startBackend(t, &fakeBackend{}))
	cfg.CORS.AllowedOrigins = []string{"https://app.example.com"}
	gw := newTestGateway(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		gw.Handler().ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestGateway_OptionalComponentsDisabled(t *testing.T) {
	cfg := testConfig(startBackend(t, &fakeBackend{body: `{"last_name":"Curie"}`}))
	cfg.Metrics.Enabled = false
	cfg.Audit.Path = ""
	cfg.CORS.AllowedOrigins = nil
	gw := newTestGateway(t, cfg)

	assert.Nil(t, gw.store)
	assert.Nil(t, gw.metrics)

	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	result := callSearch(t, gw.Handler(), `{"phone":"+33678951483"}`, "")
	assert.False(t, result.IsError)
}

func TestGateway_ServeAndShutdown(t *testing.T) {
	gw := newTestGateway(t, testConfig(startBackend(t, &fakeBackend{})))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Serve(ctx, ln)
	}()

	healthURL := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(healthURL)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	// Listener is closed once shut down
	_, err = http.Get(healthURL)
	assert.Error(t, err)

	// Second shutdown is a no-op
	assert.NoError(t, gw.Shutdown(context.Background()))
}
