// ABOUTME: Gateway orchestrator that wires the MCP endpoint to the SanteCall lookup API
// ABOUTME: Owns the HTTP server, optional audit store and metrics, and their lifecycle

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/2389/santecall-gateway/internal/auth"
	"github.com/2389/santecall-gateway/internal/config"
	"github.com/2389/santecall-gateway/internal/mcp"
	"github.com/2389/santecall-gateway/internal/metrics"
	"github.com/2389/santecall-gateway/internal/patient"
	"github.com/2389/santecall-gateway/internal/santecall"
	"github.com/2389/santecall-gateway/internal/store"
)

// Identity reported to clients.
const (
	ServiceName = "MCP Proxy SanteCall" // liveness payload
	ServerName  = "santecall-gateway"   // MCP serverInfo
)

// readHeaderTimeout bounds slow clients sending request headers.
const readHeaderTimeout = 10 * time.Second

// Gateway serves the search_patient MCP tool over HTTP.
type Gateway struct {
	config  *config.Config
	logger  *slog.Logger
	version string

	// store is nil when auditing is disabled
	store *store.SQLiteStore

	// metrics is nil when the metrics endpoint is disabled
	metrics *metrics.Recorder

	handler    http.Handler
	httpServer *http.Server

	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds a gateway from cfg. Nothing listens until Run or Serve is called.
func New(cfg *config.Config, version string, logger *slog.Logger) (*Gateway, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gateway{
		config:  cfg,
		logger:  logger,
		version: version,
	}
	if cfg.Metrics.Enabled {
		g.metrics = metrics.NewRecorder()
	}

	if cfg.SanteCall.Token == "" {
		logger.Warn("santecall token is empty, lookups will be sent without credentials")
	}

	lookup, err := santecall.NewClient(santecall.Config{
		BaseURL: cfg.SanteCall.APIURL,
		Token:   cfg.SanteCall.Token,
		Timeout: cfg.SanteCall.Timeout,
		Logger:  logger.With("component", "santecall"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating santecall client: %w", err)
	}

	searchCfg := patient.SearchConfig{
		Looker:            lookup,
		DefaultVolubileID: cfg.SanteCall.DefaultVolubileID,
		Logger:            logger,
	}
	if g.metrics != nil {
		searchCfg.Observer = g.metrics
	}
	search, err := patient.NewSearchTool(searchCfg)
	if err != nil {
		return nil, fmt.Errorf("creating search tool: %w", err)
	}

	registry, err := mcp.NewRegistry(search.Tool())
	if err != nil {
		return nil, fmt.Errorf("creating tool registry: %w", err)
	}

	if cfg.Audit.Path != "" {
		g.store, err = store.NewSQLiteStore(cfg.Audit.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("opening audit store: %w", err)
		}
	}

	handler, err := g.buildHandler(registry)
	if err != nil {
		g.closeStore()
		return nil, err
	}
	g.handler = handler

	g.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	return g, nil
}

// buildHandler assembles the invoker, router and routes around registry.
func (g *Gateway) buildHandler(registry *mcp.Registry) (http.Handler, error) {
	cfg := g.config

	invCfg := mcp.InvokerConfig{
		Registry: registry,
		Logger:   g.logger,
	}
	routerCfg := mcp.RouterConfig{
		Registry:      registry,
		Logger:        g.logger,
		ServerName:    ServerName,
		ServerVersion: g.version,
	}
	if g.metrics != nil {
		invCfg.Observer = g.metrics
		routerCfg.Observer = g.metrics
	}
	if g.store != nil {
		invCfg.Auditor = storeAuditor{store: g.store}
	}

	invoker, err := mcp.NewInvoker(invCfg)
	if err != nil {
		return nil, fmt.Errorf("creating invoker: %w", err)
	}
	routerCfg.Invoker = invoker

	router, err := mcp.NewRouter(routerCfg)
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	serverCfg := mcp.ServerConfig{
		Router:  router,
		Logger:  g.logger,
		Service: ServiceName,
		Version: g.version,
	}
	if cfg.Auth.JWTSecret != "" {
		verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			return nil, fmt.Errorf("creating JWT verifier: %w", err)
		}
		serverCfg.PostMiddleware = auth.BearerMiddleware(verifier, g.logger)
	}

	mcpServer, err := mcp.NewServer(serverCfg)
	if err != nil {
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	mux := http.NewServeMux()
	mcpServer.RegisterRoutes(mux)
	if g.metrics != nil {
		mux.Handle("GET "+cfg.Metrics.Path, g.metrics.Handler())
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		return mux, nil
	}
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Mcp-Protocol-Version", "Mcp-Session-Id"},
		MaxAge:         600,
	})
	return c.Handler(mux), nil
}

// Handler returns the gateway's HTTP handler, including CORS.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Run listens on the configured address and serves until ctx is canceled.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return g.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled or the server fails,
// then shuts down gracefully. Returns nil on a clean shutdown.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer cancel()
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		g.logger.Info("initiating shutdown")
		// The parent context is already done; shutdown gets its own deadline.
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), g.config.Server.ShutdownTimeout)
		defer cancelShutdown()
		return g.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Shutdown stops the HTTP server and closes the audit store. Safe to call more than once.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.shutdownOnce.Do(func() {
		g.logger.Info("shutting down gateway")

		var result *multierror.Error
		if err := g.httpServer.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("HTTP shutdown: %w", err))
		}
		if err := g.closeStore(); err != nil {
			result = multierror.Append(result, fmt.Errorf("store close: %w", err))
		}
		g.shutdownErr = result.ErrorOrNil()
	})
	return g.shutdownErr
}

func (g *Gateway) closeStore() error {
	if g.store == nil {
		return nil
	}
	return g.store.Close()
}
