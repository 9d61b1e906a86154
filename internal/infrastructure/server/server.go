package server

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/panekit/panekit/internal/api/http"
	"github.com/panekit/panekit/internal/api/middleware"
	"github.com/panekit/panekit/internal/api/ws"
	"github.com/panekit/panekit/internal/domain/bridge"
	"github.com/panekit/panekit/internal/domain/gate"
	"github.com/panekit/panekit/internal/domain/preset"
	"github.com/panekit/panekit/internal/domain/service"
	"github.com/panekit/panekit/internal/domain/state"
	"github.com/panekit/panekit/internal/domain/view"
	"github.com/panekit/panekit/internal/domain/view/sandbox"
	"github.com/panekit/panekit/internal/domain/workspace"
	"github.com/panekit/panekit/internal/infrastructure/config"
	"github.com/panekit/panekit/internal/infrastructure/logging"
	"github.com/panekit/panekit/internal/infrastructure/monitoring"
	"github.com/panekit/panekit/internal/infrastructure/tracing"
	"github.com/panekit/panekit/internal/providers"
	"github.com/panekit/panekit/internal/shared/paths"
)

// Version is reported on the banner and health endpoints.
const Version = "0.3.0"

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router     *gin.Engine
	views      *view.Manager
	bridge     *bridge.Bridge
	pool       *sandbox.Pool
	services   *service.Registry
	presets    *preset.Registry
	workspaces *workspace.Manager
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer creates a new server instance.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		l, err := logging.New(logging.Config{Level: cfg.Logging.Level})
		if err != nil {
			return nil, fmt.Errorf("configure logging: %w", err)
		}
		logger = l
	}

	logger.Info("Initializing PaneHost",
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Root),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("panehost", logger.Logger)

	layout := paths.NewLayout(cfg.Storage.Root)
	for _, dir := range layout.StandardDirectories() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory %s: %w", dir, err)
		}
	}

	stateStore, err := state.New(layout, logger)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	resourceGate := gate.New(logger).WithMetrics(metrics)

	messageBridge := bridge.New(bridge.Config{
		QueueSize:      cfg.Bridge.QueueSize,
		LatencySamples: cfg.Bridge.LatencySamples,
	}, logger).WithMetrics(metrics)

	sandboxConfig := sandbox.DefaultConfig()
	sandboxConfig.Timeout = cfg.Views.ScriptTimeout

	pool, err := sandbox.NewPool(sandboxConfig, cfg.Views.ScriptPool)
	if err != nil {
		messageBridge.Shutdown()
		return nil, fmt.Errorf("create script pool: %w", err)
	}

	views := view.NewManager(view.Config{
		MaxViews: cfg.Views.Max,
		Sandbox:  sandboxConfig,
	}, messageBridge, resourceGate, stateStore, logger).WithMetrics(metrics)

	logger.Info("Registering service providers")
	services := service.NewRegistry()
	registerProviders(services, pool, stateStore, views, cfg, logger)

	// Every new view gets the service dispatcher attached to its inbound
	// queue, so bridged service calls work over both paths: renderer
	// websocket frames and panehost.postMessage from sandboxed scripts.
	dispatcher := service.NewDispatcher(services, messageBridge, logger)
	views.Events(func(ev view.Event) {
		if ev.Kind != view.EventCreated {
			return
		}
		if err := dispatcher.Attach(ev.View.ID); err != nil {
			logger.Warn("Dispatcher attach failed",
				zap.String("view_id", ev.View.ID),
				zap.Error(err))
		}
	})

	presetRegistry := preset.NewRegistry(layout, logger).WithMetrics(metrics)
	seeder := preset.NewSeeder(presetRegistry, cfg.Presets.Dir, nil)
	if cfg.Presets.Dir != "" {
		if err := seeder.SeedPresets(); err != nil {
			logger.Warn("Preset seeding failed", zap.Error(err))
		}
	}
	if err := seeder.SeedDefaults(); err != nil {
		logger.Warn("Default preset seeding failed", zap.Error(err))
	}

	workspaceManager, err := workspace.NewManager(views, stateStore, layout,
		cfg.Storage.SnapshotLevel, logger)
	if err != nil {
		pool.Close()
		messageBridge.Shutdown()
		return nil, fmt.Errorf("open workspace manager: %w", err)
	}
	workspaceManager.WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.FromOrigins(cfg.Server.CORSOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	if cfg.Auth.Enabled {
		if cfg.Auth.TokenHash == "" {
			pool.Close()
			messageBridge.Shutdown()
			return nil, fmt.Errorf("auth enabled without a token hash")
		}
		logger.Info("Embedder authentication enabled")
		router.Use(middleware.Auth(middleware.AuthConfig{TokenHash: cfg.Auth.TokenHash}))
	}

	handlerMetrics := http.NewHandlerMetrics(metrics)
	handlers := http.NewHandlers(views, messageBridge, resourceGate, services,
		presetRegistry, workspaceManager, handlerMetrics, Version)
	statsAggregator := http.NewStatsAggregator(handlers, metrics)
	wsHandler := ws.NewHandler(views, messageBridge, logger).
		WithMetrics(metrics).
		WithRateLimit(float64(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/stats", statsAggregator.GetStats)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// View lifecycle and content
	router.POST("/views", handlers.CreateView)
	router.GET("/views", handlers.ListViews)
	router.GET("/views/:id", handlers.GetView)
	router.POST("/views/:id/content", handlers.SetContent)
	router.POST("/views/:id/title", handlers.SetTitle)
	router.POST("/views/:id/reveal", handlers.Reveal)
	router.POST("/views/:id/messages", handlers.PostMessage)
	router.GET("/views/:id/inspect", handlers.Inspect)
	router.DELETE("/views/:id", handlers.DisposeView)

	// Gate-checked local resources
	router.GET("/assets/:id/*filepath", handlers.Asset)

	// Presets
	router.GET("/presets", handlers.ListPresets)
	router.POST("/presets/:id/launch", handlers.LaunchPreset)

	// Workspaces
	router.POST("/workspaces/save", handlers.SaveWorkspace)
	router.GET("/workspaces", handlers.ListWorkspaces)
	router.GET("/workspaces/:id", handlers.GetWorkspace)
	router.POST("/workspaces/:id/restore", handlers.RestoreWorkspace)
	router.DELETE("/workspaces/:id", handlers.DeleteWorkspace)

	// WebSocket stream for embedders and renderers
	router.GET("/stream", wsHandler.HandleConnection)

	logger.Info("Server initialized successfully")

	return &Server{
		router:     router,
		views:      views,
		bridge:     messageBridge,
		pool:       pool,
		services:   services,
		presets:    presetRegistry,
		workspaces: workspaceManager,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}, nil
}

// Run starts the HTTP server and blocks until it exits.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close disposes every live view, stops the bridge and script pool, and
// flushes buffered log output.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.views.DisposeAll(context.Background())
	s.bridge.Shutdown()
	if err := s.pool.Close(); err != nil {
		s.logger.Warn("Script pool close failed", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}

func registerProviders(
	registry *service.Registry,
	pool *sandbox.Pool,
	store *state.Store,
	views *view.Manager,
	cfg *config.Config,
	logger *logging.Logger,
) {
	for _, p := range []service.Provider{
		providers.NewFetch(cfg.Fetch),
		providers.NewState(store, views),
		providers.NewSystem(Version),
		providers.NewScript(pool),
	} {
		if err := registry.Register(p); err != nil {
			logger.Warn("Provider registration failed", zap.Error(err))
		}
	}
}
