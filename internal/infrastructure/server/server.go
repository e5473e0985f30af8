package server

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bearcattt/scramjet/internal/api/http"
	"github.com/bearcattt/scramjet/internal/api/middleware"
	"github.com/bearcattt/scramjet/internal/api/ws"
	"github.com/bearcattt/scramjet/internal/domain/page"
	"github.com/bearcattt/scramjet/internal/domain/rewrite"
	"github.com/bearcattt/scramjet/internal/domain/sandbox"
	"github.com/bearcattt/scramjet/internal/domain/session"
	"github.com/bearcattt/scramjet/internal/domain/window"
	"github.com/bearcattt/scramjet/internal/infrastructure/config"
	"github.com/bearcattt/scramjet/internal/infrastructure/logging"
	"github.com/bearcattt/scramjet/internal/infrastructure/monitoring"
	"github.com/bearcattt/scramjet/internal/providers/engine"
	"github.com/bearcattt/scramjet/internal/providers/fetch"
	"github.com/bearcattt/scramjet/internal/shared/events"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	browser  *window.Browser
	sandbox  *sandbox.Manager
	sessions *session.Manager
	pool     *engine.Pool
	hub      *events.Hub
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing scramjet server",
		zap.String("port", cfg.Server.Port),
		zap.String("codec", cfg.Rewrite.Codec),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	// Event hub feeds the WebSocket stream
	hub := events.NewHub()

	rewriter, err := buildRewriter(cfg.Rewrite)
	if err != nil {
		return nil, err
	}

	// Host-side browsing contexts
	browser := window.New()
	if cfg.Sandbox.BlockPopups {
		logger.Info("Popup creation disabled")
		browser.WithPopupPolicy(func(rawURL, target string) bool {
			return true
		})
	}

	sandboxMgr := sandbox.NewManager(rewriter).WithMetrics(metrics).WithEvents(hub)
	sessions := session.NewManager().WithMetrics(metrics).WithEvents(hub)
	loader := page.NewLoader(browser, logger.Named("page")).WithMetrics(metrics)
	fetcher := fetch.NewClient(cfg.Fetch).WithMetrics(metrics)

	pool, err := engine.NewPool(engine.Config{
		Timeout:       cfg.Engine.Timeout(),
		EnableConsole: true,
		MaxCallStack:  1024,
	}, cfg.Engine.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime pool: %w", err)
	}
	pool.WithMetrics(metrics)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
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

	// Create handlers
	handlers := http.NewHandlers(browser, sandboxMgr, sessions, loader, fetcher, pool, rewriter, cfg.Rewrite)
	wsHandler := ws.NewHandler(hub, logger.Named("ws")).WithMetrics(metrics)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Session management
	router.POST("/sessions", handlers.CreateSession)
	router.GET("/sessions", handlers.ListSessions)
	router.GET("/sessions/:id", handlers.GetSession)
	router.DELETE("/sessions/:id", handlers.DeleteSession)
	router.POST("/sessions/:id/exec", handlers.ExecuteScript)
	router.GET("/sessions/:id/windows", handlers.WindowTree)
	router.GET("/sessions/:id/page", handlers.PagePreview)

	// Proxied fetch under the rewrite prefix
	router.GET(proxiedRoute(cfg.Rewrite.Prefix), handlers.ProxiedFetch)

	// WebSocket event stream
	router.GET("/stream", wsHandler.HandleConnection)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		browser:  browser,
		sandbox:  sandboxMgr,
		sessions: sessions,
		pool:     pool,
		hub:      hub,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// buildRewriter assembles the URL rewriter with every codec the deployment
// can serve. The sealed codec only joins when a key is configured.
func buildRewriter(cfg config.RewriteConfig) (*rewrite.Proxy, error) {
	codecs := []rewrite.Codec{rewrite.Base64(), rewrite.Percent()}
	if cfg.Codec == "sealed" {
		key, err := cfg.DecodeSealKey()
		if err != nil {
			return nil, fmt.Errorf("rewrite: %w", err)
		}
		sealed, err := rewrite.Sealed(key)
		if err != nil {
			return nil, err
		}
		codecs = append(codecs, sealed)
	}
	return rewrite.NewProxy(codecs...), nil
}

// proxiedRoute turns the rewrite prefix into a gin wildcard route.
func proxiedRoute(prefix string) string {
	if prefix == "" {
		prefix = rewrite.DefaultPrefix
	}
	return strings.TrimSuffix(prefix, "/") + "/*encoded"
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if err := s.pool.Close(); err != nil {
		s.logger.Error("Failed to close runtime pool", zap.Error(err))
	}
	s.hub.Close()

	// Sync logger before exit
	s.logger.Sync()

	return nil
}
