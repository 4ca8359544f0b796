package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	vaulthttp "github.com/nexza/filevault/internal/api/http"
	"github.com/nexza/filevault/internal/api/middleware"
	"github.com/nexza/filevault/internal/config"
	"github.com/nexza/filevault/internal/infrastructure/monitoring"
	"github.com/nexza/filevault/internal/logging"
	"github.com/nexza/filevault/internal/vault"
)

// Version is reported by the liveness endpoint.
const Version = "1.0.0"

const shutdownTimeout = 15 * time.Second

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	store   *vault.FileStore
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// New creates a server instance: file store, metrics, middleware chain
// and all routes.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing file vault server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("base_dir", cfg.Store.BaseDir),
	)

	metrics := monitoring.NewMetrics()

	store, err := vault.New(vault.Options{
		BaseDir:      cfg.Store.BaseDir,
		MaxFileSize:  cfg.Store.MaxFileSize,
		CacheSize:    cfg.Store.CacheSize,
		CacheTTL:     cfg.Store.CacheTTL,
		PersistEvery: cfg.Store.PersistEvery,
		Versioning:   cfg.Store.Versioning,
		Logger:       logger,
	}, metrics)
	if err != nil {
		return nil, fmt.Errorf("initialize file store: %w", err)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(monitoring.Middleware(metrics))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	router.Use(bodyLimit(cfg.Server.MaxBodyBytes))

	handlers := vaulthttp.NewHandlers(store, metrics, Version)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Root)
	router.GET("/health/detailed", handlers.Health)

	// File operations
	router.GET("/files/*path", handlers.ReadFile)
	router.POST("/files/*path", handlers.WriteFile)
	router.DELETE("/files/*path", handlers.DeleteFile)

	// Directory operations
	router.GET("/list/*path", handlers.ListDirectory)
	router.POST("/dirs/*path", handlers.CreateDirectory)

	// Metadata and search
	router.GET("/info/*path", handlers.FileInfo)
	router.GET("/search", handlers.Search)

	// Transfers and maintenance
	router.POST("/move", handlers.Move)
	router.POST("/copy", handlers.Copy)
	router.POST("/export", handlers.Export)
	router.POST("/cleanup", handlers.Cleanup)

	// Metrics endpoints
	router.GET("/metrics", handlers.Metrics)
	router.GET("/metrics/prometheus", gin.WrapH(
		promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}),
	))

	logger.Info("Server initialized")

	return &Server{
		router:  router,
		store:   store,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Run starts the HTTP server and blocks until it stops serving.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close drains in-flight requests, then closes the store so pending
// checksum updates reach disk.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP shutdown failed", zap.Error(err))
		}
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close file store", zap.Error(err))
		return fmt.Errorf("close file store: %w", err)
	}
	s.logger.Info("File store closed")

	s.logger.Sync()
	return nil
}

// Store exposes the underlying file store, mainly for tests.
func (s *Server) Store() *vault.FileStore {
	return s.store
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// bodyLimit caps request body size so oversized uploads fail early with
// 413 instead of exhausting memory.
func bodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"error":   "request body too large",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
