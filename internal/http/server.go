// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	identityHTTP "github.com/allisson/envie/internal/identity/http"
	projectHTTP "github.com/allisson/envie/internal/project/http"
	rotationHTTP "github.com/allisson/envie/internal/rotation/http"
)

// Server represents the HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	db     *sql.DB
	logger *slog.Logger
}

// NewServer creates a new HTTP server. The router is assembled separately via
// SetupRouter so tests can exercise handlers without the full dependency set.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// RouterConfig carries the handlers and middlewares the router is built from.
// Optional middlewares (CORS, rate limiting, metrics) are skipped when nil.
type RouterConfig struct {
	DeviceHandler   *identityHTTP.DeviceHandler
	TokenHandler    *identityHTTP.TokenHandler
	ConfigHandler   *projectHTTP.ConfigHandler
	RotationHandler *rotationHTTP.RotationHandler

	// DeviceAuth guards user-scoped endpoints and requires an approved device.
	DeviceAuth gin.HandlerFunc
	// PendingDeviceAuth guards the linking code issuance endpoint, which
	// pending devices must reach before approval.
	PendingDeviceAuth gin.HandlerFunc
	// CLIAuth guards the project-token endpoints.
	CLIAuth gin.HandlerFunc

	CORS              gin.HandlerFunc
	RateLimit         gin.HandlerFunc
	RegisterRateLimit gin.HandlerFunc
	HTTPMetrics       gin.HandlerFunc
}

// SetupRouter builds the Gin router with all routes and middlewares.
func (s *Server) SetupRouter(cfg RouterConfig) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))
	if cfg.CORS != nil {
		router.Use(cfg.CORS)
	}
	if cfg.HTTPMetrics != nil {
		router.Use(cfg.HTTPMetrics)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")

	// Device registration is the only unauthenticated endpoint; a device
	// cannot authenticate before it exists.
	register := v1.Group("")
	if cfg.RegisterRateLimit != nil {
		register.Use(cfg.RegisterRateLimit)
	}
	register.POST("/devices", cfg.DeviceHandler.RegisterHandler)

	// Pending devices get exactly one endpoint: issuing their linking code.
	pending := v1.Group("", cfg.PendingDeviceAuth)
	pending.POST("/linking-codes", cfg.DeviceHandler.CreateLinkingCodeHandler)

	// Everything user-scoped requires an approved device.
	device := v1.Group("", cfg.DeviceAuth)
	if cfg.RateLimit != nil {
		device.Use(cfg.RateLimit)
	}
	device.GET("/devices", cfg.DeviceHandler.ListHandler)
	device.POST("/devices/:id/approve", cfg.DeviceHandler.ApproveHandler)
	device.DELETE("/devices/:id", cfg.DeviceHandler.RevokeHandler)
	device.POST("/linking-codes/redeem", cfg.DeviceHandler.RedeemLinkingCodeHandler)
	device.GET("/user-key", cfg.DeviceHandler.GetUserKeyHandler)
	device.GET("/user-key/rotation-state", cfg.DeviceHandler.GetRotationStateHandler)
	device.POST("/user-key/rotate", cfg.DeviceHandler.RotateMasterKeyHandler)

	device.GET("/projects/:id", cfg.ConfigHandler.GetProjectHandler)
	device.GET("/projects/:id/access", cfg.ConfigHandler.GetAccessHandler)
	device.GET("/projects/:id/config", cfg.ConfigHandler.ListItemsHandler)
	device.PUT("/projects/:id/config/:name", cfg.ConfigHandler.SetItemHandler)
	device.DELETE("/projects/:id/config/:name", cfg.ConfigHandler.DeleteItemHandler)
	device.GET("/projects/:id/files", cfg.ConfigHandler.ListFilesHandler)
	device.POST("/projects/:id/files", cfg.ConfigHandler.CreateFileHandler)

	device.POST("/projects/:id/tokens", cfg.TokenHandler.CreateHandler)
	device.GET("/projects/:id/tokens", cfg.TokenHandler.ListHandler)
	device.DELETE("/tokens/:id", cfg.TokenHandler.RevokeHandler)

	device.POST("/projects/:id/rotations", cfg.RotationHandler.InitiateHandler)
	device.GET("/projects/:id/rotations/pending", cfg.RotationHandler.GetPendingHandler)
	device.POST("/rotations/:id/approve", cfg.RotationHandler.ApproveHandler)
	device.POST("/rotations/:id/reject", cfg.RotationHandler.RejectHandler)
	device.POST("/rotations/:id/cancel", cfg.RotationHandler.CancelHandler)
	device.GET("/rotations/pending", cfg.RotationHandler.ListPendingHandler)

	// CLI endpoints authenticate with the project token itself; the token is
	// the project-scoped credential, no user is involved.
	cli := v1.Group("/cli", cfg.CLIAuth)
	cli.GET("/bootstrap", cfg.TokenHandler.BootstrapHandler)
	cli.GET("/config", cfg.ConfigHandler.SnapshotHandler)

	s.router = router
}

// GetHandler returns the assembled router, or nil before SetupRouter runs.
func (s *Server) GetHandler() http.Handler {
	if s.router == nil {
		return nil
	}
	return s.router
}

// Start starts the HTTP server using the router built by SetupRouter.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic, which
// requires a reachable database.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{"database": "ok"}

	if s.db == nil {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}
