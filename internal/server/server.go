// Package server exposes the thread workspace over HTTP: a JSON API
// for render surfaces, a websocket event stream, and Prometheus
// metrics.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tridinhbui/finpartner-ai/internal/controller"
	"github.com/tridinhbui/finpartner-ai/internal/logging"
)

// Config carries the HTTP server settings.
type Config struct {
	Host         string
	Port         int
	EnableCORS   bool
	Debug        bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns the standard server settings.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server hosts the workspace API.
type Server struct {
	ctrl    *controller.Controller
	hub     *Hub
	metrics *Metrics
	logger  logging.Logger

	engine     *gin.Engine
	httpServer *http.Server
	startTime  time.Time
}

// APIResponse is the uniform response envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// New wires the API around an already-constructed controller and hub.
// The hub is passed in separately because the controller's notify
// callback must point at it before the controller exists.
func New(ctrl *controller.Controller, hub *Hub, cfg Config, logger logging.Logger) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	if cfg.EnableCORS {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
		corsConfig.AllowWebSockets = true
		engine.Use(cors.New(corsConfig))
	}

	s := &Server{
		ctrl:      ctrl,
		hub:       hub,
		metrics:   NewMetrics(),
		logger:    logging.OrNop(logger),
		engine:    engine,
		startTime: time.Now(),
	}

	engine.Use(s.timingMiddleware())
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Engine exposes the router for httptest.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Metrics exposes the instrumentation set.
func (s *Server) Metrics() *Metrics { return s.metrics }

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")

	api.GET("/health", s.handleHealth)

	threads := api.Group("/threads")
	{
		threads.GET("", s.handleListThreads)
		threads.POST("", s.handleCreateThread)
		threads.GET("/active", s.handleActiveThread)
		threads.POST("/:id/select", s.handleSelectThread)
		threads.PUT("/:id/title", s.handleRenameThread)
		threads.DELETE("/:id", s.handleDeleteThread)
	}

	api.POST("/messages", s.handleSend)

	workspace := api.Group("/workspace")
	{
		workspace.POST("/tab", s.handleSetTab)
		workspace.GET("/document/:ref", s.handleDocument)
	}

	uploads := api.Group("/uploads")
	{
		uploads.POST("", s.handleUpload)
		uploads.DELETE("", s.handleClearUpload)
	}

	session := api.Group("/session")
	{
		session.GET("", s.handleGetSession)
		session.POST("/login", s.handleLogin)
		session.POST("/logout", s.handleLogout)
		session.GET("/theme", s.handleGetTheme)
		session.PUT("/theme", s.handleSetTheme)
	}

	api.GET("/events", func(c *gin.Context) {
		s.hub.Serve(c.Writer, c.Request)
	})

	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

func (s *Server) timingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data: gin.H{
			"status": "ok",
			"uptime": time.Since(s.startTime).String(),
		},
	})
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Server: listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains connections and disconnects websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Server: shutting down")
	s.hub.CloseAll()
	return s.httpServer.Shutdown(ctx)
}
