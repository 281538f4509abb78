// Package api exposes the analyzer over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP API server
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewRouter builds the gin engine with every route registered
func NewRouter(h *Handler, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger(logger))

	router.GET("/healthz", h.Health)
	router.GET("/readyz", h.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/criticality", h.Criticality)
		v1.POST("/analytics", h.Analytics)
		v1.POST("/grounding", h.Grounding)

		v1.POST("/locate", h.Locate)
		v1.POST("/locate/catalog", h.Catalog)

		v1.POST("/ask", h.Ask)
		v1.GET("/ask/:session_id", h.Conversation)
		v1.DELETE("/ask/:session_id", h.ResetConversation)

		v1.POST("/sync", h.Sync)
		v1.GET("/sync/:upload_id", h.SyncOutput)
	}

	return router
}

// NewServer creates an HTTP server listening on addr
func NewServer(addr string, h *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(h, logger),
			ReadHeaderTimeout: 10 * time.Second,
			// Uploads and model calls can take a while.
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains connections within the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the router, useful for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
