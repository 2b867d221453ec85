package http

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Tushar2380/docuAi/internal/config"
	"github.com/Tushar2380/docuAi/internal/transport/http/handler"
	"github.com/Tushar2380/docuAi/internal/transport/http/middleware"
)

type Handlers struct {
	Health  *handler.HealthHandler
	File    *handler.FileHandler
	Session *handler.SessionHandler
	Ask     *handler.AskHandler
}

type Server struct {
	srv *nethttp.Server
}

func NewServer(cfg *config.Config, logger *zap.Logger, h Handlers) *Server {
	gin.SetMode(cfg.App.GinMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(logger))

	engine.GET("/healthz", h.Health.Health)

	api := engine.Group("/api/v1", middleware.TenantAuth(cfg.Auth))

	files := api.Group("/files")
	{
		files.POST("", h.File.Upload)
		files.GET("", h.File.List)
		files.DELETE("", h.File.Clear)
		files.DELETE("/:id", h.File.Delete)
	}

	sessions := api.Group("/sessions")
	{
		sessions.GET("", h.Session.List)
		sessions.POST("", h.Session.Create)
		sessions.GET("/:id", h.Session.Get)
		sessions.DELETE("/:id", h.Session.Delete)
		sessions.DELETE("/:id/messages", h.Session.ClearMessages)
	}

	api.POST("/ask", h.Ask.Ask)

	return &Server{
		srv: &nethttp.Server{
			Addr:              cfg.HTTPAddr(),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
