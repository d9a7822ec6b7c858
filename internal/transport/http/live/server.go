// Package livehttp exposes the read-only ops surface: health, open
// positions, realized pnl and an equity chart.
package livehttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"solsniper/internal/logger"
)

type Server struct {
	addr   string
	router *gin.Engine
	srv    *http.Server
}

// NewServer wires the routes onto a bare gin engine.
func NewServer(addr string, h *Handler) *Server {
	if addr == "" {
		addr = ":9985"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", h.Health)
	api := router.Group("/api")
	{
		api.GET("/positions", h.Positions)
		api.GET("/pnl", h.PnL)
		api.GET("/trades", h.Trades)
	}
	router.GET("/equity", h.EquityChart)

	return &Server{addr: addr, router: router}
}

func (s *Server) Start() error {
	s.srv = &http.Server{Addr: s.addr, Handler: s.router}
	logger.Infof("[HTTP] listening on %s", s.addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
