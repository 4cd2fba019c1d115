package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/wonny/stratfolio/pkg/config"
	"github.com/wonny/stratfolio/pkg/logger"
)

// Server represents the HTTP API server
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
	config     *config.Config

	// 모든 요청 컨텍스트의 부모; Shutdown 시 취소되어 진행 중 시뮬레이션과 WebSocket 스트림 종료
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// New creates a new API server
// WriteTimeout 은 최대 시뮬레이션 횟수의 동기 Monte Carlo 응답을 허용
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	baseCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      5 * time.Minute,
			IdleTimeout:       60 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return baseCtx },
		},
		logger:     log.WithComponent("api"),
		config:     cfg,
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}
	// hijacked 연결은 Shutdown 이 기다리지 않으므로 컨텍스트로 종료 신호 전달
	s.httpServer.RegisterOnShutdown(cancel)
	return s
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start listens on the configured port and serves until Shutdown
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener; it returns nil after Shutdown
func (s *Server) Serve(ln net.Listener) error {
	s.logger.WithFields(map[string]interface{}{
		"addr":    ln.Addr().String(),
		"env":     s.config.Env,
		"metrics": s.config.MetricsEnabled,
	}).Info("Starting API server")

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, cancels running analyses and waits for handlers to return
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")

	err := s.httpServer.Shutdown(ctx)
	s.cancelBase()
	if err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
