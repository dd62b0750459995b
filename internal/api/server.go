package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/wonny/hawkeye/pkg/config"
	"github.com/wonny/hawkeye/pkg/logger"
)

// Server serves the estimate API and the live board stream.
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	httpServer *http.Server
	hub        *Hub
	logger     *logger.Logger
	config     *config.Config

	mu sync.Mutex
	ln net.Listener
}

// New creates the server. hub may be nil when no board stream is mounted.
func New(cfg *config.Config, log *logger.Logger, router http.Handler, hub *Hub) *Server {
	s := &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      2 * time.Minute, // audit fetches official figures fund by fund
			IdleTimeout:       60 * time.Second,
		},
		hub:    hub,
		logger: log.WithComponent("api_server"),
		config: cfg,
	}

	// 웹소켓은 hijack 된 연결이라 Shutdown 이 기다리지 않음
	if hub != nil {
		s.httpServer.RegisterOnShutdown(hub.Close)
	}
	return s
}

// Listen binds the port without serving yet. Port "0" picks a free one.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address, "" before Listen
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	s.logger.WithFields(map[string]interface{}{
		"addr":    ln.Addr().String(),
		"env":     s.config.Env,
		"backend": s.config.Store.Backend,
		"stream":  s.hub != nil,
	}).Info("Starting API server")

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown closes board streams, then drains in-flight requests
// (a running snapshot or audit) until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	fields := map[string]interface{}{}
	if s.hub != nil {
		fields["ws_clients"] = s.hub.Clients()
	}
	s.logger.WithFields(fields).Info("Shutting down API server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
