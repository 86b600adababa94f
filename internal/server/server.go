// Package server exposes the frame stream of a running simulation over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/zeusync/sophysics/internal/config"
	"github.com/zeusync/sophysics/internal/core/observability/log"
	"github.com/zeusync/sophysics/internal/core/render/stream"
)

var ErrNotStarted = errors.New("server: not started")

// Server owns the websocket hub and the HTTP server in front of it.
type Server struct {
	cfg    config.StreamConfig
	hub    *stream.Hub
	logger log.Log

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

func New(cfg config.StreamConfig, logger log.Log) *Server {
	var opts []stream.Option
	if cfg.Buffer > 0 {
		opts = append(opts, stream.WithBuffer(cfg.Buffer))
	}
	if cfg.WriteTimeout > 0 {
		opts = append(opts, stream.WithWriteTimeout(cfg.WriteTimeout))
	}
	return &Server{
		cfg:    cfg,
		hub:    stream.NewHub(logger, opts...),
		logger: logger.With(log.String("component", "server")),
	}
}

// Hub is the frame sink to register with a camera.
func (s *Server) Hub() *stream.Hub { return s.hub }

// Start binds the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Address, err)
	}
	s.listener = ln
	s.server = &http.Server{Handler: s.hub.Handler(s.cfg.Path)}
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("frame stream stopped", log.Error(err))
		}
	}()
	s.logger.Info("streaming frames",
		log.String("address", ln.Addr().String()),
		log.String("path", s.cfg.Path))
	return nil
}

// Addr returns the bound address, useful when the configured port is 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop disconnects every viewer, then shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.server, s.done
	s.mu.Unlock()
	if srv == nil {
		return ErrNotStarted
	}

	err := s.hub.Close()
	if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil {
		err = errors.Join(err, shutdownErr)
	}
	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}
	return err
}
