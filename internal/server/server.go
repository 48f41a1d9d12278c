package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"lexsched/internal/config"
	"lexsched/pkg/logx"
)

// Server owns the http.Server lifecycle. Start binds and serves in the
// background; Stop drains in-flight requests within the context deadline.
type Server struct {
	mu      sync.Mutex
	srv     *http.Server
	log     logx.Logger
	stopped chan struct{}
}

func New(cfg config.ServerConfig, handler http.Handler, log logx.Logger) (*Server, error) {
	read, err := config.ParseDurationOrDefault("server.read_timeout", cfg.ReadTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	write, err := config.ParseDurationOrDefault("server.write_timeout", cfg.WriteTimeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	idle, err := config.ParseDurationOrDefault("server.idle_timeout", cfg.IdleTimeout, 2*time.Minute)
	if err != nil {
		return nil, err
	}

	return &Server{
		srv: &http.Server{
			Addr:         cfg.Addr,
			Handler:      handler,
			ReadTimeout:  read,
			WriteTimeout: write,
			IdleTimeout:  idle,
		},
		log:     log.With(logx.String("component", "server")),
		stopped: make(chan struct{}),
	}, nil
}

func (s *Server) Start(ctx context.Context) {
	s.log.Info("listening", logx.String("addr", s.srv.Addr))
	go func() {
		defer close(s.stopped)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server exited", logx.Err(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.srv.Shutdown(ctx)
	select {
	case <-s.stopped:
	case <-ctx.Done():
	}
	return err
}
