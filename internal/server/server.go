// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/vizloom-cli/internal/pipeline"
)

const defaultShutdownTimeout = 10 * time.Second

// Options configures the HTTP server.
type Options struct {
	Addr           string
	CORSOrigins    []string
	MaxUploadBytes int64
	// MaxPoints caps the max_points a client may request. 0 means no cap.
	MaxPoints       int
	ShutdownTimeout time.Duration
	Version         string
}

// Server routes requests to a pipeline.Processor.
type Server struct {
	proc    *pipeline.Processor
	opts    Options
	logger  *zap.Logger
	handler http.Handler
}

func New(proc *pipeline.Processor, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	s := &Server{proc: proc, opts: opts, logger: logger.Named("server")}

	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	s.handler = chain(mux,
		RequestID,
		RequestLogger(s.logger),
		Recoverer(s.logger),
		CORS(opts.CORSOrigins),
		LimitBody(opts.MaxUploadBytes),
	)
	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Run listens on opts.Addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// in-flight requests for up to opts.ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", zap.Duration("timeout", s.opts.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
