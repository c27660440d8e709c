package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the drain of in-flight requests once the run
// context is cancelled.
const shutdownTimeout = 15 * time.Second

// Server owns the HTTP listener lifecycle. Construct it with [NewServer],
// then call [Server.Run] to serve until the context is cancelled.
type Server struct {
	httpServer *http.Server
	certFile   string
	keyFile    string
}

// ServerOption is a functional option for [NewServer].
type ServerOption func(*Server)

// WithTLSFiles enables HTTPS with the given PEM certificate and key paths.
func WithTLSFiles(certFile, keyFile string) ServerOption {
	return func(s *Server) {
		s.certFile = certFile
		s.keyFile = keyFile
	}
}

// NewServer wraps handler in an [http.Server] listening on addr.
func NewServer(addr string, handler http.Handler, opts ...ServerOption) *Server {
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to [shutdownTimeout]. It returns ctx's error on a clean shutdown and the
// listener or drain error otherwise.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", s.httpServer.Addr, "tls", s.certFile != "")
		var err error
		if s.certFile != "" {
			err = s.httpServer.ListenAndServeTLS(s.certFile, s.keyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("httpapi: serve: %w", err)
	})

	g.Go(func() error {
		<-ctx.Done()

		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("httpapi: shutdown: %w", err)
		}
		slog.Info("http server stopped")
		return ctx.Err()
	})

	return g.Wait()
}
