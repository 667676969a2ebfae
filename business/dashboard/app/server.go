package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
	"github.com/fd1az/dexter/internal/ratelimit"
)

// clientIdle is how long a quiet client keeps its request budget state.
const clientIdle = 5 * time.Minute

// ServerConfig holds listener settings.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RequestsPerMinute caps each client address. Zero disables the cap.
	RequestsPerMinute int
}

// Server serves the dashboard API and any extra handlers mounted on it.
type Server struct {
	mux     *http.ServeMux
	server  *http.Server
	clients *ratelimit.Keyed
	logger  logger.LoggerInterface
}

// NewServer creates a server with h's routes mounted.
func NewServer(cfg ServerConfig, h *Handler, log logger.LoggerInterface) *Server {
	s := &Server{mux: http.NewServeMux(), logger: log}
	h.Register(s.mux)

	var root http.Handler = s.mux
	if cfg.RequestsPerMinute > 0 {
		s.clients = ratelimit.NewKeyed(cfg.RequestsPerMinute, clientIdle)
		root = s.throttle(h, root)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           otelhttp.NewHandler(root, "dashboard"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

// throttle answers 429 once a client address spends its budget.
func (s *Server) throttle(h *Handler, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !s.clients.Allow(r.Context(), ip) {
			w.Header().Set("Retry-After", "1")
			h.writeError(w, r, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithContext(ip)))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handle mounts an extra handler, e.g. the stream hub or /health.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("dashboard listen %s: %w", s.server.Addr, err)
	}
	s.logger.Info(ctx, "dashboard listening", "addr", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "dashboard server stopped", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.clients != nil {
		s.clients.Close()
	}
	return s.server.Shutdown(ctx)
}
