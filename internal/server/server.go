package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"gate_control/internal/logger"
)

const (
	defaultPort       = "8080"
	maxHeaderBytes    = 1 << 20 // 1 MB
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// Server owns the panel's HTTP listener.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// New configures the server for port ("8080" or ":8080"; empty means 8080).
func New(port string, handler http.Handler, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              normalizeAddr(port),
			Handler:           handler,
			MaxHeaderBytes:    maxHeaderBytes,
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
		},
		log: log,
	}
}

func normalizeAddr(port string) string {
	if port == "" {
		port = defaultPort
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func (s *Server) Addr() string { return s.httpServer.Addr }

// Run listens on the configured address and blocks until Shutdown. A clean
// shutdown returns nil.
func (s *Server) Run() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.log.Infow("http_listening", "addr", l.Addr().String())
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
// Hijacked WebSocket connections are not tracked; they end when their
// subscription closes.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Infow("http_shutting_down")
	return s.httpServer.Shutdown(ctx)
}
