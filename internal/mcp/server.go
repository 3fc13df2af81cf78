// Package mcp exposes the discovery pipeline to the decision agent over
// the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/honeycarbs/job-discovery/internal/mcp/tools"
	"github.com/honeycarbs/job-discovery/pkg/logging"
)

const (
	// StreamPath is where the streamable HTTP transport is mounted
	StreamPath = "/mcp/stream"
	HealthPath = "/healthz"
)

// Server wraps an MCP SDK server with an HTTP listener
type Server struct {
	logger *logging.Logger
	mcp    *sdkmcp.Server

	srv     *http.Server
	started atomic.Bool
}

// NewServer constructs the MCP HTTP server and registers the given tools
func NewServer(log *logging.Logger, host, port, version string, opts ...tools.Option) *Server {
	impl := &sdkmcp.Implementation{
		Name:    "job-discovery",
		Version: version,
	}

	mcpServer := sdkmcp.NewServer(impl, nil)
	tools.Register(mcpServer, append([]tools.Option{tools.WithLogger(log.Named("mcp"))}, opts...)...)

	handler := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return mcpServer
	}, nil)

	mux := http.NewServeMux()
	mux.Handle(StreamPath, handler)
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		logger: log,
		mcp:    mcpServer,
		srv: &http.Server{
			Addr:              net.JoinHostPort(host, port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// MCP returns the underlying SDK server, e.g. to connect in-process transports
func (s *Server) MCP() *sdkmcp.Server {
	return s.mcp
}

// Handler returns the HTTP handler serving the stream and health endpoints
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

// Run starts the HTTP server and blocks until shutdown
func (s *Server) Run() error {
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	s.logger.Info("MCP HTTP server listening", "addr", s.srv.Addr)

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutdown requested for MCP HTTP server")
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("MCP HTTP server shutdown with error", "err", err)
		return err
	}

	s.logger.Info("MCP HTTP server shutdown complete")
	return nil
}
