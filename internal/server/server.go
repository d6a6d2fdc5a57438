// Package server exposes batch control over the Model Context Protocol.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/mj1618/list-import/internal/app"
	"github.com/mj1618/list-import/internal/metrics"
	"github.com/mj1618/list-import/internal/version"
	"go.uber.org/zap"
)

// Config holds MCP server configuration.
type Config struct {
	Transport   string
	Port        int
	MetricsAddr string
}

// Server serves one wired engine. Batches run on the server's context, not
// on the context of the tool call that started them.
type Server struct {
	ctx     context.Context
	app     *app.App
	metrics *metrics.Collector
	mcp     *mcpserver.MCPServer
	logger  *zap.Logger
}

// New registers every tool. collector may be nil.
func New(ctx context.Context, a *app.App, collector *metrics.Collector, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ctx:     ctx,
		app:     a,
		metrics: collector,
		logger:  logger.With(zap.String("component", "server")),
	}
	if collector != nil {
		a.Orchestrator.Subscribe(collector)
	}
	s.mcp = mcpserver.NewMCPServer("list-import", version.Version)
	s.registerTools()
	return s
}

// Serve starts the MCP server with the configured transport and, when
// MetricsAddr is set, a Prometheus endpoint alongside it.
func (s *Server) Serve(cfg Config) error {
	if cfg.MetricsAddr != "" && s.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			s.logger.Info("metrics endpoint listening", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	switch cfg.Transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		s.logger.Info("mcp listening", zap.Int("port", cfg.Port))
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("start_batch",
			mcp.WithDescription("Start adding accounts to the list. Returns immediately; poll batch_status for progress. Fails if a batch is already running."),
			mcp.WithString("identifiers", mcp.Required(), mcp.Description("Account handles separated by commas or newlines; a leading @ is ignored")),
			mcp.WithBoolean("wait", mcp.Description("Block until the batch finishes and return the final result")),
		),
		s.handleStartBatch,
	)

	s.mcp.AddTool(
		mcp.NewTool("stop_batch",
			mcp.WithDescription("Ask the running batch to stop after the account it is currently processing"),
		),
		s.handleStopBatch,
	)

	s.mcp.AddTool(
		mcp.NewTool("batch_status",
			mcp.WithDescription("Report progress of the current or most recent batch: counts, skipped and failed accounts, and a status line"),
		),
		s.handleBatchStatus,
	)

	s.mcp.AddTool(
		mcp.NewTool("locate",
			mcp.WithDescription("Wait for the element of a configured role to become visible and describe it"),
			mcp.WithString("role", mcp.Required(), mcp.Description("Role name, e.g. search_input, add_button, result_entry")),
			mcp.WithNumber("timeout-ms", mcp.Description("How long to wait in milliseconds (default: nav timeout)")),
		),
		s.handleLocate,
	)
}
