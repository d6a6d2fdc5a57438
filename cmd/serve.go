package cmd

import (
	"context"
	"fmt"

	"github.com/mj1618/list-import/internal/metrics"
	"github.com/mj1618/list-import/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server for batch control",
	Long: `Start a Model Context Protocol (MCP) server that lets an agent start, stop and
watch batches and check selectors against the live page.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Tools: start_batch, stop_batch, batch_status, locate.

Examples:
  list-import serve --remote-url ws://127.0.0.1:9222
  list-import serve --transport streamable-http --port 8080 --metrics-addr :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
	serveCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics_addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	metricsAddr := a.Config.MetricsAddr
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		metricsAddr = addr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector("list_import", reg, logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	srv := server.New(ctx, a, collector, logger)
	if err := srv.Serve(server.Config{Transport: transport, Port: port, MetricsAddr: metricsAddr}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
