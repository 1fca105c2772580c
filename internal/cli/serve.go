package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	robloxbridge "github.com/opengovern/roblox-bridge"
	"github.com/opengovern/roblox-bridge/internal/credential"
	"github.com/opengovern/roblox-bridge/internal/metrics"
	"github.com/opengovern/roblox-bridge/internal/server"
)

var metricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the update_script tool over stdio",
	Long: `Run an MCP server on stdin/stdout exposing the update_script tool.

Example:
  roblox-bridge serve
  roblox-bridge serve --metrics-addr :9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides METRICS_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	cfg, logger, bridge, err := setup(robloxbridge.WithRecorder(m))
	if err != nil {
		return err
	}

	if cfg.Roblox.APIKey == "" && cfg.Roblox.OAuthToken == "" {
		logger.Warn("ROBLOX_API_KEY is not set; update_script calls will report a missing key")
	}
	if err := credential.CheckToken(cfg.Roblox.OAuthToken, time.Now()); err != nil {
		logger.WithError(err).Warn("Configured OAuth token will be rejected by Open Cloud")
	}

	addr := cfg.Metrics.Address
	if metricsAddr != "" {
		addr = metricsAddr
	}
	if addr != "" {
		ms := metrics.NewServer(addr, reg, logger)
		go func() {
			if err := ms.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("Metrics server stopped")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = ms.Stop(ctx)
		}()
	}

	logger.WithField("server", server.ServerName).Info("Serving MCP over stdio")
	if err := server.ServeStdio(server.New(bridge, version, logger)); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
