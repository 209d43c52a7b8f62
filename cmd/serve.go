package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/internal/httpapi"
	"github.com/spf13/cobra"
)

// serveCmd exposes the audit engine over HTTP.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve fairness audits over an HTTP JSON API",
	Long: `Start an HTTP server that audits JSON records posted by other services.

Endpoints:
- POST /v1/audit - audit a JSON array of records
- GET /v1/metrics - the metric catalog
- GET /v1/runs/status - run store status
- GET /metrics - Prometheus metrics for the server itself
- GET /healthz - liveness probe

Flags given here (attributes, metrics, pairing) act as defaults that each
request may override.

Examples:
  # Serve on the default port
  fairspot serve --attributes race --reference white

  # Bind to localhost only, without run tracking
  fairspot serve --listen 127.0.0.1:9000 --run-backend none`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := httpapi.Serve(ctx, cfg, storeManager); err != nil {
			contract.LogFatal("HTTP server failed", err)
		}
	},
}
