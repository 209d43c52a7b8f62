package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/huangsam/fairspot/core"
	"github.com/huangsam/fairspot/internal/contract"
	"github.com/spf13/cobra"
)

// monitorCmd re-audits a dataset on a schedule.
var monitorCmd = &cobra.Command{
	Use:   "monitor <dataset>",
	Short: "Re-run an audit on a cron schedule and log verdict changes",
	Long: `Audit a dataset immediately and then on every tick of --schedule until interrupted.

Each run is recorded in the run store. Whenever a verdict changes status between
runs (for example Pass to Fail), the transition is logged. With --textfile the
latest metrics are rewritten for the Prometheus node_exporter textfile collector.

The schedule accepts standard 5-field cron expressions and descriptors such as
@hourly or @every 15m.

Examples:
  # Re-audit a nightly export every hour
  fairspot monitor exports/decisions.csv --prediction approved --attributes race

  # Feed node_exporter every 15 minutes
  fairspot monitor decisions.csv --prediction approved --attributes sex \
    --schedule "@every 15m" --textfile /var/lib/node_exporter/fairspot.prom`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := core.ExecuteMonitor(ctx, cfg, storeManager); err != nil {
			contract.LogFatal("Monitor stopped", err)
		}
	},
}
