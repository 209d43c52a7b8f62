// Package cmd defines the command-line interface for fairspot.
package cmd

import (
	"github.com/huangsam/fairspot/internal/contract"
	"github.com/huangsam/fairspot/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(exploreCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runsCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().StringP("attributes", "a", "", "Comma-separated list of protected attribute columns")
	rootCmd.PersistentFlags().String("truth", "", "Column holding the ground-truth label")
	rootCmd.PersistentFlags().String("prediction", "", "Column holding the model decision")
	rootCmd.PersistentFlags().String("score", "", "Column holding a numeric model score (carried on each record)")
	rootCmd.PersistentFlags().String("favorable", "", "Outcome value mapped to 1 in truth and prediction columns (others map to 0)")
	rootCmd.PersistentFlags().Bool("intersectional", false, "Also audit the intersection of all protected attributes")
	rootCmd.PersistentFlags().String("control", "", "Column to stratify results by (conditional metrics)")
	rootCmd.PersistentFlags().StringP("metrics", "m", "", "Comma-separated list of metrics (default: all applicable)")
	rootCmd.PersistentFlags().String("reference", "", "Reference group that every other group is compared against")
	rootCmd.PersistentFlags().String("pairs", "", "Explicit group pairs (format: 'X:Y,Z:Y')")
	rootCmd.PersistentFlags().String("positive-class", "", "Outcome value treated as positive (default: inferred)")
	rootCmd.PersistentFlags().String("missing-attribute", string(schema.MissingError), "Policy for records missing an attribute: error or unknown")
	rootCmd.PersistentFlags().String("delimiter", ",", "Field delimiter for CSV datasets")
	rootCmd.PersistentFlags().Bool("drop-na", false, "Drop records with an empty value in any used column")
	rootCmd.PersistentFlags().String("verdict-metric", "", "Per-group metric used for parity verdicts (default: selection_rate)")
	rootCmd.PersistentFlags().Float64("verdict-threshold", schema.DefaultParityThreshold, "Maximum tolerated gap between group rates")
	rootCmd.PersistentFlags().String("textfile", "", "Write metrics in Prometheus textfile format to this path")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or yaml or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("run-backend", string(schema.SQLiteBackend), "Run tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("run-db-connect", "", "Database connection string for run tracking (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", contract.DefaultLogFormat, "Log format: text or json")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of auditCmd to Viper
	auditCmd.Flags().Bool("chart", false, "Print a bar chart of group rates")
	if err := viper.BindPFlags(auditCmd.Flags()); err != nil {
		contract.LogFatal("Error binding audit flags", err)
	}

	// Bind all flags of exploreCmd to Viper
	exploreCmd.Flags().String("target", "", "Column whose value counts are reported")
	if err := viper.BindPFlags(exploreCmd.Flags()); err != nil {
		contract.LogFatal("Error binding explore flags", err)
	}

	// Bind all flags of monitorCmd to Viper
	monitorCmd.Flags().String("schedule", contract.DefaultSchedule, "Cron schedule for re-running the audit")
	if err := viper.BindPFlags(monitorCmd.Flags()); err != nil {
		contract.LogFatal("Error binding monitor flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("listen", contract.DefaultListen, "Address for the HTTP server to listen on")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of checkCmd to Viper
	checkCmd.Flags().String("thresholds-override", "", "Fairness thresholds for CI/CD gating (format: 'spd:0.1,di:0.8,eod:0.1,fprd:0.1')")
	if err := viper.BindPFlags(checkCmd.Flags()); err != nil {
		contract.LogFatal("Error binding check flags", err)
	}

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}
