package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bibbank/taxrisk/internal/infrastructure/config"
	"github.com/bibbank/taxrisk/pkg/observability"
)

var version = "dev"

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	scoringConfig string
	logLevel      string
}

func (o *globalOptions) logger(w io.Writer) *slog.Logger {
	return observability.InitLogger(observability.LogConfig{
		Level:  o.logLevel,
		Format: "text",
		Writer: w,
	})
}

func (o *globalOptions) loadScoring() (*config.ScoringConfig, error) {
	return config.LoadScoring(o.scoringConfig)
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "taxrisk",
		Short: "taxrisk - ensemble tax-fraud risk scoring",
		Long: `taxrisk scores business tax filings for under-reporting risk.

It combines an anomaly detector, supervised classifiers and LLM judges into a
single consensus verdict with a risk tier and an explanation.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.scoringConfig, "scoring-config", "configs/scoring.yaml", "Scoring configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newScoreCommand(opts))
	cmd.AddCommand(newBenchmarksCommand(opts))
	cmd.AddCommand(newCertsCommand())
	cmd.AddCommand(newMigrateCommand())

	return cmd
}
