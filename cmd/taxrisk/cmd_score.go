package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bibbank/taxrisk/internal/application/dto"
	"github.com/bibbank/taxrisk/internal/application/usecase"
	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
	"github.com/bibbank/taxrisk/internal/infrastructure/ensemble"
	"github.com/bibbank/taxrisk/internal/infrastructure/memory"
	"github.com/bibbank/taxrisk/internal/infrastructure/messaging"
	"github.com/bibbank/taxrisk/internal/infrastructure/ml"
)

// cliTenantID scopes verdicts produced by one-shot CLI runs.
var cliTenantID = uuid.MustParse("00000000-0000-0000-0000-00000000c11a")

type scoreOptions struct {
	file   string
	tenant string
	failOn string
}

func newScoreCommand(global *globalOptions) *cobra.Command {
	opts := &scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one filing and print the verdict as JSON",
		Long: `Score a single filing read from a JSON file (or "-" for stdin).

Every configured scorer runs in-process. Judges without credentials and models
that are not present are reported as excluded in the verdict. Domain events are
written to the log instead of Kafka.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Filing JSON file, or - for stdin")
	cmd.Flags().StringVar(&opts.tenant, "tenant", cliTenantID.String(), "Tenant ID recorded on the verdict")
	cmd.Flags().StringVar(&opts.failOn, "fail-on", "", "Exit with status 1 when the tier is at least this (LOW, MEDIUM, HIGH, CRITICAL)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runScore(cmd *cobra.Command, global *globalOptions, opts *scoreOptions) error {
	tenantID, err := uuid.Parse(opts.tenant)
	if err != nil {
		return fmt.Errorf("invalid --tenant: %w", err)
	}
	var threshold valueobject.RiskTier
	if opts.failOn != "" {
		if threshold, err = valueobject.RiskTierFromString(opts.failOn); err != nil {
			return fmt.Errorf("invalid --fail-on: %w", err)
		}
	}

	filing, err := readFiling(cmd, opts.file)
	if err != nil {
		return err
	}

	scoringCfg, err := global.loadScoring()
	if err != nil {
		return err
	}
	logger := global.logger(cmd.ErrOrStderr())

	registry := ml.LoadRegistry(scoringCfg.ML, logger)
	defer registry.Close()

	engine, err := ensemble.NewEngine(scoringCfg, registry, ensemble.NewHTTPClient(), logger)
	if err != nil {
		return fmt.Errorf("building scoring engine: %w", err)
	}
	uc := usecase.NewScoreFiling(memory.NewVerdictRepository(), messaging.NewLogPublisher(logger), engine)

	verdict, err := uc.Execute(cmd.Context(), dto.ScoreFilingRequest{TenantID: tenantID, Filing: filing})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(verdict); err != nil {
		return fmt.Errorf("writing verdict: %w", err)
	}

	if !threshold.IsZero() {
		tier, _ := valueobject.RiskTierFromString(verdict.RiskTier)
		if tier.AtLeast(threshold) {
			return &RiskThresholdError{
				Message: fmt.Sprintf("%s scored %s (%.2f), at or above %s", verdict.BusinessID, verdict.RiskTier, verdict.FinalScore, threshold),
			}
		}
	}
	return nil
}

func readFiling(cmd *cobra.Command, path string) (model.RawFiling, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return model.RawFiling{}, fmt.Errorf("opening filing: %w", err)
		}
		defer f.Close()
		r = f
	}

	var filing model.RawFiling
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&filing); err != nil {
		return model.RawFiling{}, fmt.Errorf("decoding filing: %w", err)
	}
	return filing, nil
}
