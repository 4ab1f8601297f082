package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bibbank/taxrisk/internal/domain/service"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
)

func newBenchmarksCommand(global *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "benchmarks",
		Short: "List the per-category benchmarks used to estimate revenue",
		Long: `List the benchmark table in effect, including overrides from the scoring
configuration. Small-vendor categories show their typical daily revenue range.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scoringCfg, err := global.loadScoring()
			if err != nil {
				return err
			}
			table := scoringCfg.EffectiveBenchmarks()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(table)
			}
			return printBenchmarks(cmd, table)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the table as JSON")

	return cmd
}

func printBenchmarks(cmd *cobra.Command, table service.BenchmarkTable) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tLABEL\tDAILY REVENUE\tREVENUE/SQFT\tTAX RATE")
	for _, c := range valueobject.AllCategories() {
		b, ok := table[c.String()]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.String(), c.Label(),
			formatRange(b.DailyRevenue, "%.0f"),
			formatRange(b.RevenuePerSqft, "%.0f"),
			formatRange(b.ExpectedTaxRate, "%.2f"),
		)
	}
	return w.Flush()
}

func formatRange(r service.Range, verb string) string {
	if r.High == 0 {
		return "-"
	}
	return fmt.Sprintf(verb+"-"+verb, r.Low, r.High)
}
