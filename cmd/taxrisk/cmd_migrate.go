package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bibbank/taxrisk/internal/infrastructure/config"
	pgutil "github.com/bibbank/taxrisk/pkg/postgres"
)

func newMigrateCommand() *cobra.Command {
	var databaseURL, source string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the verdict store schema",
	}
	defaults := config.Load()
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", defaults.DatabaseURL, "PostgreSQL connection URL")
	cmd.PersistentFlags().StringVar(&source, "source", defaults.MigrationsPath, "Migration source URL")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := pgutil.RunMigrations(databaseURL, source); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := pgutil.RunMigrationsDown(databaseURL, source); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, dirty, err := pgutil.MigrationVersion(databaseURL, source)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	})

	return cmd
}
