package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bibbank/taxrisk/pkg/tlsutil"
)

func newCertsCommand() *cobra.Command {
	var (
		outDir   string
		hosts    []string
		validFor time.Duration
	)

	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Generate a development CA and server certificate",
		Long: `Generate a self-signed CA and a server certificate signed by it, for
running taxriskd with TLS_CERT_FILE, TLS_KEY_FILE and TLS_CA_FILE locally.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := tlsutil.GenerateDevCerts(hosts, outDir, validFor); err != nil {
				return fmt.Errorf("generating certificates: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "TLS_CERT_FILE=%s\nTLS_KEY_FILE=%s\nTLS_CA_FILE=%s\n",
				filepath.Join(outDir, tlsutil.ServerFile),
				filepath.Join(outDir, tlsutil.ServerKeyFile),
				filepath.Join(outDir, tlsutil.CAFile),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "certs", "Output directory")
	cmd.Flags().StringSliceVar(&hosts, "hosts", []string{"localhost", "127.0.0.1"}, "DNS names and IPs for the server certificate")
	cmd.Flags().DurationVar(&validFor, "valid-for", 365*24*time.Hour, "Certificate lifetime")

	return cmd
}
