package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/willibrandon/pgconnect/internal/db"
)

// newEncodeCACmd creates the encode-ca subcommand.
func newEncodeCACmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode-ca <file>",
		Short: "Encode a PEM CA certificate for DB_CA_CERT",
		Long: `Print a PEM CA certificate as a single base64 line, suitable for
environments that cannot hold multi-line values.

Example:
  pgconnect encode-ca prod-ca-2021.crt
  export DB_CA_CERT=$(pgconnect encode-ca prod-ca-2021.crt)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read certificate: %w", err)
			}

			encoded, err := db.EncodeCA(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}
}
