package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/willibrandon/pgconnect/internal/db"
	"github.com/willibrandon/pgconnect/internal/logger"
)

// newCheckCmd creates the check subcommand.
func newCheckCmd() *cobra.Command {
	var (
		timeout     time.Duration
		askPassword bool
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Connect once and report the server time",
		Long: `Build the connection pool and run a single round-trip query.

Exit codes:
  0  the database answered
  1  settings could not be loaded or the database could not be reached

Example:
  pgconnect check
  pgconnect check --env-file .env.production --timeout 5s
  DB_HOST=localhost DB_USER=app pgconnect check --ask-password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			defer logger.Close()

			if askPassword && !settings.HasDatabaseURL() && settings.Password == "" && settings.PasswordCommand == "" {
				password, err := db.PromptPassword(os.Stderr, fmt.Sprintf("Password for %s: ", settings.User))
				if err != nil {
					return err
				}
				settings.Password = password
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			opts := []db.Option{}
			if jsonOutput {
				opts = append(opts, db.WithOutput(os.Stderr))
			}

			c, err := db.New(ctx, *settings, opts...)
			if err != nil {
				return err
			}
			defer c.Close()

			result := c.TestConnectivity(ctx)

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return fmt.Errorf("encoding JSON: %w", err)
				}
			}

			if !result.OK {
				return fmt.Errorf("connectivity check failed")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "maximum time to wait for the database")
	cmd.Flags().BoolVar(&askPassword, "ask-password", false, "prompt for DB_PASSWORD when it is not set")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the probe result as JSON")

	return cmd
}
