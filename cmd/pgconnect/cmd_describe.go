package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/willibrandon/pgconnect/internal/db"
	"github.com/willibrandon/pgconnect/internal/logger"
)

// newDescribeCmd creates the describe subcommand.
func newDescribeCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Show the resolved connection without secrets",
		Long: `Show which connection mode and trust policy the settings resolve to.

Passwords, the full DATABASE_URL and CA material are never printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			defer logger.Close()

			summary, derr := db.NewDescriptor(*settings).Redacted()

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(summary); err != nil {
					return fmt.Errorf("encoding JSON: %w", err)
				}
			} else {
				printSummary(os.Stdout, summary)
			}

			if derr != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", derr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

// printSummary prints the summary in human-readable format.
func printSummary(w io.Writer, s db.Summary) {
	label := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(w, "%s %s\n", label("Mode:        "), s.Mode)
	if s.Host != "" {
		fmt.Fprintf(w, "%s %s\n", label("Host:        "), s.Host)
		fmt.Fprintf(w, "%s %s\n", label("Port:        "), s.Port)
	}
	if s.Database != "" {
		fmt.Fprintf(w, "%s %s\n", label("Database:    "), s.Database)
	}
	if s.Pooler {
		fmt.Fprintf(w, "%s yes\n", label("Pooler:      "))
	}
	fmt.Fprintf(w, "%s %t\n", label("CA provided: "), s.CAProvided)
	fmt.Fprintf(w, "%s %s\n", label("Trust:       "), trustColor(s.Trust))
	fmt.Fprintf(w, "%s %d\n", label("Max conns:   "), s.MaxConns)
	fmt.Fprintf(w, "%s %s\n", label("Idle timeout:"), s.IdleTimeout)
}

func trustColor(trust string) string {
	switch trust {
	case db.TrustVerify.String():
		return color.GreenString(trust)
	case db.TrustNoVerify.String():
		return color.YellowString(trust)
	default:
		return color.RedString(trust)
	}
}
