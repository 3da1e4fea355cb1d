package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/willibrandon/pgconnect/internal/config"
	"github.com/willibrandon/pgconnect/internal/logger"
)

var (
	// Version info (set by ldflags)
	version = "dev"

	// Flags
	configPath string
	envFile    string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pgconnect",
		Short: "PostgreSQL connection pool configurator",
		Long: `pgconnect builds a PostgreSQL connection pool from DATABASE_URL or the
discrete DB_* settings and checks that the database is reachable.

Commands:
  pgconnect check                 Connect once and report the server time
  pgconnect describe [--json]     Show the resolved connection without secrets
  pgconnect encode-ca <file>      Encode a PEM CA certificate for DB_CA_CERT`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML settings file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read if present")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newCheckCmd(),
		newDescribeCmd(),
		newEncodeCACmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings reads settings and initializes the logger from them.
// Callers must defer logger.Close.
func loadSettings() (*config.Settings, error) {
	settings, err := config.Load(config.Options{
		EnvFile:    envFile,
		ConfigFile: configPath,
	})
	if err != nil {
		return nil, err
	}

	level := logger.ParseLevel(settings.LogLevel)
	if debug {
		level = logger.LevelDebug
	}
	logger.InitLogger(level, settings.LogFile)
	if debug && settings.LogFile != "" {
		fmt.Fprintf(os.Stderr, "Debug mode: Logs written to %s\n", settings.LogFile)
	}
	logger.Debug("pgconnect starting", "version", version, "config", configPath, "env_file", envFile)

	return settings, nil
}
