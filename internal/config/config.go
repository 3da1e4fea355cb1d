// Package config loads database connection settings from the environment,
// an optional .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// ProductionEnvironment is the NODE_ENV value that enables TLS for discrete-field connections.
const ProductionEnvironment = "production"

// Settings holds the raw connection inputs. It is read once at startup and
// passed by value to the connection configurator.
type Settings struct {
	DatabaseURL     string `mapstructure:"database_url"`
	CACert          string `mapstructure:"db_ca_cert"`
	Host            string `mapstructure:"db_host"`
	Port            string `mapstructure:"db_port"`
	User            string `mapstructure:"db_user"`
	Password        string `mapstructure:"db_password"`
	PasswordCommand string `mapstructure:"db_password_command"`
	Database        string `mapstructure:"db_name"`
	Environment     string `mapstructure:"node_env"`
	VerifyTLS       bool   `mapstructure:"db_verify_tls"`
	LogLevel        string `mapstructure:"log_level"`
	LogFile         string `mapstructure:"log_file"`
}

// Options controls where Load looks for settings besides the environment.
type Options struct {
	// EnvFile is a dotenv file read if present. Empty disables it.
	EnvFile string
	// ConfigFile is a YAML file that must exist when set.
	ConfigFile string
}

// IsProduction reports whether NODE_ENV is "production".
func (s Settings) IsProduction() bool {
	return s.Environment == ProductionEnvironment
}

// HasDatabaseURL reports whether a connection string was supplied.
func (s Settings) HasDatabaseURL() bool {
	return strings.TrimSpace(s.DatabaseURL) != ""
}

// Load reads settings with precedence: environment > YAML file > .env file > defaults.
func Load(opts Options) (*Settings, error) {
	v := viper.New()
	applyDefaults(v)

	if opts.EnvFile != "" {
		v.SetConfigFile(opts.EnvFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading env file %s: %w", opts.EnvFile, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", opts.ConfigFile, err)
		}
	}

	v.AutomaticEnv()

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling settings: %w", err)
	}

	return &settings, nil
}

// applyDefaults registers every key so AutomaticEnv values reach Unmarshal.
func applyDefaults(v *viper.Viper) {
	for _, key := range []string{
		"database_url",
		"db_ca_cert",
		"db_host",
		"db_port",
		"db_user",
		"db_password",
		"db_password_command",
		"db_name",
		"node_env",
		"log_file",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("db_verify_tls", true)
	v.SetDefault("log_level", "info")
}
