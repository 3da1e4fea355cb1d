package db

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/willibrandon/pgconnect/internal/config"
)

// Pool defaults applied in both connection modes.
const (
	DefaultMaxConns        int32 = 10
	DefaultMaxConnIdleTime       = 10 * time.Second
	DefaultPort                  = 5432

	applicationName = "pgconnect"
	poolerHostMark  = "pooler.supabase.com"
)

// ErrInvalidConnString is returned when pgx cannot parse the connection string.
var ErrInvalidConnString = errors.New("invalid connection string")

// Mode is the connection configuration source.
type Mode int

const (
	// ModeFields builds the connection from DB_HOST, DB_PORT and friends.
	ModeFields Mode = iota
	// ModeURL uses DATABASE_URL as is.
	ModeURL
)

func (m Mode) String() string {
	if m == ModeURL {
		return "url"
	}
	return "fields"
}

// PoolParams are the pool limits handed to pgxpool.
type PoolParams struct {
	MaxConns        int32
	MaxConnIdleTime time.Duration
}

// DefaultPoolParams returns max 10 connections with a 10s idle timeout.
func DefaultPoolParams() PoolParams {
	return PoolParams{
		MaxConns:        DefaultMaxConns,
		MaxConnIdleTime: DefaultMaxConnIdleTime,
	}
}

// Descriptor is the resolved connection description. Exactly one of URL or
// the discrete fields is populated, depending on Mode.
type Descriptor struct {
	Mode       Mode
	URL        string
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	CAProvided bool
	Trust      TrustPolicy
	Pool       PoolParams
}

// NewDescriptor selects the connection mode and trust policy for s.
func NewDescriptor(s config.Settings) Descriptor {
	d := Descriptor{Pool: DefaultPoolParams()}

	ca, ok := NormalizeCA(s.CACert)
	d.CAProvided = ok

	if s.HasDatabaseURL() {
		d.Mode = ModeURL
		d.URL = strings.TrimSpace(s.DatabaseURL)
		d.Trust = ResolveTrust(ModeURL, ca, s.VerifyTLS, s.IsProduction())
		return d
	}

	d.Mode = ModeFields
	d.Host = s.Host
	d.Port = parsePort(s.Port)
	d.User = s.User
	d.Password = s.Password
	d.Database = s.Database
	d.Trust = ResolveTrust(ModeFields, "", s.VerifyTLS, s.IsProduction())
	return d
}

// parsePort falls back to DefaultPort for empty, non-numeric or non-positive input.
func parsePort(raw string) int {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || port <= 0 {
		return DefaultPort
	}
	return port
}

// connString returns the string handed to pgxpool.ParseConfig.
func (d Descriptor) connString() string {
	if d.Mode == ModeURL {
		return d.URL
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Database,
	}
	switch {
	case d.Password != "":
		u.User = url.UserPassword(d.User, d.Password)
	case d.User != "":
		u.User = url.User(d.User)
	}
	u.RawQuery = "sslmode=disable"
	return u.String()
}

// PoolConfig builds the pgxpool configuration. The trust policy replaces any
// sslmode carried by the connection string, except for Unix sockets, which
// never use TLS. The boolean is false when a verify policy holds no
// parseable certificate.
func (d Descriptor) PoolConfig() (*pgxpool.Config, bool, error) {
	cfg, err := pgxpool.ParseConfig(d.connString())
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrInvalidConnString, err)
	}

	cfg.MaxConns = d.Pool.MaxConns
	cfg.MinConns = 0
	cfg.MaxConnIdleTime = d.Pool.MaxConnIdleTime
	if cfg.ConnConfig.RuntimeParams["application_name"] == "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	tlsConfig, caParsed := d.tlsConfigFor(cfg.ConnConfig.Host)
	cfg.ConnConfig.TLSConfig = tlsConfig
	cfg.ConnConfig.Fallbacks = d.fallbacks(cfg.ConnConfig)

	return cfg, caParsed, nil
}

// fallbacks keeps one entry per additional host and applies the trust policy
// to each, dropping the plaintext retries pgconn adds for sslmode=prefer.
func (d Descriptor) fallbacks(cc *pgx.ConnConfig) []*pgconn.FallbackConfig {
	seen := map[string]bool{net.JoinHostPort(cc.Host, strconv.Itoa(int(cc.Port))): true}
	var out []*pgconn.FallbackConfig
	for _, fb := range cc.Fallbacks {
		key := net.JoinHostPort(fb.Host, strconv.Itoa(int(fb.Port)))
		if seen[key] {
			continue
		}
		seen[key] = true
		tlsConfig, _ := d.tlsConfigFor(fb.Host)
		out = append(out, &pgconn.FallbackConfig{Host: fb.Host, Port: fb.Port, TLSConfig: tlsConfig})
	}
	return out
}

// tlsConfigFor applies the trust policy to host. Unix socket paths get no TLS.
func (d Descriptor) tlsConfigFor(host string) (*tls.Config, bool) {
	if isUnixSocket(host) {
		return nil, true
	}
	return d.Trust.TLSConfig(host)
}

func isUnixSocket(host string) bool {
	return strings.HasPrefix(host, "/")
}

// Summary is the non-sensitive view of a Descriptor.
type Summary struct {
	Mode        string `json:"mode"`
	Host        string `json:"host,omitempty"`
	Port        string `json:"port,omitempty"`
	Database    string `json:"database,omitempty"`
	Pooler      bool   `json:"pooler"`
	CAProvided  bool   `json:"ca_provided"`
	Trust       string `json:"trust"`
	MaxConns    int32  `json:"max_conns"`
	IdleTimeout string `json:"idle_timeout"`
}

// Redacted returns a summary safe to log or print. It never carries the
// password, the connection string or CA text. In URL mode the error reports
// that host and port could not be derived; the summary is still usable.
func (d Descriptor) Redacted() (Summary, error) {
	s := Summary{
		Mode:        d.Mode.String(),
		CAProvided:  d.CAProvided,
		Trust:       d.Trust.Mode.String(),
		MaxConns:    d.Pool.MaxConns,
		IdleTimeout: d.Pool.MaxConnIdleTime.String(),
	}

	if d.Mode == ModeFields {
		s.Host = d.Host
		s.Port = strconv.Itoa(d.Port)
		s.Database = d.Database
		return s, nil
	}

	host, port, database, err := describeURL(d.URL)
	if err != nil {
		return s, err
	}
	s.Host = host
	s.Port = port
	s.Database = database
	s.Pooler = strings.Contains(host, poolerHostMark)
	return s, nil
}

// describeURL extracts host, port and database from a postgres URL.
// Parse errors are reduced to a fixed message so the URL never leaks.
func describeURL(raw string) (host, port, database string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", "", errors.New("connection string is not a valid URL")
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", "", "", errors.New("connection string is not a postgres URL")
	}
	if u.Hostname() == "" {
		return "", "", "", errors.New("connection string has no host")
	}

	port = u.Port()
	if port == "" {
		port = "default"
	}
	return u.Hostname(), port, strings.TrimPrefix(u.Path, "/"), nil
}
