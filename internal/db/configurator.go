package db

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/willibrandon/pgconnect/internal/config"
	"github.com/willibrandon/pgconnect/internal/logger"
)

// Handle is the pool surface the configurator holds. *pgxpool.Pool satisfies it.
type Handle interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PoolFactory turns a pool configuration into a Handle.
type PoolFactory func(ctx context.Context, cfg *pgxpool.Config) (Handle, error)

// NewPgxPool is the default PoolFactory. pgxpool connects lazily, so no
// connection is opened until the pool is first used.
func NewPgxPool(ctx context.Context, cfg *pgxpool.Config) (Handle, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Configurator owns a connection pool built from Settings.
type Configurator struct {
	desc    Descriptor
	pool    Handle
	log     *slog.Logger
	out     io.Writer
	factory PoolFactory

	configErr error
}

// Option customizes a Configurator.
type Option func(*Configurator)

// WithPoolFactory replaces the pgxpool constructor.
func WithPoolFactory(f PoolFactory) Option {
	return func(c *Configurator) { c.factory = f }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Configurator) { c.log = l }
}

// WithOutput sets where connectivity reports are printed.
func WithOutput(w io.Writer) Option {
	return func(c *Configurator) { c.out = w }
}

// New selects the connection mode, resolves the trust policy and creates the
// pool. It does not validate eagerly: an unparseable connection string or
// missing discrete fields surface later as connectivity failures. The only
// error it returns comes from the pool factory.
func New(ctx context.Context, s config.Settings, opts ...Option) (*Configurator, error) {
	c := &Configurator{
		out:     os.Stdout,
		factory: NewPgxPool,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.With("component", "db")
	}

	if !s.HasDatabaseURL() && s.Password == "" && s.PasswordCommand != "" {
		password, err := RunPasswordCommand(s.PasswordCommand)
		if err != nil {
			c.log.Warn("Password command failed, continuing without password", "error", err)
		} else {
			s.Password = password
		}
	}

	c.desc = NewDescriptor(s)
	c.logDiagnostics(s.Environment)

	poolConfig, caParsed, err := c.desc.PoolConfig()
	if err != nil {
		c.log.Warn("Connection string could not be parsed; connectivity checks will fail",
			"mode", c.desc.Mode.String())
		c.configErr = err
		c.pool = unusableHandle{err: err}
		return c, nil
	}
	if !caParsed {
		c.log.Warn("CA material holds no parseable certificate; TLS verification will fail")
	}

	pool, err := c.factory(ctx, poolConfig)
	if err != nil {
		c.log.Error("Failed to create connection pool", "error", err)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	c.pool = pool

	return c, nil
}

// logDiagnostics records the non-sensitive connection choices.
func (c *Configurator) logDiagnostics(environment string) {
	summary, err := c.desc.Redacted()

	c.log.Info("Database configuration selected",
		"mode", summary.Mode,
		"environment", environment,
		"ca_provided", summary.CAProvided,
		"trust", summary.Trust,
		"max_conns", summary.MaxConns,
		"idle_timeout", summary.IdleTimeout,
	)

	if err != nil {
		c.log.Warn("Could not derive host from DATABASE_URL", "reason", err.Error())
		return
	}

	if c.desc.Mode == ModeURL {
		c.log.Info("Database endpoint",
			"host", summary.Host,
			"port", summary.Port,
			"pooler", summary.Pooler,
		)
		return
	}

	c.log.Info("Using discrete connection fields",
		"host", summary.Host,
		"port", summary.Port,
		"database", summary.Database,
	)
}

// Pool returns the pool handle.
func (c *Configurator) Pool() Handle {
	return c.pool
}

// Descriptor returns the resolved connection descriptor.
func (c *Configurator) Descriptor() Descriptor {
	return c.desc
}

// Err reports why no pool could be configured. It wraps ErrInvalidConnString
// when the connection string was rejected, and is nil otherwise.
func (c *Configurator) Err() error {
	return c.configErr
}

// Close releases the pool.
func (c *Configurator) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

// unusableHandle stands in for a pool that could not be configured.
// Every operation fails with err.
type unusableHandle struct {
	err error
}

type errRow struct {
	err error
}

func (r errRow) Scan(dest ...any) error { return r.err }

func (h unusableHandle) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{err: h.err}
}

func (h unusableHandle) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, h.err
}

func (h unusableHandle) Ping(ctx context.Context) error { return h.err }

func (h unusableHandle) Close() {}
