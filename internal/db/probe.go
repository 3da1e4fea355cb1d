package db

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgconn"
)

// probeQuery asks the server for its clock.
const probeQuery = "select now()"

// FailureKind classifies a failed probe.
type FailureKind string

const (
	FailureNone    FailureKind = ""
	FailureRefused FailureKind = "refused"
	FailureAuth    FailureKind = "auth"
	FailureTLS     FailureKind = "tls"
	FailureTimeout FailureKind = "timeout"
	FailureConfig  FailureKind = "config"
	FailureOther   FailureKind = "other"
)

// ProbeResult is the outcome of TestConnectivity.
type ProbeResult struct {
	OK         bool          `json:"ok"`
	ServerTime time.Time     `json:"server_time,omitempty"`
	Latency    time.Duration `json:"latency"`
	Kind       FailureKind   `json:"kind,omitempty"`
	Err        string        `json:"error,omitempty"`
}

var (
	okFormat   = color.New(color.FgGreen).SprintFunc()
	failFormat = color.New(color.FgRed).SprintFunc()
)

// TestConnectivity runs a single round-trip query through the pool. It never
// returns an error; failures are reported and reflected in ProbeResult.OK.
// It is safe for concurrent use.
func (c *Configurator) TestConnectivity(ctx context.Context) (result ProbeResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = c.probeFailed(fmt.Errorf("probe panicked: %v", r), time.Since(start))
		}
	}()

	if c.pool == nil {
		return c.probeFailed(errors.New("pool not initialized"), 0)
	}

	var now time.Time
	if err := c.pool.QueryRow(ctx, probeQuery).Scan(&now); err != nil {
		return c.probeFailed(err, time.Since(start))
	}

	result = ProbeResult{OK: true, ServerTime: now, Latency: time.Since(start)}
	c.log.Info("Database connected", "server_time", now, "latency", result.Latency)
	fmt.Fprintf(c.out, "%s %s\n", okFormat("Database connected!"), now.Format(time.RFC3339Nano))
	return result
}

func (c *Configurator) probeFailed(err error, latency time.Duration) ProbeResult {
	kind := classifyError(err)
	c.log.Error("Database connectivity check failed", "kind", string(kind), "error", err)
	fmt.Fprintf(c.out, "%s (%s): %v\n", failFormat("Could not connect to the database"), kind, err)
	return ProbeResult{OK: false, Latency: latency, Kind: kind, Err: err.Error()}
}

// classifyError maps a connection or query error onto a FailureKind.
func classifyError(err error) FailureKind {
	if err == nil {
		return FailureNone
	}

	if errors.Is(err, ErrInvalidConnString) {
		return FailureConfig
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 28: invalid authorization specification.
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "28" {
			return FailureAuth
		}
		return FailureOther
	}

	var (
		certErr     *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		recordErr   tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &certErr), errors.As(err, &unknownAuth), errors.As(err, &hostErr), errors.As(err, &recordErr):
		return FailureTLS
	case errors.Is(err, syscall.ECONNREFUSED):
		return FailureRefused
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	return FailureOther
}
