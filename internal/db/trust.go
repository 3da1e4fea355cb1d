package db

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"strings"
)

// pemCertificateHeader marks CA text that is already PEM encoded.
const pemCertificateHeader = "-----BEGIN CERTIFICATE-----"

// TrustMode selects how the server certificate is handled.
type TrustMode int

const (
	// TrustDisabled connects in plaintext.
	TrustDisabled TrustMode = iota
	// TrustNoVerify encrypts but accepts any server certificate.
	TrustNoVerify
	// TrustVerify validates the server chain against the supplied CA.
	TrustVerify
)

// String returns the mode name used in logs and CLI output.
func (m TrustMode) String() string {
	switch m {
	case TrustVerify:
		return "verify"
	case TrustNoVerify:
		return "no-verify"
	default:
		return "disabled"
	}
}

// TrustPolicy is the resolved TLS decision for a connection.
// CA is only set when Mode is TrustVerify.
type TrustPolicy struct {
	Mode TrustMode
	CA   string
}

// Verify returns a policy that validates against caPEM.
func Verify(caPEM string) TrustPolicy {
	return TrustPolicy{Mode: TrustVerify, CA: caPEM}
}

// NoVerify returns a policy that encrypts without validating the server.
func NoVerify() TrustPolicy {
	return TrustPolicy{Mode: TrustNoVerify}
}

// Plaintext returns a policy with TLS turned off.
func Plaintext() TrustPolicy {
	return TrustPolicy{Mode: TrustDisabled}
}

// NormalizeCA turns raw CA input into PEM text. PEM input is returned as is;
// anything else is base64-decoded, and text that is not valid base64 is
// returned unmodified. The boolean is false when no CA was provided.
func NormalizeCA(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	if strings.Contains(raw, pemCertificateHeader) {
		return raw, true
	}

	compact := strings.Join(strings.Fields(raw), "")
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		decoded, err := enc.DecodeString(compact)
		if err == nil && len(decoded) > 0 {
			return string(decoded), true
		}
	}

	return raw, true
}

// ResolveTrust picks the policy for a connection. In URL mode a normalized CA
// (empty meaning none) is honored only when verifyTLS is set. In discrete-field
// mode TLS is used without verification in production and disabled otherwise.
func ResolveTrust(mode Mode, ca string, verifyTLS, production bool) TrustPolicy {
	if mode == ModeURL {
		if ca != "" && verifyTLS {
			return Verify(ca)
		}
		return NoVerify()
	}

	if production {
		return NoVerify()
	}
	return Plaintext()
}

// TLSConfig builds the client TLS configuration for the policy.
// It returns nil for TrustDisabled. The second value reports whether the CA
// text contained at least one parseable certificate; when it does not, the
// root pool is left empty so every handshake fails verification.
func (p TrustPolicy) TLSConfig(serverName string) (*tls.Config, bool) {
	switch p.Mode {
	case TrustVerify:
		roots := x509.NewCertPool()
		ok := roots.AppendCertsFromPEM([]byte(p.CA))
		return &tls.Config{
			RootCAs:    roots,
			ServerName: serverName,
			MinVersion: tls.VersionTLS12,
		}, ok
	case TrustNoVerify:
		return &tls.Config{
			InsecureSkipVerify: true,
			ServerName:         serverName,
		}, true
	default:
		return nil, true
	}
}

// EncodeCA base64-encodes PEM certificate text for DB_CA_CERT. It rejects
// input without a parseable certificate.
func EncodeCA(pemText []byte) (string, error) {
	if !strings.Contains(string(pemText), pemCertificateHeader) {
		return "", errors.New("input is not a PEM certificate")
	}
	if !x509.NewCertPool().AppendCertsFromPEM(pemText) {
		return "", errors.New("no parseable certificate in PEM input")
	}
	return base64.StdEncoding.EncodeToString(pemText), nil
}
