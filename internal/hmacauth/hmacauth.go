// Package hmacauth implements C4: HMAC-SHA256 request authentication with
// a timestamp skew window and nonce replay protection. Validate never
// reveals which secret, nonce, or substring a failing request matched —
// every failure message is generic.
package hmacauth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/localstack-dotnet/badge-smith/internal/apierr"
	"github.com/localstack-dotnet/badge-smith/internal/secrets"
)

const (
	// DefaultClockSkew is the maximum allowed |now - X-Timestamp| drift.
	DefaultClockSkew = 5 * time.Minute
	// DefaultNonceTTL is how long a reserved nonce blocks a replay.
	DefaultNonceTTL = 45 * time.Minute

	signaturePrefix = "sha256="
)

// NonceReserver is the slice of C5 the authenticator depends on.
type NonceReserver interface {
	TryReserve(ctx context.Context, nonce, repoIdentifier string, ttl time.Duration) (bool, error)
}

// SecretResolver is the slice of C6 the authenticator depends on.
type SecretResolver interface {
	ResolveRepoHMACKey(ctx context.Context, repoIdentifier string) (*secrets.Record, error)
}

// Request is the transport-agnostic input to Validate: the four
// authentication headers plus the exact, unmodified request body bytes.
type Request struct {
	RepoSecret string
	Timestamp  string
	Nonce      string
	Signature  string
	Body       []byte
}

// Authenticated is what Validate returns on success.
type Authenticated struct {
	RepoIdentifier string
	Timestamp      time.Time
	Nonce          string
}

// Authenticator is C4.
type Authenticator struct {
	Nonces    NonceReserver
	Secrets   SecretResolver
	ClockSkew time.Duration
	NonceTTL  time.Duration
	// Now returns the current instant; overridable in tests. Defaults to
	// time.Now when nil.
	Now func() time.Time
}

func (a *Authenticator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Authenticator) clockSkew() time.Duration {
	if a.ClockSkew > 0 {
		return a.ClockSkew
	}
	return DefaultClockSkew
}

func (a *Authenticator) nonceTTL() time.Duration {
	if a.NonceTTL > 0 {
		return a.NonceTTL
	}
	return DefaultNonceTTL
}

// Validate runs the full authentication algorithm: header presence,
// timestamp skew, nonce reservation, secret lookup, signature comparison.
func (a *Authenticator) Validate(ctx context.Context, req Request) (*Authenticated, *apierr.Error) {
	if req.RepoSecret == "" || req.Timestamp == "" || req.Nonce == "" || req.Signature == "" {
		return nil, apierr.New(apierr.KindMissingHeaders, "missing required authentication headers").
			WithDetails(apierr.Detail{Code: "MISSING_HEADERS"})
	}

	ts, ok := parseTimestamp(req.Timestamp)
	if !ok || absDuration(a.now().Sub(ts)) > a.clockSkew() {
		return nil, apierr.New(apierr.KindInvalidTimestamp, "timestamp outside allowed skew window").
			WithDetails(apierr.Detail{Code: "INVALID_TIMESTAMP"})
	}

	reserved, err := a.Nonces.TryReserve(ctx, req.Nonce, req.RepoSecret, a.nonceTTL())
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if !reserved {
		return nil, apierr.New(apierr.KindNonceUsed, "nonce already used").
			WithDetails(apierr.Detail{Code: "NONCE_USED"})
	}

	record, err := a.Secrets.ResolveRepoHMACKey(ctx, req.RepoSecret)
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return nil, apierr.Unauthorized()
		}
		return nil, apierr.Internal(err)
	}

	if !validSignature(record.Material, req.Body, req.Signature) {
		return nil, apierr.New(apierr.KindValidation, "signature verification failed").
			WithDetails(apierr.Detail{Code: "INVALID_SIGNATURE"})
	}

	return &Authenticated{RepoIdentifier: req.RepoSecret, Timestamp: ts, Nonce: req.Nonce}, nil
}

// parseTimestamp requires a UTC RFC 3339 instant (`Z` suffix or an explicit
// zero offset); any non-UTC offset is rejected.
func parseTimestamp(value string) (time.Time, bool) {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	if _, offset := ts.Zone(); offset != 0 {
		return time.Time{}, false
	}
	return ts, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// validSignature recomputes "sha256=" + hex(HMAC-SHA256(key, body)) and
// compares it to provided in constant time, case-insensitive on the hex
// portion.
func validSignature(key, body []byte, provided string) bool {
	if !strings.HasPrefix(strings.ToLower(provided), signaturePrefix) {
		return false
	}
	providedHex := strings.ToLower(provided[len(signaturePrefix):])

	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	expectedHex := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expectedHex), []byte(providedHex))
}
