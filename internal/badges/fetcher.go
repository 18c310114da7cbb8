package badges

import (
	"context"
	"errors"
)

// ErrUpstreamNotFound marks a terminal 404 from the upstream (package or
// org does not exist) — never retried, never counted against the breaker.
var ErrUpstreamNotFound = errors.New("badges: upstream not found")

// FetchResult is what a Fetcher returns for one upstream round trip.
type FetchResult struct {
	NotModified bool
	ETag        string
	Versions    []string
}

// Fetcher is the provider-specific slice of C7: building the upstream
// request, authenticating if required, and parsing the version list out of
// the response body. Conditional-GET, retry, breaker, and cache behavior
// are common infrastructure owned by Resolver, not the Fetcher.
type Fetcher interface {
	Name() string
	RequiresToken() bool
	Fetch(ctx context.Context, org, pkg, etag, token string) (FetchResult, error)
}

// TokenResolver supplies the provider token a Fetcher needs, if any.
type TokenResolver interface {
	ResolveProviderToken(ctx context.Context, provider, org, pkg string) (string, error)
}
