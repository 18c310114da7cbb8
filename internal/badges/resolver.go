package badges

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker/v2"
)

const (
	maxAttempts   = 3
	baseBackoff   = 100 * time.Millisecond
	cacheTTL      = 10 * time.Minute
	cacheCapacity = 2048

	breakerFailureThreshold = 5
	breakerCooldown         = 30 * time.Second
)

type cacheEntry struct {
	etag     string
	versions []string
}

// Resolver is C7: it wraps one Fetcher with the infrastructure common to
// every upstream — conditional-GET caching, bounded retry, and a per-key
// circuit breaker — so nuget.Fetcher and github.Fetcher only implement
// the wire format.
type Resolver struct {
	fetcher Fetcher
	tokens  TokenResolver

	cache    *expirable.LRU[string, cacheEntry]
	breakers map[string]*gobreaker.CircuitBreaker[FetchResult]
}

// New returns a Resolver for fetcher. tokens may be nil for providers that
// never authenticate (NuGet).
func New(fetcher Fetcher, tokens TokenResolver) *Resolver {
	return &Resolver{
		fetcher:  fetcher,
		tokens:   tokens,
		cache:    expirable.NewLRU[string, cacheEntry](cacheCapacity, nil, cacheTTL),
		breakers: make(map[string]*gobreaker.CircuitBreaker[FetchResult]),
	}
}

func (r *Resolver) breakerFor(key string) *gobreaker.CircuitBreaker[FetchResult] {
	if cb, ok := r.breakers[key]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[FetchResult](gobreaker.Settings{
		Name:        r.fetcher.Name() + ":" + key,
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUpstreamNotFound)
		},
	})
	r.breakers[key] = cb
	return cb
}

// GetLatest resolves the highest version satisfying filters for (org, pkg).
func (r *Resolver) GetLatest(ctx context.Context, org, pkg string, filters Filters) (PackageInfo, error) {
	key := org + "#" + pkg
	cached, hasCache := r.cache.Get(key)

	var token string
	if r.fetcher.RequiresToken() && r.tokens != nil {
		t, err := r.tokens.ResolveProviderToken(ctx, r.fetcher.Name(), org, pkg)
		if err == nil {
			token = t
		}
	}

	cb := r.breakerFor(key)
	result, err := cb.Execute(func() (FetchResult, error) {
		return r.fetchWithRetry(ctx, org, pkg, cached.etag, token)
	})

	if err != nil {
		if errors.Is(err, ErrUpstreamNotFound) {
			return PackageInfo{}, ErrNotFound
		}
		if hasCache {
			version, selectErr := SelectVersion(cached.versions, filters)
			if selectErr != nil {
				return PackageInfo{}, selectErr
			}
			return PackageInfo{Version: version, Stale: true}, nil
		}
		return PackageInfo{}, ErrUnavailable
	}

	versions := result.Versions
	if result.NotModified {
		versions = cached.versions
	} else {
		r.cache.Add(key, cacheEntry{etag: result.ETag, versions: result.Versions})
	}

	version, err := SelectVersion(versions, filters)
	if err != nil {
		return PackageInfo{}, err
	}
	return PackageInfo{Version: version}, nil
}

// fetchWithRetry retries transient (429/5xx/network) failures up to
// maxAttempts with exponential backoff. A terminal error (e.g.
// ErrUpstreamNotFound, or a non-retryable 4xx) returns immediately.
func (r *Resolver) fetchWithRetry(ctx context.Context, org, pkg, etag, token string) (FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return FetchResult{}, ctx.Err()
			case <-time.After(baseBackoff << uint(attempt-1)):
			}
		}

		result, err := r.fetcher.Fetch(ctx, org, pkg, etag, token)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return FetchResult{}, err
		}
	}
	return FetchResult{}, lastErr
}
