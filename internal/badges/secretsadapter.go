package badges

import (
	"context"
	"errors"

	"github.com/localstack-dotnet/badge-smith/internal/secrets"
)

// SecretTokenResolver adapts a *secrets.Resolver to the TokenResolver
// interface: GitHub packages may be public, so a missing mapping is treated
// as "no token" rather than an error — the fetcher still attempts the
// unauthenticated request.
type SecretTokenResolver struct {
	Secrets *secrets.Resolver
}

// ResolveProviderToken implements TokenResolver.
func (a SecretTokenResolver) ResolveProviderToken(ctx context.Context, provider, org, pkg string) (string, error) {
	record, err := a.Secrets.ResolveProviderToken(ctx, provider, org, pkg)
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(record.Material), nil
}
