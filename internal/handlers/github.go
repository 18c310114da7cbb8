package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/localstack-dotnet/badge-smith/internal/apierr"
	"github.com/localstack-dotnet/badge-smith/internal/badges"
	"github.com/localstack-dotnet/badge-smith/internal/dispatch"
	"github.com/localstack-dotnet/badge-smith/internal/respond"
)

// GitHubBadge serves GET /badges/packages/github/{org?}/{package}. An
// empty org segment route-matches (the router's {org?} param) so this
// handler, not C1, issues the ORG_REQUIRED validation error.
func (d *Dependencies) GitHubBadge(ctx context.Context, req dispatch.HandlerRequest) (respond.Response, error) {
	org, _ := req.Values.Get(req.Path, "org")
	if org == "" {
		return respond.Response{}, apierr.New(apierr.KindValidation, "Organization is required for GitHub provider").
			WithDetails(apierr.Detail{Code: "ORG_REQUIRED", Field: "org"})
	}

	pkg, _ := req.Values.Get(req.Path, "package")
	filters := parseFilters(req.Query)

	info, err := d.GitHub.GetLatest(ctx, org, pkg, filters)
	switch {
	case err == nil:
		body := versionBadge("github", info.Version, "github")
		cache := respond.BadgeDefault()
		if info.Stale {
			cache = respond.UnavailableBadge()
		}
		return respond.Ok(body, cache, time.Time{}, req.Headers["if-none-match"])
	case errors.Is(err, badges.ErrNotFound):
		return respond.Ok(notFoundBadge("github"), respond.BadgeDefault(), time.Time{}, "")
	case errors.Is(err, badges.ErrUnavailable):
		return respond.Ok(unavailableBadge("github"), respond.UnavailableBadge(), time.Time{}, "")
	default:
		return respond.Response{}, err
	}
}
