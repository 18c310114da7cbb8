package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/localstack-dotnet/badge-smith/internal/badges"
	"github.com/localstack-dotnet/badge-smith/internal/dispatch"
	"github.com/localstack-dotnet/badge-smith/internal/respond"
)

// NuGetBadge serves GET /badges/packages/nuget/{package}.
func (d *Dependencies) NuGetBadge(ctx context.Context, req dispatch.HandlerRequest) (respond.Response, error) {
	pkg, _ := req.Values.Get(req.Path, "package")
	filters := parseFilters(req.Query)

	info, err := d.NuGet.GetLatest(ctx, "", pkg, filters)
	switch {
	case err == nil:
		body := versionBadge("nuget", info.Version, "nuget")
		cache := respond.BadgeDefault()
		if info.Stale {
			cache = respond.UnavailableBadge()
		}
		return respond.Ok(body, cache, time.Time{}, req.Headers["if-none-match"])
	case errors.Is(err, badges.ErrNotFound):
		return respond.Ok(notFoundBadge("nuget"), respond.BadgeDefault(), time.Time{}, "")
	case errors.Is(err, badges.ErrUnavailable):
		return respond.Ok(unavailableBadge("nuget"), respond.UnavailableBadge(), time.Time{}, "")
	default:
		return respond.Response{}, err
	}
}
