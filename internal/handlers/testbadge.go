package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/localstack-dotnet/badge-smith/internal/apierr"
	"github.com/localstack-dotnet/badge-smith/internal/dispatch"
	"github.com/localstack-dotnet/badge-smith/internal/respond"
)

var allowedPlatforms = map[string]bool{"linux": true, "windows": true, "macos": true}

func pathParams(req dispatch.HandlerRequest, names ...string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i], _ = req.Values.Get(req.Path, name)
	}
	return out
}

// TestBadge serves GET /badges/tests/{platform}/{owner}/{repo}/{branch}.
func (d *Dependencies) TestBadge(ctx context.Context, req dispatch.HandlerRequest) (respond.Response, error) {
	parts := pathParams(req, "platform", "owner", "repo", "branch")
	platform, owner, repo, branch := parts[0], parts[1], parts[2], parts[3]

	if !allowedPlatforms[platform] {
		return respond.Response{}, apierr.New(apierr.KindValidation, "platform must be one of linux, windows, macos").
			WithDetails(apierr.Detail{Code: "INVALID_PLATFORM", Field: "platform"})
	}

	record, err := d.TestResults.GetLatest(ctx, owner, repo, platform, branch)
	if err != nil {
		return respond.Response{}, err
	}
	if record == nil {
		return respond.Ok(notFoundBadge("tests"), respond.BadgeDefault(), time.Time{}, "")
	}

	color := "brightgreen"
	if record.Failed > 0 {
		color = "red"
	}
	body := badgeBody{
		SchemaVersion: 1,
		Label:         "tests",
		Message:       fmt.Sprintf("%d/%d passed", record.Passed, record.Total),
		Color:         color,
	}
	return respond.Ok(body, respond.BadgeDefault(), time.Time{}, req.Headers["if-none-match"])
}
