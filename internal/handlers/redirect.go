package handlers

import (
	"context"

	"github.com/localstack-dotnet/badge-smith/internal/apierr"
	"github.com/localstack-dotnet/badge-smith/internal/dispatch"
	"github.com/localstack-dotnet/badge-smith/internal/respond"
)

// RedirectTestResults serves GET /redirect/test-results/{platform}/{owner}/{repo}/{branch},
// redirecting to the most recent run's RunURL.
func (d *Dependencies) RedirectTestResults(ctx context.Context, req dispatch.HandlerRequest) (respond.Response, error) {
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
		return respond.Response{}, apierr.New(apierr.KindNotFound, "no test result recorded for this branch")
	}

	return respond.Redirect(record.RunURL, nil), nil
}
