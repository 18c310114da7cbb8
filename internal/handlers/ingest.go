package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/localstack-dotnet/badge-smith/internal/apierr"
	"github.com/localstack-dotnet/badge-smith/internal/dispatch"
	"github.com/localstack-dotnet/badge-smith/internal/respond"
	"github.com/localstack-dotnet/badge-smith/internal/testresults"
)

type ingestBody struct {
	Platform  string `json:"platform"`
	Branch    string `json:"branch"`
	Passed    int    `json:"passed"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Total     int    `json:"total"`
	RunID     string `json:"run_id"`
	RunURL    string `json:"url_html"`
	Commit    string `json:"commit"`
	Timestamp string `json:"timestamp"`
}

type ingestResponse struct {
	TestResultID string `json:"test_result_id"`
	Repository   string `json:"repository"`
	Timestamp    string `json:"timestamp"`
}

// IngestTestResults serves POST /tests/results. Requires a successful C4
// authentication; the dispatcher guarantees req.Auth is non-nil here.
func (d *Dependencies) IngestTestResults(ctx context.Context, req dispatch.HandlerRequest) (respond.Response, error) {
	var body ingestBody
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return respond.Response{}, apierr.New(apierr.KindValidation, "malformed request body").
			WithDetails(apierr.Detail{Code: "INVALID_BODY"})
	}

	if !allowedPlatforms[body.Platform] {
		return respond.Response{}, apierr.New(apierr.KindValidation, "platform must be one of linux, windows, macos").
			WithDetails(apierr.Detail{Code: "INVALID_PLATFORM", Field: "platform"})
	}
	if body.Branch == "" {
		return respond.Response{}, apierr.New(apierr.KindValidation, "branch is required").
			WithDetails(apierr.Detail{Code: "BRANCH_REQUIRED", Field: "branch"})
	}
	if body.RunID == "" {
		return respond.Response{}, apierr.New(apierr.KindValidation, "run_id is required").
			WithDetails(apierr.Detail{Code: "RUN_ID_REQUIRED", Field: "run_id"})
	}

	ts, err := time.Parse(time.RFC3339, body.Timestamp)
	if err != nil {
		return respond.Response{}, apierr.New(apierr.KindValidation, "timestamp must be RFC3339").
			WithDetails(apierr.Detail{Code: "INVALID_TIMESTAMP", Field: "timestamp"})
	}

	owner, repo, ok := strings.Cut(req.Auth.RepoIdentifier, "/")
	if !ok {
		return respond.Response{}, apierr.Internal(errors.New("handlers: repo identifier missing owner/repo separator"))
	}

	record := testresults.Record{
		Owner:          owner,
		Repo:           repo,
		Platform:       body.Platform,
		Branch:         body.Branch,
		RunID:          body.RunID,
		Passed:         body.Passed,
		Failed:         body.Failed,
		Skipped:        body.Skipped,
		Total:          body.Total,
		RunURL:         body.RunURL,
		Commit:         body.Commit,
		TimestampEpoch: ts.Unix(),
	}

	id, err := d.TestResults.Put(ctx, record)
	if err != nil {
		if errors.Is(err, testresults.ErrDuplicateRun) {
			return respond.Response{}, apierr.New(apierr.KindConflict, "test result for this run was already ingested").
				WithDetails(apierr.Detail{Code: "DUPLICATE_RUN"})
		}
		return respond.Response{}, apierr.Internal(err)
	}

	return respond.Created(ingestResponse{
		TestResultID: id,
		Repository:   req.Auth.RepoIdentifier,
		Timestamp:    ts.UTC().Format(time.RFC3339),
	}, "")
}
