package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/localstack-dotnet/badge-smith/internal/apierr"
	"github.com/localstack-dotnet/badge-smith/internal/dispatch"
	"github.com/localstack-dotnet/badge-smith/internal/hmacauth"
	"github.com/localstack-dotnet/badge-smith/internal/testresults"
)

func ingestRequest(body string, auth *hmacauth.Authenticated) dispatch.HandlerRequest {
	return dispatch.HandlerRequest{Body: []byte(body), Auth: auth, Headers: map[string]string{}}
}

func TestIngestTestResults_MalformedBody(t *testing.T) {
	deps := &Dependencies{TestResults: testresults.New(&fakeTestResultsAPI{}, "results", "gsi-latest")}

	_, err := deps.IngestTestResults(context.Background(), ingestRequest("not json", &hmacauth.Authenticated{RepoIdentifier: "localstack-dotnet/localstack.client"}))

	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err is not *apierr.Error: %v", err)
	}
	if apiErr.Details[0].Code != "INVALID_BODY" {
		t.Errorf("Details = %+v, want INVALID_BODY", apiErr.Details)
	}
}

func TestIngestTestResults_InvalidPlatform(t *testing.T) {
	deps := &Dependencies{TestResults: testresults.New(&fakeTestResultsAPI{}, "results", "gsi-latest")}
	body := `{"platform":"plan9","branch":"main","run_id":"42","timestamp":"2026-07-31T00:00:00Z"}`

	_, err := deps.IngestTestResults(context.Background(), ingestRequest(body, &hmacauth.Authenticated{RepoIdentifier: "localstack-dotnet/localstack.client"}))

	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err is not *apierr.Error: %v", err)
	}
	if apiErr.Details[0].Code != "INVALID_PLATFORM" {
		t.Errorf("Details = %+v, want INVALID_PLATFORM", apiErr.Details)
	}
}

func TestIngestTestResults_MissingRunID(t *testing.T) {
	deps := &Dependencies{TestResults: testresults.New(&fakeTestResultsAPI{}, "results", "gsi-latest")}
	body := `{"platform":"linux","branch":"main","timestamp":"2026-07-31T00:00:00Z"}`

	_, err := deps.IngestTestResults(context.Background(), ingestRequest(body, &hmacauth.Authenticated{RepoIdentifier: "localstack-dotnet/localstack.client"}))

	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err is not *apierr.Error: %v", err)
	}
	if apiErr.Details[0].Code != "RUN_ID_REQUIRED" {
		t.Errorf("Details = %+v, want RUN_ID_REQUIRED", apiErr.Details)
	}
}

func TestIngestTestResults_InvalidTimestamp(t *testing.T) {
	deps := &Dependencies{TestResults: testresults.New(&fakeTestResultsAPI{}, "results", "gsi-latest")}
	body := `{"platform":"linux","branch":"main","run_id":"42","timestamp":"not-a-time"}`

	_, err := deps.IngestTestResults(context.Background(), ingestRequest(body, &hmacauth.Authenticated{RepoIdentifier: "localstack-dotnet/localstack.client"}))

	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err is not *apierr.Error: %v", err)
	}
	if apiErr.Details[0].Code != "INVALID_TIMESTAMP" {
		t.Errorf("Details = %+v, want INVALID_TIMESTAMP", apiErr.Details)
	}
}

func TestIngestTestResults_Success(t *testing.T) {
	deps := &Dependencies{TestResults: testresults.New(&fakeTestResultsAPI{}, "results", "gsi-latest")}
	body := `{"platform":"linux","branch":"main","run_id":"42","passed":10,"total":10,"timestamp":"2026-07-31T00:00:00Z"}`

	resp, err := deps.IngestTestResults(context.Background(), ingestRequest(body, &hmacauth.Authenticated{RepoIdentifier: "localstack-dotnet/localstack.client"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != http.StatusCreated {
		t.Fatalf("Status = %d, want %d", resp.Status, http.StatusCreated)
	}

	var out ingestResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.TestResultID == "" {
		t.Error("TestResultID is empty")
	}
	if out.Repository != "localstack-dotnet/localstack.client" {
		t.Errorf("Repository = %q, want %q", out.Repository, "localstack-dotnet/localstack.client")
	}
}

func TestIngestTestResults_DuplicateRunReturnsConflict(t *testing.T) {
	deps := &Dependencies{TestResults: testresults.New(&fakeTestResultsAPI{transactErr: errDuplicateCanceled()}, "results", "gsi-latest")}
	body := `{"platform":"linux","branch":"main","run_id":"42","timestamp":"2026-07-31T00:00:00Z"}`

	_, err := deps.IngestTestResults(context.Background(), ingestRequest(body, &hmacauth.Authenticated{RepoIdentifier: "localstack-dotnet/localstack.client"}))

	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err is not *apierr.Error: %v", err)
	}
	if apiErr.Kind != apierr.KindConflict {
		t.Errorf("Kind = %v, want %v", apiErr.Kind, apierr.KindConflict)
	}
	if apiErr.Details[0].Code != "DUPLICATE_RUN" {
		t.Errorf("Details = %+v, want DUPLICATE_RUN", apiErr.Details)
	}
}

func TestIngestTestResults_MalformedRepoIdentifierIsInternalError(t *testing.T) {
	deps := &Dependencies{TestResults: testresults.New(&fakeTestResultsAPI{}, "results", "gsi-latest")}
	body := `{"platform":"linux","branch":"main","run_id":"42","timestamp":"2026-07-31T00:00:00Z"}`

	_, err := deps.IngestTestResults(context.Background(), ingestRequest(body, &hmacauth.Authenticated{RepoIdentifier: "no-separator"}))

	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err is not *apierr.Error: %v", err)
	}
	if apiErr.Kind != apierr.KindInternal {
		t.Errorf("Kind = %v, want %v", apiErr.Kind, apierr.KindInternal)
	}
}
