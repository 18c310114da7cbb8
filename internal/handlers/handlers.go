// Package handlers implements the HTTP operations BadgeSmith exposes:
// health, the three badge endpoints, test-result ingestion, and the
// test-result redirect. Each handler is a dispatch.HandlerFunc, registered
// under the HandlerRef constants below.
package handlers

import (
	"github.com/localstack-dotnet/badge-smith/internal/badges"
	"github.com/localstack-dotnet/badge-smith/internal/testresults"
)

// HandlerRef constants key the dispatch registry; a RouteSpec's
// HandlerRef must match one of these exactly.
const (
	RefHealth         = "health"
	RefNuGetBadge     = "nuget_badge"
	RefGitHubBadge    = "github_badge"
	RefTestBadge      = "test_badge"
	RefIngestResults  = "ingest_results"
	RefRedirectResult = "redirect_results"
)

// Dependencies wires the components every handler needs. Built once at
// process startup by the composition root.
type Dependencies struct {
	NuGet          *badges.Resolver
	GitHub         *badges.Resolver
	TestResults    *testresults.Store
	DynamoDB       DynamoDBPinger
	SecretsManager SecretsManagerPinger
}
