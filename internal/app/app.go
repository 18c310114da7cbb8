// Package app is the composition root shared by every transport entry
// point (cmd/badge-smith-lambda, cmd/badge-smith-server): it builds every
// process-wide singleton exactly once — AWS clients, the secret and nonce
// stores, the upstream badge resolvers, the route table — and wires them
// into a single dispatch.Dispatcher.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/localstack-dotnet/badge-smith/internal/badges"
	"github.com/localstack-dotnet/badge-smith/internal/badges/github"
	"github.com/localstack-dotnet/badge-smith/internal/badges/nuget"
	"github.com/localstack-dotnet/badge-smith/internal/config"
	"github.com/localstack-dotnet/badge-smith/internal/cors"
	"github.com/localstack-dotnet/badge-smith/internal/dispatch"
	"github.com/localstack-dotnet/badge-smith/internal/handlers"
	"github.com/localstack-dotnet/badge-smith/internal/hmacauth"
	"github.com/localstack-dotnet/badge-smith/internal/noncestore"
	"github.com/localstack-dotnet/badge-smith/internal/router"
	"github.com/localstack-dotnet/badge-smith/internal/secrets"
	"github.com/localstack-dotnet/badge-smith/internal/testresults"
)

// routeSpecs lists every route most-specific-first, matching spec.md §6's
// HTTP surface table.
func routeSpecs() []router.RouteSpec {
	return []router.RouteSpec{
		{Name: "health", Method: "GET", Path: "/health", HandlerRef: handlers.RefHealth},
		{Name: "nuget_badge", Method: "GET", Path: "/badges/packages/nuget/{package}", HandlerRef: handlers.RefNuGetBadge},
		{Name: "github_badge", Method: "GET", Path: "/badges/packages/github/{org?}/{package}", HandlerRef: handlers.RefGitHubBadge},
		{Name: "test_badge", Method: "GET", Path: "/badges/tests/{platform}/{owner}/{repo}/{branch}", HandlerRef: handlers.RefTestBadge},
		{Name: "ingest_results", Method: "POST", Path: "/tests/results", RequiresAuth: true, HandlerRef: handlers.RefIngestResults},
		{Name: "redirect_results", Method: "GET", Path: "/redirect/test-results/{platform}/{owner}/{repo}/{branch}", HandlerRef: handlers.RefRedirectResult},
	}
}

// corsConfig derives a cors.Config from cfg.CORSAllowedOrigins: "*" (the
// default) selects public mode; any explicit origin list selects
// credentialed mode with an exact-match predicate.
func corsConfig(cfg *config.Config) cors.Config {
	for _, origin := range cfg.CORSAllowedOrigins {
		if origin == "*" {
			return cors.Config{Mode: cors.ModePublic}
		}
	}

	allowed := make(map[string]bool, len(cfg.CORSAllowedOrigins))
	for _, origin := range cfg.CORSAllowedOrigins {
		allowed[strings.ToLower(origin)] = true
	}

	return cors.Config{
		Mode: cors.ModeCredentialed,
		OriginAllowed: func(origin string) bool {
			return allowed[strings.ToLower(origin)]
		},
	}
}

// Build wires every BadgeSmith singleton and returns the shared dispatcher.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dispatch.Dispatcher, error) {
	nonceDB, err := noncestore.NewClient(ctx, cfg.AWSRegion, cfg.KVEndpointOverride)
	if err != nil {
		return nil, fmt.Errorf("app: building nonce store client: %w", err)
	}
	nonceStore := noncestore.New(nonceDB, cfg.NonceTableName)

	secretsDB, err := secrets.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.KVEndpointOverride)
	if err != nil {
		return nil, fmt.Errorf("app: building secrets mapping client: %w", err)
	}
	secretsManagerClient, err := secrets.NewSecretsManagerClient(ctx, cfg.AWSRegion, cfg.KVEndpointOverride)
	if err != nil {
		return nil, fmt.Errorf("app: building secrets manager client: %w", err)
	}
	secretsResolver, err := secrets.New(secretsDB, secretsManagerClient, cfg.SecretsTableName, cfg.SecretCacheEncryptKey)
	if err != nil {
		return nil, fmt.Errorf("app: building secret resolver: %w", err)
	}

	authenticator := &hmacauth.Authenticator{
		Nonces:    nonceStore,
		Secrets:   secretsResolver,
		ClockSkew: cfg.ClockSkew,
		NonceTTL:  cfg.NonceTTL,
	}

	nugetResolver := badges.New(nuget.New(cfg.NuGetBaseURL, cfg.UpstreamTimeout), nil)
	githubResolver := badges.New(
		github.New(cfg.GitHubBaseURL, "container", cfg.UpstreamTimeout),
		badges.SecretTokenResolver{Secrets: secretsResolver},
	)

	testResultsDB, err := testresults.NewClient(ctx, cfg.AWSRegion, cfg.KVEndpointOverride)
	if err != nil {
		return nil, fmt.Errorf("app: building test results client: %w", err)
	}
	testResultsStore := testresults.New(testResultsDB, cfg.TestResultsTableName, cfg.TestResultsGSIName)

	deps := &handlers.Dependencies{
		NuGet:          nugetResolver,
		GitHub:         githubResolver,
		TestResults:    testResultsStore,
		DynamoDB:       secretsDB,
		SecretsManager: secretsManagerClient,
	}

	return &dispatch.Dispatcher{
		Routes: router.NewRouteTable(routeSpecs()),
		Auth:   authenticator,
		CORS:   corsConfig(cfg),
		Logger: logger,
		Handlers: map[string]dispatch.HandlerFunc{
			handlers.RefHealth:         deps.Health,
			handlers.RefNuGetBadge:     deps.NuGetBadge,
			handlers.RefGitHubBadge:    deps.GitHubBadge,
			handlers.RefTestBadge:      deps.TestBadge,
			handlers.RefIngestResults:  deps.IngestTestResults,
			handlers.RefRedirectResult: deps.RedirectTestResults,
		},
		ScratchSize: 4,
	}, nil
}
