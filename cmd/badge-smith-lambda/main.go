// Package main is the AWS Lambda entry point for badge-smith, invoked
// behind an API Gateway HTTP API. It shares internal/app.Build with
// cmd/badge-smith-server so both transports run the identical dispatcher.
package main

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/localstack-dotnet/badge-smith/internal/app"
	"github.com/localstack-dotnet/badge-smith/internal/config"
	"github.com/localstack-dotnet/badge-smith/internal/dispatch"
	"github.com/localstack-dotnet/badge-smith/internal/logging"
	"github.com/localstack-dotnet/badge-smith/internal/respond"
	"github.com/localstack-dotnet/badge-smith/internal/version"
)

var (
	logger     = logging.SetDefault()
	dispatcher *dispatch.Dispatcher
)

func init() {
	v := version.Get()
	logger.Info("starting badge-smith-lambda",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	dispatcher, err = app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
}

func main() {
	lambda.Start(handle)
}

func handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = logging.WithRequestID(ctx, event.RequestContext.RequestID)
	resp := dispatcher.Dispatch(ctx, toDispatchRequest(event))
	return toProxyResponse(resp), nil
}

func toDispatchRequest(event events.APIGatewayProxyRequest) dispatch.Request {
	headers := make(map[string]string, len(event.Headers))
	for name, value := range event.Headers {
		headers[strings.ToLower(name)] = value
	}

	query := make(url.Values, len(event.QueryStringParameters))
	for key, value := range event.QueryStringParameters {
		query.Set(key, value)
	}

	return dispatch.Request{
		Method:  event.HTTPMethod,
		Path:    event.Path,
		Query:   query,
		Headers: headers,
		Body:    []byte(event.Body),
		Origin:  headers["origin"],
	}
}

func toProxyResponse(resp respond.Response) events.APIGatewayProxyResponse {
	headers := make(map[string]string, len(resp.Headers))
	for name := range resp.Headers {
		headers[name] = resp.Headers.Get(name)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: resp.Status,
		Headers:    headers,
		Body:       string(resp.Body),
	}
}
