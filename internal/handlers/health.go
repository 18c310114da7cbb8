package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/localstack-dotnet/badge-smith/internal/dispatch"
	"github.com/localstack-dotnet/badge-smith/internal/respond"
)

const healthPingTimeout = 2 * time.Second

type healthBody struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// DynamoDBPinger is the slice of DynamoDB Health needs to confirm the
// mapping/nonce/results table client can reach the service.
type DynamoDBPinger interface {
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
}

// SecretsManagerPinger is the slice of Secrets Manager Health needs to
// confirm the client can reach the service.
type SecretsManagerPinger interface {
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
}

// Health reports readiness the way the teacher's ReadyzHandler does:
// pinging the DynamoDB and Secrets Manager clients with a short timeout
// rather than answering a bare liveness stub.
func (d *Dependencies) Health(ctx context.Context, _ dispatch.HandlerRequest) (respond.Response, error) {
	pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()

	status := "Healthy"

	if d.DynamoDB != nil {
		if _, err := d.DynamoDB.ListTables(pingCtx, &dynamodb.ListTablesInput{}); err != nil {
			status = "Unhealthy"
		}
	}

	if status == "Healthy" && d.SecretsManager != nil {
		limit := int32(1)
		if _, err := d.SecretsManager.ListSecrets(pingCtx, &secretsmanager.ListSecretsInput{MaxResults: &limit}); err != nil {
			status = "Unhealthy"
		}
	}

	body := healthBody{Status: status, Timestamp: time.Now().UTC().Format(time.RFC3339)}
	resp, err := respond.Ok(body, respond.NoStore(), time.Time{}, "")
	if err != nil {
		return resp, err
	}
	if status != "Healthy" {
		resp.Status = http.StatusServiceUnavailable
	}
	return resp, nil
}
