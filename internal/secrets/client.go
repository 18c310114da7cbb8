package secrets

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// MappingAPI is the slice of DynamoDB Resolver needs to turn a logical
// secret key into a Secrets Manager reference.
type MappingAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// SecretsManagerAPI is the slice of Secrets Manager Resolver needs to fetch
// the actual key/token material.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// NewDynamoDBClient builds a DynamoDB client, optionally pointed at a local
// endpoint override (LocalStack/DynamoDB Local in dev).
func NewDynamoDBClient(ctx context.Context, region, endpointOverride string) (*dynamodb.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpointOverride != "" {
			o.BaseEndpoint = aws.String(endpointOverride)
		}
	}), nil
}

// NewSecretsManagerClient builds a Secrets Manager client, optionally
// pointed at a local endpoint override.
func NewSecretsManagerClient(ctx context.Context, region, endpointOverride string) (*secretsmanager.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}

	return secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if endpointOverride != "" {
			o.BaseEndpoint = aws.String(endpointOverride)
		}
	}), nil
}
