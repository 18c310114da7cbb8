// Package noncestore implements C5: a TTL-bounded, first-write-wins set of
// seen HMAC nonces backed by DynamoDB conditional writes.
package noncestore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// API is the slice of the DynamoDB client Store depends on. Narrowing to an
// interface keeps Store testable against a fake without a real AWS endpoint.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// NewClient builds a DynamoDB client for region, optionally pointed at a
// local endpoint override (LocalStack/DynamoDB Local in dev).
func NewClient(ctx context.Context, region, endpointOverride string) (*dynamodb.Client, error) {
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
