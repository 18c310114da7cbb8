package handlers

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeTestResultsAPI implements testresults.API against an in-memory item,
// standing in for the real DynamoDB table in handler tests.
type fakeTestResultsAPI struct {
	queryItems  []map[string]types.AttributeValue
	queryErr    error
	transactErr error
}

func (f *fakeTestResultsAPI) TransactWriteItems(_ context.Context, _ *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	if f.transactErr != nil {
		return nil, f.transactErr
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeTestResultsAPI) Query(_ context.Context, _ *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &dynamodb.QueryOutput{Items: f.queryItems}, nil
}

type fakeResultItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	GSI1PK         string `dynamodbav:"GSI1PK"`
	GSI1SK         string `dynamodbav:"GSI1SK"`
	TestResultID   string `dynamodbav:"test_result_id"`
	Owner          string `dynamodbav:"owner"`
	Repo           string `dynamodbav:"repo"`
	Platform       string `dynamodbav:"platform"`
	Branch         string `dynamodbav:"branch"`
	RunID          string `dynamodbav:"run_id"`
	Passed         int    `dynamodbav:"passed"`
	Failed         int    `dynamodbav:"failed"`
	Skipped        int    `dynamodbav:"skipped"`
	Total          int    `dynamodbav:"total"`
	RunURL         string `dynamodbav:"run_url"`
	Commit         string `dynamodbav:"commit"`
	TimestampEpoch int64  `dynamodbav:"timestamp_epoch"`
}

func mustMarshalResultItem(t *testing.T, item fakeResultItem) map[string]types.AttributeValue {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		t.Fatalf("marshal fake result item: %v", err)
	}
	return av
}

// errDuplicateCanceled builds the TransactionCanceledException shape
// Store.Put's duplicate-run detection matches against.
func errDuplicateCanceled() error {
	code := "ConditionalCheckFailed"
	return &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: &code}},
	}
}
