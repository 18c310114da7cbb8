// Package testresults implements C8: an idempotent, durable write path for
// CI test-result ingestion, plus a latest-result query per
// (owner, repo, platform, branch).
package testresults

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/oklog/ulid/v2"
)

// ErrDuplicateRun is returned when (owner, repo, runId) was already
// accepted within the run-seen marker's TTL window.
var ErrDuplicateRun = errors.New("testresults: duplicate run")

const runSeenTTL = 45 * time.Minute

// Record is the durable unit C8 persists and queries.
type Record struct {
	TestResultID   string
	Owner          string
	Repo           string
	Platform       string // linux | windows | macos
	Branch         string
	RunID          string
	Passed         int
	Failed         int
	Skipped        int
	Total          int
	RunURL         string
	Commit         string
	TimestampEpoch int64
}

// Store is C8.
type Store struct {
	client          API
	tableName       string
	latestIndexName string
}

// New returns a Store backed by client against table, querying latestIndex
// for GetLatest.
func New(client API, table, latestIndex string) *Store {
	return &Store{client: client, tableName: table, latestIndexName: latestIndex}
}

type resultItem struct {
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

type runSeenItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

func resultPK(owner, repo, platform, branch string) string {
	return fmt.Sprintf("TEST#%s#%s#%s#%s", owner, repo, platform, branch)
}

func resultSK(timestampEpoch int64, runID string) string {
	return fmt.Sprintf("%020d#%s", timestampEpoch, runID)
}

func latestPK(owner, repo, platform, branch string) string {
	return fmt.Sprintf("LATEST#%s#%s#%s#%s", owner, repo, platform, branch)
}

func runSeenPK(owner, repo, runID string) string {
	return fmt.Sprintf("RUNSEEN#%s#%s#%s", owner, repo, runID)
}

// Put generates a new TestResultID and writes record transactionally: a
// run-seen marker (conditional on prior absence) and the result item
// itself. Returns ErrDuplicateRun if (owner, repo, runId) was already
// accepted.
func (s *Store) Put(ctx context.Context, record Record) (string, error) {
	record.TestResultID = ulid.Make().String()
	now := time.Now().UTC()

	marker := runSeenItem{
		PK:        runSeenPK(record.Owner, record.Repo, record.RunID),
		SK:        "MARKER",
		ExpiresAt: now.Add(runSeenTTL).Unix(),
	}
	markerAV, err := attributevalue.MarshalMap(marker)
	if err != nil {
		return "", err
	}

	item := resultItem{
		PK:             resultPK(record.Owner, record.Repo, record.Platform, record.Branch),
		SK:             resultSK(record.TimestampEpoch, record.RunID),
		GSI1PK:         latestPK(record.Owner, record.Repo, record.Platform, record.Branch),
		GSI1SK:         fmt.Sprintf("%020d", record.TimestampEpoch),
		TestResultID:   record.TestResultID,
		Owner:          record.Owner,
		Repo:           record.Repo,
		Platform:       record.Platform,
		Branch:         record.Branch,
		RunID:          record.RunID,
		Passed:         record.Passed,
		Failed:         record.Failed,
		Skipped:        record.Skipped,
		Total:          record.Total,
		RunURL:         record.RunURL,
		Commit:         record.Commit,
		TimestampEpoch: record.TimestampEpoch,
	}
	itemAV, err := attributevalue.MarshalMap(item)
	if err != nil {
		return "", err
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           &s.tableName,
					Item:                markerAV,
					ConditionExpression: stringPtr("attribute_not_exists(PK)"),
				},
			},
			{
				Put: &types.Put{
					TableName: &s.tableName,
					Item:      itemAV,
				},
			},
		},
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) && hasConditionalFailure(canceled.CancellationReasons) {
			return "", ErrDuplicateRun
		}
		return "", err
	}

	return record.TestResultID, nil
}

func hasConditionalFailure(reasons []types.CancellationReason) bool {
	for _, reason := range reasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

// GetLatest returns the most recent result for (owner, repo, platform,
// branch), or nil if none has been recorded.
func (s *Store) GetLatest(ctx context.Context, owner, repo, platform, branch string) (*Record, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.tableName,
		IndexName:              &s.latestIndexName,
		KeyConditionExpression: stringPtr("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: latestPK(owner, repo, platform, branch)},
		},
		ScanIndexForward: boolPtr(false),
		Limit:            int32Ptr(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, nil
	}

	var item resultItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, err
	}

	return &Record{
		TestResultID:   item.TestResultID,
		Owner:          item.Owner,
		Repo:           item.Repo,
		Platform:       item.Platform,
		Branch:         item.Branch,
		RunID:          item.RunID,
		Passed:         item.Passed,
		Failed:         item.Failed,
		Skipped:        item.Skipped,
		Total:          item.Total,
		RunURL:         item.RunURL,
		Commit:         item.Commit,
		TimestampEpoch: item.TimestampEpoch,
	}, nil
}

func stringPtr(s string) *string { return &s }
func boolPtr(b bool) *bool       { return &b }
func int32Ptr(i int32) *int32    { return &i }
