package noncestore

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const pkPrefix = "NONCE#"

// Store is C5: an at-most-once-per-ttl set of HMAC nonces.
type Store struct {
	client API
	table  string
}

// New returns a Store backed by client against the named table.
func New(client API, table string) *Store {
	return &Store{client: client, table: table}
}

type nonceItem struct {
	PK             string `dynamodbav:"PK"`
	RepoIdentifier string `dynamodbav:"repoIdentifier"`
	CreatedAt      string `dynamodbav:"createdAt"`
	ExpiresAt      int64  `dynamodbav:"expires_at"`
}

// TryReserve atomically reserves nonce for ttl, bound to repoIdentifier. It
// returns true iff the nonce was previously absent. Any store error is
// fail-closed: the caller must treat it as an InternalError and must not
// treat the nonce as reserved.
func (s *Store) TryReserve(ctx context.Context, nonce, repoIdentifier string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	item := nonceItem{
		PK:             pkPrefix + nonce,
		RepoIdentifier: repoIdentifier,
		CreatedAt:      now.Format(time.RFC3339),
		ExpiresAt:      now.Add(ttl).Unix(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return false, err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.table,
		Item:                av,
		ConditionExpression: conditionNotExists,
	})
	if err != nil {
		var conflict *types.ConditionalCheckFailedException
		if errors.As(err, &conflict) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// IsReserved reports whether nonce is currently present in the store. It
// exists only to support tests; production callers rely on TryReserve's
// return value.
func (s *Store) IsReserved(ctx context.Context, nonce string) (bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.table,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkPrefix + nonce},
		},
		ConsistentRead: boolPtr(true),
	})
	if err != nil {
		return false, err
	}

	return len(out.Item) > 0, nil
}

var conditionNotExists = stringPtr("attribute_not_exists(PK)")

func stringPtr(s string) *string { return &s }
func boolPtr(b bool) *bool       { return &b }
