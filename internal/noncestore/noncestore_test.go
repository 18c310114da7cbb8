package noncestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeClient is a minimal in-memory stand-in for the DynamoDB API, keyed by
// the PK attribute. It reproduces the one behavior Store depends on:
// PutItem's ConditionExpression failing with ConditionalCheckFailedException
// when the key already exists.
type fakeClient struct {
	items   map[string]map[string]types.AttributeValue
	putErr  error
	getErr  error
	putCall int
}

func newFakeClient() *fakeClient {
	return &fakeClient{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putCall++
	if f.putErr != nil {
		return nil, f.putErr
	}

	pk := params.Item["PK"].(*types.AttributeValueMemberS).Value
	if params.ConditionExpression != nil {
		if _, exists := f.items[pk]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	f.items[pk] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeClient) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}

	pk := params.Key["PK"].(*types.AttributeValueMemberS).Value
	item, ok := f.items[pk]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func TestTryReserve_FirstWriteWins(t *testing.T) {
	client := newFakeClient()
	store := New(client, "nonces")

	ok, err := store.TryReserve(context.Background(), "n1", "owner/repo", 45*time.Minute)
	if err != nil {
		t.Fatalf("TryReserve() error = %v", err)
	}
	if !ok {
		t.Fatal("first TryReserve should succeed")
	}
}

func TestTryReserve_ReplayFails(t *testing.T) {
	client := newFakeClient()
	store := New(client, "nonces")
	ctx := context.Background()

	if ok, err := store.TryReserve(ctx, "n1", "owner/repo", time.Minute); err != nil || !ok {
		t.Fatalf("first reservation failed: ok=%v err=%v", ok, err)
	}

	ok, err := store.TryReserve(ctx, "n1", "owner/repo", time.Minute)
	if err != nil {
		t.Fatalf("replay TryReserve() error = %v, want nil", err)
	}
	if ok {
		t.Fatal("replayed nonce must not be reserved twice")
	}
}

func TestTryReserve_DistinctNoncesBothSucceed(t *testing.T) {
	client := newFakeClient()
	store := New(client, "nonces")
	ctx := context.Background()

	ok1, _ := store.TryReserve(ctx, "n1", "owner/repo", time.Minute)
	ok2, _ := store.TryReserve(ctx, "n2", "owner/repo", time.Minute)

	if !ok1 || !ok2 {
		t.Fatalf("distinct nonces should both reserve: ok1=%v ok2=%v", ok1, ok2)
	}
}

func TestTryReserve_StoreErrorIsFailClosed(t *testing.T) {
	client := newFakeClient()
	client.putErr = errors.New("throughput exceeded")
	store := New(client, "nonces")

	ok, err := store.TryReserve(context.Background(), "n1", "owner/repo", time.Minute)
	if err == nil {
		t.Fatal("expected a store error to propagate")
	}
	if ok {
		t.Fatal("a store error must never report the nonce as reserved")
	}
}

func TestIsReserved(t *testing.T) {
	client := newFakeClient()
	store := New(client, "nonces")
	ctx := context.Background()

	if reserved, _ := store.IsReserved(ctx, "n1"); reserved {
		t.Fatal("unreserved nonce should report false")
	}

	if _, err := store.TryReserve(ctx, "n1", "owner/repo", time.Minute); err != nil {
		t.Fatalf("TryReserve() error = %v", err)
	}

	reserved, err := store.IsReserved(ctx, "n1")
	if err != nil {
		t.Fatalf("IsReserved() error = %v", err)
	}
	if !reserved {
		t.Fatal("reserved nonce should report true")
	}
}

func TestTryReserve_BindsRepoIdentifierAndExpiry(t *testing.T) {
	client := newFakeClient()
	store := New(client, "nonces")

	if _, err := store.TryReserve(context.Background(), "n1", "owner/repo", 45*time.Minute); err != nil {
		t.Fatalf("TryReserve() error = %v", err)
	}

	item := client.items[pkPrefix+"n1"]
	repo := item["repoIdentifier"].(*types.AttributeValueMemberS).Value
	if repo != "owner/repo" {
		t.Errorf("repoIdentifier = %q, want owner/repo", repo)
	}

	expiresN := item["expires_at"].(*types.AttributeValueMemberN).Value
	if expiresN == "" {
		t.Fatal("expires_at attribute missing")
	}
}
