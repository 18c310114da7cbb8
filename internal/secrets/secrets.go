// Package secrets implements C6: per-(provider, org) token and per-repo HMAC
// key lookup, backed by a DynamoDB mapping table and Secrets Manager, with
// an in-process TTL cache (positive and negative) and single-flight
// coalescing so a cache miss never fans out into a Secrets Manager stampede.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// ErrSecretNotFound is returned when no mapping entry (or no backing secret)
// exists for the requested key. Callers must treat this identically to an
// authentication failure — never reveal which lookup missed.
var ErrSecretNotFound = errors.New("secrets: not found")

// Kind distinguishes the two shapes of secret material BadgeSmith resolves.
type Kind string

const (
	KindRepoHMACKey   Kind = "repoHmacKey"
	KindProviderToken Kind = "providerToken"
)

// Record is a resolved piece of secret material. Material is opaque and
// must never be logged.
type Record struct {
	Kind     Kind
	Identity string
	Material []byte
	NotAfter *time.Time
}

const (
	positiveTTL   = time.Hour
	negativeTTL   = 60 * time.Second
	cacheCapacity = 1024
)

// mappingItem is the DynamoDB row that points a logical secret key at its
// Secrets Manager identifier.
type mappingItem struct {
	PK       string `dynamodbav:"PK"`
	SecretID string `dynamodbav:"secretId"`
}

// secretMaterial is the JSON shape stored inside the Secrets Manager value:
// exactly one of HMACKey or Token is populated.
type secretMaterial struct {
	HMACKey string `json:"hmac_key,omitempty"`
	Token   string `json:"token,omitempty"`
	Type    string `json:"type,omitempty"`
}

// Resolver is C6.
type Resolver struct {
	mapping        MappingAPI
	secretsManager SecretsManagerAPI
	cipher         *cacheCipher
	mappingTable   string

	positive *expirable.LRU[string, string]
	negative *expirable.LRU[string, struct{}]
	group    singleflight.Group
}

// New returns a Resolver. encryptionKey must be 32 bytes (AES-256); callers
// derive it via config.Load's HKDF step.
func New(mapping MappingAPI, secretsManager SecretsManagerAPI, mappingTable string, encryptionKey []byte) (*Resolver, error) {
	cipher, err := newCacheCipher(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("secrets: building cache cipher: %w", err)
	}

	return &Resolver{
		mapping:        mapping,
		secretsManager: secretsManager,
		cipher:         cipher,
		mappingTable:   mappingTable,
		positive:       expirable.NewLRU[string, string](cacheCapacity, nil, positiveTTL),
		negative:       expirable.NewLRU[string, struct{}](cacheCapacity, nil, negativeTTL),
	}, nil
}

// ResolveRepoHMACKey looks up the HMAC signing key bound to repoIdentifier
// (the literal `X-Repo-Secret` header value, e.g. "owner/repo").
func (r *Resolver) ResolveRepoHMACKey(ctx context.Context, repoIdentifier string) (*Record, error) {
	key := "SECRET#repo#" + repoIdentifier
	material, err := r.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	if material.HMACKey == "" {
		return nil, ErrSecretNotFound
	}
	return &Record{Kind: KindRepoHMACKey, Identity: repoIdentifier, Material: []byte(material.HMACKey)}, nil
}

// ResolveProviderToken looks up the upstream API token for (provider, org),
// optionally narrowed to a specific package.
func (r *Resolver) ResolveProviderToken(ctx context.Context, provider, org, pkg string) (*Record, error) {
	key := "SECRET#" + provider + "#" + org
	if pkg != "" {
		key += "#" + pkg
	}

	material, err := r.resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	if material.Token == "" {
		return nil, ErrSecretNotFound
	}
	return &Record{Kind: KindProviderToken, Identity: key, Material: []byte(material.Token)}, nil
}

// resolve fetches and caches the parsed secretMaterial for a logical key,
// coalescing concurrent callers behind a single in-flight fetch.
func (r *Resolver) resolve(ctx context.Context, key string) (secretMaterial, error) {
	if _, found := r.negative.Get(key); found {
		return secretMaterial{}, ErrSecretNotFound
	}

	if ciphertext, found := r.positive.Get(key); found {
		return r.decryptMaterial(ciphertext)
	}

	result, err, _ := r.group.Do(key, func() (any, error) {
		material, fetchErr := r.fetch(ctx, key)
		if fetchErr != nil {
			if errors.Is(fetchErr, ErrSecretNotFound) {
				r.negative.Add(key, struct{}{})
			}
			return secretMaterial{}, fetchErr
		}

		plaintext, marshalErr := json.Marshal(material)
		if marshalErr != nil {
			return secretMaterial{}, marshalErr
		}
		ciphertext, encErr := r.cipher.seal(string(plaintext))
		if encErr != nil {
			return secretMaterial{}, encErr
		}
		r.positive.Add(key, ciphertext)

		return material, nil
	})
	if err != nil {
		return secretMaterial{}, err
	}

	return result.(secretMaterial), nil
}

func (r *Resolver) decryptMaterial(ciphertext string) (secretMaterial, error) {
	plaintext, err := r.cipher.open(ciphertext)
	if err != nil {
		return secretMaterial{}, err
	}
	var material secretMaterial
	if err := json.Unmarshal([]byte(plaintext), &material); err != nil {
		return secretMaterial{}, err
	}
	return material, nil
}

// fetch resolves key to its Secrets Manager identifier via the mapping
// table, then fetches and parses the secret value.
func (r *Resolver) fetch(ctx context.Context, key string) (secretMaterial, error) {
	out, err := r.mapping.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.mappingTable,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return secretMaterial{}, fmt.Errorf("secrets: mapping lookup: %w", err)
	}
	if len(out.Item) == 0 {
		return secretMaterial{}, ErrSecretNotFound
	}

	var mapped mappingItem
	if err := attributevalue.UnmarshalMap(out.Item, &mapped); err != nil {
		return secretMaterial{}, fmt.Errorf("secrets: unmarshaling mapping item: %w", err)
	}

	secretOut, err := r.secretsManager.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &mapped.SecretID,
	})
	if err != nil {
		return secretMaterial{}, fmt.Errorf("secrets: fetching secret value: %w", err)
	}
	if secretOut.SecretString == nil {
		return secretMaterial{}, ErrSecretNotFound
	}

	var material secretMaterial
	if err := json.Unmarshal([]byte(*secretOut.SecretString), &material); err != nil {
		return secretMaterial{}, fmt.Errorf("secrets: parsing secret material: %w", err)
	}

	return material, nil
}
