// Package config handles application configuration.
package config

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// Config holds all application configuration for the badge and
// test-result-ingestion service.
type Config struct {
	// AWS
	AWSRegion          string
	KVEndpointOverride string // LocalStack/dev override for DynamoDB + Secrets Manager clients; empty uses the default AWS endpoint

	// DynamoDB tables
	NonceTableName       string
	SecretsTableName     string
	TestResultsTableName string
	TestResultsGSIName   string

	// Secrets Manager
	SecretsManagerPrefix string // loaded from SECRETS_MANAGER_PREFIX, e.g. "badge-smith/"; not read by internal/secrets, which uses secret IDs exactly as the mapping table stores them

	// HMAC authentication (C4)
	ClockSkew time.Duration // max allowed |now - signed timestamp|
	NonceTTL  time.Duration // nonce reservation TTL in the nonce store

	// Secret cache (C6)
	SecretCacheTTL         time.Duration // positive-hit TTL
	SecretNegativeCacheTTL time.Duration // negative-hit (not-found) TTL
	SecretCacheEncryptKey  []byte        // 32-byte key for AES-256-GCM at-rest cache encryption, derived below

	// Upstream badge providers (C7)
	NuGetBaseURL        string
	GitHubBaseURL       string
	UpstreamTimeout     time.Duration
	UpstreamETagCacheTTL time.Duration
	UpstreamMaxRetries  int

	// CORS (C3)
	CORSAllowedOrigins []string // "*" selects public mode (Access-Control-Allow-Origin: *); any other list is matched exactly

	// Server
	Port int

	// Logging/runtime
	Environment string // "dev", "staging", "production" — informational only
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		KVEndpointOverride: getEnv("KV_ENDPOINT_OVERRIDE", ""),

		NonceTableName:       getEnv("NONCE_TABLE_NAME", "badge-smith-nonces"),
		SecretsTableName:     getEnv("SECRETS_TABLE_NAME", "badge-smith-secrets"),
		TestResultsTableName: getEnv("TEST_RESULTS_TABLE_NAME", "badge-smith-test-results"),
		TestResultsGSIName:   getEnv("TEST_RESULTS_GSI_NAME", "gsi-latest-by-branch"),

		SecretsManagerPrefix: getEnv("SECRETS_MANAGER_PREFIX", "badge-smith/"),

		ClockSkew: getEnvDuration("HMAC_CLOCK_SKEW", 5*time.Minute),
		NonceTTL:  getEnvDuration("NONCE_TTL", 45*time.Minute),

		SecretCacheTTL:         getEnvDuration("SECRET_CACHE_TTL", 1*time.Hour),
		SecretNegativeCacheTTL: getEnvDuration("SECRET_NEGATIVE_CACHE_TTL", 60*time.Second),

		NuGetBaseURL:         getEnv("NUGET_BASE_URL", "https://api.nuget.org/v3-flatcontainer"),
		GitHubBaseURL:        getEnv("GITHUB_BASE_URL", "https://api.github.com"),
		UpstreamTimeout:      getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		UpstreamETagCacheTTL: getEnvDuration("UPSTREAM_ETAG_CACHE_TTL", 5*time.Minute),
		UpstreamMaxRetries:   getEnvInt("UPSTREAM_MAX_RETRIES", 3),

		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),

		Port: getEnvInt("PORT", 8080),

		Environment: getEnv("ENVIRONMENT", "dev"),
	}

	if cfg.NonceTTL <= 0 {
		return nil, fmt.Errorf("NONCE_TTL must be positive")
	}
	if cfg.ClockSkew <= 0 {
		return nil, fmt.Errorf("HMAC_CLOCK_SKEW must be positive")
	}
	if cfg.UpstreamMaxRetries < 0 {
		return nil, fmt.Errorf("UPSTREAM_MAX_RETRIES must not be negative")
	}

	encKeySeed := getEnv("SECRET_CACHE_ENCRYPTION_SEED", "")
	if encKeySeed == "" {
		return nil, fmt.Errorf("SECRET_CACHE_ENCRYPTION_SEED is required")
	}
	cfg.SecretCacheEncryptKey = deriveEncryptionKey(encKeySeed)

	return cfg, nil
}

// UsesLocalEndpoint reports whether AWS clients should be pointed at a
// local/LocalStack endpoint instead of the default AWS one.
func (c *Config) UsesLocalEndpoint() bool {
	return c.KVEndpointOverride != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// deriveEncryptionKey creates a 32-byte AES-256 key from a secret string using HKDF.
func deriveEncryptionKey(secret string) []byte {
	salt := []byte("badge-smith-encryption-key-v1")
	info := []byte("aes-256-gcm-secret-cache")

	hkdfReader := hkdf.New(sha256.New, []byte(secret), salt, info)

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		panic("hkdf: failed to derive key: " + err.Error())
	}

	return key
}
