package config

import (
	"os"
	"testing"
	"time"
)

// ========================================
// Helper Functions Tests
// ========================================

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_GET_ENV", "test_value")
	defer os.Unsetenv("TEST_GET_ENV")

	t.Run("existing env var", func(t *testing.T) {
		result := getEnv("TEST_GET_ENV", "default")
		if result != "test_value" {
			t.Errorf("getEnv() = %q, want %q", result, "test_value")
		}
	})

	t.Run("missing env var", func(t *testing.T) {
		result := getEnv("TEST_MISSING_VAR", "default_value")
		if result != "default_value" {
			t.Errorf("getEnv() = %q, want %q", result, "default_value")
		}
	})

	t.Run("empty env var", func(t *testing.T) {
		os.Setenv("TEST_EMPTY_VAR", "")
		defer os.Unsetenv("TEST_EMPTY_VAR")

		result := getEnv("TEST_EMPTY_VAR", "default")
		if result != "default" {
			t.Errorf("getEnv() = %q, want %q (empty should use default)", result, "default")
		}
	})
}

func TestGetEnvInt(t *testing.T) {
	t.Run("valid integer", func(t *testing.T) {
		os.Setenv("TEST_INT", "42")
		defer os.Unsetenv("TEST_INT")

		result := getEnvInt("TEST_INT", 0)
		if result != 42 {
			t.Errorf("getEnvInt() = %d, want 42", result)
		}
	})

	t.Run("invalid integer", func(t *testing.T) {
		os.Setenv("TEST_INT_INVALID", "not-a-number")
		defer os.Unsetenv("TEST_INT_INVALID")

		result := getEnvInt("TEST_INT_INVALID", 99)
		if result != 99 {
			t.Errorf("getEnvInt() = %d, want 99 (default)", result)
		}
	})

	t.Run("missing env var", func(t *testing.T) {
		result := getEnvInt("TEST_INT_MISSING", 7)
		if result != 7 {
			t.Errorf("getEnvInt() = %d, want 7 (default)", result)
		}
	})
}

func TestGetEnvDuration(t *testing.T) {
	t.Run("valid duration", func(t *testing.T) {
		os.Setenv("TEST_DURATION", "30s")
		defer os.Unsetenv("TEST_DURATION")

		result := getEnvDuration("TEST_DURATION", time.Second)
		if result != 30*time.Second {
			t.Errorf("getEnvDuration() = %v, want 30s", result)
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		os.Setenv("TEST_DURATION_INVALID", "not-a-duration")
		defer os.Unsetenv("TEST_DURATION_INVALID")

		result := getEnvDuration("TEST_DURATION_INVALID", 5*time.Minute)
		if result != 5*time.Minute {
			t.Errorf("getEnvDuration() = %v, want 5m (default)", result)
		}
	})
}

func TestGetEnvSlice(t *testing.T) {
	t.Run("comma separated", func(t *testing.T) {
		os.Setenv("TEST_SLICE", "a, b ,c")
		defer os.Unsetenv("TEST_SLICE")

		result := getEnvSlice("TEST_SLICE", nil)
		want := []string{"a", "b", "c"}
		if len(result) != len(want) {
			t.Fatalf("getEnvSlice() = %v, want %v", result, want)
		}
		for i := range want {
			if result[i] != want[i] {
				t.Errorf("getEnvSlice()[%d] = %q, want %q", i, result[i], want[i])
			}
		}
	})

	t.Run("missing uses default", func(t *testing.T) {
		result := getEnvSlice("TEST_SLICE_MISSING", []string{"*"})
		if len(result) != 1 || result[0] != "*" {
			t.Errorf("getEnvSlice() = %v, want [*]", result)
		}
	})
}

// ========================================
// deriveEncryptionKey Tests
// ========================================

func TestDeriveEncryptionKey(t *testing.T) {
	key1 := deriveEncryptionKey("some-seed")
	key2 := deriveEncryptionKey("some-seed")
	key3 := deriveEncryptionKey("different-seed")

	if len(key1) != 32 {
		t.Fatalf("derived key length = %d, want 32", len(key1))
	}
	if string(key1) != string(key2) {
		t.Error("deriving from the same seed should be deterministic")
	}
	if string(key1) == string(key3) {
		t.Error("deriving from different seeds should produce different keys")
	}
}

// ========================================
// Load Tests
// ========================================

func clearBadgeSmithEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"AWS_REGION", "KV_ENDPOINT_OVERRIDE",
		"NONCE_TABLE_NAME", "SECRETS_TABLE_NAME", "TEST_RESULTS_TABLE_NAME", "TEST_RESULTS_GSI_NAME",
		"SECRETS_MANAGER_PREFIX",
		"HMAC_CLOCK_SKEW", "NONCE_TTL",
		"SECRET_CACHE_TTL", "SECRET_NEGATIVE_CACHE_TTL",
		"NUGET_BASE_URL", "GITHUB_BASE_URL", "UPSTREAM_TIMEOUT", "UPSTREAM_ETAG_CACHE_TTL", "UPSTREAM_MAX_RETRIES",
		"CORS_ALLOWED_ORIGINS", "PORT", "ENVIRONMENT",
		"SECRET_CACHE_ENCRYPTION_SEED",
	} {
		os.Unsetenv(k)
	}
}

func TestLoad_RequiresEncryptionSeed(t *testing.T) {
	clearBadgeSmithEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail without SECRET_CACHE_ENCRYPTION_SEED")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearBadgeSmithEnv(t)
	os.Setenv("SECRET_CACHE_ENCRYPTION_SEED", "test-seed")
	defer os.Unsetenv("SECRET_CACHE_ENCRYPTION_SEED")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AWSRegion != "us-east-1" {
		t.Errorf("AWSRegion = %q, want us-east-1", cfg.AWSRegion)
	}
	if cfg.UsesLocalEndpoint() {
		t.Error("UsesLocalEndpoint() should be false without KV_ENDPOINT_OVERRIDE")
	}
	if cfg.ClockSkew != 5*time.Minute {
		t.Errorf("ClockSkew = %v, want 5m", cfg.ClockSkew)
	}
	if cfg.NonceTTL != 45*time.Minute {
		t.Errorf("NonceTTL = %v, want 45m", cfg.NonceTTL)
	}
	if cfg.UpstreamMaxRetries != 3 {
		t.Errorf("UpstreamMaxRetries = %d, want 3", cfg.UpstreamMaxRetries)
	}
	if len(cfg.SecretCacheEncryptKey) != 32 {
		t.Fatalf("SecretCacheEncryptKey length = %d, want 32", len(cfg.SecretCacheEncryptKey))
	}
}

func TestLoad_LocalEndpointOverride(t *testing.T) {
	clearBadgeSmithEnv(t)
	os.Setenv("SECRET_CACHE_ENCRYPTION_SEED", "test-seed")
	os.Setenv("KV_ENDPOINT_OVERRIDE", "http://localhost:4566")
	defer clearBadgeSmithEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.UsesLocalEndpoint() {
		t.Error("UsesLocalEndpoint() should be true when KV_ENDPOINT_OVERRIDE is set")
	}
}

func TestLoad_RejectsNonPositiveNonceTTL(t *testing.T) {
	clearBadgeSmithEnv(t)
	os.Setenv("SECRET_CACHE_ENCRYPTION_SEED", "test-seed")
	os.Setenv("NONCE_TTL", "0s")
	defer clearBadgeSmithEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should reject a non-positive NONCE_TTL")
	}
}

func TestLoad_RejectsNegativeMaxRetries(t *testing.T) {
	clearBadgeSmithEnv(t)
	os.Setenv("SECRET_CACHE_ENCRYPTION_SEED", "test-seed")
	os.Setenv("UPSTREAM_MAX_RETRIES", "-1")
	defer clearBadgeSmithEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should reject a negative UPSTREAM_MAX_RETRIES")
	}
}
