package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenExpiry)
	assert.Equal(t, 168*time.Hour, cfg.RefreshTokenExpiry)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 60, cfg.RateLimitCalls)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, RateLimitMemory, cfg.RateLimitBackend)
	assert.False(t, cfg.TrustProxyHeaders)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:8000"}, cfg.CORSAllowedOrigins)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9001")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "5m")
	t.Setenv("RATE_LIMIT_BACKEND", "redis")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.HTTPPort)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenExpiry)
	assert.Equal(t, RateLimitRedis, cfg.RateLimitBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_ProductionSecretRules(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be explicitly set")

	t.Setenv("SECRET_KEY", "too-short")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")

	t.Setenv("SECRET_KEY", strings.Repeat("k", 32))
	_, err = Load()
	assert.NoError(t, err)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.HTTPPort = 70000
	cfg.StorageDriver = "sqlite"
	cfg.JWTAlgorithm = "RS256"
	cfg.RefreshTokenExpiry = 0
	cfg.RateLimitCalls = -1

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"HTTP port", "STORAGE_DRIVER", "JWT_ALGORITHM", "REFRESH_TOKEN_EXPIRY", "RATE_LIMIT_CALLS"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("RATE_LIMIT_WINDOW", "a while")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load auth config")
}
