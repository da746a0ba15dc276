package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type limiterConfig struct {
	Calls  int           `env:"TEST_RL_CALLS" envDefault:"60"`
	Window time.Duration `env:"TEST_RL_WINDOW" envDefault:"60s"`
	Trust  bool          `env:"TEST_RL_TRUST" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg limiterConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 60, cfg.Calls)
	assert.Equal(t, time.Minute, cfg.Window)
	assert.False(t, cfg.Trust)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_RL_CALLS", "5")
	t.Setenv("TEST_RL_WINDOW", "2s")
	t.Setenv("TEST_RL_TRUST", "true")

	var cfg limiterConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 5, cfg.Calls)
	assert.Equal(t, 2*time.Second, cfg.Window)
	assert.True(t, cfg.Trust)
}

type secretConfig struct {
	Key string `env:"SECRET_KEY,required"`
}

func TestLoad_Prefix(t *testing.T) {
	t.Setenv("AUTH_SECRET_KEY", "prefixed")

	cfg, err := Parse[secretConfig]("AUTH_")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Key)
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	_, err := Parse[secretConfig]("NOPE_")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_RL_WINDOW", "soon")

	var cfg limiterConfig
	err := Load(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
