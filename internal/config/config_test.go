package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"STAGE", "ENV", "GATEWAY_URL", "LOCAL_GATEWAY_URL", "TIMEOUT", "DEBUG", "LOCALE", "SESSION_FILE"} {
		t.Setenv(EnvPrefix+"_"+k, "")
		os.Unsetenv(EnvPrefix + "_" + k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, EnvAWS, cfg.Env)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "es", cfg.Locale)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, defaultAWSGateway, cfg.BaseURL())
	assert.NotEmpty(t, cfg.SessionFile)
}

func TestLoad_ProfileThenEnvironment(t *testing.T) {
	clearEnv(t)
	profile := filepath.Join(t.TempDir(), "field.yaml")
	require.NoError(t, os.WriteFile(profile, []byte(`
stage: prod
env: local
local_gateway_url: http://10.0.0.7:8081
timeout: 3s
locale: en
`), 0o600))
	t.Setenv("MEDISUPPLY_TIMEOUT", "5s")

	cfg, err := Load(profile)
	require.NoError(t, err)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "http://10.0.0.7:8081", cfg.BaseURL())
	assert.Equal(t, 5*time.Second, cfg.Timeout, "environment overrides the profile")
	assert.Equal(t, "en", cfg.Locale)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		profile string
		env     map[string]string
	}{
		{name: "bad yaml", profile: "env: [aws"},
		{name: "unknown env", env: map[string]string{"MEDISUPPLY_ENV": "azure"}},
		{name: "zero timeout", env: map[string]string{"MEDISUPPLY_TIMEOUT": "0s"}},
		{name: "unparsable timeout", env: map[string]string{"MEDISUPPLY_TIMEOUT": "soon"}},
		{name: "unsupported locale", profile: "locale: pt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.profile != "" {
				path = filepath.Join(t.TempDir(), "p.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.profile), 0o600))
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestBaseURL(t *testing.T) {
	c := Default()
	c.GatewayURL = "http://gw.example"
	assert.Equal(t, "http://gw.example", c.BaseURL())

	c.Env = EnvLocal
	assert.Equal(t, defaultLocalGateway, c.BaseURL())
}

func TestLoadGateway(t *testing.T) {
	for _, k := range []string{"PORT", "JWT_SECRET", "SEED_FILE", "MIN_LATENCY", "MAX_LATENCY", "ALLOWED_ORIGINS", "SIMULATE_EVERY", "LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := LoadGateway()
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, 300*time.Millisecond, cfg.MinLatency)
	assert.Equal(t, 1500*time.Millisecond, cfg.MaxLatency)
	assert.Equal(t, []string{"http://localhost:8081", "http://localhost:19006"}, cfg.AllowedOrigins)
	assert.Zero(t, cfg.SimulateEvery)

	t.Setenv("MIN_LATENCY", "2s")
	_, err = LoadGateway()
	assert.ErrorContains(t, err, "latency range")

	t.Setenv("MIN_LATENCY", "0s")
	t.Setenv("SIMULATE_EVERY", "-1s")
	_, err = LoadGateway()
	assert.ErrorContains(t, err, "SIMULATE_EVERY")
}
