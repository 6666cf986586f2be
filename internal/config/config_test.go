package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"AI_PROVIDER", "GEMINI_API_KEY", "GOOGLE_GENAI_API_KEY", "GEMINI_MODEL",
	"LOCAL_LLM_URL", "LOCAL_LLM_MODEL", "STORAGE", "DATA_DIR", "DATABASE_URL",
	"REDIS_URL", "REDIS_PREFIX", "LISTEN_ADDR", "LOG_MODE", "PORT",
	"ALLOW_ORIGINS", "STORAGE_QUOTA_BYTES", "REQUEST_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `{
		"gemini_api_key": "file-key",
		"DATABASE_URL": "postgres://localhost/pantry",
		"storage": "postgres",
		"request_timeout_seconds": 10
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "file-key", cfg.GeminiAPIKey)
	assert.Equal(t, "postgres", cfg.Storage)
	assert.Equal(t, "postgres://localhost/pantry", cfg.DatabaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `{"gemini_api_key": "file-key", "storage": "memory"}`)
	t.Setenv("GOOGLE_GENAI_API_KEY", "env-key")
	t.Setenv("STORAGE", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOW_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("REQUEST_TIMEOUT", "1m30s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.GeminiAPIKey)
	assert.Equal(t, "redis", cfg.Storage)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowOrigins)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_PROVIDER", "local")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, cfg.Provider)
	assert.Equal(t, "file", cfg.Storage)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]map[string]string{
		"gemini without key": {"AI_PROVIDER": "gemini"},
		"unknown provider":   {"AI_PROVIDER": "mystery"},
		"unknown storage":    {"AI_PROVIDER": "local", "STORAGE": "floppy"},
		"postgres no dsn":    {"AI_PROVIDER": "local", "STORAGE": "postgres"},
		"redis no url":       {"AI_PROVIDER": "local", "STORAGE": "redis"},
		"bad quota":          {"AI_PROVIDER": "local", "STORAGE_QUOTA_BYTES": "lots"},
		"bad timeout":        {"AI_PROVIDER": "local", "REQUEST_TIMEOUT": "soon"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadBadJSON(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, `{not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}
