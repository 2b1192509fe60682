package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	for _, key := range []string{"PORT", "CHAT_MODEL", "CHAT_MAX_TOKENS", "CHAT_PROVIDER", "SIMPLE_CHAT_MODEL", "NATS_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "deepseek-ai/DeepSeek-V3-0324", cfg.ChatModel)
	assert.Equal(t, 512, cfg.ChatMaxTokens)
	assert.Equal(t, "huggingface", cfg.ChatProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.SimpleChatModel)
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, 30*time.Second, cfg.ServerReadTimeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "9090")
	t.Setenv("CHAT_MAX_TOKENS", "128")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("SERVER_WRITE_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://chat.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 128, cfg.ChatMaxTokens)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, 5*time.Second, cfg.ServerWriteTimeout)
	assert.Equal(t, []string{"http://localhost:5173", "https://chat.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CHAT_MAX_TOKENS", "lots")
	t.Setenv("TRACING_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.ChatMaxTokens)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 7000
chat_provider: openai
chat_max_tokens: 256
database_driver: postgres
database_dsn: host=db user=chat dbname=chat
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")
	t.Setenv("CHAT_PROVIDER", "")
	t.Setenv("CHAT_MAX_TOKENS", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_DSN", "postgres-from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.ServerPort)
	assert.Equal(t, "openai", cfg.ChatProvider)
	assert.Equal(t, 256, cfg.ChatMaxTokens)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	// environment wins over the file
	assert.Equal(t, "postgres-from-env", cfg.DatabaseDSN)
}

func TestLoadConfigFileErrors(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	_, err = Load()
	require.Error(t, err)
}
