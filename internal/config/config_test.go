package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL", "OPENAI_MAX_TOKENS", "OPENAI_TIMEOUT",
		"PADI_ADDR", "PADI_STATIC_DIR", "PADI_STORAGE", "PADI_ASSISTANT_NAME", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8100", cfg.Server.Addr)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.Model)
	assert.Equal(t, 1000, cfg.OpenAI.MaxTokens)
	assert.InDelta(t, 0.7, cfg.OpenAI.Temperature, 1e-9)
	assert.Equal(t, 10, cfg.OpenAI.HistoryLimit)
	assert.Equal(t, 60*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "Pad-i", cfg.Assistant.Name)
	assert.False(t, cfg.OpenAI.Configured())
}

func TestLoad_YAMLWithEnvExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_PADI_KEY", "sk-from-env")

	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9000"
  static_dir: "./web"
openai:
  api_key: "${TEST_PADI_KEY}"
  base_url: "http://localhost:11434/v1/"
  model: "llama3.1:8b"
  max_tokens: 256
  timeout: "15s"
storage:
  backend: sqlite
assistant:
  name: "Helper"
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "./web", cfg.Server.StaticDir)
	assert.Equal(t, "sk-from-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "http://localhost:11434/v1/", cfg.OpenAI.BaseURL)
	assert.Equal(t, "llama3.1:8b", cfg.OpenAI.Model)
	assert.Equal(t, 256, cfg.OpenAI.MaxTokens)
	assert.Equal(t, 15*time.Second, cfg.OpenAI.Timeout)
	// Values absent from the file keep their defaults.
	assert.InDelta(t, 0.1, cfg.OpenAI.PresencePenalty, 1e-9)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "Helper", cfg.Assistant.Name)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.OpenAI.Configured())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_MODEL", "gpt-4")
	t.Setenv("PADI_STORAGE", "SQLite")
	t.Setenv("OPENAI_MAX_TOKENS", "not-a-number")

	path := writeConfig(t, `
openai:
  model: "gpt-3.5-turbo"
  max_tokens: 300
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", cfg.OpenAI.Model)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 300, cfg.OpenAI.MaxTokens, "unparsable env value falls back")
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "server: [unclosed"},
		{"bad duration", "openai:\n  timeout: \"soon\"\n"},
		{"unknown backend", "storage:\n  backend: redis\n"},
		{"zero max tokens", "openai:\n  max_tokens: 0\n"},
		{"empty model", "openai:\n  model: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOpenAIConfig_Configured(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"", false},
		{"   ", false},
		{PlaceholderAPIKey, false},
		{"sk-real", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OpenAIConfig{APIKey: tt.key}.Configured(), "key %q", tt.key)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("PADI_DOTENV_TEST=loaded\n"), 0644))
	t.Setenv("PADI_DOTENV_TEST", "")
	os.Unsetenv("PADI_DOTENV_TEST")

	require.NoError(t, LoadDotEnv(envPath, filepath.Join(dir, "absent.env")))
	assert.Equal(t, "loaded", os.Getenv("PADI_DOTENV_TEST"))
}
