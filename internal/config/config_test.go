package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// 空环境变量会被 viper 忽略，文件值与默认值生效
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"LLM_API_KEY", "OPENAI_API_KEY", "LLM_MODEL", "OPENAI_MODEL", "CORS_ALLOWED_ORIGINS", "RUNTIME_ORIGIN", "KAFKA_BROKERS"} {
		t.Setenv(name, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server:\n  port: \"9090\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "gpt-4.1-mini", cfg.LLM.Tiers.Base)
	assert.Equal(t, "gpt-4.1-turbo", cfg.LLM.Tiers.Elevated)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, 20, cfg.Chat.HistoryWindow)
	assert.True(t, cfg.Chat.VerifyOwnership)
	assert.Equal(t, 10*time.Second, cfg.Chat.PersistTimeout)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, 10*time.Millisecond, cfg.Kafka.BatchTimeout)
	assert.Equal(t, 5*time.Second, cfg.Kafka.WriteTimeout)
	assert.Empty(t, cfg.CORS.Origins())
}

func TestLoad_FileValues(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
llm:
  api_key: "sk-file"
  model: "gpt-custom"
  tiers:
    base: "small"
chat:
  history_window: 5
  verify_ownership: false
  persist_timeout: 3s
kafka:
  brokers: "k1:9092, k2:9092"
cors:
  allowed_origins: "https://a.example, .example.org ,"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-file", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-custom", cfg.LLM.Model)
	assert.Equal(t, "small", cfg.LLM.Tiers.Base)
	assert.Equal(t, "gpt-4.1-turbo", cfg.LLM.Tiers.Elevated)
	assert.Equal(t, 5, cfg.Chat.HistoryWindow)
	assert.False(t, cfg.Chat.VerifyOwnership)
	assert.Equal(t, 3*time.Second, cfg.Chat.PersistTimeout)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.BrokerList())
	assert.Equal(t, []string{"https://a.example", ".example.org"}, cfg.CORS.Origins())
}

func TestLoad_LegacyEnvironmentNames(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENAI_MODEL", "gpt-env")
	t.Setenv("RUNTIME_ORIGIN", "https://widget.example")
	path := writeConfig(t, "server:\n  port: \"8080\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-env", cfg.LLM.Model)
	assert.Equal(t, []string{"https://widget.example"}, cfg.CORS.Origins())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestInit_PanicsOnMissingFile(t *testing.T) {
	assert.Panics(t, func() {
		Init(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}
