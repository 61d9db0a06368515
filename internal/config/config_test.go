package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		configPathEnv, databaseDSNEnv, serverAddrEnv, cronSecretEnv,
		geminiAPIKeyEnv, geminiModelEnv, telegramTokenEnv, telegramChatIDEnv,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg := Load()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "file://migrations", cfg.Database.MigrationsPath)
	assert.Equal(t, 6*time.Hour, cfg.Monitor.Interval)
	assert.Equal(t, 40, cfg.Monitor.RelevanceThreshold)
	assert.Contains(t, cfg.Monitor.Keywords, "kloridit")
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, 3, cfg.Gemini.MaxRetries)
	assert.Equal(t, time.Second, cfg.Gemini.BaseDelay)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "finlex", cfg.Feeds[0].Name)
	assert.Equal(t, "Kemira Oyj", cfg.Company.Name)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(databaseDSNEnv, "postgres://ci:ci@db:5432/ci?sslmode=disable")
	t.Setenv(serverAddrEnv, ":9090")
	t.Setenv(cronSecretEnv, "hunter2")
	t.Setenv(geminiAPIKeyEnv, "test-key")
	t.Setenv(geminiModelEnv, "gemini-test")

	cfg := Load()

	assert.Equal(t, "postgres://ci:ci@db:5432/ci?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "hunter2", cfg.Server.CronSecret)
	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-test", cfg.Gemini.Model)
}

func TestLoadMergesYAMLFile(t *testing.T) {
	clearConfigEnv(t)

	raw := `
server:
  addr: ":3000"
monitor:
  interval: 1h
  relevanceThreshold: 55
company:
  name: "Testco Oy"
feeds:
  - name: custom
    url: https://example.org/feed
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
	t.Setenv(configPathEnv, path)

	cfg := Load()

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, time.Hour, cfg.Monitor.Interval)
	assert.Equal(t, 55, cfg.Monitor.RelevanceThreshold)
	assert.Equal(t, "Testco Oy", cfg.Company.Name)
	// Unset file fields keep their defaults.
	assert.Equal(t, "Water Treatment Chemicals Division", cfg.Company.Division)
	assert.NotEmpty(t, cfg.Monitor.Keywords)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "custom", cfg.Feeds[0].Name)
}

func TestEnvBeatsFile(t *testing.T) {
	clearConfigEnv(t)

	raw := "server:\n  addr: \":3000\"\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
	t.Setenv(configPathEnv, path)
	t.Setenv(serverAddrEnv, ":4000")

	cfg := Load()
	assert.Equal(t, ":4000", cfg.Server.Addr)
}

func TestLoadIgnoresBrokenFile(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))
	t.Setenv(configPathEnv, path)

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Server.Addr)
}
