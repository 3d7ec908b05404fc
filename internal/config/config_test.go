package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donatale/donatale/internal/domain"
)

const sampleConfig = `
server:
  addr: ":9000"
  siteURL: "https://dono.example.org"
  redisAddr: "redis:6379"
store:
  apiToken: "file-token"
notifier:
  apiKey: "file-key"
  adminEmail: "admin@example.org"
reservation:
  relationField: "donazione"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATOCMS_CMA_TOKEN", "FORWARD_EMAIL_API_KEY", "ADMIN_EMAIL", "DONATALE_ADDR", "APP_ENV", "SITE_URL"} {
		t.Setenv(key, "")
	}
}

func TestLoadFileWithDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "redis:6379", cfg.Server.RedisAddr)
	assert.Equal(t, "file-token", cfg.Store.APIToken)
	assert.Equal(t, "https://site-api.datocms.com", cfg.Store.BaseURL)
	assert.Equal(t, "https://api.forwardemail.net", cfg.Notifier.BaseURL)
	assert.Equal(t, "Donatale", cfg.Notifier.SenderName)
	assert.Equal(t, 0, cfg.Notifier.Retries)
	assert.Equal(t, 10, cfg.Notifier.TimeoutSeconds)

	d := cfg.Domain()
	assert.Equal(t, "donation_item", d.ItemTypeKey)
	assert.Equal(t, "donation_event", d.EventTypeKey)
	assert.Equal(t, "donazione", d.RelationField)
	assert.Equal(t, "admin@example.org", d.AdminEmail)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATOCMS_CMA_TOKEN", "env-token")
	t.Setenv("ADMIN_EMAIL", "boss@example.org")
	t.Setenv("DONATALE_ADDR", ":7000")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Store.APIToken)
	assert.Equal(t, "boss@example.org", cfg.Notifier.AdminEmail)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "file-key", cfg.Notifier.APIKey)
}

func TestLoadMissingSecrets(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "server:\n  siteURL: https://x.org\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "DATOCMS_CMA_TOKEN")
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATOCMS_CMA_TOKEN", "t")
	t.Setenv("FORWARD_EMAIL_API_KEY", "k")
	t.Setenv("ADMIN_EMAIL", "a@example.org")
	t.Setenv("SITE_URL", "https://example.org")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "production", cfg.Server.Env)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
