package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/outlookctl/internal/errs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendOutlook, cfg.Backend)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, time.Second, cfg.Retry.Delay)
	assert.Equal(t, 200, cfg.SnippetChars)
	assert.Equal(t, "me@localhost", cfg.Local.OwnerEmail)
	assert.Empty(t, cfg.Audit.Path)
	assert.Equal(t, filepath.Join(filepath.Dir(cfg.Gmail.Credentials), "token.json"), cfg.Gmail.Token)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
backend: local
log_level: debug
snippet_chars: 80
audit:
  path: /tmp/audit.log
retry:
  attempts: 5
  delay: 250ms
local:
  path: /tmp/box.db
  owner_email: me@example.com
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, cfg.Backend)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 80, cfg.SnippetChars)
	assert.Equal(t, "/tmp/audit.log", cfg.Audit.Path)
	assert.Equal(t, 5, cfg.Retry.Attempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Delay)
	assert.Equal(t, "/tmp/box.db", cfg.Local.Path)
	assert.Equal(t, "me@example.com", cfg.Local.OwnerEmail)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "backend: local\n")
	t.Setenv("OUTLOOKCTL_BACKEND", "gmail")
	t.Setenv("OUTLOOKCTL_AUDIT_PATH", "/var/log/outlookctl.log")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendGmail, cfg.Backend)
	assert.Equal(t, "/var/log/outlookctl.log", cfg.Audit.Path)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, body := range map[string]string{
		"backend":  "backend: exchange\n",
		"attempts": "retry:\n  attempts: 0\n",
		"level":    "log_level: loud\n",
	} {
		_, err := Load(writeConfig(t, body))
		assert.True(t, errs.Is(err, errs.Validation), name)
	}

	_, err := Load(writeConfig(t, "backend: [unclosed\n"))
	assert.Error(t, err)
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{LogLevel: "warn"}
	log := cfg.Logger(&buf)
	log.Info("hidden")
	log.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown k=v")
}
