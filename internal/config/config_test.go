package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Orchestrator.DefaultListAgents)
	assert.Equal(t, 10, cfg.Chat.MessagesPerMinute)
	assert.Equal(t, 4000, cfg.Chat.ChunkSize)
	assert.Equal(t, 3, cfg.Failure.MaxConsecutiveFailures)
}

func TestLoadReturnsDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Store.Path, cfg.Store.Path)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreman.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\nchat:\n  chunk_size: 2000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2000, cfg.Chat.ChunkSize)
	assert.Equal(t, 10, cfg.Chat.MessagesPerMinute, "unset fields keep their default")
}

func TestApplyEnvOverridesReadsTelegramCredentials(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_SYSTEM", "tok-system")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "12345")
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "s3cret")
	t.Setenv("PRIMARY_USER_ID", "9")

	cfg := Default()
	applyEnvOverrides(cfg)

	assert.Equal(t, "tok-system", cfg.Telegram.BotTokens["system"])
	assert.Equal(t, "12345", cfg.Telegram.AdminChatID)
	assert.Equal(t, "s3cret", cfg.Telegram.WebhookSecret)
	assert.Equal(t, "9", cfg.Telegram.PrimaryUserID)
}

func TestApplyEnvOverridesStorePathAndLogLevel(t *testing.T) {
	t.Setenv("FOREMAN_STORE_PATH", "/tmp/custom.db")
	t.Setenv("FOREMAN_LOG_LEVEL", "warn")

	cfg := Default()
	applyEnvOverrides(cfg)

	assert.Equal(t, "/tmp/custom.db", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.LogLevel)
}
