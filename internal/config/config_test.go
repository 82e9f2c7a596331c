package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token-123")
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "token-123", cfg.DiscordBotToken)
	assert.Equal(t, "./studybot.db", cfg.DatabasePath)
	assert.Equal(t, "10000", cfg.Port)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token-123")
	t.Setenv("DATABASE_PATH", "/data/bot.db")
	t.Setenv("PORT", "8080")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/bot.db", cfg.DatabasePath)
	assert.Equal(t, "8080", cfg.Port)
}
