package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("OWNER_ID", "42")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.DiscordToken)
	assert.Equal(t, "42", cfg.OwnerID)
	assert.Equal(t, DefaultStoragePath, cfg.StoragePath)
	assert.Equal(t, DefaultMaxQueueSize, cfg.MaxQueueSize)
	assert.Equal(t, DefaultVolume, cfg.DefaultVolume)
	assert.Equal(t, DefaultCommandCooldown, cfg.CommandCooldown)
	assert.Equal(t, DefaultMusicTimeout, cfg.MusicTimeout)
	assert.Equal(t, DefaultMaxWarnings, cfg.MaxWarnings)
	assert.Equal(t, DefaultMuteRoleName, cfg.MuteRoleName)
	assert.Equal(t, DefaultLogChannelName, cfg.LogChannelName)
	assert.True(t, cfg.InitSlashCommands)
}

func TestParseMissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	_, err := Parse()
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("MAX_QUEUE_SIZE", "10")
	t.Setenv("DEFAULT_VOLUME", "250")
	t.Setenv("COMMAND_COOLDOWN", "1500ms")
	t.Setenv("GUILD_BLACKLIST", "1,2")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.MaxQueueSize)
	assert.Equal(t, DefaultVolume, cfg.DefaultVolume, "out of range volume falls back")
	assert.Equal(t, 1500*time.Millisecond, cfg.CommandCooldown)
	assert.Equal(t, []string{"1", "2"}, cfg.DiscordGuildBlacklist)
}

func TestIsOwner(t *testing.T) {
	cfg := &Config{OwnerID: "7"}
	assert.True(t, IsOwner(cfg, "7"))
	assert.False(t, IsOwner(cfg, "8"))
	assert.False(t, IsOwner(nil, "7"))
	assert.False(t, IsOwner(&Config{}, ""))
}
