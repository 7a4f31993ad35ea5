package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DefaultStoragePath     = "datastore.json"
	DefaultLogFile         = "bot.log"
	DefaultMaxQueueSize    = 50
	DefaultVolume          = 50
	DefaultCommandCooldown = 3 * time.Second
	DefaultMusicTimeout    = 300 * time.Second
	DefaultMaxWarnings     = 5
	DefaultMuteRoleName    = "Muted"
	DefaultLogChannelName  = "bot-logs"
)

// Embed colours shared by every command family.
const (
	ColorSuccess    = 0x00ff00
	ColorError      = 0xff0000
	ColorWarning    = 0xffff00
	ColorInfo       = 0x0099ff
	ColorMusic      = 0x9b59b6
	ColorModeration = 0xe74c3c
)

var ErrMissingToken = errors.New("DISCORD_TOKEN is not set")

type Config struct {
	DiscordToken          string        `env:"DISCORD_TOKEN"`
	OwnerID               string        `env:"OWNER_ID" envDefault:"1342772842424438806"`
	StoragePath           string        `env:"STORAGE_PATH" envDefault:"datastore.json"`
	LogLevel              string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile               string        `env:"LOG_FILE" envDefault:"bot.log"`
	InitSlashCommands     bool          `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
	DiscordGuildBlacklist []string      `env:"GUILD_BLACKLIST" envSeparator:","`
	MaxQueueSize          int           `env:"MAX_QUEUE_SIZE" envDefault:"50"`
	DefaultVolume         int           `env:"DEFAULT_VOLUME" envDefault:"50"`
	CommandCooldown       time.Duration `env:"COMMAND_COOLDOWN" envDefault:"3s"`
	MusicTimeout          time.Duration `env:"MUSIC_TIMEOUT" envDefault:"5m"`
	MaxWarnings           int           `env:"MAX_WARNINGS" envDefault:"5"`
	MuteRoleName          string        `env:"MUTE_ROLE_NAME" envDefault:"Muted"`
	LogChannelName        string        `env:"LOG_CHANNEL_NAME" envDefault:"bot-logs"`
	YoutubeProxy          string        `env:"YOUTUBE_PROXY"`
}

// New loads .env (if any) and parses the process environment.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, falling back to system environment variables")
	}
	return Parse()
}

// Parse reads configuration from the environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DiscordToken == "" {
		return nil, ErrMissingToken
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.StoragePath == "" {
		c.StoragePath = DefaultStoragePath
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = DefaultMaxQueueSize
	}
	if c.DefaultVolume < 1 || c.DefaultVolume > 100 {
		c.DefaultVolume = DefaultVolume
	}
	if c.CommandCooldown < 0 {
		c.CommandCooldown = DefaultCommandCooldown
	}
	if c.MusicTimeout <= 0 {
		c.MusicTimeout = DefaultMusicTimeout
	}
	if c.MaxWarnings <= 0 {
		c.MaxWarnings = DefaultMaxWarnings
	}
	if c.MuteRoleName == "" {
		c.MuteRoleName = DefaultMuteRoleName
	}
	if c.LogChannelName == "" {
		c.LogChannelName = DefaultLogChannelName
	}
}

func IsOwner(cfg *Config, userID string) bool {
	return cfg != nil && cfg.OwnerID != "" && cfg.OwnerID == userID
}
