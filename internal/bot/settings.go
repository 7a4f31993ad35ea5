package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/internal/storage"
)

// Defaults are the per-guild settings used until a guild overrides them.
func Defaults(cfg *config.Config) storage.GuildSettings {
	if cfg == nil {
		return storage.GuildSettings{
			MuteRoleName:   config.DefaultMuteRoleName,
			LogChannelName: config.DefaultLogChannelName,
			MaxWarnings:    config.DefaultMaxWarnings,
			Volume:         config.DefaultVolume,
		}
	}
	return storage.GuildSettings{
		MuteRoleName:   cfg.MuteRoleName,
		LogChannelName: cfg.LogChannelName,
		MaxWarnings:    cfg.MaxWarnings,
		Volume:         cfg.DefaultVolume,
	}.WithDefaults(Defaults(nil))
}

// GuildSettings returns the stored settings of a guild with defaults filled in.
func GuildSettings(store *storage.Storage, cfg *config.Config, guildID string) storage.GuildSettings {
	var gs storage.GuildSettings
	if store != nil {
		gs, _ = store.GetSettings(guildID)
	}
	return gs.WithDefaults(Defaults(cfg))
}

// FindTextChannel returns the ID of the guild text channel called name, "" when none.
func FindTextChannel(s *discordgo.Session, guildID, name string) string {
	if name == "" {
		return ""
	}
	var channels []*discordgo.Channel
	if g, err := s.State.Guild(guildID); err == nil {
		channels = g.Channels
	}
	if len(channels) == 0 {
		channels, _ = s.GuildChannels(guildID)
	}
	for _, ch := range channels {
		if ch.Name == name && (ch.Type == discordgo.ChannelTypeGuildText || ch.Type == discordgo.ChannelTypeGuildNews) {
			return ch.ID
		}
	}
	return ""
}
