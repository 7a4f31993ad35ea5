package bot

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/storage"
)

// LogCommand records a command execution, resolving channel and guild names
// from state first and REST second.
func LogCommand(s *discordgo.Session, store *storage.Storage, guildID, channelID, userID, username, commandName string) error {
	channelName := ""
	channel, err := s.State.Channel(channelID)
	if err != nil {
		channel, err = s.Channel(channelID)
		if err != nil {
			slog.Debug("failed to fetch channel", "channel", channelID, "err", err)
		}
	}
	if channel != nil {
		channelName = channel.Name
	}

	guildName := ""
	guild, err := s.State.Guild(guildID)
	if err != nil {
		guild, err = s.Guild(guildID)
		if err != nil {
			slog.Debug("failed to fetch guild", "guild", guildID, "err", err)
		}
	}
	if guild != nil {
		guildName = guild.Name
	}

	return store.SetCommand(guildID, channelID, channelName, guildName, userID, username, commandName)
}

// InteractionUser returns the invoking user of guild and DM interactions alike.
func InteractionUser(e *discordgo.InteractionCreate) *discordgo.User {
	if e.Member != nil && e.Member.User != nil {
		return e.Member.User
	}
	if e.User != nil {
		return e.User
	}
	return &discordgo.User{ID: "unknown", Username: "Unknown"}
}
