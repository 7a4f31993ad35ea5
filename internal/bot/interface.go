package bot

import "github.com/keshon/modtune/internal/music/player"

// BotVoice is what music commands need from the running bot.
type BotVoice interface {
	Players() *player.Manager
	FindUserVoiceState(guildID, userID string) (*VoiceState, error)
}

// VoiceState holds minimal voice channel state for a user.
type VoiceState struct {
	ChannelID string
	UserID    string
}
