package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/music/player"
)

// voiceJoiner opens voice connections through the gateway session. The bot
// joins unmuted and deafened.
type voiceJoiner struct {
	dg *discordgo.Session
}

func (j voiceJoiner) Join(guildID, channelID string) (player.Connection, error) {
	vc, err := j.dg.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("join voice channel %s: %w", channelID, err)
	}
	return &voiceConn{vc: vc}, nil
}

type voiceConn struct {
	vc *discordgo.VoiceConnection
}

func (c *voiceConn) ChannelID() string {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.ChannelID
}

func (c *voiceConn) OpusSend() chan<- []byte {
	return c.vc.OpusSend
}

func (c *voiceConn) Speaking(on bool) error {
	return c.vc.Speaking(on)
}

func (c *voiceConn) Disconnect() error {
	return c.vc.Disconnect()
}
