package music

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/internal/music/player"
)

// Announcer posts player events to the text channel where /play was last used.
type Announcer struct {
	session *discordgo.Session

	mu       sync.Mutex
	channels map[string]string
}

func NewAnnouncer(s *discordgo.Session) *Announcer {
	return &Announcer{session: s, channels: make(map[string]string)}
}

func (a *Announcer) SetChannel(guildID, channelID string) {
	a.mu.Lock()
	a.channels[guildID] = channelID
	a.mu.Unlock()
}

func (a *Announcer) channel(guildID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.channels[guildID]
}

// Attach listens to p until the manager discards it. It fits Manager.OnCreate.
func (a *Announcer) Attach(guildID string, p *player.Player) {
	go func() {
		for {
			select {
			case ev := <-p.Events:
				a.handle(guildID, ev)
			case <-p.Done():
				a.drain(guildID, p)
				return
			}
		}
	}()
}

// drain posts events emitted right before the player was discarded.
func (a *Announcer) drain(guildID string, p *player.Player) {
	for {
		select {
		case ev := <-p.Events:
			a.handle(guildID, ev)
		default:
			return
		}
	}
}

func (a *Announcer) handle(guildID string, ev player.Event) {
	embed := announcement(ev)
	if embed == nil {
		return
	}
	channelID := a.channel(guildID)
	if channelID == "" {
		return
	}
	if _, err := a.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		slog.Warn("failed to announce player event", "guild", guildID, "status", ev.Status, "err", err)
	}
}

// announcement returns nil for events the command replies already cover.
func announcement(ev player.Event) *discordgo.MessageEmbed {
	switch ev.Status {
	case player.StatusPlaying:
		if !ev.Auto {
			return nil
		}
		return TrackEmbed(statusTitle(player.StatusPlaying), ev.Track)
	case player.StatusError:
		desc := "Playback failed."
		if ev.Track.Title != "" {
			desc = fmt.Sprintf("Could not play %s, skipping.", trackLink(ev.Track))
		}
		return &discordgo.MessageEmbed{Title: player.StatusError.StringEmoji() + " Playback Error", Description: desc, Color: config.ColorError}
	case player.StatusIdle:
		return &discordgo.MessageEmbed{
			Description: player.StatusIdle.StringEmoji() + " Left the voice channel due to inactivity",
			Color:       config.ColorInfo,
		}
	}
	return nil
}

func statusTitle(status player.PlayerStatus) string {
	return status.StringEmoji() + " " + string(status)
}
