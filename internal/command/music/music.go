// Package music holds the playback slash commands.
package music

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/internal/music/player"
	"github.com/keshon/modtune/internal/music/sources"
	"github.com/keshon/modtune/pkg/cmd"
	"github.com/keshon/modtune/pkg/util"
)

const (
	msgNotInVoice     = "❌ You need to be in a voice channel to use this command!"
	msgNothingPlaying = "❌ Nothing is playing right now!"
	msgNotConnected   = "❌ I'm not connected to a voice channel!"
)

// TrackResolver turns a /play query into a track.
type TrackResolver interface {
	Resolve(ctx context.Context, input string) (sources.Track, error)
}

// base carries what every music command shares.
type base struct {
	Bot bot.BotVoice
}

func (b base) Group() string { return "music" }

func (b base) Category() string { return config.CategoryMusic }

func (b base) UserPermissions() []int64 { return []int64{} }

// player returns the guild's player without creating one.
func (b base) player(guildID string) (*player.Player, bool) {
	return b.Bot.Players().Get(guildID)
}

// playerError maps player sentinel errors to replies; unknown errors are
// returned for the dispatcher to report.
func playerError(s *discordgo.Session, e *discordgo.InteractionCreate, err error) error {
	var msg string
	switch {
	case errors.Is(err, player.ErrNothingPlaying):
		msg = msgNothingPlaying
	case errors.Is(err, player.ErrNotConnected):
		msg = msgNotConnected
	case errors.Is(err, player.ErrAlreadyPaused):
		msg = "❌ The music is already paused!"
	case errors.Is(err, player.ErrNotPaused):
		msg = "❌ The music is not paused!"
	case errors.Is(err, player.ErrInvalidVolume):
		msg = "❌ Volume must be between 1 and 100!"
	default:
		return err
	}
	return bot.RespondEphemeral(s, e, msg)
}

func trackLink(t sources.Track) string {
	title := util.Truncate(t.Title, 100)
	if t.URL == "" {
		return "**" + title + "**"
	}
	return fmt.Sprintf("[%s](%s)", title, t.URL)
}

// TrackEmbed describes one track under the given title.
func TrackEmbed(title string, t sources.Track) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: trackLink(t),
		Color:       config.ColorMusic,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Duration", Value: util.FormatClock(t.Duration), Inline: true},
		},
	}
	if t.Artist != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Artist", Value: t.Artist, Inline: true})
	}
	if t.RequestedBy != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Requested by", Value: t.RequestedBy, Inline: true})
	}
	if t.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.Thumbnail}
	}
	return embed
}

func slashContext(ctx interface{}) (*command.SlashInteractionContext, bool) {
	c, ok := ctx.(*command.SlashInteractionContext)
	return c, ok && c.Event != nil
}

// Register adds every music command to the default registry.
func Register(voice bot.BotVoice, resolver TrackResolver, announcer *Announcer, mws ...cmd.Middleware) {
	b := base{Bot: voice}
	command.RegisterCommand(&PlayCommand{base: b, Resolver: resolver, Announcer: announcer}, mws...)
	command.RegisterCommand(&PauseCommand{base: b}, mws...)
	command.RegisterCommand(&ResumeCommand{base: b}, mws...)
	command.RegisterCommand(&StopCommand{base: b}, mws...)
	command.RegisterCommand(&SkipCommand{base: b}, mws...)
	command.RegisterCommand(&QueueCommand{base: b}, mws...)
	command.RegisterCommand(&VolumeCommand{base: b}, mws...)
	command.RegisterCommand(&NowPlayingCommand{base: b}, mws...)
}
