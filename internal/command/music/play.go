package music

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/music/player"
	"github.com/keshon/modtune/internal/music/sources"
)

const resolveTimeout = 30 * time.Second

type PlayCommand struct {
	base
	Resolver  TrackResolver
	Announcer *Announcer
}

func (c *PlayCommand) Name() string { return "play" }

func (c *PlayCommand) Description() string { return "Play a song from YouTube or a direct link" }

func (c *PlayCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "song",
				Description: "Song name or URL",
				Required:    true,
			},
		},
	}
}

func (c *PlayCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	user := bot.InteractionUser(e)
	query := command.ParseOptions(e).String("song")

	vs, err := c.Bot.FindUserVoiceState(e.GuildID, user.ID)
	if err != nil || vs.ChannelID == "" {
		return bot.RespondEphemeral(s, e, msgNotInVoice)
	}

	if err := bot.RespondDeferred(s, e); err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}

	t, err := c.resolve(query)
	if err != nil {
		slog.Info("track not resolved", "query", query, "err", err)
		return bot.Followup(s, e, "❌ Could not find that song!")
	}
	t.RequestedBy = user.Mention()

	p := c.Bot.Players().GetOrCreate(e.GuildID)
	if c.Announcer != nil {
		c.Announcer.SetChannel(e.GuildID, e.ChannelID)
	}
	pos, err := p.Play(vs.ChannelID, t)
	switch {
	case errors.Is(err, player.ErrQueueFull):
		return bot.Followup(s, e, "❌ The queue is full!")
	case err != nil:
		return fmt.Errorf("play %q: %w", t.Title, err)
	}

	if pos == 0 {
		return bot.FollowupEmbed(s, e, TrackEmbed(statusTitle(player.StatusPlaying), t))
	}
	embed := TrackEmbed(statusTitle(player.StatusAdded), t)
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Position", Value: fmt.Sprintf("#%d", pos), Inline: true})
	return bot.FollowupEmbed(s, e, embed)
}

func (c *PlayCommand) resolve(query string) (sources.Track, error) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	return c.Resolver.Resolve(ctx, query)
}
