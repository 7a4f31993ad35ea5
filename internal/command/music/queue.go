package music

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/internal/music/player"
	"github.com/keshon/modtune/pkg/util"
)

const queuePageSize = 10

type QueueCommand struct{ base }

func (c *QueueCommand) Name() string { return "queue" }

func (c *QueueCommand) Description() string { return "Show the music queue" }

func (c *QueueCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *QueueCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	p, ok := c.player(e.GuildID)
	if !ok {
		return bot.RespondEphemeral(s, e, "❌ The queue is empty!")
	}
	current, _, err := p.NowPlaying()
	upcoming := p.Queue()
	if err != nil && len(upcoming) == 0 {
		return bot.RespondEphemeral(s, e, "❌ The queue is empty!")
	}

	embed := &discordgo.MessageEmbed{
		Title: "📜 Music Queue",
		Color: config.ColorMusic,
	}
	if err == nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Now Playing",
			Value: fmt.Sprintf("%s `%s`", trackLink(current), util.FormatClock(current.Duration)),
		})
	}

	if len(upcoming) > 0 {
		var sb strings.Builder
		for i, t := range upcoming {
			if i == queuePageSize {
				fmt.Fprintf(&sb, "*...and %d more*", len(upcoming)-queuePageSize)
				break
			}
			fmt.Fprintf(&sb, "`%d.` %s `%s`\n", i+1, trackLink(t), util.FormatClock(t.Duration))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Up Next",
			Value: util.Truncate(strings.TrimSpace(sb.String()), 1024),
		})
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d song(s) in queue", len(upcoming))}
	return bot.RespondEmbed(s, e, embed)
}

type NowPlayingCommand struct{ base }

func (c *NowPlayingCommand) Name() string { return "nowplaying" }

func (c *NowPlayingCommand) Description() string { return "Show the song that is playing" }

func (c *NowPlayingCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *NowPlayingCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	p, ok := c.player(e.GuildID)
	if !ok {
		return bot.RespondEphemeral(s, e, msgNothingPlaying)
	}
	t, elapsed, err := p.NowPlaying()
	if err != nil {
		return playerError(s, e, err)
	}

	embed := TrackEmbed(statusTitle(player.StatusPlaying), t)
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{
			Name:   "Progress",
			Value:  fmt.Sprintf("%s / %s", elapsedClock(elapsed), util.FormatClock(t.Duration)),
			Inline: true,
		},
		&discordgo.MessageEmbedField{Name: "Volume", Value: fmt.Sprintf("%d%%", p.Volume()), Inline: true},
	)
	if p.Paused() {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "⏸️ Paused"}
	}
	return bot.RespondEmbed(s, e, embed)
}

func elapsedClock(d time.Duration) string {
	if d < time.Second {
		return "0:00"
	}
	return util.FormatClock(d)
}
