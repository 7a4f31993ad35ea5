package middleware

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/pkg/cmd"
)

// WithGroupAccessCheck refuses commands whose group is disabled in the guild.
func WithGroupAccessCheck() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			v, ok := slashContext(inv)
			if !ok || v.Storage == nil || v.Event.GuildID == "" {
				return c.Run(ctx, inv)
			}
			meta, ok := command.Meta(c)
			if !ok || meta.Group() == "" {
				return c.Run(ctx, inv)
			}
			disabled, err := v.Storage.IsGroupDisabled(v.Event.GuildID, meta.Group())
			if err != nil || !disabled {
				return c.Run(ctx, inv)
			}
			return bot.RespondEmbedEphemeral(v.Session, v.Event, &discordgo.MessageEmbed{
				Description: "This command is disabled on this server.\nUse `/commands list` to check which groups are disabled.",
				Color:       config.ColorError,
			})
		})
	}
}
