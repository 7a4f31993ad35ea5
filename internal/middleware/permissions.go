package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/pkg/cmd"
)

// WithUserPermissionCheck requires the invoker to hold at least one of the
// command's UserPermissions. Administrators and the bot owner always pass.
func WithUserPermissionCheck() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			v, ok := slashContext(inv)
			if !ok || v.Event.GuildID == "" || v.Event.Member == nil || v.Event.Member.User == nil {
				return c.Run(ctx, inv)
			}
			meta, ok := command.Meta(c)
			if !ok || len(meta.UserPermissions()) == 0 {
				return c.Run(ctx, inv)
			}
			if config.IsOwner(v.Config, v.Event.Member.User.ID) {
				return c.Run(ctx, inv)
			}

			perms, err := bot.MemberPermissions(v.Session, v.Event)
			if err != nil {
				return fmt.Errorf("failed to get user permissions: %w", err)
			}
			if !bot.HasAny(perms, meta.UserPermissions()) {
				names := make([]string, 0, len(meta.UserPermissions()))
				for _, p := range meta.UserPermissions() {
					names = append(names, bot.PermissionName(p))
				}
				return bot.RespondEmbedEphemeral(v.Session, v.Event, &discordgo.MessageEmbed{
					Description: fmt.Sprintf("%s\nRequired (any of): `%s`", bot.MsgNoPermission, strings.Join(names, "`, `")),
					Color:       config.ColorError,
				})
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithBotPermissionCheck requires the bot to hold every permission listed by
// a command implementing command.BotPermissionProvider.
func WithBotPermissionCheck() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			v, ok := slashContext(inv)
			if !ok || v.Event.GuildID == "" {
				return c.Run(ctx, inv)
			}
			bp, ok := cmd.Root(c).(command.BotPermissionProvider)
			if !ok || len(bp.BotPermissions()) == 0 {
				return c.Run(ctx, inv)
			}

			perms, err := bot.BotPermissions(v.Session, v.Event)
			if err != nil {
				slog.Warn("could not read bot permissions", "command", c.Name(), "err", err)
				return c.Run(ctx, inv)
			}
			missing := bot.Missing(perms, bp.BotPermissions())
			if len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, p := range missing {
					names = append(names, bot.PermissionName(p))
				}
				return bot.RespondEmbedEphemeral(v.Session, v.Event, &discordgo.MessageEmbed{
					Description: fmt.Sprintf("%s\nMissing: `%s`", bot.MsgBotNoPermission, strings.Join(names, "`, `")),
					Color:       config.ColorError,
				})
			}
			return c.Run(ctx, inv)
		})
	}
}
