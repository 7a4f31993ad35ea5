package middleware

import (
	"context"

	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/pkg/cmd"
)

// WithGuildOnly turns away invocations from direct messages.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if v, ok := slashContext(inv); ok && v.Event.GuildID == "" {
				return bot.RespondEphemeral(v.Session, v.Event, bot.MsgGuildOnly)
			}
			return c.Run(ctx, inv)
		})
	}
}
