package middleware

import (
	"context"
	"log/slog"

	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/pkg/cmd"
)

// WithCommandLogger records every guild invocation in the command history
// after the command ran.
func WithCommandLogger() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			err := c.Run(ctx, inv)

			v, ok := slashContext(inv)
			if !ok || v.Storage == nil || v.Event.GuildID == "" {
				return err
			}
			user := bot.InteractionUser(v.Event)
			slog.Info("command executed", "command", c.Name(), "guild", v.Event.GuildID, "user", user.Username, "failed", err != nil)
			if lerr := bot.LogCommand(v.Session, v.Storage, v.Event.GuildID, v.Event.ChannelID, user.ID, user.Username, c.Name()); lerr != nil {
				slog.Warn("failed to log command", "command", c.Name(), "err", lerr)
			}
			return err
		})
	}
}
