package middleware

import (
	"context"

	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/pkg/cmd"
)

// WithOwnerOnly lets only the configured bot owner through.
func WithOwnerOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			v, ok := slashContext(inv)
			if !ok {
				return c.Run(ctx, inv)
			}
			if !config.IsOwner(v.Config, bot.InteractionUser(v.Event).ID) {
				return bot.RespondEphemeral(v.Session, v.Event, bot.MsgOwnerOnly)
			}
			return c.Run(ctx, inv)
		})
	}
}
