// Package middleware holds the cmd.Middleware chain every slash command
// runs through.
package middleware

import (
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/pkg/cmd"
)

func slashContext(inv *cmd.Invocation) (*command.SlashInteractionContext, bool) {
	v, ok := inv.Data.(*command.SlashInteractionContext)
	return v, ok && v.Event != nil
}

// Standard is the chain used by guild commands, listed innermost first.
func Standard() []cmd.Middleware {
	return []cmd.Middleware{
		WithCooldown(),
		WithBotPermissionCheck(),
		WithUserPermissionCheck(),
		WithGroupAccessCheck(),
		WithGuildOnly(),
		WithCommandLogger(),
	}
}

// Owner is the chain used by owner-only commands.
func Owner() []cmd.Middleware {
	return []cmd.Middleware{
		WithCooldown(),
		WithOwnerOnly(),
		WithCommandLogger(),
	}
}
