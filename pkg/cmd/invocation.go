// Package cmd is the transport-neutral command core. A command has a name,
// a description and Run; adapters decide how it is registered and what
// Invocation.Data carries.
package cmd

import "context"

// Invocation is the input handed to a command. Data holds the adapter's
// context value, for Discord a *command.SlashInteractionContext.
type Invocation struct {
	Args []string
	Data any
}

type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}
