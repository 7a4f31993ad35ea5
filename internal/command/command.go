package command

import (
	"context"
	"sort"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/internal/storage"
	"github.com/keshon/modtune/pkg/cmd"
)

// SlashInteractionContext is what the runtime passes to a slash command.
type SlashInteractionContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Storage *storage.Storage
	Config  *config.Config
}

type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// BotPermissionProvider is implemented by commands that need the bot to
// hold every listed permission in the channel.
type BotPermissionProvider interface {
	BotPermissions() []int64
}

// DiscordMeta lets middleware read Group, Category and permissions through
// any number of wrappers.
type DiscordMeta interface {
	Group() string
	Category() string
	UserPermissions() []int64
}

// DiscordCommand is what individual commands implement.
type DiscordCommand interface {
	Name() string
	Description() string
	Group() string
	Category() string
	UserPermissions() []int64
	Run(ctx interface{}) error
}

// DiscordAdapter makes a DiscordCommand a cmd.Command so it can live in the
// universal registry.
type DiscordAdapter struct {
	Cmd DiscordCommand
}

func (a *DiscordAdapter) Name() string { return a.Cmd.Name() }

func (a *DiscordAdapter) Description() string { return a.Cmd.Description() }

func (a *DiscordAdapter) Group() string { return a.Cmd.Group() }

func (a *DiscordAdapter) Category() string { return a.Cmd.Category() }

func (a *DiscordAdapter) UserPermissions() []int64 { return a.Cmd.UserPermissions() }

func (a *DiscordAdapter) Run(_ context.Context, inv *cmd.Invocation) error {
	return a.Cmd.Run(inv.Data)
}

func (a *DiscordAdapter) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := a.Cmd.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

func (a *DiscordAdapter) BotPermissions() []int64 {
	if bp, ok := a.Cmd.(BotPermissionProvider); ok {
		return bp.BotPermissions()
	}
	return nil
}

// RegisterCommand wraps discordCmd with mws and stores it in the default registry.
func RegisterCommand(discordCmd DiscordCommand, mws ...cmd.Middleware) {
	cmd.DefaultRegistry.Register(cmd.Apply(&DiscordAdapter{Cmd: discordCmd}, mws...))
}

func GetCommand(name string) (cmd.Command, bool) {
	c := cmd.DefaultRegistry.Get(name)
	return c, c != nil
}

// Meta returns the Discord metadata of a registered, possibly wrapped, command.
func Meta(c cmd.Command) (DiscordMeta, bool) {
	m, ok := cmd.Root(c).(DiscordMeta)
	return m, ok
}

// AllCommands returns registered commands ordered by category weight, then name.
func AllCommands() []cmd.Command {
	all := cmd.DefaultRegistry.GetAll()
	weight := func(c cmd.Command) int {
		if m, ok := Meta(c); ok {
			return config.CategoryWeights[m.Category()]
		}
		return 0
	}
	sort.SliceStable(all, func(i, j int) bool {
		return weight(all[i]) < weight(all[j])
	})
	return all
}

// Definition extracts the slash definition of a registered command.
func Definition(c cmd.Command) *discordgo.ApplicationCommand {
	sp, ok := cmd.Root(c).(SlashProvider)
	if !ok {
		return nil
	}
	def := sp.SlashDefinition()
	if def != nil && def.Type == 0 {
		def.Type = discordgo.ChatApplicationCommand
	}
	return def
}
