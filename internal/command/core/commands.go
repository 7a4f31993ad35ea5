package core

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/internal/middleware"
	"github.com/keshon/modtune/internal/storage"
)

// Groups that stay enabled everywhere.
var lockedGroups = map[string]bool{"core": true, "owner": true}

type CommandsCommand struct{}

func (c *CommandsCommand) Name() string { return "commands" }

func (c *CommandsCommand) Description() string { return "List, enable or disable command groups" }

func (c *CommandsCommand) Group() string { return "core" }

func (c *CommandsCommand) Category() string { return config.CategorySettings }

func (c *CommandsCommand) UserPermissions() []int64 {
	return []int64{discordgo.PermissionAdministrator, discordgo.PermissionManageGuild}
}

func (c *CommandsCommand) SlashDefinition() *discordgo.ApplicationCommand {
	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, g := range toggleableGroups() {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: g, Value: g})
	}
	groupOpt := func() []*discordgo.ApplicationCommandOption {
		return []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "group",
			Description: "Command group",
			Required:    true,
			Choices:     choices,
		}}
	}
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "Show command groups and their state",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "enable",
				Description: "Enable a command group",
				Options:     groupOpt(),
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "disable",
				Description: "Disable a command group",
				Options:     groupOpt(),
			},
		},
	}
}

func (c *CommandsCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*command.SlashInteractionContext)
	if !ok {
		return nil
	}
	s, e, store := context.Session, context.Event, context.Storage
	opts := command.ParseOptions(e)

	switch opts.Sub {
	case "list":
		disabled, err := store.GetDisabledGroups(e.GuildID)
		if err != nil {
			return fmt.Errorf("read disabled groups: %w", err)
		}
		return bot.RespondEmbedEphemeral(s, e, groupsEmbed(groupsOf(), disabled))
	case "enable", "disable":
		group := opts.String("group")
		return c.toggle(context, store, group, opts.Sub == "enable")
	default:
		return bot.RespondEphemeral(s, e, "❌ Unknown subcommand.")
	}
}

func (c *CommandsCommand) toggle(context *command.SlashInteractionContext, store *storage.Storage, group string, enable bool) error {
	s, e := context.Session, context.Event
	if lockedGroups[group] {
		return bot.RespondEphemeral(s, e, fmt.Sprintf("❌ The `%s` group cannot be toggled.", group))
	}
	if !slices.Contains(groupsOf(), group) {
		return bot.RespondEphemeral(s, e, fmt.Sprintf("❌ Unknown command group `%s`.", group))
	}

	var err error
	state := "enabled"
	if enable {
		err = store.EnableGroup(e.GuildID, group)
	} else {
		state = "disabled"
		err = store.DisableGroup(e.GuildID, group)
	}
	if err != nil {
		return fmt.Errorf("toggle group %s: %w", group, err)
	}

	bot.PublishSystemEvent(bot.SystemEvent{
		Type:    bot.SystemEventRefreshCommands,
		GuildID: e.GuildID,
		Target:  "group:" + group,
	})
	return bot.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("✅ Command group `%s` %s.", group, state),
		Color:       config.ColorSuccess,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Use /commands list to check which groups are disabled."},
	})
}

func groupsEmbed(groups, disabled []string) *discordgo.MessageEmbed {
	var sb strings.Builder
	for _, g := range groups {
		mark := "✅"
		if slices.Contains(disabled, g) {
			mark = "❌"
		}
		fmt.Fprintf(&sb, "%s `%s`\n", mark, g)
	}
	return &discordgo.MessageEmbed{
		Title:       "Command groups",
		Description: sb.String(),
		Color:       config.ColorInfo,
	}
}

// groupsOf lists the distinct groups of all registered commands.
func groupsOf() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range command.AllCommands() {
		meta, ok := command.Meta(c)
		if !ok || meta.Group() == "" || seen[meta.Group()] {
			continue
		}
		seen[meta.Group()] = true
		out = append(out, meta.Group())
	}
	sort.Strings(out)
	return out
}

func toggleableGroups() []string {
	var out []string
	for _, g := range groupsOf() {
		if !lockedGroups[g] {
			out = append(out, g)
		}
	}
	return out
}

func init() {
	command.RegisterCommand(&CommandsCommand{}, middleware.Standard()...)
}
