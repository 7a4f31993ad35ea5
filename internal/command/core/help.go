package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/internal/middleware"
	"github.com/keshon/modtune/internal/version"
	"github.com/keshon/modtune/pkg/cmd"
)

const helpFooter = "All commands are slash commands - type / to see them!"

type HelpCommand struct{}

func (c *HelpCommand) Name() string { return "help" }

func (c *HelpCommand) Description() string { return "Display help information" }

func (c *HelpCommand) Group() string { return "core" }

func (c *HelpCommand) Category() string { return config.CategoryInformation }

func (c *HelpCommand) UserPermissions() []int64 { return []int64{} }

func (c *HelpCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *HelpCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*command.SlashInteractionContext)
	if !ok {
		return nil
	}
	e := context.Event

	var disabled []string
	if context.Storage != nil && e.GuildID != "" {
		disabled, _ = context.Storage.GetDisabledGroups(e.GuildID)
	}
	isOwner := config.IsOwner(context.Config, bot.InteractionUser(e).ID)

	return bot.RespondEmbed(context.Session, e, buildHelp(command.AllCommands(), isOwner, disabled))
}

// buildHelp lists commands by category. The owner category is only shown to
// the owner; commands of disabled groups are left out.
func buildHelp(all []cmd.Command, showOwner bool, disabledGroups []string) *discordgo.MessageEmbed {
	disabled := make(map[string]bool, len(disabledGroups))
	for _, g := range disabledGroups {
		disabled[g] = true
	}

	byCategory := make(map[string][]string)
	for _, c := range all {
		meta, ok := command.Meta(c)
		if !ok || disabled[meta.Group()] {
			continue
		}
		if meta.Category() == config.CategoryOwner && !showOwner {
			continue
		}
		byCategory[meta.Category()] = append(byCategory[meta.Category()], fmt.Sprintf("`/%s` - %s", c.Name(), c.Description()))
	}

	cats := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		wi, wj := config.CategoryWeights[cats[i]], config.CategoryWeights[cats[j]]
		if wi != wj {
			return wi < wj
		}
		return cats[i] < cats[j]
	})

	embed := &discordgo.MessageEmbed{
		Title:       "🤖 Bot Commands Help",
		Description: version.AppDescription,
		Color:       config.ColorInfo,
		Footer:      &discordgo.MessageEmbedFooter{Text: helpFooter},
	}
	for _, cat := range cats {
		lines := byCategory[cat]
		sort.Strings(lines)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  cat + " Commands",
			Value: strings.Join(lines, "\n"),
		})
	}
	return embed
}

func init() {
	command.RegisterCommand(&HelpCommand{}, middleware.Standard()...)
}
