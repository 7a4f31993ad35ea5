package owner

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/pkg/util"
)

type GlobalBansCommand struct{ base }

func (c *GlobalBansCommand) Name() string { return "gbans" }

func (c *GlobalBansCommand) Description() string { return "List globally banned users" }

func (c *GlobalBansCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *GlobalBansCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	bans, err := context.Storage.GlobalBans()
	if err != nil {
		return fmt.Errorf("list global bans: %w", err)
	}
	if len(bans) == 0 {
		return bot.RespondEphemeral(s, e, "✅ No users are globally banned.")
	}

	var sb strings.Builder
	for _, b := range bans {
		fmt.Fprintf(&sb, "<@%s> (`%s`) %s: %s\n",
			b.UserID, b.UserID, util.FormatDateTpl(b.Timestamp, "YYYY-MM-DD"), util.Truncate(b.Reason, 80))
	}
	return bot.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
		Title:       "🌍 Global Bans",
		Description: util.Truncate(sb.String(), 4096),
		Color:       config.ColorModeration,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Total: %d", len(bans))},
	})
}

type ServersCommand struct{ base }

func (c *ServersCommand) Name() string { return "servers" }

func (c *ServersCommand) Description() string { return "List the servers the bot is in" }

func (c *ServersCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *ServersCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	list := guilds(s)
	slices.SortFunc(list, func(a, b *discordgo.Guild) int {
		if n := cmp.Compare(b.MemberCount, a.MemberCount); n != 0 {
			return n
		}
		return cmp.Compare(a.Name, b.Name)
	})

	var sb strings.Builder
	members := 0
	for _, g := range list {
		members += g.MemberCount
		fmt.Fprintf(&sb, "**%s** (`%s`) - %d members\n", guildName(g), g.ID, g.MemberCount)
	}
	return bot.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
		Title:       "🖥️ Servers",
		Description: util.Truncate(sb.String(), 4096),
		Color:       config.ColorInfo,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d servers, %d members", len(list), members)},
	})
}

type LeaveCommand struct{ base }

func (c *LeaveCommand) Name() string { return "leave" }

func (c *LeaveCommand) Description() string { return "Make the bot leave a server" }

func (c *LeaveCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "server_id",
				Description: "The server ID to leave",
				Required:    true,
			},
		},
	}
}

func (c *LeaveCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	id := strings.TrimSpace(command.ParseOptions(e).String("server_id"))
	g, err := s.State.Guild(id)
	if err != nil {
		return bot.RespondEphemeral(s, e, "❌ I'm not in that server!")
	}
	name := guildName(g)
	if err := s.GuildLeave(id); err != nil {
		return fmt.Errorf("leave guild %s: %w", id, err)
	}
	return bot.RespondEphemeral(s, e, fmt.Sprintf("👋 Left **%s**.", name))
}
