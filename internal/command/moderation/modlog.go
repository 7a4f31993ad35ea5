package moderation

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/pkg/util"
)

const (
	defaultModLogLimit = 10
	maxModLogLimit     = 50
)

type ModLogCommand struct{ base }

func (c *ModLogCommand) Name() string { return "modlog" }

func (c *ModLogCommand) Description() string { return "Show recent moderation actions" }

func (c *ModLogCommand) UserPermissions() []int64 {
	return []int64{discordgo.PermissionViewAuditLogs, discordgo.PermissionManageGuild}
}

func (c *ModLogCommand) SlashDefinition() *discordgo.ApplicationCommand {
	minLimit := 1.0
	return &discordgo.ApplicationCommand{
		Name:                     c.Name(),
		Description:              c.Description(),
		DefaultMemberPermissions: defaultPerm(discordgo.PermissionViewAuditLogs),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "limit",
				Description: fmt.Sprintf("How many entries to show (default %d)", defaultModLogLimit),
				MinValue:    &minLimit,
				MaxValue:    maxModLogLimit,
			},
		},
	}
}

func (c *ModLogCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	limit := min(max(command.ParseOptions(e).Int("limit", defaultModLogLimit), 1), maxModLogLimit)

	entries, err := context.Storage.GetModLogs(e.GuildID, limit)
	if err != nil {
		return fmt.Errorf("get mod logs: %w", err)
	}
	if len(entries) == 0 {
		return bot.RespondEphemeral(s, e, "📋 No moderation actions recorded yet.")
	}

	var sb strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&sb, "`%s` **%s** <@%s> by <@%s>: %s\n",
			util.FormatDateTpl(entry.Timestamp, "YYYY-MM-DD hh:mm"),
			entry.Action, entry.TargetID, entry.ModeratorID, util.Truncate(entry.Reason, 80))
	}
	return bot.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
		Title:       "📋 Moderation Log",
		Description: util.Truncate(sb.String(), 4096),
		Color:       config.ColorModeration,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Showing %d most recent action(s)", len(entries))},
	})
}
