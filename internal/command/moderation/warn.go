package moderation

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	mod "github.com/keshon/modtune/internal/moderation"
	"github.com/keshon/modtune/internal/storage"
)

var warnPermissions = []int64{discordgo.PermissionKickMembers}

type WarnCommand struct{ base }

func (c *WarnCommand) Name() string { return "warn" }

func (c *WarnCommand) Description() string { return "Warn a member" }

func (c *WarnCommand) UserPermissions() []int64 { return warnPermissions }

func (c *WarnCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     c.Name(),
		Description:              c.Description(),
		DefaultMemberPermissions: defaultPerm(discordgo.PermissionKickMembers),
		Options: []*discordgo.ApplicationCommandOption{
			memberOption("member", "The member to warn"),
			reasonOption("Reason for the warning", true),
		},
	}
}

func (c *WarnCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	opts := command.ParseOptions(e)
	user, _ := opts.User("member")
	if user == nil {
		return bot.RespondEphemeral(s, e, msgMemberNotFound)
	}
	if config.IsOwner(context.Config, user.ID) {
		return bot.RespondEphemeral(s, e, msgOwnerProtected)
	}

	moderator := bot.InteractionUser(e)
	reason := mod.Reason(opts.String("reason"))
	w, err := context.Storage.AddWarning(e.GuildID, user.ID, moderator.ID, reason)
	if err != nil {
		return fmt.Errorf("add warning: %w", err)
	}
	logAction(context, storage.ModLogEntry{TargetID: user.ID, ModeratorID: moderator.ID, Action: "warn", Reason: reason})

	embed := mod.ActionEmbed("⚠️ Member Warned", user, moderator, reason,
		&discordgo.MessageEmbedField{Name: "Warning ID", Value: strconv.Itoa(w.ID), Inline: true})
	embed.Color = config.ColorWarning
	if err := bot.RespondEmbed(s, e, embed); err != nil {
		return err
	}

	warnings, err := context.Storage.GetWarnings(e.GuildID, user.ID)
	if err != nil {
		return fmt.Errorf("count warnings: %w", err)
	}
	limit := bot.GuildSettings(context.Storage, context.Config, e.GuildID).MaxWarnings
	if len(warnings) >= limit {
		return bot.Followup(s, e, fmt.Sprintf("⚠️ %s has reached the maximum number of warnings!", user.Mention()))
	}
	return nil
}

type WarningsCommand struct{ base }

func (c *WarningsCommand) Name() string { return "warnings" }

func (c *WarningsCommand) Description() string { return "Check a member's warnings" }

func (c *WarningsCommand) UserPermissions() []int64 { return warnPermissions }

func (c *WarningsCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     c.Name(),
		Description:              c.Description(),
		DefaultMemberPermissions: defaultPerm(discordgo.PermissionKickMembers),
		Options: []*discordgo.ApplicationCommandOption{
			memberOption("member", "The member to check warnings for"),
		},
	}
}

func (c *WarningsCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	user, _ := command.ParseOptions(e).User("member")
	if user == nil {
		return bot.RespondEphemeral(s, e, msgMemberNotFound)
	}

	warnings, err := context.Storage.GetWarnings(e.GuildID, user.ID)
	if err != nil {
		return fmt.Errorf("get warnings: %w", err)
	}
	if len(warnings) == 0 {
		return bot.Respond(s, e, fmt.Sprintf("✅ %s has no warnings!", user.Mention()))
	}
	return bot.RespondEmbed(s, e, mod.WarningsEmbed(user, warnings))
}

type ClearWarningsCommand struct{ base }

func (c *ClearWarningsCommand) Name() string { return "clearwarnings" }

func (c *ClearWarningsCommand) Description() string { return "Clear all warnings of a member" }

func (c *ClearWarningsCommand) UserPermissions() []int64 {
	return []int64{discordgo.PermissionBanMembers, discordgo.PermissionManageGuild}
}

func (c *ClearWarningsCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     c.Name(),
		Description:              c.Description(),
		DefaultMemberPermissions: defaultPerm(discordgo.PermissionBanMembers),
		Options: []*discordgo.ApplicationCommandOption{
			memberOption("member", "The member whose warnings to clear"),
		},
	}
}

func (c *ClearWarningsCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	user, _ := command.ParseOptions(e).User("member")
	if user == nil {
		return bot.RespondEphemeral(s, e, msgMemberNotFound)
	}

	n, err := context.Storage.ClearWarnings(e.GuildID, user.ID)
	if err != nil {
		return fmt.Errorf("clear warnings: %w", err)
	}
	if n == 0 {
		return bot.Respond(s, e, fmt.Sprintf("✅ %s has no warnings!", user.Mention()))
	}

	moderator := bot.InteractionUser(e)
	logAction(context, storage.ModLogEntry{
		TargetID:    user.ID,
		ModeratorID: moderator.ID,
		Action:      "clearwarnings",
		Reason:      fmt.Sprintf("Cleared %d warning(s)", n),
		Timestamp:   time.Now().UTC(),
	})
	return bot.Respond(s, e, fmt.Sprintf("🧹 Cleared %d warning(s) for %s.", n, user.Mention()))
}
