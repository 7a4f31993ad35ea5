package moderation

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	mod "github.com/keshon/modtune/internal/moderation"
	"github.com/keshon/modtune/internal/storage"
)

var mutePermissions = []int64{discordgo.PermissionModerateMembers, discordgo.PermissionManageRoles}

type MuteCommand struct {
	base
	Mutes *mod.MuteScheduler
}

func (c *MuteCommand) Name() string { return "mute" }

func (c *MuteCommand) Description() string { return "Mute a member" }

func (c *MuteCommand) UserPermissions() []int64 { return mutePermissions }

func (c *MuteCommand) BotPermissions() []int64 {
	return []int64{discordgo.PermissionManageRoles}
}

func (c *MuteCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     c.Name(),
		Description:              c.Description(),
		DefaultMemberPermissions: defaultPerm(discordgo.PermissionModerateMembers),
		Options: []*discordgo.ApplicationCommandOption{
			memberOption("member", "The member to mute"),
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "time",
				Description: "Duration (e.g. 10m, 1h, 1d)",
			},
			reasonOption("Reason for the mute", false),
		},
	}
}

func (c *MuteCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	opts := command.ParseOptions(e)
	_, member := opts.User("member")
	if member == nil {
		return bot.RespondEphemeral(s, e, msgMemberNotFound)
	}
	if ok, err := guard(context, member, "mute"); !ok {
		return err
	}

	var d time.Duration
	raw := opts.String("time")
	if raw != "" {
		parsed, err := mod.ParseDuration(raw)
		if err != nil {
			return bot.RespondEphemeral(s, e, "❌ "+err.Error())
		}
		d = parsed
	}

	// Creating the role touches every channel and may outlast the reply window.
	if err := bot.RespondDeferred(s, e); err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}

	settings := bot.GuildSettings(context.Storage, context.Config, e.GuildID)
	role, err := mod.EnsureMuteRole(s, e.GuildID, settings.MuteRoleName)
	if err != nil {
		if bot.IsForbidden(err) {
			return bot.Followup(s, e, "❌ I don't have permission to manage the mute role!")
		}
		return fmt.Errorf("mute role: %w", err)
	}
	if mod.HasRole(member, role.ID) {
		return bot.Followup(s, e, "❌ Member is already muted!")
	}

	moderator := bot.InteractionUser(e)
	reason := mod.Reason(opts.String("reason"))
	if err := s.GuildMemberRoleAdd(e.GuildID, member.User.ID, role.ID, auditReason("Muted", moderator, reason)); err != nil {
		if bot.IsForbidden(err) {
			return bot.Followup(s, e, "❌ I don't have permission to mute this member!")
		}
		return fmt.Errorf("mute member: %w", err)
	}

	if c.Mutes != nil {
		scheduleUnmute(c.Mutes, e.GuildID, member.User.ID, role.ID, reason, d)
	}

	logAction(context, storage.ModLogEntry{TargetID: member.User.ID, ModeratorID: moderator.ID, Action: "mute", Reason: reason})
	return bot.FollowupEmbed(s, e, mod.ActionEmbed("🔇 Member Muted", member.User, moderator, reason, mod.MuteDurationField(raw)))
}

// scheduleUnmute arms the automatic unmute for a timed mute. A permanent
// mute drops any timer left over from an earlier timed one.
func scheduleUnmute(mutes *mod.MuteScheduler, guildID, userID, roleID, reason string, d time.Duration) {
	if d <= 0 {
		if err := mutes.Cancel(guildID, userID); err != nil {
			slog.Warn("failed to cancel pending unmute", "guild", guildID, "user", userID, "err", err)
		}
		return
	}
	if err := mutes.Schedule(guildID, userID, roleID, reason, d); err != nil {
		slog.Error("failed to schedule unmute", "guild", guildID, "user", userID, "err", err)
	}
}

type UnmuteCommand struct {
	base
	Mutes *mod.MuteScheduler
}

func (c *UnmuteCommand) Name() string { return "unmute" }

func (c *UnmuteCommand) Description() string { return "Unmute a member" }

func (c *UnmuteCommand) UserPermissions() []int64 { return mutePermissions }

func (c *UnmuteCommand) BotPermissions() []int64 {
	return []int64{discordgo.PermissionManageRoles}
}

func (c *UnmuteCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     c.Name(),
		Description:              c.Description(),
		DefaultMemberPermissions: defaultPerm(discordgo.PermissionModerateMembers),
		Options: []*discordgo.ApplicationCommandOption{
			memberOption("member", "The member to unmute"),
		},
	}
}

func (c *UnmuteCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	_, member := command.ParseOptions(e).User("member")
	if member == nil {
		return bot.RespondEphemeral(s, e, msgMemberNotFound)
	}

	settings := bot.GuildSettings(context.Storage, context.Config, e.GuildID)
	roles, err := bot.Roles(s, e.GuildID)
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}
	role := mod.FindRole(roles, settings.MuteRoleName)
	if role == nil || !mod.HasRole(member, role.ID) {
		return bot.RespondEphemeral(s, e, "❌ Member is not muted!")
	}

	moderator := bot.InteractionUser(e)
	if err := s.GuildMemberRoleRemove(e.GuildID, member.User.ID, role.ID,
		discordgo.WithAuditLogReason("Unmuted by "+moderator.Username)); err != nil {
		return forbidden(s, e, err, "unmute")
	}
	if c.Mutes != nil {
		if err := c.Mutes.Cancel(e.GuildID, member.User.ID); err != nil {
			slog.Warn("failed to cancel pending unmute", "guild", e.GuildID, "user", member.User.ID, "err", err)
		}
	}

	logAction(context, storage.ModLogEntry{TargetID: member.User.ID, ModeratorID: moderator.ID, Action: "unmute"})
	return bot.RespondEmbed(s, e, resultEmbed("🔊 Member Unmuted", config.ColorSuccess, member.User, moderator))
}
