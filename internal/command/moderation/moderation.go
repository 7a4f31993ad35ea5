// Package moderation holds the guild moderation slash commands.
package moderation

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	mod "github.com/keshon/modtune/internal/moderation"
	"github.com/keshon/modtune/internal/storage"
	"github.com/keshon/modtune/pkg/cmd"
)

const (
	msgOwnerProtected = "❌ Cannot perform moderation actions on the bot owner!"
	msgMemberNotFound = "❌ Member not found in this server!"
)

// base carries what every moderation command shares.
type base struct{}

func (base) Group() string { return "moderation" }

func (base) Category() string { return config.CategoryModeration }

func slashContext(ctx interface{}) (*command.SlashInteractionContext, bool) {
	c, ok := ctx.(*command.SlashInteractionContext)
	return c, ok && c.Event != nil
}

func defaultPerm(p int64) *int64 { return &p }

func memberOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        name,
		Description: description,
		Required:    true,
	}
}

func reasonOption(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: description,
		Required:    required,
		MaxLength:   512,
	}
}

// guard replies and returns false when the invoker may not act on target.
func guard(context *command.SlashInteractionContext, target *discordgo.Member, verb string) (bool, error) {
	s, e := context.Session, context.Event
	ownerID := ""
	if context.Config != nil {
		ownerID = context.Config.OwnerID
	}
	g := mod.Guard{OwnerID: ownerID}
	if guild, err := bot.Guild(s, e.GuildID); err == nil {
		g.GuildOwnerID = guild.OwnerID
	}
	roles, err := bot.Roles(s, e.GuildID)
	if err != nil {
		slog.Warn("failed to read guild roles", "guild", e.GuildID, "err", err)
	}

	actor := mod.Actor{UserID: bot.InteractionUser(e).ID}
	if e.Member != nil {
		actor.RolePosition = mod.TopRolePosition(roles, e.Member.Roles)
	}
	err = g.Check(actor, mod.Actor{
		UserID:       target.User.ID,
		RolePosition: mod.TopRolePosition(roles, target.Roles),
	})
	switch {
	case errors.Is(err, mod.ErrTargetIsOwner):
		return false, bot.RespondEphemeral(s, e, msgOwnerProtected)
	case errors.Is(err, mod.ErrHierarchy):
		return false, bot.RespondEphemeral(s, e, fmt.Sprintf("❌ You cannot %s someone with equal or higher roles!", verb))
	}
	return true, nil
}

// forbidden maps a 403 from Discord to a reply; other errors are returned.
func forbidden(s *discordgo.Session, e *discordgo.InteractionCreate, err error, verb string) error {
	if bot.IsForbidden(err) {
		return bot.RespondEphemeral(s, e, fmt.Sprintf("❌ I don't have permission to %s this member!", verb))
	}
	return fmt.Errorf("%s member: %w", verb, err)
}

func auditText(action string, moderator *discordgo.User, reason string) string {
	return fmt.Sprintf("%s by %s: %s", action, moderator.Username, mod.Reason(reason))
}

func auditReason(action string, moderator *discordgo.User, reason string) discordgo.RequestOption {
	return discordgo.WithAuditLogReason(auditText(action, moderator, reason))
}

// logAction records the action and mirrors it to the guild's log channel.
func logAction(context *command.SlashInteractionContext, entry storage.ModLogEntry) {
	s, guildID := context.Session, context.Event.GuildID
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.Reason = mod.Reason(entry.Reason)
	if context.Storage != nil {
		if err := context.Storage.AddModLog(guildID, entry); err != nil {
			slog.Error("failed to store mod log", "guild", guildID, "action", entry.Action, "err", err)
		}
	}

	settings := bot.GuildSettings(context.Storage, context.Config, guildID)
	channelID := bot.FindTextChannel(s, guildID, settings.LogChannelName)
	if channelID == "" {
		return
	}
	if err := bot.MessageEmbed(s, channelID, mod.ModLogEmbed(entry)); err != nil {
		slog.Warn("failed to post to log channel", "guild", guildID, "channel", channelID, "err", err)
	}
}

// resultEmbed is the confirmation for actions that carry no reason.
func resultEmbed(title string, color int, target, moderator *discordgo.User) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: title,
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Member", Value: fmt.Sprintf("%s (%s)", target.Mention(), target.Username)},
			{Name: "Moderator", Value: moderator.Mention(), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// Register adds every moderation command to the default registry.
func Register(mutes *mod.MuteScheduler, mws ...cmd.Middleware) {
	command.RegisterCommand(&KickCommand{}, mws...)
	command.RegisterCommand(&BanCommand{}, mws...)
	command.RegisterCommand(&UnbanCommand{}, mws...)
	command.RegisterCommand(&MuteCommand{Mutes: mutes}, mws...)
	command.RegisterCommand(&UnmuteCommand{Mutes: mutes}, mws...)
	command.RegisterCommand(&WarnCommand{}, mws...)
	command.RegisterCommand(&WarningsCommand{}, mws...)
	command.RegisterCommand(&ClearWarningsCommand{}, mws...)
	command.RegisterCommand(&ModLogCommand{}, mws...)
	command.RegisterCommand(&SettingsCommand{}, mws...)
}
