package moderation

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	mod "github.com/keshon/modtune/internal/moderation"
	"github.com/keshon/modtune/internal/storage"
)

type KickCommand struct{ base }

func (c *KickCommand) Name() string { return "kick" }

func (c *KickCommand) Description() string { return "Kick a member from the server" }

func (c *KickCommand) UserPermissions() []int64 {
	return []int64{discordgo.PermissionKickMembers}
}

func (c *KickCommand) BotPermissions() []int64 {
	return []int64{discordgo.PermissionKickMembers}
}

func (c *KickCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     c.Name(),
		Description:              c.Description(),
		DefaultMemberPermissions: defaultPerm(discordgo.PermissionKickMembers),
		Options: []*discordgo.ApplicationCommandOption{
			memberOption("member", "The member to kick"),
			reasonOption("Reason for the kick", false),
		},
	}
}

func (c *KickCommand) Run(ctx interface{}) error {
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
	if ok, err := guard(context, member, "kick"); !ok {
		return err
	}

	moderator := bot.InteractionUser(e)
	reason := mod.Reason(opts.String("reason"))
	if err := s.GuildMemberDelete(e.GuildID, member.User.ID, auditReason("Kicked", moderator, reason)); err != nil {
		return forbidden(s, e, err, "kick")
	}

	logAction(context, storage.ModLogEntry{TargetID: member.User.ID, ModeratorID: moderator.ID, Action: "kick", Reason: reason})
	return bot.RespondEmbed(s, e, mod.ActionEmbed("👢 Member Kicked", member.User, moderator, reason))
}

type BanCommand struct{ base }

func (c *BanCommand) Name() string { return "ban" }

func (c *BanCommand) Description() string { return "Ban a member from the server" }

func (c *BanCommand) UserPermissions() []int64 {
	return []int64{discordgo.PermissionBanMembers}
}

func (c *BanCommand) BotPermissions() []int64 {
	return []int64{discordgo.PermissionBanMembers}
}

func (c *BanCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     c.Name(),
		Description:              c.Description(),
		DefaultMemberPermissions: defaultPerm(discordgo.PermissionBanMembers),
		Options: []*discordgo.ApplicationCommandOption{
			memberOption("member", "The member to ban"),
			reasonOption("Reason for the ban", false),
		},
	}
}

func (c *BanCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	opts := command.ParseOptions(e)
	user, member := opts.User("member")
	if user == nil {
		return bot.RespondEphemeral(s, e, msgMemberNotFound)
	}
	// Members are hierarchy checked; users outside the guild only get owner protection.
	if member != nil {
		if ok, err := guard(context, member, "ban"); !ok {
			return err
		}
	} else if config.IsOwner(context.Config, user.ID) {
		return bot.RespondEphemeral(s, e, msgOwnerProtected)
	}

	moderator := bot.InteractionUser(e)
	reason := mod.Reason(opts.String("reason"))
	if err := s.GuildBanCreate(e.GuildID, user.ID, 0, auditReason("Banned", moderator, reason)); err != nil {
		return forbidden(s, e, err, "ban")
	}

	logAction(context, storage.ModLogEntry{TargetID: user.ID, ModeratorID: moderator.ID, Action: "ban", Reason: reason})
	return bot.RespondEmbed(s, e, mod.ActionEmbed("🔨 Member Banned", user, moderator, reason))
}

type UnbanCommand struct{ base }

func (c *UnbanCommand) Name() string { return "unban" }

func (c *UnbanCommand) Description() string { return "Unban a user from the server" }

func (c *UnbanCommand) UserPermissions() []int64 {
	return []int64{discordgo.PermissionBanMembers}
}

func (c *UnbanCommand) BotPermissions() []int64 {
	return []int64{discordgo.PermissionBanMembers}
}

func (c *UnbanCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     c.Name(),
		Description:              c.Description(),
		DefaultMemberPermissions: defaultPerm(discordgo.PermissionBanMembers),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "user",
				Description: "User ID, username or username#1234",
				Required:    true,
			},
		},
	}
}

func (c *UnbanCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	query := strings.TrimSpace(command.ParseOptions(e).String("user"))

	bans, err := s.GuildBans(e.GuildID, 1000, "", "")
	if err != nil {
		return forbidden(s, e, err, "unban")
	}
	banned := matchBan(bans, query)
	if banned == nil {
		return bot.RespondEphemeral(s, e, "❌ Member not found in ban list!")
	}

	moderator := bot.InteractionUser(e)
	if err := s.GuildBanDelete(e.GuildID, banned.ID, discordgo.WithAuditLogReason("Unbanned by "+moderator.Username)); err != nil {
		return forbidden(s, e, err, "unban")
	}

	logAction(context, storage.ModLogEntry{TargetID: banned.ID, ModeratorID: moderator.ID, Action: "unban"})
	return bot.RespondEmbed(s, e, resultEmbed("✅ Member Unbanned", config.ColorSuccess, banned, moderator))
}

// matchBan finds a banned user by ID, username or legacy name#discriminator.
func matchBan(bans []*discordgo.GuildBan, query string) *discordgo.User {
	query = strings.TrimPrefix(strings.TrimSuffix(query, ">"), "<@")
	name, discriminator, tagged := strings.Cut(query, "#")
	for _, b := range bans {
		u := b.User
		if u == nil {
			continue
		}
		switch {
		case u.ID == query:
			return u
		case tagged && strings.EqualFold(u.Username, name) && u.Discriminator == discriminator:
			return u
		case !tagged && strings.EqualFold(u.Username, query):
			return u
		}
	}
	return nil
}
