package owner

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	mod "github.com/keshon/modtune/internal/moderation"
)

type GlobalKickCommand struct {
	base
	Fanout *Fanout
}

func (c *GlobalKickCommand) Name() string { return "gkick" }

func (c *GlobalKickCommand) Description() string { return "Kick a user from every server" }

func (c *GlobalKickCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			userIDOption("The user ID to kick"),
			reasonOption("Reason for the global kick"),
		},
	}
}

func (c *GlobalKickCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	opts := command.ParseOptions(e)
	user, ok := fetchUser(s, opts.String("user_id"))
	if !ok {
		return bot.RespondEphemeral(s, e, msgInvalidUser)
	}
	if config.IsOwner(context.Config, user.ID) {
		return bot.RespondEphemeral(s, e, "❌ Cannot kick the bot owner!")
	}

	if err := bot.RespondDeferred(s, e); err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}
	reason := mod.Reason(opts.String("reason"))
	res := runFanout(c.Fanout, s, func(guildID string) error {
		err := s.GuildMemberDelete(guildID, user.ID, discordgo.WithAuditLogReason("Global kick by owner: "+reason))
		if bot.IsNotFound(err) {
			return skip(err)
		}
		return err
	})

	embed := &discordgo.MessageEmbed{
		Title:  "👢 Global Kick Executed",
		Color:  config.ColorModeration,
		Fields: []*discordgo.MessageEmbedField{userField(user), {Name: "Reason", Value: reason}},
	}
	addResultFields(embed, "Kicked from", res)
	return bot.FollowupEmbed(s, e, embed)
}

type GlobalMuteCommand struct {
	base
	Fanout *Fanout
	Mutes  *mod.MuteScheduler
}

func (c *GlobalMuteCommand) Name() string { return "gmute" }

func (c *GlobalMuteCommand) Description() string { return "Mute a user in every server" }

func (c *GlobalMuteCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			userIDOption("The user ID to mute"),
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "time",
				Description: "Duration (e.g. 10m, 1h, 1d)",
			},
			reasonOption("Reason for the global mute"),
		},
	}
}

func (c *GlobalMuteCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	opts := command.ParseOptions(e)
	user, ok := fetchUser(s, opts.String("user_id"))
	if !ok {
		return bot.RespondEphemeral(s, e, msgInvalidUser)
	}
	if config.IsOwner(context.Config, user.ID) {
		return bot.RespondEphemeral(s, e, "❌ Cannot mute the bot owner!")
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

	if err := bot.RespondDeferred(s, e); err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}
	reason := mod.Reason(opts.String("reason"))
	res := runFanout(c.Fanout, s, func(guildID string) error {
		member, err := bot.Member(s, guildID, user.ID)
		if err != nil {
			if bot.IsNotFound(err) {
				return skip(err)
			}
			return err
		}
		name := bot.GuildSettings(context.Storage, context.Config, guildID).MuteRoleName
		role, err := mod.EnsureMuteRole(s, guildID, name)
		if err != nil {
			return err
		}
		if !mod.HasRole(member, role.ID) {
			if err := s.GuildMemberRoleAdd(guildID, user.ID, role.ID,
				discordgo.WithAuditLogReason("Global mute by owner: "+reason)); err != nil {
				return err
			}
		}
		if c.Mutes == nil {
			return nil
		}
		if d <= 0 {
			if err := c.Mutes.Cancel(guildID, user.ID); err != nil {
				slog.Warn("failed to cancel pending unmute", "guild", guildID, "user", user.ID, "err", err)
			}
			return nil
		}
		if err := c.Mutes.Schedule(guildID, user.ID, role.ID, reason, d); err != nil {
			slog.Error("failed to schedule unmute", "guild", guildID, "user", user.ID, "err", err)
		}
		return nil
	})

	embed := &discordgo.MessageEmbed{
		Title: "🔇 Global Mute Executed",
		Color: config.ColorModeration,
		Fields: []*discordgo.MessageEmbedField{
			userField(user),
			mod.MuteDurationField(raw),
			{Name: "Reason", Value: reason},
		},
	}
	addResultFields(embed, "Muted in", res)
	return bot.FollowupEmbed(s, e, embed)
}
