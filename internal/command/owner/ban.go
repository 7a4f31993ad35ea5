package owner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	mod "github.com/keshon/modtune/internal/moderation"
	"github.com/keshon/modtune/internal/storage"
)

// fanoutTimeout bounds one global action across every guild.
const fanoutTimeout = 2 * time.Minute

type GlobalBanCommand struct {
	base
	Fanout *Fanout
}

func (c *GlobalBanCommand) Name() string { return "gban" }

func (c *GlobalBanCommand) Description() string { return "Globally ban a user across all servers" }

func (c *GlobalBanCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			userIDOption("The user ID to ban"),
			reasonOption("Reason for the global ban"),
		},
	}
}

func (c *GlobalBanCommand) Run(ctx interface{}) error {
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
		return bot.RespondEphemeral(s, e, "❌ Cannot ban the bot owner!")
	}

	if err := bot.RespondDeferred(s, e); err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}

	owner := bot.InteractionUser(e)
	reason := mod.Reason(opts.String("reason"))
	if err := context.Storage.AddGlobalBan(storage.GlobalBan{UserID: user.ID, Reason: reason, ModeratorID: owner.ID}); err != nil {
		return fmt.Errorf("record global ban: %w", err)
	}

	res := runFanout(c.Fanout, s, func(guildID string) error {
		return s.GuildBanCreate(guildID, user.ID, 0, discordgo.WithAuditLogReason("Global ban by owner: "+reason))
	})

	embed := &discordgo.MessageEmbed{
		Title:  "🌍 Global Ban Executed",
		Color:  config.ColorModeration,
		Fields: []*discordgo.MessageEmbedField{userField(user), {Name: "Reason", Value: reason}},
	}
	addResultFields(embed, "Banned from", res)
	return bot.FollowupEmbed(s, e, embed)
}

type GlobalUnbanCommand struct {
	base
	Fanout *Fanout
}

func (c *GlobalUnbanCommand) Name() string { return "gunban" }

func (c *GlobalUnbanCommand) Description() string { return "Remove a user from the global ban list" }

func (c *GlobalUnbanCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options:     []*discordgo.ApplicationCommandOption{userIDOption("The user ID to unban")},
	}
}

func (c *GlobalUnbanCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	user, ok := fetchUser(s, command.ParseOptions(e).String("user_id"))
	if !ok {
		return bot.RespondEphemeral(s, e, msgInvalidUser)
	}

	err := context.Storage.RemoveGlobalBan(user.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return bot.RespondEphemeral(s, e, "❌ User is not globally banned!")
	case err != nil:
		return fmt.Errorf("remove global ban: %w", err)
	}

	if err := bot.RespondDeferred(s, e); err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}
	res := runFanout(c.Fanout, s, func(guildID string) error {
		err := s.GuildBanDelete(guildID, user.ID, discordgo.WithAuditLogReason("Global ban removed by owner"))
		if bot.IsNotFound(err) {
			return skip(err)
		}
		return err
	})

	embed := &discordgo.MessageEmbed{
		Title:       "✅ Global Ban Removed",
		Description: fmt.Sprintf("Removed %s (%s) from global ban list", user.Mention(), user.Username),
		Color:       config.ColorSuccess,
	}
	addResultFields(embed, "Unbanned in", res)
	return bot.FollowupEmbed(s, e, embed)
}

func runFanout(f *Fanout, s *discordgo.Session, fn func(guildID string) error) Result {
	ctx, cancel := context.WithTimeout(context.Background(), fanoutTimeout)
	defer cancel()
	return f.Run(ctx, guilds(s), fn)
}
