package moderation

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/internal/storage"
)

type SettingsCommand struct{}

func (c *SettingsCommand) Name() string { return "settings" }

func (c *SettingsCommand) Description() string { return "View or change moderation settings" }

func (c *SettingsCommand) Group() string { return "moderation" }

func (c *SettingsCommand) Category() string { return config.CategorySettings }

func (c *SettingsCommand) UserPermissions() []int64 {
	return []int64{discordgo.PermissionAdministrator, discordgo.PermissionManageGuild}
}

func (c *SettingsCommand) SlashDefinition() *discordgo.ApplicationCommand {
	minWarnings := 1.0
	return &discordgo.ApplicationCommand{
		Name:                     c.Name(),
		Description:              c.Description(),
		DefaultMemberPermissions: defaultPerm(discordgo.PermissionManageGuild),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "view",
				Description: "Show the current settings",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "muterole",
				Description: "Set the name of the mute role",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Role name", Required: true, MaxLength: 100},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "logchannel",
				Description: "Set the name of the moderation log channel",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Channel name", Required: true, MaxLength: 100},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "maxwarnings",
				Description: "Set how many warnings trigger the alert",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "count", Description: "Warning limit", Required: true, MinValue: &minWarnings, MaxValue: 100},
				},
			},
		},
	}
}

func (c *SettingsCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	opts := command.ParseOptions(e)

	var (
		update func(*storage.GuildSettings)
		msg    string
	)
	switch opts.Sub {
	case "muterole":
		name := opts.String("name")
		update = func(gs *storage.GuildSettings) { gs.MuteRoleName = name }
		msg = fmt.Sprintf("✅ Mute role set to `%s`.", name)
	case "logchannel":
		name := opts.String("name")
		update = func(gs *storage.GuildSettings) { gs.LogChannelName = name }
		msg = fmt.Sprintf("✅ Log channel set to `#%s`.", name)
	case "maxwarnings":
		n := opts.Int("count", 0)
		if n < 1 {
			return bot.RespondEphemeral(s, e, "❌ The warning limit must be at least 1!")
		}
		update = func(gs *storage.GuildSettings) { gs.MaxWarnings = n }
		msg = fmt.Sprintf("✅ Warning limit set to %d.", n)
	default:
		return bot.RespondEmbedEphemeral(s, e, settingsEmbed(bot.GuildSettings(context.Storage, context.Config, e.GuildID)))
	}

	if err := context.Storage.UpdateSettings(e.GuildID, update); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return bot.RespondEphemeral(s, e, msg)
}

func settingsEmbed(gs storage.GuildSettings) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "⚙️ Server Settings",
		Color: config.ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Mute role", Value: gs.MuteRoleName, Inline: true},
			{Name: "Log channel", Value: "#" + gs.LogChannelName, Inline: true},
			{Name: "Max warnings", Value: strconv.Itoa(gs.MaxWarnings), Inline: true},
			{Name: "Volume", Value: fmt.Sprintf("%d%%", gs.Volume), Inline: true},
		},
	}
}
