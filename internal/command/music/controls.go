package music

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/music/player"
	"github.com/keshon/modtune/pkg/util"
)

type PauseCommand struct{ base }

func (c *PauseCommand) Name() string { return "pause" }

func (c *PauseCommand) Description() string { return "Pause the current song" }

func (c *PauseCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *PauseCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	p, ok := c.player(e.GuildID)
	if !ok {
		return bot.RespondEphemeral(s, e, msgNothingPlaying)
	}
	if err := p.Pause(); err != nil {
		return playerError(s, e, err)
	}
	return bot.Respond(s, e, "⏸️ Paused the music!")
}

type ResumeCommand struct{ base }

func (c *ResumeCommand) Name() string { return "resume" }

func (c *ResumeCommand) Description() string { return "Resume the paused song" }

func (c *ResumeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *ResumeCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	p, ok := c.player(e.GuildID)
	if !ok {
		return bot.RespondEphemeral(s, e, msgNothingPlaying)
	}
	if err := p.Resume(); err != nil {
		return playerError(s, e, err)
	}
	return bot.Respond(s, e, "▶️ Resumed the music!")
}

type StopCommand struct{ base }

func (c *StopCommand) Name() string { return "stop" }

func (c *StopCommand) Description() string { return "Stop the music and disconnect" }

func (c *StopCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *StopCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	if err := c.Bot.Players().Stop(e.GuildID); err != nil {
		return playerError(s, e, err)
	}
	return bot.Respond(s, e, "⏹️ Stopped the music and disconnected!")
}

type SkipCommand struct{ base }

func (c *SkipCommand) Name() string { return "skip" }

func (c *SkipCommand) Description() string { return "Skip the current song" }

func (c *SkipCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *SkipCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	p, ok := c.player(e.GuildID)
	if !ok {
		return bot.RespondEphemeral(s, e, msgNothingPlaying)
	}
	skipped, err := p.Skip()
	if err != nil {
		return playerError(s, e, err)
	}
	return bot.Respond(s, e, fmt.Sprintf("⏭️ Skipped **%s**!", util.Truncate(skipped.Title, 100)))
}

type VolumeCommand struct{ base }

func (c *VolumeCommand) Name() string { return "volume" }

func (c *VolumeCommand) Description() string { return "Set the playback volume" }

func (c *VolumeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	minVolume := 1.0
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "level",
				Description: "Volume level (1-100)",
				Required:    true,
				MinValue:    &minVolume,
				MaxValue:    100,
			},
		},
	}
}

func (c *VolumeCommand) Run(ctx interface{}) error {
	context, ok := slashContext(ctx)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	level := command.ParseOptions(e).Int("level", 0)
	if level < 1 || level > 100 {
		return playerError(s, e, player.ErrInvalidVolume)
	}

	if p, ok := c.player(e.GuildID); ok {
		if err := p.SetVolume(level); err != nil {
			return playerError(s, e, err)
		}
	}
	if context.Storage != nil {
		if err := context.Storage.SetVolume(e.GuildID, level); err != nil {
			return fmt.Errorf("persist volume: %w", err)
		}
	}
	return bot.Respond(s, e, fmt.Sprintf("🔊 Volume set to %d%%", level))
}
