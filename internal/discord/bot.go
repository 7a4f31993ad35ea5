// Package discord runs the gateway session and routes events to commands.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/command/moderation"
	"github.com/keshon/modtune/internal/command/music"
	"github.com/keshon/modtune/internal/command/owner"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/internal/middleware"
	mod "github.com/keshon/modtune/internal/moderation"
	"github.com/keshon/modtune/internal/music/player"
	"github.com/keshon/modtune/internal/storage"
	"github.com/keshon/modtune/internal/version"
	"github.com/keshon/modtune/pkg/cmd"
	"github.com/keshon/modtune/pkg/jobmgr"
)

const (
	intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates

	globalBanReason  = "Global ban enforcement"
	autoUnmuteReason = "Automatic unmute"
)

// Options carries the music backends; the bot builds everything else.
type Options struct {
	Resolver music.TrackResolver
	Streamer player.Streamer
}

type Bot struct {
	dg        *discordgo.Session
	storage   *storage.Storage
	cfg       *config.Config
	players   *player.Manager
	jobs      *jobmgr.Manager
	mutes     *mod.MuteScheduler
	announcer *music.Announcer
	logger    *slog.Logger

	cacheDir string
	cacheMu  sync.Mutex
}

// NewBot creates the session and registers every command family. It does
// not connect; call Run.
func NewBot(cfg *config.Config, store *storage.Storage, opts Options) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	dg.Identify.Intents = intents

	b := newBot(dg, cfg, store, opts.Streamer)
	b.registerCommandSet(opts.Resolver)
	return b, nil
}

func newBot(dg *discordgo.Session, cfg *config.Config, store *storage.Storage, streamer player.Streamer) *Bot {
	b := &Bot{
		dg:       dg,
		storage:  store,
		cfg:      cfg,
		logger:   slog.Default().With("component", "discord"),
		cacheDir: filepath.Join(filepath.Dir(cfg.StoragePath), ".commands"),
	}

	b.jobs = jobmgr.NewManager(func(msg string) {
		b.logger.Debug("job", "event", msg)
	})
	b.mutes = mod.NewMuteScheduler(b.jobs, store, b.liftMute)

	b.announcer = music.NewAnnouncer(dg)
	b.players = player.NewManager(voiceJoiner{dg: dg}, streamer, player.Options{
		MaxQueue:    cfg.MaxQueueSize,
		IdleTimeout: cfg.MusicTimeout,
		Volume:      cfg.DefaultVolume,
	})
	b.players.VolumeFor = func(guildID string) int {
		return bot.GuildSettings(store, cfg, guildID).Volume
	}
	b.players.OnCreate = b.announcer.Attach
	return b
}

func (b *Bot) registerCommandSet(resolver music.TrackResolver) {
	music.Register(b, resolver, b.announcer, middleware.Standard()...)
	moderation.Register(b.mutes, middleware.Standard()...)
	owner.Register(b.mutes, middleware.Owner()...)
}

// Run connects, serves events until ctx is cancelled and then tears
// everything down.
func (b *Bot) Run(ctx context.Context) error {
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onGuildMemberAdd)
	b.dg.AddHandler(b.onInteractionCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	if n, err := b.mutes.Restore(); err != nil {
		b.logger.Error("restore timed mutes", "err", err)
	} else if n > 0 {
		b.logger.Info("timed mutes restored", "count", n)
	}

	go b.systemEvents(ctx)

	<-ctx.Done()
	b.logger.Info("shutting down", "players", b.players.Count(), "jobs", b.jobs.Status())
	b.players.StopAll()
	b.jobs.StopAll()
	return b.dg.Close()
}

func (b *Bot) systemEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-bot.SystemEvents():
			if ev.Type == bot.SystemEventRefreshCommands {
				b.handleRefreshCommands(ev)
			}
		}
	}
}

// Players implements bot.BotVoice.
func (b *Bot) Players() *player.Manager {
	return b.players
}

// FindUserVoiceState looks the user up in the cached guild voice states.
func (b *Bot) FindUserVoiceState(guildID, userID string) (*bot.VoiceState, error) {
	guild, err := b.dg.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild %s not cached: %w", guildID, err)
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return &bot.VoiceState{ChannelID: vs.ChannelID, UserID: vs.UserID}, nil
		}
	}
	return nil, fmt.Errorf("user %s is not in a voice channel", userID)
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("connected", "user", r.User.String(), "guilds", len(r.Guilds))

	if err := s.UpdateListeningStatus(version.AppPresence); err != nil {
		b.logger.Warn("set presence", "err", err)
	}

	for _, g := range r.Guilds {
		if b.isGuildBlacklisted(g.ID) {
			b.leaveGuild(g.ID)
		}
	}
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if b.isGuildBlacklisted(g.ID) {
		b.leaveGuild(g.ID)
		return
	}
	b.logger.Info("guild available", "guild", g.ID, "name", g.Name)
	if !b.cfg.InitSlashCommands {
		return
	}
	if err := b.registerCommands(g.ID); err != nil {
		b.logger.Error("register commands", "guild", g.ID, "err", err)
	}
}

// onGuildMemberAdd bans globally banned users as soon as they join.
func (b *Bot) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}
	banned, err := b.storage.IsGloballyBanned(m.User.ID)
	if err != nil {
		b.logger.Error("check global ban", "user", m.User.ID, "err", err)
		return
	}
	if !banned {
		return
	}
	if err := s.GuildBanCreate(m.GuildID, m.User.ID, 0, discordgo.WithAuditLogReason(globalBanReason)); err != nil {
		b.logger.Error("enforce global ban", "guild", m.GuildID, "user", m.User.ID, "err", err)
		return
	}
	b.logger.Info("global ban enforced", "guild", m.GuildID, "user", m.User.ID)
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.CommandType != discordgo.ChatApplicationCommand {
		return
	}

	c, ok := command.GetCommand(data.Name)
	if !ok {
		b.logger.Warn("unknown command", "name", data.Name, "guild", i.GuildID)
		return
	}

	err := c.Run(context.Background(), &cmd.Invocation{Data: &command.SlashInteractionContext{
		Session: s,
		Event:   i,
		Storage: b.storage,
		Config:  b.cfg,
	}})
	if err == nil {
		return
	}
	b.logger.Error("command failed", "name", data.Name, "guild", i.GuildID, "err", err)
	if rerr := bot.RespondOrFollowupEphemeral(s, i, bot.MsgUnexpected); rerr != nil {
		b.logger.Warn("report command error", "name", data.Name, "err", rerr)
	}
}

func (b *Bot) isGuildBlacklisted(guildID string) bool {
	return slices.Contains(b.cfg.DiscordGuildBlacklist, guildID)
}

func (b *Bot) leaveGuild(guildID string) {
	b.logger.Info("leaving blacklisted guild", "guild", guildID)
	if err := b.dg.GuildLeave(guildID); err != nil {
		b.logger.Error("leave guild", "guild", guildID, "err", err)
	}
}

// liftMute removes the mute role when a timed mute expires. A member who
// already left counts as unmuted.
func (b *Bot) liftMute(ctx context.Context, guildID, userID, roleID string) error {
	err := b.dg.GuildMemberRoleRemove(guildID, userID, roleID,
		discordgo.WithAuditLogReason(autoUnmuteReason), discordgo.WithContext(ctx))
	if bot.IsNotFound(err) {
		return nil
	}
	return err
}
