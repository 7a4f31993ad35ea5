package discord

import (
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/bot/bottest"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commandsPath = "/applications/" + bottest.BotID + "/guilds/" + bottest.GuildID + "/commands"

type dummy struct {
	name, group string
	err         error
}

func (p dummy) Name() string { return p.name }

func (p dummy) Description() string { return p.name + " dummy" }

func (p dummy) Group() string { return p.group }

func (p dummy) Category() string { return config.CategoryInformation }

func (p dummy) UserPermissions() []int64 { return nil }

func (p dummy) Run(interface{}) error { return p.err }

func (p dummy) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: p.name, Description: p.Description()}
}

type fixture struct {
	bot   *Bot
	s     *discordgo.Session
	tr    *bottest.Transport
	store *storage.Storage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	registerDelay = 0

	s, tr := bottest.NewSession(t)
	path := filepath.Join(t.TempDir(), "db.json")
	store, err := storage.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{
		StoragePath:       path,
		MaxQueueSize:      10,
		DefaultVolume:     50,
		MusicTimeout:      time.Minute,
		InitSlashCommands: true,
	}
	return &fixture{bot: newBot(s, cfg, store, nil), s: s, tr: tr, store: store}
}

// created lists the names of every command create request, in order.
func created(t *testing.T, tr *bottest.Transport) []string {
	t.Helper()
	var names []string
	for _, r := range tr.Requests() {
		if r.Method != http.MethodPost || r.Path != commandsPath {
			continue
		}
		var def discordgo.ApplicationCommand
		require.NoError(t, r.Decode(&def))
		names = append(names, def.Name)
	}
	return names
}

func countOf(names []string, name string) int {
	n := 0
	for _, v := range names {
		if v == name {
			n++
		}
	}
	return n
}

func TestHashCommandIgnoresOptionOrder(t *testing.T) {
	a := &discordgo.ApplicationCommand{Name: "x", Description: "d", Options: []*discordgo.ApplicationCommandOption{
		{Name: "b", Description: "b", Type: discordgo.ApplicationCommandOptionString},
		{Name: "a", Description: "a", Type: discordgo.ApplicationCommandOptionUser, Required: true},
	}}
	b := &discordgo.ApplicationCommand{Name: "x", Description: "d", Options: []*discordgo.ApplicationCommandOption{
		a.Options[1], a.Options[0],
	}}
	assert.Equal(t, hashCommand(a), hashCommand(b))

	c := *a
	c.Description = "changed"
	assert.NotEqual(t, hashCommand(a), hashCommand(&c))

	lo := 1.0
	d := &discordgo.ApplicationCommand{Name: "x", Description: "d", Options: []*discordgo.ApplicationCommandOption{
		{Name: "level", Description: "l", Type: discordgo.ApplicationCommandOptionInteger, MinValue: &lo, MaxValue: 100},
	}}
	e := &discordgo.ApplicationCommand{Name: "x", Description: "d", Options: []*discordgo.ApplicationCommandOption{
		{Name: "level", Description: "l", Type: discordgo.ApplicationCommandOptionInteger, MinValue: &lo, MaxValue: 50},
	}}
	assert.NotEqual(t, hashCommand(d), hashCommand(e))
}

func TestRegisterCommandsSyncsOnlyChanges(t *testing.T) {
	f := newFixture(t)
	command.RegisterCommand(dummy{name: "sync-dummy", group: "dummy"})

	f.tr.HandleJSON(http.MethodGet, commandsPath, http.StatusOK, []*discordgo.ApplicationCommand{
		{ID: "9", Name: "obsolete"},
	})
	require.NoError(t, f.bot.registerCommands(bottest.GuildID))

	_, deleted := f.tr.Find(http.MethodDelete, commandsPath+"/9")
	assert.True(t, deleted)
	assert.Equal(t, 1, countOf(created(t, f.tr), "sync-dummy"))

	// Registered and unchanged: nothing to send.
	f.tr.HandleJSON(http.MethodGet, commandsPath, http.StatusOK, []*discordgo.ApplicationCommand{
		{ID: "10", Name: "sync-dummy"},
	})
	require.NoError(t, f.bot.registerCommands(bottest.GuildID))
	assert.Equal(t, 1, countOf(created(t, f.tr), "sync-dummy"))
	assert.Zero(t, f.tr.Count(http.MethodDelete, commandsPath+"/10"))
}

func TestRegisterCommandsDropsDisabledGroups(t *testing.T) {
	f := newFixture(t)
	command.RegisterCommand(dummy{name: "quiet-dummy", group: "quiet"})
	require.NoError(t, f.store.DisableGroup(bottest.GuildID, "quiet"))

	f.tr.HandleJSON(http.MethodGet, commandsPath, http.StatusOK, []*discordgo.ApplicationCommand{
		{ID: "11", Name: "quiet-dummy"},
	})
	require.NoError(t, f.bot.registerCommands(bottest.GuildID))

	_, deleted := f.tr.Find(http.MethodDelete, commandsPath+"/11")
	assert.True(t, deleted)
	assert.NotContains(t, created(t, f.tr), "quiet-dummy")
}

func TestRefreshGroupReenablesCommands(t *testing.T) {
	f := newFixture(t)
	command.RegisterCommand(dummy{name: "toggle-dummy", group: "toggled"})
	f.tr.HandleJSON(http.MethodGet, commandsPath, http.StatusOK, []*discordgo.ApplicationCommand{
		{ID: "12", Name: "toggle-dummy"},
	})

	require.NoError(t, f.store.DisableGroup(bottest.GuildID, "toggled"))
	f.bot.handleRefreshCommands(bot.SystemEvent{
		Type: bot.SystemEventRefreshCommands, GuildID: bottest.GuildID, Target: "group:toggled",
	})
	_, deleted := f.tr.Find(http.MethodDelete, commandsPath+"/12")
	assert.True(t, deleted)

	f.tr.HandleJSON(http.MethodGet, commandsPath, http.StatusOK, []*discordgo.ApplicationCommand{})
	require.NoError(t, f.store.EnableGroup(bottest.GuildID, "toggled"))
	f.bot.handleRefreshCommands(bot.SystemEvent{
		Type: bot.SystemEventRefreshCommands, GuildID: bottest.GuildID, Target: "group:toggled",
	})
	assert.Equal(t, []string{"toggle-dummy"}, created(t, f.tr))
}

func TestRefreshBlacklistedGuildRemovesEverything(t *testing.T) {
	f := newFixture(t)
	f.bot.cfg.DiscordGuildBlacklist = []string{bottest.GuildID}
	f.tr.HandleJSON(http.MethodGet, commandsPath, http.StatusOK, []*discordgo.ApplicationCommand{
		{ID: "1", Name: "a"}, {ID: "2", Name: "b"},
	})

	f.bot.handleRefreshCommands(bot.SystemEvent{Type: bot.SystemEventRefreshCommands, GuildID: bottest.GuildID})
	assert.Equal(t, 2, f.tr.Count(http.MethodDelete, commandsPath+"/"))
	assert.Zero(t, f.tr.Count(http.MethodPost, commandsPath))
}

func TestInteractionErrorIsReported(t *testing.T) {
	f := newFixture(t)
	command.RegisterCommand(dummy{name: "fail-dummy", group: "dummy", err: errors.New("boom")})

	f.bot.onInteractionCreate(f.s, bottest.Slash("fail-dummy"))

	reply, ok := f.tr.LastReply()
	require.True(t, ok)
	assert.Equal(t, bot.MsgUnexpected, reply.Text())
	assert.True(t, reply.Ephemeral())
}

func TestInteractionIgnoresUnknownCommands(t *testing.T) {
	f := newFixture(t)
	f.bot.onInteractionCreate(f.s, bottest.Slash("no-such-command"))
	assert.Empty(t, f.tr.Replies())
}

func TestGlobalBanEnforcedOnJoin(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.AddGlobalBan(storage.GlobalBan{UserID: "u9", Reason: "spam", Timestamp: time.Now()}))

	f.bot.onGuildMemberAdd(f.s, &discordgo.GuildMemberAdd{Member: &discordgo.Member{
		GuildID: bottest.GuildID, User: &discordgo.User{ID: "u9"},
	}})
	ban, ok := f.tr.Find(http.MethodPut, "/guilds/"+bottest.GuildID+"/bans/u9")
	require.True(t, ok)
	assert.Equal(t, globalBanReason, ban.Reason)

	f.bot.onGuildMemberAdd(f.s, &discordgo.GuildMemberAdd{Member: &discordgo.Member{
		GuildID: bottest.GuildID, User: &discordgo.User{ID: "u8"},
	}})
	assert.Zero(t, f.tr.Count(http.MethodPut, "/bans/u8"))
}

func TestFindUserVoiceState(t *testing.T) {
	f := newFixture(t)
	guild, err := f.s.State.Guild(bottest.GuildID)
	require.NoError(t, err)
	guild.VoiceStates = append(guild.VoiceStates, &discordgo.VoiceState{
		GuildID: bottest.GuildID, UserID: bottest.UserID, ChannelID: "voice-1",
	})

	vs, err := f.bot.FindUserVoiceState(bottest.GuildID, bottest.UserID)
	require.NoError(t, err)
	assert.Equal(t, "voice-1", vs.ChannelID)

	_, err = f.bot.FindUserVoiceState(bottest.GuildID, "someone-else")
	assert.Error(t, err)
	_, err = f.bot.FindUserVoiceState("unknown-guild", bottest.UserID)
	assert.Error(t, err)
}

func TestLiftMuteToleratesDepartedMember(t *testing.T) {
	f := newFixture(t)
	f.tr.Handle(http.MethodDelete, "/members/gone/roles/", http.StatusNotFound, `{"code":10007,"message":"Unknown Member"}`)
	f.tr.Handle(http.MethodDelete, "/members/locked/roles/", http.StatusForbidden, `{"code":50013,"message":"Missing Permissions"}`)

	assert.NoError(t, f.bot.liftMute(t.Context(), bottest.GuildID, "gone", "r1"))
	assert.Error(t, f.bot.liftMute(t.Context(), bottest.GuildID, "locked", "r1"))

	assert.NoError(t, f.bot.liftMute(t.Context(), bottest.GuildID, "u2", "r1"))
	req, ok := f.tr.Find(http.MethodDelete, "/members/u2/roles/r1")
	require.True(t, ok)
	assert.Equal(t, autoUnmuteReason, req.Reason)
}
