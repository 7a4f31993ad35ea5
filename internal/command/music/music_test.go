package music

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/bot/bottest"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	"github.com/keshon/modtune/internal/music/player"
	"github.com/keshon/modtune/internal/music/sources"
	"github.com/keshon/modtune/internal/music/stream"
	"github.com/keshon/modtune/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct{ channel string }

func (c *fakeConn) ChannelID() string { return c.channel }

func (c *fakeConn) OpusSend() chan<- []byte { return make(chan []byte, 1) }

func (c *fakeConn) Speaking(bool) error { return nil }

func (c *fakeConn) Disconnect() error { return nil }

type fakeJoiner struct{}

func (fakeJoiner) Join(_, channelID string) (player.Connection, error) {
	return &fakeConn{channel: channelID}, nil
}

// endlessStreamer plays until cancelled.
type endlessStreamer struct{}

func (endlessStreamer) Stream(ctx context.Context, _ sources.Track, _ chan<- []byte, _ stream.Controls) error {
	<-ctx.Done()
	return ctx.Err()
}

type fakeVoice struct {
	players *player.Manager
	mu      sync.Mutex
	states  map[string]string
}

func (v *fakeVoice) Players() *player.Manager { return v.players }

func (v *fakeVoice) FindUserVoiceState(_, userID string) (*bot.VoiceState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ch, ok := v.states[userID]
	if !ok {
		return nil, errors.New("user not in voice")
	}
	return &bot.VoiceState{ChannelID: ch, UserID: userID}, nil
}

type fakeResolver struct{ err error }

func (r fakeResolver) Resolve(_ context.Context, input string) (sources.Track, error) {
	if r.err != nil {
		return sources.Track{}, r.err
	}
	return sources.Track{Title: input, URL: "https://example.com/" + input, Duration: 3 * time.Minute}, nil
}

type fixture struct {
	session *discordgo.Session
	tr      *bottest.Transport
	store   *storage.Storage
	voice   *fakeVoice
	base    base
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, tr := bottest.NewSession(t)
	store, err := storage.New(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	m := player.NewManager(fakeJoiner{}, endlessStreamer{}, player.Options{MaxQueue: 20})
	t.Cleanup(m.StopAll)
	voice := &fakeVoice{players: m, states: map[string]string{bottest.UserID: "voice-1"}}
	return &fixture{session: s, tr: tr, store: store, voice: voice, base: base{Bot: voice}}
}

func (f *fixture) run(t *testing.T, c command.DiscordCommand, e *discordgo.InteractionCreate) {
	t.Helper()
	require.NoError(t, c.Run(&command.SlashInteractionContext{
		Session: f.session,
		Event:   e,
		Storage: f.store,
		Config:  &config.Config{},
	}))
}

func (f *fixture) last(t *testing.T) bottest.Response {
	t.Helper()
	r, ok := f.tr.LastReply()
	require.True(t, ok, "no reply sent")
	return r
}

func (f *fixture) play(t *testing.T, titles ...string) {
	t.Helper()
	c := &PlayCommand{base: f.base, Resolver: fakeResolver{}}
	for _, title := range titles {
		f.run(t, c, bottest.Slash("play", bottest.StringOpt("song", title)))
	}
}

func TestPlayRequiresVoiceChannel(t *testing.T) {
	f := newFixture(t)
	f.voice.states = map[string]string{}

	f.play(t, "song")

	r := f.last(t)
	assert.Equal(t, msgNotInVoice, r.Text())
	assert.True(t, r.Ephemeral())
	assert.Equal(t, 0, f.voice.players.Count())
}

func TestPlayStartsThenQueues(t *testing.T) {
	f := newFixture(t)

	f.play(t, "first")
	embeds := f.last(t).AllEmbeds()
	require.Len(t, embeds, 1)
	assert.Equal(t, "🎵 Now Playing", embeds[0].Title)
	assert.Contains(t, embeds[0].Description, "first")

	f.play(t, "second")
	embeds = f.last(t).AllEmbeds()
	require.Len(t, embeds, 1)
	assert.Equal(t, "➕ Added to Queue", embeds[0].Title)
	assert.Equal(t, "#1", embeds[0].Fields[len(embeds[0].Fields)-1].Value)

	p, ok := f.voice.players.Get(bottest.GuildID)
	require.True(t, ok)
	assert.Equal(t, "voice-1", p.ChannelID())
	assert.Len(t, p.Queue(), 1)
}

func TestPlayUnresolvableSong(t *testing.T) {
	f := newFixture(t)
	c := &PlayCommand{base: f.base, Resolver: fakeResolver{err: sources.ErrNoResults}}

	f.run(t, c, bottest.Slash("play", bottest.StringOpt("song", "nothing")))

	assert.Equal(t, "❌ Could not find that song!", f.last(t).Text())
	assert.Equal(t, 0, f.voice.players.Count())
}

func TestPauseResume(t *testing.T) {
	f := newFixture(t)
	pause := &PauseCommand{base: f.base}
	resume := &ResumeCommand{base: f.base}

	f.run(t, pause, bottest.Slash("pause"))
	assert.Equal(t, msgNothingPlaying, f.last(t).Text())

	f.play(t, "song")
	f.run(t, resume, bottest.Slash("resume"))
	assert.Equal(t, "❌ The music is not paused!", f.last(t).Text())

	f.run(t, pause, bottest.Slash("pause"))
	assert.Equal(t, "⏸️ Paused the music!", f.last(t).Text())

	f.run(t, pause, bottest.Slash("pause"))
	assert.Equal(t, "❌ The music is already paused!", f.last(t).Text())
	assert.True(t, f.last(t).Ephemeral())

	f.run(t, resume, bottest.Slash("resume"))
	assert.Equal(t, "▶️ Resumed the music!", f.last(t).Text())
}

func TestSkipAdvancesQueue(t *testing.T) {
	f := newFixture(t)
	f.play(t, "one", "two")

	f.run(t, &SkipCommand{base: f.base}, bottest.Slash("skip"))
	assert.Equal(t, "⏭️ Skipped **one**!", f.last(t).Text())

	p, _ := f.voice.players.Get(bottest.GuildID)
	assert.Eventually(t, func() bool {
		cur, _, err := p.NowPlaying()
		return err == nil && cur.Title == "two"
	}, time.Second, 10*time.Millisecond)
}

func TestStop(t *testing.T) {
	f := newFixture(t)
	stop := &StopCommand{base: f.base}

	f.run(t, stop, bottest.Slash("stop"))
	assert.Equal(t, msgNotConnected, f.last(t).Text())

	f.play(t, "one", "two")
	f.run(t, stop, bottest.Slash("stop"))
	assert.Equal(t, "⏹️ Stopped the music and disconnected!", f.last(t).Text())
	assert.Equal(t, 0, f.voice.players.Count())
}

func TestVolumePersistsAndApplies(t *testing.T) {
	f := newFixture(t)
	vol := &VolumeCommand{base: f.base}

	f.run(t, vol, bottest.Slash("volume", bottest.IntOpt("level", 30)))
	assert.Equal(t, "🔊 Volume set to 30%", f.last(t).Text())
	settings, err := f.store.GetSettings(bottest.GuildID)
	require.NoError(t, err)
	assert.Equal(t, 30, settings.Volume)

	f.play(t, "song")
	f.run(t, vol, bottest.Slash("volume", bottest.IntOpt("level", 80)))
	p, _ := f.voice.players.Get(bottest.GuildID)
	assert.Equal(t, 80, p.Volume())

	f.run(t, vol, bottest.Slash("volume", bottest.IntOpt("level", 150)))
	assert.Equal(t, "❌ Volume must be between 1 and 100!", f.last(t).Text())
	assert.Equal(t, 80, p.Volume())
}

func TestQueueListsUpcoming(t *testing.T) {
	f := newFixture(t)
	q := &QueueCommand{base: f.base}

	f.run(t, q, bottest.Slash("queue"))
	assert.Equal(t, "❌ The queue is empty!", f.last(t).Text())

	titles := []string{"now"}
	for i := 1; i <= 12; i++ {
		titles = append(titles, fmt.Sprintf("track%d", i))
	}
	f.play(t, titles...)

	f.run(t, q, bottest.Slash("queue"))
	embeds := f.last(t).AllEmbeds()
	require.Len(t, embeds, 1)
	require.Len(t, embeds[0].Fields, 2)
	assert.Contains(t, embeds[0].Fields[0].Value, "now")
	assert.Contains(t, embeds[0].Fields[1].Value, "`10.` [track10]")
	assert.NotContains(t, embeds[0].Fields[1].Value, "track11")
	assert.Contains(t, embeds[0].Fields[1].Value, "and 2 more")
	assert.Equal(t, "12 song(s) in queue", embeds[0].Footer.Text)
}

func TestNowPlaying(t *testing.T) {
	f := newFixture(t)
	np := &NowPlayingCommand{base: f.base}

	f.run(t, np, bottest.Slash("nowplaying"))
	assert.Equal(t, msgNothingPlaying, f.last(t).Text())

	f.play(t, "song")
	p, _ := f.voice.players.Get(bottest.GuildID)
	require.NoError(t, p.Pause())

	f.run(t, np, bottest.Slash("nowplaying"))
	embeds := f.last(t).AllEmbeds()
	require.Len(t, embeds, 1)
	assert.Equal(t, "🎵 Now Playing", embeds[0].Title)
	assert.Equal(t, "⏸️ Paused", embeds[0].Footer.Text)
}

func TestAnnouncementOnlyForAutoAdvance(t *testing.T) {
	tr := sources.Track{Title: "next"}
	assert.Nil(t, announcement(player.Event{Status: player.StatusPlaying, Track: tr}))
	assert.Nil(t, announcement(player.Event{Status: player.StatusPaused, Track: tr}))

	e := announcement(player.Event{Status: player.StatusPlaying, Track: tr, Auto: true})
	require.NotNil(t, e)
	assert.Equal(t, "🎵 Now Playing", e.Title)

	e = announcement(player.Event{Status: player.StatusIdle})
	require.NotNil(t, e)
	assert.Contains(t, e.Description, "inactivity")
}

func TestAnnouncerPostsToLastChannel(t *testing.T) {
	s, tr := bottest.NewSession(t)
	a := NewAnnouncer(s)
	p := player.New(bottest.GuildID, fakeJoiner{}, endlessStreamer{}, player.Options{})
	a.Attach(bottest.GuildID, p)
	defer p.Close()

	p.Events <- player.Event{Status: player.StatusPlaying, Track: sources.Track{Title: "x"}, Auto: true}
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, tr.Count("POST", "/messages"), "no channel set yet")

	a.SetChannel(bottest.GuildID, bottest.ChannelID)
	p.Events <- player.Event{Status: player.StatusIdle}
	assert.Eventually(t, func() bool {
		return tr.Count("POST", "/channels/"+bottest.ChannelID+"/messages") == 1
	}, time.Second, 10*time.Millisecond)
}
