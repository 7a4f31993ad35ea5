package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/storage"
	"github.com/keshon/modtune/pkg/jobmgr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"30s":      30 * time.Second,
		"10m":      10 * time.Minute,
		"2h":       2 * time.Hour,
		"1d":       24 * time.Hour,
		"1h30m":    90 * time.Minute,
		"1h 30m":   90 * time.Minute,
		"1D2H":     26 * time.Hour,
		"5m5m":     10 * time.Minute,
		"for 15m!": 15 * time.Minute,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseDurationRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "10", "10w", "0s"} {
		_, err := ParseDuration(in)
		assert.ErrorIs(t, err, ErrInvalidDuration, in)
	}
}

func TestParseDurationRejectsHugeValues(t *testing.T) {
	for _, in := range []string{"300000d", "366d", "365d1s", "99999999999999999999s", "9223372036854775807h"} {
		_, err := ParseDuration(in)
		assert.ErrorIs(t, err, ErrDurationTooLong, in)
	}
	got, err := ParseDuration("365d")
	require.NoError(t, err)
	assert.Equal(t, MaxDuration, got)
}

func TestGuardCheck(t *testing.T) {
	g := Guard{OwnerID: "owner", GuildOwnerID: "gowner"}

	assert.ErrorIs(t, g.Check(Actor{UserID: "mod", RolePosition: 10}, Actor{UserID: "owner"}), ErrTargetIsOwner)
	assert.ErrorIs(t, g.Check(Actor{UserID: "gowner"}, Actor{UserID: "owner"}), ErrTargetIsOwner)

	assert.ErrorIs(t, g.Check(Actor{UserID: "mod", RolePosition: 5}, Actor{UserID: "u", RolePosition: 5}), ErrHierarchy)
	assert.ErrorIs(t, g.Check(Actor{UserID: "mod", RolePosition: 5}, Actor{UserID: "u", RolePosition: 7}), ErrHierarchy)
	assert.ErrorIs(t, g.Check(Actor{UserID: "mod", RolePosition: 99}, Actor{UserID: "gowner"}), ErrHierarchy)
	assert.NoError(t, g.Check(Actor{UserID: "mod", RolePosition: 5}, Actor{UserID: "u", RolePosition: 4}))

	assert.NoError(t, g.Check(Actor{UserID: "owner"}, Actor{UserID: "u", RolePosition: 50}))
	assert.NoError(t, g.Check(Actor{UserID: "gowner"}, Actor{UserID: "u", RolePosition: 50}))
}

func TestTopRolePosition(t *testing.T) {
	roles := []*discordgo.Role{{ID: "a", Position: 1}, {ID: "b", Position: 8}, {ID: "c", Position: 3}}
	assert.Equal(t, 8, TopRolePosition(roles, []string{"a", "b"}))
	assert.Equal(t, 3, TopRolePosition(roles, []string{"c", "missing"}))
	assert.Equal(t, 0, TopRolePosition(roles, nil))
}

type fakeRoleAPI struct {
	roles     []*discordgo.Role
	channels  []*discordgo.Channel
	created   []*discordgo.RoleParams
	overwrite map[string]int64
}

func (f *fakeRoleAPI) GuildRoles(string, ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	return f.roles, nil
}

func (f *fakeRoleAPI) GuildRoleCreate(_ string, data *discordgo.RoleParams, _ ...discordgo.RequestOption) (*discordgo.Role, error) {
	f.created = append(f.created, data)
	r := &discordgo.Role{ID: "new-role", Name: data.Name}
	f.roles = append(f.roles, r)
	return r, nil
}

func (f *fakeRoleAPI) GuildChannels(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return f.channels, nil
}

func (f *fakeRoleAPI) ChannelPermissionSet(channelID, _ string, _ discordgo.PermissionOverwriteType, _, deny int64, _ ...discordgo.RequestOption) error {
	if f.overwrite == nil {
		f.overwrite = map[string]int64{}
	}
	f.overwrite[channelID] = deny
	return nil
}

func TestEnsureMuteRoleReusesExisting(t *testing.T) {
	api := &fakeRoleAPI{roles: []*discordgo.Role{{ID: "r1", Name: "Muted"}}}
	role, err := EnsureMuteRole(api, "g", "Muted")
	require.NoError(t, err)
	assert.Equal(t, "r1", role.ID)
	assert.Empty(t, api.created)
}

func TestEnsureMuteRoleCreatesAndDenies(t *testing.T) {
	api := &fakeRoleAPI{channels: []*discordgo.Channel{
		{ID: "text", Type: discordgo.ChannelTypeGuildText},
		{ID: "voice", Type: discordgo.ChannelTypeGuildVoice},
		{ID: "dm", Type: discordgo.ChannelTypeDM},
	}}
	role, err := EnsureMuteRole(api, "g", "Muted")
	require.NoError(t, err)
	assert.Equal(t, "new-role", role.ID)
	require.Len(t, api.created, 1)
	assert.Equal(t, "Muted", api.created[0].Name)

	assert.Len(t, api.overwrite, 2)
	assert.NotZero(t, api.overwrite["text"]&discordgo.PermissionSendMessages)
	assert.NotZero(t, api.overwrite["voice"]&discordgo.PermissionVoiceSpeak)
}

func TestHasRole(t *testing.T) {
	assert.True(t, HasRole(&discordgo.Member{Roles: []string{"a", "b"}}, "b"))
	assert.False(t, HasRole(&discordgo.Member{Roles: []string{"a"}}, "b"))
	assert.False(t, HasRole(nil, "b"))
}

type memMuteStore struct {
	mu    sync.Mutex
	mutes map[string]map[string]storage.MuteRecord
}

func newMemMuteStore() *memMuteStore {
	return &memMuteStore{mutes: map[string]map[string]storage.MuteRecord{}}
}

func (s *memMuteStore) SetMute(g, u string, m storage.MuteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutes[g] == nil {
		s.mutes[g] = map[string]storage.MuteRecord{}
	}
	s.mutes[g][u] = m
	return nil
}

func (s *memMuteStore) ClearMute(g, u string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mutes[g], u)
	return nil
}

func (s *memMuteStore) PendingMutes() (map[string]map[string]storage.MuteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]map[string]storage.MuteRecord{}
	for g, users := range s.mutes {
		out[g] = map[string]storage.MuteRecord{}
		for u, m := range users {
			out[g][u] = m
		}
	}
	return out, nil
}

func (s *memMuteStore) has(g, u string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.mutes[g][u]
	return ok
}

type liftRecorder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (l *liftRecorder) lift(_ context.Context, g, u, role string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, g+"/"+u+"/"+role)
	return l.err
}

func (l *liftRecorder) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func TestMuteSchedulerLiftsAfterDelay(t *testing.T) {
	store := newMemMuteStore()
	rec := &liftRecorder{}
	jobs := jobmgr.NewManager(nil)
	defer jobs.StopAll()
	s := NewMuteScheduler(jobs, store, rec.lift)

	require.NoError(t, s.Schedule("g", "u", "role", "spam", 30*time.Millisecond))
	assert.True(t, store.has("g", "u"))
	_, pending := s.Pending("g", "u")
	assert.True(t, pending)

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !store.has("g", "u") }, time.Second, 5*time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, []string{"g/u/role"}, rec.calls)
	rec.mu.Unlock()
}

func TestMuteSchedulerClearsOnLiftFailure(t *testing.T) {
	store := newMemMuteStore()
	rec := &liftRecorder{err: errors.New("member left")}
	jobs := jobmgr.NewManager(nil)
	defer jobs.StopAll()
	s := NewMuteScheduler(jobs, store, rec.lift)

	require.NoError(t, s.Schedule("g", "u", "role", "", 10*time.Millisecond))
	require.Eventually(t, func() bool { return !store.has("g", "u") }, time.Second, 5*time.Millisecond)
}

func TestMuteSchedulerCancel(t *testing.T) {
	store := newMemMuteStore()
	rec := &liftRecorder{}
	jobs := jobmgr.NewManager(nil)
	defer jobs.StopAll()
	s := NewMuteScheduler(jobs, store, rec.lift)

	require.NoError(t, s.Schedule("g", "u", "role", "", 50*time.Millisecond))
	require.NoError(t, s.Cancel("g", "u"))
	assert.False(t, store.has("g", "u"))

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestMuteSchedulerRestore(t *testing.T) {
	store := newMemMuteStore()
	require.NoError(t, store.SetMute("g", "expired", storage.MuteRecord{RoleID: "r", ExpiresAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, store.SetMute("g", "later", storage.MuteRecord{RoleID: "r", ExpiresAt: time.Now().Add(time.Hour)}))

	rec := &liftRecorder{}
	jobs := jobmgr.NewManager(nil)
	defer jobs.StopAll()
	s := NewMuteScheduler(jobs, store, rec.lift)

	n, err := s.Restore()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, store.has("g", "later"))
	assert.False(t, store.has("g", "expired"))
}

func TestWarningsEmbedShowsLastFive(t *testing.T) {
	var ws []storage.Warning
	for i := 1; i <= 7; i++ {
		ws = append(ws, storage.Warning{ID: i, Reason: "r", ModeratorID: "m", Timestamp: time.Now()})
	}
	e := WarningsEmbed(&discordgo.User{ID: "u", Username: "bob"}, ws)
	require.Len(t, e.Fields, 5)
	assert.Equal(t, "Warning #3", e.Fields[0].Name)
	assert.Equal(t, "Warning #7", e.Fields[4].Name)
	assert.Equal(t, "Total warnings: 7", e.Footer.Text)
}

func TestActionEmbed(t *testing.T) {
	target := &discordgo.User{ID: "1", Username: "bob"}
	mod := &discordgo.User{ID: "2", Username: "alice"}
	e := ActionEmbed("🔇 Member Muted", target, mod, "", MuteDurationField(""))
	require.Len(t, e.Fields, 4)
	assert.Equal(t, "Permanent", e.Fields[2].Value)
	assert.Equal(t, DefaultReason, e.Fields[3].Value)
	assert.Equal(t, "1d", MuteDurationField(" 1d ").Value)
}
