package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/keshon/modtune/internal/music/sources"
	"github.com/keshon/modtune/internal/music/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu           sync.Mutex
	channel      string
	out          chan []byte
	disconnected bool
}

func (c *fakeConn) ChannelID() string { return c.channel }

func (c *fakeConn) OpusSend() chan<- []byte { return c.out }

func (c *fakeConn) Speaking(bool) error { return nil }

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

func (c *fakeConn) isDisconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

type fakeJoiner struct {
	mu    sync.Mutex
	conns []*fakeConn
	err   error
}

func (j *fakeJoiner) Join(_, channelID string) (Connection, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return nil, j.err
	}
	c := &fakeConn{channel: channelID, out: make(chan []byte, 1)}
	j.conns = append(j.conns, c)
	return c, nil
}

func (j *fakeJoiner) last() *fakeConn {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.conns[len(j.conns)-1]
}

// fakeStreamer plays each track until it is released or cancelled.
type fakeStreamer struct {
	mu       sync.Mutex
	started  []string
	release  map[string]chan struct{}
	failures map[string]error
}

func newFakeStreamer() *fakeStreamer {
	return &fakeStreamer{release: map[string]chan struct{}{}, failures: map[string]error{}}
}

func (s *fakeStreamer) gate(title string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.release[title]
	if !ok {
		ch = make(chan struct{})
		s.release[title] = ch
	}
	return ch
}

func (s *fakeStreamer) Stream(ctx context.Context, t sources.Track, _ chan<- []byte, _ stream.Controls) error {
	s.mu.Lock()
	s.started = append(s.started, t.Title)
	err := s.failures[t.Title]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	select {
	case <-s.gate(t.Title):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *fakeStreamer) finish(title string) { close(s.gate(title)) }

func (s *fakeStreamer) startedTitles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.started...)
}

func track(title string) sources.Track { return sources.Track{Title: title, URL: "https://x/" + title} }

func nowPlayingTitle(p *Player) string {
	t, _, err := p.NowPlaying()
	if err != nil {
		return ""
	}
	return t.Title
}

func newTestPlayer(opts Options) (*Player, *fakeJoiner, *fakeStreamer) {
	j := &fakeJoiner{}
	s := newFakeStreamer()
	return New("g1", j, s, opts), j, s
}

func TestQueueBoundsAndOrder(t *testing.T) {
	q := NewQueue(2)
	pos, err := q.Push(track("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	pos, _ = q.Push(track("b"))
	assert.Equal(t, 2, pos)
	_, err = q.Push(track("c"))
	assert.ErrorIs(t, err, ErrQueueFull)

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", first.Title)
	assert.Equal(t, 1, q.Len())
	q.Clear()
	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestPlayStartsThenQueues(t *testing.T) {
	p, j, s := newTestPlayer(Options{MaxQueue: 5})

	pos, err := p.Play("vc", track("one"))
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	require.Eventually(t, func() bool { return len(s.startedTitles()) == 1 }, time.Second, time.Millisecond)

	pos, err = p.Play("vc", track("two"))
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	assert.Equal(t, "one", nowPlayingTitle(p))
	assert.Len(t, j.conns, 1)
	assert.Equal(t, "vc", p.ChannelID())
}

func TestAdvanceOnTrackEnd(t *testing.T) {
	p, _, s := newTestPlayer(Options{MaxQueue: 5})
	_, _ = p.Play("vc", track("one"))
	_, _ = p.Play("vc", track("two"))

	s.finish("one")
	require.Eventually(t, func() bool { return nowPlayingTitle(p) == "two" }, time.Second, time.Millisecond)
	assert.Empty(t, p.Queue())
}

func TestSkipAdvances(t *testing.T) {
	p, _, s := newTestPlayer(Options{MaxQueue: 5})
	_, _ = p.Play("vc", track("one"))
	_, _ = p.Play("vc", track("two"))

	skipped, err := p.Skip()
	require.NoError(t, err)
	assert.Equal(t, "one", skipped.Title)
	require.Eventually(t, func() bool { return nowPlayingTitle(p) == "two" }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"one", "two"}, s.startedTitles())
}

func TestFailingTrackIsSkipped(t *testing.T) {
	p, _, s := newTestPlayer(Options{MaxQueue: 5})
	s.failures["bad"] = errors.New("no formats")
	_, _ = p.Play("vc", track("one"))
	_, _ = p.Play("vc", track("bad"))
	_, _ = p.Play("vc", track("good"))

	s.finish("one")
	require.Eventually(t, func() bool { return nowPlayingTitle(p) == "good" }, time.Second, time.Millisecond)
}

func TestQueueFull(t *testing.T) {
	p, _, _ := newTestPlayer(Options{MaxQueue: 1})
	_, _ = p.Play("vc", track("one"))
	_, err := p.Play("vc", track("two"))
	require.NoError(t, err)
	_, err = p.Play("vc", track("three"))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestJoinFailure(t *testing.T) {
	p, j, _ := newTestPlayer(Options{})
	j.err = errors.New("no permission")
	_, err := p.Play("vc", track("one"))
	assert.ErrorContains(t, err, "no permission")
	assert.False(t, p.IsPlaying())
}

func TestStopClearsAndDisconnects(t *testing.T) {
	p, j, s := newTestPlayer(Options{MaxQueue: 5})
	_, _ = p.Play("vc", track("one"))
	_, _ = p.Play("vc", track("two"))
	require.Eventually(t, func() bool { return len(s.startedTitles()) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, p.Stop())
	assert.False(t, p.IsPlaying())
	assert.Empty(t, p.Queue())
	assert.True(t, j.last().isDisconnected())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"one"}, s.startedTitles())
	assert.ErrorIs(t, p.Stop(), ErrNotConnected)
}

func TestPauseResume(t *testing.T) {
	p, _, _ := newTestPlayer(Options{})
	assert.ErrorIs(t, p.Pause(), ErrNothingPlaying)
	assert.ErrorIs(t, p.Resume(), ErrNothingPlaying)

	_, _ = p.Play("vc", track("one"))
	assert.ErrorIs(t, p.Resume(), ErrNotPaused)
	require.NoError(t, p.Pause())
	assert.True(t, p.Paused())
	assert.ErrorIs(t, p.Pause(), ErrAlreadyPaused)
	require.NoError(t, p.Resume())
	assert.False(t, p.Paused())
}

func TestVolume(t *testing.T) {
	p, _, _ := newTestPlayer(Options{Volume: 30})
	assert.Equal(t, 30, p.Volume())
	require.NoError(t, p.SetVolume(80))
	assert.Equal(t, 80, p.Volume())
	assert.ErrorIs(t, p.SetVolume(0), ErrInvalidVolume)
	assert.ErrorIs(t, p.SetVolume(101), ErrInvalidVolume)

	p, _, _ = newTestPlayer(Options{})
	assert.Equal(t, 50, p.Volume())
}

func TestIdleTimeoutLeaves(t *testing.T) {
	left := make(chan string, 1)
	p, j, s := newTestPlayer(Options{IdleTimeout: 30 * time.Millisecond, OnLeave: func(g string) { left <- g }})
	_, _ = p.Play("vc", track("one"))
	s.finish("one")

	select {
	case g := <-left:
		assert.Equal(t, "g1", g)
	case <-time.After(time.Second):
		t.Fatal("player did not leave")
	}
	assert.True(t, j.last().isDisconnected())
	assert.Equal(t, "", p.ChannelID())
}

func TestIdleTimerCancelledByNewTrack(t *testing.T) {
	left := make(chan string, 1)
	p, _, s := newTestPlayer(Options{IdleTimeout: 50 * time.Millisecond, OnLeave: func(g string) { left <- g }})
	_, _ = p.Play("vc", track("one"))
	s.finish("one")
	require.Eventually(t, func() bool { return !p.IsPlaying() }, time.Second, time.Millisecond)

	_, err := p.Play("vc", track("two"))
	require.NoError(t, err)

	select {
	case <-left:
		t.Fatal("left while playing")
	case <-time.After(120 * time.Millisecond):
	}
	assert.Equal(t, "two", nowPlayingTitle(p))
}

func TestEventsPublished(t *testing.T) {
	p, _, _ := newTestPlayer(Options{MaxQueue: 5})
	_, _ = p.Play("vc", track("one"))
	_, _ = p.Play("vc", track("two"))

	e := <-p.Events
	assert.Equal(t, StatusPlaying, e.Status)
	assert.Equal(t, "one", e.Track.Title)
	e = <-p.Events
	assert.Equal(t, StatusAdded, e.Status)
	assert.Equal(t, "🎵", StatusPlaying.StringEmoji())
}

func TestManagerLifecycle(t *testing.T) {
	j := &fakeJoiner{}
	s := newFakeStreamer()
	m := NewManager(j, s, Options{MaxQueue: 5, IdleTimeout: 20 * time.Millisecond})
	m.VolumeFor = func(string) int { return 70 }
	created := 0
	m.OnCreate = func(string, *Player) { created++ }

	p := m.GetOrCreate("g")
	assert.Same(t, p, m.GetOrCreate("g"))
	assert.Equal(t, 1, created)
	assert.Equal(t, 70, p.Volume())

	_, _ = p.Play("vc", track("one"))
	s.finish("one")
	require.Eventually(t, func() bool { return m.Count() == 0 }, time.Second, 5*time.Millisecond)

	p = m.GetOrCreate("g")
	_, _ = p.Play("vc", track("two"))
	require.NoError(t, m.Stop("g"))
	assert.ErrorIs(t, m.Stop("g"), ErrNotConnected)

	m.GetOrCreate("a")
	m.GetOrCreate("b")
	m.StopAll()
	assert.Zero(t, m.Count())
}

func TestAdvanceMarksEventAuto(t *testing.T) {
	p, _, s := newTestPlayer(Options{MaxQueue: 5})
	_, _ = p.Play("vc", track("one"))
	_, _ = p.Play("vc", track("two"))
	s.finish("one")

	var got []Event
	require.Eventually(t, func() bool {
		select {
		case e := <-p.Events:
			got = append(got, e)
		default:
		}
		return len(got) == 3
	}, time.Second, time.Millisecond)

	assert.False(t, got[0].Auto)
	assert.Equal(t, StatusAdded, got[1].Status)
	assert.Equal(t, StatusPlaying, got[2].Status)
	assert.Equal(t, "two", got[2].Track.Title)
	assert.True(t, got[2].Auto)
}

func TestManagerClosesForgottenPlayers(t *testing.T) {
	m := NewManager(&fakeJoiner{}, newFakeStreamer(), Options{MaxQueue: 5})
	p := m.GetOrCreate("g")
	_, _ = p.Play("vc", track("one"))
	require.NoError(t, m.Stop("g"))

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("player not closed")
	}
	p.Close()
}
