package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/keshon/modtune/internal/music/sources"
	"github.com/keshon/modtune/internal/music/stream"
)

type PlayerStatus string

const (
	StatusPlaying PlayerStatus = "Now Playing"
	StatusAdded   PlayerStatus = "Added to Queue"
	StatusStopped PlayerStatus = "Playback Stopped"
	StatusPaused  PlayerStatus = "Playback Paused"
	StatusResumed PlayerStatus = "Playback Resumed"
	StatusIdle    PlayerStatus = "Left Voice Channel"
	StatusError   PlayerStatus = "Error"
)

func (status PlayerStatus) StringEmoji() string {
	m := map[PlayerStatus]string{
		StatusPlaying: "🎵",
		StatusAdded:   "➕",
		StatusStopped: "⏹",
		StatusPaused:  "⏸",
		StatusResumed: "▶️",
		StatusIdle:    "👋",
		StatusError:   "❌",
	}
	return m[status]
}

// Event is published on Player.Events.
type Event struct {
	Status PlayerStatus
	Track  sources.Track
	Err    error
	// Auto is set when the queue advanced on its own.
	Auto bool
}

var (
	ErrNothingPlaying = errors.New("nothing is playing")
	ErrQueueFull      = errors.New("queue is full")
	ErrNotPaused      = errors.New("playback is not paused")
	ErrAlreadyPaused  = errors.New("playback is already paused")
	ErrNotConnected   = errors.New("not connected to a voice channel")
	ErrInvalidVolume  = errors.New("volume must be between 1 and 100")
)

// Connection is an open voice connection.
type Connection interface {
	ChannelID() string
	OpusSend() chan<- []byte
	Speaking(bool) error
	Disconnect() error
}

// Joiner opens voice connections.
type Joiner interface {
	Join(guildID, channelID string) (Connection, error)
}

// Streamer plays one track into out until it ends or ctx is cancelled.
type Streamer interface {
	Stream(ctx context.Context, t sources.Track, out chan<- []byte, ctl stream.Controls) error
}

type Options struct {
	MaxQueue    int
	IdleTimeout time.Duration
	Volume      int
	// OnLeave runs after the player disconnected because it was idle.
	OnLeave func(guildID string)
}

// Player plays one guild's queue. Only one track plays at a time; when it
// ends, advance pops the next one or arms the idle timer.
type Player struct {
	mu sync.Mutex

	guildID  string
	joiner   Joiner
	streamer Streamer
	opts     Options

	queue   *Queue
	current *sources.Track
	conn    Connection
	volume  int
	paused  bool

	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	idle   *time.Timer

	Events    chan Event
	quit      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

func New(guildID string, joiner Joiner, streamer Streamer, opts Options) *Player {
	if opts.Volume <= 0 || opts.Volume > 100 {
		opts.Volume = 50
	}
	return &Player{
		guildID:  guildID,
		joiner:   joiner,
		streamer: streamer,
		opts:     opts,
		queue:    NewQueue(opts.MaxQueue),
		volume:   opts.Volume,
		Events:   make(chan Event, 10),
		quit:     make(chan struct{}),
		logger:   slog.Default().With("component", "player", "guild", guildID),
	}
}

// Play starts t right away when the player is idle, otherwise queues it.
// It returns the queue position, 0 meaning t is playing now.
func (p *Player) Play(channelID string, t sources.Track) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		pos, err := p.queue.Push(t)
		if err != nil {
			return 0, err
		}
		p.logger.Info("track queued", "title", t.Title, "position", pos)
		p.emit(Event{Status: StatusAdded, Track: t})
		return pos, nil
	}

	if err := p.ensureConnLocked(channelID); err != nil {
		return 0, err
	}
	p.startLocked(t, false)
	return 0, nil
}

func (p *Player) ensureConnLocked(channelID string) error {
	if p.conn != nil && p.conn.ChannelID() == channelID {
		return nil
	}
	if p.conn != nil {
		_ = p.conn.Disconnect()
		p.conn = nil
	}
	conn, err := p.joiner.Join(p.guildID, channelID)
	if err != nil {
		return fmt.Errorf("join voice channel: %w", err)
	}
	p.conn = conn
	p.logger.Info("joined voice channel", "channel", channelID)
	return nil
}

func (p *Player) startLocked(t sources.Track, auto bool) {
	p.stopIdleLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.current = &t
	p.cancel = cancel
	p.done = done
	p.paused = false
	p.startedAt = time.Now()
	p.pausedTotal = 0

	p.logger.Info("starting track", "title", t.Title, "url", t.URL)
	p.emit(Event{Status: StatusPlaying, Track: t, Auto: auto})
	go p.run(ctx, t, p.conn, done)
}

func (p *Player) run(ctx context.Context, t sources.Track, conn Connection, done chan struct{}) {
	_ = conn.Speaking(true)
	err := p.streamer.Stream(ctx, t, conn.OpusSend(), p)
	_ = conn.Speaking(false)

	switch {
	case err == nil, errors.Is(err, context.Canceled):
	default:
		p.logger.Warn("track failed", "title", t.Title, "err", err)
		p.emit(Event{Status: StatusError, Track: t, Err: err})
	}
	close(done)
	p.advance(done)
}

// advance is the only place that moves to the next track.
func (p *Player) advance(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != done {
		return
	}
	p.current = nil
	p.cancel = nil
	p.done = nil
	p.paused = false

	if next, ok := p.queue.Pop(); ok && p.conn != nil {
		p.startLocked(next, true)
		return
	}
	p.armIdleLocked()
}

func (p *Player) armIdleLocked() {
	p.stopIdleLocked()
	if p.opts.IdleTimeout <= 0 {
		return
	}
	p.idle = time.AfterFunc(p.opts.IdleTimeout, p.onIdle)
}

func (p *Player) stopIdleLocked() {
	if p.idle != nil {
		p.idle.Stop()
		p.idle = nil
	}
}

func (p *Player) onIdle() {
	p.mu.Lock()
	if p.current != nil || p.conn == nil {
		p.mu.Unlock()
		return
	}
	conn := p.conn
	p.conn = nil
	p.idle = nil
	p.mu.Unlock()

	p.logger.Info("idle timeout, leaving voice")
	if err := conn.Disconnect(); err != nil {
		p.logger.Warn("disconnect failed", "err", err)
	}
	p.emit(Event{Status: StatusIdle})
	if p.opts.OnLeave != nil {
		p.opts.OnLeave(p.guildID)
	}
}

// Skip ends the current track; the next one starts on its own.
func (p *Player) Skip() (sources.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return sources.Track{}, ErrNothingPlaying
	}
	skipped := *p.current
	p.cancel()
	return skipped, nil
}

// Stop clears the queue, ends playback and leaves the voice channel.
func (p *Player) Stop() error {
	p.mu.Lock()
	if p.conn == nil && p.current == nil {
		p.mu.Unlock()
		return ErrNotConnected
	}
	p.queue.Clear()
	p.stopIdleLocked()

	cancel, done, conn := p.cancel, p.done, p.conn
	p.current = nil
	p.cancel = nil
	p.done = nil
	p.paused = false
	p.conn = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if conn != nil {
		if err := conn.Disconnect(); err != nil {
			p.logger.Warn("disconnect failed", "err", err)
		}
	}
	p.emit(Event{Status: StatusStopped})
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ErrNothingPlaying
	}
	if p.paused {
		return ErrAlreadyPaused
	}
	p.paused = true
	p.pausedAt = time.Now()
	p.emit(Event{Status: StatusPaused, Track: *p.current})
	return nil
}

func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ErrNothingPlaying
	}
	if !p.paused {
		return ErrNotPaused
	}
	p.paused = false
	p.pausedTotal += time.Since(p.pausedAt)
	p.emit(Event{Status: StatusResumed, Track: *p.current})
	return nil
}

// SetVolume takes effect on the next audio frame.
func (p *Player) SetVolume(v int) error {
	if v < 1 || v > 100 {
		return ErrInvalidVolume
	}
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
	return nil
}

func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// NowPlaying returns the current track and how long it has played.
func (p *Player) NowPlaying() (sources.Track, time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return sources.Track{}, 0, ErrNothingPlaying
	}
	elapsed := time.Since(p.startedAt) - p.pausedTotal
	if p.paused {
		elapsed -= time.Since(p.pausedAt)
	}
	return *p.current, max(elapsed, 0), nil
}

func (p *Player) Queue() []sources.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Items()
}

func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// ChannelID is the voice channel the player is connected to, "" when none.
func (p *Player) ChannelID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return ""
	}
	return p.conn.ChannelID()
}

// Close marks the player as discarded; listeners of Events should stop
// once Done is closed.
func (p *Player) Close() {
	p.closeOnce.Do(func() { close(p.quit) })
}

func (p *Player) Done() <-chan struct{} { return p.quit }

func (p *Player) emit(e Event) {
	select {
	case p.Events <- e:
	default:
		p.logger.Debug("player event dropped (channel full)", "status", e.Status)
	}
}
