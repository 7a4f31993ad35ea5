package player

import (
	"sync"
)

// Manager owns one Player per guild.
type Manager struct {
	mu      sync.Mutex
	players map[string]*Player

	joiner   Joiner
	streamer Streamer
	opts     Options

	// VolumeFor supplies the stored volume for a new player.
	VolumeFor func(guildID string) int
	// OnCreate lets callers attach listeners to new players.
	OnCreate func(guildID string, p *Player)
}

func NewManager(joiner Joiner, streamer Streamer, opts Options) *Manager {
	return &Manager{
		players:  make(map[string]*Player),
		joiner:   joiner,
		streamer: streamer,
		opts:     opts,
	}
}

func (m *Manager) Get(guildID string) (*Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[guildID]
	return p, ok
}

func (m *Manager) GetOrCreate(guildID string) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[guildID]; ok {
		return p
	}

	opts := m.opts
	if m.VolumeFor != nil {
		opts.Volume = m.VolumeFor(guildID)
	}
	p := New(guildID, m.joiner, m.streamer, opts)
	userLeave := opts.OnLeave
	p.opts.OnLeave = func(id string) {
		m.removeIdle(id, p)
		if userLeave != nil {
			userLeave(id)
		}
	}
	m.players[guildID] = p
	if m.OnCreate != nil {
		m.OnCreate(guildID, p)
	}
	return p
}

// removeIdle forgets p unless it was reused after going idle.
func (m *Manager) removeIdle(guildID string, p *Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.players[guildID] == p && !p.IsPlaying() && p.ChannelID() == "" {
		delete(m.players, guildID)
		p.Close()
	}
}

// Stop stops and forgets the guild's player.
func (m *Manager) Stop(guildID string) error {
	m.mu.Lock()
	p, ok := m.players[guildID]
	delete(m.players, guildID)
	m.mu.Unlock()
	if !ok {
		return ErrNotConnected
	}
	defer p.Close()
	return p.Stop()
}

// StopAll is called on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	players := make([]*Player, 0, len(m.players))
	for id, p := range m.players {
		players = append(players, p)
		delete(m.players, id)
	}
	m.mu.Unlock()

	for _, p := range players {
		_ = p.Stop()
		p.Close()
	}
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players)
}
