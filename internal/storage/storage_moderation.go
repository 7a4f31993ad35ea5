package storage

import (
	"fmt"
	"time"
)

type Warning struct {
	ID          int       `json:"id"`
	Reason      string    `json:"reason"`
	ModeratorID string    `json:"moderator_id"`
	Timestamp   time.Time `json:"timestamp"`
}

type ModLogEntry struct {
	TargetID    string    `json:"target_id"`
	ModeratorID string    `json:"moderator_id"`
	Action      string    `json:"action"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// MuteRecord is a timed mute waiting to be lifted.
type MuteRecord struct {
	RoleID    string    `json:"role_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Reason    string    `json:"reason"`
}

// AddWarning stores a warning and returns it with its sequential ID.
func (s *Storage) AddWarning(guildID, userID, moderatorID, reason string) (Warning, error) {
	var w Warning
	err := s.updateGuild(guildID, func(r *Record) error {
		existing := r.Warnings[userID]
		w = Warning{
			ID:          len(existing) + 1,
			Reason:      reason,
			ModeratorID: moderatorID,
			Timestamp:   time.Now().UTC(),
		}
		r.Warnings[userID] = append(existing, w)
		return nil
	})
	return w, err
}

func (s *Storage) GetWarnings(guildID, userID string) ([]Warning, error) {
	r, err := s.readGuild(guildID)
	if err != nil {
		return nil, err
	}
	return r.Warnings[userID], nil
}

// ClearWarnings removes every warning of a user and returns how many were dropped.
func (s *Storage) ClearWarnings(guildID, userID string) (int, error) {
	var n int
	err := s.updateGuild(guildID, func(r *Record) error {
		n = len(r.Warnings[userID])
		delete(r.Warnings, userID)
		return nil
	})
	return n, err
}

func (s *Storage) AddModLog(guildID string, entry ModLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return s.updateGuild(guildID, func(r *Record) error {
		r.ModLogs = append(r.ModLogs, entry)
		if len(r.ModLogs) > modLogLimit {
			r.ModLogs = r.ModLogs[len(r.ModLogs)-modLogLimit:]
		}
		return nil
	})
}

// GetModLogs returns up to limit entries, newest first.
func (s *Storage) GetModLogs(guildID string, limit int) ([]ModLogEntry, error) {
	r, err := s.readGuild(guildID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(r.ModLogs) {
		limit = len(r.ModLogs)
	}
	out := make([]ModLogEntry, 0, limit)
	for i := len(r.ModLogs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.ModLogs[i])
	}
	return out, nil
}

func (s *Storage) SetMute(guildID, userID string, m MuteRecord) error {
	return s.updateGuild(guildID, func(r *Record) error {
		r.Mutes[userID] = m
		return nil
	})
}

func (s *Storage) GetMute(guildID, userID string) (MuteRecord, error) {
	r, err := s.readGuild(guildID)
	if err != nil {
		return MuteRecord{}, err
	}
	m, ok := r.Mutes[userID]
	if !ok {
		return MuteRecord{}, fmt.Errorf("mute for %s: %w", userID, ErrNotFound)
	}
	return m, nil
}

func (s *Storage) ClearMute(guildID, userID string) error {
	return s.updateGuild(guildID, func(r *Record) error {
		delete(r.Mutes, userID)
		return nil
	})
}

// PendingMutes returns every stored timed mute keyed by guild then user.
func (s *Storage) PendingMutes() (map[string]map[string]MuteRecord, error) {
	out := make(map[string]map[string]MuteRecord)
	for _, guildID := range s.GuildIDs() {
		r, err := s.readGuild(guildID)
		if err != nil {
			return nil, err
		}
		if len(r.Mutes) > 0 {
			out[guildID] = r.Mutes
		}
	}
	return out, nil
}
