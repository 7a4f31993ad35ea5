package storage

import (
	"fmt"
	"sort"
	"time"
)

type GlobalBan struct {
	UserID      string    `json:"user_id"`
	Reason      string    `json:"reason"`
	ModeratorID string    `json:"moderator_id"`
	Timestamp   time.Time `json:"timestamp"`
}

func (s *Storage) AddGlobalBan(ban GlobalBan) error {
	if ban.Timestamp.IsZero() {
		ban.Timestamp = time.Now().UTC()
	}
	return s.updateGlobal(func(r *GlobalRecord) error {
		r.Bans[ban.UserID] = ban
		return nil
	})
}

// RemoveGlobalBan deletes a global ban, returning ErrNotFound when absent.
func (s *Storage) RemoveGlobalBan(userID string) error {
	return s.updateGlobal(func(r *GlobalRecord) error {
		if _, ok := r.Bans[userID]; !ok {
			return fmt.Errorf("global ban %s: %w", userID, ErrNotFound)
		}
		delete(r.Bans, userID)
		return nil
	})
}

func (s *Storage) IsGloballyBanned(userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.readGlobal()
	if err != nil {
		return false, err
	}
	_, ok := r.Bans[userID]
	return ok, nil
}

// GlobalBans returns every global ban, oldest first.
func (s *Storage) GlobalBans() ([]GlobalBan, error) {
	s.mu.Lock()
	r, err := s.readGlobal()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]GlobalBan, 0, len(r.Bans))
	for _, b := range r.Bans {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}
