package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/keshon/modtune/internal/datastore"
)

const (
	commandHistoryLimit int = 20
	modLogLimit         int = 500

	globalKey = "global"
)

var ErrNotFound = errors.New("not found")

type Storage struct {
	ds *datastore.DataStore
	mu sync.Mutex
}

// Record is everything kept for a single guild.
type Record struct {
	CommandsHistory  []CommandHistoryRecord `json:"cmd_history"`
	CommandsDisabled []string               `json:"commands_disabled"`
	Warnings         map[string][]Warning   `json:"warnings"`
	ModLogs          []ModLogEntry          `json:"mod_logs"`
	Settings         GuildSettings          `json:"settings"`
	Mutes            map[string]MuteRecord  `json:"mutes"`
}

// GlobalRecord holds state that spans every guild.
type GlobalRecord struct {
	Bans map[string]GlobalBan `json:"global_bans"`
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return NewWithDataStore(ds), nil
}

// NewWithDataStore wraps an already opened datastore.
func NewWithDataStore(ds *datastore.DataStore) *Storage {
	return &Storage{ds: ds}
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// GuildIDs lists every guild that has stored state.
func (s *Storage) GuildIDs() []string {
	var out []string
	for _, k := range s.ds.Keys() {
		if k != globalKey {
			out = append(out, k)
		}
	}
	return out
}

func (s *Storage) getOrCreateGuildRecord(guildID string) (*Record, error) {
	var record Record
	err := s.ds.Get(guildID, &record)
	if err != nil && !errors.Is(err, datastore.ErrNotFound) {
		return nil, fmt.Errorf("load guild %s: %w", guildID, err)
	}

	if record.Warnings == nil {
		record.Warnings = map[string][]Warning{}
	}
	if record.Mutes == nil {
		record.Mutes = map[string]MuteRecord{}
	}
	if len(record.CommandsHistory) > commandHistoryLimit {
		record.CommandsHistory = record.CommandsHistory[len(record.CommandsHistory)-commandHistoryLimit:]
	}
	return &record, nil
}

// readGuild returns a snapshot of the guild record.
func (s *Storage) readGuild(guildID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateGuildRecord(guildID)
}

// updateGuild applies fn to the guild record and persists it unless fn fails.
func (s *Storage) updateGuild(guildID string, fn func(*Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	if err := fn(record); err != nil {
		return err
	}
	return s.ds.Put(guildID, record)
}

func (s *Storage) readGlobal() (*GlobalRecord, error) {
	var record GlobalRecord
	if err := s.ds.Get(globalKey, &record); err != nil && !errors.Is(err, datastore.ErrNotFound) {
		return nil, fmt.Errorf("load global record: %w", err)
	}
	if record.Bans == nil {
		record.Bans = map[string]GlobalBan{}
	}
	return &record, nil
}

func (s *Storage) updateGlobal(fn func(*GlobalRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.readGlobal()
	if err != nil {
		return err
	}
	if err := fn(record); err != nil {
		return err
	}
	return s.ds.Put(globalKey, record)
}
