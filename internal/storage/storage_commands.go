package storage

import (
	"slices"
	"time"
)

type CommandHistoryRecord struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	GuildName   string    `json:"guild_name"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Command     string    `json:"command"`
	Datetime    time.Time `json:"datetime"`
}

// SetCommand appends a command invocation to the guild history.
func (s *Storage) SetCommand(guildID, channelID, channelName, guildName, userID, username, command string) error {
	return s.AppendCommandToHistory(guildID, CommandHistoryRecord{
		ChannelID:   channelID,
		ChannelName: channelName,
		GuildName:   guildName,
		UserID:      userID,
		Username:    username,
		Command:     command,
		Datetime:    time.Now(),
	})
}

func (s *Storage) AppendCommandToHistory(guildID string, rec CommandHistoryRecord) error {
	return s.updateGuild(guildID, func(r *Record) error {
		r.CommandsHistory = append(r.CommandsHistory, rec)
		if len(r.CommandsHistory) > commandHistoryLimit {
			r.CommandsHistory = r.CommandsHistory[len(r.CommandsHistory)-commandHistoryLimit:]
		}
		return nil
	})
}

func (s *Storage) GetCommandsHistory(guildID string) ([]CommandHistoryRecord, error) {
	r, err := s.readGuild(guildID)
	if err != nil {
		return nil, err
	}
	return r.CommandsHistory, nil
}

func (s *Storage) DisableGroup(guildID, group string) error {
	return s.updateGuild(guildID, func(r *Record) error {
		if !slices.Contains(r.CommandsDisabled, group) {
			r.CommandsDisabled = append(r.CommandsDisabled, group)
		}
		return nil
	})
}

func (s *Storage) EnableGroup(guildID, group string) error {
	return s.updateGuild(guildID, func(r *Record) error {
		r.CommandsDisabled = slices.DeleteFunc(r.CommandsDisabled, func(g string) bool { return g == group })
		return nil
	})
}

func (s *Storage) IsGroupDisabled(guildID, group string) (bool, error) {
	r, err := s.readGuild(guildID)
	if err != nil {
		return false, err
	}
	return slices.Contains(r.CommandsDisabled, group), nil
}

func (s *Storage) GetDisabledGroups(guildID string) ([]string, error) {
	r, err := s.readGuild(guildID)
	if err != nil {
		return nil, err
	}
	return r.CommandsDisabled, nil
}
