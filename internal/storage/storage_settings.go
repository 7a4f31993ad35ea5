package storage

// GuildSettings overrides bot defaults for one guild. Zero values mean "use default".
type GuildSettings struct {
	MuteRoleName   string `json:"mute_role_name,omitempty"`
	LogChannelName string `json:"log_channel_name,omitempty"`
	MaxWarnings    int    `json:"max_warnings,omitempty"`
	Volume         int    `json:"volume,omitempty"`
}

// WithDefaults fills unset fields from defaults.
func (gs GuildSettings) WithDefaults(defaults GuildSettings) GuildSettings {
	if gs.MuteRoleName == "" {
		gs.MuteRoleName = defaults.MuteRoleName
	}
	if gs.LogChannelName == "" {
		gs.LogChannelName = defaults.LogChannelName
	}
	if gs.MaxWarnings <= 0 {
		gs.MaxWarnings = defaults.MaxWarnings
	}
	if gs.Volume <= 0 {
		gs.Volume = defaults.Volume
	}
	return gs
}

func (s *Storage) GetSettings(guildID string) (GuildSettings, error) {
	r, err := s.readGuild(guildID)
	if err != nil {
		return GuildSettings{}, err
	}
	return r.Settings, nil
}

// UpdateSettings applies fn to the stored settings of a guild.
func (s *Storage) UpdateSettings(guildID string, fn func(*GuildSettings)) error {
	return s.updateGuild(guildID, func(r *Record) error {
		fn(&r.Settings)
		return nil
	})
}

func (s *Storage) SetVolume(guildID string, volume int) error {
	return s.UpdateSettings(guildID, func(gs *GuildSettings) { gs.Volume = volume })
}
