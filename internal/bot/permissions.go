package bot

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

var PermissionNames = map[int64]string{
	discordgo.PermissionAdministrator:    "Administrator",
	discordgo.PermissionKickMembers:      "Kick Members",
	discordgo.PermissionBanMembers:       "Ban Members",
	discordgo.PermissionManageGuild:      "Manage Server",
	discordgo.PermissionManageChannels:   "Manage Channels",
	discordgo.PermissionManageRoles:      "Manage Roles",
	discordgo.PermissionManageMessages:   "Manage Messages",
	discordgo.PermissionModerateMembers:  "Moderate Members",
	discordgo.PermissionViewAuditLogs:    "View Audit Logs",
	discordgo.PermissionViewChannel:      "View Channel",
	discordgo.PermissionSendMessages:     "Send Messages",
	discordgo.PermissionEmbedLinks:       "Embed Links",
	discordgo.PermissionVoiceConnect:     "Connect to Voice Channel",
	discordgo.PermissionVoiceSpeak:       "Speak",
	discordgo.PermissionVoiceMuteMembers: "Mute Members",
	discordgo.PermissionVoiceMoveMembers: "Move Members",
}

// PermissionName falls back to the hex value for unnamed bits.
func PermissionName(p int64) string {
	if name, ok := PermissionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("0x%x", p)
}

// MemberPermissions returns the invoker's permissions in the interaction
// channel. Discord includes them in the payload; state is the fallback.
func MemberPermissions(s *discordgo.Session, e *discordgo.InteractionCreate) (int64, error) {
	if e.Member == nil || e.Member.User == nil {
		return 0, errors.New("interaction has no member")
	}
	if e.Member.Permissions != 0 {
		return e.Member.Permissions, nil
	}
	return s.UserChannelPermissions(e.Member.User.ID, e.ChannelID)
}

// BotPermissions returns the bot's permissions in the interaction channel.
func BotPermissions(s *discordgo.Session, e *discordgo.InteractionCreate) (int64, error) {
	if e.AppPermissions != 0 {
		return e.AppPermissions, nil
	}
	return s.UserChannelPermissions(s.State.User.ID, e.ChannelID)
}

// HasAny reports whether perms grants at least one of required.
// Administrator grants everything.
func HasAny(perms int64, required []int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 || len(required) == 0 {
		return true
	}
	for _, p := range required {
		if perms&p != 0 {
			return true
		}
	}
	return false
}

// Missing lists the bits of required that perms lacks.
func Missing(perms int64, required []int64) []int64 {
	if perms&discordgo.PermissionAdministrator != 0 {
		return nil
	}
	var out []int64
	for _, p := range required {
		if perms&p == 0 {
			out = append(out, p)
		}
	}
	return out
}

// RESTStatus extracts the HTTP status of a discordgo REST error.
func RESTStatus(err error) (int, bool) {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode, true
	}
	return 0, false
}

func IsForbidden(err error) bool {
	code, ok := RESTStatus(err)
	return ok && code == http.StatusForbidden
}

func IsNotFound(err error) bool {
	code, ok := RESTStatus(err)
	return ok && code == http.StatusNotFound
}

// Guild reads a guild from state, falling back to REST.
func Guild(s *discordgo.Session, guildID string) (*discordgo.Guild, error) {
	if g, err := s.State.Guild(guildID); err == nil {
		return g, nil
	}
	return s.Guild(guildID)
}

// Member reads a guild member from state, falling back to REST.
func Member(s *discordgo.Session, guildID, userID string) (*discordgo.Member, error) {
	if m, err := s.State.Member(guildID, userID); err == nil {
		return m, nil
	}
	return s.GuildMember(guildID, userID)
}

// Roles reads the guild roles from state, falling back to REST.
func Roles(s *discordgo.Session, guildID string) ([]*discordgo.Role, error) {
	if g, err := s.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
		return g.Roles, nil
	}
	return s.GuildRoles(guildID)
}
