package moderation

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/bwmarrin/discordgo"
)

// Muted members may not talk in text or voice.
const muteDeny = discordgo.PermissionSendMessages |
	discordgo.PermissionVoiceSpeak |
	discordgo.PermissionAddReactions |
	discordgo.PermissionSendMessagesInThreads

// RoleAPI is the part of *discordgo.Session used to manage the mute role.
type RoleAPI interface {
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error
}

// FindRole looks a role up by exact name.
func FindRole(roles []*discordgo.Role, name string) *discordgo.Role {
	for _, r := range roles {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// EnsureMuteRole returns the guild's mute role, creating it and denying it
// speech in every text and voice channel when it does not exist yet.
func EnsureMuteRole(api RoleAPI, guildID, name string) (*discordgo.Role, error) {
	roles, err := api.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	if role := FindRole(roles, name); role != nil {
		return role, nil
	}

	perms := int64(0)
	role, err := api.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        name,
		Permissions: &perms,
	}, discordgo.WithAuditLogReason("Mute role setup"))
	if err != nil {
		return nil, fmt.Errorf("create mute role: %w", err)
	}

	channels, err := api.GuildChannels(guildID)
	if err != nil {
		return role, fmt.Errorf("list channels: %w", err)
	}
	for _, ch := range channels {
		if !mutable(ch.Type) {
			continue
		}
		if err := api.ChannelPermissionSet(ch.ID, role.ID, discordgo.PermissionOverwriteTypeRole, 0, muteDeny); err != nil {
			slog.Warn("failed to set mute overwrite", "guild", guildID, "channel", ch.ID, "err", err)
		}
	}
	return role, nil
}

// HasRole reports whether the member holds roleID.
func HasRole(member *discordgo.Member, roleID string) bool {
	return member != nil && slices.Contains(member.Roles, roleID)
}

func mutable(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeGuildVoice,
		discordgo.ChannelTypeGuildCategory,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildStageVoice,
		discordgo.ChannelTypeGuildForum:
		return true
	}
	return false
}
