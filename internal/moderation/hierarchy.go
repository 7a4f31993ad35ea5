package moderation

import (
	"errors"

	"github.com/bwmarrin/discordgo"
)

var (
	ErrTargetIsOwner = errors.New("target is the bot owner")
	ErrHierarchy     = errors.New("target has equal or higher roles")
)

// Actor describes one side of a moderation action.
type Actor struct {
	UserID       string
	RolePosition int
}

// Guard decides whether actor may act on target.
type Guard struct {
	OwnerID      string
	GuildOwnerID string
}

// Check refuses actions on the bot owner and actions on members that rank
// at or above the actor. The bot owner and the guild owner skip the rank check.
func (g Guard) Check(actor, target Actor) error {
	if g.OwnerID != "" && target.UserID == g.OwnerID {
		return ErrTargetIsOwner
	}
	if actor.UserID == g.OwnerID || actor.UserID == g.GuildOwnerID {
		return nil
	}
	if target.UserID == g.GuildOwnerID || target.RolePosition >= actor.RolePosition {
		return ErrHierarchy
	}
	return nil
}

// TopRolePosition returns the highest position among roleIDs, 0 when none match.
func TopRolePosition(guildRoles []*discordgo.Role, roleIDs []string) int {
	byID := make(map[string]int, len(guildRoles))
	for _, r := range guildRoles {
		byID[r.ID] = r.Position
	}
	top := 0
	for _, id := range roleIDs {
		if pos, ok := byID[id]; ok && pos > top {
			top = pos
		}
	}
	return top
}
