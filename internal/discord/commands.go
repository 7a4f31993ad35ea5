package discord

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/pkg/cmd"
)

// registerDelay spaces out command creation to stay under the rate limit.
var registerDelay = 25 * time.Millisecond

// registerCommands syncs a guild's slash commands with the registry: it
// deletes commands that are gone or belong to a disabled group and creates
// those whose definition changed since the last sync.
func (b *Bot) registerCommands(guildID string) error {
	appID, err := b.appID()
	if err != nil {
		return err
	}

	remote, err := b.dg.ApplicationCommands(appID, guildID)
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}
	remoteByName := make(map[string]*discordgo.ApplicationCommand, len(remote))
	for _, c := range remote {
		remoteByName[c.Name] = c
	}

	local := b.enabledDefinitions(guildID)

	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()
	hashes := b.loadCommandHashes(guildID)
	b.deleteObsoleteCommands(appID, guildID, remoteByName, local, hashes)
	b.upsertChangedCommands(appID, guildID, remoteByName, local, hashes)
	b.saveCommandHashes(guildID, hashes)
	return nil
}

// enabledDefinitions returns the definitions of registered commands whose
// group is enabled in the guild.
func (b *Bot) enabledDefinitions(guildID string) []*discordgo.ApplicationCommand {
	disabled := b.disabledGroups(guildID)
	var defs []*discordgo.ApplicationCommand
	for _, c := range command.AllCommands() {
		if meta, ok := command.Meta(c); ok && disabled[meta.Group()] {
			continue
		}
		if def := command.Definition(c); def != nil {
			defs = append(defs, def)
		}
	}
	return defs
}

func (b *Bot) disabledGroups(guildID string) map[string]bool {
	groups, err := b.storage.GetDisabledGroups(guildID)
	if err != nil {
		b.logger.Warn("read disabled groups", "guild", guildID, "err", err)
	}
	out := make(map[string]bool, len(groups))
	for _, g := range groups {
		out[g] = true
	}
	return out
}

func (b *Bot) deleteObsoleteCommands(appID, guildID string, remote map[string]*discordgo.ApplicationCommand, local []*discordgo.ApplicationCommand, hashes map[string]string) {
	localNames := make(map[string]struct{}, len(local))
	for _, d := range local {
		localNames[d.Name] = struct{}{}
	}

	for name, rc := range remote {
		if _, exists := localNames[name]; exists {
			continue
		}
		b.logger.Info("deleting obsolete command", "guild", guildID, "name", name)
		if err := b.dg.ApplicationCommandDelete(appID, guildID, rc.ID); err != nil {
			b.logger.Error("delete command", "guild", guildID, "name", name, "err", err)
			continue
		}
		delete(hashes, name)
	}
}

// upsertChangedCommands creates commands that are missing remotely or whose
// hash differs from the cached one. Failed commands keep their old hash so
// the next sync retries them.
func (b *Bot) upsertChangedCommands(appID, guildID string, remote map[string]*discordgo.ApplicationCommand, defs []*discordgo.ApplicationCommand, hashes map[string]string) {
	var changed []*discordgo.ApplicationCommand
	for _, d := range defs {
		_, registered := remote[d.Name]
		if !registered || hashes[d.Name] != hashCommand(d) {
			changed = append(changed, d)
		}
	}
	if len(changed) == 0 {
		return
	}

	b.logger.Info("registering changed commands", "guild", guildID, "count", len(changed))
	for i, d := range changed {
		if i > 0 {
			time.Sleep(registerDelay)
		}
		if _, err := b.dg.ApplicationCommandCreate(appID, guildID, d); err != nil {
			b.logger.Error("register command", "guild", guildID, "name", d.Name, "err", err)
			continue
		}
		hashes[d.Name] = hashCommand(d)
	}
}

// handleRefreshCommands answers a refresh request published on the system
// event bus.
func (b *Bot) handleRefreshCommands(evt bot.SystemEvent) {
	appID, err := b.appID()
	if err != nil {
		b.logger.Error("resolve app id", "guild", evt.GuildID, "err", err)
		return
	}

	if b.isGuildBlacklisted(evt.GuildID) {
		b.removeAllCommands(appID, evt.GuildID)
		return
	}

	switch {
	case strings.HasPrefix(evt.Target, "group:"):
		b.refreshGroup(appID, evt.GuildID, strings.TrimPrefix(evt.Target, "group:"))
	case evt.Target == "" || strings.EqualFold(evt.Target, "all"):
		if err := b.registerCommands(evt.GuildID); err != nil {
			b.logger.Error("register commands", "guild", evt.GuildID, "err", err)
		}
	default:
		b.refreshSingle(appID, evt.GuildID, evt.Target)
	}
}

func (b *Bot) removeAllCommands(appID, guildID string) {
	b.logger.Info("removing all commands", "guild", guildID)
	existing, err := b.dg.ApplicationCommands(appID, guildID)
	if err != nil {
		b.logger.Error("list commands", "guild", guildID, "err", err)
		return
	}
	for _, c := range existing {
		if err := b.dg.ApplicationCommandDelete(appID, guildID, c.ID); err != nil {
			b.logger.Error("delete command", "guild", guildID, "name", c.Name, "err", err)
		}
	}

	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()
	b.saveCommandHashes(guildID, map[string]string{})
}

// refreshGroup deletes a disabled group's commands or registers an enabled
// group's missing ones.
func (b *Bot) refreshGroup(appID, guildID, group string) {
	disabled := b.disabledGroups(guildID)[group]

	existing, err := b.dg.ApplicationCommands(appID, guildID)
	if err != nil {
		b.logger.Error("list commands", "guild", guildID, "err", err)
		return
	}
	existingByName := make(map[string]*discordgo.ApplicationCommand, len(existing))
	for _, c := range existing {
		existingByName[c.Name] = c
	}

	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()
	hashes := b.loadCommandHashes(guildID)

	for _, c := range cmd.DefaultRegistry.GetAll() {
		meta, ok := command.Meta(c)
		if !ok || meta.Group() != group {
			continue
		}
		rc, registered := existingByName[c.Name()]
		switch {
		case disabled && registered:
			b.logger.Info("removing disabled command", "guild", guildID, "name", c.Name())
			if err := b.dg.ApplicationCommandDelete(appID, guildID, rc.ID); err != nil {
				b.logger.Error("delete command", "guild", guildID, "name", c.Name(), "err", err)
				continue
			}
			delete(hashes, c.Name())
		case !disabled && !registered:
			def := command.Definition(c)
			if def == nil {
				continue
			}
			b.logger.Info("registering enabled command", "guild", guildID, "name", c.Name())
			if _, err := b.dg.ApplicationCommandCreate(appID, guildID, def); err != nil {
				b.logger.Error("register command", "guild", guildID, "name", c.Name(), "err", err)
				continue
			}
			hashes[c.Name()] = hashCommand(def)
		}
	}
	b.saveCommandHashes(guildID, hashes)
}

func (b *Bot) refreshSingle(appID, guildID, name string) {
	for _, c := range cmd.DefaultRegistry.GetAll() {
		if !strings.EqualFold(c.Name(), name) {
			continue
		}
		def := command.Definition(c)
		if def == nil {
			return
		}
		if _, err := b.dg.ApplicationCommandCreate(appID, guildID, def); err != nil {
			b.logger.Error("register command", "guild", guildID, "name", def.Name, "err", err)
		}
		return
	}
	b.logger.Warn("no command for refresh target", "guild", guildID, "target", name)
}

// appID returns the application ID, which equals the bot user's ID.
func (b *Bot) appID() (string, error) {
	if u := b.dg.State.User; u != nil && u.ID != "" {
		return u.ID, nil
	}
	u, err := b.dg.User("@me")
	if err != nil {
		return "", fmt.Errorf("fetch bot user: %w", err)
	}
	return u.ID, nil
}

func (b *Bot) commandHashPath(guildID string) string {
	return filepath.Join(b.cacheDir, guildID+".json")
}

// loadCommandHashes must be called with cacheMu held.
func (b *Bot) loadCommandHashes(guildID string) map[string]string {
	out := make(map[string]string)
	if data, err := os.ReadFile(b.commandHashPath(guildID)); err == nil {
		_ = json.Unmarshal(data, &out)
	}
	return out
}

func (b *Bot) saveCommandHashes(guildID string, hashes map[string]string) {
	path := b.commandHashPath(guildID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		b.logger.Warn("create command cache dir", "err", err)
		return
	}
	data, err := json.MarshalIndent(hashes, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		b.logger.Warn("write command cache", "guild", guildID, "err", err)
	}
}

// hashCommand is a SHA-1 over the fields Discord shows to users, so that
// unchanged commands are not re-registered.
func hashCommand(c *discordgo.ApplicationCommand) string {
	stable := map[string]interface{}{
		"name":        c.Name,
		"description": c.Description,
		"type":        c.Type,
	}
	if c.DefaultMemberPermissions != nil {
		stable["default_member_permissions"] = *c.DefaultMemberPermissions
	}
	if len(c.Options) > 0 {
		stable["options"] = normalizeOptions(c.Options)
	}
	data, _ := json.Marshal(stable)
	return fmt.Sprintf("%x", sha1.Sum(data))
}

func normalizeOptions(opts []*discordgo.ApplicationCommandOption) []map[string]interface{} {
	out := make([]map[string]interface{}, len(opts))
	for i, o := range opts {
		entry := map[string]interface{}{
			"name":        o.Name,
			"description": o.Description,
			"type":        o.Type,
			"required":    o.Required,
		}
		if o.MinValue != nil {
			entry["min_value"] = *o.MinValue
		}
		if o.MaxValue != 0 {
			entry["max_value"] = o.MaxValue
		}
		if o.MaxLength != 0 {
			entry["max_length"] = o.MaxLength
		}
		if len(o.Choices) > 0 {
			choices := make([]map[string]interface{}, len(o.Choices))
			for j, ch := range o.Choices {
				choices[j] = map[string]interface{}{"name": ch.Name, "value": ch.Value}
			}
			entry["choices"] = choices
		}
		if len(o.Options) > 0 {
			entry["options"] = normalizeOptions(o.Options)
		}
		out[i] = entry
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i]["name"].(string) < out[j]["name"].(string)
	})
	return out
}
