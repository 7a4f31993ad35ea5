package command

import (
	"github.com/bwmarrin/discordgo"
)

// Options indexes the options of a slash command (or of its first
// subcommand) by name.
type Options struct {
	Sub    string
	byName map[string]*discordgo.ApplicationCommandInteractionDataOption
	data   discordgo.ApplicationCommandInteractionData
}

func ParseOptions(e *discordgo.InteractionCreate) Options {
	data := e.ApplicationCommandData()
	opts := data.Options
	o := Options{byName: make(map[string]*discordgo.ApplicationCommandInteractionDataOption), data: data}
	if len(opts) == 1 && (opts[0].Type == discordgo.ApplicationCommandOptionSubCommand ||
		opts[0].Type == discordgo.ApplicationCommandOptionSubCommandGroup) {
		o.Sub = opts[0].Name
		opts = opts[0].Options
	}
	for _, opt := range opts {
		o.byName[opt.Name] = opt
	}
	return o
}

func (o Options) Has(name string) bool {
	_, ok := o.byName[name]
	return ok
}

func (o Options) String(name string) string {
	if opt, ok := o.byName[name]; ok {
		if s, ok := opt.Value.(string); ok {
			return s
		}
	}
	return ""
}

// Int returns def when the option is absent.
func (o Options) Int(name string, def int) int {
	opt, ok := o.byName[name]
	if !ok {
		return def
	}
	switch v := opt.Value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return def
}

// User returns the resolved user and, inside a guild, member of a user option.
// Member is nil when the user is not in the guild.
func (o Options) User(name string) (*discordgo.User, *discordgo.Member) {
	opt, ok := o.byName[name]
	if !ok {
		return nil, nil
	}
	id, _ := opt.Value.(string)
	if id == "" {
		return nil, nil
	}
	user := &discordgo.User{ID: id}
	var member *discordgo.Member
	if r := o.data.Resolved; r != nil {
		if u, ok := r.Users[id]; ok && u != nil {
			user = u
		}
		if m, ok := r.Members[id]; ok && m != nil {
			cp := *m
			cp.User = user
			member = &cp
		}
	}
	return user, member
}
