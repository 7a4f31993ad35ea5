// Package owner holds the commands reserved for the bot owner. They act on
// every guild the bot is in.
package owner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/internal/command"
	"github.com/keshon/modtune/internal/config"
	mod "github.com/keshon/modtune/internal/moderation"
	"github.com/keshon/modtune/pkg/cmd"
	"github.com/keshon/modtune/pkg/retrylimit"
	"github.com/keshon/modtune/pkg/util"
)

const msgInvalidUser = "❌ Invalid user ID or user not found!"

var snowflake = regexp.MustCompile(`^\d{15,20}$`)

// errSkipped marks guilds where the action does not apply.
var errSkipped = errors.New("skipped")

type base struct{}

func (base) Group() string { return "owner" }

func (base) Category() string { return config.CategoryOwner }

func (base) UserPermissions() []int64 { return []int64{} }

func slashContext(ctx interface{}) (*command.SlashInteractionContext, bool) {
	c, ok := ctx.(*command.SlashInteractionContext)
	return c, ok && c.Event != nil
}

func userIDOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "user_id",
		Description: description,
		Required:    true,
	}
}

func reasonOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: description,
		MaxLength:   512,
	}
}

// fetchUser validates a raw user ID and looks the user up.
func fetchUser(s *discordgo.Session, raw string) (*discordgo.User, bool) {
	id := strings.TrimSpace(raw)
	if !snowflake.MatchString(id) {
		return nil, false
	}
	u, err := s.User(id)
	if err != nil || u == nil || u.ID == "" {
		return nil, false
	}
	return u, true
}

// Fanout runs one REST action per guild through a shared adaptive limiter.
type Fanout struct {
	Workers int
	Limiter *retrylimit.AdaptiveLimiter
	Retry   retrylimit.RetryConfig
}

func NewFanout() *Fanout {
	retry := retrylimit.DefaultRetryConfig()
	retry.MaxAttempts = 3
	retry.Status = bot.RESTStatus
	return &Fanout{
		Workers: 5,
		Limiter: retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		Retry:   retry,
	}
}

// Result lists guild names by outcome.
type Result struct {
	Done    []string
	Failed  []string
	Skipped []string
}

// Run calls fn for every guild. fn returns errSkipped (possibly wrapped in a
// retrylimit.FatalError) when the guild is not concerned.
func (f *Fanout) Run(ctx context.Context, guilds []*discordgo.Guild, fn func(guildID string) error) Result {
	var (
		mu  sync.Mutex
		res Result
	)
	_ = util.Parallel(ctx, guilds, f.Workers, func(ctx context.Context, g *discordgo.Guild) error {
		err := retrylimit.WithRetryConfig(ctx, func() error { return fn(g.ID) }, f.Limiter, f.Retry)
		name := guildName(g)

		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			res.Done = append(res.Done, name)
		case errors.Is(err, errSkipped):
			res.Skipped = append(res.Skipped, name)
		default:
			slog.Warn("guild action failed", "guild", g.ID, "err", err)
			res.Failed = append(res.Failed, name)
		}
		return nil
	})
	sort.Strings(res.Done)
	sort.Strings(res.Failed)
	sort.Strings(res.Skipped)
	return res
}

func skip(err error) error {
	return &retrylimit.FatalError{Err: fmt.Errorf("%w: %v", errSkipped, err)}
}

func guildName(g *discordgo.Guild) string {
	if g.Name != "" {
		return g.Name
	}
	return g.ID
}

// guilds returns every guild the bot is in.
func guilds(s *discordgo.Session) []*discordgo.Guild {
	s.State.RLock()
	defer s.State.RUnlock()
	return append([]*discordgo.Guild(nil), s.State.Guilds...)
}

// addResultFields appends the per-guild counts, naming failed guilds when
// there are only a few of them.
func addResultFields(embed *discordgo.MessageEmbed, doneLabel string, res Result) {
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: doneLabel, Value: fmt.Sprintf("%d servers", len(res.Done)), Inline: true},
		&discordgo.MessageEmbedField{Name: "Failed", Value: fmt.Sprintf("%d servers", len(res.Failed)), Inline: true},
	)
	if len(res.Failed) > 0 && len(res.Failed) <= 5 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Failed servers",
			Value: strings.Join(res.Failed, "\n"),
		})
	}
}

func userField(u *discordgo.User) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: "User", Value: fmt.Sprintf("%s (%s)", u.Mention(), u.Username)}
}

// Register adds every owner command to the default registry.
func Register(mutes *mod.MuteScheduler, mws ...cmd.Middleware) {
	fan := NewFanout()
	command.RegisterCommand(&GlobalBanCommand{Fanout: fan}, mws...)
	command.RegisterCommand(&GlobalUnbanCommand{Fanout: fan}, mws...)
	command.RegisterCommand(&GlobalKickCommand{Fanout: fan}, mws...)
	command.RegisterCommand(&GlobalMuteCommand{Fanout: fan, Mutes: mutes}, mws...)
	command.RegisterCommand(&GlobalBansCommand{}, mws...)
	command.RegisterCommand(&ServersCommand{}, mws...)
	command.RegisterCommand(&LeaveCommand{}, mws...)
}
