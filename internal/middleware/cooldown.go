package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/keshon/modtune/internal/bot"
	"github.com/keshon/modtune/pkg/cmd"
	"golang.org/x/time/rate"
)

const cooldownSweepAt = 1024

// cooldowns keeps one token bucket per user and command.
type cooldowns struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

func newCooldowns() *cooldowns {
	return &cooldowns{limiters: make(map[string]*rate.Limiter), now: time.Now}
}

// reserve takes the user's token and returns how long they must wait when
// none is available.
func (c *cooldowns) reserve(key string, every time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	lim, ok := c.limiters[key]
	if !ok {
		if len(c.limiters) >= cooldownSweepAt {
			c.sweepLocked(now)
		}
		lim = rate.NewLimiter(rate.Every(every), 1)
		c.limiters[key] = lim
	}

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return 0
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return d
	}
	return 0
}

// sweepLocked drops buckets that refilled, i.e. users no longer cooling down.
func (c *cooldowns) sweepLocked(now time.Time) {
	for k, lim := range c.limiters {
		if lim.TokensAt(now) >= 1 {
			delete(c.limiters, k)
		}
	}
}

// WithCooldown limits each user to one run of a command per configured
// CommandCooldown.
func WithCooldown() cmd.Middleware {
	return withCooldown(newCooldowns())
}

func withCooldown(state *cooldowns) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			v, ok := slashContext(inv)
			if !ok || v.Config == nil || v.Config.CommandCooldown <= 0 {
				return c.Run(ctx, inv)
			}
			key := bot.InteractionUser(v.Event).ID + ":" + c.Name()
			if wait := state.reserve(key, v.Config.CommandCooldown); wait > 0 {
				return bot.RespondEphemeral(v.Session, v.Event, fmt.Sprintf(bot.MsgCooldown, wait.Seconds()))
			}
			return c.Run(ctx, inv)
		})
	}
}
