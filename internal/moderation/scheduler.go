package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/keshon/modtune/internal/storage"
	"github.com/keshon/modtune/pkg/jobmgr"
)

// MuteStore persists timed mutes so they survive a restart.
type MuteStore interface {
	SetMute(guildID, userID string, m storage.MuteRecord) error
	ClearMute(guildID, userID string) error
	PendingMutes() (map[string]map[string]storage.MuteRecord, error)
}

// LiftFunc removes the mute role from a member.
type LiftFunc func(ctx context.Context, guildID, userID, roleID string) error

// MuteScheduler lifts timed mutes when they expire. Delivery is best effort:
// a failed lift is logged and the stored mute is dropped.
type MuteScheduler struct {
	jobs   *jobmgr.Manager
	store  MuteStore
	lift   LiftFunc
	logger *slog.Logger
	now    func() time.Time
}

func NewMuteScheduler(jobs *jobmgr.Manager, store MuteStore, lift LiftFunc) *MuteScheduler {
	return &MuteScheduler{
		jobs:   jobs,
		store:  store,
		lift:   lift,
		logger: slog.Default().With("component", "mute-scheduler"),
		now:    time.Now,
	}
}

func jobName(guildID, userID string) string {
	return fmt.Sprintf("unmute:%s:%s", guildID, userID)
}

// Schedule stores the mute and arms its automatic unmute, replacing any
// earlier timer for the same member.
func (m *MuteScheduler) Schedule(guildID, userID, roleID, reason string, d time.Duration) error {
	rec := storage.MuteRecord{RoleID: roleID, ExpiresAt: m.now().Add(d).UTC(), Reason: reason}
	if err := m.store.SetMute(guildID, userID, rec); err != nil {
		return fmt.Errorf("store mute: %w", err)
	}
	m.arm(guildID, userID, rec)
	return nil
}

// Cancel drops a pending unmute, if any.
func (m *MuteScheduler) Cancel(guildID, userID string) error {
	_ = m.jobs.Stop(jobName(guildID, userID))
	return m.store.ClearMute(guildID, userID)
}

func (m *MuteScheduler) Pending(guildID, userID string) (time.Time, bool) {
	return m.jobs.RunAt(jobName(guildID, userID))
}

// Restore re-arms every stored mute. Expired ones are lifted right away.
func (m *MuteScheduler) Restore() (int, error) {
	pending, err := m.store.PendingMutes()
	if err != nil {
		return 0, err
	}
	n := 0
	for guildID, users := range pending {
		for userID, rec := range users {
			m.arm(guildID, userID, rec)
			n++
		}
	}
	return n, nil
}

func (m *MuteScheduler) arm(guildID, userID string, rec storage.MuteRecord) {
	delay := rec.ExpiresAt.Sub(m.now())
	m.jobs.Schedule(jobName(guildID, userID), delay, func(ctx context.Context) error {
		err := m.lift(ctx, guildID, userID, rec.RoleID)
		if err != nil {
			m.logger.Warn("automatic unmute failed", "guild", guildID, "user", userID, "err", err)
		} else {
			m.logger.Info("automatic unmute", "guild", guildID, "user", userID)
		}
		if cerr := m.store.ClearMute(guildID, userID); cerr != nil {
			m.logger.Error("failed to clear stored mute", "guild", guildID, "user", userID, "err", cerr)
		}
		return err
	})
}
