package jobmgr

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) report(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) has(s string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == s {
			return true
		}
	}
	return false
}

func TestScheduleRunsAfterDelay(t *testing.T) {
	rec := &recorder{}
	m := NewManager(rec.report)

	var ran atomic.Bool
	m.Schedule("a", 20*time.Millisecond, func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	at, ok := m.RunAt("a")
	require.True(t, ok)
	assert.True(t, at.After(time.Now().Add(-time.Second)))

	require.Eventually(t, ran.Load, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { _, ok := m.RunAt("a"); return !ok }, time.Second, 5*time.Millisecond)
	assert.True(t, rec.has("done:a"))
}

func TestScheduleReplacesExisting(t *testing.T) {
	m := NewManager(nil)

	var first, second atomic.Int32
	m.Schedule("a", 50*time.Millisecond, func(ctx context.Context) error {
		first.Add(1)
		return nil
	})
	m.Schedule("a", 10*time.Millisecond, func(ctx context.Context) error {
		second.Add(1)
		return nil
	})

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
	_, ok := m.RunAt("a")
	assert.False(t, ok)
}

func TestStopCancelsPendingJob(t *testing.T) {
	rec := &recorder{}
	m := NewManager(rec.report)

	var ran atomic.Bool
	m.Schedule("a", time.Hour, func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	require.NoError(t, m.Stop("a"))
	assert.Error(t, m.Stop("a"))
	require.Eventually(t, func() bool { return rec.has("cancelled:a") }, time.Second, 5*time.Millisecond)
	assert.False(t, ran.Load())
}

func TestRunningJobIsListed(t *testing.T) {
	rec := &recorder{}
	m := NewManager(rec.report)

	release := make(chan struct{})
	started := make(chan struct{})
	m.Schedule("a", 0, func(ctx context.Context) error {
		close(started)
		<-release
		return errors.New("boom")
	})
	<-started
	assert.Equal(t, []string{"a"}, m.List())
	assert.Equal(t, "Running jobs: a", m.Status())

	close(release)
	require.Eventually(t, func() bool { return rec.has("error:a:boom") }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(m.List()) == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "No jobs are running.", m.Status())
}

func TestStopAll(t *testing.T) {
	m := NewManager(nil)
	m.Schedule("a", time.Hour, func(ctx context.Context) error { return nil })
	m.Schedule("b", time.Hour, func(ctx context.Context) error { return nil })

	m.StopAll()
	assert.Empty(t, m.List())
}
