// Package jobmgr runs named, cancellable background jobs and keeps track of
// the ones still running.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(func(msg string) {
//	    slog.Debug("job", "event", msg)
//	})
//
//	jm.Schedule("unmute:1:2", 10*time.Minute, func(ctx context.Context) error {
//	    return liftMute(ctx)
//	})
//
//	// later, if the mute is lifted by hand
//	_ = jm.Stop("unmute:1:2")
//
// Jobs are in-memory only; callers that need them to survive a restart
// persist their own state and reschedule on startup.
package jobmgr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Job is a running or pending unit of work.
type Job struct {
	Name   string
	RunAt  time.Time
	Cancel context.CancelFunc
	ctx    context.Context
}

// StatusReporter receives lifecycle events such as
//
//	scheduled:unmute:1:2
//	running:unmute:1:2
//	error:unmute:1:2:missing permissions
//	done:unmute:1:2
//	cancelled:unmute:1:2
type StatusReporter func(string)

// Manager is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	Reporter StatusReporter
}

func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		jobs:     make(map[string]*Job),
		Reporter: reporter,
	}
}

// Schedule runs a job after delay, replacing any job with the same name.
// A non-positive delay runs it immediately.
func (m *Manager) Schedule(name string, delay time.Duration, runner func(ctx context.Context) error) {
	m.mu.Lock()
	if old, ok := m.jobs[name]; ok {
		old.Cancel()
		delete(m.jobs, name)
	}
	job := m.addLocked(name, delay)
	m.mu.Unlock()

	m.report("scheduled:" + name)
	go m.run(job, delay, runner)
}

// Stop cancels a job by name.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("job '%s' not running", name)
	}
	job.Cancel()
	delete(m.jobs, name)
	return nil
}

// StopAll cancels every job.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, job := range m.jobs {
		job.Cancel()
		delete(m.jobs, name)
	}
}

// RunAt reports when a pending job is due.
func (m *Manager) RunAt(name string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[name]
	if !ok {
		return time.Time{}, false
	}
	return job.RunAt, true
}

// List returns active job names in sorted order.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Status returns a human-readable summary of active jobs.
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}

func (m *Manager) addLocked(name string, delay time.Duration) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{Name: name, RunAt: time.Now().Add(delay), Cancel: cancel, ctx: ctx}
	m.jobs[name] = job
	return job
}

func (m *Manager) run(job *Job, delay time.Duration, runner func(ctx context.Context) error) {
	ctx := job.ctx
	defer m.remove(job)

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.report("cancelled:" + job.Name)
			return
		case <-timer.C:
		}
	}

	if ctx.Err() != nil {
		m.report("cancelled:" + job.Name)
		return
	}

	m.report("running:" + job.Name)
	if err := runner(ctx); err != nil {
		m.report("error:" + job.Name + ":" + err.Error())
		return
	}
	m.report("done:" + job.Name)
}

// remove drops the job only if it was not replaced meanwhile.
func (m *Manager) remove(job *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.jobs[job.Name]; ok && cur == job {
		delete(m.jobs, job.Name)
	}
	job.Cancel()
}

func (m *Manager) report(s string) {
	if m.Reporter != nil {
		m.Reporter(s)
	}
}
