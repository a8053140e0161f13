// Package activity supervises user and player activity and ends idle sessions.
//
// A [Monitor] fuses every activity signal into one last-active time. While a session exists it
// checks on a fixed interval and calls its idle hook once the user has been idle for the limit,
// no playback position advanced within the grace window, and the player is neither playing nor
// buffering. After firing it stops itself; [Monitor.Start] arms it again for the next session.
package activity

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/shared"
)

const (
	DefaultLimit    = 15 * time.Minute
	DefaultInterval = 10 * time.Second
	DefaultGrace    = 30 * time.Second
)

// Options configures a [Monitor]. Zero durations use the defaults.
type Options struct {
	Clock    shared.Clock
	Limit    time.Duration
	Interval time.Duration
	Grace    time.Duration
	OnIdle   func()
	Logger   *log.Logger
}

// Monitor tracks the last activity time and runs the idle check.
type Monitor struct {
	mu           sync.Mutex
	clock        shared.Clock
	limit        time.Duration
	interval     time.Duration
	grace        time.Duration
	onIdle       func()
	logger       *log.Logger
	lastActive   time.Time
	lastAdvance  time.Time
	playerActive bool
	periodic     *shared.Periodic
}

func New(opts Options) *Monitor {
	m := &Monitor{
		clock:    opts.Clock,
		limit:    opts.Limit,
		interval: opts.Interval,
		grace:    opts.Grace,
		onIdle:   opts.OnIdle,
		logger:   opts.Logger,
	}
	if m.clock == nil {
		m.clock = shared.RealClock{}
	}
	if m.limit <= 0 {
		m.limit = DefaultLimit
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.grace <= 0 {
		m.grace = DefaultGrace
	}
	if m.logger == nil {
		m.logger = shared.NewLogger(nil)
	}
	m.lastActive = m.clock.Now()
	return m
}

// SetOnIdle replaces the idle hook.
func (m *Monitor) SetOnIdle(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onIdle = fn
}

// Start marks the user active and begins the periodic check. Starting a running monitor only marks activity.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastActive = m.clock.Now()
	m.lastAdvance = time.Time{}
	m.playerActive = false
	if m.periodic == nil {
		m.periodic = shared.Every(m.clock, m.interval, func() { m.Check() })
	}
}

// Stop cancels the periodic check.
func (m *Monitor) Stop() {
	m.mu.Lock()
	p := m.periodic
	m.periodic = nil
	m.mu.Unlock()
	p.Stop()
}

// Running reports whether the periodic check is armed.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.periodic != nil
}

// Touch records user input.
func (m *Monitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActive = m.clock.Now()
}

// VisibilityRestored records the user returning to the app.
func (m *Monitor) VisibilityRestored() {
	m.Touch()
}

// PlaybackAdvanced records a forward move of the playback position.
func (m *Monitor) PlaybackAdvanced() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	m.lastActive = now
	m.lastAdvance = now
}

// PlayerState records the latest player state. Playing and buffering count as activity.
func (m *Monitor) PlayerState(s models.PlayerState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playerActive = s.Active()
	if m.playerActive {
		m.lastActive = m.clock.Now()
	}
}

// PlaybackStopped clears the player state once nothing is polling it any more. A player that
// was active counts as active up to now.
func (m *Monitor) PlaybackStopped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playerActive {
		m.lastActive = m.clock.Now()
	}
	m.playerActive = false
}

// LastActive returns the last activity time.
func (m *Monitor) LastActive() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActive
}

// Idle returns how long the user has been idle.
func (m *Monitor) Idle() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.Now().Sub(m.lastActive)
}

// Check evaluates the idle rule once and reports whether the idle hook fired.
//
// It does nothing while the monitor is stopped.
func (m *Monitor) Check() bool {
	m.mu.Lock()
	if m.periodic == nil {
		m.mu.Unlock()
		return false
	}

	now := m.clock.Now()
	idle := now.Sub(m.lastActive)
	recentAdvance := !m.lastAdvance.IsZero() && now.Sub(m.lastAdvance) < m.grace
	if idle < m.limit || recentAdvance || m.playerActive {
		m.mu.Unlock()
		return false
	}

	p := m.periodic
	m.periodic = nil
	hook := m.onIdle
	m.mu.Unlock()

	p.Stop()
	m.logger.Info("session idle, signing out", "idle", idle.Round(time.Second))
	if hook != nil {
		hook()
	}
	return true
}
