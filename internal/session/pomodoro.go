package session

import (
	"context"
	"fmt"
	"log"
	"time"
)

// PomodoroConfig describes one pomodoro run.
type PomodoroConfig struct {
	TextChannelID string
	WorkMinutes   int
	BreakMinutes  int
	Cycles        int
}

// pomodoroRun is the live state of a guild's cycle scheduler. The run
// owns its goroutine's lifetime through cancel.
type pomodoroRun struct {
	cancel context.CancelFunc
	config PomodoroConfig
}

// StartPomodoro launches the focus/break cycle scheduler for a guild.
// Exactly one run may exist per guild; a second request is rejected
// without touching the first. A session must already be active.
func (m *Manager) StartPomodoro(guildID string, cfg PomodoroConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.guild(guildID)
	if g.pomodoro != nil {
		return ErrPomodoroRunning
	}
	if g.session == nil {
		return ErrNoActiveSession
	}

	runCtx, cancel := context.WithCancel(context.Background())
	g.pomodoro = &pomodoroRun{cancel: cancel, config: cfg}

	go m.runPomodoro(runCtx, guildID, cfg)

	log.Printf("session: pomodoro started in guild %s (%dm work / %dm break x%d)",
		guildID, cfg.WorkMinutes, cfg.BreakMinutes, cfg.Cycles)
	return nil
}

// StopPomodoro cancels the guild's running pomodoro. The scheduler
// itself stops the session and announces the result.
func (m *Manager) StopPomodoro(guildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.guilds[guildID]
	if g == nil || g.pomodoro == nil {
		return ErrNoPomodoro
	}

	g.pomodoro.cancel()
	return nil
}

// PomodoroRunning reports whether the guild has a live pomodoro run.
func (m *Manager) PomodoroRunning(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.guilds[guildID]
	return g != nil && g.pomodoro != nil
}

// runPomodoro drives the configured cycles, then ends the session.
// Every exit path, including cancellation mid-sleep, goes through
// finishPomodoro and clears the guild's pomodoro entry so a new run
// can start.
func (m *Manager) runPomodoro(ctx context.Context, guildID string, cfg PomodoroConfig) {
	defer m.clearPomodoro(guildID)

	for cycle := 1; cycle <= cfg.Cycles; cycle++ {
		if err := m.SetFocusMode(guildID, true); err != nil {
			log.Printf("session: enable focus in guild %s: %v", guildID, err)
		}
		m.announce(cfg.TextChannelID, fmt.Sprintf(
			"Pomodoro cycle %d/%d: focus for %d minutes.", cycle, cfg.Cycles, cfg.WorkMinutes))

		if err := m.sleep(ctx, time.Duration(cfg.WorkMinutes)*time.Minute); err != nil {
			m.finishPomodoro(guildID, cfg.TextChannelID, "Pomodoro stopped")
			return
		}

		// No trailing break after the last focus phase.
		if cycle == cfg.Cycles {
			break
		}

		if err := m.SetFocusMode(guildID, false); err != nil {
			log.Printf("session: disable focus in guild %s: %v", guildID, err)
		}
		m.announce(cfg.TextChannelID, fmt.Sprintf(
			"Break time: %d minutes. Focus resumes after the break.", cfg.BreakMinutes))

		if err := m.sleep(ctx, time.Duration(cfg.BreakMinutes)*time.Minute); err != nil {
			m.finishPomodoro(guildID, cfg.TextChannelID, "Pomodoro stopped")
			return
		}
	}

	m.finishPomodoro(guildID, cfg.TextChannelID, "Pomodoro finished")
}

// finishPomodoro ends the session and announces its duration. When the
// session was already stopped elsewhere (end_study raced the
// scheduler), Stop reports ok=false and nothing is announced, so the
// history record is only ever closed once.
func (m *Manager) finishPomodoro(guildID, textChannelID, outcome string) {
	reason := "completed"
	if outcome == "Pomodoro stopped" {
		reason = "stopped"
	}

	duration, ok, err := m.Stop(guildID, reason)
	if err != nil {
		log.Printf("session: stop after pomodoro in guild %s: %v", guildID, err)
	}
	if !ok {
		return
	}

	m.announce(textChannelID, fmt.Sprintf(
		"%s. Study session ended after %s.", outcome, FormatDuration(duration)))
}

func (m *Manager) clearPomodoro(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g := m.guilds[guildID]; g != nil && g.pomodoro != nil {
		g.pomodoro.cancel()
		g.pomodoro = nil
	}
}

func (m *Manager) announce(channelID, content string) {
	if err := m.gateway.SendMessage(channelID, content); err != nil {
		log.Printf("session: announce to channel %s: %v", channelID, err)
	}
}

// FormatDuration renders whole seconds as "1h 23m 45s".
func FormatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := seconds % 3600 / 60
	secs := seconds % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
}
