package session

import "errors"

// User-facing denials; command handlers map these to fixed replies.
var (
	ErrNoActiveSession = errors.New("no active study session")
	ErrPomodoroRunning = errors.New("a pomodoro is already running")
	ErrNoPomodoro      = errors.New("no pomodoro is running")
)
