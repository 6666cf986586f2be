// Package cooking implements step-by-step cooking mode: a cursor over a
// recipe's instructions and a countdown timer for the current step.
package cooking

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDuration = errors.New("timer duration must be greater than 0 minutes")
	ErrTimerActive     = errors.New("timer is already running")
	ErrTimerNotRunning = errors.New("timer is not running")
	ErrTimerNotPaused  = errors.New("timer is not paused")
	ErrNoSteps         = errors.New("recipe has no instructions")
	ErrNoMoreSteps     = errors.New("already at the last step")
	ErrFirstStep       = errors.New("already at the first step")
	ErrSessionNotFound = errors.New("cooking session not found")
)

// TimerState is where a Timer is in its lifecycle.
type TimerState string

const (
	TimerIdle     TimerState = "idle"
	TimerRunning  TimerState = "running"
	TimerPaused   TimerState = "paused"
	TimerFinished TimerState = "finished"
)

// Timer counts down whole seconds. The zero value is an idle timer. It is not
// safe for concurrent use; Session guards it.
type Timer struct {
	state     TimerState
	remaining int
}

// State returns the current state.
func (t *Timer) State() TimerState {
	if t.state == "" {
		return TimerIdle
	}
	return t.state
}

// Remaining returns the seconds left.
func (t *Timer) Remaining() int { return t.remaining }

// Start sets the timer to minutes and starts it. A running or paused timer
// must be reset first.
func (t *Timer) Start(minutes int) error {
	if minutes <= 0 {
		return ErrInvalidDuration
	}
	switch t.State() {
	case TimerIdle, TimerFinished:
	default:
		return ErrTimerActive
	}
	t.remaining = minutes * 60
	t.state = TimerRunning
	return nil
}

// Pause stops the countdown, keeping the remaining time.
func (t *Timer) Pause() error {
	if t.State() != TimerRunning {
		return ErrTimerNotRunning
	}
	t.state = TimerPaused
	return nil
}

// Resume continues a paused countdown.
func (t *Timer) Resume() error {
	if t.State() != TimerPaused {
		return ErrTimerNotPaused
	}
	t.state = TimerRunning
	return nil
}

// Reset returns the timer to idle with nothing remaining.
func (t *Timer) Reset() {
	t.state = TimerIdle
	t.remaining = 0
}

// Tick takes one second off a running timer. It reports true exactly once,
// on the tick that reaches zero.
func (t *Timer) Tick() bool {
	if t.State() != TimerRunning {
		return false
	}
	t.remaining--
	if t.remaining > 0 {
		return false
	}
	t.remaining = 0
	t.state = TimerFinished
	return true
}

// Display formats the remaining time as mm:ss.
func (t *Timer) Display() string {
	return FormatSeconds(t.remaining)
}

// FormatSeconds renders seconds as zero-padded mm:ss. Minutes are not capped
// at 59.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
