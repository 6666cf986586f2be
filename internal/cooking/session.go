package cooking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"pantrychef/internal/notify"
	"pantrychef/internal/recipe"
)

// Session is one open cooking mode: a recipe, the step being cooked and the
// timer for that step. Safe for concurrent use.
type Session struct {
	ID         string
	RecipeName string
	Steps      []string

	n   notify.Notifier
	log *zap.Logger

	mu    sync.Mutex
	step  int
	timer Timer
}

// Snapshot is a read-only view of a Session.
type Snapshot struct {
	ID          string        `json:"id"`
	RecipeName  string        `json:"recipeName"`
	StepIndex   int           `json:"stepIndex"`
	TotalSteps  int           `json:"totalSteps"`
	Instruction string        `json:"instruction"`
	Progress    float64       `json:"progress"`
	Timer       TimerSnapshot `json:"timer"`
}

// TimerSnapshot is a read-only view of a Timer.
type TimerSnapshot struct {
	State            TimerState `json:"state"`
	RemainingSeconds int        `json:"remainingSeconds"`
	Display          string     `json:"display"`
}

// NewSession opens cooking mode on the first step of r.
func NewSession(id string, r recipe.Recipe, notifier notify.Notifier, log *zap.Logger) (*Session, error) {
	if len(r.Instructions) == 0 {
		return nil, ErrNoSteps
	}
	return &Session{
		ID:         id,
		RecipeName: r.RecipeName,
		Steps:      append([]string{}, r.Instructions...),
		n:          notifier,
		log:        log,
	}, nil
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:          s.ID,
		RecipeName:  s.RecipeName,
		StepIndex:   s.step,
		TotalSteps:  len(s.Steps),
		Instruction: s.Steps[s.step],
		Progress:    float64(s.step+1) / float64(len(s.Steps)) * 100,
		Timer: TimerSnapshot{
			State:            s.timer.State(),
			RemainingSeconds: s.timer.Remaining(),
			Display:          s.timer.Display(),
		},
	}
}

// Next moves to the following step. The timer is reset either way it moves.
func (s *Session) Next() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step >= len(s.Steps)-1 {
		return s.snapshot(), ErrNoMoreSteps
	}
	s.step++
	s.timer.Reset()
	return s.snapshot(), nil
}

// Previous moves back one step.
func (s *Session) Previous() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step == 0 {
		return s.snapshot(), ErrFirstStep
	}
	s.step--
	s.timer.Reset()
	return s.snapshot(), nil
}

// StartTimer starts the step timer for minutes.
func (s *Session) StartTimer(ctx context.Context, minutes int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.timer.Start(minutes); err != nil {
		if errors.Is(err, ErrInvalidDuration) {
			s.n.Notify(ctx, notify.Destructive("Invalid Timer", "Please set a timer duration greater than 0 minutes."))
		}
		return s.snapshot(), err
	}
	s.log.Debug("timer started", zap.String("session", s.ID), zap.Int("step", s.step+1), zap.Int("minutes", minutes))
	return s.snapshot(), nil
}

// PauseTimer pauses the step timer.
func (s *Session) PauseTimer() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.timer.Pause()
	return s.snapshot(), err
}

// ResumeTimer resumes a paused step timer.
func (s *Session) ResumeTimer() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.timer.Resume()
	return s.snapshot(), err
}

// ResetTimer stops the step timer and clears it.
func (s *Session) ResetTimer() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer.Reset()
	return s.snapshot()
}

// Tick advances the timer by one second and sends the completion notice when
// it runs out.
func (s *Session) Tick(ctx context.Context) {
	s.mu.Lock()
	fired := s.timer.Tick()
	step := s.step + 1
	s.mu.Unlock()

	if !fired {
		return
	}
	s.log.Debug("timer finished", zap.String("session", s.ID), zap.Int("step", step))
	s.n.Notify(ctx, notify.Info("Timer Finished!", fmt.Sprintf("Timer for step %d is done.", step)))
}
