// Package session drives a single focus-training session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/verte-zerg/vistrain/internal/model"
)

var (
	// ErrInvalidConfig is returned by Start for a missing subject or non-positive duration.
	ErrInvalidConfig = errors.New("invalid session config")
	// ErrInvalidState is returned when an operation is not allowed in the current phase.
	ErrInvalidState = errors.New("invalid session state")
)

// Committer receives the statistics delta of a finished session.
type Committer interface {
	Update(ctx context.Context, subject model.Subject, durationMinutes, bestStreakSeconds int) (model.StatsRecord, error)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithIDFunc replaces the session ID generator.
func WithIDFunc(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// Engine is the timer and streak state machine for one session at a time.
// All methods are safe to call from a tick goroutine and a UI goroutine.
type Engine struct {
	mu        sync.Mutex
	committer Committer
	newID     func() string

	state     model.SessionState
	result    model.SessionResult
	hasResult bool
	committed bool
	record    model.StatsRecord
}

// New returns an idle Engine that commits finished sessions to committer.
func New(committer Committer, opts ...Option) *Engine {
	e := &Engine{
		committer: committer,
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins a new session. The engine must not be running.
func (e *Engine) Start(cfg model.SessionConfig) (model.SessionState, error) {
	if cfg.Subject == "" {
		return model.SessionState{}, fmt.Errorf("%w: no subject selected", ErrInvalidConfig)
	}
	if cfg.DurationSeconds <= 0 {
		return model.SessionState{}, fmt.Errorf("%w: duration must be > 0, got %d", ErrInvalidConfig, cfg.DurationSeconds)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Phase == model.PhaseRunning {
		return e.state, fmt.Errorf("%w: session %s is already running", ErrInvalidState, e.state.ID)
	}
	e.state = model.SessionState{
		ID:               e.newID(),
		Subject:          cfg.Subject,
		DurationSeconds:  cfg.DurationSeconds,
		RemainingSeconds: cfg.DurationSeconds,
		Phase:            model.PhaseRunning,
	}
	e.result = model.SessionResult{}
	e.hasResult = false
	e.committed = false
	e.record = model.StatsRecord{}
	return e.state, nil
}

// Tick advances the countdown by one second. Reaching zero ends the session and
// commits its result. Ticks after the session ended are ignored.
func (e *Engine) Tick(ctx context.Context) (model.SessionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state.Phase {
	case model.PhaseIdle:
		return e.state, fmt.Errorf("%w: tick before start", ErrInvalidState)
	case model.PhaseEnded:
		return e.state, nil
	}
	if e.state.RemainingSeconds > 0 {
		e.state.RemainingSeconds--
	}
	e.state.CurrentStreakSeconds++
	if e.state.RemainingSeconds == 0 {
		return e.finishLocked(ctx)
	}
	return e.state, nil
}

// ReportLostFocus records a focus lapse. It is a no-op unless running.
func (e *Engine) ReportLostFocus() model.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != model.PhaseRunning {
		return e.state
	}
	e.captureBestLocked()
	e.state.CurrentStreakSeconds = 0
	return e.state
}

// End finishes a running session and commits its result. Ending an ended session
// is a no-op and never commits twice.
func (e *Engine) End(ctx context.Context) (model.SessionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state.Phase {
	case model.PhaseIdle:
		return e.state, fmt.Errorf("%w: end before start", ErrInvalidState)
	case model.PhaseEnded:
		return e.state, nil
	}
	return e.finishLocked(ctx)
}

// Retry re-attempts a commit that failed when the session ended.
func (e *Engine) Retry(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Phase != model.PhaseEnded || !e.hasResult {
		return fmt.Errorf("%w: nothing to commit", ErrInvalidState)
	}
	return e.commitLocked(ctx)
}

// State returns a snapshot of the current session.
func (e *Engine) State() model.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Result returns the delta of the last finished session.
func (e *Engine) Result() (model.SessionResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, e.hasResult
}

// Committed reports whether the last finished session reached the committer.
func (e *Engine) Committed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committed
}

// Record returns the subject's statistics as returned by the last successful commit.
func (e *Engine) Record() model.StatsRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record
}

func (e *Engine) captureBestLocked() {
	if e.state.CurrentStreakSeconds > e.state.BestStreakSeconds {
		e.state.BestStreakSeconds = e.state.CurrentStreakSeconds
	}
}

func (e *Engine) finishLocked(ctx context.Context) (model.SessionState, error) {
	e.captureBestLocked()
	e.state.Phase = model.PhaseEnded
	cfg := model.SessionConfig{Subject: e.state.Subject, DurationSeconds: e.state.DurationSeconds}
	e.result = model.SessionResult{
		Subject:           e.state.Subject,
		DurationMinutes:   cfg.DurationMinutes(),
		BestStreakSeconds: e.state.BestStreakSeconds,
	}
	e.hasResult = true
	return e.state, e.commitLocked(ctx)
}

func (e *Engine) commitLocked(ctx context.Context) error {
	if e.committed {
		return nil
	}
	if e.committer == nil {
		e.committed = true
		return nil
	}
	rec, err := e.committer.Update(ctx, e.result.Subject, e.result.DurationMinutes, e.result.BestStreakSeconds)
	if err != nil {
		return fmt.Errorf("failed to commit session %s: %w", e.state.ID, err)
	}
	e.record = rec
	e.committed = true
	return nil
}
