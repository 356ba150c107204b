package session

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
)

// Actions
const (
	ActionStart    = "start"
	ActionPause    = "pause"
	ActionResume   = "resume"
	ActionNext     = "next"
	ActionPrevious = "previous"
	ActionComplete = "complete"
	ActionCancel   = "cancel"
)

var (
	Actions = []string{ActionStart, ActionPause, ActionResume, ActionNext, ActionPrevious, ActionComplete, ActionCancel}

	// ErrNoPhases is returned when a session is created or started for a practice without phases.
	ErrNoPhases = core.NewValidationError(nil, core.FieldError{Field: "phases", Error: "the practice has no phases"})
)

func invalidTransition(action, status string) error {
	return core.NewConflictError(fmt.Sprintf("cannot %s a %s session", action, status))
}

// Apply runs action on the session at time now.
// An action that is not allowed in the current status returns a *core.ConflictError and leaves s untouched.
func (s *Session) Apply(action string, now time.Time) error {
	switch action {
	case ActionStart:
		if s.Status != StatusPending {
			return invalidTransition(action, s.Status)
		}
		if len(s.Phases) == 0 {
			return ErrNoPhases
		}
		s.StartedAt = null.TimeFrom(now)
		s.Status = StatusRunning
		s.CurrentPhase = 0
		s.openPhase(now)

	case ActionPause:
		if s.Status != StatusRunning {
			return invalidTransition(action, s.Status)
		}
		s.PausedAt = null.TimeFrom(now)
		s.Status = StatusPaused

	case ActionResume:
		if s.Status != StatusPaused {
			return invalidTransition(action, s.Status)
		}
		s.closePause(now)
		s.Status = StatusRunning

	case ActionNext:
		if !s.isLive() {
			return invalidTransition(action, s.Status)
		}
		s.closePause(now)
		s.closePhase(now)
		if s.CurrentPhase >= len(s.Phases)-1 {
			s.finish(StatusCompleted, now)
			break
		}
		s.CurrentPhase++
		s.openPhase(now)
		s.Status = StatusRunning

	case ActionPrevious:
		if !s.isLive() || s.CurrentPhase == 0 {
			return invalidTransition(action, s.Status)
		}
		s.closePause(now)
		s.closePhase(now)
		s.CurrentPhase--
		s.openPhase(now)
		s.Status = StatusRunning

	case ActionComplete:
		if !s.isLive() {
			return invalidTransition(action, s.Status)
		}
		s.closePause(now)
		s.closePhase(now)
		s.finish(StatusCompleted, now)

	case ActionCancel:
		switch s.Status {
		case StatusPending:
			s.Status = StatusCancelled
		case StatusRunning, StatusPaused:
			s.closePause(now)
			s.closePhase(now)
			s.finish(StatusCancelled, now)
		default:
			return invalidTransition(action, s.Status)
		}

	default:
		return core.NewValidationError(nil, core.FieldError{Field: "action", Error: fmt.Sprintf("unknown action %q", action)})
	}
	return nil
}

func (s *Session) isLive() bool {
	return s.Status == StatusRunning || s.Status == StatusPaused
}

// closePause adds the running pause, if any, to the session and phase pause totals.
func (s *Session) closePause(now time.Time) {
	if !s.PausedAt.Valid {
		return
	}
	d := nonNegative(now.Sub(s.PausedAt.Time))
	s.PausedTotal += d
	s.PhasePausedTotal += d
	s.PausedAt = null.Time{}
}

// openPhase starts a visit of the current phase.
func (s *Session) openPhase(now time.Time) {
	s.PhaseStartedAt = null.TimeFrom(now)
	s.PhasePausedTotal = 0
	ph := &s.Phases[s.CurrentPhase]
	if !ph.StartedAt.Valid {
		ph.StartedAt = null.TimeFrom(now)
	}
}

// closePhase ends the visit of the current phase and adds its unpaused time to the phase log.
// Any pause must be closed first.
func (s *Session) closePhase(now time.Time) {
	if !s.PhaseStartedAt.Valid {
		return
	}
	ph := &s.Phases[s.CurrentPhase]
	ph.Elapsed += nonNegative(now.Sub(s.PhaseStartedAt.Time) - s.PhasePausedTotal)
	ph.EndedAt = null.TimeFrom(now)
	s.PhaseStartedAt = null.Time{}
	s.PhasePausedTotal = 0
}

func (s *Session) finish(status string, now time.Time) {
	s.Status = status
	s.CompletedAt = null.TimeFrom(now)
}

// refTime is the instant the session clock stopped at, or now when it is still ticking.
func (s Session) refTime(now time.Time) time.Time {
	switch {
	case s.CompletedAt.Valid:
		return s.CompletedAt.Time
	case s.PausedAt.Valid:
		return s.PausedAt.Time
	default:
		return now
	}
}

// Elapsed is the unpaused time since the session started.
func (s Session) Elapsed(now time.Time) time.Duration {
	if !s.StartedAt.Valid {
		return 0
	}
	return nonNegative(s.refTime(now).Sub(s.StartedAt.Time) - s.PausedTotal)
}

// PhaseElapsed is the unpaused time spent on phase i, including the visit in progress.
func (s Session) PhaseElapsed(i int, now time.Time) time.Duration {
	if i < 0 || i >= len(s.Phases) {
		return 0
	}
	elapsed := s.Phases[i].Elapsed
	if i == s.CurrentPhase && s.PhaseStartedAt.Valid {
		elapsed += nonNegative(s.refTime(now).Sub(s.PhaseStartedAt.Time) - s.PhasePausedTotal)
	}
	return elapsed
}

// PlannedTotal is the sum of the planned durations of the phases.
func (s Session) PlannedTotal() time.Duration {
	var total time.Duration
	for _, ph := range s.Phases {
		total += ph.Planned
	}
	return total
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
