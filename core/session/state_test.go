package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practrac/practrac/core"
)

var t0 = time.Date(2024, 9, 3, 18, 0, 0, 0, time.UTC)

func at(min int) time.Time {
	return t0.Add(time.Duration(min) * time.Minute)
}

func newTestSession(planned ...int) Session {
	s := Session{ID: "s", TeamID: "t", Status: StatusPending, Version: 1}
	for i, m := range planned {
		s.Phases = append(s.Phases, PhaseLog{SessionID: "s", Position: i, Name: "phase", Planned: time.Duration(m) * time.Minute})
	}
	return s
}

func TestApplyClock(t *testing.T) {
	s := newTestSession(10, 5, 5)

	steps := []struct {
		action string
		min    int
	}{
		{ActionStart, 0},
		{ActionPause, 2},
		{ActionResume, 5},
		{ActionNext, 8},
		{ActionPrevious, 9},
		{ActionNext, 11},
		{ActionNext, 12},
		{ActionPause, 13},
		{ActionNext, 15}, // last phase, paused
	}
	for _, st := range steps {
		require.NoError(t, s.Apply(st.action, at(st.min)), st.action)
	}

	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, at(15), s.CompletedAt.Time)
	assert.False(t, s.PausedAt.Valid)
	assert.Equal(t, 5*time.Minute, s.PausedTotal)
	assert.Equal(t, 10*time.Minute, s.Elapsed(at(60)))

	assert.Equal(t, 7*time.Minute, s.Phases[0].Elapsed)
	assert.Equal(t, 2*time.Minute, s.Phases[1].Elapsed)
	assert.Equal(t, 1*time.Minute, s.Phases[2].Elapsed)
	assert.Equal(t, at(0), s.Phases[0].StartedAt.Time)
	assert.Equal(t, at(11), s.Phases[0].EndedAt.Time)
	assert.Equal(t, at(8), s.Phases[1].StartedAt.Time)
	assert.Equal(t, 20*time.Minute, s.PlannedTotal())
}

func TestApplyLiveClock(t *testing.T) {
	s := newTestSession(10, 5)
	require.NoError(t, s.Apply(ActionStart, at(0)))
	require.NoError(t, s.Apply(ActionPause, at(4)))

	// the clock is frozen while paused
	assert.Equal(t, 4*time.Minute, s.Elapsed(at(9)))
	assert.Equal(t, 4*time.Minute, s.PhaseElapsed(0, at(9)))

	require.NoError(t, s.Apply(ActionResume, at(6)))
	assert.Equal(t, 10*time.Minute, s.Elapsed(at(12)))
	assert.Equal(t, 10*time.Minute, s.PhaseElapsed(0, at(12)))
	assert.Equal(t, time.Duration(0), s.PhaseElapsed(1, at(12)))
	assert.Equal(t, time.Duration(0), s.PhaseElapsed(5, at(12)))

	v := s.View(at(14))
	assert.Equal(t, int64(12*60), v.ElapsedSeconds)
	assert.Equal(t, int64(2*60), v.PausedSeconds)
	assert.Equal(t, int64(12*60), v.PhaseElapsedSeconds)
	assert.Equal(t, int64(0), v.PhaseRemainingSeconds)
	assert.True(t, v.Overtime)
	assert.Equal(t, int64(15*60), v.PlannedSeconds)
	assert.Len(t, v.Phases, 2)

	// a clock going backwards never yields negative durations
	assert.Equal(t, time.Duration(0), s.Elapsed(at(-10)))
}

func TestApplyInvalid(t *testing.T) {
	pending := newTestSession(10, 5)

	running := newTestSession(10, 5)
	_ = running.Apply(ActionStart, at(0))

	paused := running
	paused.Phases = append([]PhaseLog(nil), running.Phases...)
	_ = paused.Apply(ActionPause, at(1))

	completed := running
	completed.Phases = append([]PhaseLog(nil), running.Phases...)
	_ = completed.Apply(ActionComplete, at(2))

	cancelled := newTestSession(10)
	_ = cancelled.Apply(ActionCancel, at(0))

	tests := []struct {
		name   string
		s      Session
		action string
	}{
		{"pending pause", pending, ActionPause},
		{"pending resume", pending, ActionResume},
		{"pending next", pending, ActionNext},
		{"pending previous", pending, ActionPrevious},
		{"pending complete", pending, ActionComplete},
		{"running start", running, ActionStart},
		{"running resume", running, ActionResume},
		{"running previous on first phase", running, ActionPrevious},
		{"paused start", paused, ActionStart},
		{"paused pause", paused, ActionPause},
		{"completed start", completed, ActionStart},
		{"completed next", completed, ActionNext},
		{"completed cancel", completed, ActionCancel},
		{"cancelled start", cancelled, ActionStart},
		{"cancelled resume", cancelled, ActionResume},
		{"cancelled cancel", cancelled, ActionCancel},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.s
			err := tc.s.Apply(tc.action, at(30))
			assert.True(t, core.IsConflict(err), "got %v", err)
			assert.Equal(t, before.Status, tc.s.Status)
			assert.Equal(t, before.CurrentPhase, tc.s.CurrentPhase)
		})
	}
}

func TestApplyEdgeCases(t *testing.T) {
	t.Run("start without phases", func(t *testing.T) {
		s := newTestSession()
		assert.Equal(t, ErrNoPhases, s.Apply(ActionStart, at(0)))
		assert.Equal(t, StatusPending, s.Status)
	})

	t.Run("unknown action", func(t *testing.T) {
		s := newTestSession(10)
		err := s.Apply("rewind", at(0))
		_, ok := err.(*core.ValidationError)
		assert.True(t, ok)
	})

	t.Run("cancel pending", func(t *testing.T) {
		s := newTestSession(10)
		require.NoError(t, s.Apply(ActionCancel, at(0)))
		assert.Equal(t, StatusCancelled, s.Status)
		assert.False(t, s.StartedAt.Valid)
		assert.Equal(t, time.Duration(0), s.Elapsed(at(5)))
	})

	t.Run("cancel paused", func(t *testing.T) {
		s := newTestSession(10, 10)
		require.NoError(t, s.Apply(ActionStart, at(0)))
		require.NoError(t, s.Apply(ActionPause, at(3)))
		require.NoError(t, s.Apply(ActionCancel, at(7)))
		assert.Equal(t, StatusCancelled, s.Status)
		assert.Equal(t, 3*time.Minute, s.Elapsed(at(30)))
		assert.Equal(t, 3*time.Minute, s.Phases[0].Elapsed)
		assert.True(t, s.IsOver())
	})

	t.Run("previous from paused resumes", func(t *testing.T) {
		s := newTestSession(10, 10)
		require.NoError(t, s.Apply(ActionStart, at(0)))
		require.NoError(t, s.Apply(ActionNext, at(10)))
		require.NoError(t, s.Apply(ActionPause, at(12)))
		require.NoError(t, s.Apply(ActionPrevious, at(15)))
		assert.Equal(t, StatusRunning, s.Status)
		assert.Equal(t, 0, s.CurrentPhase)
		assert.Equal(t, 2*time.Minute, s.Phases[1].Elapsed)
		assert.Equal(t, 3*time.Minute, s.PausedTotal)
		assert.Equal(t, 11*time.Minute, s.PhaseElapsed(0, at(16)))
	})
}

func TestSummarize(t *testing.T) {
	s := newTestSession(10, 5)
	require.NoError(t, s.Apply(ActionStart, at(0)))
	require.NoError(t, s.Apply(ActionNext, at(12)))
	require.NoError(t, s.Apply(ActionComplete, at(16)))

	attendance := []Attendance{
		{PlayerID: "a", Status: AttendancePresent},
		{PlayerID: "b", Status: AttendanceLate},
		{PlayerID: "c", Status: AttendanceAbsent},
		{PlayerID: "d", Status: AttendanceExcused},
	}
	sum := s.Summarize(at(40), attendance, 3)

	assert.Equal(t, int64(15*60), sum.PlannedSeconds)
	assert.Equal(t, int64(16*60), sum.ElapsedSeconds)
	assert.Equal(t, int64(60), sum.DeltaSeconds)
	require.Len(t, sum.Phases, 2)
	assert.Equal(t, int64(2*60), sum.Phases[0].DeltaSeconds)
	assert.Equal(t, int64(-60), sum.Phases[1].DeltaSeconds)
	assert.Equal(t, AttendanceCounts{Present: 1, Late: 1, Excused: 1, Absent: 1, Total: 4, Rate: 0.5}, sum.Attendance)
	assert.Equal(t, 3, sum.NoteCount)
}
