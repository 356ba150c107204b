package session

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// View is the JSON representation of a Session at a given instant.
type View struct {
	ID                    string      `json:"id"`
	PracticeID            null.String `json:"practice_id"`
	TeamID                string      `json:"team_id"`
	PracticeTitle         string      `json:"practice_title"`
	Status                string      `json:"status"`
	CurrentPhase          int         `json:"current_phase"`
	StartedAt             null.Time   `json:"started_at"`
	PausedAt              null.Time   `json:"paused_at"`
	CompletedAt           null.Time   `json:"completed_at"`
	Version               int         `json:"version"`
	PlannedSeconds        int64       `json:"planned_seconds"`
	ElapsedSeconds        int64       `json:"elapsed_seconds"`
	PausedSeconds         int64       `json:"paused_seconds"`
	PhaseElapsedSeconds   int64       `json:"phase_elapsed_seconds"`
	PhaseRemainingSeconds int64       `json:"phase_remaining_seconds"`
	Overtime              bool        `json:"overtime"`
	Phases                []PhaseView `json:"phases"`
	CreatedAt             time.Time   `json:"created_at"` // UTC
	UpdatedAt             time.Time   `json:"updated_at"` // UTC
}

type PhaseView struct {
	Position       int         `json:"position"`
	Name           string      `json:"name"`
	DrillID        null.String `json:"drill_id"`
	PlannedSeconds int64       `json:"planned_seconds"`
	ElapsedSeconds int64       `json:"elapsed_seconds"`
	StartedAt      null.Time   `json:"started_at"`
	EndedAt        null.Time   `json:"ended_at"`
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

// View computes the clocks of the session at now.
func (s Session) View(now time.Time) View {
	v := View{
		ID:             s.ID,
		PracticeID:     s.PracticeID,
		TeamID:         s.TeamID,
		PracticeTitle:  s.PracticeTitle,
		Status:         s.Status,
		CurrentPhase:   s.CurrentPhase,
		StartedAt:      s.StartedAt,
		PausedAt:       s.PausedAt,
		CompletedAt:    s.CompletedAt,
		Version:        s.Version,
		PlannedSeconds: seconds(s.PlannedTotal()),
		ElapsedSeconds: seconds(s.Elapsed(now)),
		PausedSeconds:  seconds(s.PausedTotal),
		Phases:         make([]PhaseView, 0, len(s.Phases)),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.PausedAt.Valid {
		v.PausedSeconds += seconds(nonNegative(now.Sub(s.PausedAt.Time)))
	}

	for i, ph := range s.Phases {
		v.Phases = append(v.Phases, PhaseView{
			Position:       ph.Position,
			Name:           ph.Name,
			DrillID:        ph.DrillID,
			PlannedSeconds: seconds(ph.Planned),
			ElapsedSeconds: seconds(s.PhaseElapsed(i, now)),
			StartedAt:      ph.StartedAt,
			EndedAt:        ph.EndedAt,
		})
	}

	if s.CurrentPhase < len(s.Phases) {
		planned := s.Phases[s.CurrentPhase].Planned
		elapsed := s.PhaseElapsed(s.CurrentPhase, now)
		v.PhaseElapsedSeconds = seconds(elapsed)
		v.PhaseRemainingSeconds = seconds(nonNegative(planned - elapsed))
		v.Overtime = elapsed > planned
	}
	return v
}

// Summary compares the plan with what actually happened.
type Summary struct {
	SessionID      string           `json:"session_id"`
	PracticeTitle  string           `json:"practice_title"`
	Status         string           `json:"status"`
	StartedAt      null.Time        `json:"started_at"`
	CompletedAt    null.Time        `json:"completed_at"`
	PlannedSeconds int64            `json:"planned_seconds"`
	ElapsedSeconds int64            `json:"elapsed_seconds"`
	DeltaSeconds   int64            `json:"delta_seconds"`
	Phases         []PhaseSummary   `json:"phases"`
	Attendance     AttendanceCounts `json:"attendance"`
	NoteCount      int              `json:"note_count"`
}

type PhaseSummary struct {
	Position       int    `json:"position"`
	Name           string `json:"name"`
	PlannedSeconds int64  `json:"planned_seconds"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
	DeltaSeconds   int64  `json:"delta_seconds"`
}

// Summarize builds the summary of the session at now.
func (s Session) Summarize(now time.Time, attendance []Attendance, noteCount int) Summary {
	sum := Summary{
		SessionID:      s.ID,
		PracticeTitle:  s.PracticeTitle,
		Status:         s.Status,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
		PlannedSeconds: seconds(s.PlannedTotal()),
		ElapsedSeconds: seconds(s.Elapsed(now)),
		Phases:         make([]PhaseSummary, 0, len(s.Phases)),
		NoteCount:      noteCount,
	}
	sum.DeltaSeconds = sum.ElapsedSeconds - sum.PlannedSeconds

	for i, ph := range s.Phases {
		ps := PhaseSummary{
			Position:       ph.Position,
			Name:           ph.Name,
			PlannedSeconds: seconds(ph.Planned),
			ElapsedSeconds: seconds(s.PhaseElapsed(i, now)),
		}
		ps.DeltaSeconds = ps.ElapsedSeconds - ps.PlannedSeconds
		sum.Phases = append(sum.Phases, ps)
	}

	for _, a := range attendance {
		sum.Attendance.Add(a.Status)
	}
	return sum
}
