package session

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
)

// Statuses
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Attendance statuses
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
	AttendanceExcused = "excused"
)

var (
	Statuses           = []string{StatusPending, StatusRunning, StatusPaused, StatusCompleted, StatusCancelled}
	AttendanceStatuses = []string{AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused}
)

// Session is a live run of a practice plan.
// Durations are kept as time.Duration and exposed in seconds by View.
type Session struct {
	ID               string
	PracticeID       null.String
	TeamID           string
	PracticeTitle    string
	Status           string
	CurrentPhase     int
	StartedAt        null.Time
	PausedAt         null.Time
	PausedTotal      time.Duration
	PhaseStartedAt   null.Time // start of the current visit of the current phase
	PhasePausedTotal time.Duration
	CompletedAt      null.Time
	Version          int
	Phases           []PhaseLog
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PhaseLog is the record of one phase of the session, snapshotted from the practice plan.
type PhaseLog struct {
	SessionID string
	Position  int
	Name      string
	DrillID   null.String
	Planned   time.Duration
	Elapsed   time.Duration // closed visits only
	StartedAt null.Time
	EndedAt   null.Time
}

func (s Session) IsOver() bool {
	return s.Status == StatusCompleted || s.Status == StatusCancelled
}

type Attendance struct {
	SessionID  string    `json:"session_id"`
	PlayerID   string    `json:"player_id"`
	Status     string    `json:"status"`
	Note       string    `json:"note"`
	RecordedAt time.Time `json:"recorded_at"` // UTC
}

type AttendanceInput struct {
	PlayerID string `json:"player_id" validate:"required,uuid"`
	Status   string `json:"status" validate:"required,attendance"`
	Note     string `json:"note" validate:"max=500"`
}

// AttendanceUpdate is a bulk upsert of attendance records.
type AttendanceUpdate struct {
	Records []AttendanceInput `json:"records" validate:"required,max=200,dive"`
}

func (au *AttendanceUpdate) Validate(validate *validator.Validate) error {
	for i := range au.Records {
		au.Records[i].PlayerID = core.CleanString(au.Records[i].PlayerID, true /* lower */)
		au.Records[i].Status = core.CleanString(au.Records[i].Status, true /* lower */)
		au.Records[i].Note = core.CleanText(au.Records[i].Note)
	}
	return validate.Struct(au)
}

// PlayerAttendance is a player's attendance history.
type PlayerAttendance struct {
	PlayerID string                   `json:"player_id"`
	Records  []PlayerAttendanceRecord `json:"records"`
	Counts   AttendanceCounts         `json:"counts"`
}

type PlayerAttendanceRecord struct {
	SessionID     string    `json:"session_id"`
	PracticeTitle string    `json:"practice_title"`
	SessionDate   time.Time `json:"session_date"` // UTC
	Status        string    `json:"status"`
	Note          string    `json:"note"`
}

type AttendanceCounts struct {
	Present int     `json:"present"`
	Late    int     `json:"late"`
	Excused int     `json:"excused"`
	Absent  int     `json:"absent"`
	Total   int     `json:"total"`
	Rate    float64 `json:"rate"`
}

// Add counts one attendance status.
func (ac *AttendanceCounts) Add(status string) {
	switch status {
	case AttendancePresent:
		ac.Present++
	case AttendanceLate:
		ac.Late++
	case AttendanceExcused:
		ac.Excused++
	case AttendanceAbsent:
		ac.Absent++
	default:
		return
	}
	ac.Total++
	ac.Rate = float64(ac.Present+ac.Late) / float64(ac.Total)
}

type QueryFilter struct {
	TeamID string
	Status string `query:"status"`
}
