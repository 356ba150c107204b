package practice

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
)

type Practice struct {
	ID          string    `json:"id"`
	TeamID      string    `json:"team_id"`
	Title       string    `json:"title"`
	ScheduledAt null.Time `json:"scheduled_at"` // UTC
	Location    string    `json:"location"`
	Goals       string    `json:"goals"`
	Notes       string    `json:"notes"`
	Phases      []Phase   `json:"phases"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// TotalMinutes is the planned length of the practice.
func (p Practice) TotalMinutes() int {
	var total int
	for _, ph := range p.Phases {
		total += ph.DurationMinutes
	}
	return total
}

// PracticeResponse is the JSON representation of a Practice.
type PracticeResponse struct {
	Practice
	TotalMinutes int `json:"total_minutes"`
}

func (p Practice) Response() PracticeResponse {
	return PracticeResponse{Practice: p, TotalMinutes: p.TotalMinutes()}
}

type Phase struct {
	ID              string      `json:"id"`
	PracticeID      string      `json:"practice_id"`
	Position        int         `json:"position"`
	Name            string      `json:"name"`
	DrillID         null.String `json:"drill_id"`
	DurationMinutes int         `json:"duration_minutes"`
	Notes           string      `json:"notes"`
}

// Duration is the planned duration of the phase.
func (ph Phase) Duration() time.Duration {
	return time.Duration(ph.DurationMinutes) * time.Minute
}

// NewPractice contains information needed to create or replace a Practice.
// The phases are stored in the given order.
type NewPractice struct {
	Title       string     `json:"title" validate:"required,max=200"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Location    string     `json:"location" validate:"max=200"`
	Goals       string     `json:"goals" validate:"max=2000"`
	Notes       string     `json:"notes" validate:"max=5000"`
	Phases      []NewPhase `json:"phases" validate:"max=50,dive"`
}

type NewPhase struct {
	Name            string `json:"name" validate:"required_without=DrillID,max=100"`
	DrillID         string `json:"drill_id" validate:"omitempty,uuid"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=1,max=240"`
	Notes           string `json:"notes" validate:"max=2000"`
}

func (np *NewPractice) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Location = core.CleanString(np.Location)
	np.Goals = core.CleanText(np.Goals)
	np.Notes = core.CleanText(np.Notes)
	for i := range np.Phases {
		np.Phases[i].Name = core.CleanString(np.Phases[i].Name)
		np.Phases[i].DrillID = core.CleanString(np.Phases[i].DrillID, true /* lower */)
		np.Phases[i].Notes = core.CleanText(np.Phases[i].Notes)
	}
	return validate.Struct(np)
}

type DuplicateRequest struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type QueryFilter struct {
	TeamID string
	From   time.Time `query:"from"`
	To     time.Time `query:"to"`
}
