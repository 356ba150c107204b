package team

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
)

// Player positions
const (
	PositionSetter              = "setter"
	PositionOutsideHitter       = "outside_hitter"
	PositionOpposite            = "opposite"
	PositionMiddleBlocker       = "middle_blocker"
	PositionLibero              = "libero"
	PositionDefensiveSpecialist = "defensive_specialist"
)

var Positions = []string{
	PositionSetter,
	PositionOutsideHitter,
	PositionOpposite,
	PositionMiddleBlocker,
	PositionLibero,
	PositionDefensiveSpecialist,
}

type Team struct {
	ID          string    `json:"id"`
	CoachID     string    `json:"coach_id"`
	Name        string    `json:"name"`
	Season      string    `json:"season"`
	Level       string    `json:"level"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// NewTeam contains information needed to create or replace a Team.
type NewTeam struct {
	Name        string `json:"name" validate:"required,max=100"`
	Season      string `json:"season" validate:"max=50"`
	Level       string `json:"level" validate:"max=50"`
	Description string `json:"description" validate:"max=2000"`
}

func (nt *NewTeam) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Season = core.CleanString(nt.Season)
	nt.Level = core.CleanString(nt.Level)
	nt.Description = core.CleanText(nt.Description)
	return validate.Struct(nt)
}

type QueryFilter struct {
	CoachID         string `query:"coach_id"`
	Search          string `query:"search"`
	IncludeInactive bool   `query:"include_inactive"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

type Player struct {
	ID           string      `json:"id"`
	TeamID       string      `json:"team_id"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	JerseyNumber null.Int    `json:"jersey_number"`
	Position     null.String `json:"position"`
	Grade        string      `json:"grade"`
	Email        string      `json:"email"`
	Phone        string      `json:"phone"`
	Notes        string      `json:"notes"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
}

func (p Player) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// NewPlayer contains information needed to create or replace a Player.
type NewPlayer struct {
	FirstName    string  `json:"first_name" validate:"required,max=50"`
	LastName     string  `json:"last_name" validate:"max=50"`
	JerseyNumber *int    `json:"jersey_number" validate:"omitempty,jersey"`
	Position     *string `json:"position" validate:"omitempty,position"`
	Grade        string  `json:"grade" validate:"max=20"`
	Email        string  `json:"email" validate:"omitempty,email"`
	Phone        string  `json:"phone" validate:"max=30"`
	Notes        string  `json:"notes" validate:"max=2000"`
}

func (np *NewPlayer) Validate(validate *validator.Validate) error {
	np.FirstName = core.CleanString(np.FirstName)
	np.LastName = core.CleanString(np.LastName)
	np.Grade = core.CleanString(np.Grade)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.Phone = core.CleanString(np.Phone)
	np.Notes = core.CleanText(np.Notes)
	if np.Position != nil {
		pos := core.CleanString(*np.Position, true /* lower */)
		if pos == "" {
			np.Position = nil
		} else {
			np.Position = &pos
		}
	}
	return validate.Struct(np)
}

type PlayerFilter struct {
	TeamID          string
	Position        string `query:"position"`
	Search          string `query:"search"`
	IncludeInactive bool   `query:"include_inactive"`
}

func (pf *PlayerFilter) Clean() {
	pf.Search = core.CleanString(pf.Search)
	pf.Position = core.CleanString(pf.Position, true /* lower */)
}
