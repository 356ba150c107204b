package note

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
)

// Note is a coach's free text note on a team, optionally about a player, a session or a practice.
type Note struct {
	ID         string      `json:"id"`
	TeamID     string      `json:"team_id"`
	CoachID    null.String `json:"coach_id"`
	PlayerID   null.String `json:"player_id"`
	SessionID  null.String `json:"session_id"`
	PracticeID null.String `json:"practice_id"`
	Body       string      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"` // UTC
	UpdatedAt  time.Time   `json:"updated_at"` // UTC
}

type NewNote struct {
	Body       string `json:"body" validate:"required,max=5000"`
	PlayerID   string `json:"player_id" validate:"omitempty,uuid"`
	SessionID  string `json:"session_id" validate:"omitempty,uuid"`
	PracticeID string `json:"practice_id" validate:"omitempty,uuid"`
}

func (nn *NewNote) Validate(validate *validator.Validate) error {
	nn.Body = core.CleanText(nn.Body)
	nn.PlayerID = core.CleanString(nn.PlayerID, true /* lower */)
	nn.SessionID = core.CleanString(nn.SessionID, true /* lower */)
	nn.PracticeID = core.CleanString(nn.PracticeID, true /* lower */)
	return validate.Struct(nn)
}

// UpdateNote changes the body of a note. Its references are fixed at creation.
type UpdateNote struct {
	Body string `json:"body" validate:"required,max=5000"`
}

func (un *UpdateNote) Validate(validate *validator.Validate) error {
	un.Body = core.CleanText(un.Body)
	return validate.Struct(un)
}

type QueryFilter struct {
	TeamID     string
	PlayerID   string `query:"player_id"`
	SessionID  string `query:"session_id"`
	PracticeID string `query:"practice_id"`
}
