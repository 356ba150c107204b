package drill

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
)

// Categories
const (
	CategoryWarmup       = "warmup"
	CategoryServing      = "serving"
	CategoryPassing      = "passing"
	CategorySetting      = "setting"
	CategoryAttacking    = "attacking"
	CategoryBlocking     = "blocking"
	CategoryDefense      = "defense"
	CategoryTransition   = "transition"
	CategoryConditioning = "conditioning"
	CategoryGamePlay     = "game_play"
	CategoryCooldown     = "cooldown"
)

// Skill levels
const (
	SkillBeginner     = "beginner"
	SkillIntermediate = "intermediate"
	SkillAdvanced     = "advanced"
)

var (
	Categories = []Category{
		{Name: "Warm-up", Value: CategoryWarmup},
		{Name: "Serving", Value: CategoryServing},
		{Name: "Passing", Value: CategoryPassing},
		{Name: "Setting", Value: CategorySetting},
		{Name: "Attacking", Value: CategoryAttacking},
		{Name: "Blocking", Value: CategoryBlocking},
		{Name: "Defense", Value: CategoryDefense},
		{Name: "Transition", Value: CategoryTransition},
		{Name: "Conditioning", Value: CategoryConditioning},
		{Name: "Game Play", Value: CategoryGamePlay},
		{Name: "Cool-down", Value: CategoryCooldown},
	}

	SkillLevels = []string{SkillBeginner, SkillIntermediate, SkillAdvanced}
)

type Category struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func IsCategory(val string) bool {
	for _, c := range Categories {
		if c.Value == val {
			return true
		}
	}
	return false
}

func IsSkillLevel(val string) bool {
	for _, l := range SkillLevels {
		if l == val {
			return true
		}
	}
	return false
}

type Drill struct {
	ID              string    `json:"id" yaml:"-"`
	CoachID         string    `json:"coach_id" yaml:"-"`
	Name            string    `json:"name" yaml:"name"`
	Category        string    `json:"category" yaml:"category"`
	SkillLevel      string    `json:"skill_level" yaml:"skill_level"`
	Description     string    `json:"description" yaml:"description,omitempty"`
	MinPlayers      int       `json:"min_players" yaml:"min_players,omitempty"`
	MaxPlayers      int       `json:"max_players" yaml:"max_players,omitempty"`
	DurationMinutes int       `json:"duration_minutes" yaml:"duration_minutes,omitempty"`
	Equipment       string    `json:"equipment" yaml:"equipment,omitempty"`
	Diagram         null.JSON `json:"diagram" yaml:"-"`
	IsActive        bool      `json:"is_active" yaml:"-"`
	Videos          []Video   `json:"videos" yaml:"videos,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"-"` // UTC
	UpdatedAt       time.Time `json:"updated_at" yaml:"-"` // UTC
}

type Video struct {
	ID        string    `json:"id" yaml:"-"`
	DrillID   string    `json:"drill_id" yaml:"-"`
	Title     string    `json:"title" yaml:"title"`
	URL       string    `json:"url" yaml:"url"`
	CreatedAt time.Time `json:"created_at" yaml:"-"` // UTC
}

// NewDrill contains information needed to create or replace a Drill.
type NewDrill struct {
	Name            string          `json:"name" validate:"required,max=100"`
	Category        string          `json:"category" validate:"required,category"`
	SkillLevel      string          `json:"skill_level" validate:"required,skilllevel"`
	Description     string          `json:"description" validate:"max=5000"`
	MinPlayers      int             `json:"min_players" validate:"min=0,max=50"`
	MaxPlayers      int             `json:"max_players" validate:"min=0,max=50"`
	DurationMinutes int             `json:"duration_minutes" validate:"min=0,max=240"`
	Equipment       string          `json:"equipment" validate:"max=500"`
	Diagram         json.RawMessage `json:"diagram"`
}

func (nd *NewDrill) Validate(validate *validator.Validate) error {
	nd.Name = core.CleanString(nd.Name)
	nd.Category = core.CleanString(nd.Category, true /* lower */)
	nd.SkillLevel = core.CleanString(nd.SkillLevel, true /* lower */)
	nd.Description = core.CleanText(nd.Description)
	nd.Equipment = core.CleanText(nd.Equipment)
	if err := validate.Struct(nd); err != nil {
		return err
	}
	if isNullJSON(nd.Diagram) {
		nd.Diagram = nil
		return nil
	}
	return ValidateDiagram(nd.Diagram)
}

type NewVideo struct {
	Title string `json:"title" validate:"max=200"`
	URL   string `json:"url" validate:"required,url,max=2000"`
}

func (nv *NewVideo) Validate(validate *validator.Validate) error {
	nv.Title = core.CleanText(nv.Title)
	nv.URL = core.CleanString(nv.URL)
	return validate.Struct(nv)
}

type QueryFilter struct {
	CoachID         string `query:"coach_id"`
	Search          string `query:"search"`
	Category        string `query:"category"`
	SkillLevel      string `query:"skill_level"`
	IncludeInactive bool   `query:"include_inactive"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
	qf.SkillLevel = core.CleanString(qf.SkillLevel, true /* lower */)
}
