package drill

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practrac/practrac/core"
)

func TestValidateDiagram(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "empty court", raw: `{"court": "full", "elements": []}`},
		{name: "half court with extras", raw: `{"court": "half", "elements": [{"type": "player", "x": 0.5, "y": 0.25, "label": "S", "color": "#f00"}], "version": 2}`},
		{name: "arrow", raw: `{"court": "full", "elements": [{"type": "arrow", "x": 0, "y": 0, "x2": 1, "y2": 1}]}`},
		{name: "not an object", raw: `[1, 2]`, wantErr: true},
		{name: "invalid json", raw: `{"court":`, wantErr: true},
		{name: "unknown court", raw: `{"court": "beach", "elements": []}`, wantErr: true},
		{name: "unknown element", raw: `{"court": "full", "elements": [{"type": "net", "x": 0.5, "y": 0.5}]}`, wantErr: true},
		{name: "missing coordinates", raw: `{"court": "full", "elements": [{"type": "ball", "x": 0.5}]}`, wantErr: true},
		{name: "out of court", raw: `{"court": "full", "elements": [{"type": "cone", "x": 1.2, "y": 0.5}]}`, wantErr: true},
		{name: "negative end", raw: `{"court": "full", "elements": [{"type": "line", "x": 0.2, "y": 0.5, "x2": -0.1, "y2": 0.5}]}`, wantErr: true},
		{name: "arrow without end", raw: `{"court": "full", "elements": [{"type": "arrow", "x": 0.2, "y": 0.5}]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDiagram(json.RawMessage(tt.raw))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			verr, ok := err.(*core.ValidationError)
			require.True(t, ok)
			assert.Equal(t, "diagram", verr.Fields[0].Field)
		})
	}
}

func TestValidateDiagramTooManyElements(t *testing.T) {
	els := make([]map[string]interface{}, maxDiagramElements+1)
	for i := range els {
		els[i] = map[string]interface{}{"type": ElementCone, "x": 0.5, "y": 0.5}
	}
	raw, _ := json.Marshal(map[string]interface{}{"court": "full", "elements": els})
	assert.Error(t, ValidateDiagram(raw))
}

func TestNewDrillValidation(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	valid := func() NewDrill {
		return NewDrill{
			Name:            " Pepper ",
			Category:        "Warmup",
			SkillLevel:      "beginner",
			MinPlayers:      2,
			MaxPlayers:      3,
			DurationMinutes: 10,
		}
	}

	nd := valid()
	require.NoError(t, nd.Validate(validate))
	assert.Equal(t, "Pepper", nd.Name)
	assert.Equal(t, CategoryWarmup, nd.Category)

	nd = valid()
	nd.Diagram = json.RawMessage(" null ")
	require.NoError(t, nd.Validate(validate))
	assert.Nil(t, nd.Diagram)

	tests := []struct {
		name   string
		modify func(nd *NewDrill)
		field  string
	}{
		{"missing name", func(nd *NewDrill) { nd.Name = "  " }, "name"},
		{"unknown category", func(nd *NewDrill) { nd.Category = "spiking" }, "category"},
		{"unknown skill level", func(nd *NewDrill) { nd.SkillLevel = "pro" }, "skill_level"},
		{"players range", func(nd *NewDrill) { nd.MinPlayers = 6 }, "max_players"},
		{"too long", func(nd *NewDrill) { nd.DurationMinutes = 300 }, "duration_minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nd := valid()
			tt.modify(&nd)
			err := nd.Validate(validate)
			require.Error(t, err)
			verrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			assert.Equal(t, tt.field, verrs[0].Field())
		})
	}

	t.Run("no maximum", func(t *testing.T) {
		nd := valid()
		nd.MinPlayers, nd.MaxPlayers = 12, 0
		assert.NoError(t, nd.Validate(validate))
	})

	t.Run("invalid diagram", func(t *testing.T) {
		nd := valid()
		nd.Diagram = json.RawMessage(`{"court": "moon"}`)
		_, ok := nd.Validate(validate).(*core.ValidationError)
		assert.True(t, ok)
	})
}
