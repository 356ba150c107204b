package team

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practrac/practrac/core"
)

func TestNewPlayerValidation(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	intPtr := func(i int) *int { return &i }
	strPtr := func(s string) *string { return &s }

	t.Run("valid", func(t *testing.T) {
		np := NewPlayer{
			FirstName:    " Kim ",
			JerseyNumber: intPtr(0),
			Position:     strPtr(" Libero "),
			Email:        "Kim@Test.TEST",
			Notes:        "<b>great</b> passer",
		}
		require.NoError(t, np.Validate(validate))
		assert.Equal(t, "Kim", np.FirstName)
		assert.Equal(t, PositionLibero, *np.Position)
		assert.Equal(t, "kim@test.test", np.Email)
		assert.Equal(t, "great passer", np.Notes)
	})

	t.Run("blank position", func(t *testing.T) {
		np := NewPlayer{FirstName: "Kim", Position: strPtr("  ")}
		require.NoError(t, np.Validate(validate))
		assert.Nil(t, np.Position)
	})

	tests := []struct {
		name  string
		np    NewPlayer
		field string
	}{
		{"missing first name", NewPlayer{}, "first_name"},
		{"jersey too high", NewPlayer{FirstName: "Kim", JerseyNumber: intPtr(100)}, "jersey_number"},
		{"negative jersey", NewPlayer{FirstName: "Kim", JerseyNumber: intPtr(-1)}, "jersey_number"},
		{"unknown position", NewPlayer{FirstName: "Kim", Position: strPtr("goalie")}, "position"},
		{"invalid email", NewPlayer{FirstName: "Kim", Email: "kim"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.np.Validate(validate)
			require.Error(t, err)
			verrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			assert.Equal(t, tt.field, verrs[0].Field())
		})
	}
}

func TestNewTeamValidation(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	nt := NewTeam{Name: "  Varsity Girls ", Season: " 2024 ", Description: "<script>x</script>Fall"}
	require.NoError(t, nt.Validate(validate))
	assert.Equal(t, "Varsity Girls", nt.Name)
	assert.Equal(t, "2024", nt.Season)
	assert.Equal(t, "Fall", nt.Description)

	nt = NewTeam{Name: " "}
	assert.Error(t, nt.Validate(validate))
}
