package drill

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/practrac/practrac/core"
)

var (
	categoryTag  = "category"
	categoryText = "unknown drill category"

	skillLevelTag  = "skilllevel"
	skillLevelText = "skill level must be one of " + strings.Join(SkillLevels, ", ")

	playersRangeTag  = "playersrange"
	playersRangeText = "max_players cannot be lower than min_players"
)

// InitValidators registers the drill validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, func(fl validator.FieldLevel) bool {
		return IsCategory(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)

	_ = validate.RegisterValidation(skillLevelTag, func(fl validator.FieldLevel) bool {
		return IsSkillLevel(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, skillLevelTag, skillLevelText)

	validate.RegisterStructValidation(drillStructValidation, NewDrill{})
	core.RegisterCustomTranslation(validate, translator, playersRangeTag, playersRangeText)
}

// drillStructValidation checks the players range. A zero max_players means "no maximum".
func drillStructValidation(sl validator.StructLevel) {
	nd := sl.Current().Interface().(NewDrill)
	if nd.MaxPlayers > 0 && nd.MinPlayers > nd.MaxPlayers {
		sl.ReportError(nd.MaxPlayers, "max_players", "MaxPlayers", playersRangeTag, "")
	}
}
