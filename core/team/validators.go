package team

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/practrac/practrac/core"
)

var (
	positionTag  = "position"
	positionText = "position must be one of " + strings.Join(Positions, ", ")

	jerseyTag  = "jersey"
	jerseyText = "jersey number must be between 0 and 99"
)

// InitValidators registers the roster validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(positionTag, positionValidation)
	core.RegisterCustomTranslation(validate, translator, positionTag, positionText)

	_ = validate.RegisterValidation(jerseyTag, jerseyValidation)
	core.RegisterCustomTranslation(validate, translator, jerseyTag, jerseyText)
}

func positionValidation(fl validator.FieldLevel) bool {
	pos := fl.Field().String()
	for _, p := range Positions {
		if p == pos {
			return true
		}
	}
	return false
}

func jerseyValidation(fl validator.FieldLevel) bool {
	n := fl.Field().Int()
	return n >= 0 && n <= 99
}
