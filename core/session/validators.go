package session

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/practrac/practrac/core"
)

var (
	attendanceTag  = "attendance"
	attendanceText = "status must be one of " + strings.Join(AttendanceStatuses, ", ")
)

// InitValidators registers the session validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(attendanceTag, func(fl validator.FieldLevel) bool {
		status := fl.Field().String()
		for _, s := range AttendanceStatuses {
			if s == status {
				return true
			}
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, attendanceTag, attendanceText)
}
