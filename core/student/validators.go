package student

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/ocuweb/classpoints/core"
)

var (
	studentIDTag   = "studentid"
	studentIDText  = "student id may only contain letters, digits, dots, dashes and underscores (3-32 chars)"
	studentIDRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,32}$`)
)

// InitValidators registers this package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(studentIDTag, studentIDValidation)
	core.RegisterCustomTranslation(validate, translator, studentIDTag, studentIDText)
}

func studentIDValidation(fl validator.FieldLevel) bool {
	return studentIDRegex.MatchString(fl.Field().String())
}
