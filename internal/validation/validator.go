package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// courseNumberPattern accepts registrar-style numbers: a three letter prefix,
// a space, three digits, and an optional trailing section letter or digit.
// Examples: "ENG 101", "BIO 240W", "GEO 3051".
var courseNumberPattern = regexp.MustCompile(`^[A-Za-z]{3} \d{3}[A-Za-z0-9]?$`)

// New returns a validator with the domain rules registered.
func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("course_number", func(fl validator.FieldLevel) bool {
		return courseNumberPattern.MatchString(fl.Field().String())
	})
	return v
}

// IsCourseNumber reports whether raw matches the registrar number format.
func IsCourseNumber(raw string) bool {
	return courseNumberPattern.MatchString(raw)
}
