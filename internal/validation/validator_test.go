package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCourseNumber(t *testing.T) {
	valid := []string{"ENG 101", "BIO 240W", "geo 305", "MTH 1012"}
	for _, number := range valid {
		assert.True(t, IsCourseNumber(number), number)
	}

	invalid := []string{"", "ENG101", "EN 101", "ENGL 101", "ENG 10", "ENG 101WX", "101 ENG"}
	for _, number := range invalid {
		assert.False(t, IsCourseNumber(number), number)
	}
}

func TestCourseNumberValidatorTag(t *testing.T) {
	v := New()

	type payload struct {
		Number string `validate:"required,course_number"`
	}

	assert.NoError(t, v.Struct(payload{Number: "CHM 210"}))
	assert.Error(t, v.Struct(payload{Number: "chemistry 210"}))
}
