package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleQuestion struct {
	QuestionText string `json:"questionText" validate:"required"`
}

type sampleInput struct {
	Title     string           `json:"title" validate:"required"`
	Email     string           `json:"email" validate:"omitempty,email"`
	Questions []sampleQuestion `json:"questions" validate:"required,min=1,dive"`
}

func TestValidateStruct(t *testing.T) {
	assert.Nil(t, ValidateStruct(&sampleInput{Title: "t", Questions: []sampleQuestion{{"q"}}}))

	errs := ValidateStruct(&sampleInput{Email: "nope", Questions: []sampleQuestion{{""}}})
	assert.Equal(t, "required", errs["title"])
	assert.Equal(t, "email", errs["email"])
	assert.Equal(t, "required", errs["questions[0].questionText"])

	errs = ValidateStruct(&sampleInput{Title: "t", Questions: []sampleQuestion{}})
	assert.Equal(t, "min=1", errs["questions"])
}
