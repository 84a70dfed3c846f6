package middleware

import (
	"github.com/go-playground/validator/v10"
)

// Validator plugs go-playground/validator into echo.Context.Validate.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// ValidatePartial validates only the named struct fields (Go field names).
func (cv *Validator) ValidatePartial(i interface{}, fields ...string) error {
	return cv.v.StructPartial(i, fields...)
}
