package core

import (
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

var cityValidator = NewValidator()

// Validate checks the CityContext invariants. A violation is a
// ConfigurationError since retrying cannot fix it.
func (c CityContext) Validate() error {
	if err := cityValidator.Struct(c); err != nil {
		return NewConfigurationError("invalid city context", err)
	}
	return nil
}
