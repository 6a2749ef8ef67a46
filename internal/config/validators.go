package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/idelchi/gogen/pkg/validator"
)

// newValidator returns a validator that reports fields by their flag label
// and knows the "exclusive" rule.
func newValidator() (*validator.Validator, error) {
	validate := validator.NewValidator()

	if err := registerExclusive(validate); err != nil {
		return nil, err
	}

	validate.Validator().RegisterTagNameFunc(fieldName)

	return validate, nil
}

// registerExclusive adds a custom validator ensuring two fields are mutually exclusive.
// It registers both the validation logic and a human-readable error message.
func registerExclusive(validator *validator.Validator) error {
	if err := validator.RegisterValidationAndTranslation(
		"exclusive",
		validateExclusive,
		"{0} is mutually exclusive",
	); err != nil {
		return fmt.Errorf("registering exclusive validation: %w", err)
	}

	return nil
}

// fieldName prefers the label tag, then the mapstructure key, then the Go name.
func fieldName(fld reflect.StructField) string {
	const splitSize = 2

	for _, tag := range []string{"label", "mapstructure"} {
		if name := strings.SplitN(fld.Tag.Get(tag), ",", splitSize)[0]; name != "" && name != "-" {
			return name
		}
	}

	return fld.Name
}

// validateExclusive checks if two fields are mutually exclusive.
// Returns false if both fields have non-zero values.
func validateExclusive(fl validator.FieldLevel) bool {
	field := fl.Field()
	otherField := fl.Parent().FieldByName(fl.Param())

	if !field.IsValid() || !otherField.IsValid() {
		return true
	}

	return field.IsZero() || otherField.IsZero()
}
