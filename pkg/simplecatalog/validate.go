package simplecatalog

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate = validator.New()

// validateStruct runs struct tag validation and maps failures to ErrValidation.
func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into ErrValidation errors
// naming the first failing field.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%w: %s failed on '%s' (value: %v)", ErrValidation, e.Field(), e.Tag(), e.Value())
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
