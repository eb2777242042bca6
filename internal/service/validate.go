package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"cityfix/internal/perrors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput runs struct tag validation and reports the first failing
// field as a validation error.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return perrors.Internal(err)
	}
	fe := fields[0]
	name := strings.ToLower(fe.Field())
	var msg string
	switch fe.Tag() {
	case "required":
		msg = name + " is required"
	case "email":
		msg = name + " is malformed"
	default:
		msg = name + " is invalid"
	}
	return perrors.New(perrors.KindValidation, msg, err)
}
