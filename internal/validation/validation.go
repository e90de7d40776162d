// Package validation checks request payloads against their `validate` struct tags.
// Every failure is reported as domain.ErrBadRequest.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"shareit/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so messages match the request body.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct validates v by its tags.
func Struct(v any) error {
	return translate(validate.Struct(v), "")
}

// Var validates a single value against tag and reports it under name.
func Var(name string, value any, tag string) error {
	return translate(validate.Var(value, tag), name)
}

func translate(err error, name string) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		if field == "" {
			field = name
		}
		msgs = append(msgs, describe(field, fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrBadRequest, strings.Join(msgs, "; "))
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return fmt.Sprintf("%s must be a valid email, got %q", field, fe.Value())
	case "gt", "gte", "min":
		return fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
