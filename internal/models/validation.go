package models

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Validate refs by their identifier so `required` rejects the zero ref.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if ref, ok := field.Interface().(AccountRef); ok {
			return ref.ID()
		}
		return nil
	}, AccountRef{})
	return v
}

// ValidationError reports the fields of an entity that failed their checks.
type ValidationError struct {
	Entity string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

func newValidationError(entity, field, reason string) *ValidationError {
	return &ValidationError{Entity: entity, Fields: map[string]string{field: reason}}
}

func validateEntity(entity string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %s: %w", entity, err)
	}

	ve := &ValidationError{Entity: entity, Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Fields[fe.Field()] = fmt.Sprintf("failed on '%s' tag", fe.Tag())
	}
	return ve
}
