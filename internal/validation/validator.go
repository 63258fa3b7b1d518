// Package validation wraps a singleton go-playground validator and turns its
// errors into apperror validation errors naming the offending field.
//
// Field names come from the json tag (request bodies) or the koanf tag
// (configuration), so messages use the names callers actually typed:
//
//	type registerRequest struct {
//	    Email string `json:"email" validate:"required,email"`
//	}
//
//	if err := validation.Struct(&req); err != nil {
//	    // apperror.ErrValidation, Field "email"
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/movieku/internal/apperror"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared instance. It caches struct metadata, so one
// instance for the whole process is the intended use.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(fieldName)
	})
	return validate
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "koanf"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// Struct validates s and reports the first failing field as an
// apperror.ErrValidation. Nested config fields are reported with their full
// dotted path ("auth.jwt_secret").
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validation: %w", err)
	}

	fe := fieldErrs[0]
	field := namespaceField(fe.Namespace())
	return apperror.ValidationFailed(field, message(field, fe))
}

// namespaceField drops the root struct name: "Config.auth.jwt_secret" →
// "auth.jwt_secret".
func namespaceField(ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return ns
	}
	return rest
}

func message(field string, fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "url", "http_url":
		return field + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	}
	return field + " is invalid"
}
