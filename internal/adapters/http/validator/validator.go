// Package validator
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Validator interface {
	Validate(data any) map[string]string
}

type DefaultValidator struct {
	validate *validator.Validate
}

func NewValidator() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names so errors line up with the request body
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})

	return &DefaultValidator{validate: v}
}

func (v *DefaultValidator) Validate(data any) map[string]string {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return map[string]string{
			"_error": "invalid payload",
		}
	}

	out := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		out[e.Field()] = messageFor(e)
	}

	return out
}

func messageFor(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", field)
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("The %s must be at least %s characters.", field, e.Param())
		}
		return fmt.Sprintf("The %s must be at least %s.", field, e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("The %s may not be greater than %s characters.", field, e.Param())
		}
		return fmt.Sprintf("The %s may not be greater than %s.", field, e.Param())
	case "oneof":
		return fmt.Sprintf("The %s must be one of: %s.", field, strings.ReplaceAll(e.Param(), " ", ", "))
	case "ip":
		return fmt.Sprintf("The %s must be a valid IP address.", field)
	case "hostname_rfc1123|ip":
		return fmt.Sprintf("The %s must be a valid hostname or IP address.", field)
	}

	return fmt.Sprintf("The %s field is invalid.", field)
}
