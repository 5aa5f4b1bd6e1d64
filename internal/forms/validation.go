// Package forms parses and validates the record-entry and sign-in forms.
//
// Each form is parsed from url.Values into a typed struct and then checked
// with go-playground/validator tags. Problems are reported per field so the
// templates can render them next to the input that caused them.
package forms

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"hse/internal/core"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		return !core.Date{Time: t}.AfterDay(core.Today())
	})
	return v
}

// FieldErrors maps a form field name to a human-readable message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+fe[k])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Has reports whether field has an error.
func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

// Get returns the message for field, or "".
func (fe FieldErrors) Get(field string) string {
	return fe[field]
}

// set records msg unless the field already carries an error.
func (fe FieldErrors) set(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

// check runs struct validation and merges the result into fe.
func check(s any, fe FieldErrors) {
	err := validate.Struct(s)
	if err == nil {
		return
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		fe.set("_", err.Error())
		return
	}
	for _, e := range validationErrors {
		fe.set(e.Field(), validationMessage(e))
	}
}

// validationMessage returns a human-readable message for a validation error.
func validationMessage(fe validator.FieldError) string {
	numeric := false
	switch fe.Kind() {
	case reflect.Int, reflect.Int64, reflect.Float64:
		numeric = true
	}

	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if numeric {
			return fmt.Sprintf("must be at least %s", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if numeric {
			return fmt.Sprintf("must be at most %s", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "notfuture":
		return "cannot be in the future"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
