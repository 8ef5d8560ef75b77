// Package validator provides a custom Validator type for accumulating
// field-level validation errors and returning them as a map.
//
// Struct-tag rules are evaluated with go-playground/validator and folded into
// the same map, so handlers only ever deal with one shape of error.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

// tags is shared by every Validator. playground.Validate caches struct
// metadata and is safe for concurrent use.
var tags = newTagValidator()

func newTagValidator() *playground.Validate {
	v := playground.New(playground.WithRequiredStructEnabled())

	// Report fields by their JSON name, e.g. "book_name" instead of "BookName".
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validator holds a map of field names to their validation error messages.
// A Validator with an empty Errors map is considered valid.
type Validator struct {
	Errors map[string]string

	// Messages overrides the generated message for a "field.tag" pair,
	// e.g. "book_name.min".
	Messages map[string]string
}

// New creates and returns a fresh, empty Validator.
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid returns true if the Errors map contains no entries.
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records key as failing with the given message.
// If key already has an error it is not overwritten, so the first
// failure for a field is always the one that is reported.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// Check adds an error for key with message only when ok is false.
// Use this as a single-line guard:
//
//	v.Check(len(title) > 0, "title", "must be provided")
func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// Merge copies every error from other into v, prefixing each key with
// prefix and a dot. It is used to report errors for one element of a batch.
// An empty prefix copies keys unchanged.
func (v *Validator) Merge(prefix string, other *Validator) {
	for key, message := range other.Errors {
		if prefix != "" {
			key = prefix + "." + key
		}
		v.AddError(key, message)
	}
}

// Struct evaluates the `validate` struct tags of s and records one error per
// failing field. An error is returned only when s cannot be validated at all
// (for example when it is not a struct).
func (v *Validator) Struct(s any) error {
	err := tags.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	for _, fe := range fieldErrs {
		key := fieldKey(fe)
		if msg, ok := v.Messages[key+"."+fe.Tag()]; ok {
			v.AddError(key, msg)
			continue
		}
		v.AddError(key, describe(fe))
	}
	return nil
}

// fieldKey strips the top-level struct name from the namespace, so nested
// and slice fields read "authors[1]" rather than "BookInput.authors[1]".
func fieldKey(fe playground.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// describe turns a failed tag into a short human-readable message.
func describe(fe playground.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must be provided"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must not be more than %s characters long", fe.Param())
		}
		return fmt.Sprintf("must not be more than %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "excludes":
		return fmt.Sprintf("must not contain %q", fe.Param())
	case "unique":
		return "must not contain duplicate values"
	default:
		return fmt.Sprintf("failed the %q rule", fe.Tag())
	}
}

// In returns true if value is present in the list slice.
func In(value string, list ...string) bool {
	for _, item := range list {
		if value == item {
			return true
		}
	}
	return false
}

// Unique returns true if every value is distinct.
func Unique[T comparable](values []T) bool {
	seen := make(map[T]bool)
	for _, v := range values {
		if seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
