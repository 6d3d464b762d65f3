package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/apembroke/switchboard/pkg/storage"
)

// ValidationHintEmail is the per-field validation hint for email-shaped
// values.
const ValidationHintEmail = "email"

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsEmail reports whether s has the rough shape of an email address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// FieldError is one validation failure against a declared field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// ValidatePayload checks a request payload against the declared fields of
// an endpoint definition. When requirePresence is true, required fields
// must be present and non-empty (create paths); when false only the shape
// of supplied values is checked (partial update paths).
func ValidatePayload(payload storage.Document, fields []storage.FieldSpec, requirePresence bool) []FieldError {
	var errs []FieldError
	for _, field := range fields {
		value, present := payload[field.Name]
		if requirePresence && field.Required && isEmptyValue(value, present) {
			errs = append(errs, FieldError{Field: field.Name, Message: "is required"})
			continue
		}
		if !present || value == nil {
			continue
		}
		if field.Validation == ValidationHintEmail || field.Name == "email" {
			if s, ok := value.(string); ok && s != "" && !IsEmail(s) {
				errs = append(errs, FieldError{Field: field.Name, Message: "must be a valid email address"})
			}
		}
	}
	return errs
}

func isEmptyValue(value interface{}, present bool) bool {
	if !present || value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// ValidationDetails flattens field errors into client-facing detail strings.
func ValidationDetails(errs []FieldError) []string {
	details := make([]string, len(errs))
	for i, e := range errs {
		details[i] = e.String()
	}
	return details
}
