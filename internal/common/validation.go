package common

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Validator collects rule violations for a request.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationRule checks one value; nil means the value passed.
type ValidationRule func(fieldName string, value any) *ValidationError

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Err returns nil or an ErrInvalidInput-wrapped summary of all violations.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	messages := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(messages, "; "))
}

// Required rejects nil values, blank strings and empty byte slices.
func Required(fieldName string, value any) *ValidationError {
	switch v := value.(type) {
	case nil:
		return &ValidationError{Field: fieldName, Message: "is required"}
	case string:
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: fieldName, Message: "is required"}
		}
	case []byte:
		if len(v) == 0 {
			return &ValidationError{Field: fieldName, Message: "is required"}
		}
	}
	return nil
}

// MaxLength limits strings (in runes) and byte slices (in bytes).
func MaxLength(max int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		var n int
		switch v := value.(type) {
		case string:
			n = utf8.RuneCountInString(v)
		case []byte:
			n = len(v)
		default:
			return nil
		}
		if n > max {
			return &ValidationError{Field: fieldName, Message: fmt.Sprintf("must be at most %d long", max)}
		}
		return nil
	}
}

// UUID requires a parseable UUID string.
func UUID(fieldName string, value any) *ValidationError {
	str, ok := value.(string)
	if !ok {
		return &ValidationError{Field: fieldName, Message: "must be a string"}
	}
	if _, err := uuid.Parse(str); err != nil {
		return &ValidationError{Field: fieldName, Message: "must be a valid UUID"}
	}
	return nil
}
