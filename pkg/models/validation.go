package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// IsFatal marks validation failures as permanent: a malformed record can
// never become valid by retrying.
func (e *ValidationError) IsFatal() bool {
	return true
}

func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}
