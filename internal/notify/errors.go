package notify

import "fmt"

// ValidationError reports a payload that cannot be turned into a
// NormalizedEvent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Field)
}

func missingField(field string) error {
	return &ValidationError{Field: field, Reason: "Missing required field"}
}

func notAnObject(field string) error {
	return &ValidationError{Field: field, Reason: "Expected a JSON object for field"}
}
