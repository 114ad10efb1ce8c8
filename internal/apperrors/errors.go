package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("already exists")
)

// ConfigurationError reports a missing or invalid setting detected at startup.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration error: %s is required", e.Key)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

// UpstreamError reports a failed call to the inference provider.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// MalformedResponseError reports model output that is not valid JSON.
// Raw holds the untouched output for diagnosis.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed AI response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// SchemaViolationError reports parsed model output missing a required field
// or carrying a field of the wrong type.
type SchemaViolationError struct {
	Field string
	Raw   string
	Err   error
}

func (e *SchemaViolationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid field %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("missing required field: %s", e.Field)
}

func (e *SchemaViolationError) Unwrap() error { return e.Err }

// PersistenceError reports a failed storage operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsGenerationError reports whether err belongs to the workout generation path.
func IsGenerationError(err error) bool {
	var (
		upstream  *UpstreamError
		malformed *MalformedResponseError
		schema    *SchemaViolationError
		persist   *PersistenceError
	)
	return errors.As(err, &upstream) ||
		errors.As(err, &malformed) ||
		errors.As(err, &schema) ||
		errors.As(err, &persist)
}
