package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain specific errors. Handlers map these to status codes with errors.Is.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrBadRequest      = errors.New("bad request")
	ErrValidation      = errors.New("validation failed")
	ErrQuotaExceeded   = errors.New("anonymous trip limit reached")
	ErrGeneration      = errors.New("itinerary generation failed")
	ErrConfiguration   = errors.New("itinerary service is not configured")
	ErrMalformed       = errors.New("itinerary document is malformed")
	ErrRateLimited     = errors.New("too many requests")
)

// ValidationError carries per-field messages for a rejected request.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records the first message reported for field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// OrNil returns nil when no field was reported.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// QuotaError is returned when an anonymous caller has used up the configured limit.
type QuotaError struct {
	Limit     int
	Remaining int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("anonymous trip limit of %d reached", e.Limit)
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// GenerationError reports a recoverable failure of the text-generation
// collaborator. Stage names what went wrong (call, timeout, parse, shape).
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (%s)", ErrGeneration.Error(), e.Stage)
	}
	return fmt.Sprintf("%s (%s): %v", ErrGeneration.Error(), e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrGeneration}
	}
	return []error{ErrGeneration, e.Err}
}
