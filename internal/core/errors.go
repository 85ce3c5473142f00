package core

import (
	"errors"
	"strings"
)

// Error taxonomy shared by the engine. Callers match with errors.Is.
var (
	// ErrValidation marks input rejected before it reaches the store.
	ErrValidation = errors.New("validation failed")

	// ErrClassificationAmbiguous means the intent or its target could not be
	// resolved; the caller asks a clarifying question and nothing is mutated.
	ErrClassificationAmbiguous = errors.New("classification ambiguous")

	// ErrExtractionFailed means model output kept failing schema validation.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrUpstreamProvider means the model provider failed or timed out after
	// its retry. It is transient and distinct from validation errors.
	ErrUpstreamProvider = errors.New("upstream provider unavailable")

	ErrNotFound = errors.New("not found")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// AmbiguityError lists the candidates that prevented a unique resolution.
type AmbiguityError struct {
	Fragment   string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	if len(e.Candidates) == 0 {
		return "no goal matches " + `"` + e.Fragment + `"`
	}
	return `"` + e.Fragment + `" matches several goals: ` + strings.Join(e.Candidates, ", ")
}

func (e *AmbiguityError) Is(target error) bool {
	return target == ErrClassificationAmbiguous
}
