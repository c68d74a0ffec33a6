package inventory

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotPubliclyAccessible is returned when a locator serves an HTML page instead of content,
	// which is what Google Drive answers for files that are not shared publicly.
	ErrNotPubliclyAccessible = errors.New("source is not publicly accessible")

	// ErrUnsupportedFormat is returned for uploads whose file extension cannot be ingested.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrPayloadTooLarge is returned when a candidate inventory exceeds MaxPayloadBytes.
	ErrPayloadTooLarge = errors.New("inventory payload too large")

	// ErrEmptyInventory is returned when a trusted replace receives an empty array.
	ErrEmptyInventory = errors.New("inventory must contain at least one product")
)

// FetchError reports a failed download of a candidate inventory.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("failed to fetch %s: %s", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MalformedJSONError reports content that could not be parsed as JSON.
type MalformedJSONError struct {
	Err     error
	Snippet string
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("invalid JSON: %v (content: %q)", e.Err, e.Snippet)
}

func (e *MalformedJSONError) Unwrap() error {
	return e.Err
}

// NotAnArrayError reports a JSON document whose top-level value is not an array.
type NotAnArrayError struct {
	Found string
}

func (e *NotAnArrayError) Error() string {
	return fmt.Sprintf("inventory must be a JSON array, found %s", e.Found)
}

// FieldError describes a single problem with one record of a candidate inventory.
type FieldError struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	name := e.Name
	if name == "" {
		name = "unnamed"
	}
	if e.Field == "" {
		return fmt.Sprintf("product %d (%s) %s", e.Index, name, e.Reason)
	}
	return fmt.Sprintf("product %d (%s): field %q %s", e.Index, name, e.Field, e.Reason)
}

// ValidationErrors carries every FieldError found in a candidate inventory.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("validation failed with %d error(s): %s", len(e), strings.Join(msgs, "; "))
}

// IsValidationError reports whether err means the candidate content itself is unacceptable.
func IsValidationError(err error) bool {
	var (
		malformed  *MalformedJSONError
		notAnArray *NotAnArrayError
		fieldErrs  ValidationErrors
	)
	return errors.As(err, &malformed) ||
		errors.As(err, &notAnArray) ||
		errors.As(err, &fieldErrs) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrEmptyInventory) ||
		errors.Is(err, ErrMissingLocator)
}
