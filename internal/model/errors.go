package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failure modes the pipeline exposes to
// callers. Checker-level absence of data is never an Error; it is an
// ordinary failing ComplianceResult.
type ErrorKind string

const (
	// ErrInvalidIdentifier: the input id fails the TE-number pattern.
	ErrInvalidIdentifier ErrorKind = "invalid_identifier"
	// ErrRuleNotFound: no rule configured for a syntactically valid id.
	ErrRuleNotFound ErrorKind = "rule_not_found"
	// ErrTestItemNotFound: the id is not present in the source report.
	ErrTestItemNotFound ErrorKind = "test_item_not_found"
	// ErrSource: reading the source report failed for this item. An I/O
	// failure, never absence; absence is ErrTestItemNotFound.
	ErrSource ErrorKind = "source"
	// ErrCorruptedSource: the source report is partially unreadable for
	// this item. The Error carries whatever partial data was recovered.
	ErrCorruptedSource ErrorKind = "corrupted_source"
	// ErrConfig: the rule configuration failed validation at load time.
	ErrConfig ErrorKind = "config"
	// ErrTimeout: an external collaborator call exceeded its deadline or
	// was cancelled by the caller before it finished.
	ErrTimeout ErrorKind = "timeout"
)

// Error is the typed error returned at every pipeline boundary.
type Error struct {
	Kind ErrorKind
	// ID is the TE number (or, for config errors, the rule id) the
	// failure concerns.
	ID      string
	Message string
	Err     error

	// Partial holds the recoverable portion of the test-item data for
	// ErrCorruptedSource; nil for every other kind.
	Partial *TestItemData
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.ID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a typed error.
func NewError(kind ErrorKind, id, message string) *Error {
	return &Error{Kind: kind, ID: id, Message: message}
}

// WrapError wraps cause as a typed error.
func WrapError(kind ErrorKind, id string, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, ID: id, Message: msg, Err: cause}
}

// KindOf returns the ErrorKind in err's chain, if any.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// PartialOf returns the partial test-item data attached to a
// corrupted-source error, if present.
func PartialOf(err error) *TestItemData {
	var e *Error
	if errors.As(err, &e) && e.Kind == ErrCorruptedSource {
		return e.Partial
	}
	return nil
}
