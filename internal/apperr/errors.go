// Package apperr defines the error taxonomy shared by the repository,
// service and transport layers.
package apperr

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound covers both missing records and records owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated is returned when no caller identity is present.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrConflict reports a concurrent modification; the caller may retry.
	ErrConflict = errors.New("conflicting concurrent update")
	// ErrStaleVersion is returned by repositories when a versioned write
	// matched no row. Services translate it into ErrConflict or ErrNotFound.
	ErrStaleVersion = errors.New("stale version")
)

// NotFoundError names the entity that could not be resolved. It matches
// ErrNotFound under errors.Is.
type NotFoundError struct {
	Entity string
}

// NotFound returns a NotFoundError for entity.
func NotFound(entity string) error {
	return &NotFoundError{Entity: entity}
}

func (e *NotFoundError) Error() string {
	if e.Entity == "" {
		return "Not found"
	}
	return e.Entity + " not found"
}

// Is reports ErrNotFound as equivalent.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError carries one message per failing field.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a failing field. The first message for a field wins.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil returns e when at least one field failed, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Error joins the field messages in field-name order.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, "; ")
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
