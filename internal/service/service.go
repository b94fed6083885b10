// Package service provides the owner-scoped business logic for notes, plans,
// todos and users, delegating persistence to repository interfaces.
package service

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atinyakov/StudyDesk/internal/apperr"
	"github.com/google/uuid"
)

// MaxTitleLength is the longest title any entity accepts, in characters.
const MaxTitleLength = 255

// Option customises the clock and id source of a service.
type Option func(*base)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithIDGenerator replaces uuid.NewString.
func WithIDGenerator(newID func() string) Option {
	return func(b *base) { b.newID = newID }
}

// base holds what every service needs to stamp new records.
type base struct {
	now   func() time.Time
	newID func() string
}

func newBase(opts []Option) base {
	b := base{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

const msgTitleRequired = "Title is required"

// checkTitle validates a title. required makes blank titles an error.
func checkTitle(v *apperr.ValidationError, title string, required bool) {
	if required && strings.TrimSpace(title) == "" {
		v.Add("title", msgTitleRequired)
		return
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		v.Add("title", "Title must be at most 255 characters")
	}
}
