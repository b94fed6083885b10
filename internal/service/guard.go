package service

import (
	"context"
	"errors"
	"strings"

	"github.com/atinyakov/StudyDesk/internal/apperr"
)

// Caller is the authenticated identity a request acts for.
type Caller struct {
	ID string
}

// CallerFrom turns the identity-provider subject into a Caller.
// An empty subject is rejected before any storage is touched.
func CallerFrom(userID string) (Caller, error) {
	if strings.TrimSpace(userID) == "" {
		return Caller{}, apperr.ErrUnauthenticated
	}
	return Caller{ID: userID}, nil
}

// Owned is implemented by every entity that belongs to a single user.
type Owned interface {
	Owner() string
}

// Guard resolves single entities on behalf of a caller. It is the only path
// by which services load an entity by id, so ownership is checked uniformly.
type Guard[T Owned] struct {
	entity string
	load   func(ctx context.Context, id string) (T, error)
}

// NewGuard builds a Guard for entity, loading rows with load.
func NewGuard[T Owned](entity string, load func(ctx context.Context, id string) (T, error)) Guard[T] {
	return Guard[T]{entity: entity, load: load}
}

// Fetch returns the entity with id if c owns it. Missing and foreign
// entities are reported identically, as a NotFoundError.
func (g Guard[T]) Fetch(ctx context.Context, c Caller, id string) (T, error) {
	var zero T
	if c.ID == "" {
		return zero, apperr.ErrUnauthenticated
	}
	if strings.TrimSpace(id) == "" {
		return zero, apperr.NotFound(g.entity)
	}

	e, err := g.load(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return zero, apperr.NotFound(g.entity)
		}
		return zero, err
	}
	if e.Owner() != c.ID {
		return zero, apperr.NotFound(g.entity)
	}
	return e, nil
}

// Settle interprets the error of a write made after Fetch. A stale version
// is re-checked: a row that still exists is a conflict, a vanished row is
// not found.
func (g Guard[T]) Settle(ctx context.Context, c Caller, id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrStaleVersion):
		if _, ferr := g.Fetch(ctx, c, id); ferr != nil {
			return ferr
		}
		return apperr.ErrConflict
	case errors.Is(err, apperr.ErrNotFound):
		return apperr.NotFound(g.entity)
	}
	return err
}
