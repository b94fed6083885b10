package service

import (
	"context"
	"errors"
	"sync"

	"github.com/atinyakov/StudyDesk/internal/apperr"
	"github.com/atinyakov/StudyDesk/internal/models"
)

// UserRepository defines the persistence operations
// required by the user service.
type UserRepository interface {
	// UserExists returns true if a user with the given id exists.
	UserExists(ctx context.Context, id string) (bool, error)
	// RegisterUser creates the user record unless it already exists.
	RegisterUser(ctx context.Context, u models.User) error
	// GetUser fetches the stored profile.
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// UserService keeps a local record of every identity-provider subject that
// has called the API.
type UserService struct {
	base
	repo UserRepository
	// seen caches ids already known to exist.
	seen sync.Map
}

// NewUserService constructs a new UserService using the provided repository.
func NewUserService(repo UserRepository, opts ...Option) *UserService {
	return &UserService{base: newBase(opts), repo: repo}
}

// Ensure registers u on first sight. Later calls for the same id are served
// from memory.
func (s *UserService) Ensure(ctx context.Context, u models.User) error {
	if _, err := CallerFrom(u.ID); err != nil {
		return err
	}
	if _, ok := s.seen.Load(u.ID); ok {
		return nil
	}

	exists, err := s.repo.UserExists(ctx, u.ID)
	if err != nil {
		return err
	}
	if !exists {
		now := s.now()
		u.CreatedAt = now
		u.UpdatedAt = now
		if err := s.repo.RegisterUser(ctx, u); err != nil {
			return err
		}
	}
	s.seen.Store(u.ID, struct{}{})
	return nil
}

// Profile returns the caller's stored profile.
func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	c, err := CallerFrom(userID)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.GetUser(ctx, c.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("User")
	}
	return u, err
}
