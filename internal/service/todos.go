package service

import (
	"context"
	"errors"
	"strings"

	"github.com/atinyakov/StudyDesk/internal/apperr"
	"github.com/atinyakov/StudyDesk/internal/models"
)

// TodoRepository defines the persistence operations needed by the TodoService.
type TodoRepository interface {
	ListTodos(ctx context.Context, ownerID string, filter models.TodoFilter) ([]models.Todo, error)
	GetTodoByID(ctx context.Context, id string) (*models.Todo, error)
	InsertTodo(ctx context.Context, t *models.Todo) error
	UpdateTodo(ctx context.Context, t *models.Todo, expectedVersion int64) error
	DeleteTodo(ctx context.Context, ownerID, id string) error
}

// PlanLoader loads a plan by id; the TodoService uses it to check plan ownership.
type PlanLoader interface {
	GetPlanByID(ctx context.Context, id string) (*models.Plan, error)
}

// TodoService implements owner-scoped todo operations. A todo either belongs
// to one of the caller's plans or stands alone.
type TodoService struct {
	base
	repo  TodoRepository
	guard Guard[*models.Todo]
	plans Guard[*models.Plan]
}

// NewTodoService constructs a TodoService.
func NewTodoService(repo TodoRepository, plans PlanLoader, opts ...Option) *TodoService {
	return &TodoService{
		base:  newBase(opts),
		repo:  repo,
		guard: NewGuard("Todo", repo.GetTodoByID),
		plans: NewGuard("Plan", plans.GetPlanByID),
	}
}

// List returns the caller's todos. Filtering by a plan the caller does not
// own reports the plan as not found.
func (s *TodoService) List(ctx context.Context, userID string, filter models.TodoFilter) ([]models.Todo, error) {
	c, err := CallerFrom(userID)
	if err != nil {
		return nil, err
	}
	if filter.PlanID != nil {
		if _, err := s.plans.Fetch(ctx, c, *filter.PlanID); err != nil {
			return nil, err
		}
		filter.Standalone = false
	}
	return s.repo.ListTodos(ctx, c.ID, filter)
}

// Get returns one todo owned by the caller.
func (s *TodoService) Get(ctx context.Context, userID, id string) (*models.Todo, error) {
	c, err := CallerFrom(userID)
	if err != nil {
		return nil, err
	}
	return s.guard.Fetch(ctx, c, id)
}

// Create stores a new todo. When a plan id is given the plan must belong
// to the caller.
func (s *TodoService) Create(ctx context.Context, userID string, in models.TodoInput) (*models.Todo, error) {
	c, err := CallerFrom(userID)
	if err != nil {
		return nil, err
	}

	v := apperr.NewValidationError()
	checkTitle(v, in.Title, true)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	var planID *string
	if in.PlanID != nil && strings.TrimSpace(*in.PlanID) != "" {
		p, err := s.plans.Fetch(ctx, c, *in.PlanID)
		if err != nil {
			return nil, err
		}
		planID = &p.ID
	}

	now := s.now()
	t := &models.Todo{
		ID:          s.newID(),
		OwnerID:     c.ID,
		PlanID:      planID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    in.Category,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if err := s.repo.InsertTodo(ctx, t); err != nil {
		// The plan can disappear between the check and the insert.
		if planID != nil && errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("Plan")
		}
		return nil, err
	}
	return t, nil
}

// Update applies the supplied fields to a todo owned by the caller.
func (s *TodoService) Update(ctx context.Context, userID, id string, patch models.TodoPatch) (*models.Todo, error) {
	c, err := CallerFrom(userID)
	if err != nil {
		return nil, err
	}

	v := apperr.NewValidationError()
	if patch.Title != nil {
		checkTitle(v, *patch.Title, true)
	}
	if patch.ClearDueDate && patch.DueDate != nil {
		v.Add("dueDate", "Due date cannot be set and cleared at once")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	t, err := s.guard.Fetch(ctx, c, id)
	if err != nil {
		return nil, err
	}
	expected := t.Version

	if patch.Title != nil {
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	switch {
	case patch.ClearDueDate:
		t.DueDate = nil
	case patch.DueDate != nil:
		t.DueDate = patch.DueDate
	}
	if patch.IsCompleted != nil {
		t.IsCompleted = *patch.IsCompleted
	}
	t.UpdatedAt = s.now()

	if err := s.repo.UpdateTodo(ctx, t, expected); err != nil {
		return nil, s.guard.Settle(ctx, c, id, err)
	}
	return t, nil
}

// Delete removes a todo owned by the caller.
func (s *TodoService) Delete(ctx context.Context, userID, id string) error {
	c, err := CallerFrom(userID)
	if err != nil {
		return err
	}
	if _, err := s.guard.Fetch(ctx, c, id); err != nil {
		return err
	}
	return s.guard.Settle(ctx, c, id, s.repo.DeleteTodo(ctx, c.ID, id))
}
