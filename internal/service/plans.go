package service

import (
	"context"
	"strings"

	"github.com/atinyakov/StudyDesk/internal/apperr"
	"github.com/atinyakov/StudyDesk/internal/models"
)

// PlanRepository defines the persistence operations needed by the PlanService.
type PlanRepository interface {
	// ListPlans returns the plans of ownerID with their tasks, in creation order.
	ListPlans(ctx context.Context, ownerID string) ([]models.Plan, error)
	// GetPlanByID fetches a plan without tasks and without ownership filter.
	GetPlanByID(ctx context.Context, id string) (*models.Plan, error)
	// InsertPlan stores a fully populated new plan.
	InsertPlan(ctx context.Context, p *models.Plan) error
	// UpdatePlan writes p if the stored version equals expectedVersion.
	UpdatePlan(ctx context.Context, p *models.Plan, expectedVersion int64) error
	// DeletePlan removes the plan and its todos atomically and returns the
	// number of todos removed.
	DeletePlan(ctx context.Context, ownerID, id string) (int64, error)
}

// TaskLister lists todos; the PlanService uses it to fill a single plan.
type TaskLister interface {
	ListTodos(ctx context.Context, ownerID string, filter models.TodoFilter) ([]models.Todo, error)
}

// PlanService implements owner-scoped plan operations.
type PlanService struct {
	base
	repo  PlanRepository
	tasks TaskLister
	guard Guard[*models.Plan]
}

// NewPlanService constructs a PlanService.
func NewPlanService(repo PlanRepository, tasks TaskLister, opts ...Option) *PlanService {
	return &PlanService{
		base:  newBase(opts),
		repo:  repo,
		tasks: tasks,
		guard: NewGuard("Plan", repo.GetPlanByID),
	}
}

// List returns the caller's plans with their tasks.
func (s *PlanService) List(ctx context.Context, userID string) ([]models.Plan, error) {
	c, err := CallerFrom(userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPlans(ctx, c.ID)
}

// Get returns one plan owned by the caller, with its tasks.
func (s *PlanService) Get(ctx context.Context, userID, id string) (*models.Plan, error) {
	c, err := CallerFrom(userID)
	if err != nil {
		return nil, err
	}
	p, err := s.guard.Fetch(ctx, c, id)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListTodos(ctx, c.ID, models.TodoFilter{PlanID: &p.ID})
	if err != nil {
		return nil, err
	}
	p.Tasks = tasks
	return p, nil
}

// Create stores a new, empty plan for the caller.
func (s *PlanService) Create(ctx context.Context, userID string, in models.PlanInput) (*models.Plan, error) {
	c, err := CallerFrom(userID)
	if err != nil {
		return nil, err
	}

	v := apperr.NewValidationError()
	checkTitle(v, in.Title, true)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	p := &models.Plan{
		ID:        s.newID(),
		OwnerID:   c.ID,
		Title:     strings.TrimSpace(in.Title),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
		Tasks:     []models.Todo{},
	}
	if err := s.repo.InsertPlan(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update renames a plan owned by the caller and returns it with its tasks.
func (s *PlanService) Update(ctx context.Context, userID, id string, patch models.PlanPatch) (*models.Plan, error) {
	c, err := CallerFrom(userID)
	if err != nil {
		return nil, err
	}

	v := apperr.NewValidationError()
	if patch.Title != nil {
		checkTitle(v, *patch.Title, true)
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	p, err := s.guard.Fetch(ctx, c, id)
	if err != nil {
		return nil, err
	}
	expected := p.Version

	if patch.Title != nil {
		p.Title = strings.TrimSpace(*patch.Title)
	}
	p.UpdatedAt = s.now()

	if err := s.repo.UpdatePlan(ctx, p, expected); err != nil {
		return nil, s.guard.Settle(ctx, c, id, err)
	}
	tasks, err := s.tasks.ListTodos(ctx, c.ID, models.TodoFilter{PlanID: &p.ID})
	if err != nil {
		return nil, err
	}
	p.Tasks = tasks
	return p, nil
}

// Delete removes a plan owned by the caller together with all its tasks.
// It returns how many tasks were removed.
func (s *PlanService) Delete(ctx context.Context, userID, id string) (int64, error) {
	c, err := CallerFrom(userID)
	if err != nil {
		return 0, err
	}
	if _, err := s.guard.Fetch(ctx, c, id); err != nil {
		return 0, err
	}
	removed, err := s.repo.DeletePlan(ctx, c.ID, id)
	if err != nil {
		return 0, s.guard.Settle(ctx, c, id, err)
	}
	return removed, nil
}
