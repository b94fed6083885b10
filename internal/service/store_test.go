package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/atinyakov/StudyDesk/internal/apperr"
	"github.com/atinyakov/StudyDesk/internal/models"
)

// memStore is an in-memory stand-in for the Postgres repositories. It
// implements NoteRepository, PlanRepository and TodoRepository.
type memStore struct {
	mu    sync.Mutex
	notes map[string]models.Note
	plans map[string]models.Plan
	todos map[string]models.Todo
	// order preserves insertion order for plans and todos.
	order []string

	// failNext, when set, is returned by the next write instead of applying it.
	failNext error
}

func newMemStore() *memStore {
	return &memStore{
		notes: map[string]models.Note{},
		plans: map[string]models.Plan{},
		todos: map[string]models.Todo{},
	}
}

func (m *memStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memStore) ListNotes(_ context.Context, ownerID string, s models.NoteSort) ([]models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Note{}
	for _, n := range m.notes {
		if n.OwnerID == ownerID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		switch s {
		case models.SortTitle:
			return out[i].Title < out[j].Title
		case models.SortCreated:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *memStore) GetNoteByID(_ context.Context, id string) (*models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok {
		return nil, fmt.Errorf("get note: %w", apperr.ErrNotFound)
	}
	return &n, nil
}

func (m *memStore) InsertNote(_ context.Context, n *models.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.notes[n.ID] = *n
	return nil
}

func (m *memStore) UpdateNote(_ context.Context, n *models.Note, expected int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	cur, ok := m.notes[n.ID]
	if !ok || cur.OwnerID != n.OwnerID || cur.Version != expected {
		return apperr.ErrStaleVersion
	}
	n.Version = expected + 1
	m.notes[n.ID] = *n
	return nil
}

func (m *memStore) DeleteNote(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.notes[id]
	if !ok || cur.OwnerID != ownerID {
		return apperr.ErrNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *memStore) ListPlans(ctx context.Context, ownerID string) ([]models.Plan, error) {
	m.mu.Lock()
	var out []models.Plan
	for _, id := range m.order {
		if p, ok := m.plans[id]; ok && p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	m.mu.Unlock()
	for i := range out {
		tasks, _ := m.ListTodos(ctx, ownerID, models.TodoFilter{PlanID: &out[i].ID})
		out[i].Tasks = tasks
	}
	if out == nil {
		out = []models.Plan{}
	}
	return out, nil
}

func (m *memStore) GetPlanByID(_ context.Context, id string) (*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	p.Tasks = []models.Todo{}
	return &p, nil
}

func (m *memStore) InsertPlan(_ context.Context, p *models.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[p.ID] = *p
	m.order = append(m.order, p.ID)
	return nil
}

func (m *memStore) UpdatePlan(_ context.Context, p *models.Plan, expected int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	cur, ok := m.plans[p.ID]
	if !ok || cur.OwnerID != p.OwnerID || cur.Version != expected {
		return apperr.ErrStaleVersion
	}
	p.Version = expected + 1
	m.plans[p.ID] = *p
	return nil
}

func (m *memStore) DeletePlan(_ context.Context, ownerID, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return 0, err
	}
	cur, ok := m.plans[id]
	if !ok || cur.OwnerID != ownerID {
		return 0, apperr.ErrNotFound
	}
	var removed int64
	for tid, t := range m.todos {
		if t.PlanID != nil && *t.PlanID == id {
			delete(m.todos, tid)
			removed++
		}
	}
	delete(m.plans, id)
	return removed, nil
}

func (m *memStore) ListTodos(_ context.Context, ownerID string, f models.TodoFilter) ([]models.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Todo{}
	for _, id := range m.order {
		t, ok := m.todos[id]
		if !ok || t.OwnerID != ownerID {
			continue
		}
		switch {
		case f.PlanID != nil:
			if t.PlanID == nil || *t.PlanID != *f.PlanID {
				continue
			}
		case f.Standalone:
			if t.PlanID != nil {
				continue
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) GetTodoByID(_ context.Context, id string) (*models.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.todos[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &t, nil
}

func (m *memStore) InsertTodo(_ context.Context, t *models.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if t.PlanID != nil {
		if _, ok := m.plans[*t.PlanID]; !ok {
			return apperr.ErrNotFound
		}
	}
	m.todos[t.ID] = *t
	m.order = append(m.order, t.ID)
	return nil
}

func (m *memStore) UpdateTodo(_ context.Context, t *models.Todo, expected int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	cur, ok := m.todos[t.ID]
	if !ok || cur.OwnerID != t.OwnerID || cur.Version != expected {
		return apperr.ErrStaleVersion
	}
	t.Version = expected + 1
	m.todos[t.ID] = *t
	return nil
}

func (m *memStore) DeleteTodo(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.todos[id]
	if !ok || cur.OwnerID != ownerID {
		return apperr.ErrNotFound
	}
	delete(m.todos, id)
	return nil
}

// testClock returns a clock that advances one second per call.
func testClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

// seqIDs returns an id generator yielding prefix-1, prefix-2, ...
func seqIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func ptr[T any](v T) *T { return &v }
