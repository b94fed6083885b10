package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atinyakov/StudyDesk/internal/models"
)

type fakeTimer struct {
	s       *fakeScheduler
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeScheduler only runs timers when the test fires them.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, f: f}
	s.timers = append(s.timers, t)
	return t
}

// FireAll runs every live timer and reports how many ran.
func (s *fakeScheduler) FireAll() int {
	s.mu.Lock()
	var due []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped {
			t.stopped = true
			due = append(due, t)
		}
	}
	s.timers = nil
	s.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

type call struct {
	op   string
	id   string
	body any
}

// fakeAPI records calls and answers with synthetic server records. Ops can
// be held until released and can be made to fail once.
type fakeAPI struct {
	mu    sync.Mutex
	calls []call
	seq   int
	clock time.Time

	notes []models.Note
	plans []models.Plan
	// persist makes created notes show up in later listings.
	persist bool

	holds map[string]chan struct{}
	fails map[string]error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		clock: time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC),
		holds: map[string]chan struct{}{},
		fails: map[string]error{},
	}
}

// hold blocks op until the returned channel is closed.
func (f *fakeAPI) hold(op string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.holds[op] = ch
	return ch
}

// failNext makes the next call of op return err.
func (f *fakeAPI) failNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[op] = err
}

func (f *fakeAPI) callsOf(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

// enter records a call and returns its injected error, a fresh server id
// and timestamp. It blocks while op is held.
func (f *fakeAPI) enter(op, id string, body any) (string, time.Time, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{op: op, id: id, body: body})
	f.seq++
	serverID := fmt.Sprintf("srv-%d", f.seq)
	f.clock = f.clock.Add(time.Second)
	now := f.clock
	err := f.fails[op]
	delete(f.fails, op)
	ch := f.holds[op]
	f.mu.Unlock()

	if ch != nil {
		<-ch
	}
	return serverID, now, err
}

func (f *fakeAPI) ListNotes(_ context.Context, sort models.NoteSort) ([]models.Note, error) {
	_, _, err := f.enter("ListNotes", "", sort)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Note(nil), f.notes...), nil
}

func (f *fakeAPI) CreateNote(_ context.Context, in models.NoteInput) (*models.Note, error) {
	id, now, err := f.enter("CreateNote", "", in)
	if err != nil {
		return nil, err
	}
	n := models.Note{ID: id, Title: in.Title, Body: in.Body, Category: in.Category, CreatedAt: now, UpdatedAt: now}
	f.mu.Lock()
	if f.persist {
		f.notes = append(f.notes, n)
	}
	f.mu.Unlock()
	return &n, nil
}

func (f *fakeAPI) UpdateNote(_ context.Context, id string, patch models.NotePatch) (*models.Note, error) {
	_, now, err := f.enter("UpdateNote", id, patch)
	if err != nil {
		return nil, err
	}
	return &models.Note{ID: id, Title: *patch.Title, Body: *patch.Body, Category: *patch.Category, UpdatedAt: now}, nil
}

func (f *fakeAPI) DeleteNote(_ context.Context, id string) error {
	_, _, err := f.enter("DeleteNote", id, nil)
	return err
}

func (f *fakeAPI) ListPlans(_ context.Context) ([]models.Plan, error) {
	_, _, err := f.enter("ListPlans", "", nil)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Plan(nil), f.plans...), nil
}

func (f *fakeAPI) CreatePlan(_ context.Context, in models.PlanInput) (*models.Plan, error) {
	id, now, err := f.enter("CreatePlan", "", in)
	if err != nil {
		return nil, err
	}
	return &models.Plan{ID: id, Title: in.Title, CreatedAt: now, UpdatedAt: now, Tasks: []models.Todo{}}, nil
}

func (f *fakeAPI) UpdatePlan(_ context.Context, id string, patch models.PlanPatch) (*models.Plan, error) {
	_, now, err := f.enter("UpdatePlan", id, patch)
	if err != nil {
		return nil, err
	}
	return &models.Plan{ID: id, Title: *patch.Title, UpdatedAt: now}, nil
}

func (f *fakeAPI) DeletePlan(_ context.Context, id string) (int64, error) {
	_, _, err := f.enter("DeletePlan", id, nil)
	return 0, err
}

func (f *fakeAPI) CreateTodo(_ context.Context, in models.TodoInput) (*models.Todo, error) {
	id, now, err := f.enter("CreateTodo", "", in)
	if err != nil {
		return nil, err
	}
	return &models.Todo{ID: id, PlanID: in.PlanID, Title: in.Title, CreatedAt: now, UpdatedAt: now}, nil
}

func (f *fakeAPI) UpdateTodo(_ context.Context, id string, patch models.TodoPatch) (*models.Todo, error) {
	_, now, err := f.enter("UpdateTodo", id, patch)
	if err != nil {
		return nil, err
	}
	return &models.Todo{ID: id, Title: *patch.Title, IsCompleted: *patch.IsCompleted, UpdatedAt: now}, nil
}

func (f *fakeAPI) DeleteTodo(_ context.Context, id string) error {
	_, _, err := f.enter("DeleteTodo", id, nil)
	return err
}

// stepClock returns a clock advancing one minute per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}
}
