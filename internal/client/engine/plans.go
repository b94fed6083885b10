package engine

import (
	"context"
	"strings"
	"time"

	"github.com/atinyakov/StudyDesk/internal/client/api"
	"github.com/atinyakov/StudyDesk/internal/models"
	"go.uber.org/zap"
)

// PlanAPI is the subset of the API client the Plans engine uses.
type PlanAPI interface {
	ListPlans(ctx context.Context) ([]models.Plan, error)
	CreatePlan(ctx context.Context, in models.PlanInput) (*models.Plan, error)
	UpdatePlan(ctx context.Context, id string, patch models.PlanPatch) (*models.Plan, error)
	DeletePlan(ctx context.Context, id string) (int64, error)
	CreateTodo(ctx context.Context, in models.TodoInput) (*models.Todo, error)
	UpdateTodo(ctx context.Context, id string, patch models.TodoPatch) (*models.Todo, error)
	DeleteTodo(ctx context.Context, id string) error
}

// Plan is a snapshot of one plan and its visible tasks.
type Plan struct {
	ID        ID
	Title     string
	CreatedAt time.Time
	State     State
	Err       error
	Tasks     []Task
}

// Task is a snapshot of one task.
type Task struct {
	ID     ID
	PlanID ID
	Title  string
	Done   bool
	State  State
	Err    error
	// Queued tasks wait for their plan's create to be acknowledged.
	Queued bool
}

type planItem struct {
	entry
	title     string
	createdAt time.Time
	tasks     []*taskItem
}

type taskItem struct {
	entry
	plan  *planItem
	title string
	done  bool
}

func (t *taskItem) queued() bool {
	return t.id.IsLocal() && t.plan.id.IsLocal()
}

func (t *taskItem) snapshot() Task {
	return Task{
		ID:     t.id,
		PlanID: t.plan.id,
		Title:  t.title,
		Done:   t.done,
		State:  t.state,
		Err:    t.err,
		Queued: t.queued(),
	}
}

func (p *planItem) snapshot() Plan {
	out := Plan{
		ID:        p.id,
		Title:     p.title,
		CreatedAt: p.createdAt,
		State:     p.state,
		Err:       p.err,
		Tasks:     make([]Task, 0, len(p.tasks)),
	}
	for _, t := range p.tasks {
		if !t.gone() {
			out.Tasks = append(out.Tasks, t.snapshot())
		}
	}
	return out
}

// Plans is the working set of the caller's plans and their tasks.
type Plans struct {
	core
	api PlanAPI

	plans map[ID]*planItem
	tasks map[ID]*taskItem
	order []*planItem
}

// NewPlans returns an empty Plans engine backed by a.
func NewPlans(a PlanAPI, opts ...Option) *Plans {
	return &Plans{
		core:  core{cfg: newConfig(opts)},
		api:   a,
		plans: map[ID]*planItem{},
		tasks: map[ID]*taskItem{},
	}
}

// Load replaces the working set with the server's plans once writes in
// flight have finished.
func (e *Plans) Load(ctx context.Context) error {
	e.Wait()
	plans, err := e.api.ListPlans(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range e.order {
		p.debounce.Cancel()
		p.state = Removed
		p.detached = true
		for _, t := range p.tasks {
			t.debounce.Cancel()
			t.state = Removed
			t.detached = true
		}
	}
	e.plans = make(map[ID]*planItem, len(plans))
	e.tasks = map[ID]*taskItem{}
	e.order = make([]*planItem, 0, len(plans))
	for _, pl := range plans {
		p := &planItem{
			entry:     newEntry(PersistedID(pl.ID), Saved, e.cfg),
			title:     pl.Title,
			createdAt: pl.CreatedAt,
		}
		for _, td := range pl.Tasks {
			t := &taskItem{
				entry: newEntry(PersistedID(td.ID), Saved, e.cfg),
				plan:  p,
				title: td.Title,
				done:  td.IsCompleted,
			}
			p.tasks = append(p.tasks, t)
			e.tasks[t.id] = t
		}
		e.plans[p.id] = p
		e.order = append(e.order, p)
	}
	return nil
}

// AddPlan adds a plan and saves it at once.
func (e *Plans) AddPlan(title string) (ID, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return ID{}, ErrTitleRequired
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p := &planItem{
		entry:     newEntry(NewLocalID(), LocalNew, e.cfg),
		title:     title,
		createdAt: e.cfg.now(),
	}
	e.plans[p.id] = p
	e.order = append(e.order, p)
	e.sendPlanLocked(p)
	return p.id, nil
}

// RenamePlan changes a plan's title; the save is debounced.
func (e *Plans) RenamePlan(id ID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.plans[id]
	if !ok || p.gone() {
		return ErrUnknownItem
	}
	p.title = title
	p.touch()
	p.debounce.Trigger(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.sendPlanLocked(p)
	})
	return nil
}

func (e *Plans) sendPlanLocked(p *planItem) {
	if p.gone() || p.inFlight || !p.dirty() {
		return
	}
	p.inFlight = true
	p.err = nil
	sent := p.gen
	ctx := e.cfg.ctx
	title := p.title

	if p.id.IsLocal() {
		e.spawn(func() {
			pl, err := e.api.CreatePlan(ctx, models.PlanInput{Title: title})
			e.mu.Lock()
			defer e.mu.Unlock()
			e.planCreatedLocked(p, sent, pl, err)
		})
		return
	}

	id := p.id.String()
	e.spawn(func() {
		_, err := e.api.UpdatePlan(ctx, id, models.PlanPatch{Title: &title})
		e.mu.Lock()
		defer e.mu.Unlock()
		e.planUpdatedLocked(p, sent, err)
	})
}

func (e *Plans) planCreatedLocked(p *planItem, sent uint64, pl *models.Plan, err error) {
	p.inFlight = false
	if err != nil {
		if !p.gone() {
			e.failLocked(&p.entry, "create plan", err)
		}
		return
	}
	if p.gone() {
		if !p.detached {
			e.cleanupPlan(pl.ID)
		}
		return
	}

	old := p.id
	p.id = PersistedID(pl.ID)
	delete(e.plans, old)
	e.plans[p.id] = p
	p.createdAt = pl.CreatedAt

	e.acked = true
	p.settle(sent)
	if p.dirty() && !p.debounce.Pending() {
		e.sendPlanLocked(p)
	}
	// Tasks added while the plan was local can be sent now.
	for _, t := range p.tasks {
		e.sendTaskLocked(t)
	}
}

func (e *Plans) planUpdatedLocked(p *planItem, sent uint64, err error) {
	p.inFlight = false
	if p.gone() {
		return
	}
	if err != nil {
		e.failLocked(&p.entry, "update plan", err)
		return
	}
	e.acked = true
	p.settle(sent)
	if p.dirty() && !p.debounce.Pending() {
		e.sendPlanLocked(p)
	}
}

// DeletePlan removes a plan together with its tasks. A plan the server has
// never acknowledged is removed without a network call.
func (e *Plans) DeletePlan(id ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.plans[id]
	if !ok || p.gone() {
		return ErrUnknownItem
	}
	p.debounce.Cancel()
	for _, t := range p.tasks {
		t.debounce.Cancel()
	}

	if p.id.IsLocal() {
		p.state = Removed
		for _, t := range p.tasks {
			t.state = Removed
		}
		e.unlinkPlanLocked(p)
		return nil
	}

	p.state = Deleting
	for _, t := range p.tasks {
		if !t.gone() {
			t.state = Deleting
		}
	}
	serverID := p.id.String()
	ctx := e.cfg.ctx
	e.spawn(func() {
		n, err := e.api.DeletePlan(ctx, serverID)
		e.mu.Lock()
		defer e.mu.Unlock()
		e.planDeletedLocked(p, n, err)
	})
	return nil
}

func (e *Plans) planDeletedLocked(p *planItem, deletedTasks int64, err error) {
	if p.detached {
		return
	}
	if err != nil && !api.IsNotFound(err) {
		restore(&p.entry)
		e.failLocked(&p.entry, "delete plan", err)
		for _, t := range p.tasks {
			switch t.state {
			case Deleting:
				restore(&t.entry)
				e.sendTaskLocked(t)
			case Removed:
				if e.tasks[t.id] == t {
					delete(e.tasks, t.id)
				}
			}
		}
		p.tasks = visible(p.tasks)
		return
	}
	e.cfg.logger.Debug("plan deleted", zap.String("id", p.id.String()), zap.Int64("deletedTasks", deletedTasks))
	p.state = Removed
	for _, t := range p.tasks {
		t.state = Removed
	}
	e.acked = true
	e.unlinkPlanLocked(p)
}

func (e *Plans) unlinkPlanLocked(p *planItem) {
	if e.plans[p.id] == p {
		delete(e.plans, p.id)
	}
	for _, t := range p.tasks {
		if e.tasks[t.id] == t {
			delete(e.tasks, t.id)
		}
	}
	for i, o := range e.order {
		if o == p {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// AddTask appends a task to a plan. If the plan is still local the task is
// queued and sent once the plan's id is known.
func (e *Plans) AddTask(planID ID, title string) (ID, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return ID{}, ErrTitleRequired
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.plans[planID]
	if !ok || p.gone() {
		return ID{}, ErrUnknownItem
	}
	t := &taskItem{
		entry: newEntry(NewLocalID(), LocalNew, e.cfg),
		plan:  p,
		title: title,
	}
	p.tasks = append(p.tasks, t)
	e.tasks[t.id] = t
	e.sendTaskLocked(t)
	return t.id, nil
}

// RenameTask changes a task's title; the save is debounced.
func (e *Plans) RenameTask(id ID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tasks[id]
	if !ok || t.gone() {
		return ErrUnknownItem
	}
	t.title = title
	t.touch()
	t.debounce.Trigger(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.sendTaskLocked(t)
	})
	return nil
}

// ToggleTask flips a task's completion flag and saves it at once, along with
// any debounced title edit.
func (e *Plans) ToggleTask(id ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tasks[id]
	if !ok || t.gone() {
		return ErrUnknownItem
	}
	t.done = !t.done
	t.touch()
	t.debounce.Cancel()
	e.sendTaskLocked(t)
	return nil
}

func (e *Plans) sendTaskLocked(t *taskItem) {
	if t.gone() || t.inFlight || !t.dirty() || t.queued() {
		return
	}
	t.inFlight = true
	t.err = nil
	sent := t.gen
	ctx := e.cfg.ctx
	title, done := t.title, t.done

	if t.id.IsLocal() {
		planID := t.plan.id.String()
		in := models.TodoInput{PlanID: &planID, Title: title}
		e.spawn(func() {
			td, err := e.api.CreateTodo(ctx, in)
			e.mu.Lock()
			defer e.mu.Unlock()
			e.taskCreatedLocked(t, sent, td, err)
		})
		return
	}

	id := t.id.String()
	patch := models.TodoPatch{Title: &title, IsCompleted: &done}
	e.spawn(func() {
		_, err := e.api.UpdateTodo(ctx, id, patch)
		e.mu.Lock()
		defer e.mu.Unlock()
		e.taskUpdatedLocked(t, sent, err)
	})
}

func (e *Plans) taskCreatedLocked(t *taskItem, sent uint64, td *models.Todo, err error) {
	t.inFlight = false
	if err != nil {
		if !t.gone() {
			e.failLocked(&t.entry, "create task", err)
		}
		return
	}
	if t.gone() {
		if !t.detached {
			// A pending plan delete could still fail and restore this task.
			t.state = Removed
			e.cleanupTask(td.ID)
		}
		return
	}

	old := t.id
	t.id = PersistedID(td.ID)
	delete(e.tasks, old)
	e.tasks[t.id] = t

	e.acked = true
	t.settle(sent)
	// The create request carries no completion flag.
	if td.IsCompleted != t.done && t.gen == t.sentGen {
		t.gen++
		t.state = PendingSave
	}
	if t.dirty() && !t.debounce.Pending() {
		e.sendTaskLocked(t)
	}
}

func (e *Plans) taskUpdatedLocked(t *taskItem, sent uint64, err error) {
	t.inFlight = false
	if t.gone() {
		return
	}
	if err != nil {
		e.failLocked(&t.entry, "update task", err)
		return
	}
	e.acked = true
	t.settle(sent)
	if t.dirty() && !t.debounce.Pending() {
		e.sendTaskLocked(t)
	}
}

// DeleteTask removes a task. Tasks the server has never acknowledged are
// removed without a network call.
func (e *Plans) DeleteTask(id ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tasks[id]
	if !ok || t.gone() {
		return ErrUnknownItem
	}
	t.debounce.Cancel()

	if t.id.IsLocal() {
		t.state = Removed
		e.unlinkTaskLocked(t)
		return nil
	}

	t.state = Deleting
	serverID := t.id.String()
	ctx := e.cfg.ctx
	e.spawn(func() {
		err := e.api.DeleteTodo(ctx, serverID)
		e.mu.Lock()
		defer e.mu.Unlock()
		e.taskDeletedLocked(t, err)
	})
	return nil
}

func (e *Plans) taskDeletedLocked(t *taskItem, err error) {
	if t.detached || t.state == Removed {
		return
	}
	if err != nil && !api.IsNotFound(err) {
		if t.plan.gone() {
			// The pending plan delete decides.
			return
		}
		restore(&t.entry)
		e.failLocked(&t.entry, "delete task", err)
		return
	}
	t.state = Removed
	e.acked = true
	e.unlinkTaskLocked(t)
}

func (e *Plans) unlinkTaskLocked(t *taskItem) {
	if e.tasks[t.id] == t {
		delete(e.tasks, t.id)
	}
	p := t.plan
	for i, o := range p.tasks {
		if o == t {
			p.tasks = append(p.tasks[:i], p.tasks[i+1:]...)
			break
		}
	}
}

func (e *Plans) failLocked(it *entry, op string, err error) {
	it.err = err
	e.cfg.logger.Warn(op+" failed", zap.String("id", it.id.String()), zap.Error(err))
}

func (e *Plans) cleanupPlan(serverID string) {
	ctx := e.cfg.ctx
	e.spawn(func() {
		if _, err := e.api.DeletePlan(ctx, serverID); err != nil && !api.IsNotFound(err) {
			e.cfg.logger.Warn("delete orphan plan failed", zap.String("id", serverID), zap.Error(err))
		}
	})
}

func (e *Plans) cleanupTask(serverID string) {
	ctx := e.cfg.ctx
	e.spawn(func() {
		if err := e.api.DeleteTodo(ctx, serverID); err != nil && !api.IsNotFound(err) {
			e.cfg.logger.Warn("delete orphan task failed", zap.String("id", serverID), zap.Error(err))
		}
	})
}

// Get returns the plan with id.
func (e *Plans) Get(id ID) (Plan, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.plans[id]
	if !ok || p.gone() {
		return Plan{}, false
	}
	return p.snapshot(), true
}

// Task returns the task with id.
func (e *Plans) Task(id ID) (Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tasks[id]
	if !ok || t.gone() {
		return Task{}, false
	}
	return t.snapshot(), true
}

// Plans returns the visible plans in insertion order, each with its tasks
// in insertion order.
func (e *Plans) Plans() []Plan {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Plan, 0, len(e.order))
	for _, p := range e.order {
		if !p.gone() {
			out = append(out, p.snapshot())
		}
	}
	return out
}

// Retry resends every plan and task whose last write failed.
func (e *Plans) Retry() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.order {
		if p.gone() {
			continue
		}
		if p.err != nil {
			p.err = nil
			p.debounce.Cancel()
			e.sendPlanLocked(p)
		}
		for _, t := range p.tasks {
			if t.err == nil || t.gone() {
				continue
			}
			t.err = nil
			t.debounce.Cancel()
			e.sendTaskLocked(t)
		}
	}
}

// Flush sends all debounced edits now.
func (e *Plans) Flush() {
	e.mu.Lock()
	var pending []*Debouncer
	for _, p := range e.order {
		pending = append(pending, p.debounce)
		for _, t := range p.tasks {
			pending = append(pending, t.debounce)
		}
	}
	e.mu.Unlock()

	for _, d := range pending {
		d.Flush()
	}
}

// Status summarises the persistence state of the working set.
func (e *Plans) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	var entries []*entry
	for _, p := range e.order {
		entries = append(entries, &p.entry)
		for _, t := range p.tasks {
			entries = append(entries, &t.entry)
		}
	}
	return statusOf(e.acked, entries)
}

func visible(tasks []*taskItem) []*taskItem {
	out := tasks[:0]
	for _, t := range tasks {
		if t.state != Removed {
			out = append(out, t)
		}
	}
	return out
}
