// Package engine keeps the client's in-memory working set of notes, plans
// and tasks. Mutations apply locally at once; persistence follows through the
// API, debounced per item for text edits, and server acknowledgements are
// reconciled back into the working set.
//
// All state is guarded by one mutex. Network calls run on their own
// goroutines and re-enter through that mutex, so callbacks observe the
// working set exactly as the last local mutation left it.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDelay is the quiet interval after which a text edit is saved.
const DefaultDelay = 400 * time.Millisecond

var (
	// ErrUnknownItem is returned for ids that are not (or no longer) in the
	// working set.
	ErrUnknownItem = errors.New("unknown item")
	// ErrTitleRequired is returned for blank plan and task titles.
	ErrTitleRequired = errors.New("Title is required")
)

// State is the persistence state of one item.
type State int

const (
	// LocalNew items exist only locally; their create has not been acknowledged.
	LocalNew State = iota
	// PendingSave items have local edits the server has not acknowledged.
	PendingSave
	// Saved items match the server.
	Saved
	// Deleting items have a delete in flight and are hidden.
	Deleting
	// Removed items are gone and only referenced by late callbacks.
	Removed
)

func (s State) String() string {
	switch s {
	case LocalNew:
		return "new"
	case PendingSave:
		return "pending"
	case Saved:
		return "saved"
	case Deleting:
		return "deleting"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Status summarises the working set for an indicator.
type Status int

const (
	StatusIdle Status = iota
	StatusSaving
	StatusSaved
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSaving:
		return "Saving…"
	case StatusSaved:
		return "Saved"
	case StatusError:
		return "Error"
	}
	return ""
}

// Option configures an engine.
type Option func(*config)

type config struct {
	ctx    context.Context
	delay  time.Duration
	sched  Scheduler
	logger *zap.Logger
	now    func() time.Time
}

// WithDelay sets the debounce interval for text edits.
func WithDelay(d time.Duration) Option {
	return func(c *config) { c.delay = d }
}

// WithScheduler replaces the real-time scheduler used by debouncers.
func WithScheduler(s Scheduler) Option {
	return func(c *config) { c.sched = s }
}

// WithLogger sets the logger for failed network calls.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithClock replaces time.Now for local timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithContext sets the context network calls run under.
func WithContext(ctx context.Context) Option {
	return func(c *config) { c.ctx = ctx }
}

func newConfig(opts []Option) config {
	c := config{
		ctx:    context.Background(),
		delay:  DefaultDelay,
		sched:  realScheduler{},
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// core is shared by the note and plan engines.
type core struct {
	cfg config

	mu sync.Mutex
	wg sync.WaitGroup
	// acked is set once any write has been acknowledged.
	acked bool
}

// spawn runs fn on a tracked goroutine.
func (c *core) spawn(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// Wait blocks until every network call started so far, and every call those
// calls chain into, has finished.
func (c *core) Wait() {
	c.wg.Wait()
}

// entry is the bookkeeping common to every editable item.
type entry struct {
	id    ID
	state State
	// gen counts local edits; sentGen is the edit last acknowledged.
	gen, sentGen uint64
	inFlight     bool
	err          error
	debounce     *Debouncer
	// detached items were dropped by a reload; late callbacks ignore them.
	detached bool
}

func newEntry(id ID, state State, cfg config) entry {
	return entry{id: id, state: state, debounce: NewDebouncer(cfg.delay, cfg.sched)}
}

// gone reports whether the item has been deleted locally.
func (e *entry) gone() bool {
	return e.state == Deleting || e.state == Removed
}

// touch records a local edit.
func (e *entry) touch() {
	e.gen++
	if e.state == Saved {
		e.state = PendingSave
	}
}

// dirty reports whether the item has something the server has not seen.
func (e *entry) dirty() bool {
	return e.id.IsLocal() || e.gen > e.sentGen
}

// settle records a successful write of generation sent.
func (e *entry) settle(sent uint64) {
	e.inFlight = false
	e.err = nil
	if sent > e.sentGen {
		e.sentGen = sent
	}
	if e.gen > e.sentGen {
		e.state = PendingSave
	} else {
		e.state = Saved
	}
}

// restore undoes a failed delete.
func restore(e *entry) {
	switch {
	case e.id.IsLocal():
		e.state = LocalNew
	case e.gen > e.sentGen:
		e.state = PendingSave
	default:
		e.state = Saved
	}
}

// statusOf folds entries into one Status.
func statusOf(acked bool, entries []*entry) Status {
	saving := false
	for _, e := range entries {
		if e.err != nil {
			return StatusError
		}
		if e.inFlight || e.dirty() || e.state == Deleting {
			saving = true
		}
	}
	switch {
	case saving:
		return StatusSaving
	case acked:
		return StatusSaved
	}
	return StatusIdle
}
