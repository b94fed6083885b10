package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/atinyakov/StudyDesk/internal/client/api"
	"github.com/atinyakov/StudyDesk/internal/models"
	"go.uber.org/zap"
)

// NoteAPI is the subset of the API client the Notes engine uses.
type NoteAPI interface {
	ListNotes(ctx context.Context, sort models.NoteSort) ([]models.Note, error)
	CreateNote(ctx context.Context, in models.NoteInput) (*models.Note, error)
	UpdateNote(ctx context.Context, id string, patch models.NotePatch) (*models.Note, error)
	DeleteNote(ctx context.Context, id string) error
}

// Note is a snapshot of one note in the working set.
type Note struct {
	ID        ID
	Title     string
	Body      string
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
	State     State
	// Err is the last failed write, cleared by the next successful one.
	Err error
}

// DisplayTitle is the title to render; blank titles show as "Untitled".
func (n Note) DisplayTitle() string {
	if strings.TrimSpace(n.Title) == "" {
		return models.DefaultNoteTitle
	}
	return n.Title
}

type noteItem struct {
	entry
	title     string
	body      string
	category  string
	createdAt time.Time
	updatedAt time.Time
}

func (it *noteItem) snapshot() Note {
	return Note{
		ID:        it.id,
		Title:     it.title,
		Body:      it.body,
		Category:  it.category,
		CreatedAt: it.createdAt,
		UpdatedAt: it.updatedAt,
		State:     it.state,
		Err:       it.err,
	}
}

// Notes is the working set of the caller's notes with one active selection.
type Notes struct {
	core
	api NoteAPI

	items  map[ID]*noteItem
	order  []*noteItem
	active ID
}

// NewNotes returns an empty Notes engine backed by a.
func NewNotes(a NoteAPI, opts ...Option) *Notes {
	return &Notes{
		core:  core{cfg: newConfig(opts)},
		api:   a,
		items: map[ID]*noteItem{},
	}
}

// Load replaces the working set with the server's notes. Pending local
// edits are discarded. Writes already in flight finish before the listing
// is fetched, so their results are part of it.
func (e *Notes) Load(ctx context.Context) error {
	e.Wait()
	notes, err := e.api.ListNotes(ctx, models.SortUpdated)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, it := range e.order {
		it.debounce.Cancel()
		it.state = Removed
		it.detached = true
	}
	e.items = make(map[ID]*noteItem, len(notes))
	e.order = make([]*noteItem, 0, len(notes))
	e.active = ID{}
	for _, n := range notes {
		it := &noteItem{
			entry:     newEntry(PersistedID(n.ID), Saved, e.cfg),
			title:     n.Title,
			body:      n.Body,
			category:  n.Category,
			createdAt: n.CreatedAt,
			updatedAt: n.UpdatedAt,
		}
		e.items[it.id] = it
		e.order = append(e.order, it)
	}
	return nil
}

// New adds an empty note, selects it and saves it at once to obtain a
// server id. The returned id is Local until that save is acknowledged.
func (e *Notes) New() ID {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.cfg.now()
	it := &noteItem{
		entry:     newEntry(NewLocalID(), LocalNew, e.cfg),
		createdAt: now,
		updatedAt: now,
	}
	e.items[it.id] = it
	e.order = append(e.order, it)
	e.active = it.id
	e.sendLocked(it)
	return it.id
}

// SetTitle changes a note's title; the save is debounced.
func (e *Notes) SetTitle(id ID, title string) error {
	return e.edit(id, func(it *noteItem) { it.title = title })
}

// SetBody changes a note's body; the save is debounced.
func (e *Notes) SetBody(id ID, body string) error {
	return e.edit(id, func(it *noteItem) { it.body = body })
}

// SetCategory changes a note's category; the save is debounced.
func (e *Notes) SetCategory(id ID, category string) error {
	return e.edit(id, func(it *noteItem) { it.category = category })
}

// NoteEdit lists note fields to change; nil keeps the current value.
type NoteEdit struct {
	Title    *string
	Body     *string
	Category *string
}

// EditActive applies edit to the selected note. The selection is resolved
// under the engine lock, so a concurrent id promotion cannot get in between.
func (e *Notes) EditActive(edit NoteEdit) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editLocked(e.active, func(it *noteItem) {
		if edit.Title != nil {
			it.title = *edit.Title
		}
		if edit.Body != nil {
			it.body = *edit.Body
		}
		if edit.Category != nil {
			it.category = *edit.Category
		}
	})
}

func (e *Notes) edit(id ID, apply func(*noteItem)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editLocked(id, apply)
}

func (e *Notes) editLocked(id ID, apply func(*noteItem)) error {
	it, ok := e.items[id]
	if !ok || it.gone() {
		return ErrUnknownItem
	}
	apply(it)
	it.updatedAt = e.cfg.now()
	it.touch()
	it.debounce.Trigger(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.sendLocked(it)
	})
	return nil
}

// sendLocked starts a create or update for it unless one is already in
// flight; in that case the acknowledgement handler sends again.
func (e *Notes) sendLocked(it *noteItem) {
	if it.gone() || it.inFlight || !it.dirty() {
		return
	}
	it.inFlight = true
	it.err = nil
	sent := it.gen
	ctx := e.cfg.ctx

	if it.id.IsLocal() {
		in := models.NoteInput{Title: it.title, Body: it.body, Category: it.category}
		e.spawn(func() {
			n, err := e.api.CreateNote(ctx, in)
			e.mu.Lock()
			defer e.mu.Unlock()
			e.createdLocked(it, sent, n, err)
		})
		return
	}

	id := it.id.String()
	title, body, category := it.title, it.body, it.category
	patch := models.NotePatch{Title: &title, Body: &body, Category: &category}
	e.spawn(func() {
		n, err := e.api.UpdateNote(ctx, id, patch)
		e.mu.Lock()
		defer e.mu.Unlock()
		e.updatedLocked(it, sent, n, err)
	})
}

func (e *Notes) createdLocked(it *noteItem, sent uint64, n *models.Note, err error) {
	it.inFlight = false
	if err != nil {
		if !it.gone() {
			e.failLocked(it, "create note", err)
		}
		return
	}
	if it.gone() {
		// Deleted while the create was in flight: remove the orphan.
		if !it.detached {
			e.cleanup(n.ID)
		}
		return
	}

	old := it.id
	it.id = PersistedID(n.ID)
	delete(e.items, old)
	e.items[it.id] = it
	if e.active == old {
		e.active = it.id
	}

	it.createdAt = n.CreatedAt
	if sent == it.gen {
		it.updatedAt = n.UpdatedAt
	}
	e.acked = true
	it.settle(sent)
	if it.dirty() && !it.debounce.Pending() {
		e.sendLocked(it)
	}
}

func (e *Notes) updatedLocked(it *noteItem, sent uint64, n *models.Note, err error) {
	it.inFlight = false
	if it.gone() {
		return
	}
	if err != nil {
		e.failLocked(it, "update note", err)
		return
	}
	if sent == it.gen {
		it.updatedAt = n.UpdatedAt
	}
	e.acked = true
	it.settle(sent)
	if it.dirty() && !it.debounce.Pending() {
		e.sendLocked(it)
	}
}

func (e *Notes) failLocked(it *noteItem, op string, err error) {
	it.err = err
	e.cfg.logger.Warn(op+" failed", zap.String("id", it.id.String()), zap.Error(err))
}

func (e *Notes) cleanup(serverID string) {
	ctx := e.cfg.ctx
	e.spawn(func() {
		if err := e.api.DeleteNote(ctx, serverID); err != nil && !api.IsNotFound(err) {
			e.cfg.logger.Warn("delete orphan note failed", zap.String("id", serverID), zap.Error(err))
		}
	})
}

// Delete removes a note. Notes the server has never acknowledged are
// removed without a network call.
func (e *Notes) Delete(id ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deleteLocked(id)
}

// DeleteActive deletes the selected note.
func (e *Notes) DeleteActive() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deleteLocked(e.active)
}

func (e *Notes) deleteLocked(id ID) error {
	it, ok := e.items[id]
	if !ok || it.gone() {
		return ErrUnknownItem
	}
	it.debounce.Cancel()
	if e.active == id {
		e.active = ID{}
	}

	if it.id.IsLocal() {
		it.state = Removed
		e.unlinkLocked(it)
		return nil
	}

	it.state = Deleting
	serverID := it.id.String()
	ctx := e.cfg.ctx
	e.spawn(func() {
		err := e.api.DeleteNote(ctx, serverID)
		e.mu.Lock()
		defer e.mu.Unlock()
		e.deletedLocked(it, err)
	})
	return nil
}

func (e *Notes) deletedLocked(it *noteItem, err error) {
	if it.detached {
		return
	}
	if err != nil && !api.IsNotFound(err) {
		restore(&it.entry)
		e.failLocked(it, "delete note", err)
		return
	}
	it.state = Removed
	e.acked = true
	e.unlinkLocked(it)
}

func (e *Notes) unlinkLocked(it *noteItem) {
	if e.items[it.id] == it {
		delete(e.items, it.id)
	}
	for i, o := range e.order {
		if o == it {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Select makes id the active note.
func (e *Notes) Select(id ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	it, ok := e.items[id]
	if !ok || it.gone() {
		return ErrUnknownItem
	}
	e.active = id
	return nil
}

// Active returns the selected note.
func (e *Notes) Active() (Note, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	it, ok := e.items[e.active]
	if !ok || it.gone() {
		return Note{}, false
	}
	return it.snapshot(), true
}

// Get returns the note with id.
func (e *Notes) Get(id ID) (Note, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	it, ok := e.items[id]
	if !ok || it.gone() {
		return Note{}, false
	}
	return it.snapshot(), true
}

// Notes returns the visible notes, most recently updated first.
func (e *Notes) Notes() []Note {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Note, 0, len(e.order))
	for _, it := range e.order {
		if !it.gone() {
			out = append(out, it.snapshot())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Retry resends every note whose last write failed.
func (e *Notes) Retry() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, it := range e.order {
		if it.err == nil || it.gone() {
			continue
		}
		it.err = nil
		it.debounce.Cancel()
		e.sendLocked(it)
	}
}

// Flush sends all debounced edits now.
func (e *Notes) Flush() {
	e.mu.Lock()
	pending := make([]*Debouncer, 0, len(e.order))
	for _, it := range e.order {
		pending = append(pending, it.debounce)
	}
	e.mu.Unlock()

	for _, d := range pending {
		d.Flush()
	}
}

// Status summarises the persistence state of the working set.
func (e *Notes) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	entries := make([]*entry, 0, len(e.order))
	for _, it := range e.order {
		entries = append(entries, &it.entry)
	}
	return statusOf(e.acked, entries)
}
