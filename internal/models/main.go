// Package models defines the core data structures for users, notes, plans
// and todos, together with the request shapes accepted for each of them.
package models

import "time"

// User represents an account known to the identity provider.
type User struct {
	// ID is the identity-provider subject.
	ID string `json:"id"`
	// DisplayName is the name shown in the client.
	DisplayName string `json:"displayName"`
	// Email is the contact address reported by the identity provider.
	Email string `json:"email"`
	// Points and Level are cosmetic progress counters.
	Points    int       `json:"points"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Note is a markdown note owned by a single user.
type Note struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// Version is the optimistic concurrency counter.
	Version int64 `json:"-"`
}

// Owner returns the id of the owning user.
func (n *Note) Owner() string { return n.OwnerID }

// Plan groups todos under a title.
type Plan struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int64     `json:"-"`
	// Tasks holds the plan's todos in creation order.
	Tasks []Todo `json:"tasks"`
}

// Owner returns the id of the owning user.
func (p *Plan) Owner() string { return p.OwnerID }

// Todo is a single task, either standalone or attached to a plan.
type Todo struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"-"`
	PlanID      *string    `json:"planId,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Version     int64      `json:"-"`
}

// Owner returns the id of the owning user.
func (t *Todo) Owner() string { return t.OwnerID }

// NoteInput is the create request for a note. It has no id or owner field,
// so neither can be supplied by a client.
type NoteInput struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
}

// NotePatch lists the note fields a client may change. Nil means "keep".
type NotePatch struct {
	Title    *string `json:"title,omitempty"`
	Body     *string `json:"body,omitempty"`
	Category *string `json:"category,omitempty"`
}

// PlanInput is the create request for a plan.
type PlanInput struct {
	Title string `json:"title"`
}

// PlanPatch lists the plan fields a client may change.
type PlanPatch struct {
	Title *string `json:"title,omitempty"`
}

// TodoInput is the create request for a todo.
type TodoInput struct {
	PlanID      *string    `json:"planId,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// TodoPatch lists the todo fields a client may change. The plan link is
// fixed at creation. ClearDueDate removes the due date and cannot be
// combined with DueDate.
type TodoPatch struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Category     *string    `json:"category,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	ClearDueDate bool       `json:"clearDueDate,omitempty"`
	IsCompleted  *bool      `json:"isCompleted,omitempty"`
}

// NoteSort selects the ordering of a note listing.
type NoteSort string

const (
	// SortUpdated orders by most recently updated first.
	SortUpdated NoteSort = "updated"
	// SortCreated orders by most recently created first.
	SortCreated NoteSort = "created"
	// SortTitle orders alphabetically by title.
	SortTitle NoteSort = "title"
)

// TodoFilter narrows a todo listing.
type TodoFilter struct {
	// PlanID restricts the listing to one plan.
	PlanID *string
	// Standalone restricts the listing to todos without a plan.
	Standalone bool
}

// DefaultNoteTitle is shown for notes saved without a title.
const DefaultNoteTitle = "Untitled"
