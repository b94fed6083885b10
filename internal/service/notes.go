package service

import (
	"context"

	"github.com/atinyakov/StudyDesk/internal/apperr"
	"github.com/atinyakov/StudyDesk/internal/models"
)

// NoteRepository defines the persistence operations needed by the NoteService.
type NoteRepository interface {
	// ListNotes returns the notes owned by ownerID in the requested order.
	ListNotes(ctx context.Context, ownerID string, sort models.NoteSort) ([]models.Note, error)
	// GetNoteByID fetches a note by id without any ownership filter.
	GetNoteByID(ctx context.Context, id string) (*models.Note, error)
	// InsertNote stores a fully populated new note.
	InsertNote(ctx context.Context, n *models.Note) error
	// UpdateNote writes n if the stored version equals expectedVersion.
	UpdateNote(ctx context.Context, n *models.Note, expectedVersion int64) error
	// DeleteNote removes the note id owned by ownerID.
	DeleteNote(ctx context.Context, ownerID, id string) error
}

// NoteService implements owner-scoped note operations.
type NoteService struct {
	base
	repo  NoteRepository
	guard Guard[*models.Note]
}

// NewNoteService constructs a NoteService with the provided NoteRepository.
func NewNoteService(repo NoteRepository, opts ...Option) *NoteService {
	return &NoteService{
		base:  newBase(opts),
		repo:  repo,
		guard: NewGuard("Note", repo.GetNoteByID),
	}
}

// List returns the caller's notes. An empty sort key means most recently
// updated first.
func (s *NoteService) List(ctx context.Context, userID string, sort models.NoteSort) ([]models.Note, error) {
	c, err := CallerFrom(userID)
	if err != nil {
		return nil, err
	}
	if sort == "" {
		sort = models.SortUpdated
	}
	return s.repo.ListNotes(ctx, c.ID, sort)
}

// Get returns one note owned by the caller.
func (s *NoteService) Get(ctx context.Context, userID, id string) (*models.Note, error) {
	c, err := CallerFrom(userID)
	if err != nil {
		return nil, err
	}
	return s.guard.Fetch(ctx, c, id)
}

// Create stores a new note for the caller and returns the canonical record.
// The title is optional.
func (s *NoteService) Create(ctx context.Context, userID string, in models.NoteInput) (*models.Note, error) {
	c, err := CallerFrom(userID)
	if err != nil {
		return nil, err
	}

	v := apperr.NewValidationError()
	checkTitle(v, in.Title, false)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	n := &models.Note{
		ID:        s.newID(),
		OwnerID:   c.ID,
		Title:     in.Title,
		Body:      in.Body,
		Category:  in.Category,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := s.repo.InsertNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Update applies the supplied fields to a note owned by the caller.
// Ownership is checked against the stored row, not the request.
func (s *NoteService) Update(ctx context.Context, userID, id string, patch models.NotePatch) (*models.Note, error) {
	c, err := CallerFrom(userID)
	if err != nil {
		return nil, err
	}

	v := apperr.NewValidationError()
	if patch.Title != nil {
		checkTitle(v, *patch.Title, false)
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	n, err := s.guard.Fetch(ctx, c, id)
	if err != nil {
		return nil, err
	}
	expected := n.Version

	if patch.Title != nil {
		n.Title = *patch.Title
	}
	if patch.Body != nil {
		n.Body = *patch.Body
	}
	if patch.Category != nil {
		n.Category = *patch.Category
	}
	n.UpdatedAt = s.now()

	if err := s.repo.UpdateNote(ctx, n, expected); err != nil {
		return nil, s.guard.Settle(ctx, c, id, err)
	}
	return n, nil
}

// Delete removes a note owned by the caller.
func (s *NoteService) Delete(ctx context.Context, userID, id string) error {
	c, err := CallerFrom(userID)
	if err != nil {
		return err
	}
	if _, err := s.guard.Fetch(ctx, c, id); err != nil {
		return err
	}
	return s.guard.Settle(ctx, c, id, s.repo.DeleteNote(ctx, c.ID, id))
}
