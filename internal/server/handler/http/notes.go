// Package http provides the JSON handlers and router of the StudyDesk API.
package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/StudyDesk/internal/apperr"
	"github.com/atinyakov/StudyDesk/internal/middleware"
	"github.com/atinyakov/StudyDesk/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NoteService defines the note operations required by the NoteHandler.
type NoteService interface {
	List(ctx context.Context, userID string, sort models.NoteSort) ([]models.Note, error)
	Get(ctx context.Context, userID, id string) (*models.Note, error)
	Create(ctx context.Context, userID string, in models.NoteInput) (*models.Note, error)
	Update(ctx context.Context, userID, id string, patch models.NotePatch) (*models.Note, error)
	Delete(ctx context.Context, userID, id string) error
}

// NoteHandler serves /api/notes.
type NoteHandler struct {
	NoteService NoteService
	Logger      *zap.Logger
}

// List handles GET /api/notes?sort=updated|created|title.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	sort := models.NoteSort(r.URL.Query().Get("sort"))
	switch sort {
	case "", models.SortUpdated, models.SortCreated, models.SortTitle:
	default:
		v := apperr.NewValidationError()
		v.Add("sort", "Sort must be one of updated, created, title")
		writeError(w, r, h.Logger, v)
		return
	}

	notes, err := h.NoteService.List(r.Context(), middleware.GetUserIDFromContext(r.Context()), sort)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// Get handles GET /api/notes/{id}.
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, err := h.NoteService.Get(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Create handles POST /api/notes.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.NoteInput
	if err := decodeBody(r, &in); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	n, err := h.NoteService.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// Update handles PUT and PATCH /api/notes/{id}. Absent fields keep their
// stored value.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.NotePatch
	if err := decodeBody(r, &patch); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	n, err := h.NoteService.Update(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Delete handles DELETE /api/notes/{id}.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.NoteService.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeSuccess(w, nil)
}
