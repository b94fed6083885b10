package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/atinyakov/StudyDesk/internal/middleware"
	"github.com/atinyakov/StudyDesk/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TodoService defines the todo operations required by the TodoHandler.
type TodoService interface {
	List(ctx context.Context, userID string, filter models.TodoFilter) ([]models.Todo, error)
	Get(ctx context.Context, userID, id string) (*models.Todo, error)
	Create(ctx context.Context, userID string, in models.TodoInput) (*models.Todo, error)
	Update(ctx context.Context, userID, id string, patch models.TodoPatch) (*models.Todo, error)
	Delete(ctx context.Context, userID, id string) error
}

// TodoHandler serves /api/todos.
type TodoHandler struct {
	TodoService TodoService
	Logger      *zap.Logger
}

// List handles GET /api/todos?planId=&standalone=true.
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter models.TodoFilter
	if planID := q.Get("planId"); planID != "" {
		filter.PlanID = &planID
	}
	if s := q.Get("standalone"); s != "" {
		standalone, err := strconv.ParseBool(s)
		if err != nil {
			writeBadRequest(w, "standalone must be true or false")
			return
		}
		filter.Standalone = standalone
	}

	todos, err := h.TodoService.List(r.Context(), middleware.GetUserIDFromContext(r.Context()), filter)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

// Get handles GET /api/todos/{id}.
func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.TodoService.Get(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Create handles POST /api/todos.
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.TodoInput
	if err := decodeBody(r, &in); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	t, err := h.TodoService.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Update handles PUT and PATCH /api/todos/{id}.
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.TodoPatch
	if err := decodeBody(r, &patch); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	t, err := h.TodoService.Update(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /api/todos/{id}.
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.TodoService.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeSuccess(w, nil)
}
