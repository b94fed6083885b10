package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/StudyDesk/internal/middleware"
	"github.com/atinyakov/StudyDesk/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PlanService defines the plan operations required by the PlanHandler.
type PlanService interface {
	List(ctx context.Context, userID string) ([]models.Plan, error)
	Get(ctx context.Context, userID, id string) (*models.Plan, error)
	Create(ctx context.Context, userID string, in models.PlanInput) (*models.Plan, error)
	Update(ctx context.Context, userID, id string, patch models.PlanPatch) (*models.Plan, error)
	Delete(ctx context.Context, userID, id string) (int64, error)
}

// PlanHandler serves /api/plans.
type PlanHandler struct {
	PlanService PlanService
	Logger      *zap.Logger
}

// List handles GET /api/plans. Each plan carries its tasks.
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.PlanService.List(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// Get handles GET /api/plans/{id}.
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.PlanService.Get(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Create handles POST /api/plans.
func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.PlanInput
	if err := decodeBody(r, &in); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	p, err := h.PlanService.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Update handles PUT /api/plans/{id}.
func (h *PlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.PlanPatch
	if err := decodeBody(r, &patch); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	p, err := h.PlanService.Update(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/plans/{id}, removing the plan's tasks with it.
func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	removed, err := h.PlanService.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeSuccess(w, map[string]any{"deletedTasks": removed})
}
