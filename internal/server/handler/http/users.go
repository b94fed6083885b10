package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/StudyDesk/internal/middleware"
	"github.com/atinyakov/StudyDesk/internal/models"
	"go.uber.org/zap"
)

// UserService defines the profile lookup required by the UserHandler.
type UserService interface {
	Profile(ctx context.Context, userID string) (*models.User, error)
}

// UserHandler serves the caller's profile.
type UserHandler struct {
	UserService UserService
	Logger      *zap.Logger
}

// Me handles GET /api/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.UserService.Profile(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Health handles GET /healthz.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
