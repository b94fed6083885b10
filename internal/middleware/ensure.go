package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/StudyDesk/internal/models"
	"go.uber.org/zap"
)

// UserEnsurer registers a user on first sight.
type UserEnsurer interface {
	Ensure(ctx context.Context, u models.User) error
}

// EnsureUser makes sure the authenticated caller has a users row before any
// owned entity is written. It must run after Authenticate.
func EnsureUser(users UserEnsurer, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				writeUnauthorized(w)
				return
			}
			u := models.User{ID: id.ID, DisplayName: id.Name, Email: id.Email}
			if err := users.Ensure(r.Context(), u); err != nil {
				logger.Error("ensure user", zap.String("user", id.ID), zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
