package http

import (
	"net/http"

	"github.com/atinyakov/StudyDesk/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups the API handlers mounted by NewRouter.
type Handlers struct {
	Notes *NoteHandler
	Plans *PlanHandler
	Todos *TodoHandler
	Users *UserHandler
}

// NewRouter constructs and returns an HTTP handler that serves
// the StudyDesk API.
//
// Routes:
//
//	GET  /healthz                        → Health (public)
//	GET  /api/me                         → Users.Me
//	GET|POST /api/notes                  → Notes.List, Notes.Create
//	GET|PUT|PATCH|DELETE /api/notes/{id} → Notes.Get, Notes.Update, Notes.Delete
//	GET|POST /api/plans                  → Plans.List, Plans.Create
//	GET|PUT|DELETE /api/plans/{id}       → Plans.Get, Plans.Update, Plans.Delete
//	GET|POST /api/todos                  → Todos.List, Todos.Create
//	GET|PUT|PATCH|DELETE /api/todos/{id} → Todos.Get, Todos.Update, Todos.Delete
//
// Middleware chain (applied in order):
//  1. RequestID and WithRequestLogging(logger)
//  2. Recoverer
//  3. AllowContentType("application/json") for requests with a body
//  4. Authenticate(jwtSecret) and EnsureUser(users) on /api
func NewRouter(
	h Handlers,
	users middleware.UserEnsurer,
	jwtSecret []byte,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.AllowContentType("application/json"))

	r.Get("/healthz", Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.EnsureUser(users, logger))

		r.Get("/me", h.Users.Me)

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", h.Notes.List)
			r.Post("/", h.Notes.Create)
			r.Get("/{id}", h.Notes.Get)
			r.Put("/{id}", h.Notes.Update)
			r.Patch("/{id}", h.Notes.Update)
			r.Delete("/{id}", h.Notes.Delete)
		})

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", h.Plans.List)
			r.Post("/", h.Plans.Create)
			r.Get("/{id}", h.Plans.Get)
			r.Put("/{id}", h.Plans.Update)
			r.Delete("/{id}", h.Plans.Delete)
		})

		r.Route("/todos", func(r chi.Router) {
			r.Get("/", h.Todos.List)
			r.Post("/", h.Todos.Create)
			r.Get("/{id}", h.Todos.Get)
			r.Put("/{id}", h.Todos.Update)
			r.Patch("/{id}", h.Todos.Update)
			r.Delete("/{id}", h.Todos.Delete)
		})
	})

	return r
}
