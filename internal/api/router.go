package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/norholm/laguz/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Full engine snapshot.
	r.Get("/state", h.GetState)

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Patch("/notes/{id}/title", h.RenameNote)
	r.Patch("/notes/{id}/stacks", h.SetStacks)
	r.Delete("/notes/{id}", h.DeleteNote)

	// View configuration.
	r.Put("/filter/date", h.SetDateFilter)
	r.Put("/filter/month", h.SetMonthFilter)
	r.Put("/sort", h.SetSort)
	r.Put("/view-mode", h.SetViewMode)

	// Selection.
	r.Put("/selection", h.Select)
	r.Delete("/selection", h.Deselect)

	// Activity aggregate.
	r.Get("/contribution", h.GetContribution)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
