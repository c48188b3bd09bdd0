package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/norholm/laguz/internal/apperr"
	"github.com/norholm/laguz/internal/collection"
	"github.com/norholm/laguz/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeCommandError maps engine errors onto HTTP statuses: unknown ids are
// 404, an incomplete filter is 422, bad enum values are 400.
func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrInconsistentFilter):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("filter selector missing"))
	default:
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	}
}

// GetState handles GET /api/state.
//
//	@Summary		Get the full engine snapshot
//	@Tags			state
//	@Produce		json
//	@Success		200	{object}	StateResponse
//	@Security		BearerAuth
//	@Router			/state [get]
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Collection().Snapshot())
}

// ListNotes handles GET /api/notes. It returns the derived view, already
// filtered and sorted, plus the canonical collection size.
//
//	@Summary		List notes in the current view order
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Collection().Snapshot()
	writeJSON(w, http.StatusOK, NoteListResponse{
		Notes: snap.View,
		Total: len(snap.Notes),
	})
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Title, req.Body, req.Stacks, req.Label)
	if err != nil {
		slog.Error("create note failed", slog.String("title", req.Title), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, NoteResponse{Note: note, Body: req.Body})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note with its Markdown body
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, body, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, NoteResponse{Note: note, Body: body})
}

// RenameNote handles PATCH /api/notes/{id}/title.
//
//	@Summary		Change a note's title
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		RenameNoteRequest	true	"New title"
//	@Success		200		{object}	NoteResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/title [patch]
func (h *Handler) RenameNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req RenameNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	// The engine tolerates unknown ids in lenient mode; HTTP clients
	// still get a 404 instead of an empty note.
	if _, ok := h.svc.Collection().Snapshot().NoteByID(id); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	note, err := h.svc.RenameNote(r.Context(), id, req.Title)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NoteResponse{Note: note})
}

// SetStacks handles PATCH /api/notes/{id}/stacks.
//
//	@Summary		Replace a note's stack ids
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		SetStacksRequest	true	"Stack ids"
//	@Success		200		{object}	NoteResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/stacks [patch]
func (h *Handler) SetStacks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req SetStacksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if _, ok := h.svc.Collection().Snapshot().NoteByID(id); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	note, err := h.svc.SetStacks(r.Context(), id, req.Stacks)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NoteResponse{Note: note})
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteNote(r.Context(), id); err != nil {
		writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDateFilter handles PUT /api/filter/date.
//
//	@Summary		Restrict the view to one local calendar day
//	@Tags			view
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DateFilterRequest	true	"Day to select"
//	@Success		200		{object}	StateResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/filter/date [put]
func (h *Handler) SetDateFilter(w http.ResponseWriter, r *http.Request) {
	var req DateFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Year == 0 || req.Month < 1 || req.Month > 12 || req.Date < 1 || req.Date > 31 {
		writeJSON(w, http.StatusBadRequest, errorBody("year, month, and date are required"))
		return
	}
	day := time.Date(req.Year, time.Month(req.Month), req.Date, 0, 0, 0, 0, time.Local)
	state, err := h.svc.Collection().SelectDayFilter(day)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// SetMonthFilter handles PUT /api/filter/month.
//
//	@Summary		Restrict the view to one local calendar month
//	@Tags			view
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MonthFilterRequest	true	"Month to select"
//	@Success		200		{object}	StateResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/filter/month [put]
func (h *Handler) SetMonthFilter(w http.ResponseWriter, r *http.Request) {
	var req MonthFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Year == 0 || req.Month < 1 || req.Month > 12 {
		writeJSON(w, http.StatusBadRequest, errorBody("year and month are required"))
		return
	}
	month := time.Date(req.Year, time.Month(req.Month), 1, 0, 0, 0, 0, time.Local)
	state, err := h.svc.Collection().SelectMonthFilter(month)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// SetSort handles PUT /api/sort. Either field may be omitted to leave it
// unchanged.
//
//	@Summary		Change the sort key and/or direction
//	@Tags			view
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SortRequest	true	"Sort configuration"
//	@Success		200		{object}	StateResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sort [put]
func (h *Handler) SetSort(w http.ResponseWriter, r *http.Request) {
	var req SortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.By == "" && req.Direction == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("by or direction is required"))
		return
	}

	st := h.svc.Collection()
	state := st.Snapshot()
	var err error
	if req.By != "" {
		if state, err = st.ChangeSortBy(collection.SortBy(req.By)); err != nil {
			writeCommandError(w, err)
			return
		}
	}
	if req.Direction != "" {
		if state, err = st.ChangeSortDirection(collection.SortDirection(req.Direction)); err != nil {
			writeCommandError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, state)
}

// SetViewMode handles PUT /api/view-mode.
//
//	@Summary		Flip the display mode
//	@Tags			view
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ViewModeRequest	true	"Display mode"
//	@Success		200		{object}	StateResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/view-mode [put]
func (h *Handler) SetViewMode(w http.ResponseWriter, r *http.Request) {
	var req ViewModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	state, err := h.svc.Collection().ChangeViewMode(collection.ViewMode(req.Mode))
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Select handles PUT /api/selection.
//
//	@Summary		Select a note by id
//	@Tags			selection
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SelectRequest	true	"Note to select"
//	@Success		200		{object}	StateResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/selection [put]
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	st := h.svc.Collection()
	note, ok := st.Snapshot().NoteByID(req.ID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, st.Select(note))
}

// Deselect handles DELETE /api/selection.
//
//	@Summary		Clear the selection
//	@Tags			selection
//	@Produce		json
//	@Success		200	{object}	StateResponse
//	@Security		BearerAuth
//	@Router			/selection [delete]
func (h *Handler) Deselect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Collection().Deselect())
}

// GetContribution handles GET /api/contribution.
//
//	@Summary		Get the per-day activity aggregate
//	@Tags			activity
//	@Produce		json
//	@Success		200	{object}	models.Contribution
//	@Security		BearerAuth
//	@Router			/contribution [get]
func (h *Handler) GetContribution(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Contribution(r.Context())
	if err != nil {
		slog.Error("contribution failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, c)
}
