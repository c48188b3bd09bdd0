package api

import (
	"github.com/norholm/laguz/internal/collection"
	"github.com/norholm/laguz/internal/models"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title  string   `json:"title" example:"Meeting notes" validate:"required"`
	Body   string   `json:"body" example:"# Agenda"`
	Stacks []string `json:"stacks" example:"inbox"`
	Label  string   `json:"label" example:"work"`
}

// RenameNoteRequest is the request body for changing a note's title.
type RenameNoteRequest struct {
	Title string `json:"title" example:"New title" validate:"required"`
}

// SetStacksRequest is the request body for replacing a note's stack ids.
type SetStacksRequest struct {
	Stacks []string `json:"stacks" example:"inbox,projects"`
}

// DateFilterRequest selects one local calendar day.
type DateFilterRequest struct {
	Year  int `json:"year" example:"2024" validate:"required"`
	Month int `json:"month" example:"3" validate:"required"`
	Date  int `json:"date" example:"15" validate:"required"`
}

// MonthFilterRequest selects one local calendar month.
type MonthFilterRequest struct {
	Year  int `json:"year" example:"2024" validate:"required"`
	Month int `json:"month" example:"3" validate:"required"`
}

// SortRequest changes the sort key and/or direction.
type SortRequest struct {
	By        string `json:"by" example:"title" enums:"created,title"`
	Direction string `json:"direction" example:"asc" enums:"asc,desc"`
}

// ViewModeRequest flips the display mode.
type ViewModeRequest struct {
	Mode string `json:"mode" example:"calendar" enums:"list,calendar"`
}

// SelectRequest marks a note as selected by id.
type SelectRequest struct {
	ID string `json:"id" example:"0f8fad5b-d9cb-469f-a165-70867728950e" validate:"required"`
}

// NoteResponse is a single note in API responses.
type NoteResponse struct {
	Note models.NoteItem `json:"note"`
	Body string          `json:"body,omitempty"`
}

// NoteListResponse wraps the derived view and the canonical count.
type NoteListResponse struct {
	Notes []models.NoteItem `json:"notes" validate:"required"`
	Total int               `json:"total" example:"42" validate:"required"`
}

// StateResponse is the full engine snapshot (aliased from the domain layer).
type StateResponse = collection.State
