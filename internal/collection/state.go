// Package collection implements the note collection state engine: an
// immutable snapshot of the canonical note set plus its view configuration,
// with one command method per operation. Every command derives a brand-new
// snapshot; snapshots already handed out are never mutated.
package collection

import (
	"fmt"
	"time"

	"github.com/norholm/laguz/internal/apperr"
	"github.com/norholm/laguz/internal/models"
)

// ViewMode is the display-mode flag for the note list. It never affects
// which notes appear in the derived view.
type ViewMode string

const (
	ViewModeList     ViewMode = "list"
	ViewModeCalendar ViewMode = "calendar"
)

func validViewMode(m ViewMode) bool {
	return m == ViewModeList || m == ViewModeCalendar
}

// State is one snapshot of the note collection.
//
// Notes keeps load/add order; View is the filtered-and-sorted projection and
// is recomputed by every command that changes its inputs, never patched by
// hand. Selected is a detached value copy: mutating a collection entry is
// never observable through a previously returned Selected unless a command
// explicitly mirrors the patch.
type State struct {
	Notes []models.NoteItem `json:"notes"`
	View  []models.NoteItem `json:"filteredAndSortedNotes"`

	FilterBy      FilterBy      `json:"filterBy"`
	SelectedMonth *time.Time    `json:"selectedMonth"`
	SelectedDate  *time.Time    `json:"selectedDate"`
	SortBy        SortBy        `json:"sortBy"`
	SortDirection SortDirection `json:"sortDirection"`
	ViewMode      ViewMode      `json:"viewMode"`

	Selected *models.NoteItem `json:"selectedNote"`

	Loading bool `json:"loading"`
	Loaded  bool `json:"loaded"`

	Contribution models.Contribution `json:"contribution"`
}

// NewState returns the empty, unloaded default: no filter, newest notes
// first, list display.
func NewState() State {
	return State{
		Notes:         []models.NoteItem{},
		View:          []models.NoteItem{},
		FilterBy:      FilterNone,
		SortBy:        SortByCreated,
		SortDirection: Descending,
		ViewMode:      ViewModeList,
	}
}

// buildView recomputes the derived projection from the canonical notes:
// filter first, then order. It never reads the previous View, so stale
// projections cannot compound.
func buildView(s State) ([]models.NoteItem, error) {
	pass, err := predicate(s.FilterBy, s.SelectedMonth, s.SelectedDate)
	if err != nil {
		return nil, err
	}
	kept := make([]models.NoteItem, 0, len(s.Notes))
	for _, n := range s.Notes {
		if pass(n) {
			kept = append(kept, n)
		}
	}
	return orderNotes(kept, s.SortBy, s.SortDirection), nil
}

// recompute returns s with a freshly built View.
func recompute(s State) (State, error) {
	view, err := buildView(s)
	if err != nil {
		return s, err
	}
	s.View = view
	return s, nil
}

// StartLoad marks the asynchronous load as in flight. Nothing else changes.
func (s State) StartLoad() State {
	s.Loading = true
	return s
}

// CompleteLoad replaces the canonical note set and recomputes the view under
// the current filter and sort configuration. Duplicate ids in the payload
// violate the collection's uniqueness invariant and are rejected.
func (s State) CompleteLoad(notes []models.NoteItem) (State, error) {
	seen := make(map[string]struct{}, len(notes))
	cloned := make([]models.NoteItem, len(notes))
	for i, n := range notes {
		if _, dup := seen[n.ID]; dup {
			return s, fmt.Errorf("collection: duplicate note id %q: %w", n.ID, apperr.ErrAlreadyExists)
		}
		seen[n.ID] = struct{}{}
		cloned[i] = n.Clone()
	}
	s.Notes = cloned
	s.Loading = false
	s.Loaded = true
	return recompute(s)
}

// FilterByDay restricts the view to notes created on the same local calendar
// day as day. The previously selected month is left in place but inactive.
func (s State) FilterByDay(day time.Time) (State, error) {
	s.FilterBy = FilterByDate
	s.SelectedDate = &day
	return recompute(s)
}

// FilterByCalendarMonth restricts the view to notes created in the same
// local calendar month as month, and clears the day selector so the two
// selectors stay mutually exclusive.
func (s State) FilterByCalendarMonth(month time.Time) (State, error) {
	s.FilterBy = FilterByMonth
	s.SelectedMonth = &month
	s.SelectedDate = nil
	return recompute(s)
}

// WithSortBy changes the sort key and stably resorts the view. The filter is
// untouched.
func (s State) WithSortBy(by SortBy) (State, error) {
	if !validSortBy(by) {
		return s, fmt.Errorf("collection: unknown sort key %q", by)
	}
	s.SortBy = by
	return recompute(s)
}

// WithSortDirection changes the sort direction and resorts the view.
func (s State) WithSortDirection(dir SortDirection) (State, error) {
	if !validSortDirection(dir) {
		return s, fmt.Errorf("collection: unknown sort direction %q", dir)
	}
	s.SortDirection = dir
	return recompute(s)
}

// WithViewMode flips the display-mode flag. The canonical notes and the
// derived view are untouched.
func (s State) WithViewMode(m ViewMode) (State, error) {
	if !validViewMode(m) {
		return s, fmt.Errorf("collection: unknown view mode %q", m)
	}
	s.ViewMode = m
	return s, nil
}

// WithSelection marks the given note as open for viewing or editing. The
// stored value is a detached copy, and the note is not required to already
// be in the collection (a just-created note may be selected first).
func (s State) WithSelection(n models.NoteItem) State {
	sel := n.Clone()
	s.Selected = &sel
	return s
}

// WithoutSelection clears the selection. Idempotent.
func (s State) WithoutSelection() State {
	s.Selected = nil
	return s
}

// WithNote appends a note to the collection and recomputes the view. The
// note's position in Notes is append order; its position in View follows the
// current filter and sort. A duplicate id is rejected.
func (s State) WithNote(n models.NoteItem) (State, error) {
	if s.indexOf(n.ID) >= 0 {
		return s, fmt.Errorf("collection: note id %q: %w", n.ID, apperr.ErrAlreadyExists)
	}
	notes := make([]models.NoteItem, 0, len(s.Notes)+1)
	notes = append(notes, s.Notes...)
	notes = append(notes, n.Clone())
	s.Notes = notes
	return recompute(s)
}

// WithContribution replaces the activity aggregate. Unrelated to notes,
// filtering, and selection.
func (s State) WithContribution(c models.Contribution) State {
	s.Contribution = c.Clone()
	return s
}

// WithNoteTitle patches title and content-file descriptors on the entry with
// the given id, mirrors the patch into the selection when it points at the
// same id, and recomputes the view. An unknown id is a silent no-op: the
// snapshot is returned unchanged. Callers that need to distinguish the no-op
// check ContainsNote beforehand.
func (s State) WithNoteTitle(id, title, contentFilePath, contentFileName string) (State, error) {
	i := s.indexOf(id)
	if i < 0 {
		return s, nil
	}
	notes := cloneNotes(s.Notes)
	notes[i].Title = title
	notes[i].ContentFilePath = contentFilePath
	notes[i].ContentFileName = contentFileName
	s.Notes = notes
	s = s.mirrorSelection(notes[i])
	return recompute(s)
}

// WithNoteStacks patches the stack ids on the entry with the given id, with
// the same mirror and silent no-op semantics as WithNoteTitle.
func (s State) WithNoteStacks(id string, stacks []string) (State, error) {
	i := s.indexOf(id)
	if i < 0 {
		return s, nil
	}
	notes := cloneNotes(s.Notes)
	notes[i].StackIDs = append([]string(nil), stacks...)
	s.Notes = notes
	s = s.mirrorSelection(notes[i])
	return recompute(s)
}

// WithoutNote removes the entry with the given id and recomputes the view.
// A selection pointing at the removed id is cleared. An unknown id is a
// silent no-op.
func (s State) WithoutNote(id string) (State, error) {
	i := s.indexOf(id)
	if i < 0 {
		return s, nil
	}
	notes := make([]models.NoteItem, 0, len(s.Notes)-1)
	notes = append(notes, s.Notes[:i]...)
	notes = append(notes, s.Notes[i+1:]...)
	s.Notes = notes
	if s.Selected != nil && s.Selected.ID == id {
		s.Selected = nil
	}
	return recompute(s)
}

// ContainsNote reports whether the collection holds an entry with the id.
func (s State) ContainsNote(id string) bool {
	return s.indexOf(id) >= 0
}

// NoteByID returns a detached copy of the entry with the given id.
func (s State) NoteByID(id string) (models.NoteItem, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return models.NoteItem{}, false
	}
	return s.Notes[i].Clone(), true
}

func (s State) indexOf(id string) int {
	for i, n := range s.Notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// mirrorSelection replaces the selection with a copy of n when they share an
// id, keeping the detached copy in step with the canonical entry.
func (s State) mirrorSelection(n models.NoteItem) State {
	if s.Selected != nil && s.Selected.ID == n.ID {
		sel := n.Clone()
		s.Selected = &sel
	}
	return s
}

func cloneNotes(in []models.NoteItem) []models.NoteItem {
	out := make([]models.NoteItem, len(in))
	for i, n := range in {
		out[i] = n.Clone()
	}
	return out
}
