package collection

import (
	"fmt"
	"sync"
	"time"

	"github.com/norholm/laguz/internal/apperr"
	"github.com/norholm/laguz/internal/models"
)

// Change names what a command did, for listeners such as the event broker.
type Change string

const (
	ChangeLoadStarted         Change = "load.started"
	ChangeLoadCompleted       Change = "load.completed"
	ChangeFilterChanged       Change = "filter.changed"
	ChangeSortChanged         Change = "sort.changed"
	ChangeViewModeChanged     Change = "viewmode.changed"
	ChangeSelectionChanged    Change = "selection.changed"
	ChangeNoteAdded           Change = "note.added"
	ChangeNoteUpdated         Change = "note.updated"
	ChangeNoteDeleted         Change = "note.deleted"
	ChangeContributionUpdated Change = "contribution.updated"
)

// Listener is called after a command has been applied, with the new snapshot.
// Listeners run outside the store lock and must not block for long.
type Listener func(change Change, s State)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStrictNotFound makes patch and delete commands report
// apperr.ErrNotFound for unknown ids instead of the engine's silent no-op.
func WithStrictNotFound() StoreOption {
	return func(st *Store) { st.strict = true }
}

// WithDefaultSort sets the sort configuration of the initial snapshot.
func WithDefaultSort(by SortBy, dir SortDirection) StoreOption {
	return func(st *Store) {
		st.state.SortBy = by
		st.state.SortDirection = dir
	}
}

// Store owns the current snapshot. The engine itself is pure; the store is
// the one shared resource, so it applies commands one at a time under a
// mutex, each against the latest snapshot, and swaps the reference
// atomically. There is no other mutable state.
type Store struct {
	mu        sync.Mutex
	state     State
	strict    bool
	listeners []Listener
}

// NewStore creates a store holding the empty default snapshot.
func NewStore(opts ...StoreOption) *Store {
	st := &Store{state: NewState()}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Subscribe registers a listener for subsequent changes.
func (st *Store) Subscribe(l Listener) {
	st.mu.Lock()
	st.listeners = append(st.listeners, l)
	st.mu.Unlock()
}

// Snapshot returns the current snapshot. Snapshots are immutable by
// contract: commands derive new ones and never touch those already returned.
func (st *Store) Snapshot() State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// apply runs one command against the latest snapshot and, on success, swaps
// it in and notifies listeners (outside the lock).
func (st *Store) apply(change Change, cmd func(State) (State, error)) (State, error) {
	st.mu.Lock()
	next, err := cmd(st.state)
	if err != nil {
		st.mu.Unlock()
		return st.state, err
	}
	st.state = next
	listeners := st.listeners
	st.mu.Unlock()

	for _, l := range listeners {
		l(change, next)
	}
	return next, nil
}

// requireNote enforces strict mode for commands addressing an existing id.
func (st *Store) requireNote(s State, id string) error {
	if st.strict && !s.ContainsNote(id) {
		return fmt.Errorf("collection: note %q: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// StartLoad marks the load as in flight.
func (st *Store) StartLoad() State {
	s, _ := st.apply(ChangeLoadStarted, func(s State) (State, error) {
		return s.StartLoad(), nil
	})
	return s
}

// CompleteLoad replaces the canonical notes with a freshly loaded set.
func (st *Store) CompleteLoad(notes []models.NoteItem) (State, error) {
	return st.apply(ChangeLoadCompleted, func(s State) (State, error) {
		return s.CompleteLoad(notes)
	})
}

// SelectDayFilter restricts the view to one local calendar day.
func (st *Store) SelectDayFilter(day time.Time) (State, error) {
	return st.apply(ChangeFilterChanged, func(s State) (State, error) {
		return s.FilterByDay(day)
	})
}

// SelectMonthFilter restricts the view to one local calendar month.
func (st *Store) SelectMonthFilter(month time.Time) (State, error) {
	return st.apply(ChangeFilterChanged, func(s State) (State, error) {
		return s.FilterByCalendarMonth(month)
	})
}

// ChangeSortBy switches the sort key.
func (st *Store) ChangeSortBy(by SortBy) (State, error) {
	return st.apply(ChangeSortChanged, func(s State) (State, error) {
		return s.WithSortBy(by)
	})
}

// ChangeSortDirection switches the sort direction.
func (st *Store) ChangeSortDirection(dir SortDirection) (State, error) {
	return st.apply(ChangeSortChanged, func(s State) (State, error) {
		return s.WithSortDirection(dir)
	})
}

// ChangeViewMode flips the display-mode flag.
func (st *Store) ChangeViewMode(m ViewMode) (State, error) {
	return st.apply(ChangeViewModeChanged, func(s State) (State, error) {
		return s.WithViewMode(m)
	})
}

// Select marks a note as open for viewing or editing.
func (st *Store) Select(n models.NoteItem) State {
	s, _ := st.apply(ChangeSelectionChanged, func(s State) (State, error) {
		return s.WithSelection(n), nil
	})
	return s
}

// Deselect clears the selection.
func (st *Store) Deselect() State {
	s, _ := st.apply(ChangeSelectionChanged, func(s State) (State, error) {
		return s.WithoutSelection(), nil
	})
	return s
}

// Add appends a note to the collection.
func (st *Store) Add(n models.NoteItem) (State, error) {
	return st.apply(ChangeNoteAdded, func(s State) (State, error) {
		return s.WithNote(n)
	})
}

// SetContribution replaces the activity aggregate.
func (st *Store) SetContribution(c models.Contribution) State {
	s, _ := st.apply(ChangeContributionUpdated, func(s State) (State, error) {
		return s.WithContribution(c), nil
	})
	return s
}

// Rename patches a note's title and content-file descriptors.
func (st *Store) Rename(id, title, contentFilePath, contentFileName string) (State, error) {
	return st.apply(ChangeNoteUpdated, func(s State) (State, error) {
		if err := st.requireNote(s, id); err != nil {
			return s, err
		}
		return s.WithNoteTitle(id, title, contentFilePath, contentFileName)
	})
}

// SetStacks patches a note's stack ids.
func (st *Store) SetStacks(id string, stacks []string) (State, error) {
	return st.apply(ChangeNoteUpdated, func(s State) (State, error) {
		if err := st.requireNote(s, id); err != nil {
			return s, err
		}
		return s.WithNoteStacks(id, stacks)
	})
}

// Delete removes a note from the collection.
func (st *Store) Delete(id string) (State, error) {
	return st.apply(ChangeNoteDeleted, func(s State) (State, error) {
		if err := st.requireNote(s, id); err != nil {
			return s, err
		}
		return s.WithoutNote(id)
	})
}
