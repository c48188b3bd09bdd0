package collection

import (
	"fmt"
	"time"

	"github.com/norholm/laguz/internal/apperr"
	"github.com/norholm/laguz/internal/models"
)

// FilterBy selects which calendar granularity the derived view is
// restricted to, if any.
type FilterBy string

const (
	FilterNone    FilterBy = "none"
	FilterByMonth FilterBy = "month"
	FilterByDate  FilterBy = "date"
)

// predicate returns the membership test for the given filter configuration.
// A filter mode without its selector is a configuration inconsistency and
// fails fast rather than silently passing or dropping every note.
//
// Timestamps are interpreted in the selector's location, so a selector built
// with time.Local gives the desktop notion of "this month" / "today".
func predicate(filterBy FilterBy, month, date *time.Time) (func(models.NoteItem) bool, error) {
	switch filterBy {
	case FilterNone, "":
		return func(models.NoteItem) bool { return true }, nil

	case FilterByMonth:
		if month == nil {
			return nil, fmt.Errorf("collection: %w: %s", apperr.ErrInconsistentFilter, FilterByMonth)
		}
		sel := *month
		return func(n models.NoteItem) bool {
			return sameMonth(n, sel)
		}, nil

	case FilterByDate:
		if date == nil {
			return nil, fmt.Errorf("collection: %w: %s", apperr.ErrInconsistentFilter, FilterByDate)
		}
		sel := *date
		return func(n models.NoteItem) bool {
			return sameDay(n, sel)
		}, nil
	}
	return nil, fmt.Errorf("collection: unknown filter mode %q", filterBy)
}

// sameMonth reports whether the note was created in the same calendar year
// and month as ref, in ref's location.
func sameMonth(n models.NoteItem, ref time.Time) bool {
	t := n.CreatedTime().In(ref.Location())
	return t.Year() == ref.Year() && t.Month() == ref.Month()
}

// sameDay reports whether the note was created on the same calendar year,
// month, and day as ref, in ref's location.
func sameDay(n models.NoteItem, ref time.Time) bool {
	t := n.CreatedTime().In(ref.Location())
	return t.Year() == ref.Year() && t.Month() == ref.Month() && t.Day() == ref.Day()
}
