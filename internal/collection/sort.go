package collection

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/norholm/laguz/internal/models"
)

// SortBy selects the key the derived view is ordered by.
type SortBy string

const (
	// SortByCreated orders by the creation timestamp (numeric).
	SortByCreated SortBy = "created"
	// SortByTitle orders by title under locale-neutral Unicode collation
	// (case- and width-insensitive primary weights), with a byte-wise
	// tiebreak so the order is total and deterministic.
	SortByTitle SortBy = "title"
)

// SortDirection controls ascending vs descending order.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

func validSortBy(by SortBy) bool {
	return by == SortByCreated || by == SortByTitle
}

func validSortDirection(dir SortDirection) bool {
	return dir == Ascending || dir == Descending
}

// orderNotes returns a new slice holding in sorted by the given key and
// direction. The sort is stable: entries with equal keys keep their relative
// order from in. Descending is the same comparator with the sign flipped,
// never a second code path. The input slice is left untouched.
func orderNotes(in []models.NoteItem, by SortBy, dir SortDirection) []models.NoteItem {
	out := slices.Clone(in)

	var compare func(a, b models.NoteItem) int
	switch by {
	case SortByTitle:
		// Collators carry internal buffers and are not safe for concurrent
		// use, so each ordering pass gets its own.
		c := collate.New(language.Und, collate.Loose)
		compare = func(a, b models.NoteItem) int {
			if r := c.CompareString(a.Title, b.Title); r != 0 {
				return r
			}
			return strings.Compare(a.Title, b.Title)
		}
	default:
		compare = func(a, b models.NoteItem) int {
			switch {
			case a.CreatedAt < b.CreatedAt:
				return -1
			case a.CreatedAt > b.CreatedAt:
				return 1
			}
			return 0
		}
	}

	sign := 1
	if dir == Descending {
		sign = -1
	}
	slices.SortStableFunc(out, func(a, b models.NoteItem) int {
		return sign * compare(a, b)
	})
	return out
}
