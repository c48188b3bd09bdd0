// Package models defines the domain types for Laguz.
package models

import (
	"slices"
	"time"
)

// NoteItem is a single note's metadata as tracked by the collection.
// The note body lives in a workspace file; this record only describes it.
type NoteItem struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	CreatedAt       int64    `json:"createdDatetime"` // epoch milliseconds, fixed at creation
	ContentFilePath string   `json:"contentFilePath"`
	ContentFileName string   `json:"contentFileName"`
	StackIDs        []string `json:"stackIds"`
	Label           string   `json:"label,omitempty"`
}

// Clone returns a value copy sharing no mutable state with n.
func (n NoteItem) Clone() NoteItem {
	c := n
	c.StackIDs = slices.Clone(n.StackIDs)
	return c
}

// CreatedTime returns the creation timestamp in the local time zone.
func (n NoteItem) CreatedTime() time.Time {
	return time.UnixMilli(n.CreatedAt)
}

// Contribution is the activity aggregate shown alongside the note list:
// note-creation counts keyed by local calendar day ("2006-01-02").
// It is updated independently of filtering and sorting.
type Contribution struct {
	Days  map[string]int `json:"days"`
	Total int            `json:"total"`
}

// Clone returns a value copy of the aggregate.
func (c Contribution) Clone() Contribution {
	out := Contribution{Total: c.Total}
	if c.Days != nil {
		out.Days = make(map[string]int, len(c.Days))
		for k, v := range c.Days {
			out.Days[k] = v
		}
	}
	return out
}
