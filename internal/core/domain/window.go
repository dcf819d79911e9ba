package domain

import (
	"fmt"
	"time"
)

// WindowSize is the width of every incremental query window.
const WindowSize = 24 * time.Hour

// Window is the half-open interval [From, To) queried in one drain.
// Windows are derived from the bookmark every run and never persisted.
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow returns the one-day window starting at from.
func NewWindow(from time.Time) Window {
	from = from.UTC()
	return Window{From: from, To: from.Add(WindowSize)}
}

// Contains reports whether t falls in [From, To).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// String implements fmt.Stringer.
func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", FormatTimestamp(w.From), FormatTimestamp(w.To))
}
