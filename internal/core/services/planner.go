package services

import (
	"time"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
)

// WindowPlanner produces the one-day windows of an incremental stream.
//
// The cursor starts at the stream bookmark. After each window the engine
// reports the highest bookmark it observed: while that value lies before
// today the cursor moves to the end of the window, otherwise the cursor
// takes the observed value. Planning stops once the cursor is no longer
// before today. The first window is always produced, so a run starting on
// or after today still queries one window, and the window containing today
// is only queried when the run starts inside it.
type WindowPlanner struct {
	cursor time.Time
	today  time.Time
	done   bool
}

// NewWindowPlanner creates a planner starting at start. today is truncated
// to midnight UTC and is never re-read, so planning always terminates.
func NewWindowPlanner(start, today time.Time) *WindowPlanner {
	return &WindowPlanner{
		cursor: start.UTC(),
		today:  domain.StartOfDay(today),
	}
}

// Next returns the window at the cursor, or false when planning is over.
func (p *WindowPlanner) Next() (domain.Window, bool) {
	if p.done {
		return domain.Window{}, false
	}
	return domain.NewWindow(p.cursor), true
}

// Advance moves past the current window given the highest bookmark
// observed while processing it.
func (p *WindowPlanner) Advance(observed time.Time) {
	if p.done {
		return
	}
	window := domain.NewWindow(p.cursor)
	if observed.Before(p.today) {
		p.cursor = window.To
	} else {
		p.cursor = observed.UTC()
	}
	if !p.cursor.Before(p.today) {
		p.done = true
	}
}

// Cursor returns where the next window starts.
func (p *WindowPlanner) Cursor() time.Time {
	return p.cursor
}

// Today returns the captured end of planning.
func (p *WindowPlanner) Today() time.Time {
	return p.today
}

// PlanWindows enumerates the windows a run from start would query if no
// window returned any rows.
func PlanWindows(start, today time.Time) []domain.Window {
	planner := NewWindowPlanner(start, today)
	var windows []domain.Window
	for {
		w, ok := planner.Next()
		if !ok {
			return windows
		}
		windows = append(windows, w)
		planner.Advance(w.From)
	}
}
