// Package filter holds the date range applied to the expense listing and
// keeps a live listing in step with it.
package filter

import (
	"fmt"
	"sync"
	"time"
)

const dateLayout = "2006-01-02"

// Range is either unfiltered or an inclusive [Start, End] window.
type Range struct {
	start    time.Time
	end      time.Time
	filtered bool
}

// Unfiltered returns the range that matches every expense.
func Unfiltered() Range {
	return Range{}
}

// Between returns the inclusive range from start to end. It reports false,
// and the unfiltered range, when end is before start.
func Between(start, end time.Time) (Range, bool) {
	if end.Before(start) {
		return Range{}, false
	}
	return Range{start: start, end: end, filtered: true}, true
}

// Filtered reports whether the range has bounds.
func (r Range) Filtered() bool { return r.filtered }

func (r Range) Start() time.Time { return r.start }

func (r Range) End() time.Time { return r.end }

// Bounds returns the range in the nil-or-both form the repositories take.
func (r Range) Bounds() (*time.Time, *time.Time) {
	if !r.filtered {
		return nil, nil
	}
	start, end := r.start, r.end
	return &start, &end
}

// Contains reports whether t falls inside the range, ends included.
func (r Range) Contains(t time.Time) bool {
	if !r.filtered {
		return true
	}
	return !t.Before(r.start) && !t.After(r.end)
}

func (r Range) String() string {
	if !r.filtered {
		return "all dates"
	}
	return fmt.Sprintf("%s to %s", r.start.Format(dateLayout), r.end.Format(dateLayout))
}

// Filter is the active date range. The zero value is unfiltered.
type Filter struct {
	current Range
	mu      sync.RWMutex
}

// New returns an unfiltered Filter.
func New() *Filter {
	return &Filter{}
}

// Select replaces both bounds at once. A range ending before it starts is
// rejected and the current range is kept.
func (f *Filter) Select(start, end time.Time) bool {
	r, ok := Between(start, end)
	if !ok {
		return false
	}

	f.mu.Lock()
	f.current = r
	f.mu.Unlock()
	return true
}

// Clear goes back to unfiltered.
func (f *Filter) Clear() {
	f.mu.Lock()
	f.current = Unfiltered()
	f.mu.Unlock()
}

// Current returns the active range.
func (f *Filter) Current() Range {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}
