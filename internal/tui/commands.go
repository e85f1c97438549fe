package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/expense-saver/internal/filter"
)

// Listing is the live expense listing the model renders.
type Listing interface {
	Updates() <-chan filter.Page
	Range() filter.Range
	Select(start, end time.Time) (bool, error)
	Clear() error
}

// waitForPage blocks until the listing pushes its next page.
func waitForPage(updates <-chan filter.Page) tea.Cmd {
	return func() tea.Msg {
		page, ok := <-updates
		if !ok {
			return listingClosedMsg{}
		}
		return pageMsg{page: page}
	}
}

func (m Model) selectRange(start, end time.Time) tea.Cmd {
	return func() tea.Msg {
		accepted, err := m.listing.Select(start, end)
		return rangeSelectedMsg{accepted: accepted, err: err}
	}
}

func (m Model) clearRange() tea.Cmd {
	return func() tea.Msg {
		return rangeSelectedMsg{accepted: true, err: m.listing.Clear()}
	}
}

// monthOf returns the first and last millisecond of t's calendar month.
func monthOf(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0).Add(-time.Millisecond)
}

// shiftMonth moves the month anchored at the active range (or now) by delta.
func (m Model) shiftMonth(delta int) tea.Cmd {
	anchor := m.now()
	if r := m.listing.Range(); r.Filtered() {
		anchor = r.Start()
	}
	start, _ := monthOf(anchor)
	return m.selectRange(monthOf(start.AddDate(0, delta, 0)))
}
