package tui

import (
	"github.com/Veraticus/expense-saver/internal/filter"
)

// Listing messages.
type pageMsg struct {
	page filter.Page
}

type listingClosedMsg struct{}

// rangeSelectedMsg reports the outcome of a date range change.
type rangeSelectedMsg struct {
	err      error
	accepted bool
}
