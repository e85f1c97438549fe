// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/google/uuid"
)

// SystemAuthor is the attribution recorded on categories created automatically
// while saving an expense.
const SystemAuthor = "System"

// ExpenseCategory represents a named grouping of expenses.
//
// Name is only informally unique: nothing in storage prevents two categories
// from sharing a name.
type ExpenseCategory struct {
	CreatedDate time.Time
	Name        string
	CreatedBy   string
	CategoryID  uuid.UUID
	IsDeleted   bool
}

// NewID returns a fresh random identifier for any entity.
func NewID() uuid.UUID {
	return uuid.New()
}
