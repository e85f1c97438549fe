package model

import (
	"time"

	"github.com/google/uuid"
)

// Expense represents a single recorded expense.
type Expense struct {
	CreatedDate time.Time // Also the default listing order
	Name        string
	CreatedBy   string
	Amount      float64 // Display currency is fixed at the presentation boundary
	ExpenseID   uuid.UUID
	CategoryID  uuid.UUID // Must reference an existing ExpenseCategory
	IsDeleted   bool
}

// ExpenseWithCategory pairs an expense with the category it references.
// It is a query result only and is never persisted.
type ExpenseWithCategory struct {
	Category ExpenseCategory
	Expense  Expense
}

// TotalAmount sums the amounts of the given rows.
func TotalAmount(rows []ExpenseWithCategory) float64 {
	var total float64
	for _, row := range rows {
		total += row.Expense.Amount
	}
	return total
}
