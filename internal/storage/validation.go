// Package storage provides the data persistence layer for expenses and their categories.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/expense-saver/internal/model"
)

// Storage errors.
var (
	ErrNilContext           = errors.New("context cannot be nil")
	ErrEmptyString          = errors.New("string parameter cannot be empty")
	ErrNilParameter         = errors.New("parameter cannot be nil")
	ErrInvalidDateRange     = errors.New("start date must be before end date")
	ErrInvalidExpense       = errors.New("invalid expense")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrCategoryMismatch     = errors.New("expense does not reference the category being inserted")
	ErrReferentialIntegrity = errors.New("expense references a category that does not exist")
	ErrClosed               = errors.New("storage is closed")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateID ensures an identifier has been assigned.
func validateID(id uuid.UUID, paramName string) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: %s is the zero identifier", ErrNilParameter, paramName)
	}
	return nil
}

// validateCategory validates a category before it is written.
func validateCategory(category *model.ExpenseCategory) error {
	if category == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if category.CategoryID == uuid.Nil {
		return fmt.Errorf("%w: missing ID", ErrInvalidCategory)
	}
	if category.CreatedDate.IsZero() {
		return fmt.Errorf("%w: missing created date", ErrInvalidCategory)
	}
	return nil
}

// validateExpense validates an expense before it is written.
func validateExpense(expense *model.Expense) error {
	if expense == nil {
		return fmt.Errorf("%w: expense", ErrNilParameter)
	}
	if expense.ExpenseID == uuid.Nil {
		return fmt.Errorf("%w: missing ID", ErrInvalidExpense)
	}
	if expense.CategoryID == uuid.Nil {
		return fmt.Errorf("%w: missing category ID", ErrInvalidExpense)
	}
	if expense.CreatedDate.IsZero() {
		return fmt.Errorf("%w: missing created date", ErrInvalidExpense)
	}
	return nil
}

// validateDateRange accepts either no bounds or both bounds in order.
func validateDateRange(start, end *time.Time) error {
	if (start == nil) != (end == nil) {
		return fmt.Errorf("%w: both bounds must be set or both absent", ErrInvalidDateRange)
	}
	if start != nil && end.Before(*start) {
		return fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, *end, *start)
	}
	return nil
}
