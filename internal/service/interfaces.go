// Package service defines the contracts between workflows and persistence.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/expense-saver/internal/model"
)

// Stream is a live query result that re-delivers whenever the rows behind it
// change, until it is closed.
type Stream[T any] interface {
	// Updates delivers result sets, newest only. It is closed with the stream.
	// Every stream owns the result sets it receives.
	Updates() <-chan T
	// Latest returns the current result set and the last re-evaluation error.
	Latest() (T, error)
	Err() error
	Done() <-chan struct{}
	Close()
}

// First takes the current value of a stream and closes it.
func First[T any](s Stream[T]) (T, error) {
	defer s.Close()
	return s.Latest()
}

// CategoryRepository is the public surface over stored categories.
type CategoryRepository interface {
	AllCategories(ctx context.Context) (Stream[[]model.ExpenseCategory], error)
	CategoryByName(ctx context.Context, name string) (Stream[*model.ExpenseCategory], error)
	CategoryByID(ctx context.Context, id uuid.UUID) (Stream[*model.ExpenseCategory], error)
	InsertCategory(ctx context.Context, category *model.ExpenseCategory) error
	DeleteCategory(ctx context.Context, category *model.ExpenseCategory) error
}

// ExpenseRepository is the public surface over stored expenses.
type ExpenseRepository interface {
	AllExpenses(ctx context.Context) (Stream[[]model.Expense], error)
	// ExpensesWithCategory lists expenses joined with their category. Both
	// bounds nil means unfiltered; otherwise both must be set.
	ExpensesWithCategory(ctx context.Context, start, end *time.Time) (Stream[[]model.ExpenseWithCategory], error)
	ExpenseByID(ctx context.Context, id uuid.UUID) (Stream[*model.Expense], error)
	TotalAmount(ctx context.Context, start, end *time.Time) (Stream[float64], error)
	CountExpenses(ctx context.Context) (int, error)

	InsertExpense(ctx context.Context, expense *model.Expense) error
	UpdateExpense(ctx context.Context, expense *model.Expense) error
	DeleteExpense(ctx context.Context, expense *model.Expense) error
	// InsertCategoryWithExpense inserts both rows atomically.
	InsertCategoryWithExpense(ctx context.Context, category *model.ExpenseCategory, expense *model.Expense) error
}
