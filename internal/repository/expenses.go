package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/expense-saver/internal/model"
	"github.com/Veraticus/expense-saver/internal/service"
	"github.com/Veraticus/expense-saver/internal/storage"
)

// OfflineExpensesRepository serves expenses from the local store.
type OfflineExpensesRepository struct {
	store *storage.SQLiteStorage
}

// NewExpensesRepository wraps a store.
func NewExpensesRepository(store *storage.SQLiteStorage) *OfflineExpensesRepository {
	return &OfflineExpensesRepository{store: store}
}

var _ service.ExpenseRepository = (*OfflineExpensesRepository)(nil)

func (r *OfflineExpensesRepository) AllExpenses(ctx context.Context) (service.Stream[[]model.Expense], error) {
	return stream(r.store.AllExpenses(ctx))
}

func (r *OfflineExpensesRepository) ExpensesWithCategory(ctx context.Context, start, end *time.Time) (service.Stream[[]model.ExpenseWithCategory], error) {
	return stream(r.store.ExpensesWithCategory(ctx, start, end))
}

func (r *OfflineExpensesRepository) ExpenseByID(ctx context.Context, id uuid.UUID) (service.Stream[*model.Expense], error) {
	return stream(r.store.ExpenseByID(ctx, id))
}

func (r *OfflineExpensesRepository) TotalAmount(ctx context.Context, start, end *time.Time) (service.Stream[float64], error) {
	return stream(r.store.TotalAmount(ctx, start, end))
}

func (r *OfflineExpensesRepository) CountExpenses(ctx context.Context) (int, error) {
	return r.store.CountExpenses(ctx)
}

func (r *OfflineExpensesRepository) InsertExpense(ctx context.Context, expense *model.Expense) error {
	return r.store.InsertExpense(ctx, expense)
}

func (r *OfflineExpensesRepository) UpdateExpense(ctx context.Context, expense *model.Expense) error {
	return r.store.UpdateExpense(ctx, expense)
}

func (r *OfflineExpensesRepository) DeleteExpense(ctx context.Context, expense *model.Expense) error {
	return r.store.DeleteExpense(ctx, expense)
}

func (r *OfflineExpensesRepository) InsertCategoryWithExpense(ctx context.Context, category *model.ExpenseCategory, expense *model.Expense) error {
	return r.store.InsertCategoryWithExpense(ctx, category, expense)
}
