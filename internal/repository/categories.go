// Package repository exposes the storage engine to workflows through the
// service contracts.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Veraticus/expense-saver/internal/model"
	"github.com/Veraticus/expense-saver/internal/service"
	"github.com/Veraticus/expense-saver/internal/storage"
)

// OfflineCategoriesRepository serves categories from the local store.
type OfflineCategoriesRepository struct {
	store *storage.SQLiteStorage
}

// NewCategoriesRepository wraps a store.
func NewCategoriesRepository(store *storage.SQLiteStorage) *OfflineCategoriesRepository {
	return &OfflineCategoriesRepository{store: store}
}

var _ service.CategoryRepository = (*OfflineCategoriesRepository)(nil)

// AllCategories streams every category ordered by name.
func (r *OfflineCategoriesRepository) AllCategories(ctx context.Context) (service.Stream[[]model.ExpenseCategory], error) {
	return stream(r.store.AllCategories(ctx))
}

// CategoryByName streams the category with exactly this name, nil if absent.
func (r *OfflineCategoriesRepository) CategoryByName(ctx context.Context, name string) (service.Stream[*model.ExpenseCategory], error) {
	return stream(r.store.CategoryByName(ctx, name))
}

// CategoryByID streams the category with this ID, nil if absent.
func (r *OfflineCategoriesRepository) CategoryByID(ctx context.Context, id uuid.UUID) (service.Stream[*model.ExpenseCategory], error) {
	return stream(r.store.CategoryByID(ctx, id))
}

func (r *OfflineCategoriesRepository) InsertCategory(ctx context.Context, category *model.ExpenseCategory) error {
	return r.store.InsertCategory(ctx, category)
}

func (r *OfflineCategoriesRepository) DeleteCategory(ctx context.Context, category *model.ExpenseCategory) error {
	return r.store.DeleteCategory(ctx, category)
}

// stream keeps a failed subscribe from surfacing as a non-nil interface
// holding a nil pointer.
func stream[T any](sub *storage.Subscription[T], err error) (service.Stream[T], error) {
	if err != nil {
		return nil, err
	}
	return sub, nil
}
