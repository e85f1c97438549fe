package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Veraticus/expense-saver/internal/model"
)

const categoryColumns = `category_id, name, created_by, created_date, is_deleted`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (model.ExpenseCategory, error) {
	var cat model.ExpenseCategory
	var created int64
	if err := row.Scan(&cat.CategoryID, &cat.Name, &cat.CreatedBy, &created, &cat.IsDeleted); err != nil {
		return model.ExpenseCategory{}, err
	}
	cat.CreatedDate = fromMillis(created)
	return cat, nil
}

// InsertCategory stores a category. A category whose ID already exists is
// left untouched and no error is returned.
func (s *SQLiteStorage) InsertCategory(ctx context.Context, category *model.ExpenseCategory) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}

	inserted, err := insertCategory(ctx, s.writer(), category)
	if err != nil {
		return err
	}
	if !inserted {
		logIgnored(ctx, "category", category.CategoryID)
		return nil
	}

	slog.InfoContext(ctx, "inserted category", "id", category.CategoryID.String(), "name", category.Name)
	s.changed(ctx, tableCategories)
	return nil
}

func insertCategory(ctx context.Context, q queryable, category *model.ExpenseCategory) (bool, error) {
	result, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO expense_categories (`+categoryColumns+`)
		VALUES (?, ?, ?, ?, ?)`,
		category.CategoryID, category.Name, category.CreatedBy,
		toMillis(category.CreatedDate), category.IsDeleted,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert category: %w", translateError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// DeleteCategory removes a category by ID. Every expense filed under it is
// removed by the foreign key cascade.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, category *model.ExpenseCategory) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if category == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if err := validateID(category.CategoryID, "categoryID"); err != nil {
		return err
	}

	result, err := s.writer().ExecContext(ctx, `DELETE FROM expense_categories WHERE category_id = ?`, category.CategoryID)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		slog.DebugContext(ctx, "delete matched no category", "id", category.CategoryID.String())
		return nil
	}

	slog.InfoContext(ctx, "deleted category", "id", category.CategoryID.String(), "name", category.Name)
	s.changed(ctx, tableCategories, tableExpenses)
	return nil
}

// GetCategories returns every category ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.ExpenseCategory, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	return queryCategories(ctx, s.db)
}

// GetCategoryByName returns the category whose name matches exactly, or nil.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.ExpenseCategory, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	return queryCategoryByName(ctx, s.db, name)
}

// GetCategoryByID returns the category with the given ID, or nil.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id uuid.UUID) (*model.ExpenseCategory, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	return queryCategoryByID(ctx, s.db, id)
}

// AllCategories subscribes to every category ordered by name.
func (s *SQLiteStorage) AllCategories(ctx context.Context) (*Subscription[[]model.ExpenseCategory], error) {
	return subscribe(ctx, s, "categories", []string{tableCategories}, queryCategories)
}

// CategoryByName subscribes to the category whose name matches exactly.
// The value is nil while no such category exists.
func (s *SQLiteStorage) CategoryByName(ctx context.Context, name string) (*Subscription[*model.ExpenseCategory], error) {
	key := fmt.Sprintf("category_by_name(%q)", name)
	return subscribe(ctx, s, key, []string{tableCategories},
		func(ctx context.Context, q queryable) (*model.ExpenseCategory, error) {
			return queryCategoryByName(ctx, q, name)
		})
}

// CategoryByID subscribes to the category with the given ID.
func (s *SQLiteStorage) CategoryByID(ctx context.Context, id uuid.UUID) (*Subscription[*model.ExpenseCategory], error) {
	key := fmt.Sprintf("category_by_id(%s)", id)
	return subscribe(ctx, s, key, []string{tableCategories},
		func(ctx context.Context, q queryable) (*model.ExpenseCategory, error) {
			return queryCategoryByID(ctx, q, id)
		})
}

func queryCategories(ctx context.Context, q queryable) ([]model.ExpenseCategory, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM expense_categories
		ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	categories := []model.ExpenseCategory{}
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.DebugContext(ctx, "retrieved categories", "count", len(categories))
	return categories, nil
}

func queryCategoryByName(ctx context.Context, q queryable, name string) (*model.ExpenseCategory, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+categoryColumns+`
		FROM expense_categories
		WHERE name = ?
		LIMIT 1`, name)
	return oneCategory(row)
}

func queryCategoryByID(ctx context.Context, q queryable, id uuid.UUID) (*model.ExpenseCategory, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+categoryColumns+`
		FROM expense_categories
		WHERE category_id = ?`, id)
	return oneCategory(row)
}

func oneCategory(row *sql.Row) (*model.ExpenseCategory, error) {
	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return &cat, nil
}
