package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/expense-saver/internal/model"
)

const expenseColumns = `expense_id, category_id, name, amount, created_by, created_date, is_deleted`

func scanExpense(row rowScanner) (model.Expense, error) {
	var exp model.Expense
	var created int64
	if err := row.Scan(
		&exp.ExpenseID, &exp.CategoryID, &exp.Name, &exp.Amount,
		&exp.CreatedBy, &created, &exp.IsDeleted,
	); err != nil {
		return model.Expense{}, err
	}
	exp.CreatedDate = fromMillis(created)
	return exp, nil
}

// InsertExpense stores an expense. An expense whose ID already exists is left
// untouched and no error is returned. The referenced category must exist.
func (s *SQLiteStorage) InsertExpense(ctx context.Context, expense *model.Expense) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}

	inserted, err := insertExpense(ctx, s.writer(), expense)
	if err != nil {
		return err
	}
	if !inserted {
		logIgnored(ctx, "expense", expense.ExpenseID)
		return nil
	}

	slog.InfoContext(ctx, "inserted expense",
		"id", expense.ExpenseID.String(),
		"name", expense.Name,
		"amount", expense.Amount)
	s.changed(ctx, tableExpenses)
	return nil
}

func insertExpense(ctx context.Context, q queryable, expense *model.Expense) (bool, error) {
	result, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ExpenseID, expense.CategoryID, expense.Name, expense.Amount,
		expense.CreatedBy, toMillis(expense.CreatedDate), expense.IsDeleted,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert expense: %w", translateError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// UpdateExpense replaces every column of the expense with the same ID.
// Updating an expense that does not exist changes nothing and is not an error.
func (s *SQLiteStorage) UpdateExpense(ctx context.Context, expense *model.Expense) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}

	result, err := s.writer().ExecContext(ctx, `
		UPDATE expenses
		SET category_id = ?, name = ?, amount = ?, created_by = ?, created_date = ?, is_deleted = ?
		WHERE expense_id = ?`,
		expense.CategoryID, expense.Name, expense.Amount, expense.CreatedBy,
		toMillis(expense.CreatedDate), expense.IsDeleted, expense.ExpenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", translateError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		slog.DebugContext(ctx, "update matched no expense", "id", expense.ExpenseID.String())
		return nil
	}

	slog.InfoContext(ctx, "updated expense", "id", expense.ExpenseID.String(), "name", expense.Name)
	s.changed(ctx, tableExpenses)
	return nil
}

// DeleteExpense removes an expense by ID.
func (s *SQLiteStorage) DeleteExpense(ctx context.Context, expense *model.Expense) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if expense == nil {
		return fmt.Errorf("%w: expense", ErrNilParameter)
	}
	if err := validateID(expense.ExpenseID, "expenseID"); err != nil {
		return err
	}

	result, err := s.writer().ExecContext(ctx, `DELETE FROM expenses WHERE expense_id = ?`, expense.ExpenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		slog.DebugContext(ctx, "delete matched no expense", "id", expense.ExpenseID.String())
		return nil
	}

	slog.InfoContext(ctx, "deleted expense", "id", expense.ExpenseID.String())
	s.changed(ctx, tableExpenses)
	return nil
}

// InsertCategoryWithExpense inserts a category and an expense filed under it
// in one transaction. Either both inserts commit or neither does. The expense
// must reference the category being inserted.
func (s *SQLiteStorage) InsertCategoryWithExpense(ctx context.Context, category *model.ExpenseCategory, expense *model.Expense) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}
	if expense.CategoryID != category.CategoryID {
		return fmt.Errorf("%w: expense %s references %s, category is %s",
			ErrCategoryMismatch, expense.ExpenseID, expense.CategoryID, category.CategoryID)
	}

	var categoryInserted, expenseInserted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if categoryInserted, err = insertCategory(ctx, tx, category); err != nil {
			return err
		}
		if expenseInserted, err = insertExpense(ctx, tx, expense); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	tables := make([]string, 0, 2)
	if categoryInserted {
		tables = append(tables, tableCategories)
	} else {
		logIgnored(ctx, "category", category.CategoryID)
	}
	if expenseInserted {
		tables = append(tables, tableExpenses)
	} else {
		logIgnored(ctx, "expense", expense.ExpenseID)
	}
	if len(tables) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "inserted category with expense",
		"category", category.Name,
		"expense", expense.Name,
		"amount", expense.Amount)
	s.changed(ctx, tables...)
	return nil
}

// GetExpenseByID returns the expense with the given ID, or nil.
func (s *SQLiteStorage) GetExpenseByID(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	return queryExpenseByID(ctx, s.db, id)
}

// CountExpenses returns the number of stored expenses.
func (s *SQLiteStorage) CountExpenses(ctx context.Context) (int, error) {
	if err := s.checkOpen(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}
	return count, nil
}

// AllExpenses subscribes to every expense, oldest first.
func (s *SQLiteStorage) AllExpenses(ctx context.Context) (*Subscription[[]model.Expense], error) {
	return subscribe(ctx, s, "expenses", []string{tableExpenses}, queryExpenses)
}

// ExpenseByID subscribes to the expense with the given ID. The value is nil
// while no such expense exists.
func (s *SQLiteStorage) ExpenseByID(ctx context.Context, id uuid.UUID) (*Subscription[*model.Expense], error) {
	key := fmt.Sprintf("expense_by_id(%s)", id)
	return subscribe(ctx, s, key, []string{tableExpenses},
		func(ctx context.Context, q queryable) (*model.Expense, error) {
			return queryExpenseByID(ctx, q, id)
		})
}

// ExpensesWithCategory subscribes to expenses joined with their category,
// oldest first. With nil bounds every expense is listed; otherwise only those
// created within [start, end] inclusive.
func (s *SQLiteStorage) ExpensesWithCategory(ctx context.Context, start, end *time.Time) (*Subscription[[]model.ExpenseWithCategory], error) {
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}

	bounds := newMillisRange(start, end)
	key := "expenses_with_category" + bounds.String()
	return subscribe(ctx, s, key, []string{tableExpenses, tableCategories},
		func(ctx context.Context, q queryable) ([]model.ExpenseWithCategory, error) {
			return queryExpensesWithCategory(ctx, q, bounds)
		})
}

// TotalAmount subscribes to the sum of expense amounts, restricted to
// [start, end] when both bounds are given.
func (s *SQLiteStorage) TotalAmount(ctx context.Context, start, end *time.Time) (*Subscription[float64], error) {
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}

	bounds := newMillisRange(start, end)
	key := "total_amount" + bounds.String()
	return subscribe(ctx, s, key, []string{tableExpenses},
		func(ctx context.Context, q queryable) (float64, error) {
			return queryTotalAmount(ctx, q, bounds)
		})
}

// millisRange is a copied, validated pair of optional bounds.
type millisRange struct {
	start, end int64
	bounded    bool
}

func newMillisRange(start, end *time.Time) millisRange {
	if start == nil || end == nil {
		return millisRange{}
	}
	return millisRange{start: toMillis(*start), end: toMillis(*end), bounded: true}
}

func (r millisRange) String() string {
	if !r.bounded {
		return "(all)"
	}
	return fmt.Sprintf("(%d..%d)", r.start, r.end)
}

func (r millisRange) where(column string) (string, []any) {
	if !r.bounded {
		return "", nil
	}
	return " WHERE " + column + " BETWEEN ? AND ?", []any{r.start, r.end}
}

func queryExpenses(ctx context.Context, q queryable) ([]model.Expense, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		ORDER BY created_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	expenses := []model.Expense{}
	for rows.Next() {
		exp, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	slog.DebugContext(ctx, "retrieved expenses", "count", len(expenses))
	return expenses, nil
}

func queryExpenseByID(ctx context.Context, q queryable, id uuid.UUID) (*model.Expense, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE expense_id = ?`, id)

	exp, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query expense: %w", err)
	}
	return &exp, nil
}

func queryExpensesWithCategory(ctx context.Context, q queryable, bounds millisRange) ([]model.ExpenseWithCategory, error) {
	where, args := bounds.where("e.created_date")
	query := `
		SELECT e.expense_id, e.category_id, e.name, e.amount, e.created_by, e.created_date, e.is_deleted,
		       c.category_id, c.name, c.created_by, c.created_date, c.is_deleted
		FROM expenses e
		INNER JOIN expense_categories c ON c.category_id = e.category_id` + where + `
		ORDER BY e.created_date ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses with category: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := []model.ExpenseWithCategory{}
	for rows.Next() {
		var row model.ExpenseWithCategory
		var expenseCreated, categoryCreated int64
		if err := rows.Scan(
			&row.Expense.ExpenseID, &row.Expense.CategoryID, &row.Expense.Name, &row.Expense.Amount,
			&row.Expense.CreatedBy, &expenseCreated, &row.Expense.IsDeleted,
			&row.Category.CategoryID, &row.Category.Name, &row.Category.CreatedBy,
			&categoryCreated, &row.Category.IsDeleted,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expense with category: %w", err)
		}
		row.Expense.CreatedDate = fromMillis(expenseCreated)
		row.Category.CreatedDate = fromMillis(categoryCreated)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses with category: %w", err)
	}

	slog.DebugContext(ctx, "retrieved expenses with category", "count", len(result), "range", bounds.String())
	return result, nil
}

func queryTotalAmount(ctx context.Context, q queryable, bounds millisRange) (float64, error) {
	where, args := bounds.where("created_date")

	var total float64
	err := q.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM expenses`+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return total, nil
}
