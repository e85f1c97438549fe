// Package testutil provides test utilities for the expense-saver project.
// It sets up isolated, migrated stores and seeds them with categories and
// expenses.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/expense-saver/internal/model"
	"github.com/Veraticus/expense-saver/internal/storage"
)

// Common category names used across tests.
const (
	CategoryGroceries      = "Groceries"
	CategoryFoodDining     = "Food & Dining"
	CategoryTransportation = "Transportation"
	CategoryUtilities      = "Utilities"
	CategoryEntertainment  = "Entertainment"
)

// BaseTime is the fixed, millisecond aligned UTC instant fixtures are built around.
var BaseTime = time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

// Day returns BaseTime shifted to the n-th day, with Day(1) == BaseTime.
func Day(n int) time.Time {
	return BaseTime.AddDate(0, 0, n-1)
}

// TestDB is a migrated store plus the categories seeded into it.
type TestDB struct {
	Storage    *storage.SQLiteStorage
	t          *testing.T
	Categories map[string]model.ExpenseCategory
}

// SetupTestStore creates a migrated SQLite store under t.TempDir().
// The store is closed when the test ends.
//
// A file is used instead of ":memory:" because migrations run on their own
// connection, and every in-memory connection is a separate database.
func SetupTestStore(t *testing.T, opts ...storage.Option) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "expenses.db"), opts...)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return store
}

// SetupTestDB creates a migrated store seeded with the named categories.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.CategoryGroceries, testutil.CategoryUtilities)
//	exp := db.AddExpense(testutil.CategoryGroceries, "Milk", 3.5, testutil.Day(2))
func SetupTestDB(t *testing.T, categoryNames ...string) *TestDB {
	t.Helper()

	db := &TestDB{
		Storage:    SetupTestStore(t),
		Categories: make(map[string]model.ExpenseCategory, len(categoryNames)),
		t:          t,
	}
	for _, name := range categoryNames {
		db.AddCategory(name)
	}
	return db
}

// AddCategory inserts a category with a fresh ID.
func (db *TestDB) AddCategory(name string) model.ExpenseCategory {
	db.t.Helper()

	cat := model.ExpenseCategory{
		CategoryID:  uuid.New(),
		Name:        name,
		CreatedBy:   model.SystemAuthor,
		CreatedDate: BaseTime,
	}
	if err := db.Storage.InsertCategory(context.Background(), &cat); err != nil {
		db.t.Fatalf("failed to seed category %q: %v", name, err)
	}
	db.Categories[name] = cat
	return cat
}

// MustGetCategory returns a seeded category or fails the test.
func (db *TestDB) MustGetCategory(name string) model.ExpenseCategory {
	db.t.Helper()

	cat, ok := db.Categories[name]
	if !ok {
		db.t.Fatalf("category %q was not seeded", name)
	}
	return cat
}

// AddExpense inserts an expense under a seeded category.
func (db *TestDB) AddExpense(categoryName, name string, amount float64, created time.Time) model.Expense {
	db.t.Helper()

	exp := model.Expense{
		ExpenseID:   uuid.New(),
		CategoryID:  db.MustGetCategory(categoryName).CategoryID,
		Name:        name,
		Amount:      amount,
		CreatedDate: created,
	}
	if err := db.Storage.InsertExpense(context.Background(), &exp); err != nil {
		db.t.Fatalf("failed to seed expense %q: %v", name, err)
	}
	return exp
}
