// Package engine turns entry forms into stored expenses, resolving the typed
// category name to a category on the way.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/expense-saver/internal/model"
	"github.com/Veraticus/expense-saver/internal/service"
)

// Service saves, edits and deletes expenses through the repositories.
type Service struct {
	categories service.CategoryRepository
	expenses   service.ExpenseRepository
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used to stamp auto-created categories.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a Service over the given repositories.
func New(categories service.CategoryRepository, expenses service.ExpenseRepository, opts ...Option) *Service {
	s := &Service{
		categories: categories,
		expenses:   expenses,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveCategory finds the category named exactly name. When there is none,
// it returns a new category record, not yet stored, along with its ID.
//
// Two callers resolving the same new name at once can both get a new record.
func (s *Service) ResolveCategory(ctx context.Context, name string) (uuid.UUID, *model.ExpenseCategory, error) {
	lookup, err := s.categories.CategoryByName(ctx, name)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to look up category %q: %w", name, err)
	}
	existing, err := service.First(lookup)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to look up category %q: %w", name, err)
	}
	if existing != nil {
		return existing.CategoryID, nil, nil
	}

	created := &model.ExpenseCategory{
		CategoryID:  model.NewID(),
		Name:        name,
		CreatedBy:   model.SystemAuthor,
		CreatedDate: s.now(),
	}
	slog.DebugContext(ctx, "category not found, creating", "name", name, "id", created.CategoryID.String())
	return created.CategoryID, created, nil
}

// SaveNew stores a new expense from the form. It returns false without error
// when the form is invalid; nothing is written then.
func (s *Service) SaveNew(ctx context.Context, form Form) (bool, error) {
	if err := form.Validate(); err != nil {
		slog.DebugContext(ctx, "entry not saved", "error", err)
		return false, nil
	}

	categoryID, created, err := s.ResolveCategory(ctx, form.CategoryName)
	if err != nil {
		return false, err
	}

	expense := form.ToExpense(categoryID)
	if created != nil {
		err = s.expenses.InsertCategoryWithExpense(ctx, created, &expense)
	} else {
		err = s.expenses.InsertExpense(ctx, &expense)
	}
	if err != nil {
		return false, fmt.Errorf("failed to save expense: %w", err)
	}

	slog.InfoContext(ctx, "saved expense",
		"id", expense.ExpenseID.String(),
		"category", form.CategoryName,
		"new_category", created != nil)
	return true, nil
}

// SaveEdit applies an edited form to the stored expense, resolving the
// category name again. An edit of an expense that no longer exists writes
// nothing to the expense table.
func (s *Service) SaveEdit(ctx context.Context, form Form) (bool, error) {
	if err := form.Validate(); err != nil {
		slog.DebugContext(ctx, "edit not saved", "error", err)
		return false, nil
	}

	categoryID, created, err := s.ResolveCategory(ctx, form.CategoryName)
	if err != nil {
		return false, err
	}
	if created != nil {
		if err := s.categories.InsertCategory(ctx, created); err != nil {
			return false, fmt.Errorf("failed to create category %q: %w", created.Name, err)
		}
	}

	expense := form.ToExpense(categoryID)
	if err := s.expenses.UpdateExpense(ctx, &expense); err != nil {
		return false, fmt.Errorf("failed to update expense: %w", err)
	}

	slog.InfoContext(ctx, "updated expense", "id", expense.ExpenseID.String(), "category", form.CategoryName)
	return true, nil
}

// UpdateExisting writes the form back under the category ID it already
// carries, without looking the category name up.
func (s *Service) UpdateExisting(ctx context.Context, form Form) (bool, error) {
	if err := form.Validate(); err != nil {
		return false, nil
	}

	expense := form.ToExpense(form.CategoryID)
	if err := s.expenses.UpdateExpense(ctx, &expense); err != nil {
		return false, fmt.Errorf("failed to update expense: %w", err)
	}
	return true, nil
}

// LoadForEdit builds an edit form for the stored expense. The second result
// is false when no expense has that ID. A missing category leaves the
// category name empty.
func (s *Service) LoadForEdit(ctx context.Context, id uuid.UUID) (Form, bool, error) {
	byID, err := s.expenses.ExpenseByID(ctx, id)
	if err != nil {
		return Form{}, false, fmt.Errorf("failed to load expense: %w", err)
	}
	expense, err := service.First(byID)
	if err != nil {
		return Form{}, false, fmt.Errorf("failed to load expense: %w", err)
	}
	if expense == nil {
		return Form{}, false, nil
	}

	catByID, err := s.categories.CategoryByID(ctx, expense.CategoryID)
	if err != nil {
		return Form{}, false, fmt.Errorf("failed to load category: %w", err)
	}
	category, err := service.First(catByID)
	if err != nil {
		return Form{}, false, fmt.Errorf("failed to load category: %w", err)
	}

	var categoryName string
	if category != nil {
		categoryName = category.Name
	}
	return FormFromExpense(*expense, categoryName), true, nil
}

// Delete removes the expense with the given ID.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.expenses.DeleteExpense(ctx, &model.Expense{ExpenseID: id}); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}
