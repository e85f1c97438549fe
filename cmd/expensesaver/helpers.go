package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Veraticus/expense-saver/internal/cli"
	"github.com/Veraticus/expense-saver/internal/common"
	"github.com/Veraticus/expense-saver/internal/engine"
	"github.com/Veraticus/expense-saver/internal/model"
	"github.com/Veraticus/expense-saver/internal/repository"
	"github.com/Veraticus/expense-saver/internal/storage"
)

// app bundles the storage stack a command works with.
type app struct {
	store      *storage.SQLiteStorage
	categories *repository.OfflineCategoriesRepository
	expenses   *repository.OfflineExpensesRepository
	service    *engine.Service
	formatter  *cli.AmountFormatter
	createdBy  string
}

// openApp opens and migrates the configured database. extra adds storage
// options on top of the configured ones.
func (o *rootOptions) openApp(ctx context.Context, extra ...storage.Option) (*app, error) {
	formatter, err := cli.NewAmountFormatter(o.cfg.Locale, o.cfg.CurrencySymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	storeOpts := append([]storage.Option{storage.WithGracePeriod(o.cfg.GracePeriod)}, extra...)
	store, err := storage.NewSQLiteStorage(o.cfg.DatabasePath, storeOpts...)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	categories := repository.NewCategoriesRepository(store)
	expenses := repository.NewExpensesRepository(store)

	createdBy := o.cfg.CreatedBy
	if createdBy == "" {
		createdBy = model.SystemAuthor
	}

	return &app{
		store:      store,
		categories: categories,
		expenses:   expenses,
		service:    engine.New(categories, expenses),
		formatter:  formatter,
		createdBy:  createdBy,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

func parseID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, common.NewUserError(fmt.Sprintf("%q is not a valid id", arg), err)
	}
	return id, nil
}
