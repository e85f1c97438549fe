package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/expense-saver/internal/cli"
	"github.com/Veraticus/expense-saver/internal/filter"
	"github.com/Veraticus/expense-saver/internal/service"
	"github.com/Veraticus/expense-saver/internal/tui/themes"
)

// WatchConfig holds the configuration for the live expense view.
type WatchConfig struct {
	Expenses  service.ExpenseRepository
	Formatter *cli.AmountFormatter
	Start     *time.Time
	End       *time.Time
	Theme     string
}

// RunWatch shows a live listing of expenses until the user quits or ctx ends.
func RunWatch(ctx context.Context, cfg WatchConfig) error {
	if cfg.Expenses == nil {
		return fmt.Errorf("expense repository is required")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := filter.New()
	if cfg.Start != nil && cfg.End != nil && !f.Select(*cfg.Start, *cfg.End) {
		return fmt.Errorf("invalid date range: %s is after %s",
			cfg.Start.Format(cli.DateLayout), cfg.End.Format(cli.DateLayout))
	}

	listing, err := filter.NewListing(ctx, cfg.Expenses, f)
	if err != nil {
		return err
	}
	defer listing.Close()

	m := NewModel(listing, cfg.Formatter, WithTheme(themes.ByName(cfg.Theme)))
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			slog.DebugContext(ctx, "watch interrupted")
			return nil
		}
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
