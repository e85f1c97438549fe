package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/expense-saver/internal/cli"
	"github.com/Veraticus/expense-saver/internal/common"
	"github.com/Veraticus/expense-saver/internal/engine"
	"github.com/Veraticus/expense-saver/internal/model"
	"github.com/Veraticus/expense-saver/internal/ofx"
)

const defaultImportCategory = "Imported"

type importOptions struct {
	category string
	workers  int
	dryRun   bool
}

func importOFXCmd(opts *rootOptions) *cobra.Command {
	var imp importOptions

	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import expenses from OFX/QFX statements",
		Long: `Import the debits of OFX or QFX (Quicken) statements exported from your bank
as expenses. Credits are skipped. Importing the same statement twice does not
duplicate expenses.

Examples:
  # Import single file
  expensesaver import-ofx ~/Downloads/bca_jan_2024.qfx

  # Import all statements of a directory into one category
  expensesaver import-ofx --category Groceries ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportOFX(cmd, opts, imp, args)
		},
	}

	cmd.Flags().StringVar(&imp.category, "category", defaultImportCategory, "category for imported expenses; created if missing")
	cmd.Flags().BoolVarP(&imp.dryRun, "dry-run", "d", false, "preview import without saving")
	cmd.Flags().IntVar(&imp.workers, "workers", 4, "files parsed in parallel")
	return cmd
}

// expandFiles resolves glob patterns; patterns without matches are kept
// when they name an existing file.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		} else {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
	}
	return files, nil
}

func runImportOFX(cmd *cobra.Command, opts *rootOptions, imp importOptions, args []string) error {
	files, err := expandFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return common.NewUserError("no files found to import", nil)
	}

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Interrupted, stopping import...")
	ctx := interrupts.HandleInterrupts(cmd.Context())
	defer interrupts.Stop()

	slog.Info("Importing OFX files", "file_count", len(files), "dry_run", imp.dryRun)

	forms, failed, err := parseStatements(ctx, cmd.ErrOrStderr(), files, imp.workers)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(forms) == 0 {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("No expenses found in %d files (%d unreadable)", len(files), failed)))
		return nil
	}

	for i := range forms {
		forms[i].CategoryName = imp.category
	}

	if imp.dryRun {
		f, err := cli.NewAmountFormatter(opts.cfg.Locale, opts.cfg.CurrencySymbol)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.RenderExpenses(previewRows(forms), totalOf(forms), f))
		fmt.Fprintln(out, cli.FormatInfo("Dry run complete - no data saved"))
		return nil
	}

	a, err := opts.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	saved, err := saveImported(ctx, cmd.ErrOrStderr(), a, forms)
	if err != nil {
		return err
	}
	if interrupts.WasInterrupted() {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Import interrupted after %d of %d expenses", saved, len(forms))))
		return nil
	}

	common.LogInfo("OFX import finished", common.Fields{
		"saved":    saved,
		"parsed":   len(forms),
		"files":    len(files),
		"failed":   failed,
		"category": imp.category,
	})
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d expenses (%s) from %d files into %q",
		saved, a.formatter.Format(totalOf(forms)), len(files)-failed, imp.category)))
	return nil
}

// parseStatements parses files concurrently and returns their forms in file
// order. Unreadable files are logged and counted, not fatal.
func parseStatements(ctx context.Context, w io.Writer, files []string, workers int) ([]engine.Form, int, error) {
	parser := ofx.NewParser()
	results := make([][]engine.Form, len(files))
	var failed atomic.Int32

	bar := newProgressBar(w, len(files), "Parsing statements...")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i, path := range files {
		g.Go(func() error {
			defer func() { _ = bar.Add(1) }()

			forms, err := parseFile(gctx, parser, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				common.LogError(err, "Failed to parse OFX file", common.Fields{"file": path})
				failed.Add(1)
				return nil
			}
			if len(forms) == 0 {
				slog.Warn("No expenses found in file", "file", filepath.Base(path))
			}
			results[i] = forms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var forms []engine.Form
	for _, r := range results {
		forms = append(forms, r...)
	}
	return forms, int(failed.Load()), nil
}

func parseFile(ctx context.Context, parser *ofx.Parser, path string) ([]engine.Form, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parser.ParseFile(ctx, f)
}

// saveImported stores forms one by one until done or interrupted.
func saveImported(ctx context.Context, w io.Writer, a *app, forms []engine.Form) (int, error) {
	bar := newProgressBar(w, len(forms), "Saving expenses...")
	saved := 0
	for _, form := range forms {
		if ctx.Err() != nil {
			break
		}
		ok, err := a.service.SaveNew(ctx, form)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return saved, err
		}
		if ok {
			saved++
		} else {
			slog.Warn("Skipping invalid imported expense", "id", form.ExpenseID.String(), "name", form.Name)
		}
		_ = bar.Add(1)
	}
	return saved, nil
}

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
}

func previewRows(forms []engine.Form) []model.ExpenseWithCategory {
	rows := make([]model.ExpenseWithCategory, 0, len(forms))
	for _, form := range forms {
		rows = append(rows, model.ExpenseWithCategory{
			Category: model.ExpenseCategory{Name: form.CategoryName},
			Expense:  form.ToExpense(uuid.Nil),
		})
	}
	return rows
}

func totalOf(forms []engine.Form) float64 {
	var total float64
	for _, form := range forms {
		total += engine.ParseAmount(form.Amount)
	}
	return total
}
