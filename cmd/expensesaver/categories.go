package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/expense-saver/internal/cli"
	"github.com/Veraticus/expense-saver/internal/common"
	"github.com/Veraticus/expense-saver/internal/model"
	"github.com/Veraticus/expense-saver/internal/service"
)

func categoriesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "c"},
		Short:   "Manage expense categories",
		Long: `List, add, inspect and delete expense categories. Categories are also
created on the fly when an expense names one that does not exist yet.`,
	}

	cmd.AddCommand(listCategoriesCmd(opts))
	cmd.AddCommand(addCategoryCmd(opts))
	cmd.AddCommand(deleteCategoryCmd(opts))
	cmd.AddCommand(showCategoryCmd(opts))

	return cmd
}

func listCategoriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			categories, err := a.store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			if len(categories) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("No categories found. Use 'expensesaver categories add' to create one."))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderCategories(categories))
			return nil
		},
	}
}

func addCategoryCmd(opts *rootOptions) *cobra.Command {
	var by string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]
			if strings.TrimSpace(name) == "" {
				return common.NewUserError("category name must not be blank", nil)
			}

			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			existing, err := a.store.GetCategoryByName(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to check existing category: %w", err)
			}
			if existing != nil {
				return common.NewUserError(fmt.Sprintf("category %q already exists", name), nil)
			}

			if by == "" {
				by = a.createdBy
			}
			category := &model.ExpenseCategory{
				CategoryID:  model.NewID(),
				Name:        name,
				CreatedBy:   by,
				CreatedDate: time.Now(),
			}
			if err := a.categories.InsertCategory(ctx, category); err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created category %q (%s)", name, category.CategoryID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&by, "by", "", "who created the category (default entry.created_by)")
	return cmd
}

func deleteCategoryCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a category and every expense in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			category, err := a.store.GetCategoryByName(ctx, args[0])
			if err != nil {
				return err
			}
			if category == nil {
				return common.NewUserError(fmt.Sprintf("category %q", args[0]), common.ErrNotFound)
			}

			rows, err := categoryExpenses(ctx, a, category)
			if err != nil {
				return err
			}

			if !yes {
				question := fmt.Sprintf("Delete category %q?", category.Name)
				if len(rows) > 0 {
					question = fmt.Sprintf("Delete category %q and its %d expenses (%s)?",
						category.Name, len(rows), a.formatter.Format(model.TotalAmount(rows)))
				}
				ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), cmd.OutOrStdout(), question)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Nothing deleted."))
					return nil
				}
			}

			if err := a.categories.DeleteCategory(ctx, category); err != nil {
				return fmt.Errorf("failed to delete category: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted category %q and %d expenses", category.Name, len(rows))))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func showCategoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a category and its expenses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			category, err := a.store.GetCategoryByName(ctx, args[0])
			if err != nil {
				return err
			}
			if category == nil {
				return common.NewUserError(fmt.Sprintf("category %q", args[0]), common.ErrNotFound)
			}

			rows, err := categoryExpenses(ctx, a, category)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle(category.Name))
			fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("%s, created by %s on %s",
				category.CategoryID, category.CreatedBy, category.CreatedDate.Local().Format(cli.DateLayout))))
			fmt.Fprintln(out, cli.RenderExpenses(rows, model.TotalAmount(rows), a.formatter))
			return nil
		},
	}
}

// categoryExpenses returns the joined rows that belong to category.
func categoryExpenses(ctx context.Context, a *app, category *model.ExpenseCategory) ([]model.ExpenseWithCategory, error) {
	stream, err := a.expenses.ExpensesWithCategory(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	all, err := service.First(stream)
	if err != nil {
		return nil, err
	}

	var rows []model.ExpenseWithCategory
	for _, row := range all {
		if row.Category.CategoryID == category.CategoryID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
