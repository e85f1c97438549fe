package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/expense-saver/internal/cli"
	"github.com/Veraticus/expense-saver/internal/common"
	"github.com/Veraticus/expense-saver/internal/engine"
	"github.com/Veraticus/expense-saver/internal/model"
	"github.com/Veraticus/expense-saver/internal/service"
)

func expensesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"expense", "e"},
		Short:   "Record and inspect expenses",
	}

	cmd.AddCommand(addExpenseCmd(opts))
	cmd.AddCommand(editExpenseCmd(opts))
	cmd.AddCommand(deleteExpenseCmd(opts))
	cmd.AddCommand(listExpensesCmd(opts))
	cmd.AddCommand(showExpenseCmd(opts))

	return cmd
}

type entryFlags struct {
	name     string
	amount   string
	category string
	date     string
	by       string
}

func (f *entryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "what the money was spent on")
	cmd.Flags().StringVarP(&f.amount, "amount", "a", "", "amount spent, e.g. 12345.5")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "category name; created if it does not exist")
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "date of the expense (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&f.by, "by", "", "who recorded the expense (default entry.created_by)")
}

// apply copies the flags the user set onto form.
func (f *entryFlags) apply(cmd *cobra.Command, form *engine.Form) error {
	flags := cmd.Flags()
	if flags.Changed("name") {
		form.Name = f.name
	}
	if flags.Changed("amount") {
		form.Amount = f.amount
	}
	if flags.Changed("category") {
		form.CategoryName = f.category
	}
	if flags.Changed("by") {
		form.CreatedBy = f.by
	}
	if flags.Changed("date") {
		date, err := parseDate(f.date)
		if err != nil {
			return err
		}
		form.CreatedDate = date
	}
	return nil
}

func addExpenseCmd(opts *rootOptions) *cobra.Command {
	var flags entryFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new expense",
		Example: `  expensesaver expenses add --name "Nasi goreng" --amount 25000 --category Food
  expensesaver expenses add -n Taxi -a 48000.5 -c Travel -d 2024-03-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			form := engine.NewForm()
			form.CreatedBy = a.createdBy
			if err := flags.apply(cmd, &form); err != nil {
				return err
			}

			saved, err := a.service.SaveNew(ctx, form)
			if err != nil {
				return err
			}
			if !saved {
				return common.NewUserError("expense not saved", form.Validate())
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Saved %s (%s) in %s as %s",
				form.Name, a.formatter.Format(engine.ParseAmount(form.Amount)), form.CategoryName, form.ExpenseID)))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func editExpenseCmd(opts *rootOptions) *cobra.Command {
	var flags entryFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a recorded expense",
		Long: `Change fields of a recorded expense. Only the flags given are changed; a new
category name is resolved exactly like when adding.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			form, found, err := a.service.LoadForEdit(ctx, id)
			if err != nil {
				return err
			}
			if !found {
				return common.NewUserError(fmt.Sprintf("expense %s", id), common.ErrNotFound)
			}
			if err := flags.apply(cmd, &form); err != nil {
				return err
			}

			var saved bool
			if cmd.Flags().Changed("category") {
				saved, err = a.service.SaveEdit(ctx, form)
			} else {
				saved, err = a.service.UpdateExisting(ctx, form)
			}
			if err != nil {
				return err
			}
			if !saved {
				return common.NewUserError("expense not saved", form.Validate())
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Updated "+id.String()))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func deleteExpenseCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recorded expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			existing, err := a.store.GetExpenseByID(ctx, id)
			if err != nil {
				return err
			}
			if existing == nil {
				return common.NewUserError(fmt.Sprintf("expense %s", id), common.ErrNotFound)
			}

			if !yes {
				ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), cmd.OutOrStdout(),
					fmt.Sprintf("Delete %q (%s)?", existing.Name, a.formatter.Format(existing.Amount)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Nothing deleted."))
					return nil
				}
			}

			if err := a.service.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted "+id.String()))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func listExpensesCmd(opts *rootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses with their categories",
		Example: `  expensesaver expenses list
  expensesaver expenses list --from 2024-03-01 --to 2024-03-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			start, end, err := parseRange(from, to)
			if err != nil {
				return err
			}

			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			stream, err := a.expenses.ExpensesWithCategory(ctx, start, end)
			if err != nil {
				return err
			}
			rows, err := service.First(stream)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderExpenses(rows, model.TotalAmount(rows), a.formatter))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day to include (YYYY-MM-DD)")
	return cmd
}

func showExpenseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			form, found, err := a.service.LoadForEdit(ctx, id)
			if err != nil {
				return err
			}
			if !found {
				return common.NewUserError(fmt.Sprintf("expense %s", id), common.ErrNotFound)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Name:       %s\n", form.Name)
			fmt.Fprintf(&b, "Amount:     %s\n", a.formatter.Format(engine.ParseAmount(form.Amount)))
			fmt.Fprintf(&b, "Category:   %s\n", form.CategoryName)
			fmt.Fprintf(&b, "Date:       %s\n", form.CreatedDate.Local().Format(cli.DateLayout))
			fmt.Fprintf(&b, "Created by: %s\n", form.CreatedBy)
			fmt.Fprintf(&b, "ID:         %s", form.ExpenseID)
			if form.IsDeleted {
				b.WriteString("\n" + cli.WarningStyle.Render("marked deleted"))
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Expense", b.String()))
			return nil
		},
	}
}
