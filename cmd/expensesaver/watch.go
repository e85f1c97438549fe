package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/expense-saver/internal/storage"
	"github.com/Veraticus/expense-saver/internal/tui"
)

func watchCmd(opts *rootOptions) *cobra.Command {
	var from, to, theme string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view of expenses that updates as they change",
		Long: `Open a full-screen listing of expenses and their total. The listing follows
every change made to the database, including ones from other expensesaver
processes (picked up from file events, or at the latest every
subscriptions.poll_interval). Use [ and ] to step through months, m for this month and c for
all dates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			start, end, err := parseRange(from, to)
			if err != nil {
				return err
			}

			a, err := opts.openApp(ctx, storage.WithExternalChanges(opts.cfg.PollInterval))
			if err != nil {
				return err
			}
			defer a.Close()

			return tui.RunWatch(ctx, tui.WatchConfig{
				Expenses:  a.expenses,
				Formatter: a.formatter,
				Start:     start,
				End:       end,
				Theme:     theme,
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day to show (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day to show (YYYY-MM-DD)")
	cmd.Flags().StringVar(&theme, "theme", "default", "color theme (default, catppuccin)")
	return cmd
}
