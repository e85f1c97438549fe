package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Veraticus/expense-saver/internal/model"
)

// DateLayout is how dates are shown and accepted on the command line.
const DateLayout = "2006-01-02"

const amountColumn = 3

// RenderExpenses renders joined expenses as a table followed by their total.
func RenderExpenses(rows []model.ExpenseWithCategory, total float64, f *AmountFormatter) string {
	if len(rows) == 0 {
		return SubtleStyle.Render("No expenses.")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtleStyle).
		Headers("DATE", "NAME", "CATEGORY", "AMOUNT", "ID").
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true).Foreground(PrimaryColor)
			}
			if col == amountColumn {
				return style.Align(lipgloss.Right)
			}
			return style
		})

	for _, row := range rows {
		t.Row(
			row.Expense.CreatedDate.Local().Format(DateLayout),
			row.Expense.Name,
			row.Category.Name,
			f.Format(row.Expense.Amount),
			row.Expense.ExpenseID.String(),
		)
	}

	var b strings.Builder
	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(BoldStyle.Render(fmt.Sprintf("Total: %s", f.Format(total))))
	b.WriteString(SubtleStyle.Render(fmt.Sprintf("  (%d expenses)", len(rows))))
	return b.String()
}

// RenderCategories renders categories as a table.
func RenderCategories(categories []model.ExpenseCategory) string {
	if len(categories) == 0 {
		return SubtleStyle.Render("No categories.")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtleStyle).
		Headers("NAME", "CREATED BY", "CREATED", "ID").
		StyleFunc(func(row, _ int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true).Foreground(PrimaryColor)
			}
			return style
		})

	for _, c := range categories {
		t.Row(c.Name, c.CreatedBy, c.CreatedDate.Local().Format(DateLayout), c.CategoryID.String())
	}
	return t.String()
}
