package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/expense-saver/internal/cli"
)

// View renders the model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return m.renderLoading()
	}

	sections := []string{
		m.renderHeader(),
		m.theme.BorderedBox.Render(m.renderBody()),
		m.renderFooter(),
		m.help.View(m.keymap),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderLoading() string {
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		m.theme.StatusPending.Render("Loading expenses..."),
	)
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render(cli.MoneyIcon + " Expenses")
	rangeText := m.theme.Subtitle.Render(m.page.Range.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", rangeText)
}

func (m Model) renderBody() string {
	if len(m.page.Items) == 0 {
		return m.theme.StatusPending.Render("No expenses in this range.")
	}
	return m.table.View()
}

func (m Model) renderFooter() string {
	var b strings.Builder
	b.WriteString(m.theme.Bold.Render("Total: "))
	b.WriteString(m.theme.Amount.Render(m.formatter.Format(m.page.Total)))
	b.WriteString(lipgloss.NewStyle().Foreground(m.theme.Muted).
		Render(fmt.Sprintf("  (%d expenses)", len(m.page.Items))))

	switch {
	case m.lastError != nil:
		b.WriteString("  ")
		b.WriteString(m.theme.StatusError.Render(m.lastError.Error()))
	case m.status != "":
		b.WriteString("  ")
		b.WriteString(m.theme.StatusWarning.Render(m.status))
	}
	return b.String()
}
