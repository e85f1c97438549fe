package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/expense-saver/internal/cli"
	"github.com/Veraticus/expense-saver/internal/filter"
	"github.com/Veraticus/expense-saver/internal/tui/themes"
)

// Lines taken by the header, footer and help around the table.
const chromeHeight = 7

// Option configures the watch model.
type Option func(*Model)

// WithTheme sets the theme.
func WithTheme(theme themes.Theme) Option {
	return func(m *Model) {
		m.theme = theme
	}
}

// WithClock sets the clock used for month navigation.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		m.now = now
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(m *Model) {
		m.width = width
		m.height = height
	}
}

// Model holds the watch view state.
type Model struct {
	theme     themes.Theme
	listing   Listing
	formatter *cli.AmountFormatter
	now       func() time.Time
	lastError error
	status    string
	page      filter.Page
	help      help.Model
	keymap    KeyMap
	table     table.Model
	width     int
	height    int
	ready     bool
	quitting  bool
}

// NewModel creates a watch model over a live listing.
func NewModel(listing Listing, formatter *cli.AmountFormatter, opts ...Option) Model {
	m := Model{
		listing:   listing,
		formatter: formatter,
		theme:     themes.Default,
		keymap:    DefaultKeyMap(),
		help:      help.New(),
		now:       time.Now,
		width:     100,
		height:    30,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.formatter == nil {
		m.formatter, _ = cli.NewAmountFormatter(cli.DefaultLocale, "")
	}

	styles := table.DefaultStyles()
	styles.Header = m.theme.Header
	styles.Selected = m.theme.Selected
	m.table = table.New(
		table.WithColumns(columns(m.width)),
		table.WithFocused(true),
		table.WithStyles(styles),
	)
	m.handleResize()
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return waitForPage(m.listing.Updates())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.handleResize()
		return m, nil

	case pageMsg:
		m.page = msg.page
		m.ready = true
		m.table.SetRows(rows(msg.page, m.formatter))
		return m, waitForPage(m.listing.Updates())

	case listingClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case rangeSelectedMsg:
		switch {
		case msg.err != nil:
			m.lastError = msg.err
			m.status = ""
		case !msg.accepted:
			m.status = "range rejected: end is before start"
		default:
			m.lastError = nil
			m.status = ""
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.ForceQuit), key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		m.handleResize()
		return m, nil

	case key.Matches(msg, m.keymap.ThisMonth):
		return m, m.selectRange(monthOf(m.now()))

	case key.Matches(msg, m.keymap.PrevMonth):
		return m, m.shiftMonth(-1)

	case key.Matches(msg, m.keymap.NextMonth):
		return m, m.shiftMonth(1)

	case key.Matches(msg, m.keymap.ClearFilter):
		return m, m.clearRange()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) handleResize() {
	m.help.Width = m.width
	height := m.height - chromeHeight
	if m.help.ShowAll {
		height -= 3
	}
	m.table.SetHeight(max(height, 3))
	m.table.SetColumns(columns(m.width))
	m.table.SetWidth(m.width)
}

// Page returns the page currently shown.
func (m Model) Page() filter.Page {
	return m.page
}

// columns splits the terminal width between the listing columns.
func columns(width int) []table.Column {
	const (
		dateWidth     = 10
		amountWidth   = 16
		categoryWidth = 16
		padding       = 8
	)
	nameWidth := max(width-dateWidth-amountWidth-categoryWidth-padding, 12)
	return []table.Column{
		{Title: "Date", Width: dateWidth},
		{Title: "Name", Width: nameWidth},
		{Title: "Category", Width: categoryWidth},
		{Title: "Amount", Width: amountWidth},
	}
}

func rows(page filter.Page, f *cli.AmountFormatter) []table.Row {
	out := make([]table.Row, 0, len(page.Items))
	for _, item := range page.Items {
		out = append(out, table.Row{
			item.Expense.CreatedDate.Local().Format(cli.DateLayout),
			item.Expense.Name,
			item.Category.Name,
			f.Format(item.Expense.Amount),
		})
	}
	return out
}
