package tui

import (
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/expense-saver/internal/cli"
	"github.com/Veraticus/expense-saver/internal/filter"
	"github.com/Veraticus/expense-saver/internal/model"
)

type fakeListing struct {
	updates  chan filter.Page
	clearErr error
	current  filter.Range
	selected [][2]time.Time
	mu       sync.Mutex
	cleared  int
}

func newFakeListing() *fakeListing {
	return &fakeListing{updates: make(chan filter.Page, 1), current: filter.Unfiltered()}
}

func (f *fakeListing) Updates() <-chan filter.Page { return f.updates }

func (f *fakeListing) Range() filter.Range {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeListing) Select(start, end time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, [2]time.Time{start, end})
	r, ok := filter.Between(start, end)
	if ok {
		f.current = r
	}
	return ok, nil
}

func (f *fakeListing) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	f.current = filter.Unfiltered()
	return f.clearErr
}

var clock = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T, l *fakeListing) Model {
	t.Helper()
	f, err := cli.NewAmountFormatter(cli.DefaultLocale, "Rp ")
	require.NoError(t, err)
	return NewModel(l, f, WithClock(func() time.Time { return clock }), WithSize(120, 40))
}

func samplePage() filter.Page {
	food := model.ExpenseCategory{CategoryID: uuid.New(), Name: "Food"}
	return filter.Page{
		Range: filter.Unfiltered(),
		Items: []model.ExpenseWithCategory{
			{Category: food, Expense: model.Expense{Name: "Lunch", Amount: 12345.5, CreatedDate: clock}},
			{Category: food, Expense: model.Expense{Name: "Coffee", Amount: 20000, CreatedDate: clock}},
		},
		Total: 32345.5,
	}
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_PageRendersAndRewaits(t *testing.T) {
	l := newFakeListing()
	m := newTestModel(t, l)
	assert.Contains(t, m.View(), "Loading")

	updated, cmd := m.Update(pageMsg{page: samplePage()})
	m = updated.(Model)
	require.NotNil(t, cmd)

	view := m.View()
	assert.Contains(t, view, "Lunch")
	assert.Contains(t, view, "Coffee")
	assert.Contains(t, view, "Rp 32.346")
	assert.Contains(t, view, "all dates")
	assert.Len(t, m.Page().Items, 2)

	next := samplePage()
	next.Items = next.Items[:1]
	l.updates <- next
	msg := cmd()
	require.IsType(t, pageMsg{}, msg)
	assert.Len(t, msg.(pageMsg).page.Items, 1)
}

func TestModel_ListingClosedQuits(t *testing.T) {
	l := newFakeListing()
	m := newTestModel(t, l)

	close(l.updates)
	msg := m.Init()()
	assert.Equal(t, listingClosedMsg{}, msg)

	updated, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, updated.View())
}

func TestModel_MonthNavigation(t *testing.T) {
	l := newFakeListing()
	m := newTestModel(t, l)

	_, cmd := m.Update(keyMsg("m"))
	require.NotNil(t, cmd)
	assert.Equal(t, rangeSelectedMsg{accepted: true}, cmd())

	marchStart := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	marchEnd := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond)
	require.Len(t, l.selected, 1)
	assert.Equal(t, [2]time.Time{marchStart, marchEnd}, l.selected[0])

	_, cmd = m.Update(keyMsg("["))
	cmd()
	require.Len(t, l.selected, 2)
	assert.Equal(t, time.February, l.selected[1][0].Month())
	assert.Equal(t, 29, l.selected[1][1].Day())

	_, cmd = m.Update(keyMsg("]"))
	cmd()
	_, cmd = m.Update(keyMsg("]"))
	cmd()
	require.Len(t, l.selected, 4)
	assert.Equal(t, time.April, l.selected[3][0].Month())
}

func TestModel_NextMonthFromUnfilteredUsesClock(t *testing.T) {
	l := newFakeListing()
	m := newTestModel(t, l)

	_, cmd := m.Update(keyMsg("]"))
	cmd()
	require.Len(t, l.selected, 1)
	assert.Equal(t, time.April, l.selected[0][0].Month())
}

func TestModel_ClearFilter(t *testing.T) {
	l := newFakeListing()
	l.clearErr = errors.New("store closed")
	m := newTestModel(t, l)

	_, cmd := m.Update(keyMsg("c"))
	msg := cmd()
	assert.Equal(t, 1, l.cleared)

	updated, _ := m.Update(pageMsg{page: samplePage()})
	updated, _ = updated.Update(msg)
	assert.Contains(t, updated.View(), "store closed")
}

func TestModel_RejectedRange(t *testing.T) {
	l := newFakeListing()
	m := newTestModel(t, l)

	updated, _ := m.Update(pageMsg{page: samplePage()})
	updated, _ = updated.Update(rangeSelectedMsg{accepted: false})
	assert.Contains(t, updated.View(), "range rejected")

	updated, _ = updated.Update(rangeSelectedMsg{accepted: true})
	assert.NotContains(t, updated.View(), "range rejected")
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, newFakeListing())

	updated, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, updated.(Model).quitting)
}

func TestModel_EmptyPage(t *testing.T) {
	m := newTestModel(t, newFakeListing())

	updated, _ := m.Update(pageMsg{page: filter.Page{Range: filter.Unfiltered()}})
	assert.Contains(t, updated.View(), "No expenses in this range.")
}

func TestModel_Resize(t *testing.T) {
	m := newTestModel(t, newFakeListing())

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	resized := updated.(Model)
	assert.Equal(t, 60, resized.width)
	assert.Equal(t, 60, resized.help.Width)
	assert.Less(t, resized.table.Height(), 20-chromeHeight+1)
}

func TestMonthOf(t *testing.T) {
	start, end := monthOf(time.Date(2024, time.December, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond), end)
}
