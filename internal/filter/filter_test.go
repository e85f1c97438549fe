package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/expense-saver/internal/repository"
	"github.com/Veraticus/expense-saver/internal/testutil"
)

func TestBetween(t *testing.T) {
	d1, d2 := testutil.Day(1), testutil.Day(2)

	r, ok := Between(d1, d2)
	require.True(t, ok)
	assert.True(t, r.Filtered())
	assert.Equal(t, d1, r.Start())
	assert.Equal(t, d2, r.End())

	r, ok = Between(d1, d1)
	assert.True(t, ok)
	assert.True(t, r.Contains(d1))

	r, ok = Between(d2, d1)
	assert.False(t, ok)
	assert.False(t, r.Filtered())
}

func TestRange_Contains(t *testing.T) {
	r, _ := Between(testutil.Day(2), testutil.Day(4))

	tests := []struct {
		at   time.Time
		name string
		want bool
	}{
		{name: "before", at: testutil.Day(1), want: false},
		{name: "start", at: testutil.Day(2), want: true},
		{name: "middle", at: testutil.Day(3), want: true},
		{name: "end", at: testutil.Day(4), want: true},
		{name: "just after end", at: testutil.Day(4).Add(time.Millisecond), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Contains(tt.at))
		})
	}

	assert.True(t, Unfiltered().Contains(testutil.Day(100)))
}

func TestRange_Bounds(t *testing.T) {
	start, end := Unfiltered().Bounds()
	assert.Nil(t, start)
	assert.Nil(t, end)

	r, _ := Between(testutil.Day(1), testutil.Day(3))
	start, end = r.Bounds()
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, testutil.Day(1), *start)
	assert.Equal(t, testutil.Day(3), *end)
	assert.Equal(t, "2024-03-01 to 2024-03-03", r.String())
	assert.Equal(t, "all dates", Unfiltered().String())
}

func TestFilter_StateMachine(t *testing.T) {
	f := New()
	assert.False(t, f.Current().Filtered())

	// Rejected while unfiltered: stays unfiltered.
	assert.False(t, f.Select(testutil.Day(5), testutil.Day(1)))
	assert.False(t, f.Current().Filtered())

	require.True(t, f.Select(testutil.Day(2), testutil.Day(4)))
	accepted := f.Current()
	assert.True(t, accepted.Filtered())

	// Rejected while filtered: keeps the previous range.
	assert.False(t, f.Select(testutil.Day(5), testutil.Day(1)))
	assert.Equal(t, accepted, f.Current())

	f.Clear()
	assert.False(t, f.Current().Filtered())
}

func nextPage(t *testing.T, l *Listing, match func(Page) bool) Page {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case page, ok := <-l.Updates():
			require.True(t, ok, "listing closed")
			if match == nil || match(page) {
				return page
			}
		case <-deadline:
			t.Fatal("timed out waiting for listing page")
		}
	}
}

func forRange(r Range) func(Page) bool {
	return func(p Page) bool { return p.Range == r }
}

func amounts(p Page) []float64 {
	out := make([]float64, 0, len(p.Items))
	for _, item := range p.Items {
		out = append(out, item.Expense.Amount)
	}
	return out
}

func TestListing(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.CategoryGroceries)
	for n := 1; n <= 5; n++ {
		db.AddExpense(testutil.CategoryGroceries, "item", float64(n), testutil.Day(n))
	}
	repo := repository.NewExpensesRepository(db.Storage)

	listing, err := NewListing(context.Background(), repo, New())
	require.NoError(t, err)
	defer listing.Close()

	page := nextPage(t, listing, nil)
	assert.False(t, page.Range.Filtered())
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, amounts(page))
	assert.InDelta(t, 15.0, page.Total, 1e-9)

	ok, err := listing.Select(testutil.Day(2), testutil.Day(4))
	require.NoError(t, err)
	require.True(t, ok)
	want, _ := Between(testutil.Day(2), testutil.Day(4))
	page = nextPage(t, listing, forRange(want))
	assert.Equal(t, []float64{2, 3, 4}, amounts(page))
	assert.InDelta(t, 9.0, page.Total, 1e-9)

	ok, err = listing.Select(testutil.Day(5), testutil.Day(1))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, want, listing.Range())

	db.AddExpense(testutil.CategoryGroceries, "late", 30, testutil.Day(3).Add(time.Hour))
	page = nextPage(t, listing, func(p Page) bool { return len(p.Items) == 4 })
	assert.Equal(t, want, page.Range)
	assert.Equal(t, []float64{2, 3, 30, 4}, amounts(page))

	// Outside the window: the pushed page still has the same rows.
	db.AddExpense(testutil.CategoryGroceries, "early", 100, testutil.Day(1))

	require.NoError(t, listing.Clear())
	page = nextPage(t, listing, forRange(Unfiltered()))
	assert.Len(t, page.Items, 7)
}

func TestListing_Close(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.CategoryGroceries)
	listing, err := NewListing(context.Background(), repository.NewExpensesRepository(db.Storage), nil)
	require.NoError(t, err)

	listing.Close()
	listing.Close()

	for range listing.Updates() {
	}
	_, open := <-listing.Updates()
	assert.False(t, open)

	ok, err := listing.Select(testutil.Day(1), testutil.Day(2))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListing_SubscribeError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	require.NoError(t, db.Storage.Close())

	_, err := NewListing(context.Background(), repository.NewExpensesRepository(db.Storage), New())
	assert.Error(t, err)
}
