package filter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/expense-saver/internal/model"
	"github.com/Veraticus/expense-saver/internal/service"
)

// Page is one result of the listing and the range that produced it.
type Page struct {
	Range Range
	Items []model.ExpenseWithCategory
	Total float64
}

// Listing keeps a joined expense subscription matching its Filter. Every
// accepted selection replaces the subscription; results from the replaced
// one are dropped.
type Listing struct {
	ctx       context.Context
	repo      service.ExpenseRepository
	filter    *Filter
	stream    service.Stream[[]model.ExpenseWithCategory]
	pages     chan Page
	wg        sync.WaitGroup
	refreshMu sync.Mutex
	mu        sync.Mutex
	gen       uint64
	closed    bool
}

// NewListing subscribes to the listing for the filter's current range.
func NewListing(ctx context.Context, repo service.ExpenseRepository, filter *Filter) (*Listing, error) {
	if filter == nil {
		filter = New()
	}
	l := &Listing{
		ctx:    ctx,
		repo:   repo,
		filter: filter,
		pages:  make(chan Page, 1),
	}
	if err := l.refresh(); err != nil {
		return nil, err
	}
	return l, nil
}

// Updates delivers pages, newest only. It is closed by Close.
func (l *Listing) Updates() <-chan Page {
	return l.pages
}

// Range returns the filter's active range.
func (l *Listing) Range() Range {
	return l.filter.Current()
}

// Select applies a new range. It returns false, leaving the listing as it
// was, when end is before start.
func (l *Listing) Select(start, end time.Time) (bool, error) {
	if !l.filter.Select(start, end) {
		slog.DebugContext(l.ctx, "date range rejected", "start", start, "end", end)
		return false, nil
	}
	return true, l.refresh()
}

// Clear drops the date range and lists everything.
func (l *Listing) Clear() error {
	l.filter.Clear()
	return l.refresh()
}

// Close ends the active subscription and closes Updates.
func (l *Listing) Close() {
	l.refreshMu.Lock()
	defer l.refreshMu.Unlock()

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	stream := l.stream
	l.stream = nil
	l.mu.Unlock()

	if stream != nil {
		stream.Close()
	}
	l.wg.Wait()
	close(l.pages)
}

func (l *Listing) refresh() error {
	l.refreshMu.Lock()
	defer l.refreshMu.Unlock()

	r := l.filter.Current()
	start, end := r.Bounds()
	stream, err := l.repo.ExpensesWithCategory(l.ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to subscribe to listing for %s: %w", r, err)
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		stream.Close()
		return nil
	}
	l.gen++
	gen := l.gen
	previous := l.stream
	l.stream = stream
	select {
	case <-l.pages:
	default:
	}
	l.mu.Unlock()

	if previous != nil {
		previous.Close()
	}

	slog.DebugContext(l.ctx, "listing subscribed", "range", r.String())
	l.wg.Add(1)
	go l.forward(gen, r, stream)
	return nil
}

func (l *Listing) forward(gen uint64, r Range, stream service.Stream[[]model.ExpenseWithCategory]) {
	defer l.wg.Done()
	for rows := range stream.Updates() {
		l.emit(gen, Page{Range: r, Items: rows, Total: model.TotalAmount(rows)})
	}
}

func (l *Listing) emit(gen uint64, page Page) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || gen != l.gen {
		return
	}
	select {
	case <-l.pages:
	default:
	}
	l.pages <- page
}
