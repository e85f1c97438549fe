package storage

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Veraticus/expense-saver/internal/model"
)

// Subscription is a live query result. It holds the most recent result set
// and pushes every fresh one on Updates until it is closed.
//
// Updates is buffered with room for one value; a subscriber that falls behind
// only ever sees the newest result set, never a backlog.
type Subscription[T any] struct {
	latest    T
	err       error
	entry     *liveEntry
	obs       *observer
	updates   chan T
	done      chan struct{}
	mu        sync.Mutex
	closeOnce sync.Once
}

// Updates returns the channel of result sets. The current result is already
// waiting on it when the subscription is returned. The channel is closed when
// the subscription ends. Each subscription receives its own copy of a result
// set, so callers may sort or edit it.
func (s *Subscription[T]) Updates() <-chan T {
	return s.updates
}

// Latest returns the most recent result set and the last re-evaluation error.
func (s *Subscription[T]) Latest() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.err
}

// Err returns the error from the most recent re-evaluation, if it failed.
// The previous result stays current when that happens.
func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the subscription has ended.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Close stops delivery and releases the underlying live query. It is safe to
// call more than once.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		s.entry.detach(s.obs)
		s.finish()
	})
}

func (s *Subscription[T]) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.done)
	close(s.updates)
}

func (s *Subscription[T]) deliver(value any, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.err = err
		return
	}

	v, _ := value.(T)
	v = cloneResult(v)
	s.latest, s.err = v, nil

	select {
	case <-s.updates:
	default:
	}
	s.updates <- v
}

// subscribe registers a live query under key. Queries with the same key share
// one cached result and one evaluation per change.
func subscribe[T any](
	ctx context.Context,
	s *SQLiteStorage,
	key string,
	tables []string,
	run func(context.Context, queryable) (T, error),
) (*Subscription[T], error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	entry, err := s.live.acquire(key, tables, func(ctx context.Context) (any, error) {
		return run(ctx, s.db)
	})
	if err != nil {
		return nil, err
	}

	sub := &Subscription[T]{
		entry:   entry,
		updates: make(chan T, 1),
		done:    make(chan struct{}),
	}
	sub.obs = &observer{
		deliver:  sub.deliver,
		shutdown: func() { sub.closeOnce.Do(sub.finish) },
	}

	if err := entry.attach(ctx, sub.obs); err != nil {
		s.live.release(entry)
		return nil, err
	}

	if done := ctx.Done(); done != nil {
		go func() {
			select {
			case <-done:
				sub.Close()
			case <-sub.done:
			}
		}()
	}

	return sub, nil
}

// cloneResult copies a cached result so observers of one query never share
// backing arrays or pointed-to rows.
func cloneResult[T any](v T) T {
	var out any
	switch r := any(v).(type) {
	case []model.Expense:
		out = slices.Clone(r)
	case []model.ExpenseCategory:
		out = slices.Clone(r)
	case []model.ExpenseWithCategory:
		out = slices.Clone(r)
	case *model.Expense:
		if r == nil {
			return v
		}
		c := *r
		out = &c
	case *model.ExpenseCategory:
		if r == nil {
			return v
		}
		c := *r
		out = &c
	default:
		return v
	}
	return out.(T)
}

type observer struct {
	deliver  func(value any, err error)
	shutdown func()
}

// liveEntry is one query signature with its cached result and observers.
type liveEntry struct {
	value     any
	hub       *liveHub
	run       func(context.Context) (any, error)
	teardown  *time.Timer
	observers map[*observer]struct{}
	key       string
	tables    []string
	refs      int // guarded by hub.mu
	evals     int
	mu        sync.Mutex
	loaded    bool
	stale     bool
}

func (e *liveEntry) dependsOn(tables []string) bool {
	for _, table := range tables {
		if slices.Contains(e.tables, table) {
			return true
		}
	}
	return false
}

// evaluate runs the query. Callers hold e.mu.
func (e *liveEntry) evaluate(ctx context.Context) error {
	value, err := e.run(ctx)
	e.evals++
	if err != nil {
		e.stale = true
		return err
	}
	e.value, e.loaded, e.stale = value, true, false
	return nil
}

func (e *liveEntry) attach(ctx context.Context, o *observer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	// closeAll may have run since acquire; it collects observers under e.mu,
	// so an observer added after this check is still shut down.
	if e.hub.isClosed() {
		return ErrClosed
	}

	if !e.loaded || e.stale {
		if err := e.evaluate(ctx); err != nil {
			return err
		}
	} else {
		slog.DebugContext(ctx, "live query served from cache", "query", e.key)
	}

	e.observers[o] = struct{}{}
	o.deliver(e.value, nil)
	return nil
}

func (e *liveEntry) detach(o *observer) {
	e.mu.Lock()
	_, ok := e.observers[o]
	delete(e.observers, o)
	e.mu.Unlock()

	if ok {
		e.hub.release(e)
	}
}

// refresh re-runs the query for current observers. Without observers the
// cached result is only marked stale so a later subscriber re-queries.
func (e *liveEntry) refresh(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.observers) == 0 {
		e.stale = true
		return
	}

	if err := e.evaluate(ctx); err != nil {
		slog.WarnContext(ctx, "live query re-evaluation failed", "query", e.key, "error", err)
		for o := range e.observers {
			o.deliver(nil, err)
		}
		return
	}

	for o := range e.observers {
		o.deliver(e.value, nil)
	}
}

// liveHub tracks live queries by signature.
type liveHub struct {
	entries map[string]*liveEntry
	grace   time.Duration
	mu      sync.Mutex
	closed  bool
}

func newLiveHub(grace time.Duration) *liveHub {
	return &liveHub{
		entries: make(map[string]*liveEntry),
		grace:   grace,
	}
}

func (h *liveHub) acquire(key string, tables []string, run func(context.Context) (any, error)) (*liveEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	e, ok := h.entries[key]
	if !ok {
		e = &liveEntry{
			hub:       h,
			key:       key,
			tables:    tables,
			run:       run,
			observers: make(map[*observer]struct{}),
		}
		h.entries[key] = e
		slog.Debug("live query registered", "query", key)
	}

	if e.teardown != nil {
		e.teardown.Stop()
		e.teardown = nil
	}
	e.refs++
	return e, nil
}

func (h *liveHub) release(e *liveEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e.refs--
	if e.refs > 0 || h.closed {
		return
	}

	if h.grace <= 0 {
		h.drop(e)
		return
	}

	e.teardown = time.AfterFunc(h.grace, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if e.refs == 0 && h.entries[e.key] == e {
			h.drop(e)
		}
	})
}

// drop removes an unobserved entry. Callers hold h.mu.
func (h *liveHub) drop(e *liveEntry) {
	delete(h.entries, e.key)
	slog.Debug("live query released", "query", e.key)
}

func (h *liveHub) invalidate(ctx context.Context, tables ...string) {
	h.mu.Lock()
	affected := make([]*liveEntry, 0, len(h.entries))
	for _, e := range h.entries {
		if e.dependsOn(tables) {
			affected = append(affected, e)
		}
	}
	h.mu.Unlock()

	for _, e := range affected {
		e.refresh(ctx)
	}
}

func (h *liveHub) closeAll() {
	h.mu.Lock()
	h.closed = true
	entries := h.entries
	h.entries = make(map[string]*liveEntry)
	for _, e := range entries {
		if e.teardown != nil {
			e.teardown.Stop()
			e.teardown = nil
		}
	}
	h.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		observers := e.observers
		e.observers = make(map[*observer]struct{})
		e.mu.Unlock()

		for o := range observers {
			o.shutdown()
		}
	}
}

func (h *liveHub) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// size reports how many live queries are registered.
func (h *liveHub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
