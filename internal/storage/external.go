package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is how often the data version is checked when file
// events are unavailable or missed.
const DefaultPollInterval = 2 * time.Second

// WithExternalChanges makes live queries follow commits made through other
// connections to the same file, such as another expensesaver process.
// Changes are picked up from file events on the database and its WAL, with
// a poll every interval as a fallback. A non-positive interval uses
// DefaultPollInterval.
func WithExternalChanges(interval time.Duration) Option {
	return func(s *SQLiteStorage) {
		s.external = true
		s.poll = interval
		if s.poll <= 0 {
			s.poll = DefaultPollInterval
		}
	}
}

// dataVersion reads PRAGMA data_version, which changes on this connection
// only when another connection commits.
func (s *SQLiteStorage) dataVersion(ctx context.Context) (int64, error) {
	var version int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read data version: %w", err)
	}
	return version, nil
}

func (s *SQLiteStorage) watchExternalChanges() error {
	version, err := s.dataVersion(context.Background())
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("File events unavailable, polling for database changes", "error", err)
		watcher = nil
	} else if err := watcher.Add(filepath.Dir(s.dbPath)); err != nil {
		slog.Warn("Cannot watch database directory, polling for changes", "dir", filepath.Dir(s.dbPath), "error", err)
		_ = watcher.Close()
		watcher = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopWatch = cancel
	s.watchDone = make(chan struct{})
	go s.followChanges(ctx, watcher, version)
	return nil
}

// followChanges invalidates every live query whenever the data version moves.
// Events for our own writes are harmless: the version only moves for
// commits made elsewhere.
func (s *SQLiteStorage) followChanges(ctx context.Context, watcher *fsnotify.Watcher, version int64) {
	defer close(s.watchDone)

	var events <-chan fsnotify.Event
	var errs <-chan error
	if watcher != nil {
		defer func() { _ = watcher.Close() }()
		events, errs = watcher.Events, watcher.Errors
	}

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	base := filepath.Base(s.dbPath)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			// Matches the database, its -wal and its -journal.
			if !strings.HasPrefix(filepath.Base(event.Name), base) ||
				event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("Database file watch error", "error", err)
			continue

		case <-ticker.C:
		}

		version = s.checkExternal(ctx, version)
	}
}

func (s *SQLiteStorage) checkExternal(ctx context.Context, last int64) int64 {
	version, err := s.dataVersion(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Debug("data version check failed", "error", err)
		}
		return last
	}
	if version == last {
		return last
	}

	slog.DebugContext(ctx, "database changed by another connection", "data_version", version)
	s.live.invalidate(context.WithoutCancel(ctx), tableCategories, tableExpenses)
	return version
}
