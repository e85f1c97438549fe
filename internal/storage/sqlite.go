package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/Veraticus/expense-saver/internal/common"
)

// DefaultGracePeriod is how long an unobserved live query keeps its cached
// result before it is torn down.
const DefaultGracePeriod = time.Second

// Table names used for change tracking.
const (
	tableCategories = "expense_categories"
	tableExpenses   = "expenses"
)

// SQLiteStorage is the storage engine for categories and expenses.
// Reads are exposed as live subscriptions that re-run after every
// committed mutation touching their tables.
type SQLiteStorage struct {
	db        *sql.DB
	live      *liveHub
	stopWatch context.CancelFunc
	watchDone chan struct{}
	dbPath    string
	dsn       string
	poll      time.Duration
	external  bool
	closed    atomic.Bool
}

// Option configures a SQLiteStorage.
type Option func(*SQLiteStorage)

// WithGracePeriod sets how long unobserved live queries are kept cached.
func WithGracePeriod(d time.Duration) Option {
	return func(s *SQLiteStorage) {
		if d >= 0 {
			s.live.grace = d
		}
	}
}

// NewSQLiteStorage creates a new SQLite storage instance.
// Call Migrate before issuing queries against a fresh database.
func NewSQLiteStorage(dbPath string, opts ...Option) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections, and a single
	// connection keeps mutations in submission order.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", checkCorrupted(dbPath, err))
	}

	// Reading the schema fails early on a file that is not a SQLite database.
	var objects int
	if err := db.QueryRow(`SELECT count(*) FROM sqlite_master`).Scan(&objects); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to read database schema: %w", checkCorrupted(dbPath, err))
	}

	s := &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
		dsn:    dsn,
		live:   newLiveHub(DefaultGracePeriod),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.external {
		if err := s.watchExternalChanges(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// Close ends every live subscription and closes the database connection.
func (s *SQLiteStorage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.stopWatch != nil {
		s.stopWatch()
		<-s.watchDone
	}
	s.live.closeAll()
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

func (s *SQLiteStorage) checkOpen(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// busyRetry applies when another process holds the database lock past
// the busy timeout.
var busyRetry = common.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     time.Second,
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		(sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked)
}

// retryBusy runs op again while it fails with a lock error.
func retryBusy(ctx context.Context, op func() error) error {
	return common.WithRetry(ctx, func() error {
		err := op()
		if err != nil && !isBusy(err) {
			return common.Permanent(err)
		}
		return err
	}, busyRetry)
}

// writer is s.db with lock retries on ExecContext.
type writer struct {
	*sql.DB
}

func (w writer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var result sql.Result
	err := retryBusy(ctx, func() error {
		var err error
		result, err = w.DB.ExecContext(ctx, query, args...)
		return err
	})
	return result, err
}

func (s *SQLiteStorage) writer() queryable {
	return writer{s.db}
}

// withTx runs fn inside a transaction and commits only if fn succeeds. The
// whole transaction is retried on lock errors.
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return retryBusy(ctx, func() error {
		return s.runTx(ctx, fn)
	})
}

func (s *SQLiteStorage) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// changed re-evaluates live queries after a committed mutation.
func (s *SQLiteStorage) changed(ctx context.Context, tables ...string) {
	s.live.invalidate(context.WithoutCancel(ctx), tables...)
}

// checkCorrupted marks errors from a damaged or foreign file with
// common.ErrDatabaseCorrupted.
func checkCorrupted(dbPath string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.Code == sqlite3.ErrCorrupt || sqliteErr.Code == sqlite3.ErrNotADB) {
		return fmt.Errorf("%w: %s: %w", common.ErrDatabaseCorrupted, dbPath, err)
	}
	return err
}

// translateError maps driver constraint failures onto storage errors.
func translateError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
		return fmt.Errorf("%w: %v", ErrReferentialIntegrity, err)
	}
	return err
}

// queryable is an interface satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func logIgnored(ctx context.Context, kind string, id fmt.Stringer) {
	slog.DebugContext(ctx, "insert ignored, primary key exists", "kind", kind, "id", id.String())
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
