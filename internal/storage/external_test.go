package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/expense-saver/internal/common"
	"github.com/Veraticus/expense-saver/internal/model"
)

func TestExternalChanges_SecondStoreReachesSubscriber(t *testing.T) {
	watching, cleanup := createTestStorage(t, WithExternalChanges(50*time.Millisecond))
	defer cleanup()
	ctx := context.Background()

	other, err := NewSQLiteStorage(watching.Path())
	require.NoError(t, err)
	defer other.Close()

	sub, err := watching.ExpensesWithCategory(ctx, nil, nil)
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, <-sub.Updates())

	food := newCategory("Food")
	lunch := newExpense(food, "Lunch", 25, day(1))
	require.NoError(t, other.InsertCategoryWithExpense(ctx, &food, &lunch))

	var rows []model.ExpenseWithCategory
	require.Eventually(t, func() bool {
		select {
		case rows = <-sub.Updates():
			return len(rows) == 1
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, lunch, rows[0].Expense)
	assert.Equal(t, food, rows[0].Category)

	require.NoError(t, other.DeleteCategory(ctx, &food))
	require.Eventually(t, func() bool {
		got, err := sub.Latest()
		return err == nil && len(got) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestExternalChanges_OwnWritesEvaluateOnce(t *testing.T) {
	store, cleanup := createTestStorage(t, WithExternalChanges(20*time.Millisecond))
	defer cleanup()
	ctx := context.Background()

	sub, err := store.AllCategories(ctx)
	require.NoError(t, err)
	defer sub.Close()

	// The migration committed on its own connection; let that settle first.
	time.Sleep(150 * time.Millisecond)
	before := evaluations(sub)

	food := newCategory("Food")
	require.NoError(t, store.InsertCategory(ctx, &food))
	assert.Equal(t, before+1, evaluations(sub))

	// Several poll intervals pass without another commit.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, before+1, evaluations(sub))
}

func TestExternalChanges_CloseStopsWatching(t *testing.T) {
	store, _ := createTestStorage(t, WithExternalChanges(10*time.Millisecond))

	sub, err := store.AllExpenses(context.Background())
	require.NoError(t, err)

	require.NoError(t, store.Close())

	select {
	case <-store.watchDone:
	default:
		t.Fatal("change watcher still running after Close")
	}
	_, open := <-sub.Updates()
	assert.False(t, open)
}

func TestNewSQLiteStorage_NotADatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "garbage.db")
	junk := make([]byte, 4096)
	for i := range junk {
		junk[i] = 'x'
	}
	require.NoError(t, os.WriteFile(dbPath, junk, 0o600))

	_, err := NewSQLiteStorage(dbPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDatabaseCorrupted)
}
