package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	}, fastRetry)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_Exhausted(t *testing.T) {
	locked := errors.New("database is locked")
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return locked
	}, fastRetry)

	require.ErrorIs(t, err, ErrMaxRetries)
	assert.ErrorIs(t, err, locked)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_PermanentStopsAtOnce(t *testing.T) {
	constraint := errors.New("constraint failed")
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return Permanent(constraint)
	}, fastRetry)

	assert.Equal(t, constraint, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, Permanent(nil))
}

func TestWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return errors.New("busy")
	}, RetryOptions{MaxAttempts: 5, InitialDelay: time.Hour})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
