package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialDelay = 5 * time.Millisecond
	cfg.MaxDelay = 20 * time.Millisecond
	return cfg
}

func TestRetry_SucceedsAfterBusyWriter(t *testing.T) {
	// Given: a commit that is busy twice, then succeeds
	attempts := 0
	fn := func() error {
		attempts++
		if attempts < 3 {
			return BusyError("entry", nil)
		}
		return nil
	}

	// When: retrying
	err := Retry(context.Background(), fastRetryConfig(), fn)

	// Then: succeeds on the third attempt
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_StopsOnNonRetryableError(t *testing.T) {
	// Given: a commit that fails for good
	attempts := 0
	commitErr := CommitError("entry", errors.New("disk full"))
	fn := func() error {
		attempts++
		return commitErr
	}

	// When: retrying
	err := Retry(context.Background(), fastRetryConfig(), fn)

	// Then: the error is returned after one attempt, unwrapped
	assert.Equal(t, 1, attempts)
	assert.Same(t, commitErr, err)
}

func TestRetry_FailsAfterMaxRetries(t *testing.T) {
	// Given: a writer that never frees up
	attempts := 0
	fn := func() error {
		attempts++
		return BusyError("entry", nil)
	}
	cfg := fastRetryConfig()
	cfg.MaxRetries = 2

	// When: retrying
	err := Retry(context.Background(), cfg, fn)

	// Then: fails with wrapped busy error
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.True(t, errors.Is(err, ErrWriterBusy))
	assert.Equal(t, 3, attempts)
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	// Given: a cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// When: retrying
	called := false
	err := Retry(ctx, fastRetryConfig(), func() error {
		called = true
		return nil
	})

	// Then: the function never runs
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestRetry_CustomShouldRetry(t *testing.T) {
	// Given: a predicate that retries everything
	attempts := 0
	cfg := fastRetryConfig()
	cfg.ShouldRetry = func(error) bool { return true }

	// When: retrying a plain error
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		if attempts == 1 {
			return errors.New("flaky")
		}
		return nil
	})

	// Then: the second attempt succeeds
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
