package poll

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/ftest/internal/errors"
)

func TestUntil_Succeeds(t *testing.T) {
	calls := 0
	err := Until(context.Background(), "ready", time.Millisecond, time.Second, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestUntil_Timeout(t *testing.T) {
	calls := 0
	err := Until(context.Background(), "pool upgrade", 5*time.Millisecond, 20*time.Millisecond, func(context.Context) (bool, error) {
		calls++
		return false, nil
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTimeout))
	assert.Contains(t, err.Error(), "waiting for pool upgrade")
	assert.Equal(t, 5, calls)
}

func TestUntil_ConditionError(t *testing.T) {
	boom := stderrors.New("dmg failed")
	calls := 0
	err := Until(context.Background(), "x", time.Millisecond, time.Second, func(context.Context) (bool, error) {
		calls++
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "errors are not retried")
}

func TestUntil_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Until(ctx, "x", time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return false, nil
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTimeout))
}
