package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSleepContext(t *testing.T) {
	ctx := context.Background()
	err := SleepContext(ctx, time.Millisecond)
	assert.NoError(t, err)
}

func TestSleepContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	t0 := time.Now()
	err := SleepContext(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(t0), time.Second)
}

func TestSleepContextPerturb(t *testing.T) {
	ctx := context.Background()
	err := SleepContextPerturb(ctx, time.Millisecond)
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(ctx)
	cancel()
	err = SleepContextPerturb(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.False(t, IsCanceled(ctx))
	cancel()
	assert.True(t, IsCanceled(ctx))
}
