package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunCancelsSiblingsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	var stopped atomic.Bool

	err := Run(context.Background(),
		func(ctx context.Context) error {
			<-ctx.Done()
			stopped.Store(true)
			return nil
		},
		func(context.Context) error { return boom },
		nil,
	)
	assert.ErrorIs(t, err, boom)
	assert.True(t, stopped.Load())
}

func TestRunStopsWithParent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Run(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	assert.NoError(t, err)
}

func TestConcurrent(t *testing.T) {
	var sum atomic.Int64
	err := Concurrent([]int64{1, 2, 3, 4}, func(v int64) error {
		sum.Add(v)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(10), sum.Load())
}
