package build

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunPooledPreservesOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	results := runPooled(context.Background(), items, 3, func(n int) (int, error) {
		return n * 10, nil
	})

	for i, r := range results {
		assert.NoError(t, r.Err)
		assert.Equal(t, items[i]*10, r.Value)
	}
}

func TestRunPooledCollectsAllFailures(t *testing.T) {
	boom := errors.New("boom")
	items := []int{0, 1, 2, 3}
	results := runPooled(context.Background(), items, 2, func(n int) (int, error) {
		if n%2 == 1 {
			return 0, boom
		}
		return n, nil
	})

	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.NoError(t, results[2].Err)
	assert.ErrorIs(t, results[3].Err, boom)
}

func TestRunPooledBoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int32
	items := make([]int, 32)
	runPooled(context.Background(), items, 4, func(int) (struct{}, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		current.Add(-1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestRunPooledStopsDispatchingAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results := runPooled(ctx, []int{1, 2, 3, 4}, 2, func(int) (int, error) {
		calls.Add(1)
		return 0, nil
	})

	assert.Zero(t, calls.Load(), "no work dispatched on a cancelled context")
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestRunPooledEmpty(t *testing.T) {
	assert.Nil(t, runPooled(context.Background(), nil, 4, func(int) (int, error) { return 0, nil }))
}
