package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessBatch_PartialFailure(t *testing.T) {
	bp := &BatchProcessor[int, int]{
		Process: func(ctx context.Context, n int) (int, error) {
			if n%2 == 0 {
				return 0, errors.New("even")
			}
			return n * 10, nil
		},
	}

	res := bp.ProcessBatch(context.Background(), []int{1, 2, 3, 4})
	require.Len(t, res.Items, 4)

	assert.Equal(t, 10, res.Items[0].Result)
	assert.Equal(t, 30, res.Items[2].Result)
	assert.Len(t, res.Failed(), 2)
	for i, item := range res.Items {
		assert.Equal(t, i, item.Index)
	}
}

func TestProcessBatch_Validate(t *testing.T) {
	var processed atomic.Int32
	bp := &BatchProcessor[string, string]{
		Validate: func(s string) error {
			if s == "" {
				return errors.New("empty")
			}
			return nil
		},
		Process: func(ctx context.Context, s string) (string, error) {
			processed.Add(1)
			return s, nil
		},
	}

	res := bp.ProcessBatch(context.Background(), []string{"a", "", "b"})
	assert.Len(t, res.Failed(), 1)
	assert.Equal(t, int32(2), processed.Load())
}

func TestProcessBatch_RunsConcurrently(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int32

	bp := &BatchProcessor[int, int]{
		Process: func(ctx context.Context, n int) (int, error) {
			started.Add(1)
			<-release
			return n, nil
		},
	}

	done := make(chan struct{})
	go func() {
		bp.ProcessBatch(context.Background(), []int{1, 2, 3})
		close(done)
	}()

	require.Eventually(t, func() bool { return started.Load() == 3 }, time.Second, 5*time.Millisecond)
	close(release)
	<-done
}

func TestProcessBatch_Empty(t *testing.T) {
	bp := &BatchProcessor[int, int]{Process: func(ctx context.Context, n int) (int, error) { return n, nil }}
	res := bp.ProcessBatch(context.Background(), nil)
	assert.Empty(t, res.Items)
}
