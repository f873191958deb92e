package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/robustfetch/internal/testutils"
	"github.com/jzx17/robustfetch/pkg/types"
)

func TestNewFixedWorkerPool(t *testing.T) {
	tests := []struct {
		name        string
		config      *FixedWorkerPoolConfig
		expectError bool
	}{
		{
			name:   "nil config should use default",
			config: nil,
		},
		{
			name:   "valid config",
			config: &FixedWorkerPoolConfig{PoolSize: 5, QueueSize: 50},
		},
		{
			name:        "zero pool size should error",
			config:      &FixedWorkerPoolConfig{PoolSize: 0, QueueSize: 50},
			expectError: true,
		},
		{
			name:        "negative pool size should error",
			config:      &FixedWorkerPoolConfig{PoolSize: -1, QueueSize: 50},
			expectError: true,
		},
		{
			name:        "zero queue size should error",
			config:      &FixedWorkerPoolConfig{PoolSize: 5, QueueSize: 0},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewFixedWorkerPool(tt.config)

			if tt.expectError {
				assert.ErrorIs(t, err, types.ErrInvalidInput)
				assert.Nil(t, pool)
				return
			}

			require.NoError(t, err)
			if tt.config == nil {
				assert.Equal(t, 10, pool.Size())
			} else {
				assert.Equal(t, tt.config.PoolSize, pool.Size())
			}
		})
	}
}

func TestFixedWorkerPool_Lifecycle(t *testing.T) {
	pool, err := NewFixedWorkerPool(&FixedWorkerPoolConfig{
		PoolSize:  3,
		QueueSize: 10,
		Logger:    testutils.DiscardLogger(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, pool.Submit(NewBasicTask(nil)), errPoolNotStarted)

	require.NoError(t, pool.Start(ctx))
	assert.True(t, pool.IsRunning())
	assert.ErrorIs(t, pool.Start(ctx), errPoolRunning)

	require.NoError(t, pool.Stop())
	assert.False(t, pool.IsRunning())
	assert.ErrorIs(t, pool.Stop(), errPoolNotStarted)
	assert.ErrorIs(t, pool.Start(ctx), errPoolRestart)

	require.NoError(t, pool.Close())
	assert.True(t, pool.IsClosed())
	assert.ErrorIs(t, pool.Submit(NewBasicTask(nil)), errPoolClosed)
	assert.ErrorIs(t, pool.Start(ctx), errPoolClosed)

	// repeated close is a no-op
	assert.NoError(t, pool.Close())
}

func TestFixedWorkerPool_TaskExecution(t *testing.T) {
	pool, err := NewFixedWorkerPool(&FixedWorkerPoolConfig{
		PoolSize:  2,
		QueueSize: 10,
		Logger:    testutils.DiscardLogger(),
	})
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Close()

	var counter int64
	var wg sync.WaitGroup
	numTasks := 10
	wg.Add(numTasks)

	for i := 0; i < numTasks; i++ {
		shouldFail := i%2 == 0
		task := NewBasicTask(func(ctx context.Context) error {
			defer wg.Done()
			atomic.AddInt64(&counter, 1)
			if shouldFail {
				return errors.New("task failed")
			}
			return nil
		})
		require.NoError(t, pool.Submit(task))
	}
	wg.Wait()

	assert.Equal(t, int64(numTasks), atomic.LoadInt64(&counter))

	assert.Eventually(t, func() bool {
		var processed, failed int64
		for _, ws := range pool.GetWorkerStats() {
			processed += ws.TotalProcessed
			failed += ws.TotalFailed
		}
		return processed == 5 && failed == 5
	}, time.Second, 5*time.Millisecond)

	stats := pool.Stats()
	assert.Equal(t, 2, stats.PoolSize)
	assert.Equal(t, 10, stats.QueueCapacity)
}

func TestFixedWorkerPool_SubmitFull(t *testing.T) {
	pool, err := NewFixedWorkerPool(&FixedWorkerPoolConfig{
		PoolSize:  1,
		QueueSize: 1,
		Logger:    testutils.DiscardLogger(),
	})
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	blocking := NewBasicTask(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, pool.Submit(blocking))
	<-started

	// fills the queue
	require.NoError(t, pool.SubmitWithTimeout(NewBasicTask(func(ctx context.Context) error { return nil }), 0))

	err = pool.SubmitWithTimeout(NewBasicTask(func(ctx context.Context) error { return nil }), 0)
	assert.ErrorIs(t, err, types.ErrWorkerPoolFull)

	err = pool.SubmitWithTimeout(NewBasicTask(func(ctx context.Context) error { return nil }), 10*time.Millisecond)
	assert.ErrorIs(t, err, types.ErrTimeout)

	assert.ErrorIs(t, pool.SubmitWithTimeout(nil, 0), types.ErrInvalidInput)

	close(release)
}

func TestFixedWorkerPool_ContextCancellation(t *testing.T) {
	pool, err := NewFixedWorkerPool(&FixedWorkerPoolConfig{
		PoolSize:  2,
		QueueSize: 10,
		Logger:    testutils.DiscardLogger(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, pool.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		for _, ws := range pool.GetWorkerStats() {
			if ws.State != WorkerStateStopped {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, pool.Close())
}
