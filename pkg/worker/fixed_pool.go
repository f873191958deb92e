package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jzx17/robustfetch/pkg/types"
)

// Pool lifecycle states
const (
	poolStopped int32 = iota
	poolRunning
	poolClosed
)

var (
	errPoolNotStarted = errors.New("worker pool is not started")
	errPoolRunning    = errors.New("worker pool is already running")
	errPoolClosed     = errors.New("worker pool is closed")
	errPoolRestart    = errors.New("worker pool cannot be restarted")
)

// FixedWorkerPoolConfig defines configuration for fixed worker pool
type FixedWorkerPoolConfig struct {
	// PoolSize is the number of workers
	PoolSize int

	// QueueSize is the task queue size
	QueueSize int

	// SubmitTimeout is the task submission timeout; zero fails fast on a full queue
	SubmitTimeout time.Duration

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// ErrorHandler is called with every failed task's error
	ErrorHandler types.ErrorHandler

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// DefaultFixedWorkerPoolConfig returns default configuration
func DefaultFixedWorkerPoolConfig() *FixedWorkerPoolConfig {
	return &FixedWorkerPoolConfig{
		PoolSize:      10,
		QueueSize:     100,
		SubmitTimeout: 5 * time.Second,
		Clock:         types.NewRealClock(),
		Logger:        slog.Default(),
	}
}

// FixedWorkerPool implements a fixed-size worker pool
type FixedWorkerPool struct {
	config   *FixedWorkerPoolConfig
	workers  []*Worker
	taskChan chan types.Task

	state     int32
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu sync.RWMutex
}

var _ types.WorkerPool = (*FixedWorkerPool)(nil)

// NewFixedWorkerPool creates a new fixed worker pool
func NewFixedWorkerPool(config *FixedWorkerPoolConfig) (*FixedWorkerPool, error) {
	if config == nil {
		config = DefaultFixedWorkerPoolConfig()
	}

	if config.PoolSize <= 0 {
		return nil, fmt.Errorf("%w: pool size must be positive, got %d", types.ErrInvalidInput, config.PoolSize)
	}
	if config.QueueSize <= 0 {
		return nil, fmt.Errorf("%w: queue size must be positive, got %d", types.ErrInvalidInput, config.QueueSize)
	}

	if config.Clock == nil {
		config.Clock = types.NewRealClock()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	taskChan := make(chan types.Task, config.QueueSize)
	workers := make([]*Worker, config.PoolSize)

	for i := 0; i < config.PoolSize; i++ {
		worker := NewWorkerWithClock(i, taskChan, config.Clock)
		worker.SetLogger(config.Logger)
		if config.ErrorHandler != nil {
			worker.SetErrorHandler(config.ErrorHandler)
		}
		workers[i] = worker
	}

	return &FixedWorkerPool{
		config:   config,
		workers:  workers,
		taskChan: taskChan,
	}, nil
}

// Start starts the worker pool
func (p *FixedWorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// workers close their done channel on exit and cannot run twice
	if p.ctx != nil && atomic.LoadInt32(&p.state) == poolStopped {
		return errPoolRestart
	}

	if !atomic.CompareAndSwapInt32(&p.state, poolStopped, poolRunning) {
		if atomic.LoadInt32(&p.state) == poolRunning {
			return errPoolRunning
		}
		return errPoolClosed
	}

	p.ctx, p.cancel = context.WithCancel(ctx)

	for _, worker := range p.workers {
		go worker.Start(p.ctx)
	}

	p.config.Logger.Debug("worker pool started", "workers", p.config.PoolSize, "queue", p.config.QueueSize)
	return nil
}

// Submit submits a task to the worker pool
func (p *FixedWorkerPool) Submit(task types.Task) error {
	return p.SubmitWithTimeout(task, p.config.SubmitTimeout)
}

// SubmitWithTimeout submits a task to the worker pool with timeout
func (p *FixedWorkerPool) SubmitWithTimeout(task types.Task, timeout time.Duration) error {
	switch atomic.LoadInt32(&p.state) {
	case poolRunning:
	case poolStopped:
		return errPoolNotStarted
	default:
		return errPoolClosed
	}

	if task == nil {
		return fmt.Errorf("%w: task cannot be nil", types.ErrInvalidInput)
	}

	if timeout <= 0 {
		select {
		case p.taskChan <- task:
			return nil
		default:
			return types.ErrWorkerPoolFull
		}
	}

	timer := p.config.Clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p.taskChan <- task:
		return nil
	case <-timer.C():
		return types.ErrTimeout
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Stop cancels the workers and waits for in-flight tasks. Queued tasks that
// no worker picked up are left in the queue.
func (p *FixedWorkerPool) Stop() error {
	if !atomic.CompareAndSwapInt32(&p.state, poolRunning, poolStopped) {
		if atomic.LoadInt32(&p.state) == poolStopped {
			return errPoolNotStarted
		}
		return errPoolClosed
	}

	if p.cancel != nil {
		p.cancel()
	}

	var wg sync.WaitGroup
	for _, worker := range p.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			if err := w.Stop(); err != nil {
				p.config.Logger.Warn("worker did not stop", "worker", w.ID(), "error", err)
			}
		}(worker)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.config.Logger.Debug("worker pool stopped")
		return nil
	case <-p.config.Clock.After(10 * time.Second):
		return fmt.Errorf("%w: waiting for workers to stop", types.ErrTimeout)
	}
}

// Close stops the worker pool and releases resources
func (p *FixedWorkerPool) Close() error {
	var closeErr error

	p.closeOnce.Do(func() {
		if atomic.LoadInt32(&p.state) == poolRunning {
			if err := p.Stop(); err != nil {
				closeErr = err
				return
			}
		}

		atomic.StoreInt32(&p.state, poolClosed)

		p.mu.Lock()
		defer p.mu.Unlock()
		close(p.taskChan)
		p.workers = nil
	})

	return closeErr
}

// Size returns the worker pool size
func (p *FixedWorkerPool) Size() int {
	return p.config.PoolSize
}

// Stats gets basic worker pool statistics
func (p *FixedWorkerPool) Stats() types.WorkerPoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var activeWorkers int
	for _, worker := range p.workers {
		if worker.State() == WorkerStateWorking {
			activeWorkers++
		}
	}

	return types.WorkerPoolStats{
		PoolSize:      p.config.PoolSize,
		ActiveWorkers: activeWorkers,
		QueueSize:     len(p.taskChan),
		QueueCapacity: p.config.QueueSize,
	}
}

// GetWorkerStats gets statistics of all Workers
func (p *FixedWorkerPool) GetWorkerStats() []WorkerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := make([]WorkerStats, len(p.workers))
	for i, worker := range p.workers {
		stats[i] = worker.Stats()
	}
	return stats
}

// IsRunning checks if the worker pool is running
func (p *FixedWorkerPool) IsRunning() bool {
	return atomic.LoadInt32(&p.state) == poolRunning
}

// IsClosed checks if the worker pool is closed
func (p *FixedWorkerPool) IsClosed() bool {
	return atomic.LoadInt32(&p.state) == poolClosed
}
