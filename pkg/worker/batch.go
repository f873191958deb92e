package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jzx17/robustfetch/pkg/fetch"
	"github.com/jzx17/robustfetch/pkg/retry"
	"github.com/jzx17/robustfetch/pkg/types"
)

// ErrNotAttempted marks batch items that never ran because the batch aborted first
var ErrNotAttempted = errors.New("not attempted")

// BatchConfig configures a batch run
type BatchConfig struct {
	// Concurrency is the number of items fetched at once; defaults to 1,
	// which processes items strictly in order
	Concurrency int

	// RequestsPerSecond limits how fast items start; zero disables limiting
	RequestsPerSecond float64

	// Burst is the rate limiter burst; defaults to 1
	Burst int

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock
}

// Report summarizes a batch run
type Report[T any] struct {
	// RunID identifies the batch in logs
	RunID uuid.UUID

	// Results holds one entry per item, in input order
	Results []types.BatchResult[T]

	Succeeded    int
	Skipped      int
	Aborted      int
	NotAttempted int

	Duration time.Duration
}

// RunBatch drives every operation through driver. Skipped items do not stop
// the batch; the first aborted item cancels every item not yet started and
// its error is returned.
func RunBatch[T any](ctx context.Context, driver *retry.Driver, config BatchConfig, ops []fetch.Operation[T]) (*Report[T], error) {
	if driver == nil {
		return nil, fmt.Errorf("%w: driver cannot be nil", types.ErrInvalidInput)
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = types.NewRealClock()
	}

	report := &Report[T]{
		RunID:   uuid.New(),
		Results: make([]types.BatchResult[T], len(ops)),
	}
	for i := range report.Results {
		report.Results[i] = types.BatchResult[T]{Index: i, Error: ErrNotAttempted}
	}

	logger := config.Logger.With("run_id", report.RunID.String())
	start := config.Clock.Now()

	if len(ops) == 0 {
		return report, nil
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
	}

	pool, err := NewFixedWorkerPool(&FixedWorkerPoolConfig{
		PoolSize:  config.Concurrency,
		QueueSize: len(ops),
		Clock:     config.Clock,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// workers must drain the whole queue so every task reports back; the
	// tasks themselves watch batchCtx
	if err := pool.Start(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Warn("closing worker pool", "error", err)
		}
	}()

	logger.Info("batch started", "items", len(ops), "concurrency", config.Concurrency)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		abortErr error
	)

	for i, op := range ops {
		wg.Add(1)

		task := NewBasicTaskWithID(fmt.Sprintf("%s-%d", report.RunID, i), func(context.Context) error {
			defer wg.Done()

			if batchCtx.Err() != nil {
				return nil
			}
			if limiter != nil {
				if err := limiter.Wait(batchCtx); err != nil {
					return nil
				}
			}

			itemStart := config.Clock.Now()
			out, err := retry.Run(driver, batchCtx, op)

			mu.Lock()
			defer mu.Unlock()

			report.Results[i] = types.BatchResult[T]{
				Index:    i,
				Value:    out.Value,
				Error:    err,
				Duration: config.Clock.Since(itemStart),
			}

			if types.IsAborted(err) && abortErr == nil {
				abortErr = err
				cancel()
			}
			return err
		})

		if err := pool.Submit(task); err != nil {
			// the queue holds every item, so this only fails on a broken pool
			wg.Done()
			cancel()
			return nil, fmt.Errorf("submit item %d: %w", i, err)
		}
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()

	for _, res := range report.Results {
		switch {
		case res.Error == nil:
			report.Succeeded++
		case errors.Is(res.Error, ErrNotAttempted):
			report.NotAttempted++
		case types.IsSkipped(res.Error):
			report.Skipped++
		default:
			report.Aborted++
		}
	}
	report.Duration = config.Clock.Since(start)

	if abortErr == nil && ctx.Err() != nil {
		abortErr = errors.Join(types.ErrAborted, ctx.Err())
	}

	logAttrs := []any{
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"aborted", report.Aborted,
		"not_attempted", report.NotAttempted,
		"duration", report.Duration,
	}
	if abortErr != nil {
		logger.Error("batch aborted", append(logAttrs, "error", abortErr)...)
		return report, abortErr
	}

	logger.Info("batch finished", logAttrs...)
	return report, nil
}
