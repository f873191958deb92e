/*
Package worker runs fetch batches on a fixed-size worker pool.

# Components

FixedWorkerPool owns a buffered task queue and a fixed number of Worker
goroutines. Workers recover task panics and report task errors to an optional
types.ErrorHandler.

RunBatch submits one task per fetch operation and drives each through a
retry.Driver:

	report, err := worker.RunBatch(ctx, driver, worker.BatchConfig{
		Concurrency:       4,
		RequestsPerSecond: 10,
	}, ops)

Items that are skipped do not stop the batch. The first aborted item cancels
the batch; items that had not started yet are reported with ErrNotAttempted.
With the default concurrency of 1 items are fetched strictly in order.

# Concurrency Safety

Pools and workers are safe for concurrent use. Worker statistics are kept
with atomic operations.
*/
package worker
