// Package retry drives a fetch operation through repeated attempts until it
// succeeds, is skipped, or aborts the run.
//
// Every failed attempt is turned into a classify.Signal and mapped to an
// action:
//
//   - Retry: attempt again, with no limit
//   - LimitedRetry: attempt again, at most LimitedRetryCeiling times in a row
//   - MoveOn: give up on this item; the caller continues with the next one
//   - Panic: abort the whole run
//
// Failures that cannot be classified abort the run as well. After a
// malformed-redirect failure the driver asks its Repairer, by default a
// redirect.Resolver, for a corrected locator before the next attempt.
//
// Basic usage:
//
//	driver := retry.NewDriver(retry.WithLogger(logger))
//
//	op := fetch.NewPageOperation(transport, "http://example.com/")
//	out, err := retry.Run(driver, ctx, op)
//	switch {
//	case err == nil:
//		fmt.Println(out.Value)
//	case types.IsSkipped(err):
//		// continue with the next item
//	default:
//		// types.IsAborted(err): stop the batch
//	}
//
// A Driver keeps no per-run state. Statistics are guarded by a mutex and one
// Driver may serve many concurrent runs.
package retry
