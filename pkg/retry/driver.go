package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/jzx17/robustfetch/pkg/classify"
	"github.com/jzx17/robustfetch/pkg/fetch"
	"github.com/jzx17/robustfetch/pkg/redirect"
	"github.com/jzx17/robustfetch/pkg/types"
)

// Repairer rewrites a locator after a malformed-redirect failure
type Repairer interface {
	Repair(ctx context.Context, locator string) (string, error)
}

// RepairerFunc adapts a function to Repairer
type RepairerFunc func(ctx context.Context, locator string) (string, error)

// Repair calls f
func (f RepairerFunc) Repair(ctx context.Context, locator string) (string, error) {
	return f(ctx, locator)
}

// Driver runs fetch operations. A Driver holds no per-run state and may be
// shared by goroutines; every Run keeps its own retry state.
type Driver struct {
	repairer Repairer
	backoff  BackoffStrategy
	handlers []EventHandler
	logger   *slog.Logger
	clock    types.Clock
	stats    Stats
}

// Outcome is the result of one run
type Outcome[T any] struct {
	Value          T               // value of the successful attempt
	State          State           // terminal state
	Attempts       int             // attempts made, including the first
	LimitedRetries int             // limited retries consumed
	Repairs        int             // locator repairs applied
	LastAction     classify.Action // action of the last failure, zero if none
	Locator        string          // locator after any repair
	Duration       time.Duration   // wall time of the run
	Err            error           // last failure, nil on success
}

// Stats contains driver statistics across runs
type Stats struct {
	TotalRuns       int64         // runs started
	TotalAttempts   int64         // attempts made
	TotalSucceeded  int64         // runs that succeeded
	TotalSkipped    int64         // runs that moved on
	TotalAborted    int64         // runs that aborted
	TotalRepairs    int64         // locator repairs applied
	TotalRetryDelay time.Duration // time spent in backoff
	mu              sync.RWMutex
}

// NewDriver creates a retry driver. Locators are repaired through a
// redirect.Resolver unless WithRepairer says otherwise.
func NewDriver(opts ...DriverOption) *Driver {
	d := &Driver{
		repairer: redirect.NewResolver(nil),
		logger:   slog.Default(),
		clock:    types.NewRealClock(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run drives op until it succeeds, is skipped or aborts. The error is nil on
// success, wraps types.ErrSkipped when the item was abandoned and wraps
// types.ErrAborted when the whole batch must stop.
func Run[T any](d *Driver, ctx context.Context, op fetch.Operation[T]) (Outcome[T], error) {
	start := d.clock.Now()
	m := newMachine()
	out := Outcome[T]{Locator: op.Locator()}

	d.updateStats(func(s *Stats) {
		s.TotalRuns++
	})

	for {
		if err := ctx.Err(); err != nil {
			return out, d.abort(ctx, m, &out, start, errors.Join(types.ErrAborted, err))
		}

		out.Attempts++
		d.updateStats(func(s *Stats) {
			s.TotalAttempts++
		})

		if out.Attempts > 1 {
			d.logger.Debug("retry attempt starting", "locator", op.Locator(), "attempt", out.Attempts)
			for _, h := range d.handlers {
				h.OnRetryAttempt(ctx, op.Locator(), out.Attempts)
			}
		}

		value, err, panicked := attempt(ctx, op)
		if err == nil {
			m.succeed()
			out.Value = value
			out.Err = nil
			d.finish(ctx, m, &out, start)
			return out, nil
		}

		out.Err = types.NewFetchError(op.Locator(), out.Attempts, err)

		// a cancelled run is not a transport failure
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, d.abort(ctx, m, &out, start, errors.Join(types.ErrAborted, ctxErr, out.Err))
		}

		sig, hasSignal := classify.SignalFromError(err)
		var action classify.Action
		classified := false
		if hasSignal && !panicked {
			action, classified = classify.Classify(sig)
		}
		out.LastAction = action

		if classified {
			op.OnFailure(action)
		}
		d.emitFailure(ctx, FailureEvent{
			Locator:    op.Locator(),
			Attempt:    out.Attempts,
			Signal:     sig,
			Category:   classify.Categorize(sig),
			Action:     action,
			Classified: classified,
			Err:        err,
		})

		if classified && sig.Kind == classify.KindConnectionReset {
			if d.repairLocator(ctx, op) {
				out.Repairs++
				out.Locator = op.Locator()
			}
		}

		switch m.fail(action, classified) {
		case StateRetrying:
			if action == classify.ActionLimitedRetry {
				out.LimitedRetries = m.limited
				d.logger.Info("retrying",
					"locator", op.Locator(),
					"retry", m.limited,
					"budget", op.RetryBudget(),
					"signal", sig.String())
			} else {
				d.logger.Info("retrying", "locator", op.Locator(), "signal", sig.String())
			}

			if err := d.wait(ctx, out.Attempts); err != nil {
				return out, d.abort(ctx, m, &out, start, errors.Join(types.ErrAborted, err, out.Err))
			}
			m.resume()

		case StateExhausted:
			d.logger.Warn("moving on",
				"locator", op.Locator(),
				"attempts", out.Attempts,
				"limited_retries", out.LimitedRetries,
				"signal", sig.String())
			d.finish(ctx, m, &out, start)
			return out, fmt.Errorf("%w: %s: %w", types.ErrSkipped, op.Locator(), out.Err)

		default:
			if classified {
				d.logger.Error("aborting run", "locator", op.Locator(), "action", action.String(), "error", err)
			} else {
				d.logger.Error("aborting run on unclassified failure", "locator", op.Locator(), "error", err)
			}
			return out, d.abort(ctx, m, &out, start, errors.Join(types.ErrAborted, out.Err))
		}
	}
}

// attempt calls op.Attempt, turning a panic into an error
func attempt[T any](ctx context.Context, op fetch.Operation[T]) (value T, err error, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)
			err = &PanicError{Value: r, Stack: string(buf[:n])}
			panicked = true
		}
	}()

	value, err = op.Attempt(ctx)
	return value, err, false
}

// PanicError wraps a panic raised inside an operation's Attempt
type PanicError struct {
	Value any
	Stack string
}

// Error implements the error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in attempt: %v", e.Value)
}

// repairLocator rewrites the operation's locator in place. It reports
// whether the locator changed; on failure the old locator is kept.
func (d *Driver) repairLocator(ctx context.Context, op interface {
	Locator() string
	SetLocator(string)
}) bool {
	from := op.Locator()
	if d.repairer == nil {
		d.logger.Debug("locator repair disabled", "locator", from)
		return false
	}

	to, err := d.repairer.Repair(ctx, from)
	if err == nil && to == "" {
		err = errors.New("repair returned an empty locator")
	}

	for _, h := range d.handlers {
		h.OnRepair(ctx, from, to, err)
	}

	if err != nil {
		d.logger.Warn("locator repair failed, keeping locator", "locator", from, "error", err)
		return false
	}

	op.SetLocator(to)
	d.updateStats(func(s *Stats) {
		s.TotalRepairs++
	})
	d.logger.Info("locator repaired", "from", from, "to", to)
	return true
}

// wait sleeps for the backoff delay of the given failure count
func (d *Driver) wait(ctx context.Context, failures int) error {
	if d.backoff == nil {
		return nil
	}

	delay := d.backoff.NextDelay(failures)
	if delay <= 0 {
		return nil
	}

	d.updateStats(func(s *Stats) {
		s.TotalRetryDelay += delay
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.clock.After(delay):
		return nil
	}
}

func (d *Driver) abort(ctx context.Context, m *machine, out outcomeView, start time.Time, err error) error {
	m.abort()
	d.finish(ctx, m, out, start)
	return err
}

// outcomeView lets the non-generic helpers fill in any Outcome[T]
type outcomeView interface {
	setTerminal(state State, duration time.Duration)
	event() OutcomeEvent
}

func (o *Outcome[T]) setTerminal(state State, duration time.Duration) {
	o.State = state
	o.Duration = duration
}

func (o *Outcome[T]) event() OutcomeEvent {
	return OutcomeEvent{
		Locator:  o.Locator,
		State:    o.State,
		Attempts: o.Attempts,
		Repairs:  o.Repairs,
		Duration: o.Duration,
		Err:      o.Err,
	}
}

// finish records the terminal state of a run
func (d *Driver) finish(ctx context.Context, m *machine, out outcomeView, start time.Time) {
	out.setTerminal(m.state, d.clock.Since(start))

	d.updateStats(func(s *Stats) {
		switch m.state {
		case StateSucceeded:
			s.TotalSucceeded++
		case StateExhausted:
			s.TotalSkipped++
		case StateAborted:
			s.TotalAborted++
		}
	})

	ev := out.event()
	for _, h := range d.handlers {
		h.OnOutcome(ctx, ev)
	}
}

func (d *Driver) emitFailure(ctx context.Context, ev FailureEvent) {
	for _, h := range d.handlers {
		h.OnFailure(ctx, ev)
	}
}

// GetStats gets driver statistics
func (d *Driver) GetStats() Stats {
	d.stats.mu.RLock()
	defer d.stats.mu.RUnlock()
	return Stats{
		TotalRuns:       d.stats.TotalRuns,
		TotalAttempts:   d.stats.TotalAttempts,
		TotalSucceeded:  d.stats.TotalSucceeded,
		TotalSkipped:    d.stats.TotalSkipped,
		TotalAborted:    d.stats.TotalAborted,
		TotalRepairs:    d.stats.TotalRepairs,
		TotalRetryDelay: d.stats.TotalRetryDelay,
		// don't copy mutex
	}
}

// ResetStats resets statistics
func (d *Driver) ResetStats() {
	d.stats.mu.Lock()
	defer d.stats.mu.Unlock()

	d.stats.TotalRuns = 0
	d.stats.TotalAttempts = 0
	d.stats.TotalSucceeded = 0
	d.stats.TotalSkipped = 0
	d.stats.TotalAborted = 0
	d.stats.TotalRepairs = 0
	d.stats.TotalRetryDelay = 0
}

// updateStats updates statistics (thread-safe)
func (d *Driver) updateStats(fn func(*Stats)) {
	d.stats.mu.Lock()
	defer d.stats.mu.Unlock()
	fn(&d.stats)
}

// DriverOption is a configuration option for the driver
type DriverOption func(*Driver)

// WithRepairer sets the locator repairer used after malformed-redirect
// failures. A nil repairer disables repair.
func WithRepairer(repairer Repairer) DriverOption {
	return func(d *Driver) {
		d.repairer = repairer
	}
}

// WithBackoff sets a delay between attempts; by default retries are immediate
func WithBackoff(backoff BackoffStrategy) DriverOption {
	return func(d *Driver) {
		d.backoff = backoff
	}
}

// WithEventHandler adds an event handler
func WithEventHandler(handler EventHandler) DriverOption {
	return func(d *Driver) {
		if handler != nil {
			d.handlers = append(d.handlers, handler)
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) DriverOption {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock sets the clock for time operations
func WithClock(clock types.Clock) DriverOption {
	return func(d *Driver) {
		if clock != nil {
			d.clock = clock
		}
	}
}
