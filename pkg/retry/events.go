package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/jzx17/robustfetch/pkg/classify"
)

// EventHandler observes runs. Handlers are called synchronously from the
// goroutine executing the run and must not block.
type EventHandler interface {
	// OnRetryAttempt is called before every attempt after the first
	OnRetryAttempt(ctx context.Context, locator string, attempt int)

	// OnFailure is called for every failed attempt
	OnFailure(ctx context.Context, event FailureEvent)

	// OnRepair is called after a locator repair, successful or not
	OnRepair(ctx context.Context, from, to string, err error)

	// OnOutcome is called once when a run reaches a terminal state
	OnOutcome(ctx context.Context, event OutcomeEvent)
}

// FailureEvent describes one failed attempt
type FailureEvent struct {
	Locator    string
	Attempt    int
	Signal     classify.Signal
	Category   classify.Category
	Action     classify.Action
	Classified bool
	Err        error
}

// OutcomeEvent describes a finished run
type OutcomeEvent struct {
	Locator  string
	State    State
	Attempts int
	Repairs  int
	Duration time.Duration
	Err      error
}

// LogEventHandler writes every event to a structured logger at debug level
type LogEventHandler struct {
	logger *slog.Logger
}

// NewLogEventHandler creates a log event handler; nil uses slog.Default()
func NewLogEventHandler(logger *slog.Logger) *LogEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEventHandler{logger: logger}
}

// OnRetryAttempt handles retry attempt events
func (h *LogEventHandler) OnRetryAttempt(ctx context.Context, locator string, attempt int) {
	h.logger.DebugContext(ctx, "attempt starting", "locator", locator, "attempt", attempt)
}

// OnFailure handles failure events
func (h *LogEventHandler) OnFailure(ctx context.Context, event FailureEvent) {
	if !event.Classified {
		h.logger.DebugContext(ctx, "attempt failed without classification",
			"locator", event.Locator,
			"attempt", event.Attempt,
			"error", event.Err)
		return
	}

	h.logger.DebugContext(ctx, "attempt failed",
		"locator", event.Locator,
		"attempt", event.Attempt,
		"signal", event.Signal.String(),
		"category", string(event.Category),
		"action", event.Action.String(),
		"error", event.Err)
}

// OnRepair handles locator repair events
func (h *LogEventHandler) OnRepair(ctx context.Context, from, to string, err error) {
	if err != nil {
		h.logger.DebugContext(ctx, "repair failed", "from", from, "error", err)
		return
	}
	h.logger.DebugContext(ctx, "repair applied", "from", from, "to", to)
}

// OnOutcome handles outcome events
func (h *LogEventHandler) OnOutcome(ctx context.Context, event OutcomeEvent) {
	h.logger.DebugContext(ctx, "run finished",
		"locator", event.Locator,
		"state", event.State.String(),
		"attempts", event.Attempts,
		"repairs", event.Repairs,
		"duration", event.Duration)
}
