// Package classify maps a failed fetch to the recovery action the retry
// driver should take. It is the only place that knows about HTTP status codes
// and transport failure kinds.
package classify

// Action is a recovery action, ordered by severity
type Action int

const (
	// ActionRetry retries without consuming the limited-retry ceiling
	ActionRetry Action = iota + 1
	// ActionLimitedRetry retries a bounded number of times, then moves on
	ActionLimitedRetry
	// ActionMoveOn abandons the current item; the batch continues
	ActionMoveOn
	// ActionPanic aborts the whole run
	ActionPanic
)

// String returns the string representation of Action
func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionLimitedRetry:
		return "limited_retry"
	case ActionMoveOn:
		return "move_on"
	case ActionPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// Valid reports whether a is one of the defined actions
func (a Action) Valid() bool {
	return a >= ActionRetry && a <= ActionPanic
}

// Terminal reports whether a ends the run instead of the item.
// Anything outside the defined range counts as at least as severe as ActionPanic.
func (a Action) Terminal() bool {
	return !a.Valid() || a >= ActionPanic
}

// Category groups failures for logging and metrics
type Category string

const (
	CategoryTransientNetwork  Category = "transient_network"
	CategoryMalformedRedirect Category = "malformed_redirect"
	CategoryResourceAbsent    Category = "resource_absent"
	CategoryClientRejected    Category = "client_rejected"
	CategoryServerFault       Category = "server_fault"
	CategoryProtocolViolation Category = "protocol_violation"
	CategoryUnclassifiable    Category = "unclassifiable"
)
