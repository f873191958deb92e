package retry

import (
	"github.com/jzx17/robustfetch/pkg/classify"
)

// LimitedRetryCeiling is how many limited retries an item gets before it is
// skipped. It is fixed and independent of the operation's retry budget.
const LimitedRetryCeiling = 3

// State defines the state of one run
type State int

const (
	// StateAttempting is calling the operation
	StateAttempting State = iota
	// StateRetrying is between a failed attempt and the next one
	StateRetrying
	// StateSucceeded is terminal: the operation returned a value
	StateSucceeded
	// StateExhausted is terminal: the item was skipped
	StateExhausted
	// StateAborted is terminal and fatal for the whole batch
	StateAborted
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateRetrying:
		return "retrying"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further attempt follows this state
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateExhausted || s == StateAborted
}

// machine holds the retry state of one run
type machine struct {
	state State

	// limited counts limited retries consumed so far
	limited int
}

func newMachine() *machine {
	return &machine{state: StateAttempting}
}

// succeed moves to StateSucceeded
func (m *machine) succeed() State {
	m.state = StateSucceeded
	return m.state
}

// fail applies the classification of a failed attempt. ok is false for an
// unclassified failure.
func (m *machine) fail(action classify.Action, ok bool) State {
	if !ok {
		return m.abort()
	}

	switch action {
	case classify.ActionRetry:
		m.state = StateRetrying
	case classify.ActionLimitedRetry:
		if m.limited < LimitedRetryCeiling {
			m.limited++
			m.state = StateRetrying
			return m.state
		}
		return m.moveOn()
	case classify.ActionMoveOn:
		return m.moveOn()
	default:
		return m.abort()
	}

	return m.state
}

// resume moves from StateRetrying back to StateAttempting
func (m *machine) resume() {
	if m.state == StateRetrying {
		m.state = StateAttempting
	}
}

func (m *machine) moveOn() State {
	m.limited = 0
	m.state = StateExhausted
	return m.state
}

func (m *machine) abort() State {
	m.state = StateAborted
	return m.state
}
