// Package fetch defines the fetch operation contract driven by the retry
// package, and the page, sink and file variants built on an HTTP transport.
package fetch

import (
	"context"

	"github.com/jzx17/robustfetch/pkg/classify"
)

// DefaultRetryBudget is the retry budget of an operation that does not set one
const DefaultRetryBudget = 3

// Operation performs one fetch try per Attempt call. The same Operation is
// reused across every attempt of a logical download; the retry driver may
// replace its locator between attempts.
type Operation[T any] interface {
	// Attempt performs exactly one fetch try
	Attempt(ctx context.Context) (T, error)

	// Locator returns the URL the next attempt will use
	Locator() string

	// SetLocator replaces the URL, e.g. after a redirect repair
	SetLocator(locator string)

	// RetryBudget returns the bounded-retry budget reported in logs
	RetryBudget() int

	// OnFailure is called once per classified failure, before the driver acts
	OnFailure(action classify.Action)
}

// FailureHook observes the action chosen for a failed attempt
type FailureHook func(locator string, action classify.Action)

// Base carries the locator, budget and failure hook shared by all operations.
// Embed it to implement Operation.
type Base struct {
	locator string
	budget  int
	hook    FailureHook
}

// Option configures a Base
type Option func(*Base)

// WithRetryBudget sets the retry budget; negative values are ignored
func WithRetryBudget(budget int) Option {
	return func(b *Base) {
		if budget >= 0 {
			b.budget = budget
		}
	}
}

// WithFailureHook sets the failure hook
func WithFailureHook(hook FailureHook) Option {
	return func(b *Base) {
		b.hook = hook
	}
}

// NewBase creates a Base for the given locator
func NewBase(locator string, opts ...Option) *Base {
	b := &Base{
		locator: locator,
		budget:  DefaultRetryBudget,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Locator returns the current locator
func (b *Base) Locator() string {
	return b.locator
}

// SetLocator replaces the locator
func (b *Base) SetLocator(locator string) {
	b.locator = locator
}

// RetryBudget returns the retry budget
func (b *Base) RetryBudget() int {
	return b.budget
}

// OnFailure forwards the action to the failure hook, if any
func (b *Base) OnFailure(action classify.Action) {
	if b.hook != nil {
		b.hook(b.locator, action)
	}
}
