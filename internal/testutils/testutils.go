// Package testutils provides simplified testing utilities and helper functions
package testutils

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jzx17/robustfetch/pkg/classify"
	"github.com/jzx17/robustfetch/pkg/fetch"
)

// Step is one scripted attempt result
type Step[T any] struct {
	Value T
	Err   error
	Panic any
}

// Succeed returns a step that succeeds with value
func Succeed[T any](value T) Step[T] {
	return Step[T]{Value: value}
}

// Fail returns a step that fails with err
func Fail[T any](err error) Step[T] {
	return Step[T]{Err: err}
}

// ScriptedOperation is a fetch.Operation that replays a list of steps. Once
// the script runs out the last step repeats.
type ScriptedOperation[T any] struct {
	*fetch.Base

	// BeforeAttempt, when set, runs at the start of every attempt with the
	// 1-based call number
	BeforeAttempt func(call int)

	mu       sync.Mutex
	steps    []Step[T]
	calls    int
	locators []string
	actions  []classify.Action
}

// NewScriptedOperation creates a scripted operation
func NewScriptedOperation[T any](locator string, steps ...Step[T]) *ScriptedOperation[T] {
	return &ScriptedOperation[T]{
		Base:  fetch.NewBase(locator),
		steps: steps,
	}
}

// Attempt replays the next step
func (o *ScriptedOperation[T]) Attempt(ctx context.Context) (T, error) {
	o.mu.Lock()
	o.calls++
	call := o.calls
	o.locators = append(o.locators, o.Locator())
	var step Step[T]
	if len(o.steps) > 0 {
		idx := call - 1
		if idx >= len(o.steps) {
			idx = len(o.steps) - 1
		}
		step = o.steps[idx]
	}
	o.mu.Unlock()

	if o.BeforeAttempt != nil {
		o.BeforeAttempt(call)
	}

	if step.Panic != nil {
		panic(step.Panic)
	}
	return step.Value, step.Err
}

// OnFailure records the action and forwards it to the base hook
func (o *ScriptedOperation[T]) OnFailure(action classify.Action) {
	o.mu.Lock()
	o.actions = append(o.actions, action)
	o.mu.Unlock()

	o.Base.OnFailure(action)
}

// Calls returns the number of attempts made
func (o *ScriptedOperation[T]) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// Locators returns the locator seen by each attempt
func (o *ScriptedOperation[T]) Locators() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.locators...)
}

// Actions returns the actions passed to OnFailure
func (o *ScriptedOperation[T]) Actions() []classify.Action {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]classify.Action(nil), o.actions...)
}

// StatusServer is an httptest server answering each request with the next
// scripted status code. Once the script runs out the last code repeats.
type StatusServer struct {
	*httptest.Server

	mu    sync.Mutex
	codes []int
	hits  int
}

// NewStatusServer starts a status server; it is closed on test cleanup
func NewStatusServer(t testing.TB, body string, codes ...int) *StatusServer {
	t.Helper()

	s := &StatusServer{codes: codes}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		code := http.StatusOK
		if len(s.codes) > 0 {
			idx := s.hits
			if idx >= len(s.codes) {
				idx = len(s.codes) - 1
			}
			code = s.codes[idx]
		}
		s.hits++
		s.mu.Unlock()

		w.WriteHeader(code)
		if code < 300 {
			_, _ = io.WriteString(w, body)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

// Hits returns the number of requests served
func (s *StatusServer) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
