// internal/app/system/jobs/registry.go
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// Event is one triggering event as delivered by the job service.
type Event struct {
	ID   string          `json:"id,omitempty"`
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
	TS   int64           `json:"ts,omitempty"`
}

// RunContext identifies one attempt of one run.
type RunContext struct {
	RunID   string `json:"run_id"`
	FnID    string `json:"fn_id,omitempty"`
	Attempt int    `json:"attempt"`
}

// Input is passed to a Function.
type Input struct {
	Event  Event
	Events []Event
	Run    RunContext
}

// Function is a named unit of background work triggered by an event name.
type Function struct {
	ID      string
	Name    string
	Trigger string
	Run     func(ctx context.Context, in Input) (any, error)
}

// noRetryError marks a failure the job service should not retry.
type noRetryError struct{ err error }

func (e *noRetryError) Error() string { return e.err.Error() }
func (e *noRetryError) Unwrap() error { return e.err }

// NoRetry wraps err so the webhook reports it as non-retriable.
func NoRetry(err error) error {
	if err == nil {
		return nil
	}
	return &noRetryError{err: err}
}

// IsNoRetry reports whether err, or anything it wraps, came from NoRetry.
func IsNoRetry(err error) bool {
	var nr *noRetryError
	return errors.As(err, &nr)
}

type entry struct {
	fn      Function
	breaker *gobreaker.CircuitBreaker
}

// Registry holds the functions served by the webhook, in registration
// order. It is immutable after NewRegistry returns.
type Registry struct {
	order []string
	byID  map[string]*entry
}

// BreakerSettings tunes the per-function circuit breaker. The zero value
// trips after 5 consecutive failures and lets a trial call through after 30 seconds.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// NewRegistry validates fns and gives each one its own circuit breaker, so
// a failing dependency of one function does not stop the others.
func NewRegistry(bs BreakerSettings, fns ...Function) (*Registry, error) {
	if bs.ConsecutiveFailures == 0 {
		bs.ConsecutiveFailures = 5
	}
	if bs.OpenTimeout <= 0 {
		bs.OpenTimeout = 30 * time.Second
	}

	reg := &Registry{byID: make(map[string]*entry, len(fns))}
	for _, fn := range fns {
		switch {
		case fn.ID == "":
			return nil, errors.New("jobs: function id is required")
		case fn.Trigger == "":
			return nil, fmt.Errorf("jobs: function %q has no trigger", fn.ID)
		case fn.Run == nil:
			return nil, fmt.Errorf("jobs: function %q has no Run", fn.ID)
		}
		if _, dup := reg.byID[fn.ID]; dup {
			return nil, fmt.Errorf("jobs: duplicate function id %q", fn.ID)
		}
		if fn.Name == "" {
			fn.Name = fn.ID
		}
		threshold := bs.ConsecutiveFailures
		reg.byID[fn.ID] = &entry{
			fn: fn,
			breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:        fn.ID,
				MaxRequests: 1,
				Timeout:     bs.OpenTimeout,
				ReadyToTrip: func(c gobreaker.Counts) bool {
					return c.ConsecutiveFailures >= threshold
				},
				// Bad input is not a dependency failure.
				IsSuccessful: func(err error) bool {
					return err == nil || IsNoRetry(err)
				},
			}),
		}
		reg.order = append(reg.order, fn.ID)
	}
	return reg, nil
}

// Len returns the number of registered functions.
func (r *Registry) Len() int { return len(r.order) }

// Functions returns the registered functions in registration order.
func (r *Registry) Functions() []Function {
	out := make([]Function, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].fn)
	}
	return out
}

func (r *Registry) lookup(id string) (*entry, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// run executes fn behind its breaker.
func (e *entry) run(ctx context.Context, in Input) (any, error) {
	return e.breaker.Execute(func() (any, error) {
		return e.fn.Run(ctx, in)
	})
}

// isBreakerRejection reports whether err means the breaker refused the call.
func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
