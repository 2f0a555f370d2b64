package rowstore

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
)

// Info is the server supplied metadata returned with a response (timestamps, headers, etc).
type Info map[string]any

func (i Info) Timestamp() (float64, bool) {
	return number(i["timestamp"])
}

func (i Info) PrevTimestamp() (float64, bool) {
	return number(i["prevTimestamp"])
}

func (i Info) Headers() []string {
	switch v := i["headers"].(type) {
	case []string:
		return v

	case []any:
		headers := []string{}
		for _, h := range v {
			headers = append(headers, text(h))
		}
		return headers
	}

	return nil
}

// Status accompanies every result. Err is nil on success.
type Status struct {
	Err      error
	Info     Info
	Messages []string
}

// Result is the outcome of an asynchronous row store operation. Value is the zero value on failure.
type Result[T any] struct {
	Value         T
	Status        Status
	OutOfSequence bool
}

func (r Result[T]) Err() error {
	return r.Status.Err
}

// Call is the pending result of an asynchronous row store operation. It completes exactly once.
type Call[T any] struct {
	mu       sync.Mutex
	done     chan struct{}
	result   Result[T]
	resolved bool
	then     []func(Result[T])
}

func newCall[T any]() *Call[T] {
	return &Call[T]{
		done: make(chan struct{}),
	}
}

func resolved[T any](result Result[T]) *Call[T] {
	call := newCall[T]()
	call.resolve(result)

	return call
}

// Done is closed when the call completes.
func (c *Call[T]) Done() <-chan struct{} {
	return c.done
}

// Result returns the call result and true if the call has completed.
func (c *Call[T]) Result() (Result[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.result, c.resolved
}

// Wait blocks until the call completes or the context is cancelled. The returned error is the
// context error; the operation outcome is in the result status.
func (c *Call[T]) Wait(ctx context.Context) (Result[T], error) {
	select {
	case <-c.done:
		result, _ := c.Result()
		return result, nil

	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	}
}

// Then registers a function to be invoked with the result once the call completes, immediately if
// it has already completed.
func (c *Call[T]) Then(f func(Result[T])) {
	c.mu.Lock()
	if !c.resolved {
		c.then = append(c.then, f)
		c.mu.Unlock()
		return
	}

	result := c.result
	c.mu.Unlock()

	f(result)
}

func (c *Call[T]) resolve(result Result[T]) {
	c.mu.Lock()
	if c.resolved {
		c.mu.Unlock()
		return
	}

	c.result = result
	c.resolved = true
	then := c.then
	c.then = nil
	close(c.done)
	c.mu.Unlock()

	for _, f := range then {
		f(result)
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, n != 0

	case int:
		return float64(n), n != 0

	case int64:
		return float64(n), n != 0

	case json.Number:
		f, err := n.Float64()
		return f, err == nil && f != 0

	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil && f != 0
	}

	return 0, false
}
