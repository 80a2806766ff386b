package command

import "sync"

// Future is a single-assignment result container. It resolves exactly once,
// with either a value or an error, no matter how many paths race to resolve
// it.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

// NewFuture returns an unresolved future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Complete resolves the future with a value. Later resolutions are no-ops.
func (f *Future) Complete(v any) {
	f.once.Do(func() {
		f.value = v
		close(f.done)
	})
}

// Fail resolves the future with an error. Later resolutions are no-ops.
func (f *Future) Fail(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future has resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the resolved value or error. Only valid after Done is
// closed.
func (f *Future) Result() (any, error) {
	return f.value, f.err
}

// Await blocks until the future resolves and returns its outcome.
func (f *Future) Await() (any, error) {
	<-f.done
	return f.value, f.err
}

// Resolved reports whether the future has already resolved.
func (f *Future) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Outcome is the two-case result of a handler invocation: either an
// immediate value, or a future that completes on a later turn of the host
// loop.
type Outcome struct {
	value    any
	deferred *Future
}

// Immediate wraps a synchronously produced result value.
func Immediate(v any) Outcome {
	return Outcome{value: v}
}

// Deferred wraps the future of a multi-tick operation.
func Deferred(f *Future) Outcome {
	return Outcome{deferred: f}
}

// Future returns the inner future and true when the outcome is deferred.
func (o Outcome) Future() (*Future, bool) {
	return o.deferred, o.deferred != nil
}

// Value returns the immediate result. Meaningless for deferred outcomes.
func (o Outcome) Value() any {
	return o.value
}

// Handler executes one command. It runs only on the host's cooperative loop
// and must not block; long-running work returns a Deferred outcome instead.
type Handler func(params Params) (Outcome, error)
