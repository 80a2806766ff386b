// Package host models the single-threaded side of the bridge: the
// cooperative loop that is the only place host state may be mutated, and the
// project state itself.
package host

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// DefaultFrameInterval is the frame cadence used when none is configured.
const DefaultFrameInterval = 10 * time.Millisecond

// Hook is a per-frame callback. Owners attach one while they have pending
// work and detach it when idle.
type Hook interface {
	Tick()
}

// Loop is the host's one mutation-permitted goroutine. Attached hooks run
// once per frame; functions handed to Post run on a later turn of the loop.
// Frames fire on a ticker and immediately after a Wake.
type Loop struct {
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	hooks []Hook

	post chan func()
	wake chan struct{}
	done chan struct{}
}

// NewLoop returns a stopped loop; Run starts it.
func NewLoop(interval time.Duration, logger *slog.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Loop{
		interval: interval,
		logger:   logger.With("component", "loop"),
		post:     make(chan func(), 256),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Run drives the loop until ctx is cancelled. It must be called exactly once
// and is the goroutine every hook and posted function executes on.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Debug("loop running", "interval", l.interval.String())
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("loop stopped")
			return
		case fn := <-l.post:
			l.invoke(fn)
			l.drainPosts()
		case <-l.wake:
			l.frame()
		case <-ticker.C:
			l.frame()
		}
	}
}

// Post schedules fn to run on a later turn of the loop. Safe from any
// goroutine. Once the loop has stopped the function is dropped.
func (l *Loop) Post(fn func()) {
	select {
	case l.post <- fn:
	case <-l.done:
	}
}

// Wake nudges the loop to run a frame without waiting for the ticker.
func (l *Loop) Wake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Attach adds h to the per-frame hook set and wakes the loop. Attaching an
// already attached hook is a no-op.
func (l *Loop) Attach(h Hook) {
	l.mu.Lock()
	for _, existing := range l.hooks {
		if existing == h {
			l.mu.Unlock()
			return
		}
	}
	l.hooks = append(l.hooks, h)
	l.mu.Unlock()
	l.Wake()
}

// Detach removes h from the hook set. Detaching an absent hook is a no-op.
func (l *Loop) Detach(h Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.hooks {
		if existing == h {
			l.hooks = append(l.hooks[:i], l.hooks[i+1:]...)
			return
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) frame() {
	l.drainPosts()

	l.mu.Lock()
	hooks := make([]Hook, len(l.hooks))
	copy(hooks, l.hooks)
	l.mu.Unlock()

	for _, h := range hooks {
		l.invoke(h.Tick)
	}
}

func (l *Loop) drainPosts() {
	for {
		select {
		case fn := <-l.post:
			l.invoke(fn)
		default:
			return
		}
	}
}

// invoke guards the loop against panics; a panicking callback must not kill
// every future frame.
func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic on host loop",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
