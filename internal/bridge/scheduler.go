package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/stagehand/internal/command"
	"github.com/mattjoyce/stagehand/internal/events"
	"github.com/mattjoyce/stagehand/internal/host"
	"github.com/mattjoyce/stagehand/internal/registry"
)

// ErrStopped is returned for submissions made while the scheduler is not
// running, and resolves the futures of requests still pending at Stop.
var ErrStopped = errors.New("dispatch scheduler is stopped")

// Loop is the slice of the host loop the scheduler drives. *host.Loop
// satisfies it; tests substitute a fake.
type Loop interface {
	Attach(host.Hook)
	Detach(host.Hook)
	Post(func())
}

// Resolver resolves command names to handlers. *registry.Registry satisfies
// it.
type Resolver interface {
	Resolve(name string) (command.Handler, error)
}

// Stats is a point-in-time view of scheduler activity.
type Stats struct {
	Pending   int   `json:"pending"`
	Hooked    bool  `json:"hook_attached"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}

// pendingRequest is the bookkeeping record for one submission. It lives in
// the pending map from Submit until its future resolves; it additionally
// sits in the claim queue until a tick claims it.
type pendingRequest struct {
	id       string
	raw      string
	ctx      context.Context
	future   *command.Future
	claimed  bool
	cmd      string
	source   string
	queuedAt time.Time
}

// Scheduler executes commands on the host loop. Construct with New, then
// Start before submitting.
type Scheduler struct {
	loop     Loop
	resolver Resolver
	hub      *events.Hub
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	hooked  bool
	pending map[string]*pendingRequest
	queue   []*pendingRequest // unclaimed, in submission order

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64
}

// New creates a stopped scheduler.
func New(loop Loop, resolver Resolver, hub *events.Hub, logger *slog.Logger) *Scheduler {
	if hub == nil {
		hub = events.NewHub(128)
	}
	return &Scheduler{
		loop:     loop,
		resolver: resolver,
		hub:      hub,
		logger:   logger.With("component", "bridge"),
		pending:  make(map[string]*pendingRequest),
	}
}

// Start begins accepting submissions.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	s.logger.Info("dispatch scheduler started")
}

// Stop rejects further submissions, detaches from the loop, and fails every
// still-pending future with ErrStopped so no caller is left hanging.
// Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	if s.hooked {
		s.hooked = false
		s.loop.Detach(s)
	}
	leftovers := make([]*pendingRequest, 0, len(s.pending))
	for _, p := range s.pending {
		leftovers = append(leftovers, p)
	}
	s.pending = make(map[string]*pendingRequest)
	s.queue = nil
	s.mu.Unlock()

	for _, p := range leftovers {
		p.future.Fail(ErrStopped)
	}
	s.logger.Info("dispatch scheduler stopped", "aborted", len(leftovers))
}

// Submit queues raw command text for execution on the host loop and returns
// the future the caller awaits. Safe from any goroutine. ctx is the caller's
// cancellation handle: cancelling before the request is claimed resolves the
// future with the context's error and the handler never runs; cancelling
// later has no effect. A nil ctx is a transport bug and panics.
func (s *Scheduler) Submit(ctx context.Context, raw string) (*command.Future, error) {
	if ctx == nil {
		panic("bridge: nil context in Submit")
	}

	p := &pendingRequest{
		id:       uuid.NewString(),
		raw:      raw,
		ctx:      ctx,
		future:   command.NewFuture(),
		source:   sourceFrom(ctx),
		queuedAt: time.Now(),
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil, ErrStopped
	}
	s.pending[p.id] = p
	s.queue = append(s.queue, p)
	if !s.hooked {
		s.hooked = true
		s.loop.Attach(s)
	}
	s.mu.Unlock()

	go s.watchCancel(p)

	s.submitted.Add(1)
	s.hub.Publish(events.TypeCommandSubmitted, events.CommandRecord{
		RequestID: p.id,
		Status:    "submitted",
		Source:    p.source,
	})
	s.logger.Debug("command submitted",
		"request_id", p.id, "source", p.source, "bytes", len(raw))
	return p.future, nil
}

// ExecuteCommand is the transport-facing contract: submit raw text, await
// the outcome, return the JSON-encoded response envelope. The error is
// non-nil only for cancellation and scheduler shutdown; every data-level
// failure comes back as a well-formed error envelope.
func (s *Scheduler) ExecuteCommand(ctx context.Context, raw string) (string, error) {
	fut, err := s.Submit(ctx, raw)
	if err != nil {
		return "", err
	}
	v, err := fut.Await()
	if err != nil {
		return "", err
	}
	resp := v.(command.Response)
	out, encErr := command.Encode(resp)
	if encErr != nil {
		// The handler produced an unmarshalable payload. Still answer with
		// a well-formed envelope.
		out, _ = command.Encode(command.FailureFor(resp.Command,
			fmt.Sprintf("failed to encode result: %v", encErr)))
	}
	return out, nil
}

// Tick drains the current snapshot of unclaimed requests. It satisfies
// host.Hook and runs only on the host loop.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	if len(s.queue) == 0 {
		// Idle: detach so the loop does not keep calling us. Claimed
		// deferred requests finish through posted continuations, not ticks.
		if s.hooked {
			s.hooked = false
			s.loop.Detach(s)
		}
		s.mu.Unlock()
		return
	}
	snapshot := s.queue
	s.queue = nil
	for _, p := range snapshot {
		p.claimed = true
	}
	s.mu.Unlock()

	for _, p := range snapshot {
		s.process(p)
	}
}

// Pending returns the number of requests holding bookkeeping, claimed or
// not.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Hooked reports whether the scheduler is attached to the loop.
func (s *Scheduler) Hooked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hooked
}

// Stats returns a snapshot of scheduler activity.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	pending := len(s.pending)
	hooked := s.hooked
	s.mu.Unlock()
	return Stats{
		Pending:   pending,
		Hooked:    hooked,
		Submitted: s.submitted.Load(),
		Completed: s.completed.Load(),
		Failed:    s.failed.Load(),
		Cancelled: s.cancelled.Load(),
	}
}

// process runs one claimed request through the full pipeline. It is the
// error boundary: nothing thrown below may escape to the loop.
func (s *Scheduler) process(p *pendingRequest) {
	defer func() {
		if r := recover(); r != nil {
			resp := command.Response{
				Status:     command.StatusError,
				Error:      fmt.Sprintf("%v", r),
				Command:    p.cmd,
				StackTrace: string(debug.Stack()),
			}
			s.logger.Error("panic while processing command",
				"request_id", p.id, "command", p.cmd, "panic", r)
			s.finish(p, resp)
		}
	}()

	// Cancellation that signalled between claim and execution still wins;
	// after this point the request runs to completion.
	if p.ctx.Err() != nil {
		s.resolveCancelled(p, p.ctx.Err())
		return
	}

	trimmed := strings.TrimSpace(p.raw)
	if trimmed == "" {
		s.finish(p, command.Failure("Empty command"))
		return
	}
	if command.IsPing(trimmed) {
		s.finish(p, command.Pong())
		return
	}
	if !command.SyntacticJSON(trimmed) {
		resp := command.Failure("Invalid JSON format")
		resp.ReceivedText = command.TruncateEcho(trimmed)
		s.finish(p, resp)
		return
	}

	env, err := command.DecodeRequest(trimmed)
	if err != nil {
		s.finish(p, command.Failure(err.Error()))
		return
	}
	if strings.TrimSpace(env.Type) == "" {
		s.finish(p, command.Failure("Command type cannot be empty"))
		return
	}
	p.cmd = env.Type
	if command.IsPing(env.Type) {
		s.finish(p, command.Pong())
		return
	}

	handler, err := s.resolver.Resolve(env.Type)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, registry.ErrUnknownCommand) {
			msg = fmt.Sprintf("Unknown or unsupported command type: %s", env.Type)
		}
		s.finish(p, command.FailureFor(env.Type, msg))
		return
	}

	outcome, err := handler(env.Params)
	if err != nil {
		s.finish(p, command.FailureFor(env.Type, err.Error()))
		return
	}
	if inner, ok := outcome.Future(); ok {
		// Deferred: hold bookkeeping until the inner future resolves, then
		// finish on a later loop turn. Removal never happens off-loop.
		go s.awaitDeferred(p, inner)
		return
	}
	s.finish(p, command.Success(outcome.Value()))
}

func (s *Scheduler) awaitDeferred(p *pendingRequest, inner *command.Future) {
	v, err := inner.Await()
	s.loop.Post(func() {
		if err != nil {
			s.finish(p, command.FailureFor(p.cmd, err.Error()))
			return
		}
		s.finish(p, command.Success(v))
	})
}

// finish resolves a claimed request and releases its bookkeeping.
func (s *Scheduler) finish(p *pendingRequest, resp command.Response) {
	s.mu.Lock()
	delete(s.pending, p.id)
	s.mu.Unlock()

	if p.future.Resolved() {
		// Lost the race against Stop; the caller already has an outcome.
		return
	}
	p.future.Complete(resp)

	rec := events.CommandRecord{
		RequestID:  p.id,
		Command:    p.cmd,
		Status:     resp.Status,
		Source:     p.source,
		Error:      resp.Error,
		DurationMs: time.Since(p.queuedAt).Milliseconds(),
	}
	if resp.Status == command.StatusSuccess {
		s.completed.Add(1)
		s.hub.Publish(events.TypeCommandCompleted, rec)
	} else {
		s.failed.Add(1)
		s.hub.Publish(events.TypeCommandFailed, rec)
	}
	s.logger.Debug("command resolved",
		"request_id", p.id, "command", p.cmd, "status", resp.Status,
		"duration_ms", rec.DurationMs)
}

// watchCancel ties the caller's cancellation handle to the pending request.
// It exits as soon as the future resolves through any path.
func (s *Scheduler) watchCancel(p *pendingRequest) {
	select {
	case <-p.ctx.Done():
		s.cancelBeforeClaim(p)
	case <-p.future.Done():
	}
}

// cancelBeforeClaim removes an unclaimed request. Once claimed, the signal
// is observed to have no effect and the drain resolves the request instead.
func (s *Scheduler) cancelBeforeClaim(p *pendingRequest) {
	s.mu.Lock()
	cur, ok := s.pending[p.id]
	if !ok || cur.claimed {
		s.mu.Unlock()
		return
	}
	delete(s.pending, p.id)
	for i, q := range s.queue {
		if q == p {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.resolveCancelled(p, p.ctx.Err())
}

// resolveCancelled resolves a request's future as cancelled. The map entry
// for claimed requests is released here too.
func (s *Scheduler) resolveCancelled(p *pendingRequest, cause error) {
	s.mu.Lock()
	delete(s.pending, p.id)
	s.mu.Unlock()

	if cause == nil {
		cause = context.Canceled
	}
	p.future.Fail(cause)

	s.cancelled.Add(1)
	s.hub.Publish(events.TypeCommandCancelled, events.CommandRecord{
		RequestID:  p.id,
		Command:    p.cmd,
		Status:     "cancelled",
		Source:     p.source,
		DurationMs: time.Since(p.queuedAt).Milliseconds(),
	})
	s.logger.Debug("command cancelled", "request_id", p.id)
}

type ctxKey int

const sourceKey ctxKey = iota

// WithSource labels a submission context with the transport it arrived on.
// The label shows up in lifecycle events and logs.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

func sourceFrom(ctx context.Context) string {
	v, _ := ctx.Value(sourceKey).(string)
	return v
}
