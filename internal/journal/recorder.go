package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mattjoyce/stagehand/internal/events"
	"github.com/mattjoyce/stagehand/internal/host"
)

const consoleBuffer = 1024

// Recorder drains bridge lifecycle events and captured console output into
// the store. It implements host.ConsoleSink; Append never blocks the caller,
// dropping entries instead when the writer falls behind.
type Recorder struct {
	store  *Store
	hub    *events.Hub
	logger *slog.Logger

	console chan host.ConsoleEntry
	dropped atomic.Int64
}

func NewRecorder(store *Store, hub *events.Hub, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:   store,
		hub:     hub,
		logger:  logger.With("component", "journal"),
		console: make(chan host.ConsoleEntry, consoleBuffer),
	}
}

// Append queues a console entry for persistence. Console entries arrive here
// rather than through the hub so a burst of chatty subscribers cannot starve
// the capture.
func (r *Recorder) Append(e host.ConsoleEntry) {
	select {
	case r.console <- e:
	default:
		r.dropped.Add(1)
	}
}

// Dropped reports how many console entries were discarded because the writer
// fell behind.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Run persists events until ctx is cancelled. A retention of 0 keeps records
// forever; otherwise rows older than the window are pruned hourly.
func (r *Recorder) Run(ctx context.Context, retention time.Duration) {
	sub, cancel := r.hub.Subscribe()
	defer cancel()

	var pruneC <-chan time.Time
	if retention > 0 {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		pruneC = ticker.C
	}

	r.logger.Debug("journal recorder started", "retention", retention.String())
	for {
		select {
		case <-ctx.Done():
			r.flush()
			r.logger.Debug("journal recorder stopped", "dropped", r.Dropped())
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			r.handleEvent(ctx, ev)
		case e := <-r.console:
			if err := r.store.AppendConsole(ctx, e); err != nil {
				r.logger.Warn("persist console entry", "error", err)
			}
		case <-pruneC:
			n, err := r.store.Prune(ctx, retention)
			if err != nil {
				r.logger.Warn("prune journal", "error", err)
			} else if n > 0 {
				r.logger.Debug("pruned journal rows", "rows", n)
			}
		}
	}
}

func (r *Recorder) handleEvent(ctx context.Context, ev events.Event) {
	switch ev.Type {
	case events.TypeCommandSubmitted,
		events.TypeCommandCompleted,
		events.TypeCommandFailed,
		events.TypeCommandCancelled:
		var rec events.CommandRecord
		if err := json.Unmarshal(ev.Data, &rec); err != nil {
			r.logger.Warn("decode command record", "event", ev.Type, "error", err)
			return
		}
		if err := r.store.RecordCommand(ctx, rec, ev.At); err != nil {
			r.logger.Warn("journal command", "request_id", rec.RequestID, "error", err)
		}
	}
}

// flush writes out console entries still queued at shutdown.
func (r *Recorder) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for {
		select {
		case e := <-r.console:
			if err := r.store.AppendConsole(ctx, e); err != nil {
				return
			}
		default:
			return
		}
	}
}
