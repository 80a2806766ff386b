package api

import (
	"context"

	"github.com/mattjoyce/stagehand/internal/bridge"
	"github.com/mattjoyce/stagehand/internal/host"
	"github.com/mattjoyce/stagehand/internal/journal"
	"github.com/mattjoyce/stagehand/internal/registry"
)

//go:generate mockgen -destination=mocks/mock_api.go -package=mocks github.com/mattjoyce/stagehand/internal/api Dispatcher,CommandLister,JournalReader,ProjectViewer

// Dispatcher submits raw command text to the dispatch pipeline and reports
// scheduler activity. *bridge.Scheduler satisfies it.
type Dispatcher interface {
	ExecuteCommand(ctx context.Context, raw string) (string, error)
	Stats() bridge.Stats
}

// CommandLister exposes the registered command table.
// *registry.Registry satisfies it.
type CommandLister interface {
	List() []registry.Info
	Initialized() bool
}

// JournalReader serves recorded command history. *journal.Store satisfies it.
type JournalReader interface {
	RecentCommands(ctx context.Context, limit int) ([]journal.CommandEntry, error)
	CommandCounts(ctx context.Context) (map[string]int64, error)
}

// ProjectViewer reads host project state. *host.Project satisfies it.
type ProjectViewer interface {
	Snapshot() host.State
}
