// Package tools provides the built-in command set: small handler units that
// translate wire parameters into host.Project calls. Each unit registers
// through the registry and runs on the host loop, so handlers stay short and
// hand long work back as deferred outcomes.
package tools

import (
	"context"

	"github.com/mattjoyce/stagehand/internal/command"
	"github.com/mattjoyce/stagehand/internal/host"
	"github.com/mattjoyce/stagehand/internal/journal"
	"github.com/mattjoyce/stagehand/internal/registry"
)

// Poster schedules a function onto a later turn of the host loop.
// *host.Loop satisfies it.
type Poster interface {
	Post(func())
}

// Submitter queues a raw command envelope for dispatch. *bridge.Scheduler
// satisfies it.
type Submitter interface {
	Submit(ctx context.Context, raw string) (*command.Future, error)
}

// ConsoleStore is the slice of the journal the console tool needs.
// *journal.Store satisfies it.
type ConsoleStore interface {
	ReadConsole(ctx context.Context, q journal.ConsoleQuery) ([]host.ConsoleEntry, error)
	ClearConsole(ctx context.Context) (int64, error)
}

// BuiltIn returns every built-in provider, ready for registry.Install.
func BuiltIn(project *host.Project, loop Poster, console ConsoleStore, submit Submitter) []registry.Provider {
	return []registry.Provider{
		NewEditorTool(project),
		NewSceneTool(project, loop),
		NewAssetTool(project),
		NewGameObjectTool(project),
		NewMenuTool(project),
		NewConsoleTool(console),
		NewBatchTool(submit),
	}
}
