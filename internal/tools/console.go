package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mattjoyce/stagehand/internal/command"
	"github.com/mattjoyce/stagehand/internal/host"
	"github.com/mattjoyce/stagehand/internal/journal"
	"github.com/mattjoyce/stagehand/internal/registry"
)

// consoleQueryTimeout bounds journal reads so a wedged disk cannot stall the
// host loop.
const consoleQueryTimeout = 5 * time.Second

// ConsoleTool serves captured console output from the journal.
type ConsoleTool struct {
	store ConsoleStore
}

// NewConsoleTool returns the read_console unit.
func NewConsoleTool(store ConsoleStore) *ConsoleTool {
	return &ConsoleTool{store: store}
}

// Commands implements registry.Provider.
func (t *ConsoleTool) Commands() []registry.Registration {
	return []registry.Registration{{
		Unit:    "ReadConsole",
		About:   "Read or clear the captured host console log.",
		Handler: t.handle,
	}}
}

func (t *ConsoleTool) handle(p command.Params) (command.Outcome, error) {
	if t.store == nil {
		return command.Outcome{}, fmt.Errorf("console journal is not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), consoleQueryTimeout)
	defer cancel()

	switch action := p.StringOr("action", "get"); action {
	case "get":
		entries, err := t.store.ReadConsole(ctx, journal.ConsoleQuery{
			Level:    p.String("level"),
			Contains: p.String("contains"),
			Limit:    p.IntOr("count", 0),
		})
		if err != nil {
			return command.Outcome{}, err
		}
		if entries == nil {
			entries = []host.ConsoleEntry{}
		}
		return command.Immediate(map[string]any{
			"entries": entries,
			"count":   len(entries),
		}), nil

	case "clear":
		cleared, err := t.store.ClearConsole(ctx)
		if err != nil {
			return command.Outcome{}, err
		}
		return command.Immediate(map[string]any{"cleared": cleared}), nil

	default:
		return command.Outcome{}, fmt.Errorf("unknown read_console action: %q", action)
	}
}
