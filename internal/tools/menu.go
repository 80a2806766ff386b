package tools

import (
	"fmt"
	"strings"

	"github.com/mattjoyce/stagehand/internal/command"
	"github.com/mattjoyce/stagehand/internal/host"
	"github.com/mattjoyce/stagehand/internal/registry"
)

// menuAliases maps the short names clients historically send to full menu
// paths.
var menuAliases = map[string]string{
	"save":    "File/Save",
	"play":    "Edit/Play",
	"pause":   "Edit/Pause",
	"stop":    "Edit/Stop",
	"refresh": "Assets/Refresh",
}

// MenuTool executes registered menu items by path or alias.
type MenuTool struct {
	project *host.Project
}

// NewMenuTool returns the execute_menu_item unit.
func NewMenuTool(project *host.Project) *MenuTool {
	return &MenuTool{project: project}
}

// Commands implements registry.Provider.
func (t *MenuTool) Commands() []registry.Registration {
	return []registry.Registration{{
		Unit:    "ExecuteMenuItem",
		About:   "Execute a host menu item by path or alias.",
		Handler: t.handle,
	}}
}

func (t *MenuTool) handle(p command.Params) (command.Outcome, error) {
	switch action := p.StringOr("action", "execute"); action {
	case "execute":
		path := p.String("menu_path")
		if path == "" {
			return command.Outcome{}, fmt.Errorf("menu_path is required")
		}
		if full, ok := menuAliases[strings.ToLower(path)]; ok {
			path = full
		}
		if err := t.project.ExecuteMenu(path); err != nil {
			return command.Outcome{}, err
		}
		return command.Immediate(map[string]any{"executed": path}), nil

	case "get_available_menus":
		return command.Immediate(map[string]any{
			"menus": t.project.MenuItems(),
		}), nil

	default:
		return command.Outcome{}, fmt.Errorf("unknown execute_menu_item action: %q", action)
	}
}
