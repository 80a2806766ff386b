package tools

import (
	"fmt"

	"github.com/mattjoyce/stagehand/internal/command"
	"github.com/mattjoyce/stagehand/internal/host"
	"github.com/mattjoyce/stagehand/internal/registry"
)

// AssetTool manages the project asset database.
type AssetTool struct {
	project *host.Project
}

// NewAssetTool returns the manage_asset unit.
func NewAssetTool(project *host.Project) *AssetTool {
	return &AssetTool{project: project}
}

// Commands implements registry.Provider.
func (t *AssetTool) Commands() []registry.Registration {
	return []registry.Registration{{
		Unit:    "ManageAsset",
		About:   "Create, duplicate, inspect and search project assets.",
		Handler: t.handle,
	}}
}

func (t *AssetTool) handle(p command.Params) (command.Outcome, error) {
	switch action := p.String("action"); action {
	case "create":
		a, err := t.project.CreateAsset(p.String("path"), p.String("type"))
		if err != nil {
			return command.Outcome{}, err
		}
		return command.Immediate(map[string]any{"asset": a}), nil

	case "delete":
		path := p.String("path")
		if err := t.project.DeleteAsset(path); err != nil {
			return command.Outcome{}, err
		}
		return command.Immediate(map[string]any{"deleted": path}), nil

	case "duplicate":
		a, err := t.project.DuplicateAsset(p.String("path"), p.String("destination"))
		if err != nil {
			return command.Outcome{}, err
		}
		return command.Immediate(map[string]any{"asset": a}), nil

	case "get_info":
		a, err := t.project.AssetInfo(p.String("path"))
		if err != nil {
			return command.Outcome{}, err
		}
		return command.Immediate(map[string]any{"asset": a}), nil

	case "search":
		assets, err := t.project.SearchAssets(p.String("pattern"))
		if err != nil {
			return command.Outcome{}, err
		}
		if assets == nil {
			assets = []host.Asset{}
		}
		return command.Immediate(map[string]any{
			"assets": assets,
			"count":  len(assets),
		}), nil

	default:
		return command.Outcome{}, fmt.Errorf("unknown manage_asset action: %q", action)
	}
}
