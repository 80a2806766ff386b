package tools

import (
	"fmt"

	"github.com/mattjoyce/stagehand/internal/command"
	"github.com/mattjoyce/stagehand/internal/host"
	"github.com/mattjoyce/stagehand/internal/registry"
)

// EditorTool drives play mode and the tag and layer registries.
type EditorTool struct {
	project *host.Project
}

// NewEditorTool returns the manage_editor unit.
func NewEditorTool(project *host.Project) *EditorTool {
	return &EditorTool{project: project}
}

// Commands implements registry.Provider.
func (t *EditorTool) Commands() []registry.Registration {
	return []registry.Registration{{
		Unit:    "ManageEditor",
		About:   "Query and control editor state: play mode, tags, layers.",
		Handler: t.handle,
	}}
}

func (t *EditorTool) handle(p command.Params) (command.Outcome, error) {
	switch action := p.StringOr("action", "get_state"); action {
	case "get_state":
		s := t.project.Snapshot()
		return command.Immediate(map[string]any{
			"playing":      s.Playing,
			"paused":       s.Paused,
			"project_name": s.ProjectName,
			"active_scene": s.ActiveScene,
		}), nil

	case "play":
		changed := t.project.Play()
		return command.Immediate(map[string]any{
			"playing": true,
			"changed": changed,
		}), nil

	case "pause":
		if err := t.project.Pause(); err != nil {
			return command.Outcome{}, err
		}
		s := t.project.Snapshot()
		return command.Immediate(map[string]any{
			"playing": s.Playing,
			"paused":  s.Paused,
		}), nil

	case "stop":
		changed := t.project.Stop()
		return command.Immediate(map[string]any{
			"playing": false,
			"changed": changed,
		}), nil

	case "get_tags":
		return command.Immediate(map[string]any{"tags": t.project.Tags()}), nil

	case "add_tag":
		if err := t.project.AddTag(p.String("tag")); err != nil {
			return command.Outcome{}, err
		}
		return command.Immediate(map[string]any{"tags": t.project.Tags()}), nil

	case "get_layers":
		return command.Immediate(map[string]any{"layers": t.project.Layers()}), nil

	case "add_layer":
		if err := t.project.AddLayer(p.String("layer")); err != nil {
			return command.Outcome{}, err
		}
		return command.Immediate(map[string]any{"layers": t.project.Layers()}), nil

	default:
		return command.Outcome{}, fmt.Errorf("unknown manage_editor action: %q", action)
	}
}
