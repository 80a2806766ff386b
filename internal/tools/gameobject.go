package tools

import (
	"fmt"

	"github.com/mattjoyce/stagehand/internal/command"
	"github.com/mattjoyce/stagehand/internal/host"
	"github.com/mattjoyce/stagehand/internal/registry"
)

// GameObjectTool manipulates objects in the active scene.
type GameObjectTool struct {
	project *host.Project
}

// NewGameObjectTool returns the manage_gameobject unit.
func NewGameObjectTool(project *host.Project) *GameObjectTool {
	return &GameObjectTool{project: project}
}

// Commands implements registry.Provider. The wire name predates derived
// naming and does not split "gameobject", so it is pinned explicitly.
func (t *GameObjectTool) Commands() []registry.Registration {
	return []registry.Registration{{
		Unit:    "ManageGameObject",
		Name:    "manage_gameobject",
		About:   "Create, find and modify game objects in the active scene.",
		Handler: t.handle,
	}}
}

func (t *GameObjectTool) handle(p command.Params) (command.Outcome, error) {
	switch action := p.String("action"); action {
	case "create":
		obj, err := t.project.CreateObject(
			p.String("name"),
			p.String("tag"),
			p.String("layer"),
			p.String("parent"),
		)
		if err != nil {
			return command.Outcome{}, err
		}
		return command.Immediate(map[string]any{"object": obj}), nil

	case "find":
		objects := t.project.FindObjects(p.String("query"))
		if objects == nil {
			objects = []host.GameObject{}
		}
		return command.Immediate(map[string]any{
			"objects": objects,
			"count":   len(objects),
		}), nil

	case "modify":
		return t.modify(p)

	case "delete":
		id := p.String("id")
		if err := t.project.DeleteObject(id); err != nil {
			return command.Outcome{}, err
		}
		return command.Immediate(map[string]any{"deleted": id}), nil

	case "get_components":
		components, err := t.project.Components(p.String("id"))
		if err != nil {
			return command.Outcome{}, err
		}
		return command.Immediate(map[string]any{"components": components}), nil

	default:
		return command.Outcome{}, fmt.Errorf("unknown manage_gameobject action: %q", action)
	}
}

// modify applies every field present in the params to one object. Absent
// fields are left alone, so a toggle and a rename can ride the same call.
func (t *GameObjectTool) modify(p command.Params) (command.Outcome, error) {
	id := p.String("id")
	if id == "" {
		return command.Outcome{}, fmt.Errorf("object id is required")
	}

	if name := p.String("name"); name != "" {
		if err := t.project.RenameObject(id, name); err != nil {
			return command.Outcome{}, err
		}
	}
	if tag := p.String("tag"); tag != "" {
		if err := t.project.SetObjectTag(id, tag); err != nil {
			return command.Outcome{}, err
		}
	}
	if active, ok := p["active"].(bool); ok {
		if err := t.project.SetObjectActive(id, active); err != nil {
			return command.Outcome{}, err
		}
	}
	if component := p.String("add_component"); component != "" {
		if err := t.project.AddComponent(id, component); err != nil {
			return command.Outcome{}, err
		}
	}

	objects := t.project.FindObjects(id)
	if len(objects) == 0 {
		return command.Outcome{}, fmt.Errorf("object not found: %s", id)
	}
	return command.Immediate(map[string]any{"object": objects[0]}), nil
}
