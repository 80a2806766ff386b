package tools

import (
	"fmt"

	"github.com/mattjoyce/stagehand/internal/command"
	"github.com/mattjoyce/stagehand/internal/host"
	"github.com/mattjoyce/stagehand/internal/registry"
)

// SceneTool creates, saves and activates scenes. Loading is the one built-in
// that spans loop turns: the handler validates up front, then completes on a
// posted continuation the way a real multi-frame load would.
type SceneTool struct {
	project *host.Project
	loop    Poster
}

// NewSceneTool returns the manage_scene unit.
func NewSceneTool(project *host.Project, loop Poster) *SceneTool {
	return &SceneTool{project: project, loop: loop}
}

// Commands implements registry.Provider.
func (t *SceneTool) Commands() []registry.Registration {
	return []registry.Registration{{
		Unit:    "ManageScene",
		About:   "Create, load, save and inspect scenes.",
		Handler: t.handle,
	}}
}

func (t *SceneTool) handle(p command.Params) (command.Outcome, error) {
	switch action := p.String("action"); action {
	case "create":
		s, err := t.project.CreateScene(p.String("name"), p.String("path"))
		if err != nil {
			return command.Outcome{}, err
		}
		return command.Immediate(map[string]any{"scene": s}), nil

	case "load":
		name := p.String("name")
		if name == "" {
			return command.Outcome{}, fmt.Errorf("scene name is required")
		}
		if !t.project.HasScene(name) {
			return command.Outcome{}, fmt.Errorf("scene not found: %s", name)
		}
		fut := command.NewFuture()
		t.loop.Post(func() {
			if err := t.project.ActivateScene(name); err != nil {
				fut.Fail(err)
				return
			}
			fut.Complete(map[string]any{"active_scene": name})
		})
		return command.Deferred(fut), nil

	case "save":
		path := t.project.SaveScene()
		return command.Immediate(map[string]any{
			"scene": t.project.ActiveScene(),
			"path":  path,
		}), nil

	case "get_active":
		return command.Immediate(map[string]any{
			"active_scene": t.project.ActiveScene(),
		}), nil

	case "list":
		return command.Immediate(map[string]any{
			"scenes": t.project.SceneList(),
		}), nil

	case "get_hierarchy":
		roots := buildHierarchy(t.project.FindObjects(""))
		return command.Immediate(map[string]any{
			"scene":     t.project.ActiveScene(),
			"hierarchy": roots,
		}), nil

	default:
		return command.Outcome{}, fmt.Errorf("unknown manage_scene action: %q", action)
	}
}

type hierarchyNode struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Active   bool             `json:"active"`
	Children []*hierarchyNode `json:"children,omitempty"`
}

// buildHierarchy nests objects under their parents. Input arrives name-sorted
// from FindObjects, so sibling order is stable. An object whose parent lives
// in another scene surfaces as a root.
func buildHierarchy(objects []host.GameObject) []*hierarchyNode {
	nodes := make(map[string]*hierarchyNode, len(objects))
	for _, o := range objects {
		nodes[o.ID] = &hierarchyNode{ID: o.ID, Name: o.Name, Active: o.Active}
	}

	roots := make([]*hierarchyNode, 0, len(objects))
	for _, o := range objects {
		n := nodes[o.ID]
		if o.Parent != "" {
			if parent, ok := nodes[o.Parent]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}
