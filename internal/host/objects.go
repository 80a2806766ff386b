package host

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// CreateObject adds a game object to the active scene. An unknown tag is an
// error; an empty tag defaults to "untagged"; an empty layer defaults to
// "default".
func (p *Project) CreateObject(name, tag, layer, parent string) (GameObject, error) {
	if name == "" {
		return GameObject{}, fmt.Errorf("object name is empty")
	}
	if tag == "" {
		tag = "untagged"
	}
	if layer == "" {
		layer = "default"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !containsLocked(p.tags, tag) {
		return GameObject{}, fmt.Errorf("unknown tag: %s", tag)
	}
	if !containsLocked(p.layers, layer) {
		return GameObject{}, fmt.Errorf("unknown layer: %s", layer)
	}
	if parent != "" {
		if _, ok := p.objects[parent]; !ok {
			return GameObject{}, fmt.Errorf("parent object not found: %s", parent)
		}
	}

	obj := &GameObject{
		ID:         uuid.NewString(),
		Name:       name,
		Scene:      p.activeScene,
		Tag:        tag,
		Layer:      layer,
		Parent:     parent,
		Active:     true,
		Components: []string{"Transform"},
	}
	p.objects[obj.ID] = obj
	return copyObject(obj), nil
}

// FindObjects returns objects whose ID or name equals query, or every object
// in the active scene when query is empty.
func (p *Project) FindObjects(query string) []GameObject {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []GameObject
	if obj, ok := p.objects[query]; ok {
		return []GameObject{copyObject(obj)}
	}
	for _, obj := range p.objects {
		if query == "" && obj.Scene != p.activeScene {
			continue
		}
		if query == "" || obj.Name == query {
			out = append(out, copyObject(obj))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DeleteObject removes an object; its children are reparented to the deleted
// object's own parent.
func (p *Project) DeleteObject(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	obj, ok := p.objects[id]
	if !ok {
		return fmt.Errorf("object not found: %s", id)
	}
	for _, child := range p.objects {
		if child.Parent == id {
			child.Parent = obj.Parent
		}
	}
	delete(p.objects, id)
	return nil
}

// RenameObject changes an object's name.
func (p *Project) RenameObject(id, name string) error {
	if name == "" {
		return fmt.Errorf("object name is empty")
	}
	return p.updateObject(id, func(o *GameObject) error {
		o.Name = name
		return nil
	})
}

// SetObjectTag retags an object. The tag must already exist.
func (p *Project) SetObjectTag(id, tag string) error {
	return p.updateObject(id, func(o *GameObject) error {
		if !containsLocked(p.tags, tag) {
			return fmt.Errorf("unknown tag: %s", tag)
		}
		o.Tag = tag
		return nil
	})
}

// SetObjectActive toggles an object's active flag.
func (p *Project) SetObjectActive(id string, active bool) error {
	return p.updateObject(id, func(o *GameObject) error {
		o.Active = active
		return nil
	})
}

// AddComponent attaches a component by type name. Duplicates are rejected.
func (p *Project) AddComponent(id, component string) error {
	if component == "" {
		return fmt.Errorf("component name is empty")
	}
	return p.updateObject(id, func(o *GameObject) error {
		for _, c := range o.Components {
			if c == component {
				return fmt.Errorf("component already present: %s", component)
			}
		}
		o.Components = append(o.Components, component)
		return nil
	})
}

// Components returns the component list of an object.
func (p *Project) Components(id string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	obj, ok := p.objects[id]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", id)
	}
	out := make([]string, len(obj.Components))
	copy(out, obj.Components)
	return out, nil
}

func (p *Project) updateObject(id string, fn func(*GameObject) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	obj, ok := p.objects[id]
	if !ok {
		return fmt.Errorf("object not found: %s", id)
	}
	return fn(obj)
}

// CreateAsset records a new asset at path.
func (p *Project) CreateAsset(path, typ string) (Asset, error) {
	if path == "" {
		return Asset{}, fmt.Errorf("asset path is empty")
	}
	if typ == "" {
		typ = "unknown"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.assets[path]; ok {
		return Asset{}, fmt.Errorf("asset already exists: %s", path)
	}
	a := &Asset{
		GUID:      uuid.NewString(),
		Path:      path,
		Type:      typ,
		CreatedAt: time.Now().UTC(),
	}
	p.assets[path] = a
	return *a, nil
}

// DeleteAsset removes the asset at path.
func (p *Project) DeleteAsset(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.assets[path]; !ok {
		return fmt.Errorf("asset not found: %s", path)
	}
	delete(p.assets, path)
	return nil
}

// DuplicateAsset copies the asset at src to dst with a fresh GUID.
func (p *Project) DuplicateAsset(src, dst string) (Asset, error) {
	if dst == "" {
		return Asset{}, fmt.Errorf("destination path is empty")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	orig, ok := p.assets[src]
	if !ok {
		return Asset{}, fmt.Errorf("asset not found: %s", src)
	}
	if _, ok := p.assets[dst]; ok {
		return Asset{}, fmt.Errorf("asset already exists: %s", dst)
	}
	a := &Asset{
		GUID:      uuid.NewString(),
		Path:      dst,
		Type:      orig.Type,
		CreatedAt: time.Now().UTC(),
	}
	p.assets[dst] = a
	return *a, nil
}

// AssetInfo returns the asset at path.
func (p *Project) AssetInfo(path string) (Asset, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.assets[path]
	if !ok {
		return Asset{}, fmt.Errorf("asset not found: %s", path)
	}
	return *a, nil
}

// SearchAssets returns assets whose path matches the glob pattern, sorted by
// path. An empty pattern matches everything.
func (p *Project) SearchAssets(pattern string) ([]Asset, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Asset, 0, len(p.assets))
	for path, a := range p.assets {
		if pattern != "" {
			ok, err := filepath.Match(pattern, path)
			if err != nil {
				return nil, fmt.Errorf("bad search pattern %q: %w", pattern, err)
			}
			if !ok {
				continue
			}
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func copyObject(o *GameObject) GameObject {
	out := *o
	out.Components = make([]string, len(o.Components))
	copy(out.Components, o.Components)
	return out
}

func containsLocked(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
