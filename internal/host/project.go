package host

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mattjoyce/stagehand/internal/events"
)

// ConsoleEntry is one line of the host console.
type ConsoleEntry struct {
	At      time.Time `json:"at"`
	Level   string    `json:"level"` // info | warning | error
	Message string    `json:"message"`
	Source  string    `json:"source,omitempty"`
}

// ConsoleSink receives console entries as they are produced. Implementations
// must be safe for concurrent use.
type ConsoleSink interface {
	Append(e ConsoleEntry)
}

// Scene is one scene known to the project.
type Scene struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Asset is one project asset.
type Asset struct {
	GUID      string    `json:"guid"`
	Path      string    `json:"path"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// GameObject is one object in a scene.
type GameObject struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Scene      string   `json:"scene"`
	Tag        string   `json:"tag"`
	Layer      string   `json:"layer"`
	Parent     string   `json:"parent,omitempty"`
	Active     bool     `json:"active"`
	Components []string `json:"components"`
}

// State is a point-in-time snapshot of the project, shaped for get_state and
// the status API.
type State struct {
	ProjectName string `json:"project_name"`
	ProjectPath string `json:"project_path"`
	Playing     bool   `json:"playing"`
	Paused      bool   `json:"paused"`
	ActiveScene string `json:"active_scene"`
	Scenes      int    `json:"scenes"`
	Objects     int    `json:"objects"`
	Assets      int    `json:"assets"`
}

// Project is the host application state. Mutation happens only on the host
// loop; the lock exists so observers on other goroutines (status API, TUI)
// read a consistent view.
type Project struct {
	mu          sync.RWMutex
	name        string
	path        string
	playing     bool
	paused      bool
	activeScene string
	scenes      map[string]*Scene
	objects     map[string]*GameObject
	assets      map[string]*Asset
	tags        []string
	layers      []string
	menu        map[string]func() error

	sink   ConsoleSink
	hub    *events.Hub
	logger *slog.Logger
}

// NewProject builds a project with one default scene and the default menu.
// sink may be nil when console persistence is not wired.
func NewProject(name, path string, sink ConsoleSink, hub *events.Hub, logger *slog.Logger) *Project {
	if hub == nil {
		hub = events.NewHub(128)
	}
	p := &Project{
		name:    name,
		path:    path,
		scenes:  make(map[string]*Scene),
		objects: make(map[string]*GameObject),
		assets:  make(map[string]*Asset),
		tags:    []string{"untagged"},
		layers:  []string{"default"},
		menu:    make(map[string]func() error),
		sink:    sink,
		hub:     hub,
		logger:  logger.With("component", "project"),
	}
	p.scenes["Main"] = &Scene{Name: "Main", Path: "Scenes/Main.scene"}
	p.activeScene = "Main"
	p.registerDefaultMenu()
	return p
}

// Name returns the project name.
func (p *Project) Name() string { return p.name }

// Path returns the project path.
func (p *Project) Path() string { return p.path }

// Snapshot returns a consistent copy of the top-level state.
func (p *Project) Snapshot() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return State{
		ProjectName: p.name,
		ProjectPath: p.path,
		Playing:     p.playing,
		Paused:      p.paused,
		ActiveScene: p.activeScene,
		Scenes:      len(p.scenes),
		Objects:     len(p.objects),
		Assets:      len(p.assets),
	}
}

// Console records an entry on the host console and publishes it.
func (p *Project) Console(level, source, format string, args ...any) {
	e := ConsoleEntry{
		At:      time.Now().UTC(),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
		Source:  source,
	}
	if p.sink != nil {
		p.sink.Append(e)
	}
	p.hub.Publish(events.TypeConsoleEntry, e)
}

// Play enters play mode. Entering while already playing is a no-op and
// reports false.
func (p *Project) Play() bool {
	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return false
	}
	p.playing = true
	p.paused = false
	p.mu.Unlock()

	p.Console("info", "editor", "entered play mode")
	p.publishPlayMode()
	return true
}

// Pause toggles pause while in play mode.
func (p *Project) Pause() error {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return fmt.Errorf("cannot pause: not in play mode")
	}
	p.paused = !p.paused
	paused := p.paused
	p.mu.Unlock()

	p.Console("info", "editor", "play mode paused=%v", paused)
	p.publishPlayMode()
	return nil
}

// Stop leaves play mode. Stopping while stopped is a no-op and reports
// false.
func (p *Project) Stop() bool {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return false
	}
	p.playing = false
	p.paused = false
	p.mu.Unlock()

	p.Console("info", "editor", "exited play mode")
	p.publishPlayMode()
	return true
}

func (p *Project) publishPlayMode() {
	s := p.Snapshot()
	p.hub.Publish(events.TypePlayModeChanged, map[string]bool{
		"playing": s.Playing,
		"paused":  s.Paused,
	})
}

// Tags returns a copy of the tag list.
func (p *Project) Tags() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.tags))
	copy(out, p.tags)
	return out
}

// AddTag appends a tag. Duplicates are rejected.
func (p *Project) AddTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag is empty")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.tags {
		if t == tag {
			return fmt.Errorf("tag already exists: %s", tag)
		}
	}
	p.tags = append(p.tags, tag)
	return nil
}

// Layers returns a copy of the layer list.
func (p *Project) Layers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.layers))
	copy(out, p.layers)
	return out
}

// AddLayer appends a layer. Duplicates are rejected.
func (p *Project) AddLayer(layer string) error {
	if layer == "" {
		return fmt.Errorf("layer is empty")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range p.layers {
		if l == layer {
			return fmt.Errorf("layer already exists: %s", layer)
		}
	}
	p.layers = append(p.layers, layer)
	return nil
}

// CreateScene adds a scene. The new scene is not activated.
func (p *Project) CreateScene(name, path string) (Scene, error) {
	if name == "" {
		return Scene{}, fmt.Errorf("scene name is empty")
	}
	if path == "" {
		path = fmt.Sprintf("Scenes/%s.scene", name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.scenes[name]; ok {
		return Scene{}, fmt.Errorf("scene already exists: %s", name)
	}
	s := &Scene{Name: name, Path: path}
	p.scenes[name] = s
	return *s, nil
}

// HasScene reports whether a scene exists.
func (p *Project) HasScene(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.scenes[name]
	return ok
}

// ActivateScene makes an existing scene the active one. Loading is a
// multi-frame operation; callers sequence this through the host loop.
func (p *Project) ActivateScene(name string) error {
	p.mu.Lock()
	if _, ok := p.scenes[name]; !ok {
		p.mu.Unlock()
		return fmt.Errorf("scene not found: %s", name)
	}
	p.activeScene = name
	p.mu.Unlock()

	p.Console("info", "scene", "loaded scene %s", name)
	return nil
}

// ActiveScene returns the active scene name.
func (p *Project) ActiveScene() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.activeScene
}

// SceneList returns all scenes sorted by name.
func (p *Project) SceneList() []Scene {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Scene, 0, len(p.scenes))
	for _, s := range p.scenes {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SaveScene records a save of the active scene and returns its path.
func (p *Project) SaveScene() string {
	p.mu.RLock()
	s := p.scenes[p.activeScene]
	path := s.Path
	p.mu.RUnlock()

	p.Console("info", "scene", "saved scene to %s", path)
	return path
}

// RegisterMenuItem adds an executable menu item under a path like
// "File/Save".
func (p *Project) RegisterMenuItem(path string, fn func() error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.menu[path] = fn
}

// MenuItems returns all registered menu paths, sorted.
func (p *Project) MenuItems() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.menu))
	for path := range p.menu {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// ExecuteMenu runs the menu item registered under path. The item executes
// outside the project lock since most items mutate project state themselves.
func (p *Project) ExecuteMenu(path string) error {
	p.mu.RLock()
	fn, ok := p.menu[path]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown menu item: %s", path)
	}
	if err := fn(); err != nil {
		return fmt.Errorf("menu item %s: %w", path, err)
	}
	p.Console("info", "menu", "executed %s", path)
	return nil
}

func (p *Project) registerDefaultMenu() {
	p.menu["File/Save"] = func() error {
		p.SaveScene()
		return nil
	}
	p.menu["Edit/Play"] = func() error {
		p.Play()
		return nil
	}
	p.menu["Edit/Pause"] = func() error {
		return p.Pause()
	}
	p.menu["Edit/Stop"] = func() error {
		p.Stop()
		return nil
	}
	p.menu["Assets/Refresh"] = func() error {
		p.Console("info", "assets", "asset database refreshed")
		return nil
	}
}
