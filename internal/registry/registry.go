// Package registry maps wire command names to handlers. The table is built
// once at startup from an explicit list of providers and is read-only
// afterward.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mattjoyce/stagehand/internal/command"
)

// ErrUnknownCommand is returned by Resolve for names with no registration.
// An unresolvable name is a caller or configuration error, never a
// transient condition.
var ErrUnknownCommand = errors.New("unknown or unsupported command type")

// Registration declares one command a provider contributes. Name is the
// explicit wire name; when empty it is derived from Unit
// (ManageAsset -> manage_asset).
type Registration struct {
	Unit    string
	Name    string
	About   string
	Handler command.Handler
}

// Provider is a handler-providing unit scanned during Initialize.
type Provider interface {
	Commands() []Registration
}

// Info describes one registered command for listings.
type Info struct {
	Name  string `json:"name"`
	Unit  string `json:"unit"`
	About string `json:"about,omitempty"`
}

type entry struct {
	info    Info
	handler command.Handler
}

// Registry resolves command names to handlers.
type Registry struct {
	mu          sync.RWMutex
	providers   []Provider
	entries     map[string]entry
	order       []string
	initialized bool
	logger      *slog.Logger
}

// New returns an empty registry. Providers are added with Install and
// scanned by Initialize.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]entry),
		logger:  logger.With("component", "registry"),
	}
}

// Install appends providers to the discovery list. It must be called before
// Initialize; later calls are ignored with a warning.
func (r *Registry) Install(providers ...Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		r.logger.Warn("Install called after Initialize, providers ignored",
			"count", len(providers))
		return
	}
	r.providers = append(r.providers, providers...)
}

// Initialize scans all installed providers and builds the name table.
// Idempotent: the second and later calls are no-ops. One malformed
// registration never prevents the rest from registering.
func (r *Registry) Initialize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return
	}

	for _, p := range r.providers {
		for _, reg := range p.Commands() {
			name := reg.Name
			if name == "" {
				name = DeriveName(reg.Unit)
			}
			if name == "" {
				r.logger.Warn("skipping registration with no usable name",
					"unit", reg.Unit)
				continue
			}
			if reg.Handler == nil {
				r.logger.Warn("skipping registration with nil handler",
					"command", name, "unit", reg.Unit)
				continue
			}
			if prev, dup := r.entries[name]; dup {
				// Last writer wins so user tools can override built-ins.
				r.logger.Warn("duplicate command name, later registration wins",
					"command", name,
					"previous_unit", prev.info.Unit,
					"unit", reg.Unit)
			} else {
				r.order = append(r.order, name)
			}
			r.entries[name] = entry{
				info:    Info{Name: name, Unit: reg.Unit, About: reg.About},
				handler: reg.Handler,
			}
		}
	}

	r.initialized = true
	r.logger.Info("command registry initialized", "commands", len(r.entries))
}

// Resolve returns the handler registered under name, matched
// case-sensitively. Fails with ErrUnknownCommand when absent.
func (r *Registry) Resolve(name string) (command.Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return e.handler, nil
}

// List returns all registered commands in registration order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].info)
	}
	return out
}

// Initialized reports whether discovery has run.
func (r *Registry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}
