// Package doctor validates stagehand configuration and the local runtime
// environment before the service starts.
package doctor

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/mattjoyce/stagehand/internal/config"
	"github.com/mattjoyce/stagehand/internal/luatool"
	"github.com/mattjoyce/stagehand/internal/status"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration and probes the environment it
// points at (data directory, tool scripts, other running instances).
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateServiceConfig(r)
	d.validateProject(r)
	d.validateTransports(r)
	d.validateJournal(r)
	d.checkDataDir(r)
	d.checkToolScripts(r)
	d.checkRunningInstances(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateServiceConfig checks required service fields.
func (d *Doctor) validateServiceConfig(r *Result) {
	if d.cfg.Service.DataDir == "" {
		d.addError(r, "service", "service.data_dir", "data_dir is required")
	}
	if d.cfg.Service.TickInterval <= 0 {
		d.addError(r, "service", "service.tick_interval", "tick_interval must be positive")
	} else if d.cfg.Service.TickInterval > time.Second {
		d.addWarning(r, "service", "service.tick_interval",
			fmt.Sprintf("tick_interval %s adds that much latency to every command", d.cfg.Service.TickInterval))
	}

	switch strings.ToLower(d.cfg.Service.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		d.addError(r, "service", "service.log_level",
			fmt.Sprintf("invalid log level %q (expected debug, info, warn, or error)", d.cfg.Service.LogLevel))
	}
	switch strings.ToLower(d.cfg.Service.LogFormat) {
	case "json", "text":
	default:
		d.addError(r, "service", "service.log_format",
			fmt.Sprintf("invalid log format %q (expected json or text)", d.cfg.Service.LogFormat))
	}
}

// validateProject checks the hosted project settings. The project path seeds
// the status file hash, so it has to resolve.
func (d *Doctor) validateProject(r *Result) {
	if d.cfg.Project.Path == "" {
		d.addError(r, "project", "project.path", "project.path is required")
		return
	}
	path, err := d.cfg.ResolvedProjectPath()
	if err != nil {
		d.addError(r, "project", "project.path",
			fmt.Sprintf("cannot resolve project path: %v", err))
		return
	}
	if info, err := os.Stat(path); err != nil {
		d.addWarning(r, "project", "project.path",
			fmt.Sprintf("project path %q does not exist", path))
	} else if !info.IsDir() {
		d.addError(r, "project", "project.path",
			fmt.Sprintf("project path %q is not a directory", path))
	}
	if d.cfg.Project.Name == "" {
		d.addWarning(r, "project", "project.name", "project.name is empty")
	}
}

// validateTransports checks listener settings and flags address conflicts
// between enabled transports.
func (d *Doctor) validateTransports(r *Result) {
	if !d.cfg.TCP.Enabled && !d.cfg.WebSocket.Enabled && !d.cfg.API.Enabled {
		d.addError(r, "transport", "",
			"no transport enabled; nothing can reach the command dispatcher")
		return
	}

	listeners := make(map[string]string)
	claim := func(field, addr, name string) {
		if addr == "" {
			d.addError(r, "transport", field, field+" is required when enabled")
			return
		}
		if prev, taken := listeners[addr]; taken {
			d.addError(r, "transport", field,
				fmt.Sprintf("listen address %q already used by %s", addr, prev))
			return
		}
		listeners[addr] = name
	}

	if d.cfg.TCP.Enabled {
		claim("tcp.listen", d.cfg.TCP.Listen, "tcp")
		if d.cfg.TCP.MaxFrameBytes < 0 {
			d.addError(r, "transport", "tcp.max_frame_bytes", "max_frame_bytes cannot be negative")
		} else if d.cfg.TCP.MaxFrameBytes > 0 && d.cfg.TCP.MaxFrameBytes < 1<<20 {
			d.addWarning(r, "transport", "tcp.max_frame_bytes",
				fmt.Sprintf("max_frame_bytes %d is below 1MiB; large scene results will be rejected", d.cfg.TCP.MaxFrameBytes))
		}
		if d.cfg.TCP.IdleTimeout < 0 {
			d.addError(r, "transport", "tcp.idle_timeout", "idle_timeout cannot be negative")
		}
	} else {
		d.addWarning(r, "transport", "tcp.enabled",
			"tcp transport disabled; bridge clients cannot connect")
	}

	if d.cfg.WebSocket.Enabled {
		claim("websocket.listen", d.cfg.WebSocket.Listen, "websocket")
		if d.cfg.WebSocket.Path == "" || !strings.HasPrefix(d.cfg.WebSocket.Path, "/") {
			d.addError(r, "transport", "websocket.path",
				fmt.Sprintf("invalid websocket path %q (must start with /)", d.cfg.WebSocket.Path))
		}
	}

	if d.cfg.API.Enabled {
		claim("api.listen", d.cfg.API.Listen, "api")
	}
}

// validateJournal checks command journal settings.
func (d *Doctor) validateJournal(r *Result) {
	if d.cfg.Journal.Retention < 0 {
		d.addError(r, "journal", "journal.retention", "retention cannot be negative")
	} else if d.cfg.Journal.Retention > 0 && d.cfg.Journal.Retention < time.Hour {
		d.addWarning(r, "journal", "journal.retention",
			fmt.Sprintf("retention %s is very short (< 1h)", d.cfg.Journal.Retention))
	}
	if _, err := d.cfg.ResolvedJournalPath(); err != nil {
		d.addError(r, "journal", "journal.path",
			fmt.Sprintf("cannot resolve journal path: %v", err))
	}
}

// checkDataDir verifies the data directory is usable. A missing directory is
// fine; it gets created on start.
func (d *Doctor) checkDataDir(r *Result) {
	dir, err := d.cfg.ResolvedDataDir()
	if err != nil {
		d.addError(r, "data_dir", "service.data_dir",
			fmt.Sprintf("cannot resolve data_dir: %v", err))
		return
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		d.addError(r, "data_dir", "service.data_dir",
			fmt.Sprintf("cannot stat data_dir %q: %v", dir, err))
		return
	}
	if !info.IsDir() {
		d.addError(r, "data_dir", "service.data_dir",
			fmt.Sprintf("data_dir %q exists but is not a directory", dir))
		return
	}

	probe, err := os.CreateTemp(dir, ".doctor-probe-*")
	if err != nil {
		d.addError(r, "data_dir", "service.data_dir",
			fmt.Sprintf("data_dir %q is not writable: %v", dir, err))
		return
	}
	probe.Close()
	os.Remove(probe.Name())
}

// checkToolScripts loads every tool script the way the service would and
// surfaces per-file failures as warnings.
func (d *Doctor) checkToolScripts(r *Result) {
	if !d.cfg.Tools.Enabled {
		return
	}
	dir := d.cfg.ResolvedToolsDir()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		d.addWarning(r, "tools", "tools.dir",
			fmt.Sprintf("tools dir %q does not exist; no scripted tools will load", dir))
		return
	}

	set, warnings, err := luatool.Load(dir)
	if err != nil {
		d.addError(r, "tools", "tools.dir", fmt.Sprintf("cannot scan tools dir: %v", err))
		return
	}
	defer set.Close()
	for _, w := range warnings {
		d.addWarning(r, "tools", "tools.dir", w)
	}
}

// checkRunningInstances inspects status files in the data directory for a
// live instance already serving this project.
func (d *Doctor) checkRunningInstances(r *Result) {
	dataDir, err := d.cfg.ResolvedDataDir()
	if err != nil {
		return
	}
	projectPath, err := d.cfg.ResolvedProjectPath()
	if err != nil {
		return
	}

	infos, err := status.Discover(dataDir)
	if err != nil {
		return
	}
	for _, info := range infos {
		if info.ProjectPath != projectPath {
			continue
		}
		if processAlive(info.PID) {
			d.addWarning(r, "instances", "",
				fmt.Sprintf("an instance is already serving %q (pid %d, tcp port %d)",
					info.ProjectPath, info.PID, info.TCPPort))
		} else {
			d.addWarning(r, "instances", "",
				fmt.Sprintf("stale status file for %q (pid %d is gone); it will be replaced on start",
					info.ProjectPath, info.PID))
		}
	}
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "Configuration valid (%d warning(s))\n", len(r.Warnings))
	}
	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
