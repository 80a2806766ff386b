package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mattjoyce/stagehand/internal/command"
)

// newTestLogger returns a logger writing JSON lines into a buffer so tests
// can assert on emitted diagnostics.
func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h), &buf
}

type staticProvider struct {
	regs []Registration
}

func (p staticProvider) Commands() []Registration { return p.regs }

func noopHandler(command.Params) (command.Outcome, error) {
	return command.Immediate(nil), nil
}

func TestInitializeAndResolve(t *testing.T) {
	logger, _ := newTestLogger()
	r := New(logger)
	r.Install(staticProvider{regs: []Registration{
		{Unit: "ManageAsset", Handler: noopHandler},
		{Unit: "ManageGameObject", Name: "manage_gameobject", Handler: noopHandler},
	}})
	r.Initialize()

	if _, err := r.Resolve("manage_asset"); err != nil {
		t.Errorf("derived name did not resolve: %v", err)
	}
	if _, err := r.Resolve("manage_gameobject"); err != nil {
		t.Errorf("explicit name did not resolve: %v", err)
	}
	if _, err := r.Resolve("Manage_Asset"); err == nil {
		t.Error("resolution must be case-sensitive")
	}
}

func TestResolveUnknownIsHardFailure(t *testing.T) {
	logger, _ := newTestLogger()
	r := New(logger)
	r.Initialize()

	h, err := r.Resolve("does_not_exist")
	if h != nil {
		t.Error("Resolve returned a handler for an unknown name")
	}
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("error = %v, want ErrUnknownCommand", err)
	}
	if !strings.Contains(err.Error(), "does_not_exist") {
		t.Errorf("error does not name the command: %v", err)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	logger, buf := newTestLogger()
	r := New(logger)
	r.Install(staticProvider{regs: []Registration{
		{Unit: "ManageEditor", Handler: noopHandler},
	}})

	r.Initialize()
	first := len(r.List())
	buf.Reset()

	r.Initialize()
	if got := len(r.List()); got != first {
		t.Errorf("second Initialize changed registry size: %d -> %d", first, got)
	}
	if buf.Len() != 0 {
		t.Errorf("second Initialize logged: %s", buf.String())
	}
}

func TestDuplicateLastWriterWinsWithWarning(t *testing.T) {
	logger, buf := newTestLogger()

	var winner string
	mk := func(tag string) command.Handler {
		return func(command.Params) (command.Outcome, error) {
			winner = tag
			return command.Immediate(nil), nil
		}
	}

	r := New(logger)
	r.Install(staticProvider{regs: []Registration{
		{Unit: "ManageScene", Handler: mk("builtin")},
	}})
	r.Install(staticProvider{regs: []Registration{
		{Unit: "UserManageScene", Name: "manage_scene", Handler: mk("override")},
	}})
	r.Initialize()

	h, err := r.Resolve("manage_scene")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, err := h(command.Params{}); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if winner != "override" {
		t.Errorf("resolved handler = %q, want the later registration", winner)
	}

	// The overwrite must be surfaced, not silent.
	var sawWarning bool
	dec := json.NewDecoder(strings.NewReader(buf.String()))
	for dec.More() {
		var line map[string]any
		if err := dec.Decode(&line); err != nil {
			break
		}
		if line["level"] == "WARN" && line["command"] == "manage_scene" {
			sawWarning = true
		}
	}
	if !sawWarning {
		t.Errorf("no duplicate warning emitted; log: %s", buf.String())
	}

	// Only one listing survives for the name.
	count := 0
	for _, info := range r.List() {
		if info.Name == "manage_scene" {
			count++
			if info.Unit != "UserManageScene" {
				t.Errorf("listing unit = %q, want overriding unit", info.Unit)
			}
		}
	}
	if count != 1 {
		t.Errorf("manage_scene listed %d times", count)
	}
}

func TestMalformedRegistrationsAreSkippedNotFatal(t *testing.T) {
	logger, buf := newTestLogger()
	r := New(logger)
	r.Install(staticProvider{regs: []Registration{
		{Unit: "", Handler: noopHandler},          // no usable name
		{Unit: "BrokenTool", Handler: nil},        // nil handler
		{Unit: "ReadConsole", Handler: noopHandler}, // healthy sibling
	}})
	r.Initialize()

	if _, err := r.Resolve("read_console"); err != nil {
		t.Errorf("healthy registration lost to malformed siblings: %v", err)
	}
	if got := len(r.List()); got != 1 {
		t.Errorf("List has %d entries, want 1", got)
	}
	if !strings.Contains(buf.String(), "skipping registration") {
		t.Error("malformed registrations were not surfaced")
	}
}

func TestInstallAfterInitializeIsIgnored(t *testing.T) {
	logger, buf := newTestLogger()
	r := New(logger)
	r.Initialize()

	r.Install(staticProvider{regs: []Registration{
		{Unit: "LateTool", Handler: noopHandler},
	}})
	if _, err := r.Resolve("late_tool"); err == nil {
		t.Error("post-initialize install took effect")
	}
	if !strings.Contains(buf.String(), "Install called after Initialize") {
		t.Error("post-initialize install was not surfaced")
	}
}

func TestInitializeLogsCount(t *testing.T) {
	logger, buf := newTestLogger()
	r := New(logger)
	r.Install(staticProvider{regs: []Registration{
		{Unit: "ManageAsset", Handler: noopHandler},
		{Unit: "ManageScene", Handler: noopHandler},
	}})
	r.Initialize()

	if !strings.Contains(buf.String(), `"commands":2`) {
		t.Errorf("initialize did not log the discovered count: %s", buf.String())
	}
}
